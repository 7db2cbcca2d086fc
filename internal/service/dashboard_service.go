package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/errorutil"
)

// DashboardStats is a role-shaped set of aggregate counts. Keys differ
// per role; an unrecognized role yields an empty map.
type DashboardStats map[string]int64

// DashboardService computes role-scoped counts over the ticket store,
// with a short-TTL Redis cache in front of Postgres. Cache failures are
// logged and fall through to the database.
type DashboardService struct {
	tickets  repository.TicketRepository
	cache    *redis.Client
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewDashboardService constructs the service. cache may be nil to
// disable caching entirely.
func NewDashboardService(tickets repository.TicketRepository, cache *redis.Client, cacheTTL time.Duration, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		tickets:  tickets,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

// Stats returns aggregate counts scoped to the caller's role.
func (s *DashboardService) Stats(ctx context.Context, caller *domain.User) (DashboardStats, error) {
	if caller == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}

	key := fmt.Sprintf("dashboard:stats:%s:%s", caller.Role, caller.ID)
	if cached := s.fromCache(ctx, key); cached != nil {
		return cached, nil
	}

	var (
		stats DashboardStats
		err   error
	)
	switch caller.Role {
	case domain.RoleClient:
		stats, err = s.clientStats(ctx, caller.ID)
	case domain.RoleEngineer:
		stats, err = s.engineerStats(ctx, caller.ID)
	case domain.RoleAdmin:
		stats, err = s.adminStats(ctx)
	default:
		return DashboardStats{}, nil
	}
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.toCache(ctx, key, stats)
	return stats, nil
}

func (s *DashboardService) clientStats(ctx context.Context, clientID string) (DashboardStats, error) {
	base := repository.TicketFilter{ClientID: &clientID}
	stats := DashboardStats{}

	counts := []struct {
		key    string
		status *domain.TicketStatus
	}{
		{"total_tickets", nil},
		{"open_tickets", statusPtr(domain.TicketStatusOpen)},
		{"in_progress_tickets", statusPtr(domain.TicketStatusInProgress)},
		{"resolved_tickets", statusPtr(domain.TicketStatusResolved)},
	}
	for _, c := range counts {
		filter := base
		filter.Status = c.status
		count, err := s.tickets.CountWithFilter(ctx, filter)
		if err != nil {
			return nil, err
		}
		stats[c.key] = count
	}
	return stats, nil
}

func (s *DashboardService) engineerStats(ctx context.Context, engineerID string) (DashboardStats, error) {
	base := repository.TicketFilter{EngineerID: &engineerID}
	stats := DashboardStats{}

	counts := []struct {
		key    string
		status *domain.TicketStatus
	}{
		{"assigned_tickets", nil},
		{"active_tickets", statusPtr(domain.TicketStatusInProgress)},
		{"pending_tickets", statusPtr(domain.TicketStatusPendingClient)},
		{"resolved_tickets", statusPtr(domain.TicketStatusResolved)},
	}
	for _, c := range counts {
		filter := base
		filter.Status = c.status
		count, err := s.tickets.CountWithFilter(ctx, filter)
		if err != nil {
			return nil, err
		}
		stats[c.key] = count
	}
	return stats, nil
}

func (s *DashboardService) adminStats(ctx context.Context) (DashboardStats, error) {
	stats := DashboardStats{}

	total, err := s.tickets.CountWithFilter(ctx, repository.TicketFilter{})
	if err != nil {
		return nil, err
	}
	stats["total_tickets"] = total

	open, err := s.tickets.CountWithFilter(ctx, repository.TicketFilter{Status: statusPtr(domain.TicketStatusOpen)})
	if err != nil {
		return nil, err
	}
	stats["open_tickets"] = open

	unassigned, err := s.tickets.CountWithFilter(ctx, repository.TicketFilter{Unassigned: true})
	if err != nil {
		return nil, err
	}
	stats["unassigned_tickets"] = unassigned

	highPriority, err := s.tickets.CountWithFilter(ctx, repository.TicketFilter{HighOrCritical: true})
	if err != nil {
		return nil, err
	}
	stats["high_priority_tickets"] = highPriority

	return stats, nil
}

func (s *DashboardService) fromCache(ctx context.Context, key string) DashboardStats {
	if s.cache == nil || s.cacheTTL <= 0 {
		return nil
	}
	raw, err := s.cache.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.logger.Warn("dashboard cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil
	}
	var stats DashboardStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		s.logger.Warn("dashboard cache decode failed", zap.String("key", key), zap.Error(err))
		return nil
	}
	return stats
}

func (s *DashboardService) toCache(ctx context.Context, key string, stats DashboardStats) {
	if s.cache == nil || s.cacheTTL <= 0 {
		return
	}
	raw, err := json.Marshal(stats)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.cacheTTL).Err(); err != nil {
		s.logger.Warn("dashboard cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func statusPtr(status domain.TicketStatus) *domain.TicketStatus {
	return &status
}
