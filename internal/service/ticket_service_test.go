package service

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/errorutil"
)

// MockTicketRepository is a mock implementation of TicketRepository.
type MockTicketRepository struct {
	mock.Mock
}

func (m *MockTicketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	args := m.Called(ctx, ticket)
	return args.Error(0)
}

func (m *MockTicketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	args := m.Called(ctx, ticket)
	return args.Error(0)
}

func (m *MockTicketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketRepository) ExistsByNumber(ctx context.Context, number string) (bool, error) {
	args := m.Called(ctx, number)
	return args.Bool(0), args.Error(1)
}

func (m *MockTicketRepository) ListWithFilter(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Ticket), args.Error(1)
}

func (m *MockTicketRepository) CountWithFilter(ctx context.Context, filter repository.TicketFilter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

// MockTicketLogRepository is a mock implementation of TicketLogRepository.
type MockTicketLogRepository struct {
	mock.Mock
}

func (m *MockTicketLogRepository) Create(ctx context.Context, entry *domain.TicketLog) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockTicketLogRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketLog, error) {
	args := m.Called(ctx, ticketID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.TicketLog), args.Error(1)
}

func newTicketService() (*TicketService, *MockTicketRepository, *MockTicketLogRepository) {
	tickets := new(MockTicketRepository)
	logs := new(MockTicketLogRepository)
	svc := NewTicketService(TicketDependencies{TicketRepo: tickets, LogRepo: logs})
	return svc, tickets, logs
}

func clientUser() *domain.User {
	return &domain.User{ID: "client-1", Username: "alice", Role: domain.RoleClient}
}

func adminUser() *domain.User {
	return &domain.User{ID: "admin-1", Username: "root", Role: domain.RoleAdmin}
}

func TestCreateTicketForcesOpenStatusAndDefaults(t *testing.T) {
	svc, tickets, logs := newTicketService()
	ctx := context.Background()

	tickets.On("ExistsByNumber", ctx, mock.AnythingOfType("string")).Return(false, nil).Once()
	tickets.On("Create", ctx, mock.AnythingOfType("*domain.Ticket")).Return(nil).Once()
	logs.On("Create", ctx, mock.AnythingOfType("*domain.TicketLog")).Return(nil).Once()

	ticket, err := svc.CreateTicket(ctx, clientUser(), TicketCreateInput{
		Title:       "Printer on fire",
		Description: "It is literally on fire",
	})

	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	assert.Equal(t, domain.TicketPriorityMedium, ticket.Priority)
	assert.Equal(t, domain.TicketCategoryTechnical, ticket.Category)
	assert.Equal(t, "client-1", ticket.ClientID)
	assert.Regexp(t, domain.TicketNumberPattern, ticket.TicketNumber)
	tickets.AssertExpectations(t)
	logs.AssertExpectations(t)
}

func TestCreateTicketWritesOneLogRow(t *testing.T) {
	svc, tickets, logs := newTicketService()
	ctx := context.Background()

	tickets.On("ExistsByNumber", ctx, mock.AnythingOfType("string")).Return(false, nil).Once()
	tickets.On("Create", ctx, mock.Anything).Return(nil).Once()

	var logged *domain.TicketLog
	logs.On("Create", ctx, mock.AnythingOfType("*domain.TicketLog")).
		Run(func(args mock.Arguments) {
			logged = args.Get(1).(*domain.TicketLog)
		}).Return(nil).Once()

	_, err := svc.CreateTicket(ctx, clientUser(), TicketCreateInput{
		Title:       "Slow VPN",
		Description: "Everything takes minutes",
		Priority:    domain.TicketPriorityHigh,
		Category:    domain.TicketCategoryTechnical,
	})

	require.NoError(t, err)
	require.NotNil(t, logged)
	assert.Equal(t, "Ticket created", logged.Action)
	require.NotNil(t, logged.Details)
	assert.Equal(t, "Title: Slow VPN, Priority: High, Category: Technical Issue", *logged.Details)
	logs.AssertNumberOfCalls(t, "Create", 1)
}

func TestCreateTicketValidation(t *testing.T) {
	svc, _, _ := newTicketService()
	ctx := context.Background()

	tests := []struct {
		name  string
		input TicketCreateInput
	}{
		{"empty title", TicketCreateInput{Description: "desc"}},
		{"empty description", TicketCreateInput{Title: "title"}},
		{"whitespace only", TicketCreateInput{Title: "  ", Description: "\t"}},
		{"unknown priority", TicketCreateInput{Title: "t", Description: "d", Priority: "urgent-ish"}},
		{"unknown category", TicketCreateInput{Title: "t", Description: "d", Category: "gardening"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateTicket(ctx, clientUser(), tt.input)
			require.Error(t, err)
			domainErr := apperrors.ToDomainError(err)
			assert.Equal(t, "VALIDATION_FAILED", domainErr.Code)
		})
	}
}

func TestCreateTicketRetriesOnNumberCollision(t *testing.T) {
	svc, tickets, logs := newTicketService()
	ctx := context.Background()

	tickets.On("ExistsByNumber", ctx, mock.AnythingOfType("string")).Return(true, nil).Twice()
	tickets.On("ExistsByNumber", ctx, mock.AnythingOfType("string")).Return(false, nil).Once()
	tickets.On("Create", ctx, mock.Anything).Return(nil).Once()
	logs.On("Create", ctx, mock.Anything).Return(nil).Once()

	ticket, err := svc.CreateTicket(ctx, clientUser(), TicketCreateInput{
		Title:       "t",
		Description: "d",
	})

	require.NoError(t, err)
	assert.Regexp(t, domain.TicketNumberPattern, ticket.TicketNumber)
	tickets.AssertNumberOfCalls(t, "ExistsByNumber", 3)
}

func TestCreateTicketNumberExhaustion(t *testing.T) {
	svc, tickets, _ := newTicketService()
	ctx := context.Background()

	tickets.On("ExistsByNumber", ctx, mock.AnythingOfType("string")).Return(true, nil)

	_, err := svc.CreateTicket(ctx, clientUser(), TicketCreateInput{
		Title:       "t",
		Description: "d",
	})

	require.Error(t, err)
	tickets.AssertNumberOfCalls(t, "ExistsByNumber", 10)
	tickets.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestListTicketsScopesByRole(t *testing.T) {
	ctx := context.Background()
	engineerID := "eng-1"

	tests := []struct {
		name   string
		caller *domain.User
		check  func(t *testing.T, filter repository.TicketFilter)
	}{
		{
			name:   "client sees own tickets",
			caller: clientUser(),
			check: func(t *testing.T, filter repository.TicketFilter) {
				require.NotNil(t, filter.ClientID)
				assert.Equal(t, "client-1", *filter.ClientID)
				assert.Nil(t, filter.EngineerID)
			},
		},
		{
			name:   "engineer sees assigned tickets",
			caller: &domain.User{ID: engineerID, Role: domain.RoleEngineer},
			check: func(t *testing.T, filter repository.TicketFilter) {
				require.NotNil(t, filter.EngineerID)
				assert.Equal(t, engineerID, *filter.EngineerID)
				assert.Nil(t, filter.ClientID)
			},
		},
		{
			name:   "admin is unscoped",
			caller: adminUser(),
			check: func(t *testing.T, filter repository.TicketFilter) {
				assert.Nil(t, filter.ClientID)
				assert.Nil(t, filter.EngineerID)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, tickets, _ := newTicketService()
			var captured repository.TicketFilter
			tickets.On("ListWithFilter", ctx, mock.AnythingOfType("repository.TicketFilter")).
				Run(func(args mock.Arguments) {
					captured = args.Get(1).(repository.TicketFilter)
				}).Return([]domain.Ticket{}, nil).Once()

			_, err := svc.ListTickets(ctx, tt.caller, TicketListInput{})
			require.NoError(t, err)
			tt.check(t, captured)
		})
	}
}

func TestListTicketsUnknownRoleReturnsEmpty(t *testing.T) {
	svc, tickets, _ := newTicketService()

	result, err := svc.ListTickets(context.Background(), &domain.User{ID: "x", Role: "auditor"}, TicketListInput{})

	require.NoError(t, err)
	assert.Empty(t, result)
	tickets.AssertNotCalled(t, "ListWithFilter", mock.Anything, mock.Anything)
}

func TestGetTicketHidesOutOfScope(t *testing.T) {
	svc, tickets, _ := newTicketService()
	ctx := context.Background()

	tickets.On("GetByID", ctx, "t-1").Return(&domain.Ticket{
		ID:       "t-1",
		ClientID: "someone-else",
		Status:   domain.TicketStatusOpen,
	}, nil)

	_, err := svc.GetTicket(ctx, clientUser(), "t-1")

	require.Error(t, err)
	domainErr := apperrors.ToDomainError(err)
	assert.Equal(t, "NOT_FOUND", domainErr.Code)
}

func TestGetTicketMissing(t *testing.T) {
	svc, tickets, _ := newTicketService()
	ctx := context.Background()

	tickets.On("GetByID", ctx, "nope").Return(nil, pgx.ErrNoRows)

	_, err := svc.GetTicket(ctx, adminUser(), "nope")

	require.Error(t, err)
	domainErr := apperrors.ToDomainError(err)
	assert.Equal(t, "NOT_FOUND", domainErr.Code)
}

func TestUpdateStatusStampsResolvedAt(t *testing.T) {
	svc, tickets, logs := newTicketService()
	ctx := context.Background()
	admin := adminUser()

	tickets.On("GetByID", ctx, "t-1").Return(&domain.Ticket{
		ID:       "t-1",
		ClientID: "client-1",
		Status:   domain.TicketStatusInProgress,
	}, nil)
	tickets.On("Update", ctx, mock.AnythingOfType("*domain.Ticket")).Return(nil).Once()
	logs.On("Create", ctx, mock.AnythingOfType("*domain.TicketLog")).Return(nil).Once()

	ticket, err := svc.UpdateStatus(ctx, admin, "t-1", domain.TicketStatusResolved)

	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusResolved, ticket.Status)
	require.NotNil(t, ticket.ResolvedAt)
}

func TestUpdateStatusReopenClearsResolvedAt(t *testing.T) {
	svc, tickets, logs := newTicketService()
	ctx := context.Background()
	resolved := &domain.Ticket{
		ID:       "t-1",
		ClientID: "client-1",
		Status:   domain.TicketStatusResolved,
	}
	now := time.Now()
	resolved.ResolvedAt = &now

	tickets.On("GetByID", ctx, "t-1").Return(resolved, nil)
	tickets.On("Update", ctx, mock.Anything).Return(nil).Once()
	logs.On("Create", ctx, mock.Anything).Return(nil).Once()

	ticket, err := svc.UpdateStatus(ctx, adminUser(), "t-1", domain.TicketStatusReopened)

	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusReopened, ticket.Status)
	assert.Nil(t, ticket.ResolvedAt)
}

func TestUpdateStatusForbiddenForClient(t *testing.T) {
	svc, tickets, _ := newTicketService()

	_, err := svc.UpdateStatus(context.Background(), clientUser(), "t-1", domain.TicketStatusResolved)

	require.Error(t, err)
	domainErr := apperrors.ToDomainError(err)
	assert.Equal(t, "FORBIDDEN", domainErr.Code)
	tickets.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestUpdateStatusNoopWhenUnchanged(t *testing.T) {
	svc, tickets, logs := newTicketService()
	ctx := context.Background()

	tickets.On("GetByID", ctx, "t-1").Return(&domain.Ticket{
		ID:     "t-1",
		Status: domain.TicketStatusOpen,
	}, nil)

	_, err := svc.UpdateStatus(ctx, adminUser(), "t-1", domain.TicketStatusOpen)

	require.NoError(t, err)
	tickets.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	logs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestEscalateTicketAdminOnly(t *testing.T) {
	svc, _, _ := newTicketService()
	engineer := &domain.User{ID: "eng-1", Role: domain.RoleEngineer}

	_, err := svc.EscalateTicket(context.Background(), engineer, "t-1", "taking too long")

	require.Error(t, err)
	domainErr := apperrors.ToDomainError(err)
	assert.Equal(t, "FORBIDDEN", domainErr.Code)
}

func TestEscalateTicketSetsFlagAndReason(t *testing.T) {
	svc, tickets, logs := newTicketService()
	ctx := context.Background()

	tickets.On("GetByID", ctx, "t-1").Return(&domain.Ticket{ID: "t-1"}, nil)
	tickets.On("Update", ctx, mock.Anything).Return(nil).Once()
	logs.On("Create", ctx, mock.Anything).Return(nil).Once()

	ticket, err := svc.EscalateTicket(ctx, adminUser(), "t-1", "customer threatening to churn")

	require.NoError(t, err)
	assert.True(t, ticket.IsEscalated)
	require.NotNil(t, ticket.EscalationReason)
	assert.Equal(t, "customer threatening to churn", *ticket.EscalationReason)
}

func TestUpdateTicketLogFailurePropagates(t *testing.T) {
	svc, tickets, logs := newTicketService()
	ctx := context.Background()
	newTitle := "new title"

	tickets.On("GetByID", ctx, "t-1").Return(&domain.Ticket{
		ID:       "t-1",
		ClientID: "client-1",
		Title:    "old title",
	}, nil)
	tickets.On("Update", ctx, mock.Anything).Return(nil).Once()
	logs.On("Create", ctx, mock.Anything).Return(assert.AnError).Once()

	_, err := svc.UpdateTicket(ctx, clientUser(), "t-1", TicketUpdateInput{Title: &newTitle})

	require.Error(t, err)
}

func TestRandomTicketSuffixShape(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		suffix := randomTicketSuffix()
		assert.Len(t, suffix, 8)
		assert.Regexp(t, `^[A-Z0-9]{8}$`, suffix)
		seen[suffix] = true
	}
	// 50 draws from a 36^8 space should not all collide.
	assert.Greater(t, len(seen), 1)
}
