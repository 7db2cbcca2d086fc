package service

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/errorutil"
)

// MockUserRepository is a mock implementation of UserRepository.
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Update(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) GetEngineerByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) ListEngineers(ctx context.Context) ([]domain.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.User), args.Error(1)
}

func (m *MockUserRepository) CreateEngineerProfile(ctx context.Context, profile *domain.EngineerProfile) error {
	args := m.Called(ctx, profile)
	return args.Error(0)
}

func (m *MockUserRepository) GetEngineerProfile(ctx context.Context, userID string) (*domain.EngineerProfile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EngineerProfile), args.Error(1)
}

func (m *MockUserRepository) AdjustEngineerTicketCount(ctx context.Context, userID string, delta int) error {
	args := m.Called(ctx, userID, delta)
	return args.Error(0)
}

// MockTicketEngineerRepository is a mock implementation of TicketEngineerRepository.
type MockTicketEngineerRepository struct {
	mock.Mock
}

func (m *MockTicketEngineerRepository) FindOrCreate(ctx context.Context, link *domain.TicketEngineer) (bool, error) {
	args := m.Called(ctx, link)
	return args.Bool(0), args.Error(1)
}

func (m *MockTicketEngineerRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketEngineer, error) {
	args := m.Called(ctx, ticketID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.TicketEngineer), args.Error(1)
}

func (m *MockTicketEngineerRepository) DeleteByTicket(ctx context.Context, ticketID string) error {
	args := m.Called(ctx, ticketID)
	return args.Error(0)
}

// MockAssignmentRepository is a mock implementation of AssignmentRepository.
type MockAssignmentRepository struct {
	mock.Mock
}

func (m *MockAssignmentRepository) Create(ctx context.Context, assignment *domain.Assignment) error {
	args := m.Called(ctx, assignment)
	return args.Error(0)
}

func (m *MockAssignmentRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Assignment, error) {
	args := m.Called(ctx, ticketID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Assignment), args.Error(1)
}

type assignmentMocks struct {
	tickets     *MockTicketRepository
	users       *MockUserRepository
	links       *MockTicketEngineerRepository
	assignments *MockAssignmentRepository
	logs        *MockTicketLogRepository
}

func newAssignmentService() (*AssignmentService, assignmentMocks) {
	m := assignmentMocks{
		tickets:     new(MockTicketRepository),
		users:       new(MockUserRepository),
		links:       new(MockTicketEngineerRepository),
		assignments: new(MockAssignmentRepository),
		logs:        new(MockTicketLogRepository),
	}
	svc := NewAssignmentService(AssignmentDependencies{
		TicketRepo:         m.tickets,
		UserRepo:           m.users,
		TicketEngineerRepo: m.links,
		AssignmentRepo:     m.assignments,
		LogRepo:            m.logs,
	})
	return svc, m
}

func engineer(id, username string) *domain.User {
	return &domain.User{ID: id, Username: username, Role: domain.RoleEngineer}
}

func TestAssignEngineersRequiresIDs(t *testing.T) {
	svc, _ := newAssignmentService()

	_, err := svc.AssignEngineers(context.Background(), adminUser(), "t-1", AssignInput{})

	require.Error(t, err)
	domainErr := apperrors.ToDomainError(err)
	assert.Equal(t, "VALIDATION_FAILED", domainErr.Code)
	assert.Equal(t, "Engineer IDs required", domainErr.Message)
}

func TestAssignEngineersMissingTicket(t *testing.T) {
	svc, m := newAssignmentService()
	ctx := context.Background()

	m.tickets.On("GetByID", ctx, "nope").Return(nil, pgx.ErrNoRows)

	_, err := svc.AssignEngineers(ctx, adminUser(), "nope", AssignInput{EngineerIDs: []string{"e-1"}})

	require.Error(t, err)
	domainErr := apperrors.ToDomainError(err)
	assert.Equal(t, "NOT_FOUND", domainErr.Code)
}

func TestAssignEngineersSkipsUnknownIDs(t *testing.T) {
	svc, m := newAssignmentService()
	ctx := context.Background()
	ticket := &domain.Ticket{ID: "t-1", Status: domain.TicketStatusOpen}

	m.tickets.On("GetByID", ctx, "t-1").Return(ticket, nil)
	m.links.On("ListByTicket", ctx, "t-1").Return([]domain.TicketEngineer{}, nil).Once()
	m.users.On("GetEngineerByID", ctx, "e-1").Return(engineer("e-1", "bob"), nil)
	m.users.On("GetEngineerByID", ctx, "ghost").Return(nil, pgx.ErrNoRows)
	m.links.On("FindOrCreate", ctx, mock.AnythingOfType("*domain.TicketEngineer")).Return(true, nil).Once()
	m.assignments.On("Create", ctx, mock.AnythingOfType("*domain.Assignment")).Return(nil).Once()
	m.users.On("AdjustEngineerTicketCount", ctx, "e-1", 1).Return(nil).Once()
	m.links.On("ListByTicket", ctx, "t-1").Return([]domain.TicketEngineer{
		{TicketID: "t-1", EngineerID: "e-1", IsPrimary: true},
	}, nil).Once()
	m.tickets.On("Update", ctx, ticket).Return(nil).Once()
	m.logs.On("Create", ctx, mock.AnythingOfType("*domain.TicketLog")).Return(nil).Once()

	result, err := svc.AssignEngineers(ctx, adminUser(), "t-1", AssignInput{
		EngineerIDs: []string{"e-1", "ghost"},
	})

	require.NoError(t, err)
	assert.Equal(t, 1, result.AssignedCount)
	assert.Equal(t, []string{"bob"}, result.AssignedUsernames)
	m.assignments.AssertNumberOfCalls(t, "Create", 1)
}

func TestAssignEngineersFirstLinkIsPrimary(t *testing.T) {
	svc, m := newAssignmentService()
	ctx := context.Background()
	ticket := &domain.Ticket{ID: "t-1", Status: domain.TicketStatusOpen}

	m.tickets.On("GetByID", ctx, "t-1").Return(ticket, nil)
	m.links.On("ListByTicket", ctx, "t-1").Return([]domain.TicketEngineer{}, nil).Once()
	m.users.On("GetEngineerByID", ctx, "e-1").Return(engineer("e-1", "bob"), nil)
	m.users.On("GetEngineerByID", ctx, "e-2").Return(engineer("e-2", "carol"), nil)

	var links []*domain.TicketEngineer
	m.links.On("FindOrCreate", ctx, mock.AnythingOfType("*domain.TicketEngineer")).
		Run(func(args mock.Arguments) {
			links = append(links, args.Get(1).(*domain.TicketEngineer))
		}).Return(true, nil)
	m.assignments.On("Create", ctx, mock.Anything).Return(nil)
	m.users.On("AdjustEngineerTicketCount", ctx, mock.AnythingOfType("string"), 1).Return(nil)
	m.links.On("ListByTicket", ctx, "t-1").Return([]domain.TicketEngineer{
		{EngineerID: "e-1", IsPrimary: true},
		{EngineerID: "e-2"},
	}, nil).Once()
	m.tickets.On("Update", ctx, ticket).Return(nil).Once()
	m.logs.On("Create", ctx, mock.Anything).Return(nil).Once()

	_, err := svc.AssignEngineers(ctx, adminUser(), "t-1", AssignInput{
		EngineerIDs: []string{"e-1", "e-2"},
	})

	require.NoError(t, err)
	require.Len(t, links, 2)
	assert.True(t, links[0].IsPrimary)
	assert.False(t, links[1].IsPrimary)
	require.NotNil(t, ticket.EngineerID)
	assert.Equal(t, "e-1", *ticket.EngineerID)
}

func TestAssignEngineersMovesOpenToInProgress(t *testing.T) {
	svc, m := newAssignmentService()
	ctx := context.Background()
	ticket := &domain.Ticket{ID: "t-1", Status: domain.TicketStatusOpen}

	m.tickets.On("GetByID", ctx, "t-1").Return(ticket, nil)
	m.links.On("ListByTicket", ctx, "t-1").Return([]domain.TicketEngineer{}, nil).Once()
	m.users.On("GetEngineerByID", ctx, "e-1").Return(engineer("e-1", "bob"), nil)
	m.links.On("FindOrCreate", ctx, mock.Anything).Return(true, nil)
	m.assignments.On("Create", ctx, mock.Anything).Return(nil)
	m.users.On("AdjustEngineerTicketCount", ctx, "e-1", 1).Return(nil)
	m.links.On("ListByTicket", ctx, "t-1").Return([]domain.TicketEngineer{
		{EngineerID: "e-1", IsPrimary: true},
	}, nil).Once()
	m.tickets.On("Update", ctx, ticket).Return(nil).Once()
	m.logs.On("Create", ctx, mock.Anything).Return(nil).Once()

	result, err := svc.AssignEngineers(ctx, adminUser(), "t-1", AssignInput{EngineerIDs: []string{"e-1"}})

	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, result.Ticket.Status)
}

func TestAssignEngineersDoesNotRevertLaterStates(t *testing.T) {
	svc, m := newAssignmentService()
	ctx := context.Background()
	ticket := &domain.Ticket{ID: "t-1", Status: domain.TicketStatusResolved}

	m.tickets.On("GetByID", ctx, "t-1").Return(ticket, nil)
	m.links.On("ListByTicket", ctx, "t-1").Return([]domain.TicketEngineer{}, nil).Once()
	m.users.On("GetEngineerByID", ctx, "e-1").Return(engineer("e-1", "bob"), nil)
	m.links.On("FindOrCreate", ctx, mock.Anything).Return(true, nil)
	m.assignments.On("Create", ctx, mock.Anything).Return(nil)
	m.users.On("AdjustEngineerTicketCount", ctx, "e-1", 1).Return(nil)
	m.links.On("ListByTicket", ctx, "t-1").Return([]domain.TicketEngineer{
		{EngineerID: "e-1", IsPrimary: true},
	}, nil).Once()
	m.tickets.On("Update", ctx, ticket).Return(nil).Once()
	m.logs.On("Create", ctx, mock.Anything).Return(nil).Once()

	result, err := svc.AssignEngineers(ctx, adminUser(), "t-1", AssignInput{EngineerIDs: []string{"e-1"}})

	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusResolved, result.Ticket.Status)
}

func TestAssignEngineersClearExisting(t *testing.T) {
	svc, m := newAssignmentService()
	ctx := context.Background()
	old := "e-old"
	ticket := &domain.Ticket{ID: "t-1", Status: domain.TicketStatusInProgress, EngineerID: &old}

	m.tickets.On("GetByID", ctx, "t-1").Return(ticket, nil)
	m.links.On("ListByTicket", ctx, "t-1").Return([]domain.TicketEngineer{
		{EngineerID: "e-old", IsPrimary: true},
	}, nil).Once()
	m.links.On("DeleteByTicket", ctx, "t-1").Return(nil).Once()
	m.users.On("AdjustEngineerTicketCount", ctx, "e-old", -1).Return(nil).Once()
	m.links.On("ListByTicket", ctx, "t-1").Return([]domain.TicketEngineer{}, nil).Once()
	m.users.On("GetEngineerByID", ctx, "e-new").Return(engineer("e-new", "dora"), nil)
	m.links.On("FindOrCreate", ctx, mock.Anything).Return(true, nil)
	m.assignments.On("Create", ctx, mock.Anything).Return(nil)
	m.users.On("AdjustEngineerTicketCount", ctx, "e-new", 1).Return(nil).Once()
	m.links.On("ListByTicket", ctx, "t-1").Return([]domain.TicketEngineer{
		{EngineerID: "e-new", IsPrimary: true},
	}, nil).Once()
	m.tickets.On("Update", ctx, ticket).Return(nil).Once()
	m.logs.On("Create", ctx, mock.Anything).Return(nil).Once()

	result, err := svc.AssignEngineers(ctx, adminUser(), "t-1", AssignInput{
		EngineerIDs:   []string{"e-new"},
		ClearExisting: true,
	})

	require.NoError(t, err)
	require.NotNil(t, result.Ticket.EngineerID)
	assert.Equal(t, "e-new", *result.Ticket.EngineerID)
	m.links.AssertCalled(t, "DeleteByTicket", ctx, "t-1")
}

func TestAssignEngineersReassignIsIdempotent(t *testing.T) {
	svc, m := newAssignmentService()
	ctx := context.Background()
	ticket := &domain.Ticket{ID: "t-1", Status: domain.TicketStatusInProgress}
	existing := []domain.TicketEngineer{{EngineerID: "e-1", IsPrimary: true}}

	m.tickets.On("GetByID", ctx, "t-1").Return(ticket, nil)
	m.links.On("ListByTicket", ctx, "t-1").Return(existing, nil)
	m.users.On("GetEngineerByID", ctx, "e-1").Return(engineer("e-1", "bob"), nil)
	m.links.On("FindOrCreate", ctx, mock.Anything).Return(false, nil)
	m.tickets.On("Update", ctx, ticket).Return(nil).Once()
	m.logs.On("Create", ctx, mock.Anything).Return(nil).Once()

	result, err := svc.AssignEngineers(ctx, adminUser(), "t-1", AssignInput{EngineerIDs: []string{"e-1"}})

	require.NoError(t, err)
	assert.Equal(t, 1, result.AssignedCount)
	m.assignments.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	m.users.AssertNotCalled(t, "AdjustEngineerTicketCount", mock.Anything, mock.Anything, mock.Anything)
}

func TestAssignEngineersLogIncludesActorAndNote(t *testing.T) {
	svc, m := newAssignmentService()
	ctx := context.Background()
	ticket := &domain.Ticket{ID: "t-1", Status: domain.TicketStatusOpen}
	note := "handle with care"

	m.tickets.On("GetByID", ctx, "t-1").Return(ticket, nil)
	m.links.On("ListByTicket", ctx, "t-1").Return([]domain.TicketEngineer{}, nil).Once()
	m.users.On("GetEngineerByID", ctx, "e-1").Return(engineer("e-1", "bob"), nil)
	m.links.On("FindOrCreate", ctx, mock.Anything).Return(true, nil)
	m.assignments.On("Create", ctx, mock.Anything).Return(nil)
	m.users.On("AdjustEngineerTicketCount", ctx, "e-1", 1).Return(nil)
	m.links.On("ListByTicket", ctx, "t-1").Return([]domain.TicketEngineer{
		{EngineerID: "e-1", IsPrimary: true},
	}, nil).Once()
	m.tickets.On("Update", ctx, ticket).Return(nil).Once()

	var logged *domain.TicketLog
	m.logs.On("Create", ctx, mock.AnythingOfType("*domain.TicketLog")).
		Run(func(args mock.Arguments) {
			logged = args.Get(1).(*domain.TicketLog)
		}).Return(nil).Once()

	_, err := svc.AssignEngineers(ctx, adminUser(), "t-1", AssignInput{
		EngineerIDs: []string{"e-1"},
		Note:        &note,
	})

	require.NoError(t, err)
	require.NotNil(t, logged)
	assert.Equal(t, "Ticket assigned to bob", logged.Action)
	require.NotNil(t, logged.Details)
	assert.Equal(t, "Assigned by root. Note: handle with care", *logged.Details)
}

func TestListAssignmentsScopedToVisibleTickets(t *testing.T) {
	svc, m := newAssignmentService()
	ctx := context.Background()

	m.tickets.On("GetByID", ctx, "t-1").Return(&domain.Ticket{
		ID:       "t-1",
		ClientID: "someone-else",
	}, nil)

	_, err := svc.ListAssignments(ctx, clientUser(), "t-1")

	require.Error(t, err)
	domainErr := apperrors.ToDomainError(err)
	assert.Equal(t, "NOT_FOUND", domainErr.Code)
	m.assignments.AssertNotCalled(t, "ListByTicket", mock.Anything, mock.Anything)
}
