package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// UserRepository defines persistence access for users of every role.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetEngineerByID(ctx context.Context, id string) (*domain.User, error)
	ListEngineers(ctx context.Context) ([]domain.User, error)
	CreateEngineerProfile(ctx context.Context, profile *domain.EngineerProfile) error
	GetEngineerProfile(ctx context.Context, userID string) (*domain.EngineerProfile, error)
	AdjustEngineerTicketCount(ctx context.Context, userID string, delta int) error
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

const userColumns = `id, username, email, password_hash, first_name, last_name, role,
               phone, department, profile_picture_key, created_at, updated_at`

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (username, email, password_hash, first_name, last_name, role, phone, department, profile_picture_key)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		user.Role,
		user.Phone,
		user.Department,
		user.ProfilePictureKey,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	const query = `
        UPDATE users SET username=$1, email=$2, password_hash=$3, first_name=$4, last_name=$5,
            phone=$6, department=$7, profile_picture_key=$8, updated_at=NOW()
        WHERE id=$9`

	cmd, err := r.pool.Exec(ctx, query,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		user.Phone,
		user.Department,
		user.ProfilePictureKey,
		user.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.fetchSingle(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id)
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.fetchSingle(ctx, `SELECT `+userColumns+` FROM users WHERE username=$1`, username)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.fetchSingle(ctx, `SELECT `+userColumns+` FROM users WHERE email=$1`, email)
}

// GetEngineerByID resolves a user only when it carries the engineer role.
func (r *userRepository) GetEngineerByID(ctx context.Context, id string) (*domain.User, error) {
	return r.fetchSingle(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1 AND role=$2`, id, domain.RoleEngineer)
}

func (r *userRepository) ListEngineers(ctx context.Context) ([]domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE role=$1 ORDER BY username ASC`
	rows, err := r.pool.Query(ctx, query, domain.RoleEngineer)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.User
	for rows.Next() {
		var user domain.User
		if err := scanUser(rows, &user); err != nil {
			return nil, err
		}
		result = append(result, user)
	}
	return result, rows.Err()
}

func (r *userRepository) CreateEngineerProfile(ctx context.Context, profile *domain.EngineerProfile) error {
	const query = `
        INSERT INTO engineer_profiles (user_id, specialization, years_of_experience, is_available, current_tickets_count)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id`
	return r.pool.QueryRow(ctx, query,
		profile.UserID,
		profile.Specialization,
		profile.YearsOfExperience,
		profile.IsAvailable,
		profile.CurrentTicketsCount,
	).Scan(&profile.ID)
}

func (r *userRepository) GetEngineerProfile(ctx context.Context, userID string) (*domain.EngineerProfile, error) {
	const query = `
        SELECT id, user_id, specialization, years_of_experience, is_available, current_tickets_count
        FROM engineer_profiles WHERE user_id=$1`
	var profile domain.EngineerProfile
	if err := r.pool.QueryRow(ctx, query, userID).Scan(
		&profile.ID,
		&profile.UserID,
		&profile.Specialization,
		&profile.YearsOfExperience,
		&profile.IsAvailable,
		&profile.CurrentTicketsCount,
	); err != nil {
		return nil, err
	}
	return &profile, nil
}

// AdjustEngineerTicketCount shifts the live assigned-ticket counter,
// clamping at zero.
func (r *userRepository) AdjustEngineerTicketCount(ctx context.Context, userID string, delta int) error {
	const query = `
        UPDATE engineer_profiles
        SET current_tickets_count = GREATEST(current_tickets_count + $1, 0)
        WHERE user_id=$2`
	_, err := r.pool.Exec(ctx, query, delta, userID)
	return err
}

func (r *userRepository) fetchSingle(ctx context.Context, query string, args ...any) (*domain.User, error) {
	var user domain.User
	if err := scanUser(r.pool.QueryRow(ctx, query, args...), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func scanUser(row pgx.Row, user *domain.User) error {
	return row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.FirstName,
		&user.LastName,
		&user.Role,
		&user.Phone,
		&user.Department,
		&user.ProfilePictureKey,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
}
