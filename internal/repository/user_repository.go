package repository

import (
	"context"

	"gitlab.com/sgtreasury/tally/internal/database"
	"gitlab.com/sgtreasury/tally/internal/models"
)

const userColumns = `id, first_name, last_name, email, role, student_id, phone,
	perm_line, perm_city, perm_state, perm_zip,
	local_line, local_city, local_state, local_zip,
	created_at, updated_at`

// UserRepository handles user database operations.
type UserRepository struct {
	db database.PGXDB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db database.PGXDB) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(s scanner) (*models.User, error) {
	var u models.User
	err := s.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.Role, &u.StudentID, &u.Phone,
		&u.PermanentAddress.Line, &u.PermanentAddress.City, &u.PermanentAddress.State, &u.PermanentAddress.Zip,
		&u.LocalAddress.Line, &u.LocalAddress.City, &u.LocalAddress.State, &u.LocalAddress.Zip,
		&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Upsert creates the user on first sign-in. An existing row keeps its
// profile; only the email from the identity provider is refreshed.
func (r *UserRepository) Upsert(ctx context.Context, user *models.User) (*models.User, error) {
	if user.Role == "" {
		user.Role = models.UserRoleMember
	}
	u, err := scanUser(r.db.QueryRow(ctx, `
		INSERT INTO users (id, first_name, last_name, email, role, student_id, phone,
			perm_line, perm_city, perm_state, perm_zip,
			local_line, local_city, local_state, local_zip)
		VALUES ($1, $2, $3, LOWER($4), $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			updated_at = NOW()
		RETURNING `+userColumns,
		user.ID, user.FirstName, user.LastName, user.Email, user.Role, user.StudentID, user.Phone,
		user.PermanentAddress.Line, user.PermanentAddress.City, user.PermanentAddress.State, user.PermanentAddress.Zip,
		user.LocalAddress.Line, user.LocalAddress.City, user.LocalAddress.State, user.LocalAddress.Zip,
	))
	if err != nil {
		return nil, wrap("upsert user", err)
	}
	return u, nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, wrap("get user", err)
	}
	return u, nil
}

// GetByEmail retrieves a user by email (case-insensitive).
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`, email))
	if err != nil {
		return nil, wrap("get user by email", err)
	}
	return u, nil
}

// List retrieves all users, newest first.
func (r *UserRepository) List(ctx context.Context) ([]models.User, error) {
	rows, err := r.db.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, wrap("query users", err)
	}
	return collect(rows, "user", scanUser)
}

// Update writes every mutable profile column of user.
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	err := r.db.QueryRow(ctx, `
		UPDATE users SET
			first_name = $2, last_name = $3, student_id = $4, phone = $5,
			perm_line = $6, perm_city = $7, perm_state = $8, perm_zip = $9,
			local_line = $10, local_city = $11, local_state = $12, local_zip = $13,
			role = $14, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`, user.ID, user.FirstName, user.LastName, user.StudentID, user.Phone,
		user.PermanentAddress.Line, user.PermanentAddress.City, user.PermanentAddress.State, user.PermanentAddress.Zip,
		user.LocalAddress.Line, user.LocalAddress.City, user.LocalAddress.State, user.LocalAddress.Zip,
		user.Role,
	).Scan(&user.UpdatedAt)
	if err != nil {
		return wrap("update user", err)
	}
	return nil
}
