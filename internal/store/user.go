package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/larder/internal/model"
)

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

func scanUser(scanner interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	err := scanner.Scan(&u.ID, &u.ExternalID, &u.Email, &u.Name, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

const userCols = `id, external_id, email, name, created_at, updated_at`

func (s *UserStore) GetByID(ctx context.Context, id int64) (*model.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *UserStore) GetByExternalID(ctx context.Context, externalID string) (*model.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE external_id = ?`, externalID)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by external id: %w", err)
	}
	return u, nil
}

// Upsert provisions the user for an identity-provider subject. Email and
// name are refreshed when the token carries non-empty values.
func (s *UserStore) Upsert(ctx context.Context, externalID, email, name string) (*model.User, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (external_id, email, name) VALUES (?, ?, ?)
		 ON CONFLICT(external_id) DO UPDATE SET
		   email = CASE WHEN excluded.email != '' THEN excluded.email ELSE users.email END,
		   name  = CASE WHEN excluded.name  != '' THEN excluded.name  ELSE users.name  END`,
		externalID, email, name,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	return s.GetByExternalID(ctx, externalID)
}
