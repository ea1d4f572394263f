package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/dukerupert/larder/internal/model"
)

var (
	ErrInviteNotFound = errors.New("invite not found")
	ErrInviteExpired  = errors.New("invite has expired")
	ErrInviteUsed     = errors.New("invite has already been used")
	ErrAlreadyMember  = errors.New("already a member of this household")
)

const (
	InviteTTL        = 7 * 24 * time.Hour
	inviteCodeLength = 8
	// No 0/O or 1/I so codes survive being read aloud.
	inviteAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

type InviteStore struct {
	db *sql.DB
}

func NewInviteStore(db *sql.DB) *InviteStore {
	return &InviteStore{db: db}
}

func scanInvite(scanner interface{ Scan(...any) error }) (*model.Invite, error) {
	var inv model.Invite
	var createdBy, usedBy sql.NullInt64
	var usedAt sql.NullTime

	err := scanner.Scan(
		&inv.ID, &inv.HouseholdID, &inv.Code, &createdBy,
		&inv.ExpiresAt, &usedAt, &usedBy, &inv.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if createdBy.Valid {
		inv.CreatedBy = &createdBy.Int64
	}
	if usedAt.Valid {
		inv.UsedAt = &usedAt.Time
	}
	if usedBy.Valid {
		inv.UsedBy = &usedBy.Int64
	}
	return &inv, nil
}

const inviteCols = `id, household_id, code, created_by, expires_at, used_at, used_by, created_at`

func generateInviteCode() (string, error) {
	base := big.NewInt(int64(len(inviteAlphabet)))
	var sb strings.Builder
	for range inviteCodeLength {
		n, err := rand.Int(rand.Reader, base)
		if err != nil {
			return "", fmt.Errorf("generate invite code: %w", err)
		}
		sb.WriteByte(inviteAlphabet[n.Int64()])
	}
	return sb.String(), nil
}

// NormalizeInviteCode uppercases and strips spaces and dashes.
func NormalizeInviteCode(code string) string {
	code = strings.ToUpper(code)
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' {
			return -1
		}
		return r
	}, code)
}

// Create issues a new single-use code for the household.
func (s *InviteStore) Create(ctx context.Context, householdID, createdBy int64, now time.Time) (*model.Invite, error) {
	expiresAt := now.UTC().Add(InviteTTL)

	const attempts = 5
	for i := 0; i < attempts; i++ {
		code, err := generateInviteCode()
		if err != nil {
			return nil, err
		}
		result, err := s.db.ExecContext(ctx,
			`INSERT INTO invites (household_id, code, created_by, expires_at, created_at) VALUES (?, ?, ?, ?, ?)`,
			householdID, code, createdBy, expiresAt, now.UTC(),
		)
		if err != nil {
			if strings.Contains(err.Error(), "UNIQUE") {
				continue
			}
			return nil, fmt.Errorf("insert invite: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("last insert id: %w", err)
		}
		row := s.db.QueryRowContext(ctx, `SELECT `+inviteCols+` FROM invites WHERE id = ?`, id)
		return scanInvite(row)
	}
	return nil, fmt.Errorf("insert invite: no unique code after %d attempts", attempts)
}

func (s *InviteStore) GetByCode(ctx context.Context, code string) (*model.Invite, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+inviteCols+` FROM invites WHERE code = ?`, NormalizeInviteCode(code))
	inv, err := scanInvite(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get invite by code: %w", err)
	}
	return inv, nil
}

// Accept redeems code for userID, adding them to the household as a member.
// It returns the household id joined.
func (s *InviteStore) Accept(ctx context.Context, code string, userID int64, now time.Time) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `SELECT `+inviteCols+` FROM invites WHERE code = ?`, NormalizeInviteCode(code))
	inv, err := scanInvite(row)
	if err == sql.ErrNoRows {
		return 0, ErrInviteNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("get invite: %w", err)
	}
	if inv.UsedAt != nil {
		return 0, ErrInviteUsed
	}
	if !now.Before(inv.ExpiresAt) {
		return 0, ErrInviteExpired
	}

	var existing int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM household_members WHERE household_id = ? AND user_id = ?`,
		inv.HouseholdID, userID,
	).Scan(&existing); err != nil {
		return 0, fmt.Errorf("check membership: %w", err)
	}
	if existing > 0 {
		return 0, ErrAlreadyMember
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO household_members (household_id, user_id, role) VALUES (?, ?, ?)`,
		inv.HouseholdID, userID, model.RoleMember,
	); err != nil {
		return 0, fmt.Errorf("add member: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE invites SET used_at = ?, used_by = ? WHERE id = ?`,
		now.UTC(), userID, inv.ID,
	); err != nil {
		return 0, fmt.Errorf("mark invite used: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return inv.HouseholdID, nil
}
