package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/game1pro/accounts/internal/apperror"
	"github.com/game1pro/accounts/internal/model"
	"github.com/game1pro/accounts/internal/repository"
)

// compile-time check that *DB implements repository.AccountRepository
var _ repository.AccountRepository = (*DB)(nil)

// publicIDAttempts bounds the regenerate-on-collision loop. Two requests can
// both pass the pre-insert existence check with the same candidate and race
// to the UNIQUE index; the loser regenerates and retries instead of
// surfacing a creation error. Beyond this many collisions something is
// wrong and the error propagates.
const publicIDAttempts = 5

const accountColumns = `id, public_id, name, email, phone, google_subject, password_hash,
	coins_earned, coins_purchased, coins_withdrawable, coins_total,
	address, avatar_url, is_admin, reset_token_hash, reset_token_expires_at,
	created_at, updated_at`

// newPublicID generates a candidate 8-digit account number.
func newPublicID() string {
	return fmt.Sprintf("%08d", 10000000+rand.IntN(90000000))
}

// Create inserts a new account.
//
// The internal id (xid) and timestamps are assigned here. The public id is
// assigned lazily at this first save: generate, check, insert, and on a
// public_id collision regenerate and retry. An email collision is never
// retried; it means the identity already exists and surfaces as Conflict.
func (db *DB) Create(ctx context.Context, account *model.Account) error {
	now := time.Now().UTC()
	account.ID = xid.New().String()
	account.CreatedAt = now
	account.UpdatedAt = now

	for attempt := 0; attempt < publicIDAttempts; attempt++ {
		if account.PublicID == "" {
			candidate := newPublicID()
			var exists int
			err := db.conn.QueryRowContext(ctx,
				`SELECT COUNT(*) FROM accounts WHERE public_id = ?`, candidate,
			).Scan(&exists)
			if err != nil {
				return fmt.Errorf("sqlite: checking public id %s: %w", candidate, err)
			}
			if exists > 0 {
				continue
			}
			account.PublicID = candidate
		}

		_, err := db.conn.ExecContext(ctx,
			`INSERT INTO accounts (`+accountColumns+`)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			account.ID,
			account.PublicID,
			account.Name,
			nullString(account.Email),
			nullString(account.Phone),
			nullString(account.GoogleSubject),
			account.PasswordHash,
			account.Coins.Earned,
			account.Coins.Purchased,
			account.Coins.Withdrawable,
			account.Coins.Total,
			account.Address,
			account.AvatarURL,
			account.IsAdmin,
			nullString(account.ResetTokenHash),
			nullTime(account.ResetTokenExpiresAt),
			account.CreatedAt,
			account.UpdatedAt,
		)
		if err == nil {
			return nil
		}

		if isUniqueViolation(err, "accounts.email") {
			return apperror.Conflict("account", "email already registered")
		}
		if isUniqueViolation(err, "accounts.public_id") {
			// Lost the read-then-write race; regenerate and retry.
			account.PublicID = ""
			continue
		}
		return fmt.Errorf("sqlite: inserting account: %w", err)
	}

	return fmt.Errorf("sqlite: could not assign a unique public id after %d attempts", publicIDAttempts)
}

// GetByID retrieves an account by its internal id.
func (db *DB) GetByID(ctx context.Context, id string) (*model.Account, error) {
	return db.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
}

// GetByEmail retrieves an account by email.
func (db *DB) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	return db.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = ?`, email)
}

// GetByPhone retrieves an account by phone number. Phone is not unique at
// the store level; if duplicates exist this returns an arbitrary one of
// them, which is exactly the ambiguity the permissive phone policy accepts.
func (db *DB) GetByPhone(ctx context.Context, phone string) (*model.Account, error) {
	return db.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE phone = ?`, phone)
}

// GetByResetTokenDigest finds the account whose outstanding recovery token
// matches digest and has not expired at now.
func (db *DB) GetByResetTokenDigest(ctx context.Context, digest string, now time.Time) (*model.Account, error) {
	return db.getOne(ctx,
		`SELECT `+accountColumns+` FROM accounts
		 WHERE reset_token_hash = ? AND reset_token_expires_at > ?`,
		digest, now.UTC())
}

func (db *DB) getOne(ctx context.Context, query string, args ...any) (*model.Account, error) {
	var (
		a         model.Account
		email     sql.NullString
		phone     sql.NullString
		subject   sql.NullString
		resetHash sql.NullString
		resetExp  sql.NullTime
	)

	err := db.conn.QueryRowContext(ctx, query, args...).Scan(
		&a.ID,
		&a.PublicID,
		&a.Name,
		&email,
		&phone,
		&subject,
		&a.PasswordHash,
		&a.Coins.Earned,
		&a.Coins.Purchased,
		&a.Coins.Withdrawable,
		&a.Coins.Total,
		&a.Address,
		&a.AvatarURL,
		&a.IsAdmin,
		&resetHash,
		&resetExp,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("account", fmt.Sprint(args[0]))
		}
		return nil, fmt.Errorf("sqlite: getting account: %w", err)
	}

	a.Email = email.String
	a.Phone = phone.String
	a.GoogleSubject = subject.String
	a.ResetTokenHash = resetHash.String
	if resetExp.Valid {
		a.ResetTokenExpiresAt = resetExp.Time
	}

	return &a, nil
}

// Update persists the mutable profile, identity-binding, and balance fields.
func (db *DB) Update(ctx context.Context, account *model.Account) error {
	account.UpdatedAt = time.Now().UTC()

	res, err := db.conn.ExecContext(ctx,
		`UPDATE accounts SET
			name = ?, email = ?, phone = ?, google_subject = ?,
			coins_earned = ?, coins_purchased = ?, coins_withdrawable = ?, coins_total = ?,
			address = ?, avatar_url = ?, is_admin = ?, updated_at = ?
		 WHERE id = ?`,
		account.Name,
		nullString(account.Email),
		nullString(account.Phone),
		nullString(account.GoogleSubject),
		account.Coins.Earned,
		account.Coins.Purchased,
		account.Coins.Withdrawable,
		account.Coins.Total,
		account.Address,
		account.AvatarURL,
		account.IsAdmin,
		account.UpdatedAt,
		account.ID,
	)
	if err != nil {
		if isUniqueViolation(err, "accounts.email") {
			return apperror.Conflict("account", "email already registered")
		}
		return fmt.Errorf("sqlite: updating account %s: %w", account.ID, err)
	}

	return requireRow(res, account.ID)
}

// SetResetToken stores the recovery token digest and expiry together.
func (db *DB) SetResetToken(ctx context.Context, id, digest string, expiresAt time.Time) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE accounts SET reset_token_hash = ?, reset_token_expires_at = ?, updated_at = ?
		 WHERE id = ?`,
		digest, expiresAt.UTC(), time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: setting reset token for %s: %w", id, err)
	}
	return requireRow(res, id)
}

// ClearResetToken removes both recovery fields together.
func (db *DB) ClearResetToken(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE accounts SET reset_token_hash = NULL, reset_token_expires_at = NULL, updated_at = ?
		 WHERE id = ?`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: clearing reset token for %s: %w", id, err)
	}
	return requireRow(res, id)
}

// UpdatePassword replaces the password hash and clears the recovery fields
// in one write: a redeemed token must not survive the password it reset.
func (db *DB) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE accounts SET password_hash = ?,
			reset_token_hash = NULL, reset_token_expires_at = NULL, updated_at = ?
		 WHERE id = ?`,
		passwordHash, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating password for %s: %w", id, err)
	}
	return requireRow(res, id)
}

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("account", id)
	}
	return nil
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure on
// the given column. modernc.org/sqlite surfaces constraint violations as
// plain errors carrying the "UNIQUE constraint failed: <table>.<column>"
// message, so string matching is the available classification.
func isUniqueViolation(err error, column string) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed: "+column)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t.UTC(), Valid: !t.IsZero()}
}
