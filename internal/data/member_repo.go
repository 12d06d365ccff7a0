package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clanhall/gatekeeper/internal/data/pgxutil"
	domainauth "github.com/clanhall/gatekeeper/internal/domain/auth"
	apperrors "github.com/clanhall/gatekeeper/internal/errors"
	"github.com/clanhall/gatekeeper/internal/ports"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500

	profileColumns = `account_id, external_id, display_name, avatar_handle, rank, is_admin,
		next_rank_deadline, created_at, updated_at`
)

// MemberRepo stores accounts and profiles in Postgres.
type MemberRepo struct {
	DB    *sql.DB
	Clock TimeProvider
}

var _ ports.MemberStore = (*MemberRepo)(nil)

// NewMemberRepo creates a new MemberRepo.
func NewMemberRepo(db *sql.DB) *MemberRepo {
	return &MemberRepo{DB: db, Clock: RealTimeProvider{}}
}

func (r *MemberRepo) now() time.Time {
	if r.Clock == nil {
		return time.Now().UTC()
	}
	return r.Clock.Now()
}

// CommitResolution creates or gets the account and upserts its profile in one transaction.
// The profile's next_rank_deadline is written on insert only.
func (r *MemberRepo) CommitResolution(ctx context.Context, in domainauth.ProfileInput) (domainauth.Account, domainauth.Profile, error) {
	if in.ExternalID == "" {
		return domainauth.Account{}, domainauth.Profile{}, ErrExternalIDRequired
	}
	if in.Assignment.Rank != domainauth.RankNone && !in.Assignment.Rank.Valid() {
		return domainauth.Account{}, domainauth.Profile{}, fmt.Errorf("%w: %q", ErrInvalidRank, in.Assignment.Rank)
	}

	var (
		acc     domainauth.Account
		profile domainauth.Profile
	)
	err := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{Fn: func(tx *sql.Tx) error {
		var txErr error
		acc, txErr = r.createOrGetAccount(ctx, tx, in.ExternalID)
		if txErr != nil {
			return txErr
		}
		profile, txErr = r.upsertProfile(ctx, tx, acc, in)
		return txErr
	}})
	if err != nil {
		return domainauth.Account{}, domainauth.Profile{}, apperrors.MapDBError(err)
	}
	return acc, profile, nil
}

// createOrGetAccount inserts the account unless one with the same external_id exists,
// in which case the existing row is returned.
func (r *MemberRepo) createOrGetAccount(ctx context.Context, tx *sql.Tx, externalID string) (domainauth.Account, error) {
	var acc domainauth.Account
	err := tx.QueryRowContext(ctx, `
		INSERT INTO accounts (id, external_id, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (external_id) DO NOTHING
		RETURNING id, external_id, created_at`,
		uuid.NewString(), externalID, r.now(),
	).Scan(&acc.ID, &acc.ExternalID, &acc.CreatedAt)
	if err == nil {
		return acc, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return acc, fmt.Errorf("insert account: %w", err)
	}

	err = tx.QueryRowContext(ctx,
		`SELECT id, external_id, created_at FROM accounts WHERE external_id = $1`, externalID,
	).Scan(&acc.ID, &acc.ExternalID, &acc.CreatedAt)
	if err != nil {
		return acc, fmt.Errorf("select account: %w", err)
	}
	return acc, nil
}

func (r *MemberRepo) upsertProfile(ctx context.Context, tx *sql.Tx, acc domainauth.Account, in domainauth.ProfileInput) (domainauth.Profile, error) {
	now := r.now()
	var deadline any
	if !in.NextRankDeadline.IsZero() {
		deadline = in.NextRankDeadline
	}
	row := tx.QueryRowContext(ctx, `
		INSERT INTO profiles (account_id, external_id, display_name, avatar_handle, rank, is_admin,
			next_rank_deadline, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		ON CONFLICT (account_id) DO UPDATE SET
			display_name  = EXCLUDED.display_name,
			avatar_handle = EXCLUDED.avatar_handle,
			rank          = EXCLUDED.rank,
			is_admin      = EXCLUDED.is_admin,
			updated_at    = EXCLUDED.updated_at
		RETURNING `+profileColumns,
		acc.ID, acc.ExternalID, in.DisplayName, nullString(in.AvatarHandle),
		nullString(string(in.Assignment.Rank)), in.Assignment.IsAdmin, deadline, now,
	)
	p, err := scanProfile(row)
	if err != nil {
		return p, fmt.Errorf("upsert profile: %w", err)
	}
	return p, nil
}

// GetAccount returns the account by internal ID.
func (r *MemberRepo) GetAccount(ctx context.Context, accountID string) (domainauth.Account, error) {
	if accountID == "" {
		return domainauth.Account{}, ErrAccountIDRequired
	}
	var acc domainauth.Account
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, external_id, created_at FROM accounts WHERE id = $1`, accountID,
	).Scan(&acc.ID, &acc.ExternalID, &acc.CreatedAt)
	if err != nil {
		return acc, notFoundOr(err, "account %s not found", accountID)
	}
	return acc, nil
}

// GetProfile returns the profile by account ID.
func (r *MemberRepo) GetProfile(ctx context.Context, accountID string) (domainauth.Profile, error) {
	if accountID == "" {
		return domainauth.Profile{}, ErrAccountIDRequired
	}
	p, err := scanProfile(r.DB.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE account_id = $1`, accountID))
	if err != nil {
		return p, notFoundOr(err, "profile for account %s not found", accountID)
	}
	return p, nil
}

// GetProfileByExternalID returns the profile by Discord ID.
func (r *MemberRepo) GetProfileByExternalID(ctx context.Context, externalID string) (domainauth.Profile, error) {
	if externalID == "" {
		return domainauth.Profile{}, ErrExternalIDRequired
	}
	p, err := scanProfile(r.DB.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE external_id = $1`, externalID))
	if err != nil {
		return p, notFoundOr(err, "profile for external id %s not found", externalID)
	}
	return p, nil
}

// UpdateRank overwrites rank and admin flag; a RankNone assignment stores NULL.
func (r *MemberRepo) UpdateRank(ctx context.Context, accountID string, a domainauth.RankAssignment) (domainauth.Profile, error) {
	if accountID == "" {
		return domainauth.Profile{}, ErrAccountIDRequired
	}
	if a.Rank != domainauth.RankNone && !a.Rank.Valid() {
		return domainauth.Profile{}, fmt.Errorf("%w: %q", ErrInvalidRank, a.Rank)
	}
	p, err := scanProfile(r.DB.QueryRowContext(ctx, `
		UPDATE profiles SET rank = $2, is_admin = $3, updated_at = $4
		WHERE account_id = $1
		RETURNING `+profileColumns,
		accountID, nullString(string(a.Rank)), a.IsAdmin, r.now()))
	if err != nil {
		return p, notFoundOr(err, "profile for account %s not found", accountID)
	}
	return p, nil
}

// ListProfiles returns profiles ordered by display name.
func (r *MemberRepo) ListProfiles(ctx context.Context, opts ports.ListProfilesOptions) ([]domainauth.Profile, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	limit = min(limit, maxListLimit)
	offset := max(opts.Offset, 0)

	query := `SELECT ` + profileColumns + ` FROM profiles`
	if opts.OnlyAccess {
		query += ` WHERE rank IS NOT NULL OR is_admin`
	}
	query += ` ORDER BY lower(display_name), account_id LIMIT $1 OFFSET $2`

	rows, err := r.DB.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("list profiles: %w", err))
	}
	defer rows.Close()

	profiles := make([]domainauth.Profile, 0, limit)
	for rows.Next() {
		p, scanErr := scanProfile(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan profile: %w", scanErr)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("iterate profiles: %w", err))
	}
	return profiles, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (domainauth.Profile, error) {
	var (
		p        domainauth.Profile
		avatar   sql.NullString
		rank     sql.NullString
		deadline sql.NullTime
	)
	err := row.Scan(&p.AccountID, &p.ExternalID, &p.DisplayName, &avatar, &rank, &p.IsAdmin,
		&deadline, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return domainauth.Profile{}, err
	}
	p.AvatarHandle = avatar.String
	p.Rank = domainauth.ParseRank(rank.String)
	if deadline.Valid {
		t := deadline.Time
		p.NextRankDeadline = &t
	}
	return p, nil
}

func notFoundOr(err error, format string, args ...any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.Wrapf(err, apperrors.ErrCodeNotFound, format, args...)
	}
	return apperrors.MapDBError(err)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
