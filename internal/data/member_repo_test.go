package data

import (
	"context"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/clanhall/gatekeeper/internal/domain/auth"
	apperrors "github.com/clanhall/gatekeeper/internal/errors"
	"github.com/clanhall/gatekeeper/internal/ports"
	"github.com/clanhall/gatekeeper/internal/testutil"
)

var profileCols = []string{
	"account_id", "external_id", "display_name", "avatar_handle", "rank", "is_admin",
	"next_rank_deadline", "created_at", "updated_at",
}

func newMockRepo(t *testing.T) (*MemberRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	repo := NewMemberRepo(db)
	repo.Clock = NewFixedTimeProvider(testutil.TestTime())
	return repo, mock
}

func profileRow(accountID, externalID, rank string, isAdmin bool, deadline driver.Value) *sqlmock.Rows {
	now := testutil.TestTime()
	var rankVal driver.Value
	if rank != "" {
		rankVal = rank
	}
	return sqlmock.NewRows(profileCols).
		AddRow(accountID, externalID, "Raider", "a1b2", rankVal, isAdmin, deadline, now, now)
}

func TestMemberRepo_CommitResolution_NewAccount(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := testutil.TestTime()
	in := testutil.NewProfileInput("111").WithDisplayName("Raider").WithAvatar("a1b2").WithRank(domainauth.RankMain).Build()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO accounts`).
		WithArgs(sqlmock.AnyArg(), "111", now).
		WillReturnRows(sqlmock.NewRows([]string{"id", "external_id", "created_at"}).AddRow("acc-1", "111", now))
	mock.ExpectQuery(`INSERT INTO profiles`).
		WithArgs("acc-1", "111", "Raider", "a1b2", "Main", false, in.NextRankDeadline, now).
		WillReturnRows(profileRow("acc-1", "111", "Main", false, in.NextRankDeadline))
	mock.ExpectCommit()

	acc, p, err := repo.CommitResolution(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "acc-1", acc.ID)
	assert.Equal(t, domainauth.RankMain, p.Rank)
	require.NotNil(t, p.NextRankDeadline)
	assert.True(t, p.NextRankDeadline.Equal(in.NextRankDeadline))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMemberRepo_CommitResolution_ExistingAccount(t *testing.T) {
	repo, mock := newMockRepo(t)
	created := testutil.TestTime().Add(-48 * time.Hour)
	originalDeadline := created.Add(30 * 24 * time.Hour)
	in := testutil.NewProfileInput("111").WithRank(domainauth.RankHighStaff).Build()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO accounts`).
		WithArgs(sqlmock.AnyArg(), "111", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "external_id", "created_at"}))
	mock.ExpectQuery(`SELECT id, external_id, created_at FROM accounts WHERE external_id`).
		WithArgs("111").
		WillReturnRows(sqlmock.NewRows([]string{"id", "external_id", "created_at"}).AddRow("acc-1", "111", created))
	mock.ExpectQuery(`ON CONFLICT \(account_id\) DO UPDATE`).
		WithArgs("acc-1", "111", sqlmock.AnyArg(), nil, "HighStaff", true, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(profileRow("acc-1", "111", "HighStaff", true, originalDeadline))
	mock.ExpectCommit()

	acc, p, err := repo.CommitResolution(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, created, acc.CreatedAt)
	assert.True(t, p.IsAdmin)
	require.NotNil(t, p.NextRankDeadline)
	assert.True(t, p.NextRankDeadline.Equal(originalDeadline), "deadline must keep its original value")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMemberRepo_CommitResolution_UniqueConflict(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO accounts`).WillReturnError(&pgconn.PgError{
		Code:           pgerrcode.UniqueViolation,
		TableName:      "accounts",
		ConstraintName: "accounts_external_id_key",
	})
	mock.ExpectRollback()

	_, _, err := repo.CommitResolution(context.Background(), testutil.NewProfileInput("111").Build())
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))
	assert.Equal(t, "external_id", apperrors.GetField(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMemberRepo_CommitResolution_Validation(t *testing.T) {
	repo, _ := newMockRepo(t)

	_, _, err := repo.CommitResolution(context.Background(), domainauth.ProfileInput{})
	assert.ErrorIs(t, err, ErrExternalIDRequired)

	in := testutil.NewProfileInput("1").Build()
	in.Assignment.Rank = "Legend"
	_, _, err = repo.CommitResolution(context.Background(), in)
	assert.ErrorIs(t, err, ErrInvalidRank)
}

func TestMemberRepo_GetProfile(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`FROM profiles WHERE account_id`).WithArgs("acc-1").
		WillReturnRows(profileRow("acc-1", "111", "", false, nil))
	mock.ExpectQuery(`FROM profiles WHERE account_id`).WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(profileCols))

	p, err := repo.GetProfile(context.Background(), "acc-1")
	require.NoError(t, err)
	assert.Equal(t, domainauth.RankNone, p.Rank)
	assert.Nil(t, p.NextRankDeadline)
	assert.False(t, p.HasAccess())

	_, err = repo.GetProfile(context.Background(), "missing")
	assert.True(t, apperrors.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMemberRepo_GetAccountAndByExternalID(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := testutil.TestTime()

	mock.ExpectQuery(`FROM accounts WHERE id`).WithArgs("acc-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "external_id", "created_at"}).AddRow("acc-1", "111", now))
	mock.ExpectQuery(`FROM profiles WHERE external_id`).WithArgs("111").
		WillReturnRows(profileRow("acc-1", "111", "Test", false, nil))

	acc, err := repo.GetAccount(context.Background(), "acc-1")
	require.NoError(t, err)
	assert.Equal(t, "111", acc.ExternalID)

	p, err := repo.GetProfileByExternalID(context.Background(), "111")
	require.NoError(t, err)
	assert.Equal(t, domainauth.RankTest, p.Rank)
	assert.NoError(t, mock.ExpectationsWereMet())

	_, err = repo.GetAccount(context.Background(), "")
	assert.ErrorIs(t, err, ErrAccountIDRequired)
	_, err = repo.GetProfileByExternalID(context.Background(), "")
	assert.ErrorIs(t, err, ErrExternalIDRequired)
}

func TestMemberRepo_UpdateRank_ClearsToNull(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`UPDATE profiles SET rank`).
		WithArgs("acc-1", nil, false, testutil.TestTime()).
		WillReturnRows(profileRow("acc-1", "111", "", false, nil))

	p, err := repo.UpdateRank(context.Background(), "acc-1", domainauth.RankAssignment{})
	require.NoError(t, err)
	assert.Equal(t, domainauth.RankNone, p.Rank)
	assert.False(t, p.IsAdmin)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMemberRepo_UpdateRank_NotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`UPDATE profiles SET rank`).
		WillReturnRows(sqlmock.NewRows(profileCols))

	_, err := repo.UpdateRank(context.Background(), "gone", domainauth.RankAssignment{Rank: domainauth.RankMain})
	assert.True(t, apperrors.IsNotFound(err))
}

func TestMemberRepo_ListProfiles(t *testing.T) {
	repo, mock := newMockRepo(t)

	rows := sqlmock.NewRows(profileCols).
		AddRow("acc-1", "111", "Alpha", nil, "Main", false, nil, testutil.TestTime(), testutil.TestTime()).
		AddRow("acc-2", "222", "beta", nil, "HighStaff", true, nil, testutil.TestTime(), testutil.TestTime())
	mock.ExpectQuery(`WHERE rank IS NOT NULL OR is_admin ORDER BY`).
		WithArgs(int64(maxListLimit), int64(0)).
		WillReturnRows(rows)

	got, err := repo.ListProfiles(context.Background(), ports.ListProfilesOptions{Limit: 10_000, Offset: -5, OnlyAccess: true})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Alpha", got[0].DisplayName)
	assert.True(t, got[1].IsAdmin)
	assert.NoError(t, mock.ExpectationsWereMet())
}
