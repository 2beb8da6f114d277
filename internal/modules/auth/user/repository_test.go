package user

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/routepick/backend/internal/database"
	"github.com/routepick/backend/internal/models"
	"github.com/routepick/backend/internal/pkg/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestIsDuplicateKey(t *testing.T) {
	assert.True(t, IsDuplicateKey(&mysqlDriver.MySQLError{Number: 1062, Message: "Duplicate entry"}))
	assert.True(t, IsDuplicateKey(fmt.Errorf("wrapped: %w", gorm.ErrDuplicatedKey)))
	assert.False(t, IsDuplicateKey(&mysqlDriver.MySQLError{Number: 1452}))
	assert.False(t, IsDuplicateKey(errors.New("boom")))
}

func TestHashTokenIgnoresSurroundingSpace(t *testing.T) {
	assert.Equal(t, HashToken("abc"), HashToken(" abc\n"))
	assert.Len(t, HashToken("abc"), 64)
	assert.NotEqual(t, HashToken("abc"), HashToken("abd"))
}

// openTestDB connects to ROUTEPICK_TEST_DSN; the repository tests are
// skipped without a MySQL instance.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("ROUTEPICK_TEST_DSN")
	if dsn == "" {
		t.Skip("ROUTEPICK_TEST_DSN not set")
	}
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

func TestUsersRepository(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	users := NewUsers(db)
	email := uuid.NewString() + "@Example.com"

	u := &models.User{Email: email, PasswordHash: "x", UserName: "climber", UserType: models.UserTypeNormal, Status: models.UserStatusActive}
	require.NoError(t, users.Insert(ctx, u))
	assert.NotEmpty(t, u.ID)

	exists, err := users.ExistsByEmail(ctx, email)
	require.NoError(t, err)
	assert.True(t, exists)

	dup := &models.User{Email: email, PasswordHash: "y", UserType: models.UserTypeNormal, Status: models.UserStatusActive}
	err = users.Insert(ctx, dup)
	assert.ErrorIs(t, err, apperr.Duplicate(apperr.CodeDuplicateEmail, ""))

	found, err := users.FindByEmail(ctx, email)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, u.ID, found.ID)

	ok, err := users.UpdateStatus(ctx, u.ID, models.UserStatusSuspended)
	require.NoError(t, err)
	assert.True(t, ok)

	missing, err := users.FindByID(ctx, uuid.NewString())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestTokensRepository(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	tokens := NewTokens(db)
	userID := uuid.NewString()
	now := time.Now()

	live := &models.APIToken{UserID: userID, Token: "live-" + uuid.NewString(), TokenType: models.TokenTypeAccess, ExpiresAt: now.Add(time.Hour)}
	old := &models.APIToken{UserID: userID, Token: "old-" + uuid.NewString(), TokenType: models.TokenTypeRefresh, ExpiresAt: now.Add(-time.Hour)}
	require.NoError(t, tokens.Insert(ctx, live))
	require.NoError(t, tokens.Insert(ctx, old))

	got, err := tokens.FindByToken(ctx, live.Token)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.False(t, got.Revoked)

	ok, err := tokens.Revoke(ctx, got.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = tokens.Revoke(ctx, got.ID)
	require.NoError(t, err)
	assert.False(t, ok, "a revoked token cannot be revoked again")

	n, err := tokens.RevokeAllByUserID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err = tokens.FindByToken(ctx, live.Token)
	require.NoError(t, err)
	assert.True(t, got.Revoked)

	deleted, err := tokens.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, deleted, int64(1))

	got, err = tokens.FindByToken(ctx, old.Token)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestAgreementsInsertAllInTransaction(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	tx := database.NewTransactor(db)
	agreements := NewAgreements(db)
	userID := uuid.NewString()
	now := time.Now()

	rollback := errors.New("rollback")
	err := tx.InTx(ctx, func(ctx context.Context) error {
		require.NoError(t, agreements.InsertAll(ctx, []models.UserAgreement{
			models.NewAgreement(userID, models.AgreementTerms, true, now),
		}))
		return rollback
	})
	assert.ErrorIs(t, err, rollback)

	rows, err := agreements.ListByUserID(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, rows)

	require.NoError(t, agreements.InsertAll(ctx, []models.UserAgreement{
		models.NewAgreement(userID, models.AgreementTerms, true, now),
		models.NewAgreement(userID, models.AgreementMarketing, false, now),
	}))
	rows, err = agreements.ListByUserID(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}
