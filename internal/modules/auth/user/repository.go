package user

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/routepick/backend/internal/database"
	"github.com/routepick/backend/internal/models"
	"github.com/routepick/backend/internal/pkg/apperr"
	"gorm.io/gorm"
)

const mysqlDuplicateEntry = 1062

// IsDuplicateKey reports a unique index violation.
func IsDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var myErr *mysqlDriver.MySQLError
	return errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry
}

// HashToken is the lookup key stored next to a persisted token.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(raw)))
	return hex.EncodeToString(sum[:])
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Users persists accounts.
type Users struct {
	db  *gorm.DB
	now func() time.Time
}

func NewUsers(db *gorm.DB) *Users { return &Users{db: db, now: time.Now} }

func (r *Users) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.first(ctx, "email = ?", normalizeEmail(email))
}

func (r *Users) FindByID(ctx context.Context, id string) (*models.User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *Users) first(ctx context.Context, query string, args ...interface{}) (*models.User, error) {
	var u models.User
	if err := database.Conn(ctx, r.db).Where(query, args...).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (r *Users) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	err := database.Conn(ctx, r.db).Model(&models.User{}).
		Where("email = ?", normalizeEmail(email)).Count(&count).Error
	return count > 0, err
}

func (r *Users) Insert(ctx context.Context, u *models.User) error {
	u.Email = normalizeEmail(u.Email)
	u.Touch(r.now())
	if err := database.Conn(ctx, r.db).Create(u).Error; err != nil {
		if IsDuplicateKey(err) {
			return apperr.Duplicate(apperr.CodeDuplicateEmail, "email is already registered").Wrap(err)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *Users) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	return database.Conn(ctx, r.db).Model(&models.User{}).Where("id = ?", id).
		Updates(map[string]interface{}{"last_login_at": at, "updated_at": r.now()}).Error
}

// UpdateStatus reports false when no user has id.
func (r *Users) UpdateStatus(ctx context.Context, id string, status models.UserStatus) (bool, error) {
	res := database.Conn(ctx, r.db).Model(&models.User{}).Where("id = ?", id).
		Updates(map[string]interface{}{"status": status, "updated_at": r.now()})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Tokens persists issued JWTs so they can be revoked.
type Tokens struct {
	db  *gorm.DB
	now func() time.Time
}

func NewTokens(db *gorm.DB) *Tokens { return &Tokens{db: db, now: time.Now} }

func (r *Tokens) Insert(ctx context.Context, t *models.APIToken) error {
	t.TokenHash = HashToken(t.Token)
	t.Touch(r.now())
	if err := database.Conn(ctx, r.db).Create(t).Error; err != nil {
		return fmt.Errorf("insert token: %w", err)
	}
	return nil
}

// FindByToken returns nil when the raw token was never persisted.
func (r *Tokens) FindByToken(ctx context.Context, raw string) (*models.APIToken, error) {
	var t models.APIToken
	if err := database.Conn(ctx, r.db).Where("token_hash = ?", HashToken(raw)).First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

// Revoke marks one live token revoked. It reports false when the token was
// already revoked or does not exist.
func (r *Tokens) Revoke(ctx context.Context, id string) (bool, error) {
	res := database.Conn(ctx, r.db).Model(&models.APIToken{}).
		Where("id = ? AND revoked = ?", id, false).
		Updates(map[string]interface{}{"revoked": true, "updated_at": r.now()})
	return res.RowsAffected == 1, res.Error
}

// RevokeAllByUserID revokes every live token of the user.
func (r *Tokens) RevokeAllByUserID(ctx context.Context, userID string) (int64, error) {
	res := database.Conn(ctx, r.db).Model(&models.APIToken{}).
		Where("user_id = ? AND revoked = ?", userID, false).
		Updates(map[string]interface{}{"revoked": true, "updated_at": r.now()})
	return res.RowsAffected, res.Error
}

// DeleteExpired removes rows that expired before cutoff.
func (r *Tokens) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	res := database.Conn(ctx, r.db).Where("expires_at < ?", cutoff).Delete(&models.APIToken{})
	return res.RowsAffected, res.Error
}

// Agreements persists signup consent rows.
type Agreements struct {
	db *gorm.DB
}

func NewAgreements(db *gorm.DB) *Agreements { return &Agreements{db: db} }

func (r *Agreements) InsertAll(ctx context.Context, rows []models.UserAgreement) error {
	if len(rows) == 0 {
		return nil
	}
	if err := database.Conn(ctx, r.db).Create(&rows).Error; err != nil {
		return fmt.Errorf("insert agreements: %w", err)
	}
	return nil
}

func (r *Agreements) ListByUserID(ctx context.Context, userID string) ([]models.UserAgreement, error) {
	var rows []models.UserAgreement
	err := database.Conn(ctx, r.db).Where("user_id = ?", userID).Order("agreement_type").Find(&rows).Error
	return rows, err
}
