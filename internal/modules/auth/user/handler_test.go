package user

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/routepick/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeStatusStore struct {
	users map[string]*models.User
}

func (f *fakeStatusStore) FindByID(_ context.Context, id string) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (f *fakeStatusStore) UpdateStatus(_ context.Context, id string, status models.UserStatus) (bool, error) {
	u, ok := f.users[id]
	if ok {
		u.Status = status
	}
	return ok, nil
}

type fakeRevoker struct{ revoked []string }

func (f *fakeRevoker) RevokeAllByUserID(_ context.Context, userID string) (int64, error) {
	f.revoked = append(f.revoked, userID)
	return 2, nil
}

type fakeAgreements map[string][]models.UserAgreement

func (f fakeAgreements) ListByUserID(_ context.Context, userID string) ([]models.UserAgreement, error) {
	return f[userID], nil
}

func newStatusRouter(t *testing.T) (*gin.Engine, *fakeStatusStore, *fakeRevoker) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := &fakeStatusStore{users: map[string]*models.User{
		"u-1": {ID: "u-1", Email: "a@x.com", Status: models.UserStatusActive, UserType: models.UserTypeNormal},
	}}
	revoker := &fakeRevoker{}
	r := gin.New()
	agreedAt := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	consents := fakeAgreements{"u-1": {
		{UserID: "u-1", AgreementType: models.AgreementTerms, Agreed: true, AgreedAt: &agreedAt},
		{UserID: "u-1", AgreementType: models.AgreementMarketing, Agreed: false},
	}}
	NewHandler(store, revoker, consents, zaptest.NewLogger(t)).RegisterRoutes(r.Group("/admin"), func(c *gin.Context) { c.Next() })
	return r, store, revoker
}

func patch(r http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPatch, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestUpdateStatusSuspendsAndRevokes(t *testing.T) {
	r, store, revoker := newStatusRouter(t)

	rr := patch(r, "/admin/users/u-1/status", `{"status":"SUSPENDED"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Body.String(), `"status":"SUSPENDED"`)
	assert.Equal(t, models.UserStatusSuspended, store.users["u-1"].Status)
	assert.Equal(t, []string{"u-1"}, revoker.revoked)
}

func TestUpdateStatusReactivateKeepsTokens(t *testing.T) {
	r, _, revoker := newStatusRouter(t)
	rr := patch(r, "/admin/users/u-1/status", `{"status":"ACTIVE"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, revoker.revoked)
}

func TestUpdateStatusErrors(t *testing.T) {
	r, _, _ := newStatusRouter(t)

	assert.Equal(t, http.StatusNotFound, patch(r, "/admin/users/u-9/status", `{"status":"DELETED"}`).Code)
	assert.Equal(t, http.StatusBadRequest, patch(r, "/admin/users/u-1/status", `{"status":"BANNED"}`).Code)
	assert.Equal(t, http.StatusBadRequest, patch(r, "/admin/users/u-1/status", `{}`).Code)
}

func TestListAgreements(t *testing.T) {
	r, _, _ := newStatusRouter(t)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/admin/users/u-1/agreements", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[
		{"agreementType":"TERMS","agreed":true,"agreedAt":"2025-05-01T12:00:00Z"},
		{"agreementType":"MARKETING","agreed":false}
	]`, rr.Body.String())

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/admin/users/u-9/agreements", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
