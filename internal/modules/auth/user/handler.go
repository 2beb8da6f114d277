package user

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/routepick/backend/internal/models"
	"github.com/routepick/backend/internal/pkg/apperr"
	"github.com/routepick/backend/internal/pkg/response"
	"go.uber.org/zap"
)

// StatusStore is the persistence needed to change an account status.
type StatusStore interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	UpdateStatus(ctx context.Context, id string, status models.UserStatus) (bool, error)
}

// TokenRevoker revokes every token of a user.
type TokenRevoker interface {
	RevokeAllByUserID(ctx context.Context, userID string) (int64, error)
}

type AgreementLister interface {
	ListByUserID(ctx context.Context, userID string) ([]models.UserAgreement, error)
}

// Handler serves admin user management.
type Handler struct {
	users      StatusStore
	tokens     TokenRevoker
	agreements AgreementLister
	logger     *zap.Logger
}

func NewHandler(users StatusStore, tokens TokenRevoker, agreements AgreementLister, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{users: users, tokens: tokens, agreements: agreements, logger: logger.Named("UserAdmin")}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, guard ...gin.HandlerFunc) {
	u := rg.Group("/users", guard...)
	u.PATCH("/:id/status", h.updateStatus)
	u.GET("/:id/agreements", h.listAgreements)
}

// GET /users/:id/agreements
func (h *Handler) listAgreements(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	u, err := h.users.FindByID(ctx, id)
	if err != nil {
		response.Error(c, apperr.Internal(err))
		return
	}
	if u == nil {
		response.Error(c, apperr.NotFound("user not found"))
		return
	}
	rows, err := h.agreements.ListByUserID(ctx, id)
	if err != nil {
		response.Error(c, apperr.Internal(err))
		return
	}
	out := make([]AgreementInfo, 0, len(rows))
	for _, row := range rows {
		out = append(out, AgreementInfo{Type: row.AgreementType, Agreed: row.Agreed, AgreedAt: row.AgreedAt})
	}
	response.OK(c, out)
}

func (h *Handler) updateStatus(c *gin.Context) {
	var dto UpdateStatusDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if !dto.Status.Valid() {
		response.BadRequest(c, "invalid status")
		return
	}
	u, err := h.ChangeStatus(c.Request.Context(), c.Param("id"), dto.Status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, ToInfo(u))
}

// ChangeStatus moves a user to status. Leaving ACTIVE revokes all of the
// user's tokens.
func (h *Handler) ChangeStatus(ctx context.Context, id string, status models.UserStatus) (*models.User, error) {
	u, err := h.users.FindByID(ctx, id)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if u == nil {
		return nil, apperr.NotFound("user not found")
	}
	if _, err := h.users.UpdateStatus(ctx, id, status); err != nil {
		return nil, apperr.Internal(err)
	}
	u.Status = status

	if status != models.UserStatusActive {
		n, err := h.tokens.RevokeAllByUserID(ctx, id)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		h.logger.Info("user deactivated", zap.String("user", id), zap.String("status", string(status)), zap.Int64("revoked", n))
	}
	return u, nil
}
