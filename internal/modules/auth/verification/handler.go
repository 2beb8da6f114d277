package verification

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/routepick/backend/internal/middleware"
	"github.com/routepick/backend/internal/pkg/response"
)

// Limiter refuses abusive code requests.
type Limiter interface {
	Allow(ctx context.Context, ip, email string) error
}

type Handler struct {
	svc     *Service
	limiter Limiter
}

func NewHandler(svc *Service, limiter Limiter) *Handler {
	return &Handler{svc: svc, limiter: limiter}
}

// RegisterRoutes mounts the verification endpoints. verifyGuard runs in
// front of verify-code only.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, verifyGuard ...gin.HandlerFunc) {
	a := rg.Group("/auth")

	a.POST("/check-email", h.checkEmail)
	a.POST("/send-code", h.sendCode)
	a.POST("/verify-code", append(verifyGuard, h.verifyCode)...)
}

func (h *Handler) checkEmail(c *gin.Context) {
	var dto EmailDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	res, err := h.svc.CheckEmailAvailability(c.Request.Context(), dto.Email)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, res)
}

func (h *Handler) sendCode(c *gin.Context) {
	var dto EmailDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if h.limiter != nil {
		if err := h.limiter.Allow(c.Request.Context(), middleware.ClientIP(c), dto.Email); err != nil {
			response.TooManyRequests(c, err, 0)
			return
		}
	}
	res, err := h.svc.SendVerificationCode(c.Request.Context(), dto.Email)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, res)
}

func (h *Handler) verifyCode(c *gin.Context) {
	var dto VerifyCodeDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	res, err := h.svc.VerifyCode(c.Request.Context(), dto.Email, dto.VerificationCode, dto.SessionToken)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := res.Outcome.Err(); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, res)
}
