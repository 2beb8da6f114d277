package auth

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/routepick/backend/internal/middleware"
	"github.com/routepick/backend/internal/modules/auth/user"
	"github.com/routepick/backend/internal/pkg/response"
	"github.com/routepick/backend/internal/pkg/storage"
)

const maxUserDataBytes = 64 << 10

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts login, refresh, logout and me. entry runs in front
// of the unauthenticated entry points.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc, entry ...gin.HandlerFunc) {
	a := rg.Group("/auth")

	a.POST("/login", guarded(entry, h.login)...)
	a.POST("/refresh", guarded(entry, h.refresh)...)
	a.POST("/logout", authMW, h.logout)
	a.GET("/me", authMW, h.me)
}

// RegisterSignup mounts the signup endpoint.
func (h *Handler) RegisterSignup(rg *gin.RouterGroup, entry ...gin.HandlerFunc) {
	rg.Group("/auth").POST("/signup", guarded(entry, h.signup)...)
}

func guarded(entry []gin.HandlerFunc, fn gin.HandlerFunc) []gin.HandlerFunc {
	return append(append([]gin.HandlerFunc{}, entry...), fn)
}

func (h *Handler) signup(c *gin.Context) {
	req, image, err := bindSignup(c)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if image != nil {
		defer image.Close()
	}

	var up *storage.Upload
	if image != nil {
		up = &storage.Upload{Filename: image.filename, Size: image.size, Body: image.body}
	}
	u, err := h.svc.Signup(c.Request.Context(), *req, up)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, user.ToInfo(u))
}

type uploadedFile struct {
	filename string
	size     int64
	body     multipart.File
}

func (f *uploadedFile) Close() { _ = f.body.Close() }

// bindSignup accepts either a JSON body or a multipart form whose
// "userData" part carries the JSON and "profileImage" the optional image.
func bindSignup(c *gin.Context) (*SignupRequest, *uploadedFile, error) {
	var req SignupRequest
	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		if err := c.ShouldBindJSON(&req); err != nil {
			return nil, nil, err
		}
		return &req, nil, nil
	}

	raw, err := userDataPart(c)
	if err != nil {
		return nil, nil, err
	}
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, nil, errors.New("userData is not valid JSON")
	}
	if err := binding.Validator.ValidateStruct(&req); err != nil {
		return nil, nil, err
	}

	fh, err := c.FormFile("profileImage")
	if errors.Is(err, http.ErrMissingFile) {
		return &req, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	f, err := fh.Open()
	if err != nil {
		return nil, nil, err
	}
	return &req, &uploadedFile{filename: fh.Filename, size: fh.Size, body: f}, nil
}

func userDataPart(c *gin.Context) ([]byte, error) {
	if v, ok := c.GetPostForm("userData"); ok {
		return []byte(v), nil
	}
	fh, err := c.FormFile("userData")
	if err != nil {
		return nil, errors.New("userData part is required")
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, maxUserDataBytes))
}

func (h *Handler) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	res, err := h.svc.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, res)
}

func (h *Handler) refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	pair, err := h.svc.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, pair)
}

func (h *Handler) logout(c *gin.Context) {
	if err := h.svc.Logout(c.Request.Context(), middleware.CurrentUserID(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func (h *Handler) me(c *gin.Context) {
	info, err := h.svc.Me(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, info)
}
