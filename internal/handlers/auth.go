package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/thereayou/gm-table/internal/database"
	"github.com/thereayou/gm-table/internal/handlers/dto"
	"github.com/thereayou/gm-table/internal/middleware"
	"github.com/thereayou/gm-table/internal/models"
	"github.com/thereayou/gm-table/pkg/auth"
)

type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateLastSeen(ctx context.Context, id uuid.UUID) error
}

type AuthHandler struct {
	users      UserStore
	jwtManager *auth.JWTManager
	blacklist  middleware.Blacklist
	log        zerolog.Logger
}

func NewAuthHandler(users UserStore, jwtMgr *auth.JWTManager, blacklist middleware.Blacklist, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{users: users, jwtManager: jwtMgr, blacklist: blacklist, log: log}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		respondError(c, err)
		return
	}

	now := time.Now()
	user := &models.User{
		ID:           uuid.New(),
		Username:     strings.TrimSpace(req.Username),
		Email:        strings.ToLower(req.Email),
		PasswordHash: string(hash),
		CreatedAt:    now,
		LastSeenAt:   now,
	}
	if err := h.users.CreateUser(c.Request.Context(), user); err != nil {
		respondError(c, err)
		return
	}

	h.issue(c, http.StatusCreated, user)
}

// Login issues a token and touches last_seen.
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	user, err := h.users.FindUserByEmail(c.Request.Context(), strings.ToLower(req.Email))
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials", "code": "unauthorized"})
			return
		}
		respondError(c, err)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials", "code": "unauthorized"})
		return
	}

	if err := h.users.UpdateLastSeen(c.Request.Context(), user.ID); err != nil {
		h.log.Warn().Err(err).Str("user_id", user.ID.String()).Msg("update last seen")
	}

	h.issue(c, http.StatusOK, user)
}

func (h *AuthHandler) issue(c *gin.Context, status int, user *models.User) {
	token, err := h.jwtManager.Generate(user.ID, user.Username)
	if err != nil {
		respondError(c, err)
		return
	}
	exp, err := h.jwtManager.Expiry(token)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(status, dto.TokenResponse{
		UserID:    user.ID,
		Username:  user.Username,
		Token:     token,
		ExpiresAt: exp,
	})
}

// Logout blacklists the caller's token until it expires.
func (h *AuthHandler) Logout(c *gin.Context) {
	token := c.GetString(middleware.TokenKey)

	exp, err := h.jwtManager.Expiry(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token", "code": "unauthorized"})
		return
	}

	if err := h.blacklist.Revoke(c.Request.Context(), token, time.Until(exp)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
