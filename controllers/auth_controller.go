package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/madickblog/middleware"
	"github.com/cppla/madickblog/models"
	"github.com/cppla/madickblog/store"
	"github.com/cppla/madickblog/utils"
)

// AuthController issues and revokes bearer tokens for registered users.
type AuthController struct {
	store  store.Store
	secret string
	ttl    time.Duration
}

// NewAuthController creates an AuthController signing tokens with secret.
func NewAuthController(s store.Store, secret string, ttl time.Duration) *AuthController {
	return &AuthController{store: s, secret: secret, ttl: ttl}
}

// Register creates a user with a bcrypt password and returns a token.
func (a *AuthController) Register(ctx *gin.Context) {
	type request struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
		Name     string `json:"name" binding:"max=64"`
	}

	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		invalidPayload(ctx)
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if errors.Is(err, utils.ErrPasswordTooShort) {
		utils.ErrorWithData(ctx, http.StatusBadRequest, 40011, "password must be at least 8 characters", gin.H{"field": "password"})
		return
	}
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50001, "failed to hash password")
		return
	}

	user := models.User{
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hash,
	}
	if name := utils.SanitizeText(strings.TrimSpace(req.Name)); name != "" {
		user.Name = &name
	}

	if err := a.store.CreateUser(ctx.Request.Context(), &user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			utils.Error(ctx, http.StatusConflict, 40901, "email already registered")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50002, "failed to create user")
		return
	}

	a.issueToken(ctx, http.StatusCreated, user)
}

// Login exchanges email and password for a token.
func (a *AuthController) Login(ctx *gin.Context) {
	type request struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		invalidPayload(ctx)
		return
	}

	user, err := a.store.GetUserByEmail(ctx.Request.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		utils.Error(ctx, http.StatusInternalServerError, 50003, "failed to load user")
		return
	}
	if user == nil || !utils.CheckPassword(user.PasswordHash, req.Password) {
		utils.Error(ctx, http.StatusUnauthorized, 40106, "invalid email or password")
		return
	}

	a.issueToken(ctx, http.StatusOK, *user)
}

// Logout invalidates the token by blacklisting it until expiration.
func (a *AuthController) Logout(ctx *gin.Context) {
	token := ctx.GetString(middleware.ContextTokenKey)
	expiresAt, ok := middleware.TokenExpiry(ctx)
	if !ok {
		expiresAt = time.Now().Add(a.ttl)
	}
	utils.BlacklistToken(token, expiresAt)
	utils.Success(ctx, gin.H{"message": "logged out"})
}

// Me returns the authenticated user.
func (a *AuthController) Me(ctx *gin.Context) {
	user, err := a.store.GetUser(ctx.Request.Context(), ctx.GetUint(middleware.ContextUserIDKey))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40403, "user not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50003, "failed to load user")
		return
	}
	utils.Success(ctx, userResponse(*user))
}

func (a *AuthController) issueToken(ctx *gin.Context, status int, user models.User) {
	token, err := utils.GenerateToken(a.secret, user.ID, user.DisplayName(), a.ttl)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to generate token")
		return
	}
	utils.Respond(ctx, status, 0, "success", gin.H{
		"token": token,
		"user":  userResponse(user),
	})
}

func userResponse(user models.User) gin.H {
	return gin.H{
		"id":    user.ID,
		"email": user.Email,
		"name":  user.Name,
		"image": user.Image,
	}
}
