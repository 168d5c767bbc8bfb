package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"storefront/internal/apperr"
	"storefront/internal/auth"
	"storefront/internal/logger"
	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/repository"
	"storefront/internal/service"
)

type registerRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

type federatedRequest struct {
	Assertion string `json:"assertion" binding:"required"`
}

type authResponse struct {
	*service.TokenPair
	User userResponse `json:"user"`
}

type userResponse struct {
	ID           string      `json:"id"`
	Email        string      `json:"email"`
	Name         string      `json:"name"`
	Role         models.Role `json:"role"`
	Provider     string      `json:"provider"`
	IsSubscribed bool        `json:"isSubscribed"`
}

func toUserResponse(u *models.User) userResponse {
	return userResponse{
		ID:           u.ID.Hex(),
		Email:        u.Email,
		Name:         u.Name,
		Role:         u.Role,
		Provider:     u.Provider,
		IsSubscribed: u.IsSubscribed,
	}
}

// Register creates a credentials account with role user and signs it in.
func Register(sessions *service.SessionService, tokens *service.TokenService, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req registerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		u, err := sessions.Register(ctx, req.Email, req.Password, req.Name)
		if err != nil {
			respondError(c, log, err)
			return
		}
		pair, err := tokens.Issue(ctx, u)
		if err != nil {
			respondError(c, log, err)
			return
		}

		log.Info("user registered", logger.String("user_id", u.ID.Hex()))
		c.JSON(http.StatusCreated, authResponse{TokenPair: pair, User: toUserResponse(u)})
	}
}

func Login(sessions *service.SessionService, tokens *service.TokenService, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		u, err := sessions.Authenticate(ctx, req.Email, req.Password)
		if err != nil {
			respondError(c, log, err)
			return
		}
		pair, err := tokens.Issue(ctx, u)
		if err != nil {
			respondError(c, log, err)
			return
		}

		c.JSON(http.StatusOK, authResponse{TokenPair: pair, User: toUserResponse(u)})
	}
}

// FederatedLogin exchanges a signed identity assertion for a token pair,
// creating the account on first sight.
func FederatedLogin(verifier *auth.AssertionVerifier, sessions *service.SessionService, tokens *service.TokenService, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req federatedRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		identity, err := verifier.Verify(req.Assertion)
		if err != nil {
			log.Warn("federated assertion rejected", logger.Error(err))
			respondError(c, log, apperr.Unauthenticated("invalid identity assertion"))
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		u, err := sessions.FederatedLogin(ctx, identity)
		if err != nil {
			respondError(c, log, err)
			return
		}
		pair, err := tokens.Issue(ctx, u)
		if err != nil {
			respondError(c, log, err)
			return
		}

		c.JSON(http.StatusOK, authResponse{TokenPair: pair, User: toUserResponse(u)})
	}
}

func Refresh(tokens *service.TokenService, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req refreshRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		pair, u, err := tokens.Rotate(ctx, strings.TrimSpace(req.RefreshToken))
		if err != nil {
			respondError(c, log, err)
			return
		}

		c.JSON(http.StatusOK, authResponse{TokenPair: pair, User: toUserResponse(u)})
	}
}

func Logout(tokens *service.TokenService, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req refreshRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		if err := tokens.Revoke(ctx, strings.TrimSpace(req.RefreshToken)); err != nil {
			respondError(c, log, err)
			return
		}

		c.SetCookie(middleware.SessionCookie, "", -1, "/", "", false, true)
		c.Status(http.StatusNoContent)
	}
}

// Me returns the account behind the current session.
func Me(users repository.UserRepository, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := middleware.CurrentSession(c)
		if err := auth.RequireRole(session, models.RoleUser); err != nil {
			respondError(c, log, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		u, err := users.FindByID(ctx, session.UserID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				respondError(c, log, apperr.Unauthenticated("account no longer exists"))
				return
			}
			respondError(c, log, apperr.Internal(err))
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"user":     toUserResponse(u),
			"stats":    u.Stats,
			"wishlist": u.Wishlist,
			"liked":    u.Liked,
		})
	}
}
