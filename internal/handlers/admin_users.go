package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"storefront/internal/apperr"
	"storefront/internal/auth"
	"storefront/internal/logger"
	"storefront/internal/middleware"
	"storefront/internal/repository"
	"storefront/internal/service"
)

type createAdminRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name"`
}

type resetPasswordRequest struct {
	Password string `json:"password" binding:"required"`
}

type roleRequest struct {
	Role string `json:"role" binding:"required"`
}

type updateUserRequest struct {
	Name         *string `json:"name"`
	IsSubscribed *bool   `json:"isSubscribed"`
}

func ListAdmins(admins *service.AdminService, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := requestContext(c)
		defer cancel()

		list, err := admins.ListAdmins(ctx, middleware.CurrentSession(c))
		if err != nil {
			respondError(c, log, err)
			return
		}

		out := make([]userResponse, 0, len(list))
		for i := range list {
			out = append(out, toUserResponse(&list[i]))
		}
		c.JSON(http.StatusOK, gin.H{"data": out})
	}
}

func CreateAdmin(admins *service.AdminService, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createAdminRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		u, err := admins.CreateAdmin(ctx, middleware.CurrentSession(c), service.CreateAdminInput{
			Email:    req.Email,
			Password: req.Password,
			Name:     req.Name,
		})
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusCreated, toUserResponse(u))
	}
}

func ResetAdminPassword(admins *service.AdminService, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := objectIDParam(c, "id")
		if !ok {
			return
		}
		var req resetPasswordRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		if err := admins.ResetPassword(ctx, middleware.CurrentSession(c), id, req.Password); err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "password updated"})
	}
}

// ChangeAdminRole moves a target between user and admin.
func ChangeAdminRole(admins *service.AdminService, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := objectIDParam(c, "id")
		if !ok {
			return
		}
		var req roleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		u, err := admins.ChangeRole(ctx, middleware.CurrentSession(c), id, req.Role)
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, toUserResponse(u))
	}
}

func PromoteAdmin(admins *service.AdminService, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := objectIDParam(c, "id")
		if !ok {
			return
		}
		var req roleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		u, err := admins.Promote(ctx, middleware.CurrentSession(c), id, req.Role)
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, toUserResponse(u))
	}
}

func DeleteAdmin(admins *service.AdminService, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := objectIDParam(c, "id")
		if !ok {
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		if err := admins.DeleteAdmin(ctx, middleware.CurrentSession(c), id); err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "admin deleted"})
	}
}

// ListUsers pages through accounts. ?role= accepts a comma separated list.
func ListUsers(admins *service.AdminService, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, limit, err := parsePaginationParams(c.Query("page"), c.Query("limit"))
		if err != nil {
			respondError(c, log, apperr.Validation(err.Error()))
			return
		}

		filter := repository.UserFilter{Search: strings.TrimSpace(c.Query("search"))}
		for _, raw := range strings.Split(c.Query("role"), ",") {
			if raw = strings.TrimSpace(raw); raw == "" {
				continue
			}
			role, ok := auth.ParseRole(raw)
			if !ok {
				respondError(c, log, apperr.Validation("invalid role filter"))
				return
			}
			filter.Roles = append(filter.Roles, role)
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		list, total, err := admins.ListUsers(ctx, middleware.CurrentSession(c), filter, page, limit)
		if err != nil {
			respondError(c, log, err)
			return
		}

		out := make([]userResponse, 0, len(list))
		for i := range list {
			out = append(out, toUserResponse(&list[i]))
		}
		c.JSON(http.StatusOK, gin.H{
			"data":       out,
			"pagination": paginationBody(page, limit, total),
		})
	}
}

func UpdateUser(admins *service.AdminService, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := objectIDParam(c, "id")
		if !ok {
			return
		}
		var req updateUserRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		u, err := admins.UpdateUser(ctx, middleware.CurrentSession(c), id, service.UpdateUserInput{
			Name:         req.Name,
			IsSubscribed: req.IsSubscribed,
		})
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, toUserResponse(u))
	}
}
