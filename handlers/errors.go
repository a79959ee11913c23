package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"sardraft-backend/authz"
	"sardraft-backend/provider"
	"sardraft-backend/service"
)

// respondError maps service errors onto HTTP status codes and the standard
// error envelope.
func respondError(c *gin.Context, err error) {
	var denied *authz.Error
	if errors.As(err, &denied) {
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FORBIDDEN",
				"message": denied.Error(),
			},
		})
		return
	}

	var conflict *service.ConflictError
	if errors.As(err, &conflict) {
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "CONFLICT",
				"message": conflict.Error(),
			},
		})
		return
	}

	var invalid *service.InvalidTransitionError
	if errors.As(err, &invalid) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_TRANSITION",
				"message": invalid.Error(),
			},
		})
		return
	}

	var provErr *provider.Error
	if errors.As(err, &provErr) {
		c.JSON(http.StatusBadGateway, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "GENERATION_FAILED",
				"message": provErr.Error(),
			},
		})
		return
	}

	var integrity *service.IntegrityError
	if errors.As(err, &integrity) {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTEGRITY_FAILURE",
				"message": integrity.Error(),
			},
		})
		return
	}

	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_CREDENTIALS",
				"message": "Invalid username or password",
			},
		})
	case errors.Is(err, service.ErrCaseNotFound),
		errors.Is(err, service.ErrAlertNotFound),
		errors.Is(err, service.ErrCustomerNotFound),
		errors.Is(err, service.ErrNarrativeNotFound),
		errors.Is(err, service.ErrFilingNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": err.Error(),
			},
		})
	case errors.Is(err, service.ErrRationaleRequired),
		errors.Is(err, service.ErrEmptyNarrative):
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": err.Error(),
			},
		})
	case errors.Is(err, service.ErrUserExists):
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "USER_EXISTS",
				"message": err.Error(),
			},
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": err.Error(),
			},
		})
	}
}

func respondBadRequest(c *gin.Context, code, message string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}
