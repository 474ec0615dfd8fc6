package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/gleeclub/portal-api/internal/middleware"
	"github.com/gleeclub/portal-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	return middleware.Claims(c)
}
