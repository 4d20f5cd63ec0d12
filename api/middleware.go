package api

import (
	"net/http"
	"strings"

	"github.com/SwiftFiat/SwiftFiat-Payouts/api/apistrings"
	"github.com/SwiftFiat/SwiftFiat-Payouts/models"
	"github.com/SwiftFiat/SwiftFiat-Payouts/utils"
	"github.com/gin-gonic/gin"
)

func AuthenticatedMiddleware(tokens *utils.JWTToken) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token := ctx.GetHeader("Authorization")
		if token == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, models.NewError(apistrings.Unauthorized))
			return
		}

		tokenSplit := strings.Split(token, " ")
		if len(tokenSplit) != 2 || strings.ToLower(tokenSplit[0]) != "bearer" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, models.NewError(apistrings.BearerExpected))
			return
		}

		user, err := tokens.VerifyToken(tokenSplit[1])
		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, models.NewError(err.Error()))
			return
		}

		ctx.Set("user_id", user.UserID)
		ctx.Set("user_role", user.Role)
		/// Accessible User Across the App
		ctx.Set(utils.ActiveUserKey, user)
		ctx.Next()
	}
}

// AdminMiddleware must run after AuthenticatedMiddleware
func AdminMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		user, err := utils.ActiveUser(ctx)
		if err != nil || user.Role != RoleAdmin {
			ctx.AbortWithStatusJSON(http.StatusForbidden, models.NewError(apistrings.AdminOnly))
			return
		}
		ctx.Next()
	}
}

func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {

		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, Idempotency-Key, accept, origin, Cache-Control, X-Requested-With")
		c.Header("Access-Control-Allow-Methods", "POST,HEAD,OPTIONS,GET")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
