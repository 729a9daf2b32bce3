package middlewares

import (
	"net/http"
	"strings"

	"scamdrill/utils"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware verifies the bearer token and sets the participant name in
// the context. Websocket endpoints may carry the token as a query parameter
// instead, since browsers cannot set headers on socket upgrades.
func AuthMiddleware(tokens *utils.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ""
		if authHeader := c.GetHeader("Authorization"); authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid Authorization token format"})
				c.Abort()
				return
			}
			token = parts[1]
		} else {
			token = c.Query("token")
		}
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing Authorization token"})
			c.Abort()
			return
		}

		claims, err := tokens.Parse(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		c.Set("participant", claims.Participant)
		c.Set("isOperator", claims.IsOperator)
		c.Next()
	}
}

// OperatorOnly rejects requests whose token lacks the operator flag.
func OperatorOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !c.GetBool("isOperator") {
			c.JSON(http.StatusForbidden, gin.H{"error": "Operator token required"})
			c.Abort()
			return
		}
		c.Next()
	}
}
