// Package middleware provides gin request middleware for the HTTP front end.
package middleware

import (
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const defaultJWTSecret = "ragpilot-default-secret-change-in-production"

// OptionalJWTMiddleware resolves userId/companyId into the gin context.
// When ENABLE_JWT is unset or false, it injects dev-mode placeholder
// identity so local runs work without a token. When enabled, it requires a
// valid Bearer token and rejects the request otherwise.
func OptionalJWTMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		enabled, _ := strconv.ParseBool(os.Getenv("ENABLE_JWT"))
		if !enabled {
			c.Set("userId", "dev-user")
			c.Set("companyId", "dev-company")
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing Authorization header"})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid Authorization header format"})
			return
		}

		secret := os.Getenv("JWT_SECRET")
		if secret == "" {
			secret = defaultJWTSecret
		}

		claims := jwt.MapClaims{}
		token, err := jwt.ParseWithClaims(parts[1], claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrTokenSignatureInvalid
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		userID, companyID := identityFromClaims(claims)
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token is missing a user identifier"})
			return
		}
		if companyID == "" {
			companyID = userID
		}

		c.Set("userId", userID)
		c.Set("companyId", companyID)
		c.Next()
	}
}

// identityFromClaims resolves a user/company identifier across the several
// claim shapes tokens issued by different callers have used: flat
// userId/companyId, snake_case user_id/company_id, the JWT-standard sub
// claim, and a nested identity object.
func identityFromClaims(claims jwt.MapClaims) (userID, companyID string) {
	if nested, ok := claims["identity"].(map[string]interface{}); ok {
		if id, ok := nested["id"].(string); ok {
			userID = id
		}
		if cid, ok := nested["companyId"].(string); ok {
			companyID = cid
		}
		if userID != "" {
			return userID, companyID
		}
	}

	if v, ok := claims["userId"].(string); ok && v != "" {
		userID = v
	} else if v, ok := claims["user_id"].(string); ok && v != "" {
		userID = v
	} else if v, ok := claims["sub"].(string); ok && v != "" {
		userID = v
	}

	if v, ok := claims["companyId"].(string); ok && v != "" {
		companyID = v
	} else if v, ok := claims["company_id"].(string); ok && v != "" {
		companyID = v
	}

	return userID, companyID
}
