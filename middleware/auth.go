package middleware

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/Munirmohammed/Ecommerce/models"
	"github.com/Munirmohammed/Ecommerce/response"
)

const claimsKey = "authClaims"

// Claims is the authenticated identity attached to the request context.
type Claims struct {
	UserID   string
	Username string
	Role     models.Role
}

// Auth verifies the bearer token and stores the claims for downstream
// handlers.
func Auth(secret string) gin.HandlerFunc {
	key := []byte(secret)
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			response.Fail(c, 401, "No token provided", "Authorization header missing")
			return
		}

		token, err := jwt.Parse(strings.TrimPrefix(header, "Bearer "), func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return key, nil
		})
		if err != nil || !token.Valid {
			response.Fail(c, 401, "Invalid token")
			return
		}

		mapClaims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			response.Fail(c, 401, "Invalid token")
			return
		}
		userID, _ := mapClaims["user_id"].(string)
		username, _ := mapClaims["username"].(string)
		role, _ := mapClaims["role"].(string)
		if userID == "" {
			response.Fail(c, 401, "Invalid token")
			return
		}

		c.Set(claimsKey, Claims{UserID: userID, Username: username, Role: models.Role(role)})
		c.Next()
	}
}

// RequireRole gates a route to the given roles. It must run after Auth.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := ClaimsFrom(c)
		if !ok {
			response.Fail(c, 401, "Unauthorized", "User not authenticated")
			return
		}
		for _, role := range roles {
			if claims.Role == role {
				c.Next()
				return
			}
		}
		response.Fail(c, 403, "Forbidden", "Insufficient permissions")
	}
}

func ClaimsFrom(c *gin.Context) (Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return Claims{}, false
	}
	claims, ok := v.(Claims)
	return claims, ok
}
