package api

import (
	"crypto/subtle"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware returns a Gin middleware guarding the batch-launch and
// comparison endpoints with a bearer token read from API_AUTH_TOKEN:
//
//	Authorization: Bearer <token>
//
// The read-only endpoints (health, stream, progress) are mounted outside it.
// If API_AUTH_TOKEN is unset all requests pass, which is the intended mode on
// a workstation; in GIN_MODE=release an unset token leaves the simulate and
// compare routes open to anyone who can reach the port, so that combination
// is logged loudly at startup.
func AuthMiddleware() gin.HandlerFunc {
	token := os.Getenv("API_AUTH_TOKEN")

	if token == "" && os.Getenv("GIN_MODE") == "release" {
		log.Println("[SECURITY WARNING] API_AUTH_TOKEN is not set in release mode. " +
			"Batch and comparison endpoints are publicly accessible. " +
			"Set API_AUTH_TOKEN in your environment to enforce authentication.")
	}

	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}

		presented, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			status := http.StatusForbidden
			msg := "Invalid Authorization header format"
			if c.GetHeader("Authorization") == "" {
				status = http.StatusUnauthorized
				msg = "Missing Authorization header"
			}
			c.JSON(status, gin.H{
				"error": msg,
				"hint":  "Use: Authorization: Bearer <API_AUTH_TOKEN>",
			})
			c.Abort()
			return
		}

		// Constant-time comparison prevents timing-based token enumeration.
		if subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
			c.JSON(http.StatusForbidden, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		c.Next()
	}
}

// bearerToken extracts the credential from a "Bearer <token>" header value.
func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
