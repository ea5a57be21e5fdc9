// Package apierr defines the machine-readable error codes of the public API.
// Clients branch on the code field, never on the message text.
package apierr

import "github.com/gin-gonic/gin"

const (
	CodeInvalidAPIKey     = "INVALID_API_KEY"
	CodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
	CodeHardwareDenied    = "HARDWARE_ACCESS_DENIED"
	CodeInvalidParameters = "INVALID_PARAMETERS"
)

// Abort writes the standard error body and stops the handler chain.
func Abort(c *gin.Context, status int, message, code string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error": message,
		"code":  code,
	})
}
