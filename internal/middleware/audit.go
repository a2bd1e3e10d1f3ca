package middleware

import (
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/arturoeanton/cirkle/internal/domain"
)

// AuditWriter defines how audit records are persisted.
type AuditWriter interface {
	WriteAudit(userID, action, resource, resourceID, details, ip, userAgent string) error
}

// AuditMiddleware records every request. Paths starting with one of skip
// (health checks, event streams) are not recorded.
func AuditMiddleware(writer AuditWriter, skip ...string) fiber.Handler {
	return func(c fiber.Ctx) error {
		// Capture request data BEFORE handler execution (Fiber reuses context objects)
		method := strings.Clone(c.Method())
		path := strings.Clone(c.Path())
		for _, prefix := range skip {
			if strings.HasPrefix(path, prefix) {
				return c.Next()
			}
		}

		start := time.Now()
		ip := strings.Clone(c.IP())
		userAgent := strings.Clone(c.Get("User-Agent"))

		// Render handler errors here so the recorded status is the one sent.
		if err := c.Next(); err != nil {
			if herr := c.App().Config().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		userID := "anonymous"
		if uc := GetUserContext(c); uc != nil {
			userID = uc.UserID
		}

		status := c.Response().StatusCode()
		details, _ := json.Marshal(map[string]any{
			"method":      method,
			"path":        path,
			"status":      status,
			"duration_ms": time.Since(start).Milliseconds(),
		})

		// All values are captured, safe to use in goroutine
		go func() {
			if writeErr := writer.WriteAudit(
				userID,
				domain.AuditActionHTTPRequest,
				"api",
				path,
				string(details),
				ip,
				userAgent,
			); writeErr != nil {
				slog.Error("failed to write audit log", "error", writeErr)
			}
		}()

		return nil
	}
}
