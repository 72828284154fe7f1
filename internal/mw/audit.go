package mw

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"aerium-backend/internal/model"
	"aerium-backend/internal/store"
)

// Audit records successful mutating requests in the audit log. Reads are not
// logged. Audit failures are logged but never fail the request.
func Audit(st store.Store, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Request.Method == http.MethodGet || c.Writer.Status() >= 400 {
			return
		}

		var userID int64
		if v, ok := c.Get(ContextUserID); ok {
			userID, _ = v.(int64)
		}

		entry := &model.AuditLog{
			UserID:       userID,
			Action:       c.Request.Method + " " + c.FullPath(),
			ResourceType: "http",
			IPAddress:    c.ClientIP(),
		}
		if err := st.CreateAuditLog(c.Request.Context(), entry); err != nil {
			logger.Warn("failed to write audit log",
				zap.String("action", entry.Action),
				zap.Error(err))
		}
	}
}
