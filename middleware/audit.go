package middleware

import (
	"law_process_app_go/services"

	"github.com/labstack/echo/v4"
)

const ContextKeyAuditContext = "audit_context"

// HeaderSessionID names the workspace session on requests that carry one
const HeaderSessionID = "X-Session-ID"

// AuditContext is middleware that captures request metadata for audit logging
func AuditContext() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := services.AuditContext{
				IPAddress: c.RealIP(),
				UserAgent: c.Request().UserAgent(),
				SessionID: c.Request().Header.Get(HeaderSessionID),
			}
			if ctx.SessionID == "" {
				ctx.SessionID = c.Param("session")
			}
			ctx.CaseID = c.Param("caseId")

			c.Set(ContextKeyAuditContext, ctx)
			return next(c)
		}
	}
}

// GetAuditContext retrieves the audit context from the request
func GetAuditContext(c echo.Context) services.AuditContext {
	if ctx, ok := c.Get(ContextKeyAuditContext).(services.AuditContext); ok {
		return ctx
	}
	return services.AuditContext{}
}
