package middleware

import (
	"tabletop/internal/common"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// RequestLogger writes one zap entry per request. Server errors log at error
// level, client errors at warn.
func RequestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	return echoMiddleware.RequestLoggerWithConfig(echoMiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogRoutePath: true,
		LogMethod:    true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echoMiddleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.String("route", v.RoutePath),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("remote_ip", v.RemoteIP),
			}
			if v.RequestID != "" {
				fields = append(fields, zap.String("request_id", v.RequestID))
			}
			if p, ok := common.PrincipalFromContext(c.Request().Context()); ok {
				fields = append(fields,
					zap.String("tenant_id", p.TenantID.String()),
					zap.String("user_id", p.UserID.String()))
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
			}

			level := zapcore.InfoLevel
			switch {
			case v.Status >= 500:
				level = zapcore.ErrorLevel
			case v.Status >= 400:
				level = zapcore.WarnLevel
			}
			logger.Check(level, "request").Write(fields...)
			return nil
		},
	})
}
