package api

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/provenix-dev/provenix-store/internal/apperr"
	"github.com/provenix-dev/provenix-store/internal/auth"
)

const requestIDKey = "request_id"

// TokenVerifier resolves a bearer token to its subject identifier.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// RequestID assigns every request a correlation ID, honoring one supplied by
// the caller.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header("X-Request-Id", id)
		c.Next()
	}
}

// RequestLogger emits one structured access log line per request.
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("duration", time.Since(start)),
			slog.String("request_id", c.GetString(requestIDKey)),
		)
	}
}

// CORS allows any origin, matching the daemon's open-API deployment model.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}

// RequireAuth rejects requests without a valid bearer token and attaches the
// token's subject to the request context so mutations record their actor.
func RequireAuth(verifier TokenVerifier, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || token == "" {
			writeError(c, logger, apperr.Authentication("Not authenticated"))
			return
		}

		subject, err := verifier.Verify(token)
		if err != nil {
			writeError(c, logger, err)
			return
		}

		c.Request = c.Request.WithContext(auth.WithSubject(c.Request.Context(), subject))
		c.Next()
	}
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

// writeError maps an error to the response envelope. Business errors surface
// their own code and message; storage and unclassified failures are logged
// with the cause and returned with detail suppressed.
func writeError(c *gin.Context, logger *slog.Logger, err error) {
	if logger == nil {
		logger = slog.Default()
	}

	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		appErr = &apperr.Error{Kind: apperr.KindUnknown, Code: apperr.CodeInternal, Err: err}
	}

	status := appErr.Kind.HTTPStatus()
	message := appErr.Message
	switch appErr.Kind {
	case apperr.KindStorage:
		logger.Error("database error",
			slog.Any("error", appErr.Unwrap()),
			slog.String("context", appErr.Message),
			slog.String("request_id", c.GetString(requestIDKey)),
		)
		message = "An error occurred while processing your request"
	case apperr.KindUnknown:
		logger.Error("unhandled error",
			slog.Any("error", err),
			slog.String("request_id", c.GetString(requestIDKey)),
		)
		message = "An unexpected error occurred"
	case apperr.KindAuthentication:
		c.Header("WWW-Authenticate", "Bearer")
	}

	c.AbortWithStatusJSON(status, gin.H{"error": errorBody{
		Code:    appErr.Code,
		Message: message,
		Status:  status,
	}})
}
