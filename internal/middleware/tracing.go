package middleware

import (
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/nathanyu/account-ledger/internal/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// unmatchedRoute labels requests gin could not route, keeping label cardinality bounded
const unmatchedRoute = "unmatched"

var routeParamPattern = regexp.MustCompile(`/:([^/]+)`)

// normalizePath turns a gin route template into the label form, e.g.
// /v1/accounts/:account_id -> /v1/accounts/{account_id}
func normalizePath(path string) string {
	return routeParamPattern.ReplaceAllString(path, "/{$1}")
}

// routeLabel is the low-cardinality route name for the current request
func routeLabel(c *gin.Context) string {
	path := c.FullPath()
	if path == "" {
		return unmatchedRoute
	}
	return normalizePath(path)
}

// Tracing middleware starts a server span per request, continuing any trace
// propagated by the caller.
func Tracing() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := routeLabel(c)
		ctx := otel.GetTextMapPropagator().Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))

		ctx, span := telemetry.StartSpan(ctx, strings.Join([]string{"HTTP", c.Request.Method, route}, " "),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", c.Request.Method),
				attribute.String("http.route", route),
				attribute.String("http.target", c.Request.URL.Path),
				attribute.String("http.user_agent", c.Request.UserAgent()),
			),
		)
		defer span.End()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(attribute.Int("http.status_code", status))
		if len(c.Errors) > 0 {
			span.RecordError(c.Errors.Last())
		}

		// 4xx are caller mistakes; only server faults mark the span as failed
		if status >= 500 {
			span.SetStatus(codes.Error, "server error")
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}
}
