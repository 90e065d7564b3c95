package plclink

import (
	"fmt"

	"go.uber.org/zap"
)

// TracingInterceptor creates an interceptor that extracts and logs trace IDs from context
// The trace ID is extracted from the context using the provided key and logged through
// the client logger.
//
// Example:
//
//	client.SetInterceptor(plclink.TracingInterceptor(traceKey{}))
//
//	ctx := context.WithValue(context.Background(), traceKey{}, "trace-12345")
//	client.Read(ctx, "D100", plclink.Word, 5)
//	// DEBUG	PLC.trace	Read	{"trace_id": "trace-12345", "register": "D100"}
func TracingInterceptor(traceIDKey interface{}) Interceptor {
	return TracingInterceptorWithLogger(traceIDKey, nil)
}

// TracingInterceptorWithLogger creates a tracing interceptor with a custom logger.
// A nil logger falls back to the client logger.
func TracingInterceptorWithLogger(traceIDKey interface{}, logger *zap.Logger) Interceptor {
	return func(c *InterceptorCtx) (interface{}, error) {
		traceID := c.Context().Value(traceIDKey)
		if traceID == nil {
			return c.Invoke(nil)
		}

		var l *zap.Logger
		switch {
		case logger != nil:
			l = logger.Named("PLC.trace")
		case c.Client() != nil:
			l = c.Client().Logger().Named("trace")
		default:
			l = zap.L().Named("PLC.trace")
		}
		info := c.Info()
		l = l.With(
			zap.String("trace_id", fmt.Sprint(traceID)),
			zap.Stringer("protocol", info.Protocol),
			zap.String("register", info.Register),
		)
		l.Debug(string(info.Operation), zap.Uint16("count", info.Count))

		result, err := c.Invoke(nil)
		if err != nil {
			l.Debug(string(info.Operation)+" failed", zap.Error(err))
		}
		return result, err
	}
}
