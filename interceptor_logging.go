package plclink

import (
	"time"

	"go.uber.org/zap"
)

// LoggingInterceptor creates an interceptor that logs all operations
// It logs operation start, end, duration, and any errors
//
// Example:
//
//	logger, _ := zap.NewProduction()
//	client.SetInterceptor(plclink.LoggingInterceptor(logger))
//
// Output:
//
//	INFO	PLC	starting	{"operation": "Read", "protocol": "MC3E", "register": "D100", "count": 5}
//	INFO	PLC	completed	{"operation": "Read", "register": "D100", "duration": "5ms"}
func LoggingInterceptor(logger *zap.Logger) Interceptor {
	if logger == nil {
		logger = zap.NewNop()
	}
	// Named logger keeps consistent component label.
	logger = logger.Named("PLC")

	return func(c *InterceptorCtx) (interface{}, error) {
		info := c.Info()
		start := time.Now()

		logger.Info("starting",
			zap.String("operation", string(info.Operation)),
			zap.Stringer("protocol", info.Protocol),
			zap.String("register", info.Register),
			zap.Stringer("type", info.DataType),
			zap.Uint16("count", info.Count),
		)

		result, err := c.Invoke(nil)

		duration := time.Since(start)
		if err != nil {
			logger.Error("failed",
				zap.String("operation", string(info.Operation)),
				zap.String("register", info.Register),
				zap.Stringer("kind", KindOf(err)),
				zap.Duration("duration", duration),
				zap.Error(err),
			)
		} else {
			logger.Info("completed",
				zap.String("operation", string(info.Operation)),
				zap.String("register", info.Register),
				zap.Duration("duration", duration),
			)
		}

		return result, err
	}
}
