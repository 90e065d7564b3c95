package plclink

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// IsRetryable reports whether err is a communication failure.
// Timeouts are not retryable by default: the late reply is still on its way and would
// answer the next request. Parameter, address, connection and device errors are final.
func IsRetryable(err error) bool {
	return KindOf(err) == KindCommunication
}

// RetryInterceptor creates an interceptor that retries failed operations
// It will retry up to maxRetries times with the specified delay between attempts.
// Only errors accepted by IsRetryable are retried, and never once the context is done.
//
// When a custom condition accepts a timeout, the client reconnects before the next
// attempt so a late reply cannot answer it.
//
// Example:
//
//	// Retry up to 3 times with 100ms delay
//	client.SetInterceptor(plclink.RetryInterceptor(3, 100*time.Millisecond))
func RetryInterceptor(maxRetries int, delay time.Duration) Interceptor {
	return retryInterceptor(maxRetries, func(int) time.Duration { return delay }, IsRetryable)
}

// RetryInterceptorWithBackoff creates a retry interceptor with exponential backoff
// The delay is doubled after each retry, up to a maximum delay.
//
// Example:
//
//	// Retry with exponential backoff: 100ms, 200ms, 400ms, max 1s
//	client.SetInterceptor(plclink.RetryInterceptorWithBackoff(3, 100*time.Millisecond, 1*time.Second))
func RetryInterceptorWithBackoff(maxRetries int, initialDelay, maxDelay time.Duration) Interceptor {
	return retryInterceptor(maxRetries, func(attempt int) time.Duration {
		delay := initialDelay
		for i := 0; i < attempt && delay < maxDelay; i++ {
			delay *= 2
		}
		if delay > maxDelay {
			delay = maxDelay
		}
		return delay
	}, IsRetryable)
}

// RetryInterceptorConditional creates a retry interceptor that only retries certain errors
// The shouldRetry function determines whether an error should be retried.
//
// Example:
//
//	// Only retry timeout errors, over a fresh connection each time
//	shouldRetry := func(err error) bool {
//		return plclink.KindOf(err) == plclink.KindTimeout
//	}
//	client.SetInterceptor(plclink.RetryInterceptorConditional(3, 100*time.Millisecond, shouldRetry))
func RetryInterceptorConditional(maxRetries int, delay time.Duration, shouldRetry func(error) bool) Interceptor {
	return retryInterceptor(maxRetries, func(int) time.Duration { return delay }, shouldRetry)
}

func retryInterceptor(maxRetries int, delayFor func(attempt int) time.Duration, shouldRetry func(error) bool) Interceptor {
	return func(c *InterceptorCtx) (interface{}, error) {
		var result interface{}
		var err error
		ctx := c.Context()
		info := c.Info()
		logger := retryLogger(c)

		for attempt := 0; attempt <= maxRetries; attempt++ {
			result, err = c.Invoke(ctx)
			if err == nil {
				return result, nil
			}

			// Don't retry on context errors
			if ctx.Err() != nil {
				return nil, err
			}

			if !shouldRetry(err) {
				return result, err
			}

			// Don't retry on last attempt
			if attempt < maxRetries {
				delay := delayFor(attempt)
				logger.Warn("retrying",
					zap.String("operation", string(info.Operation)),
					zap.String("register", info.Register),
					zap.Int("attempt", attempt+1),
					zap.Int("attempts", maxRetries+1),
					zap.Duration("delay", delay),
					zap.Error(err),
				)
				if err := sleepContext(ctx, delay); err != nil {
					return nil, err
				}
				if KindOf(err) == KindTimeout {
					if rerr := reconnect(ctx, c); rerr != nil {
						logger.Warn("reconnect before retry failed", zap.Error(rerr))
						return result, err
					}
				}
			}
		}

		return result, fmt.Errorf("operation failed after %d attempts: %w", maxRetries+1, err)
	}
}

// reconnect discards the connection a timed out request left behind.
func reconnect(ctx context.Context, c *InterceptorCtx) error {
	client := c.Client()
	if client == nil {
		return paramErrorf("no client to reconnect")
	}
	return client.Reconnect(ctx)
}

func retryLogger(c *InterceptorCtx) *zap.Logger {
	if client := c.Client(); client != nil {
		return client.Logger()
	}
	return zap.L().Named("PLC")
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
