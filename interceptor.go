package plclink

import "context"

// OperationType represents the type of register operation
type OperationType string

const (
	OpRead  OperationType = "Read"
	OpWrite OperationType = "Write"
)

// InterceptorInfo contains information about the operation being performed
type InterceptorInfo struct {
	Operation OperationType
	Protocol  Protocol
	Register  string
	DataType  DataType
	Count     uint16   // points or words requested or written
	Data      []uint16 // only for writes
}

// Invoker is a function that executes the actual operation
type Invoker func(ctx context.Context) (interface{}, error)

// InterceptorCtx carries one intercepted call through the chain.
type InterceptorCtx struct {
	ctx     context.Context
	info    *InterceptorInfo
	invoker Invoker
	client  *Client
}

// Info returns the operation being performed.
func (c *InterceptorCtx) Info() *InterceptorInfo { return c.info }

// Context returns the context the operation was called with.
func (c *InterceptorCtx) Context() context.Context { return c.ctx }

// Client returns the client running the operation, nil when the chain is called directly.
func (c *InterceptorCtx) Client() *Client { return c.client }

// Invoke runs the rest of the chain. A nil ctx reuses the original context.
func (c *InterceptorCtx) Invoke(ctx context.Context) (interface{}, error) {
	if ctx == nil {
		ctx = c.ctx
	}
	return c.invoker(ctx)
}

// Interceptor is a function that can intercept and wrap register operations.
// Reads return []uint16 as result, writes return nil.
//
// The interceptor can:
//   - Log or trace the operation
//   - Measure timing/metrics
//   - Replace the context passed to Invoke
//   - Short-circuit the operation by not calling Invoke
//
// Example:
//
//	func timing(c *plclink.InterceptorCtx) (interface{}, error) {
//	    start := time.Now()
//	    result, err := c.Invoke(nil)
//	    log.Printf("%s %s took %v", c.Info().Operation, c.Info().Register, time.Since(start))
//	    return result, err
//	}
type Interceptor func(c *InterceptorCtx) (interface{}, error)

// ChainInterceptors chains multiple interceptors into a single interceptor
// Interceptors are executed in order: first interceptor wraps second, second wraps third, etc.
func ChainInterceptors(interceptors ...Interceptor) Interceptor {
	if len(interceptors) == 0 {
		return nil
	}

	if len(interceptors) == 1 {
		return interceptors[0]
	}

	return func(c *InterceptorCtx) (interface{}, error) {
		return interceptors[0](&InterceptorCtx{
			ctx:    c.ctx,
			info:   c.info,
			client: c.client,
			invoker: func(ctx context.Context) (interface{}, error) {
				return ChainInterceptors(interceptors[1:]...)(&InterceptorCtx{ctx: ctx, info: c.info, invoker: c.invoker, client: c.client})
			},
		})
	}
}

func (c *Client) invoke(ctx context.Context, info *InterceptorInfo, invoker Invoker) (interface{}, error) {
	c.interceptorMu.RLock()
	interceptor := c.interceptor
	c.interceptorMu.RUnlock()

	if interceptor == nil {
		return invoker(ctx)
	}
	return interceptor(&InterceptorCtx{ctx: ctx, info: info, invoker: invoker, client: c})
}
