package plclink

import (
	"context"
	"errors"
	"io"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const (
	DEFAULT_TIMEOUT = 300 * time.Millisecond
	DEFAULT_STATION = 1
	READ_CHUNK_SIZE = 1024
)

// Protocol selects the controller family a client talks to.
type Protocol int

const (
	// ProtocolMC3E is the Mitsubishi MC protocol, 3E binary frames.
	ProtocolMC3E Protocol = iota + 1
	// ProtocolNewtocol is the Panasonic Newtocol ASCII protocol.
	ProtocolNewtocol
	// ProtocolEIO is the IPCSUN EIO1608I line protocol.
	ProtocolEIO
)

func (p Protocol) String() string {
	switch p {
	case ProtocolMC3E:
		return "MC3E"
	case ProtocolNewtocol:
		return "Newtocol"
	case ProtocolEIO:
		return "EIO1608I"
	default:
		return "Protocol(" + strconv.Itoa(int(p)) + ")"
	}
}

func (p Protocol) valid() bool {
	return p >= ProtocolMC3E && p <= ProtocolEIO
}

// ParseRegister resolves name with the address table of protocol p.
func ParseRegister(p Protocol, name string, dataType DataType) (Register, error) {
	switch p {
	case ProtocolMC3E:
		return ParseMcRegister(name, dataType)
	case ProtocolNewtocol:
		return ParseNewtocolRegister(name, dataType)
	case ProtocolEIO:
		return ParseEioRegister(name, dataType)
	}
	return nil, paramErrorf("unsupported protocol %s", p)
}

// Client reads and writes named registers on one controller.
// Thread-safe: operations queue on a single connection, one request/response at a time.
type Client struct {
	protocol Protocol
	endpoint Endpoint
	dial     func(ctx context.Context) (Transport, error)
	redial   bool // false for injected transports

	mu        sync.Mutex // held for one whole exchange, guards tr
	tr        Transport
	connected atomic.Bool

	confMu  sync.RWMutex
	timeout time.Duration
	station byte
	logger  *zap.Logger

	interceptor   Interceptor
	interceptorMu sync.RWMutex
	plugins       pluginManager
}

// Option configures a Client at construction.
type Option func(*Client)

// WithStation sets the Newtocol station number. Default value: 1.
func WithStation(station byte) Option {
	return func(c *Client) {
		c.station = station
	}
}

// WithLogger sets the client logger; see SetLogger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		c.SetLogger(logger)
	}
}

// WithInterceptor installs an interceptor; see SetInterceptor.
func WithInterceptor(interceptor Interceptor) Option {
	return func(c *Client) {
		c.interceptor = interceptor
	}
}

// NewClient creates a client for protocol reaching the controller at endpoint.
// A timeout of zero waits indefinitely (the caller's context still applies).
// The connection is not opened until Connect.
func NewClient(protocol Protocol, endpoint Endpoint, timeout time.Duration, opts ...Option) (*Client, error) {
	if !protocol.valid() {
		return nil, paramErrorf("unsupported protocol %s", protocol)
	}
	if err := endpoint.validate(protocol); err != nil {
		return nil, err
	}
	c := newClient(protocol, timeout, opts)
	c.endpoint = endpoint
	c.redial = true
	c.dial = func(ctx context.Context) (Transport, error) {
		if endpoint.Network != nil {
			tr, err := dialTCP(ctx, *endpoint.Network)
			if err != nil {
				return nil, err
			}
			return tr, nil
		}
		tr, err := openSerial(*endpoint.Serial)
		if err != nil {
			return nil, err
		}
		return tr, nil
	}
	return c, nil
}

// NewMcClient creates an MC 3E client for host:port.
func NewMcClient(host string, port int, timeout time.Duration, opts ...Option) (*Client, error) {
	return NewClient(ProtocolMC3E, NewNetworkEndpoint(host, port), timeout, opts...)
}

// NewNewtocolClient creates a Newtocol client over a network or serial endpoint.
func NewNewtocolClient(endpoint Endpoint, timeout time.Duration, opts ...Option) (*Client, error) {
	return NewClient(ProtocolNewtocol, endpoint, timeout, opts...)
}

// NewEioClient creates an EIO1608I client for host:port.
func NewEioClient(host string, port int, timeout time.Duration, opts ...Option) (*Client, error) {
	return NewClient(ProtocolEIO, NewNetworkEndpoint(host, port), timeout, opts...)
}

// NewClientWithTransport creates a client on top of an already open transport.
// Connect must still be called; it adopts tr instead of dialing.
func NewClientWithTransport(protocol Protocol, tr Transport, timeout time.Duration, opts ...Option) (*Client, error) {
	if !protocol.valid() {
		return nil, paramErrorf("unsupported protocol %s", protocol)
	}
	if tr == nil {
		return nil, paramErrorf("transport is nil")
	}
	c := newClient(protocol, timeout, opts)
	c.dial = func(context.Context) (Transport, error) {
		return tr, nil
	}
	return c, nil
}

func newClient(protocol Protocol, timeout time.Duration, opts []Option) *Client {
	c := &Client{
		protocol: protocol,
		timeout:  timeout,
		station:  DEFAULT_STATION,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Protocol returns the controller family of the client.
func (c *Client) Protocol() Protocol {
	return c.protocol
}

// Endpoint returns where the client dials. It is empty for injected transports.
func (c *Client) Endpoint() Endpoint {
	return c.endpoint
}

// SetTimeout sets the per-operation deadline covering the request write and the whole reply.
// A timeout of zero blocks until the caller's context ends.
func (c *Client) SetTimeout(t time.Duration) {
	c.confMu.Lock()
	defer c.confMu.Unlock()
	c.timeout = t
}

func (c *Client) Timeout() time.Duration {
	c.confMu.RLock()
	defer c.confMu.RUnlock()
	return c.timeout
}

// SetStation sets the Newtocol station number. Other protocols ignore it.
func (c *Client) SetStation(station byte) {
	c.confMu.Lock()
	defer c.confMu.Unlock()
	c.station = station
}

func (c *Client) Station() byte {
	c.confMu.RLock()
	defer c.confMu.RUnlock()
	return c.station
}

// SetLogger sets the logger used for frame tracing and I/O warnings.
// A nil logger disables logging.
func (c *Client) SetLogger(logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	} else {
		logger = logger.Named("PLC")
	}
	c.confMu.Lock()
	defer c.confMu.Unlock()
	c.logger = logger
}

func (c *Client) Logger() *zap.Logger {
	c.confMu.RLock()
	defer c.confMu.RUnlock()
	if c.logger == nil {
		return zap.NewNop()
	}
	return c.logger
}

// SetInterceptor sets an interceptor that wraps every Read and Write.
// Use ChainInterceptors to combine several.
func (c *Client) SetInterceptor(interceptor Interceptor) {
	c.interceptorMu.Lock()
	defer c.interceptorMu.Unlock()
	c.interceptor = interceptor
}

// Use registers plugins. Each plugin is initialized once with the client.
func (c *Client) Use(plugins ...Plugin) error {
	return c.plugins.use(c, plugins...)
}

// IsConnected reports whether Connect succeeded and the peer has not closed the connection since.
func (c *Client) IsConnected() bool {
	return c.connected.Load()
}

// Connect opens the transport, replacing any existing one. The dial is bounded by the client timeout.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tr != nil {
		_ = c.tr.Close()
		c.tr = nil
		c.connected.Store(false)
	}

	dialCtx, cancel := c.withTimeout(ctx)
	defer cancel()

	tr, err := c.dial(dialCtx)
	if err != nil {
		return c.ioError(ctx, "connect", err)
	}
	c.tr = tr
	c.connected.Store(true)
	c.Logger().Info("connected",
		zap.Stringer("protocol", c.protocol),
		zap.Stringer("endpoint", c.endpoint),
	)
	c.plugins.notifyConnected(c)
	return nil
}

// Reconnect drops the current connection with any reply still in flight and dials a
// fresh one. Clients built on an injected transport cannot redial.
func (c *Client) Reconnect(ctx context.Context) error {
	if !c.redial {
		return paramErrorf("client on an injected transport cannot reconnect")
	}
	return c.Connect(ctx)
}

// Disconnect closes the transport. It is safe to call on a closed client.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tr == nil {
		return nil
	}
	err := c.tr.Close()
	c.tr = nil
	c.connected.Store(false)
	c.Logger().Info("disconnected", zap.Stringer("protocol", c.protocol))
	c.plugins.notifyDisconnected(c, nil)
	return err
}

// Read reads count units starting at register name.
// Bit reads return one 0/1 value per point, Word reads one value per 16-bit unit.
func (c *Client) Read(ctx context.Context, name string, dataType DataType, count uint16) ([]uint16, error) {
	info := &InterceptorInfo{
		Operation: OpRead,
		Protocol:  c.protocol,
		Register:  name,
		DataType:  dataType,
		Count:     count,
	}
	result, err := c.invoke(ctx, info, func(ctx context.Context) (interface{}, error) {
		req, err := c.readRequest(name, dataType, count)
		if err != nil {
			return nil, err
		}
		return c.exchange(ctx, OpRead, req)
	})
	if err != nil {
		return nil, err
	}
	values, _ := result.([]uint16)
	return values, nil
}

// Write writes values starting at register name. Bit values must be 0 or 1.
func (c *Client) Write(ctx context.Context, name string, dataType DataType, values []uint16) error {
	info := &InterceptorInfo{
		Operation: OpWrite,
		Protocol:  c.protocol,
		Register:  name,
		DataType:  dataType,
		Count:     uint16(len(values)),
		Data:      values,
	}
	_, err := c.invoke(ctx, info, func(ctx context.Context) (interface{}, error) {
		req, err := c.writeRequest(name, dataType, values)
		if err != nil {
			return nil, err
		}
		return c.exchange(ctx, OpWrite, req)
	})
	return err
}

func (c *Client) readRequest(name string, dataType DataType, count uint16) (request, error) {
	switch c.protocol {
	case ProtocolMC3E:
		return mcReadRequest(name, dataType, count)
	case ProtocolNewtocol:
		return newtocolReadRequest(name, dataType, count, c.Station())
	case ProtocolEIO:
		return eioReadRequest(name, dataType, count)
	}
	return request{}, paramErrorf("unsupported protocol %s", c.protocol)
}

func (c *Client) writeRequest(name string, dataType DataType, values []uint16) (request, error) {
	if len(values) > 0xFFFF {
		return request{}, paramErrorf("write length %d out of range", len(values))
	}
	switch c.protocol {
	case ProtocolMC3E:
		return mcWriteRequest(name, dataType, values)
	case ProtocolNewtocol:
		return newtocolWriteRequest(name, dataType, values, c.Station())
	case ProtocolEIO:
		return eioWriteRequest(name, dataType, values)
	}
	return request{}, paramErrorf("unsupported protocol %s", c.protocol)
}

// exchange sends one request frame and accumulates reply bytes until the classifier
// reaches a terminal outcome or the deadline passes.
func (c *Client) exchange(ctx context.Context, op OperationType, req request) ([]uint16, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	tr := c.tr
	if tr == nil || !c.connected.Load() {
		return nil, NotConnectedError{}
	}

	opCtx, cancel := c.withTimeout(ctx)
	defer cancel()

	logger := c.Logger()
	logger.Debug("send",
		zap.String("operation", string(op)),
		zap.Stringer("protocol", c.protocol),
		zap.Binary("frame", req.frame),
	)
	if err := tr.Write(opCtx, req.frame); err != nil {
		return nil, c.ioError(ctx, "write request", err)
	}

	reply := make([]byte, 0, READ_CHUNK_SIZE)
	chunk := make([]byte, READ_CHUNK_SIZE)
	for {
		n, err := tr.Read(opCtx, chunk)
		if n > 0 {
			reply = append(reply, chunk[:n]...)
			out := req.classify(reply)
			switch out.Status {
			case Valid:
				logger.Debug("reply", zap.Binary("frame", out.Frame))
				if req.decode == nil {
					return nil, nil
				}
				return req.decode(out.Frame)
			case Rejected:
				logger.Warn("device rejected request", zap.String("operation", string(op)), zap.Error(out.Err))
				return nil, out.Err
			case Malformed:
				logger.Warn("malformed reply", zap.Binary("reply", reply), zap.Error(out.Err))
				return nil, out.Err
			}
			logger.Debug("partial reply", zap.Int("bytes", len(reply)))
			if len(reply) >= req.maxReply {
				return nil, commErrorf("read reply", "no complete frame in %d bytes", len(reply))
			}
		}
		if err != nil {
			return nil, c.ioError(ctx, "read reply", err)
		}
		if n == 0 {
			return nil, c.peerClosed("read reply")
		}
	}
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if timeout := c.Timeout(); timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return context.WithCancel(ctx)
}

// ioError maps a transport error. ctx is the caller's context: its own cancellation
// or deadline is returned as is, while the client deadline becomes ResponseTimeoutError.
func (c *Client) ioError(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, os.ErrDeadlineExceeded):
		timeout := c.Timeout()
		c.Logger().Warn("response timeout, reconnect before the next request",
			zap.String("op", op),
			zap.Duration("timeout", timeout),
		)
		return ResponseTimeoutError{Timeout: timeout}
	case errors.Is(err, io.EOF):
		return c.peerClosed(op)
	}
	c.Logger().Warn("transport failure", zap.String("op", op), zap.Error(err))
	return CommError{Op: op, Err: err}
}

// peerClosed releases a transport whose peer hung up. Called with c.mu held.
func (c *Client) peerClosed(op string) error {
	err := CommError{Op: op, Err: errors.New("connection closed by peer")}
	if c.tr != nil {
		_ = c.tr.Close()
		c.tr = nil
	}
	if c.connected.Swap(false) {
		c.Logger().Warn("connection closed by peer", zap.Stringer("protocol", c.protocol))
		c.plugins.notifyDisconnected(c, err)
	}
	return err
}
