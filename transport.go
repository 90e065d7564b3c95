package plclink

import (
	"context"
	"net"
	"time"
)

const (
	TCP_KEEPALIVE_PERIOD = 30 * time.Second
)

// Transport is the byte pipe a client talks through. Both calls honour the deadline
// and cancellation of ctx. Read returning 0 bytes with a nil error, or io.EOF, means the
// peer closed the connection.
type Transport interface {
	Write(ctx context.Context, payload []byte) error
	Read(ctx context.Context, buf []byte) (int, error)
	Close() error
}

// tcpTransport is a thin wrapper around net.Conn to satisfy the Transport interface.
type tcpTransport struct {
	conn net.Conn
}

func dialTCP(ctx context.Context, addr NetworkAddress) (*tcpTransport, error) {
	dialer := net.Dialer{
		KeepAlive: TCP_KEEPALIVE_PERIOD,
	}
	conn, err := dialer.DialContext(ctx, "tcp", addr.String())
	if err != nil {
		return nil, err
	}

	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetKeepAlive(true)
		_ = tc.SetNoDelay(true)
	}

	return &tcpTransport{conn: conn}, nil
}

// NewConnTransport wraps an already established stream connection.
func NewConnTransport(conn net.Conn) Transport {
	return &tcpTransport{conn: conn}
}

func (t *tcpTransport) Write(ctx context.Context, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = t.conn.SetWriteDeadline(deadline)
	} else {
		_ = t.conn.SetWriteDeadline(time.Time{})
	}

	stop := context.AfterFunc(ctx, func() {
		_ = t.conn.SetWriteDeadline(time.Now())
	})
	defer stop()

	// net.Conn.Write either writes everything or returns an error.
	_, err := t.conn.Write(payload)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

func (t *tcpTransport) Read(ctx context.Context, buf []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = t.conn.SetReadDeadline(deadline)
	} else {
		_ = t.conn.SetReadDeadline(time.Time{})
	}

	stop := context.AfterFunc(ctx, func() {
		_ = t.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	n, err := t.conn.Read(buf)
	if err != nil && n == 0 && ctx.Err() != nil {
		return 0, ctx.Err()
	}
	return n, err
}

func (t *tcpTransport) Close() error {
	return t.conn.Close()
}
