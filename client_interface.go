package plclink

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// PLC is the capability every controller client offers, whatever its protocol.
type PLC interface {
	Connect(ctx context.Context) error
	Disconnect() error
	IsConnected() bool
	Read(ctx context.Context, name string, dataType DataType, count uint16) ([]uint16, error)
	Write(ctx context.Context, name string, dataType DataType, values []uint16) error
}

// Configuration operations.
type ClientConfig interface {
	SetTimeout(t time.Duration)
	Timeout() time.Duration
	SetStation(station byte)
	Station() byte
	SetLogger(logger *zap.Logger)
	Protocol() Protocol
}

// Interceptor/plugin hooks.
type ClientHooks interface {
	SetInterceptor(interceptor Interceptor)
	Use(plugins ...Plugin) error
}

// PLCClient defines the public contract of Client for easier testing/mocking.
type PLCClient interface {
	PLC
	ClientConfig
	ClientHooks
}

// Ensure Client implements the interface.
var _ PLCClient = (*Client)(nil)
