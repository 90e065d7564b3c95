package plclink

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// NopClient implements PLCClient with no-op behavior.
// Useful for tests or placeholders where a real PLC connection is not required.
// Reads return count zero values.
type NopClient struct{}

func (NopClient) Connect(context.Context) error { return nil }
func (NopClient) Disconnect() error             { return nil }
func (NopClient) IsConnected() bool             { return true }
func (NopClient) Read(_ context.Context, _ string, _ DataType, count uint16) ([]uint16, error) {
	return make([]uint16, count), nil
}
func (NopClient) Write(context.Context, string, DataType, []uint16) error { return nil }
func (NopClient) SetTimeout(time.Duration)                                {}
func (NopClient) Timeout() time.Duration                                  { return 0 }
func (NopClient) SetStation(byte)                                         {}
func (NopClient) Station() byte                                           { return DEFAULT_STATION }
func (NopClient) SetLogger(*zap.Logger)                                   {}
func (NopClient) Protocol() Protocol                                      { return 0 }
func (NopClient) SetInterceptor(Interceptor)                              {}
func (NopClient) Use(...Plugin) error                                     { return nil }

var _ PLCClient = NopClient{}
