/*
Package plclink reads and writes named registers on industrial controllers through
one client API, whatever the wire protocol underneath.

Three controller families are supported:

  - ProtocolMC3E: Mitsubishi MC protocol, 3E binary frames over TCP
  - ProtocolNewtocol: Panasonic Newtocol ASCII frames over TCP or a serial line
  - ProtocolEIO: IPCSUN EIO1608I digital IO module, text lines over TCP

# Quick Start

	import (
		"context"
		"log"
		"time"

		"github.com/bronystylecrazy/plclink"
	)

	func main() {
		client, err := plclink.NewMcClient("192.168.1.10", 5000, 300*time.Millisecond)
		if err != nil {
			log.Fatal(err)
		}

		ctx := context.Background()
		if err := client.Connect(ctx); err != nil {
			log.Fatal(err)
		}
		defer client.Disconnect()

		// Read ten words starting at D10
		data, err := client.Read(ctx, "D10", plclink.Word, 10)
		if err != nil {
			log.Printf("Read error: %v", err)
			return
		}
		log.Printf("Data: %v", data)

		// Switch on three relays starting at M100
		err = client.Write(ctx, "M100", plclink.Bit, []uint16{1, 1, 1})
		if err != nil {
			log.Printf("Write error: %v", err)
		}
	}

A Newtocol controller on a serial line:

	cfg := plclink.DefaultSerialConfig("/dev/ttyUSB0") // 9600 8O1
	client, err := plclink.NewNewtocolClient(plclink.NewSerialEndpoint(cfg), time.Second,
		plclink.WithStation(1))

# Registers

A register name is a category header followed by a number, e.g. "D100", "X1F", "R0010".
The header selects the device table of the protocol; see ParseMcRegister,
ParseNewtocolRegister and ParseEioRegister. MC X, Y, B, W, SB, SW, DX, DY and ZR offsets
are hexadecimal, all other numbers decimal. EIO registers are bare point numbers 1-16.

Bit operations carry one 0/1 value per point. Word operations carry one 16-bit value per
unit; multi-word values are assembled by the caller.

# Timeouts

The client timeout bounds one whole operation: request write plus every reply chunk.
When it expires the call returns ResponseTimeoutError and the connection is kept, but its
reply position is undefined, so call Reconnect before the next request. The retry
interceptors never resend a timed out request on the same connection. The caller's context
applies as well; its own cancellation or deadline is returned unchanged.

If the peer closes the connection the client releases it and IsConnected reports false.

# Error Handling

Every error maps to an ErrorKind through KindOf:

  - ParamError - invalid count, length or bit value (KindInvalidParameter)
  - AddressError - unknown category or bad number (KindInvalidAddress)
  - NotConnectedError - no open connection (KindNotConnected)
  - ResponseTimeoutError - the client deadline passed (KindTimeout)
  - CommError - transport failure or malformed reply (KindCommunication)
  - DeviceError - the controller rejected the request (KindDevice)

Parameter and address errors are reported before any I/O and before the connection check.

# Interceptors

Interceptors wrap every Read and Write:

	logger, _ := zap.NewProduction()
	metrics := plclink.NewMetricsCollector()

	client.SetInterceptor(plclink.ChainInterceptors(
		plclink.LoggingInterceptor(logger),
		metrics.Interceptor(),
		plclink.ValidationInterceptor(),
		plclink.RetryInterceptor(2, 50*time.Millisecond),
	))

# Plugins

Plugins attach to a client with Use. A ConnectionPlugin is told about every connect and
disconnect; ConnectionWatchdog tracks uptime and peer closes:

	watchdog := plclink.NewConnectionWatchdog(0)
	client.Use(watchdog)

	for evt := range watchdog.Events() {
		log.Printf("%s %s: %v", evt.Type, evt.Endpoint, evt.Err)
	}

# Thread Safety

The Client is safe for concurrent use. Operations are serialized on the single
connection: one request and its reply complete before the next request is written.
*/
package plclink
