package plclink

// ValidationInterceptor creates an interceptor that rejects empty operations and bit
// writes carrying values other than 0 or 1 before they reach the client.
//
// Example:
//
//	client.SetInterceptor(plclink.ValidationInterceptor())
//
//	// This will fail validation
//	_, err := client.Read(ctx, "D100", plclink.Word, 0)
//	// Error: invalid parameter: invalid read count: 0
func ValidationInterceptor() Interceptor {
	return ValidationInterceptorWithLimits(MC_MAX_READ_POINTS, MC_MAX_WRITE_POINTS)
}

// ValidationInterceptorWithLimits creates a validation interceptor with custom limits
// maxReadCount: maximum number of points or words read in a single operation
// maxWriteCount: maximum number of points or words written in a single operation
//
// Example:
//
//	client.SetInterceptor(plclink.ValidationInterceptorWithLimits(64, 16))
func ValidationInterceptorWithLimits(maxReadCount, maxWriteCount uint16) Interceptor {
	return func(c *InterceptorCtx) (interface{}, error) {
		info := c.Info()
		switch info.Operation {
		case OpRead:
			if info.Count == 0 {
				return nil, paramErrorf("invalid read count: 0")
			}
			if info.Count > maxReadCount {
				return nil, paramErrorf("read count too large: %d (max %d)", info.Count, maxReadCount)
			}

		case OpWrite:
			if len(info.Data) == 0 {
				return nil, paramErrorf("invalid write data: empty slice")
			}
			if len(info.Data) > int(maxWriteCount) {
				return nil, paramErrorf("write count too large: %d (max %d)", len(info.Data), maxWriteCount)
			}
			if info.DataType == Bit {
				for i, v := range info.Data {
					if v > 1 {
						return nil, paramErrorf("bit value %d at index %d is not 0 or 1", v, i)
					}
				}
			}
		}

		return c.Invoke(nil)
	}
}

// AddressRange is an inclusive offset range within one register category.
type AddressRange struct {
	Min, Max uint32
}

// AddressRangeValidator creates an interceptor that validates address ranges
// It ensures operations only access allowed register categories and offsets.
// Keys are category headers as returned by Register.Header ("D", "M", "X", ...);
// EIO points have an empty header.
//
// Example:
//
//	// Only allow D0-D999 and M0-M99
//	validator := plclink.AddressRangeValidator(map[string]plclink.AddressRange{
//		"D": {Min: 0, Max: 999},
//		"M": {Min: 0, Max: 99},
//	})
//	client.SetInterceptor(validator)
func AddressRangeValidator(allowedRanges map[string]AddressRange) Interceptor {
	return func(c *InterceptorCtx) (interface{}, error) {
		info := c.Info()
		reg, err := ParseRegister(info.Protocol, info.Register, info.DataType)
		if err != nil {
			return nil, err
		}

		addrRange, allowed := allowedRanges[reg.Header()]
		if !allowed {
			return nil, paramErrorf("register category %q is not allowed", reg.Header())
		}

		if reg.Offset() < addrRange.Min || reg.Offset() > addrRange.Max {
			return nil, paramErrorf("register %s is outside allowed range [%d-%d]",
				info.Register, addrRange.Min, addrRange.Max)
		}

		if info.Count > 0 {
			end := uint64(reg.Offset()) + uint64(info.Count) - 1
			if end > uint64(addrRange.Max) {
				return nil, paramErrorf("operation would access offset %d, which exceeds max %d",
					end, addrRange.Max)
			}
		}

		return c.Invoke(nil)
	}
}

// ReadOnlyInterceptor creates an interceptor that blocks all write operations
//
// Example:
//
//	client.SetInterceptor(plclink.ReadOnlyInterceptor())
func ReadOnlyInterceptor() Interceptor {
	return func(c *InterceptorCtx) (interface{}, error) {
		info := c.Info()
		if info.Operation == OpWrite {
			return nil, paramErrorf("write to %s is not allowed in read-only mode", info.Register)
		}

		return c.Invoke(nil)
	}
}
