package tf

import (
	"fmt"
	"runtime"
	"unsafe"

	"google.golang.org/protobuf/encoding/protowire"
)

// validateConfigPayload structurally scans a serialized ConfigProto so a
// malformed payload is rejected before any native object is created. The
// native TF_SetConfig parse remains authoritative for semantic validity.
func validateConfigPayload(payload []byte) error {
	b := payload
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%w: %v", ErrMalformedPayload, protowire.ParseError(n))
		}
		if num < 1 {
			return fmt.Errorf("%w: invalid field number %d", ErrMalformedPayload, num)
		}
		b = b[n:]
		n = protowire.ConsumeFieldValue(num, typ, b)
		if n < 0 {
			return fmt.Errorf("%w: field %d: %v", ErrMalformedPayload, num, protowire.ParseError(n))
		}
		b = b[n:]
	}
	return nil
}

// appendDeviceAttributes serializes one device record using the
// DeviceAttributes wire layout (name=1, device_type=2, memory_limit=4,
// incarnation=6).
func appendDeviceAttributes(dst []byte, name, deviceType string, memoryLimit int64, incarnation uint64) []byte {
	dst = protowire.AppendTag(dst, 1, protowire.BytesType)
	dst = protowire.AppendString(dst, name)
	dst = protowire.AppendTag(dst, 2, protowire.BytesType)
	dst = protowire.AppendString(dst, deviceType)
	dst = protowire.AppendTag(dst, 4, protowire.VarintType)
	dst = protowire.AppendVarint(dst, uint64(memoryLimit))
	dst = protowire.AppendTag(dst, 6, protowire.Fixed64Type)
	dst = protowire.AppendFixed64(dst, incarnation)
	return dst
}

// ListDevices enumerates the execution devices available under the given
// session configuration (or the default configuration when configProto is
// empty). It returns one serialized device-attribute record per device.
//
// The query has no relation to any caller-visible session: it creates a
// throwaway graph and session purely for introspection and releases every
// native object before returning, on success and failure alike.
func ListDevices(configProto []byte) ([][]byte, error) {
	if len(configProto) > 0 {
		if err := validateConfigPayload(configProto); err != nil {
			return nil, err
		}
	}

	if tfNewGraphFunc == nil || tfNewSessionFunc == nil || tfNewSessionOptionsFunc == nil ||
		tfSessionListDevicesFunc == nil || tfDeviceListCountFunc == nil ||
		tfDeviceListNameFunc == nil || tfDeviceListTypeFunc == nil ||
		tfDeviceListMemoryBytesFunc == nil || tfDeviceListIncarnationFunc == nil ||
		tfNewStatusFunc == nil {
		return nil, ErrNotInitialized
	}

	var cleanups []func()
	defer func() { releaseAll(cleanups...) }()

	status := newStatus()
	cleanups = append(cleanups, func() { releaseStatus(status) })

	graph := tfNewGraphFunc()
	cleanups = append(cleanups, func() {
		if tfDeleteGraphFunc != nil {
			tfDeleteGraphFunc(graph)
		}
	})

	options := tfNewSessionOptionsFunc()
	cleanups = append(cleanups, func() {
		if tfDeleteSessionOptionsFunc != nil {
			tfDeleteSessionOptionsFunc(options)
		}
	})

	if len(configProto) > 0 {
		if tfSetConfigFunc == nil {
			return nil, ErrNotInitialized
		}
		tfSetConfigFunc(options, unsafe.Pointer(unsafe.SliceData(configProto)), uintptr(len(configProto)), status)
		runtime.KeepAlive(configProto)
		if err := statusErr(status); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
		}
	}

	session := tfNewSessionFunc(graph, options, status)
	if err := statusErr(status); err != nil {
		return nil, err
	}
	cleanups = append(cleanups, func() {
		if tfCloseSessionFunc != nil {
			st := newStatus()
			tfCloseSessionFunc(session, st)
			releaseStatus(st)
		}
		if tfDeleteSessionFunc != nil {
			st := newStatus()
			tfDeleteSessionFunc(session, st)
			releaseStatus(st)
		}
	})

	list := tfSessionListDevicesFunc(session, status)
	if err := statusErr(status); err != nil {
		return nil, err
	}
	cleanups = append(cleanups, func() {
		if tfDeleteDeviceListFunc != nil {
			tfDeleteDeviceListFunc(list)
		}
	})

	count := tfDeviceListCountFunc(list)
	devices := make([][]byte, 0, count)
	for i := int32(0); i < count; i++ {
		name := tfDeviceListNameFunc(list, i, status)
		if err := statusErr(status); err != nil {
			return nil, err
		}
		deviceType := tfDeviceListTypeFunc(list, i, status)
		if err := statusErr(status); err != nil {
			return nil, err
		}
		memoryBytes := tfDeviceListMemoryBytesFunc(list, i, status)
		if err := statusErr(status); err != nil {
			return nil, err
		}
		incarnation := tfDeviceListIncarnationFunc(list, i, status)
		if err := statusErr(status); err != nil {
			return nil, err
		}

		devices = append(devices, appendDeviceAttributes(nil, name, deviceType, memoryBytes, incarnation))
	}

	return devices, nil
}
