// Package endian provides byte order utilities for binary encoding and
// decoding.
//
// It combines ByteOrder and AppendByteOrder from encoding/binary into
// a single EndianEngine interface, so bitio.Reader holds one field
// instead of hardcoding binary.LittleEndian.Uint16/Uint32 call sites.
// HPS's own binary payloads are little-endian throughout (spec.md
// §4.1), so GetLittleEndianEngine is the only constructor this
// package needs.
package endian

import "encoding/binary"

// EndianEngine combines ByteOrder and AppendByteOrder interfaces from encoding/binary
// into a single interface for convenient byte order operations.
//
// This interface is satisfied by binary.LittleEndian and binary.BigEndian from
// the standard library, making it fully compatible with existing Go code while
// providing access to both read/write and append operations.
type EndianEngine interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

// GetLittleEndianEngine returns the little-endian engine.
func GetLittleEndianEngine() EndianEngine {
	return binary.LittleEndian
}
