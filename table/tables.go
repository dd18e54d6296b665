// Package table provides the ACPI table structures required for locating and
// accessing the AML byte-code contained in the system's DSDT and SSDT tables.
package table

import (
	"unsafe"
)

// Resolver is an interface implemented by objects that can lookup an ACPI table
// by its name.
//
// LookupTable attempts to locate a table by name returning back a pointer to
// its standard header or nil if the table could not be found. The resolver
// must make sure that the entire table contents are mapped so they can be
// accessed by the caller.
type Resolver interface {
	LookupTable(string) *SDTHeader
}

// SDTHeader defines the common header for all ACPI-related tables.
type SDTHeader struct {
	// The signature defines the table type.
	Signature [4]byte

	// The length of the table
	Length uint32

	// If this header belongs to a DSDT/SSDT table, the revision is also
	// used to indicate whether the AML VM should treat integers as 32-bits
	// (revision < 2) or 64-bits (revision >= 2).
	Revision uint8

	// A value that when added to the sum of all other bytes in the table
	// should result in the value 0.
	Checksum uint8

	// OEM specific information
	OEMID       [6]byte
	OEMTableID  [8]byte
	OEMRevision uint32

	// Information about the ASL compiler that generated this table
	CreatorID       uint32
	CreatorRevision uint32
}

// Payload returns the contents of the table that follow the standard header
// as a byte slice. For DSDT/SSDT tables this is the raw AML byte-code stream.
func Payload(header *SDTHeader) []byte {
	payloadLen := header.Length - uint32(unsafe.Sizeof(*header))
	payloadPtr := unsafe.Add(unsafe.Pointer(header), unsafe.Sizeof(*header))
	return unsafe.Slice((*byte)(payloadPtr), payloadLen)
}
