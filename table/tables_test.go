package table

import (
	"testing"
	"unsafe"
)

func TestPayload(t *testing.T) {
	headerLen := int(unsafe.Sizeof(SDTHeader{}))
	raw := make([]byte, headerLen+4)
	copy(raw, "DSDT")
	raw[headerLen] = 0xde
	raw[headerLen+1] = 0xad
	raw[headerLen+2] = 0xbe
	raw[headerLen+3] = 0xef

	header := (*SDTHeader)(unsafe.Pointer(&raw[0]))
	header.Length = uint32(len(raw))
	header.Revision = 2

	payload := Payload(header)
	if len(payload) != 4 {
		t.Fatalf("expected a 4-byte payload; got %d bytes", len(payload))
	}

	for i, exp := range []byte{0xde, 0xad, 0xbe, 0xef} {
		if payload[i] != exp {
			t.Errorf("expected payload byte %d to be %x; got %x", i, exp, payload[i])
		}
	}

	if string(header.Signature[:]) != "DSDT" {
		t.Errorf("expected signature DSDT; got %q", string(header.Signature[:]))
	}
}
