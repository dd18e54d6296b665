package aml

import "testing"

// encodePkgLength is the encoder counterpart of parsePkgLength; it is used by
// the tests to assemble AML fragments.
func encodePkgLength(pkgLen uint32) []byte {
	switch {
	case pkgLen <= 0x3f:
		return []byte{byte(pkgLen)}
	case pkgLen <= 0xfff:
		return []byte{
			byte(1<<6) | byte(pkgLen&0x0f),
			byte(pkgLen >> 4),
		}
	case pkgLen <= 0xfffff:
		return []byte{
			byte(2<<6) | byte(pkgLen&0x0f),
			byte(pkgLen >> 4),
			byte(pkgLen >> 12),
		}
	default:
		return []byte{
			byte(3<<6) | byte(pkgLen&0x0f),
			byte(pkgLen >> 4),
			byte(pkgLen >> 12),
			byte(pkgLen >> 20),
		}
	}
}

func TestPkgLengthRoundTrip(t *testing.T) {
	specs := []uint32{
		0, 1, 0x3e, 0x3f,
		0x40, 0x41, 0xffe, 0xfff,
		0x1000, 0x1001, 0xffffe, 0xfffff,
		0x100000, 0x100001, 0xfffffff - 1, 0xfffffff,
	}

	for specIndex, pkgLen := range specs {
		enc := encodePkgLength(pkgLen)

		got, consumed, err := parsePkgLength(enc)
		if err != nil {
			t.Errorf("[spec %02d] unexpected error: %v", specIndex, err)
			continue
		}

		if got != pkgLen {
			t.Errorf("[spec %02d] expected decoded length to be %d; got %d", specIndex, pkgLen, got)
		}

		if consumed != len(enc) {
			t.Errorf("[spec %02d] expected decoder to consume %d bytes; got %d", specIndex, len(enc), consumed)
		}
	}
}

func TestPkgLengthErrors(t *testing.T) {
	specs := [][]byte{
		nil,
		{0x40},             // lead byte requires 1 extra byte
		{0x80, 0x01},       // lead byte requires 2 extra bytes
		{0xc0, 0x01, 0x02}, // lead byte requires 3 extra bytes
	}

	for specIndex, spec := range specs {
		if _, _, err := parsePkgLength(spec); err != errTruncatedPkgLength {
			t.Errorf("[spec %02d] expected errTruncatedPkgLength; got %v", specIndex, err)
		}
	}
}
