package aml

import "testing"

func TestDecodeNameString(t *testing.T) {
	specs := []struct {
		input       []byte
		expName     string
		expConsumed int
	}{
		// Single segment
		{[]byte("PCI0"), "PCI0", 4},
		// Root-anchored single segment
		{[]byte("\\_SB_"), "\\_SB_", 5},
		// Parent escapes
		{[]byte("^^FOO0"), "^^FOO0", 6},
		// Dual name
		{[]byte{dualNamePrefix, 'P', 'C', 'I', '0', 'S', 'B', 'R', 'G'}, "PCI0.SBRG", 9},
		// Root-anchored dual name
		{[]byte{rootChar, dualNamePrefix, '_', 'S', 'B', '_', 'P', 'C', 'I', '0'}, "\\_SB_.PCI0", 10},
		// Multi name
		{[]byte{multiNamePrefix, 3, '_', 'S', 'B', '_', 'P', 'C', 'I', '0', 'S', 'B', 'R', 'G'}, "_SB_.PCI0.SBRG", 14},
		// Null name
		{[]byte{nullName}, "", 1},
		// Root-only
		{[]byte{rootChar, nullName}, "\\", 2},
	}

	for specIndex, spec := range specs {
		name, consumed, err := decodeNameString(spec.input)
		if err != nil {
			t.Errorf("[spec %02d] unexpected error: %v", specIndex, err)
			continue
		}

		if name != spec.expName {
			t.Errorf("[spec %02d] expected name %q; got %q", specIndex, spec.expName, name)
		}

		if consumed != spec.expConsumed {
			t.Errorf("[spec %02d] expected %d consumed bytes; got %d", specIndex, spec.expConsumed, consumed)
		}
	}
}

func TestDecodeNameStringErrors(t *testing.T) {
	specs := [][]byte{
		nil,
		{parentChar},
		{dualNamePrefix, 'A', 'B', 'C', 'D'},
		{multiNamePrefix},
		{multiNamePrefix, 2, 'A', 'B', 'C', 'D'},
		{'A', 'B', 'C'},
	}

	for specIndex, spec := range specs {
		if _, _, err := decodeNameString(spec); err != errTruncatedName {
			t.Errorf("[spec %02d] expected errTruncatedName; got %v", specIndex, err)
		}
	}
}

func TestPathHelpers(t *testing.T) {
	t.Run("pathParent", func(t *testing.T) {
		specs := []struct {
			input string
			exp   string
		}{
			{`\_SB_.PCI0.SBRG`, `\_SB_.PCI0`},
			{`\_SB_.PCI0`, `\_SB_`},
			{`\_SB_`, `\`},
			{`\`, ""},
			{"", ""},
		}

		for specIndex, spec := range specs {
			if got := pathParent(spec.input); got != spec.exp {
				t.Errorf("[spec %02d] expected parent of %q to be %q; got %q", specIndex, spec.input, spec.exp, got)
			}
		}
	})

	t.Run("pathLastSegment", func(t *testing.T) {
		specs := []struct {
			input string
			exp   string
		}{
			{`\_SB_.PCI0.SBRG`, "SBRG"},
			{`\_SB_`, "_SB_"},
			{"FOO0", "FOO0"},
		}

		for specIndex, spec := range specs {
			if got := pathLastSegment(spec.input); got != spec.exp {
				t.Errorf("[spec %02d] expected last segment of %q to be %q; got %q", specIndex, spec.input, spec.exp, got)
			}
		}
	})
}

func TestResolveScopePath(t *testing.T) {
	specs := []struct {
		scope string
		name  string
		exp   string
	}{
		{`\_SB_.PCI0`, "SBRG", `\_SB_.PCI0.SBRG`},
		{`\_SB_.PCI0`, "^FOO0", `\_SB_.FOO0`},
		{`\_SB_.PCI0`, "^^FOO0", `\FOO0`},
		{`\_SB_.PCI0`, "^^^^FOO0", `\FOO0`},
		{`\_SB_.PCI0`, `\FOO0`, `\FOO0`},
		{`\_SB_.PCI0`, `\`, `\`},
		{`\`, "FOO0.BAR0", `\FOO0.BAR0`},
		{`\_SB_`, "", `\_SB_`},
	}

	for specIndex, spec := range specs {
		if got := resolveScopePath(spec.scope, spec.name); got != spec.exp {
			t.Errorf("[spec %02d] expected resolveScopePath(%q, %q) to return %q; got %q",
				specIndex, spec.scope, spec.name, spec.exp, got)
		}
	}
}
