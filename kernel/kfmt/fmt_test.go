package kfmt

import (
	"bytes"
	"testing"
)

func TestFprintf(t *testing.T) {
	specs := []struct {
		format string
		args   []interface{}
		exp    string
	}{
		{"no verbs", nil, "no verbs"},
		{"%s", []interface{}{"foo"}, "foo"},
		{"%s", []interface{}{[]byte("bar")}, "bar"},
		{"%5s|", []interface{}{"ab"}, "   ab|"},
		{"%d", []interface{}{42}, "42"},
		{"%d", []interface{}{-42}, "-42"},
		{"%d", []interface{}{uint64(1<<64 - 1)}, "18446744073709551615"},
		{"%5d|", []interface{}{123}, "  123|"},
		{"%x", []interface{}{uint8(0xaf)}, "af"},
		{"%4x|", []interface{}{uint16(0xaf)}, "00af|"},
		{"%o", []interface{}{8}, "10"},
		{"%t %t", []interface{}{true, false}, "true false"},
		{"%%", nil, "%"},
		{"%d and %s", []interface{}{1, "two"}, "1 and two"},
		{"%d", nil, "(MISSING)"},
		{"%t", []interface{}{"not a bool"}, "%!(WRONGTYPE)"},
		{"%d", []interface{}{"not an int"}, "%!(WRONGTYPE)"},
		{"trailing %", nil, "trailing %!(NOVERB)"},
	}

	for specIndex, spec := range specs {
		var buf bytes.Buffer
		Fprintf(&buf, spec.format, spec.args...)

		if got := buf.String(); got != spec.exp {
			t.Errorf("[spec %02d] expected %q; got %q", specIndex, spec.exp, got)
		}
	}
}
