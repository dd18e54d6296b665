// Package kfmt provides a minimal, allocation-free Fprintf implementation
// that can be safely used by code that runs before the full Go runtime
// facilities become available.
package kfmt

import "io"

// maxBufSize defines the buffer size for formatting numbers.
const maxBufSize = 32

var (
	errMissingArg   = []byte("(MISSING)")
	errWrongArgType = []byte("%!(WRONGTYPE)")
	errNoVerb       = []byte("%!(NOVERB)")
	trueValue       = []byte("true")
	falseValue      = []byte("false")

	// singleByte is used as a shared buffer for passing single characters
	// to doWrite.
	singleByte = []byte(" ")
)

// Fprintf formats its arguments according to format and writes the output to
// w. It supports the following subset of formatting verbs:
//
// Strings:
//		%s the uninterpreted bytes of the string or byte slice
//
// Integers:
//		%o base 8
//		%d base 10
//		%x base 16, with lower-case letters for a-f
//
// Booleans:
//		%t "true" or "false"
//
// Width is specified by an optional decimal number immediately preceding the
// verb. If absent, the width is whatever is necessary to represent the value.
// String values and base-10 integers shorter than the specified width are
// left-padded with spaces; base-16 and base-8 integers are left-padded with
// zeroes.
//
// Fprintf supports all built-in string and integer types but will not check
// whether its arguments implement fmt.Stringer.
func Fprintf(w io.Writer, format string, args ...interface{}) {
	var (
		nextCh               byte
		nextArgIndex         int
		blockStart, blockEnd int
		padLen               int
		fmtLen               = len(format)
	)

	for blockEnd < fmtLen {
		nextCh = format[blockEnd]
		if nextCh != '%' {
			blockEnd++
			continue
		}

		if blockStart < blockEnd {
			doWrite(w, []byte(format[blockStart:blockEnd]))
		}

		// Scan optional width before the verb
		blockEnd++
		padLen = 0
		for ; blockEnd < fmtLen && format[blockEnd] >= '0' && format[blockEnd] <= '9'; blockEnd++ {
			padLen = padLen*10 + int(format[blockEnd]-'0')
		}

		if blockEnd >= fmtLen {
			doWrite(w, errNoVerb)
			return
		}

		switch format[blockEnd] {
		case '%':
			singleByte[0] = '%'
			doWrite(w, singleByte)
		case 'd':
			if nextArgIndex >= len(args) {
				doWrite(w, errMissingArg)
				break
			}
			fmtInt(w, args[nextArgIndex], 10, padLen)
			nextArgIndex++
		case 'x':
			if nextArgIndex >= len(args) {
				doWrite(w, errMissingArg)
				break
			}
			fmtInt(w, args[nextArgIndex], 16, padLen)
			nextArgIndex++
		case 'o':
			if nextArgIndex >= len(args) {
				doWrite(w, errMissingArg)
				break
			}
			fmtInt(w, args[nextArgIndex], 8, padLen)
			nextArgIndex++
		case 's':
			if nextArgIndex >= len(args) {
				doWrite(w, errMissingArg)
				break
			}
			fmtString(w, args[nextArgIndex], padLen)
			nextArgIndex++
		case 't':
			if nextArgIndex >= len(args) {
				doWrite(w, errMissingArg)
				break
			}
			fmtBool(w, args[nextArgIndex])
			nextArgIndex++
		default:
			doWrite(w, errNoVerb)
		}

		blockEnd++
		blockStart = blockEnd
	}

	if blockStart < blockEnd {
		doWrite(w, []byte(format[blockStart:blockEnd]))
	}
}

// fmtBool writes a formatted version of v using the %t verb.
func fmtBool(w io.Writer, v interface{}) {
	switch bv := v.(type) {
	case bool:
		if bv {
			doWrite(w, trueValue)
		} else {
			doWrite(w, falseValue)
		}
	default:
		doWrite(w, errWrongArgType)
	}
}

// fmtString writes a formatted version of v using the %s verb, left-padding
// it with spaces if its length is less than padLen.
func fmtString(w io.Writer, v interface{}, padLen int) {
	switch castedVal := v.(type) {
	case string:
		padString(w, len(castedVal), padLen)
		doWrite(w, []byte(castedVal))
	case []byte:
		padString(w, len(castedVal), padLen)
		doWrite(w, castedVal)
	default:
		doWrite(w, errWrongArgType)
	}
}

func padString(w io.Writer, valLen, padLen int) {
	singleByte[0] = ' '
	for ; valLen < padLen; padLen-- {
		doWrite(w, singleByte)
	}
}

// fmtInt writes a formatted version of v in the requested base. Base-16 and
// base-8 values shorter than padLen are left-padded with zeroes while base-10
// values are left-padded with spaces.
func fmtInt(w io.Writer, v interface{}, base, padLen int) {
	var (
		buf    [maxBufSize]byte
		padCh  byte = ' '
		wIndex      = maxBufSize
		val    uint64
		sign   bool
	)

	if base != 10 {
		padCh = '0'
	}

	switch castedVal := v.(type) {
	case uint8:
		val = uint64(castedVal)
	case uint16:
		val = uint64(castedVal)
	case uint32:
		val = uint64(castedVal)
	case uint64:
		val = castedVal
	case uintptr:
		val = uint64(castedVal)
	case uint:
		val = uint64(castedVal)
	case int8:
		sign = castedVal < 0
		if sign {
			castedVal = -castedVal
		}
		val = uint64(castedVal)
	case int16:
		sign = castedVal < 0
		if sign {
			castedVal = -castedVal
		}
		val = uint64(castedVal)
	case int32:
		sign = castedVal < 0
		if sign {
			castedVal = -castedVal
		}
		val = uint64(castedVal)
	case int64:
		sign = castedVal < 0
		if sign {
			castedVal = -castedVal
		}
		val = uint64(castedVal)
	case int:
		sign = castedVal < 0
		if sign {
			castedVal = -castedVal
		}
		val = uint64(castedVal)
	default:
		doWrite(w, errWrongArgType)
		return
	}

	for {
		wIndex--
		digit := byte(val % uint64(base))
		if digit < 10 {
			buf[wIndex] = '0' + digit
		} else {
			buf[wIndex] = 'a' + digit - 10
		}

		if val /= uint64(base); val == 0 {
			break
		}
	}

	if sign {
		wIndex--
		buf[wIndex] = '-'
	}

	for padLen > maxBufSize-wIndex {
		wIndex--
		buf[wIndex] = padCh
	}

	doWrite(w, buf[wIndex:])
}

// doWrite pushes p to w ignoring any write errors.
func doWrite(w io.Writer, p []byte) {
	_, _ = w.Write(p)
}
