package aml

import (
	"bytes"

	"github.com/lkundrak/lai/kernel/kfmt"
)

// frame contains information about the location within a method (the
// instruction pointer) and the actual AML opcode that the interpreter was
// processing when an error occurred.
type frame struct {
	method string
	IP     uint32
	instr  string
}

// Error describes errors that occur while loading or executing AML code.
type Error struct {
	message string

	// trace contains a list of trace entries that correspond to the AML
	// method invocations up to the point where an error occurred. To
	// construct the correct execution tree from a trace, its entries must
	// be processed in LIFO order.
	trace []*frame
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.message
}

// StackTrace returns a formatted stack trace for this error.
func (e *Error) StackTrace() string {
	if len(e.trace) == 0 {
		return "No stack trace available"
	}

	var buf bytes.Buffer
	buf.WriteString("Stack trace:\n")

	// We need to process the trace list in LIFO order.
	for index, offset := 0, len(e.trace)-1; index < len(e.trace); index, offset = index+1, offset-1 {
		entry := e.trace[offset]
		kfmt.Fprintf(&buf, "[%3x] [%s():0x%x] opcode: %s\n", index, entry.method, entry.IP, entry.instr)
	}

	return buf.String()
}

// errorf assembles a new *Error using the formatting rules of kfmt.Fprintf.
func errorf(format string, args ...interface{}) *Error {
	var buf bytes.Buffer
	kfmt.Fprintf(&buf, format, args...)
	return &Error{message: buf.String()}
}

// decodeError assembles an error for an unrecognized or truncated opcode; the
// diagnostic captures a small window of the surrounding bytes.
func decodeError(what string, code []byte) *Error {
	var buf bytes.Buffer
	kfmt.Fprintf(&buf, "%s, sequence:", what)
	for i := 0; i < 4 && i < len(code); i++ {
		kfmt.Fprintf(&buf, " %2x", code[i])
	}
	return &Error{message: buf.String()}
}
