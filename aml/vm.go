// Package aml implements an interpreter for the ACPI Machine Language
// byte-code contained in the system's DSDT and SSDT tables. The interpreter
// exposes the firmware-defined objects (devices, fields, methods) through a
// hierarchical namespace and executes control methods that perform
// platform-specific hardware setup and query.
package aml

import (
	"io"

	"github.com/lkundrak/lai/kernel/kfmt"
	"github.com/lkundrak/lai/kernel/sync"
	"github.com/lkundrak/lai/table"
)

// VM is the AML interpreter instance. It owns the ACPI namespace populated
// from the firmware tables and provides methods for evaluating named objects
// and invoking control methods.
type VM struct {
	errWriter     io.Writer
	tableResolver table.Resolver
	host          Host

	ns *Namespace

	// lock serializes method invocations over the shared namespace. AML is
	// not designed for fine-grained concurrency so the lock is held for the
	// duration of each invocation.
	lock sync.Spinlock

	// According to the ACPI spec, the Revision field in the DSDT specifies
	// whether integers are treated as 32 or 64-bits. The VM memoizes this
	// value so that it can be applied when storing to named integers.
	sizeOfIntInBits int

	jumpTable [256]opHandler
}

// NewVM creates a new AML VM and initializes it with the default scope
// hierarchy contained in the ACPI specification. The host provides the
// hardware access primitives used by operation region accesses; a nil host
// turns any region access into an error.
func NewVM(errWriter io.Writer, resolver table.Resolver, host Host) *VM {
	vm := &VM{
		errWriter:       errWriter,
		tableResolver:   resolver,
		host:            host,
		ns:              NewNamespace(),
		sizeOfIntInBits: 64,
	}
	vm.populateJumpTable()

	return vm
}

// Init attempts to locate and load the AML byte-code contained in the
// system's DSDT and SSDT tables into the namespace.
func (vm *VM) Init() *Error {
	for _, tableName := range []string{"DSDT", "SSDT"} {
		header := vm.tableResolver.LookupTable(tableName)
		if header == nil {
			continue
		}

		if tableName == "DSDT" {
			vm.sizeOfIntInBits = 32
			if header.Revision >= 2 {
				vm.sizeOfIntInBits = 64
			}
		}

		if err := vm.loadTable(header); err != nil {
			kfmt.Fprintf(vm.errWriter, "aml: error loading %s: %s\n", tableName, err.Error())
			return err
		}
	}

	return nil
}

// LoadTable installs the definitions contained in a single AML table into
// the namespace while holding the namespace lock. Init loads the DSDT/SSDT
// tables located through the table resolver the same way (without taking the
// lock); callers may use LoadTable directly for dynamically supplied tables.
func (vm *VM) LoadTable(header *table.SDTHeader) *Error {
	vm.lock.Acquire()
	defer vm.lock.Release()

	return vm.loadTable(header)
}

// Namespace returns the namespace populated from the loaded tables.
func (vm *VM) Namespace() *Namespace {
	return vm.ns
}

// Handle resolves path (which may be relative to the root scope) and returns
// the handle it refers to or nil if the path does not resolve.
func (vm *VM) Handle(path string) *Handle {
	return vm.ns.Resolve(path, `\`)
}

// Visit invokes v for every namespace handle at or below prefix in insertion
// order.
func (vm *VM) Visit(prefix string, v Visitor) {
	vm.ns.Visit(prefix, v)
}

// EvalName resolves path and produces the value of the entity it refers to:
// named objects return a copy of their value, methods with zero arguments
// are invoked and operation region fields are read through their region.
func (vm *VM) EvalName(path string) (Object, *Error) {
	vm.lock.Acquire()
	defer vm.lock.Release()

	h := vm.ns.Resolve(path, `\`)
	if h == nil {
		return Object{}, errorf("undefined reference %s", path)
	}

	return vm.evalHandleObject(h)
}

// EvalMethod invokes the control method at path with the supplied arguments
// and returns its result.
func (vm *VM) EvalMethod(path string, args []Object) (Object, *Error) {
	vm.lock.Acquire()
	defer vm.lock.Release()

	h := vm.ns.Resolve(path, `\`)
	if h == nil {
		return Object{}, errorf("undefined reference %s", path)
	}
	if h.Type != HandleTypeMethod {
		return Object{}, errorf("%s is not a method (%s)", path, h.Type.String())
	}
	if int(h.ArgCount()) > len(args) {
		return Object{}, errorf("method %s expects %d args", path, h.ArgCount())
	}

	return vm.execMethod(h, args)
}

// evalHandleObject produces the value behind a resolved handle. Callers must
// hold the namespace lock.
func (vm *VM) evalHandleObject(h *Handle) (Object, *Error) {
	switch h.Type {
	case HandleTypeName:
		return copyObject(h.Object), nil
	case HandleTypeMethod:
		if h.ArgCount() != 0 {
			return Object{}, errorf("method %s expects %d args", h.Path, h.ArgCount())
		}
		return vm.execMethod(h, nil)
	case HandleTypeField, HandleTypeIndexField:
		return vm.readOpRegion(h)
	default:
		return Object{}, errorf("%s does not evaluate to a value (%s)", h.Path, h.Type.String())
	}
}

// maskStoredInteger truncates integers stored into named objects to 32 bits
// when the DSDT revision selects 32-bit integer semantics.
func (vm *VM) maskStoredInteger(obj Object) Object {
	if obj.Type == ObjectTypeInteger && vm.sizeOfIntInBits == 32 {
		obj.Integer &= 0xffffffff
	}

	return obj
}
