package aml

const (
	// According to the ACPI spec, methods can use up to 8 local args and
	// can receive up to 7 method args.
	maxLocalArgs  = 8
	maxMethodArgs = 7
)

// ctrlFlowType describes the different ways that the control flow can be
// altered while executing a set of AML opcodes.
type ctrlFlowType uint8

// The list of supported control flows.
const (
	ctrlFlowTypeNextOpcode ctrlFlowType = iota
	ctrlFlowTypeBreak
	ctrlFlowTypeContinue
	ctrlFlowTypeFnReturn
)

// execContext holds the AML interpreter state while an AML method executes.
type execContext struct {
	vm *VM

	// scope is the absolute path of the executing method; relative name
	// lookups treat it as the lexical scope root.
	scope string

	localArg  [maxLocalArgs]Object
	methodArg [maxMethodArgs]Object

	// ctrlFlow specifies how the executor should select the next
	// instruction to execute.
	ctrlFlow ctrlFlowType

	// retVal holds the return value from a method once ctrlFlow is set to
	// ctrlFlowTypeFnReturn or the intermediate value of an AML opcode
	// execution.
	retVal Object
}

// execMethod allocates a fresh machine state, binds the supplied arguments
// and executes the method's byte range. Falling off the end of the range
// behaves as an implicit Return(0).
func (vm *VM) execMethod(m *Handle, args []Object) (Object, *Error) {
	ctx := &execContext{vm: vm, scope: m.Path}
	for i := range ctx.localArg {
		ctx.localArg[i] = intObject(0)
	}
	for i := 0; i < len(args) && i < maxMethodArgs; i++ {
		ctx.methodArg[i] = copyObject(args[i])
	}

	ctx.retVal = intObject(0)
	if err := vm.execBlock(ctx, m.Code, 0); err != nil {
		return Object{}, err
	}

	// retVal also holds intermediate opcode results; only an explicit
	// Return makes it the method result.
	if ctx.ctrlFlow != ctrlFlowTypeFnReturn {
		return intObject(0), nil
	}

	return ctx.retVal, nil
}

// execBlock executes the opcodes in code until the range is exhausted or one
// of the opcodes alters the control flow. base is the offset of code within
// the containing method and is only used for error traces.
func (vm *VM) execBlock(ctx *execContext, code []byte, base uint32) *Error {
	var (
		n   int
		err *Error
	)

	for ip := 0; ip < len(code) && ctx.ctrlFlow == ctrlFlowTypeNextOpcode; {
		switch code[ip] {
		case opZero, opOne, opOnes, opNoop:
			ip++
			continue
		case opReturn:
			ip++
			if ip >= len(code) {
				ctx.retVal = intObject(0)
			} else {
				ctx.retVal, n, err = evalObject(ctx, code[ip:])
				ip += n
			}
			ctx.ctrlFlow = ctrlFlowTypeFnReturn
		case opBreak:
			ctx.ctrlFlow = ctrlFlowTypeBreak
			ip++
		case opContinue:
			ctx.ctrlFlow = ctrlFlowTypeContinue
			ip++
		case opName:
			n, err = execNameDef(ctx, code[ip:])
			ip += n
		case opIf:
			n, err = vm.execIf(ctx, code[ip:], base+uint32(ip))
			ip += n
		case opWhile:
			n, err = vm.execWhile(ctx, code[ip:], base+uint32(ip))
			ip += n
		default:
			if opIsNameStart(code[ip]) {
				n, err = execNameStatement(ctx, code[ip:])
			} else {
				_, n, err = evalObject(ctx, code[ip:])
			}
			ip += n
		}

		if err != nil {
			// Wrap instead of mutating err; decode errors are shared
			// sentinel values.
			traced := &Error{message: err.message}
			traced.trace = append(traced.trace, err.trace...)
			traced.trace = append(traced.trace, &frame{
				method: ctx.scope,
				IP:     base + uint32(ip-n),
				instr:  opString(code[ip-n:]),
			})
			return traced
		}
	}

	return nil
}

// execNameDef implements a Name() statement executed inside a method: the
// decoded name is bound to the evaluated value and inserted into the method's
// lexical scope.
func execNameDef(ctx *execContext, code []byte) (int, *Error) {
	consumed := 1
	name, nameLen, err := decodeNameString(code[consumed:])
	if err != nil {
		return 0, err
	}
	consumed += nameLen

	obj, n, err := evalObject(ctx, code[consumed:])
	if err != nil {
		return 0, err
	}
	consumed += n

	ctx.vm.ns.Insert(&Handle{
		Type:   HandleTypeName,
		Path:   resolveScopePath(ctx.scope, name),
		Object: ctx.vm.maskStoredInteger(obj),
	})

	return consumed, nil
}

// execNameStatement handles a statement that starts with a name: method
// invocations execute the target method while bare references to other
// entities have no effect.
func execNameStatement(ctx *execContext, code []byte) (int, *Error) {
	name, nameLen, err := decodeNameString(code)
	if err != nil {
		return 0, err
	}

	h := ctx.vm.ns.Resolve(name, ctx.scope)
	if h == nil {
		return 0, errorf("undefined reference %s (scope %s)", name, ctx.scope)
	}

	if h.Type != HandleTypeMethod {
		return nameLen, nil
	}

	_, consumed, err := evalMethodInvocation(ctx, code, h, nameLen)
	return consumed, err
}

// execIf implements If/Else: the predicate selects which of the two bodies
// (if any) executes; the returned length covers the If block and any
// attached Else block.
func (vm *VM) execIf(ctx *execContext, code []byte, base uint32) (int, *Error) {
	pkgLen, lenLen, err := parsePkgLength(code[1:])
	if err != nil {
		return 0, err
	}

	end := 1 + int(pkgLen)
	if end > len(code) {
		return 0, decodeError("truncated If block", code)
	}

	pred, n, err := evalIntegerArg(ctx, code[1+lenLen:end])
	if err != nil {
		return 0, err
	}

	var (
		bodyStart = 1 + lenLen + n
		consumed  = end

		elseBodyStart, elseEnd int
		hasElse                bool
	)

	if end < len(code) && code[end] == opElse {
		elsePkgLen, elseLenLen, err := parsePkgLength(code[end+1:])
		if err != nil {
			return 0, err
		}

		elseBodyStart = end + 1 + elseLenLen
		elseEnd = end + 1 + int(elsePkgLen)
		if elseEnd > len(code) {
			return 0, decodeError("truncated Else block", code[end:])
		}

		hasElse = true
		consumed = elseEnd
	}

	switch {
	case pred != 0:
		err = vm.execBlock(ctx, code[bodyStart:end], base+uint32(bodyStart))
	case hasElse:
		err = vm.execBlock(ctx, code[elseBodyStart:elseEnd], base+uint32(elseBodyStart))
	}
	if err != nil {
		return 0, err
	}

	return consumed, nil
}

// execWhile implements While: the predicate is re-evaluated before every
// iteration; Break and Continue raised inside the body terminate or restart
// the current iteration while Return propagates to the caller. Nested loops
// work naturally since each loop executes its body as a nested block.
func (vm *VM) execWhile(ctx *execContext, code []byte, base uint32) (int, *Error) {
	pkgLen, lenLen, err := parsePkgLength(code[1:])
	if err != nil {
		return 0, err
	}

	end := 1 + int(pkgLen)
	if end > len(code) {
		return 0, decodeError("truncated While block", code)
	}

	predStart := 1 + lenLen

	for {
		pred, n, err := evalIntegerArg(ctx, code[predStart:end])
		if err != nil {
			return 0, err
		}

		if pred == 0 {
			break
		}

		if err = vm.execBlock(ctx, code[predStart+n:end], base+uint32(predStart+n)); err != nil {
			return 0, err
		}

		if ctx.ctrlFlow == ctrlFlowTypeBreak {
			ctx.ctrlFlow = ctrlFlowTypeNextOpcode
			break
		}
		if ctx.ctrlFlow == ctrlFlowTypeContinue {
			ctx.ctrlFlow = ctrlFlowTypeNextOpcode
			continue
		}
		if ctx.ctrlFlow == ctrlFlowTypeFnReturn {
			break
		}
	}

	return end, nil
}
