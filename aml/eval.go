package aml

// evalInteger decodes an inline integer literal starting at code[0] and
// returns its value together with the number of bytes consumed. A zero
// consumed count indicates that code does not start with an integer literal.
func evalInteger(code []byte) (uint64, int) {
	if len(code) == 0 {
		return 0, 0
	}

	switch code[0] {
	case opZero:
		return 0, 1
	case opOne:
		return 1, 1
	case opOnes:
		return 1<<64 - 1, 1
	case opBytePrefix:
		if len(code) < 2 {
			return 0, 0
		}
		return uint64(code[1]), 2
	case opWordPrefix:
		if len(code) < 3 {
			return 0, 0
		}
		return uint64(code[1]) | uint64(code[2])<<8, 3
	case opDwordPrefix:
		if len(code) < 5 {
			return 0, 0
		}
		return uint64(code[1]) | uint64(code[2])<<8 | uint64(code[3])<<16 | uint64(code[4])<<24, 5
	case opQwordPrefix:
		if len(code) < 9 {
			return 0, 0
		}
		var val uint64
		for i := 0; i < 8; i++ {
			val |= uint64(code[1+i]) << (8 * i)
		}
		return val, 9
	default:
		return 0, 0
	}
}

// evalObject decodes the object or expression starting at code[0] into a
// single value and returns it together with the number of bytes consumed.
// The recognized forms are exhaustive for what a Type2 operand may be:
// locals, args, literals, buffer and package definitions, name references
// (including method invocations and operation region reads), SizeOf, DerefOf,
// Index and nested Type2 expressions.
func evalObject(ctx *execContext, code []byte) (Object, int, *Error) {
	if len(code) == 0 {
		return Object{}, 0, decodeError("truncated object", code)
	}

	b := code[0]

	switch {
	case opIsLocal(b):
		return copyObject(ctx.localArg[b-opLocal0]), 1, nil
	case opIsArg(b):
		return copyObject(ctx.methodArg[b-opArg0]), 1, nil
	}

	if val, n := evalInteger(code); n != 0 {
		return intObject(val), n, nil
	}

	switch b {
	case opStringPrefix:
		return evalString(code)
	case opBuffer:
		return evalBuffer(ctx, code)
	case opPackage:
		return evalPackage(ctx, code)
	case opSizeOf:
		obj, n, err := evalObject(ctx, code[1:])
		if err != nil {
			return Object{}, 0, err
		}
		size, err := sizeOfObject(obj)
		if err != nil {
			return Object{}, 0, err
		}
		return intObject(size), 1 + n, nil
	case opDerefOf:
		obj, n, err := evalObject(ctx, code[1:])
		if err != nil {
			return Object{}, 0, err
		}
		if obj.Type == ObjectTypeReference {
			obj, err = derefReference(ctx, obj.Ref)
			if err != nil {
				return Object{}, 0, err
			}
		}
		return obj, 1 + n, nil
	case opIndex:
		return evalIndex(ctx, code)
	case opRefOf:
		ref, n, err := evalSuperName(ctx, code[1:])
		if err != nil {
			return Object{}, 0, err
		}
		return Object{Type: ObjectTypeReference, Ref: ref}, 1 + n, nil
	case opObjectType:
		obj, n, err := evalObject(ctx, code[1:])
		if err != nil {
			return Object{}, 0, err
		}
		return intObject(objectTypeCode(obj)), 1 + n, nil
	case extOpPrefix:
		if len(code) > 1 && code[1] == extOpCondRefOf {
			return evalCondRefOf(ctx, code)
		}
	}

	if opIsNameStart(b) {
		return evalNameRef(ctx, code)
	}

	if handler := ctx.vm.jumpTable[b]; handler != nil {
		n, err := handler(ctx, code)
		if err != nil {
			return Object{}, 0, err
		}
		return ctx.retVal, n, nil
	}

	return Object{}, 0, decodeError("undefined opcode", code)
}

// evalString decodes an inline null-terminated string literal.
func evalString(code []byte) (Object, int, *Error) {
	for i := 1; i < len(code); i++ {
		if code[i] == 0x00 {
			return Object{Type: ObjectTypeString, String: string(code[1:i])}, i + 1, nil
		}
	}

	return Object{}, 0, decodeError("unterminated string literal", code)
}

// evalBuffer decodes a Buffer definition: the declared buffer length is
// evaluated as an AML value, a zeroed buffer of that length is allocated and
// any trailing literal bytes are copied into it.
func evalBuffer(ctx *execContext, code []byte) (Object, int, *Error) {
	pkgLen, lenLen, err := parsePkgLength(code[1:])
	if err != nil {
		return Object{}, 0, err
	}

	end := 1 + int(pkgLen)
	if end > len(code) {
		return Object{}, 0, decodeError("truncated Buffer definition", code)
	}

	sizeObj, n, err := evalObject(ctx, code[1+lenLen:end])
	if err != nil {
		return Object{}, 0, err
	}

	declaredLen, err := toInteger(sizeObj)
	if err != nil {
		return Object{}, 0, err
	}

	buf := make([]byte, declaredLen)
	copy(buf, code[1+lenLen+n:end])

	return Object{Type: ObjectTypeBuffer, Buffer: buf}, end, nil
}

// evalPackage decodes a Package definition, eagerly evaluating its elements.
// Elements past the last initializer remain uninitialized.
func evalPackage(ctx *execContext, code []byte) (Object, int, *Error) {
	pkgLen, lenLen, err := parsePkgLength(code[1:])
	if err != nil {
		return Object{}, 0, err
	}

	end := 1 + int(pkgLen)
	if end > len(code) || 1+lenLen >= end {
		return Object{}, 0, decodeError("truncated Package definition", code)
	}

	numElements := int(code[1+lenLen])
	elements := make([]Object, numElements)

	off := 1 + lenLen + 1
	for i := 0; i < numElements && off < end; i++ {
		var n int
		elements[i], n, err = evalObject(ctx, code[off:end])
		if err != nil {
			return Object{}, 0, err
		}
		off += n
	}

	return Object{Type: ObjectTypePackage, Package: elements}, end, nil
}

// evalNameRef decodes a NameString, resolves it against the current scope and
// produces its value: named objects get copied, methods get invoked (with
// their arguments consumed from the stream) and operation region fields get
// read through the region backend.
func evalNameRef(ctx *execContext, code []byte) (Object, int, *Error) {
	name, nameLen, err := decodeNameString(code)
	if err != nil {
		return Object{}, 0, err
	}

	h := ctx.vm.ns.Resolve(name, ctx.scope)
	if h == nil {
		return Object{}, 0, errorf("undefined reference %s (scope %s)", name, ctx.scope)
	}

	switch h.Type {
	case HandleTypeName:
		return copyObject(h.Object), nameLen, nil
	case HandleTypeMethod:
		return evalMethodInvocation(ctx, code, h, nameLen)
	case HandleTypeField, HandleTypeIndexField:
		obj, err := ctx.vm.readOpRegion(h)
		if err != nil {
			return Object{}, 0, err
		}
		return obj, nameLen, nil
	default:
		return Object{}, 0, errorf("reference %s does not resolve into data or code (%s)", name, h.Type.String())
	}
}

// evalMethodInvocation consumes the invoked method's declared argument count
// worth of operands from the stream and executes the method.
func evalMethodInvocation(ctx *execContext, code []byte, m *Handle, nameLen int) (Object, int, *Error) {
	var (
		args     [maxMethodArgs]Object
		consumed = nameLen
	)

	argCount := int(m.ArgCount())
	for i := 0; i < argCount; i++ {
		arg, n, err := evalObject(ctx, code[consumed:])
		if err != nil {
			return Object{}, 0, err
		}
		args[i] = arg
		consumed += n
	}

	ret, err := ctx.vm.execMethod(m, args[:argCount])
	if err != nil {
		return Object{}, 0, err
	}

	return ret, consumed, nil
}

// evalIndex implements Index(collection, i, Target). Strings and buffers read
// through to the element value; packages produce a reference to the element
// slot so that stores through the result mutate the package in place.
func evalIndex(ctx *execContext, code []byte) (Object, int, *Error) {
	var (
		target   *Object
		tmp      Object
		consumed = 1
	)

	// Resolve the collection operand as an lvalue when possible so that
	// package element references point at live storage.
	switch b := code[consumed]; {
	case opIsLocal(b):
		target = &ctx.localArg[b-opLocal0]
		consumed++
	case opIsArg(b):
		target = &ctx.methodArg[b-opArg0]
		consumed++
	case opIsNameStart(b):
		name, n, err := decodeNameString(code[consumed:])
		if err != nil {
			return Object{}, 0, err
		}
		h := ctx.vm.ns.Resolve(name, ctx.scope)
		if h == nil {
			return Object{}, 0, errorf("undefined reference %s (scope %s)", name, ctx.scope)
		}
		if h.Type != HandleTypeName {
			return Object{}, 0, errorf("Index: unsupported collection reference %s (%s)", name, h.Type.String())
		}
		target = &h.Object
		consumed += n
	default:
		obj, n, err := evalObject(ctx, code[consumed:])
		if err != nil {
			return Object{}, 0, err
		}
		tmp = obj
		target = &tmp
		consumed += n
	}

	idxObj, n, err := evalObject(ctx, code[consumed:])
	if err != nil {
		return Object{}, 0, err
	}
	consumed += n

	idx, err := toInteger(idxObj)
	if err != nil {
		return Object{}, 0, err
	}

	var result Object
	switch target.Type {
	case ObjectTypeString:
		if idx >= uint64(len(target.String)) {
			return Object{}, 0, errorf("Index: offset %d out of String bounds", idx)
		}
		result = intObject(uint64(target.String[idx]))
	case ObjectTypeBuffer:
		if idx >= uint64(len(target.Buffer)) {
			return Object{}, 0, errorf("Index: offset %d out of Buffer bounds", idx)
		}
		result = intObject(uint64(target.Buffer[idx]))
	case ObjectTypePackage:
		if idx >= uint64(len(target.Package)) {
			return Object{}, 0, errorf("Index: offset %d out of Package bounds", idx)
		}
		result = Object{Type: ObjectTypeReference, Ref: Reference{Target: &target.Package[idx]}}
	default:
		return Object{}, 0, errorf("Index: unsupported collection type %s", target.Type.String())
	}

	n, err = storeTo(ctx, code[consumed:], result)
	if err != nil {
		return Object{}, 0, err
	}
	consumed += n

	return result, consumed, nil
}

// evalSuperName resolves an lvalue operand (a local, an arg or a name path)
// into a Reference.
func evalSuperName(ctx *execContext, code []byte) (Reference, int, *Error) {
	if len(code) == 0 {
		return Reference{}, 0, decodeError("truncated SuperName", code)
	}

	b := code[0]
	switch {
	case opIsLocal(b):
		return Reference{Target: &ctx.localArg[b-opLocal0]}, 1, nil
	case opIsArg(b):
		return Reference{Target: &ctx.methodArg[b-opArg0]}, 1, nil
	case opIsNameStart(b):
		name, nameLen, err := decodeNameString(code)
		if err != nil {
			return Reference{}, 0, err
		}
		h := ctx.vm.ns.Resolve(name, ctx.scope)
		if h == nil {
			return Reference{}, 0, errorf("undefined reference %s (scope %s)", name, ctx.scope)
		}
		return Reference{Handle: h}, nameLen, nil
	default:
		return Reference{}, 0, decodeError("invalid SuperName", code)
	}
}

// skipSuperName returns the encoded length of a SuperName or NullName operand
// without evaluating it.
func skipSuperName(code []byte) (int, *Error) {
	if len(code) == 0 {
		return 0, decodeError("truncated SuperName", code)
	}

	b := code[0]
	switch {
	case b == nullName, opIsLocal(b), opIsArg(b):
		return 1, nil
	case opIsNameStart(b):
		_, nameLen, err := decodeNameString(code)
		return nameLen, err
	default:
		return 0, decodeError("invalid SuperName", code)
	}
}

// evalCondRefOf implements CondRefOf(name, Target): if name resolves, a
// reference to it is stored into Target and the result is Ones; otherwise
// Target is left untouched and the result is Zero.
func evalCondRefOf(ctx *execContext, code []byte) (Object, int, *Error) {
	consumed := 2
	name, nameLen, err := decodeNameString(code[consumed:])
	if err != nil {
		return Object{}, 0, err
	}
	consumed += nameLen

	h := ctx.vm.ns.Resolve(name, ctx.scope)
	if h == nil {
		n, err := skipSuperName(code[consumed:])
		if err != nil {
			return Object{}, 0, err
		}
		return intObject(0), consumed + n, nil
	}

	n, err := storeTo(ctx, code[consumed:], Object{Type: ObjectTypeReference, Ref: Reference{Handle: h}})
	if err != nil {
		return Object{}, 0, err
	}

	return intObject(1<<64 - 1), consumed + n, nil
}

// derefReference loads the object a reference points at.
func derefReference(ctx *execContext, ref Reference) (Object, *Error) {
	if ref.Target != nil {
		return copyObject(*ref.Target), nil
	}
	if ref.Handle != nil {
		return ctx.vm.evalHandleObject(ref.Handle)
	}

	return Object{}, errorf("DerefOf: nil reference")
}

// objectTypeCode maps an object to the type code returned by ObjectType.
func objectTypeCode(obj Object) uint64 {
	switch obj.Type {
	case ObjectTypeInteger:
		return 1
	case ObjectTypeString:
		return 2
	case ObjectTypeBuffer:
		return 3
	case ObjectTypePackage:
		return 4
	case ObjectTypeReference:
		return 6
	default:
		return 0
	}
}

// evalIntegerArg evaluates the next operand and converts it to an integer.
func evalIntegerArg(ctx *execContext, code []byte) (uint64, int, *Error) {
	obj, n, err := evalObject(ctx, code)
	if err != nil {
		return 0, 0, err
	}

	val, err := toInteger(obj)
	if err != nil {
		return 0, 0, err
	}

	return val, n, nil
}
