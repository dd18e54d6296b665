package aml

// storeTo is the write-side counterpart of evalObject: it decodes the
// destination operand starting at code[0] and writes src to it. Constant
// destinations (including the NullName emitted for unused targets) discard
// the value.
func storeTo(ctx *execContext, code []byte, src Object) (int, *Error) {
	if len(code) == 0 {
		return 0, decodeError("truncated store destination", code)
	}

	b := code[0]
	switch {
	case b == opZero || b == opOne || b == opOnes:
		// Unused target; the written value is discarded.
		return 1, nil
	case opIsLocal(b):
		ctx.localArg[b-opLocal0] = copyObject(src)
		return 1, nil
	case opIsArg(b):
		ctx.methodArg[b-opArg0] = copyObject(src)
		return 1, nil
	case b == opIndex:
		obj, n, err := evalObject(ctx, code)
		if err != nil {
			return 0, err
		}
		if obj.Type != ObjectTypeReference || obj.Ref.Target == nil {
			return 0, errorf("store destination Index does not produce an element reference")
		}
		*obj.Ref.Target = copyObject(src)
		return n, nil
	case opIsNameStart(b):
		name, nameLen, err := decodeNameString(code)
		if err != nil {
			return 0, err
		}

		h := ctx.vm.ns.Resolve(name, ctx.scope)
		if h == nil {
			return 0, errorf("undefined reference %s (scope %s)", name, ctx.scope)
		}

		switch h.Type {
		case HandleTypeName:
			h.Object = ctx.vm.maskStoredInteger(copyObject(src))
		case HandleTypeField, HandleTypeIndexField:
			if err := ctx.vm.writeOpRegion(h, src); err != nil {
				return 0, err
			}
		default:
			return 0, errorf("unsupported store destination %s (%s)", name, h.Type.String())
		}

		return nameLen, nil
	default:
		return 0, decodeError("undefined store destination opcode", code)
	}
}

// execOpStore implements Store(value, dest).
func execOpStore(ctx *execContext, code []byte) (int, *Error) {
	consumed := 1

	src, n, err := evalObject(ctx, code[consumed:])
	if err != nil {
		return 0, err
	}
	consumed += n

	n, err = storeTo(ctx, code[consumed:], src)
	if err != nil {
		return 0, err
	}
	consumed += n

	ctx.retVal = src
	return consumed, nil
}
