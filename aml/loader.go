package aml

import (
	"github.com/lkundrak/lai/table"
)

// loadTable installs the definitions contained in one AML table (DSDT or
// SSDT) into the namespace.
func (vm *VM) loadTable(header *table.SDTHeader) *Error {
	ld := &tableLoader{vm: vm}
	return ld.parseTermList(`\`, table.Payload(header))
}

// tableLoader walks the term list of an AML table and populates the
// namespace. Data objects encountered during the walk (Name payloads, region
// base/length operands) are evaluated with an empty machine state.
type tableLoader struct {
	vm *VM
}

func (l *tableLoader) parseTermList(scope string, code []byte) *Error {
	for ip := 0; ip < len(code); {
		n, err := l.parseTerm(scope, code[ip:])
		if err != nil {
			return err
		}
		ip += n
	}

	return nil
}

// loaderContext returns a machine state suitable for evaluating load-time
// data objects in the given scope.
func (l *tableLoader) loaderContext(scope string) *execContext {
	ctx := &execContext{vm: l.vm, scope: scope}
	for i := range ctx.localArg {
		ctx.localArg[i] = intObject(0)
	}

	return ctx
}

// parseTerm decodes a single term object and installs the entities it
// defines.
func (l *tableLoader) parseTerm(scope string, code []byte) (int, *Error) {
	switch code[0] {
	case opScope:
		return l.parseScopeBlock(scope, code)
	case opName:
		return l.parseNameDef(scope, code)
	case opAlias:
		return l.parseAliasDef(scope, code)
	case opMethod:
		return l.parseMethodDef(scope, code)
	case extOpPrefix:
		if len(code) < 2 {
			return 0, decodeError("truncated extended opcode", code)
		}
		switch code[1] {
		case extOpMutex:
			return l.parseMutexDef(scope, code)
		case extOpOpRegion:
			return l.parseOpRegionDef(scope, code)
		case extOpField:
			return l.parseFieldDef(scope, code)
		case extOpIndexField:
			return l.parseIndexFieldDef(scope, code)
		case extOpDevice, extOpThermalZone:
			return l.parseNestedScopeDef(scope, code, 0)
		case extOpProcessor:
			// ProcID byte, PblkAddr dword, PblkLen byte
			return l.parseNestedScopeDef(scope, code, 6)
		case extOpPowerRes:
			// SystemLevel byte, ResourceOrder word
			return l.parseNestedScopeDef(scope, code, 3)
		default:
			return 0, decodeError("undefined extended opcode in table", code)
		}
	default:
		return 0, decodeError("undefined opcode in table", code)
	}
}

// parseScopeBlock handles Scope(name) { TermList }. The target scope may
// already exist (e.g. one of the predefined root scopes).
func (l *tableLoader) parseScopeBlock(scope string, code []byte) (int, *Error) {
	pkgLen, lenLen, err := parsePkgLength(code[1:])
	if err != nil {
		return 0, err
	}

	end := 1 + int(pkgLen)
	if end > len(code) {
		return 0, decodeError("truncated Scope block", code)
	}

	name, nameLen, err := decodeNameString(code[1+lenLen:])
	if err != nil {
		return 0, err
	}

	child := resolveScopePath(scope, name)
	if l.vm.ns.Lookup(child) == nil {
		l.vm.ns.Insert(&Handle{Type: HandleTypeScope, Path: child})
	}

	if err = l.parseTermList(child, code[1+lenLen+nameLen:end]); err != nil {
		return 0, err
	}

	return end, nil
}

// parseNameDef handles Name(name, value).
func (l *tableLoader) parseNameDef(scope string, code []byte) (int, *Error) {
	consumed := 1

	name, nameLen, err := decodeNameString(code[consumed:])
	if err != nil {
		return 0, err
	}
	consumed += nameLen

	obj, n, err := evalObject(l.loaderContext(scope), code[consumed:])
	if err != nil {
		return 0, err
	}
	consumed += n

	l.vm.ns.Insert(&Handle{
		Type:   HandleTypeName,
		Path:   resolveScopePath(scope, name),
		Object: l.vm.maskStoredInteger(obj),
	})

	return consumed, nil
}

// parseAliasDef handles Alias(source, alias). The alias target is pinned to
// an absolute path at definition time; chains are chased lazily at
// resolution time.
func (l *tableLoader) parseAliasDef(scope string, code []byte) (int, *Error) {
	consumed := 1

	source, sourceLen, err := decodeNameString(code[consumed:])
	if err != nil {
		return 0, err
	}
	consumed += sourceLen

	alias, aliasLen, err := decodeNameString(code[consumed:])
	if err != nil {
		return 0, err
	}
	consumed += aliasLen

	target := resolveScopePath(scope, source)
	if h := l.vm.ns.resolveNoAlias(source, scope); h != nil {
		target = h.Path
	}

	l.vm.ns.Insert(&Handle{
		Type:   HandleTypeAlias,
		Path:   resolveScopePath(scope, alias),
		Target: target,
	})

	return consumed, nil
}

// parseMethodDef handles Method(name, flags) { body }. The body is not
// decoded here; the handle records its byte range for the executor.
func (l *tableLoader) parseMethodDef(scope string, code []byte) (int, *Error) {
	pkgLen, lenLen, err := parsePkgLength(code[1:])
	if err != nil {
		return 0, err
	}

	end := 1 + int(pkgLen)
	if end > len(code) {
		return 0, decodeError("truncated Method definition", code)
	}

	name, nameLen, err := decodeNameString(code[1+lenLen:])
	if err != nil {
		return 0, err
	}

	flagsOffset := 1 + lenLen + nameLen
	if flagsOffset >= end {
		return 0, decodeError("truncated Method definition", code)
	}

	l.vm.ns.Insert(&Handle{
		Type:        HandleTypeMethod,
		Path:        resolveScopePath(scope, name),
		MethodFlags: code[flagsOffset],
		Code:        code[flagsOffset+1 : end],
	})

	return end, nil
}

// parseMutexDef handles Mutex(name, syncLevel). The interpreter registers the
// object but does not implement Acquire/Release semantics.
func (l *tableLoader) parseMutexDef(scope string, code []byte) (int, *Error) {
	consumed := 2

	name, nameLen, err := decodeNameString(code[consumed:])
	if err != nil {
		return 0, err
	}
	consumed += nameLen

	if consumed >= len(code) {
		return 0, decodeError("truncated Mutex definition", code)
	}

	l.vm.ns.Insert(&Handle{
		Type: HandleTypeMutex,
		Path: resolveScopePath(scope, name),
	})

	// Skip the SyncFlags byte
	return consumed + 1, nil
}

// parseOpRegionDef handles OperationRegion(name, space, base, length). The
// base and length operands are full TermArgs and must be evaluated.
func (l *tableLoader) parseOpRegionDef(scope string, code []byte) (int, *Error) {
	consumed := 2

	name, nameLen, err := decodeNameString(code[consumed:])
	if err != nil {
		return 0, err
	}
	consumed += nameLen

	if consumed >= len(code) {
		return 0, decodeError("truncated OperationRegion definition", code)
	}

	space := RegionSpace(code[consumed])
	consumed++

	ctx := l.loaderContext(scope)

	base, n, err := evalIntegerArg(ctx, code[consumed:])
	if err != nil {
		return 0, err
	}
	consumed += n

	length, n, err := evalIntegerArg(ctx, code[consumed:])
	if err != nil {
		return 0, err
	}
	consumed += n

	l.vm.ns.Insert(&Handle{
		Type:        HandleTypeRegion,
		Path:        resolveScopePath(scope, name),
		RegionSpace: space,
		RegionBase:  base,
		RegionLen:   length,
	})

	return consumed, nil
}

// parseFieldDef handles Field(region, flags) { FieldList }.
func (l *tableLoader) parseFieldDef(scope string, code []byte) (int, *Error) {
	pkgLen, lenLen, err := parsePkgLength(code[2:])
	if err != nil {
		return 0, err
	}

	end := 2 + int(pkgLen)
	if end > len(code) {
		return 0, decodeError("truncated Field definition", code)
	}

	regionName, nameLen, err := decodeNameString(code[2+lenLen:])
	if err != nil {
		return 0, err
	}

	flagsOffset := 2 + lenLen + nameLen
	if flagsOffset >= end {
		return 0, decodeError("truncated Field definition", code)
	}

	err = l.parseFieldList(fieldListInfo{
		scope:      scope,
		kind:       HandleTypeField,
		regionName: regionName,
		flags:      code[flagsOffset],
	}, code[flagsOffset+1:end])
	if err != nil {
		return 0, err
	}

	return end, nil
}

// parseIndexFieldDef handles IndexField(index, data, flags) { FieldList }.
func (l *tableLoader) parseIndexFieldDef(scope string, code []byte) (int, *Error) {
	pkgLen, lenLen, err := parsePkgLength(code[2:])
	if err != nil {
		return 0, err
	}

	end := 2 + int(pkgLen)
	if end > len(code) {
		return 0, decodeError("truncated IndexField definition", code)
	}

	indexName, indexLen, err := decodeNameString(code[2+lenLen:])
	if err != nil {
		return 0, err
	}

	dataName, dataLen, err := decodeNameString(code[2+lenLen+indexLen:])
	if err != nil {
		return 0, err
	}

	flagsOffset := 2 + lenLen + indexLen + dataLen
	if flagsOffset >= end {
		return 0, decodeError("truncated IndexField definition", code)
	}

	err = l.parseFieldList(fieldListInfo{
		scope:     scope,
		kind:      HandleTypeIndexField,
		indexName: indexName,
		dataName:  dataName,
		flags:     code[flagsOffset],
	}, code[flagsOffset+1:end])
	if err != nil {
		return 0, err
	}

	return end, nil
}

type fieldListInfo struct {
	scope      string
	kind       HandleType
	regionName string
	indexName  string
	dataName   string
	flags      uint8
}

// parseFieldList walks the elements of a Field/IndexField list, tracking the
// running bit offset and the effective access type. ReservedField elements
// advance the offset; AccessField elements override the access type for the
// named fields that follow them.
func (l *tableLoader) parseFieldList(info fieldListInfo, code []byte) *Error {
	var (
		bitOffset uint32
		curFlags  = info.flags
	)

	for ip := 0; ip < len(code); {
		switch code[ip] {
		case 0x00: // ReservedField
			skipBits, n, err := parsePkgLength(code[ip+1:])
			if err != nil {
				return err
			}
			bitOffset += skipBits
			ip += 1 + n
		case 0x01: // AccessField
			if ip+3 > len(code) {
				return decodeError("truncated AccessField element", code[ip:])
			}
			curFlags = (info.flags &^ 0x0f) | (code[ip+1] & 0x0f)
			ip += 3
		default: // NamedField
			if ip+amlNameLen > len(code) {
				return decodeError("truncated field element", code[ip:])
			}

			name := string(code[ip : ip+amlNameLen])
			ip += amlNameLen

			width, n, err := parsePkgLength(code[ip:])
			if err != nil {
				return err
			}
			ip += n

			l.vm.ns.Insert(&Handle{
				Type:       info.kind,
				Path:       pathJoin(info.scope, name),
				RegionPath: info.regionName,
				IndexPath:  info.indexName,
				DataPath:   info.dataName,
				BitOffset:  bitOffset,
				BitWidth:   width,
				FieldFlags: curFlags,
			})

			bitOffset += width
		}
	}

	return nil
}

// parseNestedScopeDef handles the extended opcodes that define a named scope
// with a nested term list (Device, Processor, PowerResource, ThermalZone).
// skipBytes covers the fixed operands that some of them carry between the
// name and the body.
func (l *tableLoader) parseNestedScopeDef(scope string, code []byte, skipBytes int) (int, *Error) {
	pkgLen, lenLen, err := parsePkgLength(code[2:])
	if err != nil {
		return 0, err
	}

	end := 2 + int(pkgLen)
	if end > len(code) {
		return 0, decodeError("truncated definition block", code)
	}

	name, nameLen, err := decodeNameString(code[2+lenLen:])
	if err != nil {
		return 0, err
	}

	bodyStart := 2 + lenLen + nameLen + skipBytes
	if bodyStart > end {
		return 0, decodeError("truncated definition block", code)
	}

	var kind HandleType
	switch code[1] {
	case extOpDevice:
		kind = HandleTypeDevice
	case extOpProcessor:
		kind = HandleTypeProcessor
	case extOpPowerRes:
		kind = HandleTypePowerResource
	case extOpThermalZone:
		kind = HandleTypeThermalZone
	}

	child := resolveScopePath(scope, name)
	l.vm.ns.Insert(&Handle{Type: kind, Path: child})

	if err = l.parseTermList(child, code[bodyStart:end]); err != nil {
		return 0, err
	}

	return end, nil
}
