package aml

var errNoHost = &Error{message: "opregion access requires a host"}

// readOpRegion reads from an OpRegion Field or IndexField.
func (vm *VM) readOpRegion(f *Handle) (Object, *Error) {
	if f.Type == HandleTypeIndexField {
		return vm.readIndexField(f)
	}
	return vm.readField(f)
}

// writeOpRegion writes to an OpRegion Field or IndexField.
func (vm *VM) writeOpRegion(f *Handle, src Object) *Error {
	if f.Type == HandleTypeIndexField {
		return vm.writeIndexField(f, src)
	}
	return vm.writeField(f, src)
}

// fieldRegion resolves the operation region that contains f. The region name
// is resolved through the namespace at access time using the field's own
// scope.
func (vm *VM) fieldRegion(f *Handle) (*Handle, *Error) {
	region := vm.ns.Resolve(f.RegionPath, pathParent(f.Path))
	if region == nil || region.Type != HandleTypeRegion {
		return nil, errorf("opregion %s for field %s does not exist", f.RegionPath, f.Path)
	}

	return region, nil
}

// fieldAccessBits returns the access width in bits for an access to f inside
// region. PCI config space accesses are always 32 bits wide; AnyAccess is
// treated as DwordAccess.
func fieldAccessBits(f *Handle, region *Handle) (uint32, *Error) {
	if region.RegionSpace == RegionSpacePCIConfig {
		return 32, nil
	}

	switch f.accessType() {
	case FieldAccessTypeByte:
		return 8, nil
	case FieldAccessTypeWord:
		return 16, nil
	case FieldAccessTypeDword, FieldAccessTypeAny:
		return 32, nil
	case FieldAccessTypeQword:
		return 64, nil
	default:
		return 0, errorf("undefined field access type in flags %2x: %s", f.FieldFlags, f.Path)
	}
}

// maskForWidth returns a mask covering the low width bits.
func maskForWidth(width uint32) uint64 {
	if width >= 64 {
		return 1<<64 - 1
	}
	return 1<<width - 1
}

// readField reads from a field bind: one access-sized word is fetched from
// the backend at the aligned byte offset and the field's bit window is
// extracted from it.
func (vm *VM) readField(f *Handle) (Object, *Error) {
	region, err := vm.fieldRegion(f)
	if err != nil {
		return Object{}, err
	}

	accessBits, err := fieldAccessBits(f, region)
	if err != nil {
		return Object{}, err
	}

	var (
		alignedByte = (f.BitOffset / accessBits) * (accessBits / 8)
		shift       = f.BitOffset % accessBits
		mask        = maskForWidth(f.BitWidth)
	)

	word, err := vm.regionRead(region, alignedByte, accessBits)
	if err != nil {
		return Object{}, err
	}

	return intObject((word >> shift) & mask), nil
}

// writeField writes to a field bind using read-modify-write: the access-sized
// word is fetched, the field's bit window replaced according to the field's
// update rule and the word written back.
func (vm *VM) writeField(f *Handle, src Object) *Error {
	region, err := vm.fieldRegion(f)
	if err != nil {
		return err
	}

	accessBits, err := fieldAccessBits(f, region)
	if err != nil {
		return err
	}

	srcVal, err := toInteger(src)
	if err != nil {
		return err
	}

	var (
		alignedByte = (f.BitOffset / accessBits) * (accessBits / 8)
		shift       = f.BitOffset % accessBits
		mask        = maskForWidth(f.BitWidth)
	)

	word, err := vm.regionRead(region, alignedByte, accessBits)
	if err != nil {
		return err
	}

	switch f.updateRule() {
	case FieldUpdateRulePreserve:
		word &^= mask << shift
		word |= (srcVal & mask) << shift
	case FieldUpdateRuleWriteAsOnes:
		word = 1<<64 - 1
		word &^= mask << shift
		word |= (srcVal & mask) << shift
	case FieldUpdateRuleWriteAsZeros:
		word = 0
		word |= (srcVal & mask) << shift
	}

	return vm.regionWrite(region, alignedByte, accessBits, word)
}

// readIndexField reads through an index/data register pair: the field's byte
// offset is written to the index register and the value fetched from the data
// register. Both registers are resolved through the namespace at call time.
func (vm *VM) readIndexField(f *Handle) (Object, *Error) {
	indexReg, dataReg, err := vm.indexFieldRegs(f)
	if err != nil {
		return Object{}, err
	}

	if err = vm.writeField(indexReg, intObject(uint64(f.BitOffset/8))); err != nil {
		return Object{}, err
	}

	return vm.readField(dataReg)
}

// writeIndexField writes through an index/data register pair.
func (vm *VM) writeIndexField(f *Handle, src Object) *Error {
	indexReg, dataReg, err := vm.indexFieldRegs(f)
	if err != nil {
		return err
	}

	if err = vm.writeField(indexReg, intObject(uint64(f.BitOffset/8))); err != nil {
		return err
	}

	return vm.writeField(dataReg, src)
}

func (vm *VM) indexFieldRegs(f *Handle) (indexReg, dataReg *Handle, err *Error) {
	scope := pathParent(f.Path)

	if indexReg = vm.ns.Resolve(f.IndexPath, scope); indexReg == nil || indexReg.Type != HandleTypeField {
		return nil, nil, errorf("undefined index register %s for index field %s", f.IndexPath, f.Path)
	}
	if dataReg = vm.ns.Resolve(f.DataPath, scope); dataReg == nil || dataReg.Type != HandleTypeField {
		return nil, nil, errorf("undefined data register %s for index field %s", f.DataPath, f.Path)
	}

	return indexReg, dataReg, nil
}

// regionRead performs one access-sized read from the region backend.
func (vm *VM) regionRead(region *Handle, byteOffset, accessBits uint32) (uint64, *Error) {
	if vm.host == nil {
		return 0, errNoHost
	}

	switch region.RegionSpace {
	case RegionSpaceSystemIO:
		port := uint16(region.RegionBase) + uint16(byteOffset)
		switch accessBits {
		case 8:
			return uint64(vm.host.In8(port)), nil
		case 16:
			return uint64(vm.host.In16(port)), nil
		case 32:
			return uint64(vm.host.In32(port)), nil
		default:
			return 0, errorf("unsupported %d-bit access to I/O port space", accessBits)
		}
	case RegionSpaceSystemMemory:
		window, err := vm.regionWindow(region)
		if err != nil {
			return 0, err
		}
		return loadWord(window, byteOffset, accessBits)
	case RegionSpacePCIConfig:
		dev, err := vm.pciDeviceFor(region)
		if err != nil {
			return 0, err
		}
		return uint64(vm.host.Read32(dev.bus, dev.dev, dev.fn, (byteOffset&^3)+uint32(region.RegionBase))), nil
	default:
		return 0, errorf("unsupported opregion address space %d: %s", uint8(region.RegionSpace), region.Path)
	}
}

// regionWrite performs one access-sized write to the region backend. I/O
// space writes are followed by the two port 0x80 settling writes that legacy
// hardware expects.
func (vm *VM) regionWrite(region *Handle, byteOffset, accessBits uint32, word uint64) *Error {
	if vm.host == nil {
		return errNoHost
	}

	switch region.RegionSpace {
	case RegionSpaceSystemIO:
		port := uint16(region.RegionBase) + uint16(byteOffset)
		switch accessBits {
		case 8:
			vm.host.Out8(port, uint8(word))
		case 16:
			vm.host.Out16(port, uint16(word))
		case 32:
			vm.host.Out32(port, uint32(word))
		default:
			return errorf("unsupported %d-bit access to I/O port space", accessBits)
		}

		// iowait() equivalent
		vm.host.Out8(0x80, 0x00)
		vm.host.Out8(0x80, 0x00)
		return nil
	case RegionSpaceSystemMemory:
		window, err := vm.regionWindow(region)
		if err != nil {
			return err
		}
		return storeWord(window, byteOffset, accessBits, word)
	default:
		return errorf("unsupported opregion address space %d for write: %s", uint8(region.RegionSpace), region.Path)
	}
}

// regionWindow returns the MMIO window for region, mapping it on first use
// and caching the mapping on the region handle.
func (vm *VM) regionWindow(region *Handle) ([]byte, *Error) {
	if region.regionWindow != nil {
		return region.regionWindow, nil
	}

	size := uint32(region.RegionLen)
	if size < 8 {
		size = 8
	}

	window, err := vm.host.Map(region.RegionBase, size)
	if err != nil {
		return nil, errorf("cannot map opregion %s: %s", region.Path, err.Message)
	}

	region.regionWindow = window
	return window, nil
}

// pciDeviceFor locates the PCI (bus, device, function) triple for a PCI
// config operation region. The bus number comes from the first _BBN object
// ascending from the region's parent and the device/function from the
// nearest _ADR (high 16 bits select the slot, low 16 bits the function).
// A missing _BBN defaults to bus 0 and a missing _ADR to device 0:0. The
// resolved triple is cached on the region handle.
func (vm *VM) pciDeviceFor(region *Handle) (pciDevice, *Error) {
	if region.pciDevOK {
		return region.pciDev, nil
	}

	var (
		scope = pathParent(region.Path)
		bus   uint64
		adr   uint64
	)

	if h := vm.ns.Resolve("_BBN", scope); h != nil {
		obj, err := vm.evalHandleObject(h)
		if err != nil {
			return pciDevice{}, err
		}
		if bus, err = toInteger(obj); err != nil {
			return pciDevice{}, err
		}
	}

	if h := vm.ns.Resolve("_ADR", scope); h != nil {
		obj, err := vm.evalHandleObject(h)
		if err != nil {
			return pciDevice{}, err
		}
		if adr, err = toInteger(obj); err != nil {
			return pciDevice{}, err
		}
	}

	region.pciDev = pciDevice{
		bus: uint8(bus),
		dev: uint8(adr >> 16),
		fn:  uint8(adr),
	}
	region.pciDevOK = true

	return region.pciDev, nil
}

// loadWord fetches a little-endian word of the requested width from window.
func loadWord(window []byte, byteOffset, accessBits uint32) (uint64, *Error) {
	numBytes := accessBits / 8
	if uint32(len(window)) < byteOffset+numBytes {
		return 0, errorf("opregion access at offset %d exceeds region bounds", byteOffset)
	}

	var val uint64
	for i := uint32(0); i < numBytes; i++ {
		val |= uint64(window[byteOffset+i]) << (8 * i)
	}

	return val, nil
}

// storeWord writes a little-endian word of the requested width to window.
func storeWord(window []byte, byteOffset, accessBits uint32, val uint64) *Error {
	numBytes := accessBits / 8
	if uint32(len(window)) < byteOffset+numBytes {
		return errorf("opregion access at offset %d exceeds region bounds", byteOffset)
	}

	for i := uint32(0); i < numBytes; i++ {
		window[byteOffset+i] = byte(val >> (8 * i))
	}

	return nil
}
