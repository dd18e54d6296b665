package aml

import "github.com/lkundrak/lai/kernel"

// PortIO provides access to the x86 I/O port space.
type PortIO interface {
	In8(port uint16) uint8
	In16(port uint16) uint16
	In32(port uint16) uint32
	Out8(port uint16, val uint8)
	Out16(port uint16, val uint16)
	Out32(port uint16, val uint32)
}

// MemMapper establishes memory-mapped I/O windows. Implementations must map
// the physical range with caching disabled and read/write attributes and
// return a byte slice overlaid on the mapped virtual range.
type MemMapper interface {
	Map(phys uint64, size uint32) ([]byte, *kernel.Error)
}

// PCIConfigSpace provides read access to the PCI configuration space.
type PCIConfigSpace interface {
	Read32(bus, dev, fn uint8, offset uint32) uint32
}

// Host groups the hardware access primitives that the kernel must supply so
// that operation region accesses can reach actual hardware.
type Host interface {
	PortIO
	MemMapper
	PCIConfigSpace
}
