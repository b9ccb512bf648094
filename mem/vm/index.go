package vm

// Geometry of the tree. The directory is indexed by the upper 10 bits of the
// page number, the leaf table by the lower 9 bits.
const (
	DirIndexBits  = 10
	LeafIndexBits = 9

	NumDirEntries  = 1 << DirIndexBits
	NumLeafEntries = 1 << LeafIndexBits

	EntrySize = 8

	DirectorySize = NumDirEntries * EntrySize
	LeafTableSize = NumLeafEntries * EntrySize

	// AddressSpaceBits is the size of the translated window, 2 GiB.
	AddressSpaceBits = Log2PageSize + LeafIndexBits + DirIndexBits
	AddressSpaceSize = uint64(1) << AddressSpaceBits
)

// SplitIndex returns the directory index and the leaf index of v.
func SplitIndex(v VAddr) (dirIndex, leafIndex int) {
	epn := v.PageNumber()

	dirIndex = int((epn >> LeafIndexBits) & (NumDirEntries - 1))
	leafIndex = int(epn & (NumLeafEntries - 1))

	return dirIndex, leafIndex
}

// InAddressSpace tells if v falls inside the translated window.
func InAddressSpace(v VAddr) bool {
	return uint64(v) < AddressSpaceSize
}
