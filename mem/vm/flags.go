package vm

import "strings"

// Flags are the permission, attribute and status bits of a leaf entry. The
// constants sit at their positions in the wire format.
type Flags uint64

// Permission bits.
const (
	PermExecute    Flags = 0x001
	PermWrite      Flags = 0x002
	PermRead       Flags = 0x004
	PermPrivileged Flags = 0x008
)

// Attribute bits.
const (
	AttrNonCacheable Flags = 0x020
)

// Status bits.
const (
	StatusChanged    Flags = 0x080
	StatusReferenced Flags = 0x100
)

const (
	permMask   = PermExecute | PermWrite | PermRead | PermPrivileged
	attrMask   = AttrNonCacheable
	statusMask = StatusChanged | StatusReferenced
	flagsMask  = permMask | attrMask | statusMask
)

// DefaultDataFlags is what data pages are mapped with: readable, writable,
// and already referenced and changed so no status update is ever needed.
const DefaultDataFlags = PermWrite | PermRead | StatusReferenced | StatusChanged

// Has tells if all the bits in want are set.
func (f Flags) Has(want Flags) bool {
	return f&want == want
}

// Perm returns only the permission bits.
func (f Flags) Perm() Flags {
	return f & permMask
}

// Attr returns only the attribute bits.
func (f Flags) Attr() Flags {
	return f & attrMask
}

// Status returns only the status bits.
func (f Flags) Status() Flags {
	return f & statusMask
}

func (f Flags) String() string {
	perm := []byte("---")
	if f.Has(PermRead) {
		perm[0] = 'r'
	}

	if f.Has(PermWrite) {
		perm[1] = 'w'
	}

	if f.Has(PermExecute) {
		perm[2] = 'x'
	}

	parts := []string{string(perm)}

	if f.Has(PermPrivileged) {
		parts = append(parts, "priv")
	}

	if f.Has(AttrNonCacheable) {
		parts = append(parts, "nc")
	}

	if f.Has(StatusReferenced) {
		parts = append(parts, "ref")
	}

	if f.Has(StatusChanged) {
		parts = append(parts, "chg")
	}

	return strings.Join(parts, ",")
}
