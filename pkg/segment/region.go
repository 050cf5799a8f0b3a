package segment

import (
	"encoding/binary"
	"fmt"
	"sync/atomic"
	"unsafe"
)

// Region is a mapping of a segment into this process. It is valid until
// Detach. All access is through aligned atomic loads and stores so that a
// concurrent writer in another process never produces a torn word.
type Region struct {
	handle   Handle
	access   Access
	mem      []byte
	detached atomic.Bool
	unmap    func([]byte) error
}

func newRegion(h Handle, access Access, mem []byte, unmap func([]byte) error) *Region {
	return &Region{handle: h, access: access, mem: mem, unmap: unmap}
}

// Handle returns the segment the region maps.
func (r *Region) Handle() Handle { return r.handle }

// Access returns the mapping mode.
func (r *Region) Access() Access { return r.access }

// Size returns the mapped length in bytes.
func (r *Region) Size() int { return len(r.mem) }

// Detached reports whether the region has been unmapped.
func (r *Region) Detached() bool { return r.detached.Load() }

func (r *Region) ptr(off, width int) unsafe.Pointer {
	if r.detached.Load() {
		panic("segment: region used after detach")
	}
	if off < 0 || off%width != 0 || off+width > len(r.mem) {
		panic(fmt.Sprintf("segment: unaligned or out of range access at %d (width %d, size %d)", off, width, len(r.mem)))
	}
	return unsafe.Pointer(&r.mem[off])
}

func (r *Region) writable() {
	if r.access != ReadWrite {
		panic("segment: store to read-only region")
	}
}

// LoadUint32 atomically loads the 4-byte word at off.
func (r *Region) LoadUint32(off int) uint32 {
	return atomic.LoadUint32((*uint32)(r.ptr(off, 4)))
}

// StoreUint32 atomically stores the 4-byte word at off.
func (r *Region) StoreUint32(off int, v uint32) {
	r.writable()
	atomic.StoreUint32((*uint32)(r.ptr(off, 4)), v)
}

// LoadUint64 atomically loads the 8-byte word at off.
func (r *Region) LoadUint64(off int) uint64 {
	return atomic.LoadUint64((*uint64)(r.ptr(off, 8)))
}

// StoreUint64 atomically stores the 8-byte word at off.
func (r *Region) StoreUint64(off int, v uint64) {
	r.writable()
	atomic.StoreUint64((*uint64)(r.ptr(off, 8)), v)
}

// ReadAt copies len(dst) bytes starting at off into dst, one atomic 32-bit
// load per word. off and len(dst) must be multiples of 4.
func (r *Region) ReadAt(dst []byte, off int) {
	if len(dst)%4 != 0 {
		panic(fmt.Sprintf("segment: read length %d is not a multiple of 4", len(dst)))
	}
	for i := 0; i < len(dst); i += 4 {
		binary.NativeEndian.PutUint32(dst[i:], r.LoadUint32(off+i))
	}
}

// WriteAt copies src into the region starting at off, one atomic 32-bit store
// per word. off and len(src) must be multiples of 4.
func (r *Region) WriteAt(src []byte, off int) {
	r.writable()
	if len(src)%4 != 0 {
		panic(fmt.Sprintf("segment: write length %d is not a multiple of 4", len(src)))
	}
	for i := 0; i < len(src); i += 4 {
		r.StoreUint32(off+i, binary.NativeEndian.Uint32(src[i:]))
	}
}

// Zero clears n bytes starting at off.
func (r *Region) Zero(off, n int) {
	r.writable()
	for i := 0; i+4 <= n; i += 4 {
		r.StoreUint32(off+i, 0)
	}
}

// detach unmaps once. Later calls return nil.
func (r *Region) detach() error {
	if r == nil || !r.detached.CompareAndSwap(false, true) {
		return nil
	}
	mem := r.mem
	r.mem = nil
	if r.unmap == nil {
		return nil
	}
	return r.unmap(mem)
}
