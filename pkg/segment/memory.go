package segment

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/bft-labs/shmslot/pkg/log"
)

// registry stands in for the kernel's segment table.
type registry struct {
	mu       sync.Mutex
	segments map[Key]*memSegment
}

type memSegment struct {
	words    []uint64
	size     int
	attached int
}

var defaultRegistry = &registry{segments: make(map[Key]*memSegment)}

type memoryManager struct {
	reg    *registry
	logger log.Logger
}

func (m *memoryManager) Backend() Backend { return BackendMemory }

func memName(key Key) string { return "memory:" + key.String() }

func (m *memoryManager) handle(key Key, size int) Handle {
	return Handle{Key: key, Size: size, Backend: BackendMemory, Name: memName(key)}
}

func (m *memoryManager) CreateOrOpen(key Key, size int) (Handle, error) {
	if err := checkSize(size); err != nil {
		return Handle{}, err
	}
	m.reg.mu.Lock()
	defer m.reg.mu.Unlock()

	h := m.handle(key, size)
	if seg, ok := m.reg.segments[key]; ok {
		if seg.size != size {
			return Handle{}, wrapErr("open", h, "reset the segment or align the capacity on both sides", sizeMismatch(seg.size, size))
		}
		return h, nil
	}
	// []uint64 backing keeps every word 8-byte aligned.
	m.reg.segments[key] = &memSegment{words: make([]uint64, size/8), size: size}
	m.logger.Debug("segment created", log.Stringer("key", key), log.Int("size", size))
	return h, nil
}

func (m *memoryManager) Open(key Key) (Handle, error) {
	m.reg.mu.Lock()
	defer m.reg.mu.Unlock()

	seg, ok := m.reg.segments[key]
	if !ok {
		return Handle{}, wrapErr("open", m.handle(key, 0), "", ErrSegmentNotFound)
	}
	return m.handle(key, seg.size), nil
}

func (m *memoryManager) Attach(h Handle, access Access) (*Region, error) {
	m.reg.mu.Lock()
	defer m.reg.mu.Unlock()

	seg, ok := m.reg.segments[h.Key]
	if !ok {
		return nil, wrapErr("attach", h, "", fmt.Errorf("%w: %w", ErrAttachFailed, ErrSegmentNotFound))
	}
	seg.attached++
	mem := unsafe.Slice((*byte)(unsafe.Pointer(&seg.words[0])), seg.size)
	h.Size = seg.size
	return newRegion(h, access, mem, func([]byte) error {
		m.reg.mu.Lock()
		seg.attached--
		m.reg.mu.Unlock()
		return nil
	}), nil
}

func (m *memoryManager) Detach(r *Region) error {
	return r.detach()
}

func (m *memoryManager) Destroy(h Handle) error {
	m.reg.mu.Lock()
	defer m.reg.mu.Unlock()

	if _, ok := m.reg.segments[h.Key]; !ok {
		return wrapErr("destroy", h, "", ErrSegmentNotFound)
	}
	// Live regions keep their words, like an IPC_RMID'd sysv segment.
	delete(m.reg.segments, h.Key)
	m.logger.Debug("segment destroyed", log.Stringer("key", h.Key))
	return nil
}

func (m *memoryManager) Stat(h Handle) (Info, error) {
	m.reg.mu.Lock()
	defer m.reg.mu.Unlock()

	seg, ok := m.reg.segments[h.Key]
	if !ok {
		return Info{}, wrapErr("stat", h, "", ErrSegmentNotFound)
	}
	return Info{Key: h.Key, Size: seg.size, Backend: BackendMemory, Name: memName(h.Key), Attached: seg.attached}, nil
}
