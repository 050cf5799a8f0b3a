//go:build (darwin && !ios) || linux

package segment

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/bft-labs/shmslot/pkg/log"
)

type sysvManager struct {
	opts   options
	logger log.Logger
}

func newSysVManager(o options) (Manager, error) {
	return &sysvManager{opts: o, logger: o.logger}, nil
}

func (m *sysvManager) Backend() Backend { return BackendSysV }

func sysvHint(key Key) string {
	return fmt.Sprintf("clear it with `shmslot reset` or `ipcrm -M %s`", key)
}

func (m *sysvManager) handle(key Key, id, size int) Handle {
	return Handle{Key: key, Size: size, Backend: BackendSysV, Name: fmt.Sprintf("shmid %d", id), id: id}
}

func (m *sysvManager) CreateOrOpen(key Key, size int) (Handle, error) {
	if err := checkSize(size); err != nil {
		return Handle{}, err
	}

	// Open first: shmget with a larger size than an existing segment
	// fails with EINVAL, which would hide the real mismatch.
	for attempt := 0; attempt < 3; attempt++ {
		h, err := m.Open(key)
		if err == nil {
			if h.Size != size {
				return Handle{}, wrapErr("open", h, sysvHint(key), sizeMismatch(h.Size, size))
			}
			return h, nil
		}
		if !errors.Is(err, ErrSegmentNotFound) {
			return Handle{}, err
		}

		id, err := unix.SysvShmGet(int(key), size, unix.IPC_CREAT|unix.IPC_EXCL|int(m.opts.perm.Perm()))
		if errors.Is(err, unix.EEXIST) {
			// lost the race with another creator
			continue
		}
		if err != nil {
			return Handle{}, wrapErr("create", m.handle(key, -1, size), "check kernel.shmmax and permissions",
				fmt.Errorf("%w: shmget: %w", ErrAttachFailed, err))
		}
		m.logger.Info("segment created", log.Stringer("key", key), log.Int("shmid", id), log.Int("size", size))
		return m.handle(key, id, size), nil
	}
	return Handle{}, wrapErr("create", m.handle(key, -1, size), sysvHint(key),
		fmt.Errorf("%w: segment keeps appearing and disappearing", ErrAttachFailed))
}

func (m *sysvManager) Open(key Key) (Handle, error) {
	id, err := unix.SysvShmGet(int(key), 0, 0)
	if errors.Is(err, unix.ENOENT) {
		return Handle{}, wrapErr("open", m.handle(key, -1, 0), "", ErrSegmentNotFound)
	}
	if err != nil {
		return Handle{}, wrapErr("open", m.handle(key, -1, 0), sysvHint(key), fmt.Errorf("%w: shmget: %w", ErrAttachFailed, err))
	}

	var desc unix.SysvShmDesc
	if _, err := unix.SysvShmCtl(id, unix.IPC_STAT, &desc); err != nil {
		return Handle{}, wrapErr("open", m.handle(key, id, 0), sysvHint(key), fmt.Errorf("%w: shmctl: %w", ErrAttachFailed, err))
	}
	return m.handle(key, id, int(desc.Segsz)), nil
}

func (m *sysvManager) Attach(h Handle, access Access) (*Region, error) {
	flag := 0
	if access == ReadOnly {
		flag = unix.SHM_RDONLY
	}
	mem, err := unix.SysvShmAttach(h.id, 0, flag)
	if err != nil {
		return nil, wrapErr("attach", h, sysvHint(h.Key), fmt.Errorf("%w: shmat: %w", ErrAttachFailed, err))
	}
	if len(mem) != h.Size {
		_ = unix.SysvShmDetach(mem)
		return nil, wrapErr("attach", h, sysvHint(h.Key), sizeMismatch(len(mem), h.Size))
	}
	m.logger.Debug("segment attached", log.Stringer("key", h.Key), log.String("access", access.String()))
	return newRegion(h, access, mem, unix.SysvShmDetach), nil
}

func (m *sysvManager) Detach(r *Region) error {
	if err := r.detach(); err != nil {
		return wrapErr("detach", r.handle, "", err)
	}
	return nil
}

func (m *sysvManager) Destroy(h Handle) error {
	_, err := unix.SysvShmCtl(h.id, unix.IPC_RMID, nil)
	if errors.Is(err, unix.EINVAL) || errors.Is(err, unix.EIDRM) {
		return wrapErr("destroy", h, "", ErrSegmentNotFound)
	}
	if err != nil {
		return wrapErr("destroy", h, sysvHint(h.Key), fmt.Errorf("shmctl IPC_RMID: %w", err))
	}
	m.logger.Info("segment destroyed", log.Stringer("key", h.Key), log.String("name", h.Name))
	return nil
}

func (m *sysvManager) Stat(h Handle) (Info, error) {
	var desc unix.SysvShmDesc
	_, err := unix.SysvShmCtl(h.id, unix.IPC_STAT, &desc)
	if errors.Is(err, unix.EINVAL) || errors.Is(err, unix.EIDRM) {
		return Info{}, wrapErr("stat", h, "", ErrSegmentNotFound)
	}
	if err != nil {
		return Info{}, wrapErr("stat", h, "", fmt.Errorf("shmctl IPC_STAT: %w", err))
	}
	return Info{
		Key:      h.Key,
		Size:     int(desc.Segsz),
		Backend:  BackendSysV,
		Name:     h.Name,
		Attached: int(desc.Nattch),
	}, nil
}
