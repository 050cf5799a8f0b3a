//go:build unix

package segment

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/bft-labs/shmslot/pkg/log"
)

type fileManager struct {
	opts   options
	logger log.Logger
}

func newFileManager(o options) (Manager, error) {
	if err := os.MkdirAll(o.dir, 0o700); err != nil {
		return nil, fmt.Errorf("segment: create dir %s: %w", o.dir, err)
	}
	return &fileManager{opts: o, logger: o.logger}, nil
}

func (m *fileManager) Backend() Backend { return BackendFile }

// path returns the file backing key.
func (m *fileManager) path(key Key) string {
	return filepath.Join(m.opts.dir, "shmslot-"+key.String())
}

func fileHint(path string) string {
	return fmt.Sprintf("clear it with `shmslot reset` or `rm %s`", path)
}

func (m *fileManager) handle(key Key, size int) Handle {
	return Handle{Key: key, Size: size, Backend: BackendFile, Name: m.path(key)}
}

func (m *fileManager) CreateOrOpen(key Key, size int) (Handle, error) {
	if err := checkSize(size); err != nil {
		return Handle{}, err
	}

	for attempt := 0; attempt < 3; attempt++ {
		h, err := m.Open(key)
		if err == nil {
			if h.Size != size {
				return Handle{}, wrapErr("open", h, fileHint(h.Name), sizeMismatch(h.Size, size))
			}
			return h, nil
		}
		if !errors.Is(err, ErrSegmentNotFound) {
			return Handle{}, err
		}

		created, err := m.create(key, size)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return Handle{}, wrapErr("create", m.handle(key, size), "", fmt.Errorf("%w: %w", ErrAttachFailed, err))
		}
		m.logger.Info("segment created", log.Stringer("key", key), log.String("path", created.Name), log.Int("size", size))
		return created, nil
	}
	return Handle{}, wrapErr("create", m.handle(key, size), fileHint(m.path(key)),
		fmt.Errorf("%w: segment keeps appearing and disappearing", ErrAttachFailed))
}

// create sizes a temp file and links it into place, so no other process
// ever sees a partially sized segment.
func (m *fileManager) create(key Key, size int) (Handle, error) {
	tmp, err := os.CreateTemp(m.opts.dir, ".shmslot-*.tmp")
	if err != nil {
		return Handle{}, err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := tmp.Truncate(int64(size)); err != nil {
		tmp.Close()
		return Handle{}, err
	}
	if err := tmp.Chmod(m.opts.perm.Perm()); err != nil {
		tmp.Close()
		return Handle{}, err
	}
	if err := tmp.Close(); err != nil {
		return Handle{}, err
	}
	if err := os.Link(tmpPath, m.path(key)); err != nil {
		return Handle{}, err
	}
	return m.handle(key, size), nil
}

func (m *fileManager) Open(key Key) (Handle, error) {
	h := m.handle(key, 0)
	fi, err := os.Stat(h.Name)
	if errors.Is(err, fs.ErrNotExist) {
		return Handle{}, wrapErr("open", h, "", ErrSegmentNotFound)
	}
	if err != nil {
		return Handle{}, wrapErr("open", h, fileHint(h.Name), fmt.Errorf("%w: %w", ErrAttachFailed, err))
	}
	h.Size = int(fi.Size())
	return h, nil
}

func (m *fileManager) Attach(h Handle, access Access) (*Region, error) {
	flag, prot := os.O_RDWR, unix.PROT_READ|unix.PROT_WRITE
	if access == ReadOnly {
		flag, prot = os.O_RDONLY, unix.PROT_READ
	}

	f, err := os.OpenFile(h.Name, flag, 0)
	if err != nil {
		return nil, wrapErr("attach", h, fileHint(h.Name), fmt.Errorf("%w: %w", ErrAttachFailed, err))
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, wrapErr("attach", h, "", fmt.Errorf("%w: %w", ErrAttachFailed, err))
	}
	if int(fi.Size()) != h.Size {
		return nil, wrapErr("attach", h, fileHint(h.Name), sizeMismatch(int(fi.Size()), h.Size))
	}

	mem, err := unix.Mmap(int(f.Fd()), 0, h.Size, prot, unix.MAP_SHARED)
	if err != nil {
		return nil, wrapErr("attach", h, "", fmt.Errorf("%w: mmap: %w", ErrAttachFailed, err))
	}
	m.logger.Debug("segment attached", log.Stringer("key", h.Key), log.String("access", access.String()))
	return newRegion(h, access, mem, unix.Munmap), nil
}

func (m *fileManager) Detach(r *Region) error {
	if err := r.detach(); err != nil {
		return wrapErr("detach", r.handle, "", err)
	}
	return nil
}

func (m *fileManager) Destroy(h Handle) error {
	err := os.Remove(h.Name)
	if errors.Is(err, fs.ErrNotExist) {
		return wrapErr("destroy", h, "", ErrSegmentNotFound)
	}
	if err != nil {
		return wrapErr("destroy", h, fileHint(h.Name), err)
	}
	m.logger.Info("segment destroyed", log.Stringer("key", h.Key), log.String("path", h.Name))
	return nil
}

func (m *fileManager) Stat(h Handle) (Info, error) {
	fi, err := os.Stat(h.Name)
	if errors.Is(err, fs.ErrNotExist) {
		return Info{}, wrapErr("stat", h, "", ErrSegmentNotFound)
	}
	if err != nil {
		return Info{}, wrapErr("stat", h, "", err)
	}
	return Info{Key: h.Key, Size: int(fi.Size()), Backend: BackendFile, Name: h.Name, Attached: -1}, nil
}
