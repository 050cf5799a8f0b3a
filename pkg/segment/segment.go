package segment

import (
	"fmt"
	"os"

	"github.com/bft-labs/shmslot/pkg/log"
)

// Backend selects the shared-memory mechanism.
type Backend string

const (
	BackendSysV   Backend = "sysv"
	BackendFile   Backend = "file"
	BackendMemory Backend = "memory"
)

// ParseBackend validates a backend name.
func ParseBackend(s string) (Backend, error) {
	switch b := Backend(s); b {
	case BackendSysV, BackendFile, BackendMemory:
		return b, nil
	default:
		return "", fmt.Errorf("%w: %q (want sysv, file or memory)", ErrBackendUnsupported, s)
	}
}

// Access is the mapping mode requested by Attach.
type Access int

const (
	ReadWrite Access = iota
	ReadOnly
)

func (a Access) String() string {
	if a == ReadOnly {
		return "read-only"
	}
	return "read-write"
}

// Handle refers to an existing segment. It does not map any memory.
type Handle struct {
	Key     Key
	Size    int
	Backend Backend
	Name    string

	// shmid for sysv
	id int
}

// Info is a point-in-time description of a segment.
type Info struct {
	Key     Key
	Size    int
	Backend Backend
	Name    string
	// Attached is the number of live mappings, or -1 when the backend cannot tell.
	Attached int
}

// Manager creates, maps and removes segments.
type Manager interface {
	// Backend reports which mechanism the manager uses.
	Backend() Backend

	// CreateOrOpen returns the segment for key, creating it zero-filled when
	// absent. An existing segment of a different size fails with
	// ErrSegmentSizeMismatch.
	CreateOrOpen(key Key, size int) (Handle, error)

	// Open returns an existing segment or ErrSegmentNotFound.
	Open(key Key) (Handle, error)

	// Attach maps the segment into this process.
	Attach(h Handle, access Access) (*Region, error)

	// Detach unmaps a region. The segment itself survives. Detaching twice
	// is a no-op.
	Detach(r *Region) error

	// Destroy removes the segment from the system.
	Destroy(h Handle) error

	// Stat describes the segment.
	Stat(h Handle) (Info, error)
}

// Option configures a Manager.
type Option func(*options)

type options struct {
	dir    string
	perm   os.FileMode
	logger log.Logger
}

// WithDir sets the directory used by the file backend.
func WithDir(dir string) Option {
	return func(o *options) {
		o.dir = dir
	}
}

// WithPerm sets the permission bits of newly created segments.
func WithPerm(perm os.FileMode) Option {
	return func(o *options) {
		o.perm = perm
	}
}

// WithLogger sets the logger for segment lifecycle messages.
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// DefaultPerm is used when no permission is given.
const DefaultPerm os.FileMode = 0o600

// New returns a Manager for the backend.
func New(backend Backend, opts ...Option) (Manager, error) {
	o := options{perm: DefaultPerm}
	for _, opt := range opts {
		opt(&o)
	}
	o.logger = log.With(log.OrNoop(o.logger), log.String("backend", string(backend)))
	if o.perm == 0 {
		o.perm = DefaultPerm
	}

	switch backend {
	case BackendSysV:
		return newSysVManager(o)
	case BackendFile:
		if o.dir == "" {
			o.dir = DefaultDir()
		}
		return newFileManager(o)
	case BackendMemory:
		return &memoryManager{reg: defaultRegistry, logger: o.logger}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrBackendUnsupported, backend)
	}
}

// DefaultDir returns /dev/shm when it exists, otherwise the temp dir.
func DefaultDir() string {
	if fi, err := os.Stat("/dev/shm"); err == nil && fi.IsDir() {
		return "/dev/shm"
	}
	return os.TempDir()
}

func checkSize(size int) error {
	if size <= 0 || size%8 != 0 {
		return fmt.Errorf("segment: size %d must be a positive multiple of 8", size)
	}
	return nil
}

func sizeMismatch(got, want int) error {
	return fmt.Errorf("%w: segment is %d bytes, want %d", ErrSegmentSizeMismatch, got, want)
}
