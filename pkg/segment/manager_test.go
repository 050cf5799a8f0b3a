package segment

import (
	"errors"
	"os"
	"testing"
)

// exerciseManager runs the behaviour every backend must share.
func exerciseManager(t *testing.T, mgr Manager, key Key) {
	t.Helper()
	t.Cleanup(func() {
		if h, err := mgr.Open(key); err == nil {
			_ = mgr.Destroy(h)
		}
	})

	if _, err := mgr.Open(key); !errors.Is(err, ErrSegmentNotFound) {
		t.Fatalf("Open before create: err = %v, want ErrSegmentNotFound", err)
	}

	h, err := mgr.CreateOrOpen(key, 1024)
	if err != nil {
		t.Fatalf("CreateOrOpen: %v", err)
	}
	if h.Size != 1024 || h.Key != key || h.Backend != mgr.Backend() {
		t.Errorf("handle = %+v", h)
	}

	rw, err := mgr.Attach(h, ReadWrite)
	if err != nil {
		t.Fatalf("Attach rw: %v", err)
	}
	for off := 0; off < rw.Size(); off += 4 {
		if v := rw.LoadUint32(off); v != 0 {
			t.Fatalf("new segment not zeroed at %d: %#x", off, v)
		}
	}
	rw.StoreUint64(1008, 0xdeadbeefcafe)
	rw.WriteAt([]byte{1, 2, 3, 4, 5, 6, 7, 8}, 0)

	// Idempotent: a second CreateOrOpen sees the same bytes.
	h2, err := mgr.CreateOrOpen(key, 1024)
	if err != nil {
		t.Fatalf("second CreateOrOpen: %v", err)
	}
	ro, err := mgr.Attach(h2, ReadOnly)
	if err != nil {
		t.Fatalf("Attach ro: %v", err)
	}
	if got := ro.LoadUint64(1008); got != 0xdeadbeefcafe {
		t.Errorf("read-only view = %#x, want 0xdeadbeefcafe", got)
	}
	buf := make([]byte, 8)
	ro.ReadAt(buf, 0)
	for i, b := range buf {
		if b != byte(i+1) {
			t.Fatalf("ReadAt byte %d = %d, want %d", i, b, i+1)
		}
	}

	if _, err := mgr.CreateOrOpen(key, 824); !errors.Is(err, ErrSegmentSizeMismatch) {
		t.Errorf("CreateOrOpen(824) err = %v, want ErrSegmentSizeMismatch", err)
	}

	if err := mgr.Detach(ro); err != nil {
		t.Errorf("Detach ro: %v", err)
	}
	if err := mgr.Detach(ro); err != nil {
		t.Errorf("second Detach: %v", err)
	}
	if err := mgr.Detach(rw); err != nil {
		t.Errorf("Detach rw: %v", err)
	}

	if err := mgr.Destroy(h); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if _, err := mgr.Open(key); !errors.Is(err, ErrSegmentNotFound) {
		t.Errorf("Open after Destroy: err = %v, want ErrSegmentNotFound", err)
	}
	if err := mgr.Destroy(h); !errors.Is(err, ErrSegmentNotFound) {
		t.Errorf("second Destroy: err = %v, want ErrSegmentNotFound", err)
	}
}

func TestMemoryManager(t *testing.T) {
	mgr, err := New(BackendMemory)
	if err != nil {
		t.Fatal(err)
	}
	exerciseManager(t, mgr, DeriveKey(t.Name(), 1))
}

func TestMemoryManager_SharedAcrossManagers(t *testing.T) {
	a, _ := New(BackendMemory)
	b, _ := New(BackendMemory)
	key := DeriveKey(t.Name(), 1)

	ha, err := a.CreateOrOpen(key, 64)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = a.Destroy(ha) })

	hb, err := b.Open(key)
	if err != nil {
		t.Fatalf("second manager Open: %v", err)
	}
	ra, _ := a.Attach(ha, ReadWrite)
	rb, _ := b.Attach(hb, ReadOnly)
	defer a.Detach(ra)
	defer b.Detach(rb)

	ra.StoreUint32(8, 77)
	if got := rb.LoadUint32(8); got != 77 {
		t.Errorf("LoadUint32 via second manager = %d, want 77", got)
	}

	info, err := a.Stat(ha)
	if err != nil {
		t.Fatal(err)
	}
	if info.Attached != 2 {
		t.Errorf("Attached = %d, want 2", info.Attached)
	}
}

func TestMemoryManager_SizeMismatchError(t *testing.T) {
	mgr, _ := New(BackendMemory)
	key := DeriveKey(t.Name(), 1)

	h, err := mgr.CreateOrOpen(key, 1024)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = mgr.Destroy(h) })

	_, err = mgr.CreateOrOpen(key, 824)
	var segErr *Error
	if !errors.As(err, &segErr) {
		t.Fatalf("err = %T %v, want *Error", err, err)
	}
	if segErr.Key != key || segErr.Hint == "" {
		t.Errorf("Error = %+v, want key %s and a hint", segErr, key)
	}
}

func TestFileManager(t *testing.T) {
	mgr, err := New(BackendFile, WithDir(t.TempDir()))
	if errors.Is(err, ErrBackendUnsupported) {
		t.Skip("file backend unsupported on this platform")
	}
	if err != nil {
		t.Fatal(err)
	}
	exerciseManager(t, mgr, DeriveKey(t.Name(), 1))
}

func TestSysVManager(t *testing.T) {
	mgr, err := New(BackendSysV, WithPerm(0o600))
	if errors.Is(err, ErrBackendUnsupported) {
		t.Skip("sysv backend unsupported on this platform")
	}
	if err != nil {
		t.Fatal(err)
	}

	key := DeriveKey(t.Name(), uint32(os.Getpid()))
	h, err := mgr.CreateOrOpen(key, 64)
	if err != nil {
		// Containers and sandboxes commonly deny IPC.
		t.Skipf("sysv shared memory unavailable: %v", err)
	}
	if err := mgr.Destroy(h); err != nil {
		t.Fatalf("Destroy probe segment: %v", err)
	}

	exerciseManager(t, mgr, key)
}

func TestNew_UnknownBackend(t *testing.T) {
	if _, err := New("tmpfs"); !errors.Is(err, ErrBackendUnsupported) {
		t.Errorf("err = %v, want ErrBackendUnsupported", err)
	}
	if _, err := ParseBackend("tmpfs"); !errors.Is(err, ErrBackendUnsupported) {
		t.Errorf("ParseBackend err = %v, want ErrBackendUnsupported", err)
	}
}

func TestCreateOrOpen_RejectsOddSize(t *testing.T) {
	mgr, _ := New(BackendMemory)
	if _, err := mgr.CreateOrOpen(DeriveKey(t.Name(), 1), 10); err == nil {
		t.Error("CreateOrOpen(10) succeeded, want error")
	}
}
