// Package segment manages named shared-memory segments that outlive the
// processes attached to them.
//
// A segment is identified by a Key. The same key and size always refer to the
// same bytes, whichever process asks. Three backends are available:
//
//   - sysv: System V shared memory (shmget, shmat). Visible with ipcs -m and
//     persistent until removed with ipcrm or Destroy.
//   - file: a file under /dev/shm (or the temp dir) mapped MAP_SHARED.
//   - memory: a process-local registry, for tests and simulations.
//
// # Usage
//
//	mgr, err := segment.New(segment.BackendSysV)
//	h, err := mgr.CreateOrOpen(segment.DeriveKey("shmslot.detections", 65), 1024)
//	region, err := mgr.Attach(h, segment.ReadWrite)
//	defer mgr.Detach(region)
//
// A Region only exposes aligned, word-sized atomic loads and stores. Stores on
// a read-only region panic, as does any access after Detach.
//
// Destroying a segment while another process is attached is not detected.
// On sysv the segment disappears once the last process detaches; on file the
// path is unlinked immediately.
//
// # Version
//
// Current version: 1.0.0
package segment
