// Package channel implements a single-slot, single-producer single-consumer
// exchange of detection frames over a shared segment.
//
// The slot holds one encoded frame followed by a 64-bit sequence word and a
// 32-bit done flag. The sequence word carries the logical sequence number
// shifted left by one; the low bit is set while the writer is copying.
//
// A publish encodes into a private buffer, marks the writer active, copies
// the payload with atomic word stores and finally stores the next sequence
// with the active bit cleared. A reader loads the sequence, copies the payload
// and loads the sequence again. If the two loads differ, or the active bit was
// set, the copy is discarded and retried.
//
// There is no backpressure. A producer that outpaces the consumer overwrites
// unread frames; the reader counts the gap as dropped frames.
//
// # Usage
//
//	w, err := channel.NewWriter(rwRegion, record.DefaultLayout())
//	err = w.Publish(frame)
//	err = w.Finish()
//
//	r, err := channel.NewReader(roRegion, record.DefaultLayout())
//	for !r.Closed() {
//		f, ok, err := r.Poll()
//		...
//	}
//
// # Version
//
// Current version: 1.0.0
package channel
