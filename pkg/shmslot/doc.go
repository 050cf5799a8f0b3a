// Package shmslot exchanges per-frame object detections between two
// processes on the same host through a single shared-memory slot.
//
// A Producer publishes one frame at a time; a Consumer polls for the newest
// frame and learns, through Closed or Next returning io.EOF, when the
// producer finished and everything was read. Frames the consumer was too slow
// to see are counted as dropped, never replayed.
//
// # Usage
//
//	cfg := shmslot.DefaultConfig()
//
//	p, err := shmslot.OpenProducer(cfg)
//	defer p.Close()
//	frame, _ := record.NewFrameDetections(1, cfg.MaxDetections, dets...)
//	err = p.Publish(frame)
//	err = p.Finish()
//
//	c, err := shmslot.OpenConsumer(ctx, cfg)
//	defer c.Close()
//	for {
//		f, err := c.Next(ctx)
//		if errors.Is(err, io.EOF) {
//			break
//		}
//		...
//	}
//
// A Follower runs the consumer loop in the background with Start, Stop and
// Status, reporting through an EventHandler.
//
// # Segments
//
// Both sides derive the same segment key from Seed and Salt. The segment
// survives process exit; the consumer removes it after draining a finished
// stream. Use a different Salt, or the shmslot reset command, to get past a
// stale segment.
//
// # Version
//
// Current version: 1.0.0
package shmslot
