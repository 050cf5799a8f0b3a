// Package domain holds the value types shared by the shmslot adapters.
//
// # Entities
//
//   - [FrameDoc]: a detection frame as it appears in scripts, JSON lines and
//     msgpack recordings, convertible to and from record.FrameDetections.
//   - [Detection]: one bounding box in a FrameDoc.
//
// The package also defines the lifecycle errors returned by the follower.
package domain
