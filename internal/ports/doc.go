// Package ports defines the interfaces between the shmslot run loops in
// internal/app and the adapters in internal/adapters.
//
// # Port Interfaces
//
//   - [Source]: yields detection documents from a script, a JSON-lines stream
//     or a recording, standing in for the detection stage.
//   - [Sink]: receives frames drained from the channel.
//   - [Finisher]: optional end-of-stream marker on a Sink.
//   - [FramePublisher]: the producer end, satisfied by *shmslot.Producer.
//   - [FrameStream]: the consumer end, satisfied by *shmslot.Consumer.
//
// The run loops depend only on these interfaces, so they are tested with
// in-memory fakes.
package ports
