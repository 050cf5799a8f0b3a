package channel

import "errors"

var (
	// ErrStaleChannel means the slot went backwards: the sequence or the frame
	// number is lower than what was already consumed. The producer was
	// restarted against a consumer that kept its state.
	ErrStaleChannel = errors.New("channel: stale channel")

	// ErrFrameOrder is returned by Publish when frame numbers do not increase
	// or a frame is numbered below 1.
	ErrFrameOrder = errors.New("channel: frame number not increasing")

	// ErrChannelFinished is returned by Publish after Finish.
	ErrChannelFinished = errors.New("channel: finished")

	// ErrSequenceExhausted is returned when the sequence counter would overflow.
	ErrSequenceExhausted = errors.New("channel: sequence exhausted")
)
