// Package sink provides ports.Sink implementations for consumed frames: a log
// line per frame, a JSON-lines writer and an MQTT publisher.
package sink
