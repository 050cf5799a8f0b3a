// Package log is the logging port used by the shmslot packages.
//
// Library code never writes to stderr on its own. Every component accepts a
// Logger and defaults to NoopLogger; the shmslot command wires a zerolog
// backed adapter.
//
// # Usage
//
//	zl := zerolog.New(os.Stderr).With().Timestamp().Logger()
//	logger := log.NewZerologAdapterWithLogger(zl)
//
//	logger = log.With(logger, log.Stringer("key", key))
//	logger.Info("attached", log.Int("size", 1024))
//
// # Custom Loggers
//
// Any type with Debug, Info, Warn and Error methods taking a message and
// a list of fields satisfies Logger.
//
// # Version
//
// Current version: 1.1.0
package log
