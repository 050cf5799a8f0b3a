// Package source provides ports.Source implementations that feed detection
// documents to the producer: a YAML script, and a JSON-lines stream that can
// follow a growing file.
package source
