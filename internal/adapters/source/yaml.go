package source

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/bft-labs/shmslot/internal/domain"
)

// Script is the YAML form of a scripted stream:
//
//	frames:
//	  - frame: 1
//	    detections:
//	      - {x: 10, y: 20, width: 30, height: 40, confidence: 0.9}
//	  - detections: []
type Script struct {
	Frames []domain.FrameDoc `yaml:"frames"`
}

// ParseYAML reads a script. Unknown keys are rejected.
func ParseYAML(r io.Reader) (*Slice, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var s Script
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse script: %w", err)
	}
	return NewSlice(s.Frames), nil
}

// OpenYAML reads a script file.
func OpenYAML(path string) (*Slice, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseYAML(f)
}
