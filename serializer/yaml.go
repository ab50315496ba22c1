package serializer

import (
	"bytes"
	"errors"

	"gopkg.in/yaml.v3"

	"github.com/ruteri/record-store/interfaces"
)

var errEmptyDocument = errors.New("empty document")

// YAML serializes records of type R as YAML documents.
type YAML[R any] struct{}

// NewYAML creates a YAML serializer.
func NewYAML[R any]() *YAML[R] {
	return &YAML[R]{}
}

func (s *YAML[R]) Extension() string {
	return ".yaml"
}

func (s *YAML[R]) Serialize(record R) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(record); err != nil {
		return nil, &interfaces.FormatError{Format: "yaml", Err: err}
	}
	if err := enc.Close(); err != nil {
		return nil, &interfaces.FormatError{Format: "yaml", Err: err}
	}
	return buf.Bytes(), nil
}

// Deserialize decodes one YAML document. Empty content is malformed, matching
// the JSON serializer.
func (s *YAML[R]) Deserialize(data []byte) (R, error) {
	var record R
	if len(bytes.TrimSpace(data)) == 0 {
		return record, &interfaces.FormatError{Format: "yaml", Err: errEmptyDocument}
	}
	if err := yaml.Unmarshal(data, &record); err != nil {
		var zero R
		return zero, &interfaces.FormatError{Format: "yaml", Err: err}
	}
	return record, nil
}
