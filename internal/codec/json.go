package codec

import (
	"encoding/json"
	"fmt"
	"io"

	"crnsim/internal/ode"
)

// JSONCodec handles JSON model descriptions
type JSONCodec struct{}

// NewJSONCodec creates a new JSON codec
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{}
}

// Format returns the codec format identifier
func (c *JSONCodec) Format() string {
	return "json"
}

// Parse reads a model description from JSON
func (c *JSONCodec) Parse(r io.Reader) (*Description, error) {
	var d Description
	if err := json.NewDecoder(r).Decode(&d); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	return &d, nil
}

// Export writes the model description as indented JSON
func (c *JSONCodec) Export(name string, sys *ode.System, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(Describe(name, sys)); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}
