package codec

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"crnsim/internal/ode"
)

var ErrUnknownFormat = errors.New("codec: unknown format")

// Exporter serializes an assembled ODE system
type Exporter interface {
	Export(name string, sys *ode.System, w io.Writer) error
	Format() string
}

// Importer reads a model description back
type Importer interface {
	Parse(r io.Reader) (*Description, error)
	Format() string
}

var exporters = map[string]func() Exporter{
	"go":   func() Exporter { return NewGoCodec() },
	"json": func() Exporter { return NewJSONCodec() },
	"yaml": func() Exporter { return NewYAMLCodec() },
}

var importers = map[string]func() Importer{
	"json": func() Importer { return NewJSONCodec() },
	"yaml": func() Importer { return NewYAMLCodec() },
}

// ImporterFor returns the importer registered for format
func ImporterFor(format string) (Importer, error) {
	mk, ok := importers[strings.ToLower(format)]
	if !ok {
		return nil, fmt.Errorf("%w: %q cannot be imported (have json, yaml)", ErrUnknownFormat, format)
	}
	return mk(), nil
}

// ForFormat returns the exporter registered for format
func ForFormat(format string) (Exporter, error) {
	mk, ok := exporters[strings.ToLower(format)]
	if !ok {
		return nil, fmt.Errorf("%w: %q (have %s)", ErrUnknownFormat, format, strings.Join(Formats(), ", "))
	}
	return mk(), nil
}

// Formats lists the registered export formats
func Formats() []string {
	out := make([]string, 0, len(exporters))
	for f := range exporters {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Extension returns the file extension used for format
func Extension(format string) string {
	switch strings.ToLower(format) {
	case "go":
		return ".go"
	case "json":
		return ".json"
	case "yaml":
		return ".yaml"
	default:
		return ""
	}
}

// FormatOf returns the format a file name's extension stands for
func FormatOf(path string) (string, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".go":
		return "go", true
	case ".json":
		return "json", true
	case ".yaml", ".yml":
		return "yaml", true
	default:
		return "", false
	}
}
