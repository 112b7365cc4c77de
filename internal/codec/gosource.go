package codec

import (
	"bytes"
	"errors"
	"fmt"
	"go/format"
	"go/token"
	"io"
	"strconv"
	"strings"

	"crnsim/internal/expr"
	"crnsim/internal/ode"
)

// ErrInvalidName is returned for model names that are not Go identifiers
var ErrInvalidName = errors.New("codec: model name must be a Go identifier")

// GoCodec emits a model as a self-contained Go source file. The file
// declares package <name> with:
//
//	Rates       map[string]float64   default rate table
//	Svars       []string             variable order
//	Defaults    []float64            initial concentrations
//	Const       []bool               held-constant flags
//	Odesystem   func(p0 []float64, t0 float64, r map[string]float64) []float64
//	Jacobian    same signature, row-major, only when assembled
//
// Species are addressed positionally as p0[i] and rate parameters as
// r["kN"], so species names never clash with Go identifiers.
type GoCodec struct{}

// NewGoCodec creates a new Go source codec
func NewGoCodec() *GoCodec {
	return &GoCodec{}
}

// Format returns the codec format identifier
func (c *GoCodec) Format() string {
	return "go"
}

// ValidateName checks that name can serve as the package name
func ValidateName(name string) error {
	if !token.IsIdentifier(name) || token.IsKeyword(name) || name == "_" {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// Export writes gofmt-formatted Go source
func (c *GoCodec) Export(name string, sys *ode.System, w io.Writer) error {
	src, err := GoSource(name, sys)
	if err != nil {
		return err
	}
	if _, err := w.Write(src); err != nil {
		return fmt.Errorf("failed to write Go source: %w", err)
	}
	return nil
}

// GoSource renders sys as Go source
func GoSource(name string, sys *ode.System) ([]byte, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	index := make(map[string]int, len(sys.Variables))
	for i, v := range sys.Variables {
		index[v] = i
	}
	namer := func(v expr.Var) string {
		if v.Kind == expr.ParamVar {
			return "r[" + strconv.Quote(v.Name) + "]"
		}
		return "p0[" + strconv.Itoa(index[v.Name]) + "]"
	}

	var b bytes.Buffer
	b.WriteString("// Code generated by crnsim. DO NOT EDIT.\n\n")
	fmt.Fprintf(&b, "package %s\n\n", name)

	b.WriteString("// Rates maps rate parameter names to their default values.\n")
	b.WriteString("var Rates = map[string]float64{\n")
	for _, n := range sys.RateNames {
		if v, ok := sys.Rates[n]; ok {
			fmt.Fprintf(&b, "%s: %s,\n", strconv.Quote(n), floatLit(v))
		}
	}
	b.WriteString("}\n\n")

	b.WriteString("// Svars is the variable order of every positional vector.\n")
	b.WriteString("var Svars = []string{")
	for i, v := range sys.Variables {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(strconv.Quote(v))
	}
	b.WriteString("}\n\n")

	b.WriteString("// Defaults holds the initial concentrations.\n")
	b.WriteString("var Defaults = []float64{")
	for i := range sys.Variables {
		if i > 0 {
			b.WriteString(", ")
		}
		v := 0.0
		if i < len(sys.Concentrations) {
			v = sys.Concentrations[i]
		}
		b.WriteString(floatLit(v))
	}
	b.WriteString("}\n\n")

	b.WriteString("// Const marks variables held at their initial value.\n")
	b.WriteString("var Const = []bool{")
	for i := range sys.Variables {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(strconv.FormatBool(sys.IsConstant(i)))
	}
	b.WriteString("}\n\n")

	writeFunc(&b, "Odesystem", "returns dy/dt in Svars order.", sys.ODEs, namer)
	if sys.HasJacobian() {
		b.WriteString("\n")
		writeFunc(&b, "Jacobian", "returns the row-major matrix of partial derivatives.", sys.Jacobian, namer)
	}

	out, err := format.Source(b.Bytes())
	if err != nil {
		return nil, fmt.Errorf("generated source does not parse: %w", err)
	}
	return out, nil
}

func writeFunc(b *bytes.Buffer, fn, doc string, es []expr.Expr, namer expr.Namer) {
	fmt.Fprintf(b, "// %s %s\n", fn, doc)
	fmt.Fprintf(b, "func %s(p0 []float64, t0 float64, r map[string]float64) []float64 {\n", fn)
	b.WriteString("if len(r) == 0 {\nr = Rates\n}\n")
	b.WriteString("return []float64{\n")
	for _, e := range es {
		b.WriteString(expr.Format(e, namer))
		b.WriteString(",\n")
	}
	b.WriteString("}\n}\n")
}

// floatLit renders v so that it is a float64 literal in Go source
func floatLit(v float64) string {
	s := strconv.FormatFloat(v, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}
