package loader

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crnsim/internal/codec"
	"crnsim/internal/graph"
	"crnsim/internal/model"
	"crnsim/internal/ode"
	"crnsim/internal/parser"
	"crnsim/internal/solver"
)

func emit(t *testing.T, crn string, opts ode.Options) (*ode.System, string) {
	t.Helper()
	net, err := parser.ParseString(crn)
	require.NoError(t, err)
	legs, err := net.Irreversible(1)
	require.NoError(t, err)
	g, err := graph.FromReactions(legs)
	require.NoError(t, err)
	sys, err := ode.Assemble(g, opts)
	require.NoError(t, err)
	src, err := codec.GoSource("odesystem", sys)
	require.NoError(t, err)
	return sys, string(src)
}

func TestLoadMatchesCompiledModel(t *testing.T) {
	sys, src := emit(t, "A + B -> C [k = 0.5]; C -> A", ode.Options{RateNames: true, Jacobian: true})

	loaded, err := Load(src)
	require.NoError(t, err)

	compiled, err := model.New("odesystem", sys)
	require.NoError(t, err)

	assert.Equal(t, "odesystem", loaded.Name())
	assert.Equal(t, compiled.Variables(), loaded.Variables())
	assert.Equal(t, compiled.Rates(), loaded.Rates())
	assert.True(t, loaded.HasJacobian())

	y := []float64{0.3, 0.7, 1.1}
	want, err := compiled.Derivatives(y, 0, nil)
	require.NoError(t, err)
	got, err := loaded.Derivatives(y, 0, nil)
	require.NoError(t, err)
	assert.InDeltaSlice(t, want, got, 1e-15)

	override := map[string]float64{"k0": 2, "k1": 3}
	want, err = compiled.Jacobian(y, 0, override)
	require.NoError(t, err)
	got, err = loaded.Jacobian(y, 0, override)
	require.NoError(t, err)
	assert.InDeltaSlice(t, want, got, 1e-15)
}

func TestLoadFileAndIntegrate(t *testing.T) {
	_, src := emit(t, "2X <=> 3X; X -> [k=0.1]", ode.Options{Concentrations: []float64{0.5}})

	path := filepath.Join(t.TempDir(), "odesystem.go")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	m, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5}, m.DefaultConcentrations())
	assert.Equal(t, []bool{false}, m.ConstantFlags())

	f, err := m.RHS(nil)
	require.NoError(t, err)

	times, err := solver.Logspace(0.1, 10, 10)
	require.NoError(t, err)
	tr, err := solver.Integrate(context.Background(), f, m.DefaultConcentrations(), times, solver.Options{AbsTol: 1e-10, RelTol: 1e-10})
	require.NoError(t, err)

	_, last := tr.Last()
	assert.InDelta(t, 0.88535344232897151, last[0], 1e-7)
}

func TestLoadReservedSpeciesNames(t *testing.T) {
	_, src := emit(t, "func + type -> range [k = 2]", ode.Options{})

	m, err := Load(src)
	require.NoError(t, err)
	assert.Equal(t, []string{"func", "range", "type"}, m.Variables())

	got, err := m.Derivatives([]float64{0.5, 0.1, 3}, 0, nil)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{-3, 3, -3}, got, 1e-15)
}

func TestLoadRejects(t *testing.T) {
	t.Run("forbidden import", func(t *testing.T) {
		src := `package evil

import "os"

var Svars = []string{"A"}
var Rates = map[string]float64{}

func Odesystem(p0 []float64, t0 float64, r map[string]float64) []float64 {
	os.Exit(1)
	return nil
}
`
		_, err := Load(src)
		assert.ErrorIs(t, err, ErrForbiddenImport)
	})

	t.Run("missing Odesystem", func(t *testing.T) {
		src := "package odesystem\n\nvar Svars = []string{\"A\"}\nvar Rates = map[string]float64{}\n"
		_, err := Load(src)
		assert.ErrorIs(t, err, ErrMissingSymbol)
	})

	t.Run("wrong result length", func(t *testing.T) {
		src := `package odesystem

var Svars = []string{"A", "B"}
var Rates = map[string]float64{}

func Odesystem(p0 []float64, t0 float64, r map[string]float64) []float64 {
	return []float64{0}
}
`
		m, err := Load(src)
		require.NoError(t, err)

		_, err = m.Derivatives([]float64{1, 2}, 0, nil)
		assert.ErrorIs(t, err, ErrModelCall)

		_, err = m.RHS(nil)
		assert.ErrorIs(t, err, ErrModelCall)
	})

	t.Run("not Go", func(t *testing.T) {
		_, err := Load("A -> B")
		assert.Error(t, err)
	})
}
