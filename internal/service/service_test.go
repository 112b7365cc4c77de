package service

import (
	"bytes"
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"crnsim/internal/codec"
	"crnsim/internal/parser"
	"crnsim/internal/repository/sqlite"
	"crnsim/internal/simulate"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const decay = `
# first-order decay
A -> B [k = 1]
A @i 1
`

func drain(ch <-chan Event) []EventType {
	var out []EventType
	for {
		select {
		case ev := <-ch:
			out = append(out, ev.Type)
		default:
			return out
		}
	}
}

func TestEventBus(t *testing.T) {
	bus := NewEventBus()
	fast := make(chan Event, 4)
	full := make(chan Event)
	bus.Subscribe(fast)
	bus.Subscribe(full)

	bus.Publish(Event{Type: EventParsed})
	bus.Publish(Event{Type: EventCompiled})
	assert.Equal(t, []EventType{EventParsed, EventCompiled}, drain(fast))

	bus.Unsubscribe(fast)
	bus.Publish(Event{Type: EventFailed})
	assert.Empty(t, drain(fast))

	var nilBus *EventBus
	assert.NotPanics(t, func() { nilBus.Publish(Event{Type: EventFailed}) })
}

func TestCompile(t *testing.T) {
	bus := NewEventBus()
	events := make(chan Event, 16)
	bus.Subscribe(events)
	svc := NewCompilerService(bus, nil)

	art, err := svc.Compile(context.Background(), "X10 + X2 -> X1 [k = 2]; X1 <=> X2", CompileOptions{
		Name:        "odesystem",
		DefaultRate: 1,
		Jacobian:    true,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"X1", "X2", "X10"}, art.System.Variables)
	assert.True(t, art.System.HasJacobian())
	assert.Len(t, art.Graph.Reactions(), 3)
	assert.Len(t, art.SourceHash, 64)
	assert.Equal(t, []EventType{EventParsed, EventAssembled, EventCompiled}, drain(events))

	dy, err := art.Model.Derivatives([]float64{1, 1, 1}, 0, nil)
	require.NoError(t, err)
	// X10 + X2 -> X1 at 2, X1 -> X2 at 1, X2 -> X1 at 1
	assert.InDeltaSlice(t, []float64{2, -2, -2}, dy, 1e-12)
}

func TestCompileLabels(t *testing.T) {
	svc := NewCompilerService(nil, nil)

	art, err := svc.Compile(context.Background(), "A + B -> C", CompileOptions{
		Name:        "odesystem",
		Labels:      []string{"C", "A"},
		DefaultRate: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "A", "B"}, art.System.Variables)

	_, err = svc.Compile(context.Background(), "A + B -> C", CompileOptions{
		Name:   "odesystem",
		Labels: []string{"Z"},
	})
	assert.ErrorIs(t, err, simulate.ErrUnknownLabel)
}

func TestCompileErrors(t *testing.T) {
	bus := NewEventBus()
	events := make(chan Event, 16)
	bus.Subscribe(events)
	svc := NewCompilerService(bus, nil)
	ctx := context.Background()

	t.Run("syntax", func(t *testing.T) {
		_, err := svc.Compile(ctx, "A -> B [k = ]", CompileOptions{Name: "odesystem"})
		var syn *parser.SyntaxError
		require.True(t, errors.As(err, &syn), "got %v", err)
		assert.Equal(t, 1, syn.Line)
		assert.Equal(t, []EventType{EventFailed}, drain(events))
	})

	t.Run("species without reaction", func(t *testing.T) {
		_, err := svc.Compile(ctx, "A -> B\nX @i 1", CompileOptions{Name: "odesystem", DefaultRate: 1})
		require.ErrorIs(t, err, ErrSpeciesMismatch)
		assert.Contains(t, err.Error(), "network has 3 (A, B, X), graph has 2 (A, B)")
		drain(events)
	})

	t.Run("invalid name", func(t *testing.T) {
		_, err := svc.Compile(ctx, "A -> B", CompileOptions{Name: "func"})
		assert.ErrorIs(t, err, codec.ErrInvalidName)
		drain(events)
	})

	t.Run("cancelled", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := svc.Compile(cctx, "A -> B", CompileOptions{Name: "odesystem"})
		assert.ErrorIs(t, err, context.Canceled)
		drain(events)
	})
}

func TestSourceHash(t *testing.T) {
	base := CompileOptions{Name: "odesystem", DefaultRate: 1}
	jac := base
	jac.Jacobian = true

	assert.Equal(t, SourceHash(decay, base), SourceHash(decay, base))
	assert.NotEqual(t, SourceHash(decay, base), SourceHash(decay, jac))
	assert.NotEqual(t, SourceHash(decay, base), SourceHash(decay+"\n", base))
}

func TestEmit(t *testing.T) {
	bus := NewEventBus()
	events := make(chan Event, 16)
	bus.Subscribe(events)
	svc := NewCompilerService(bus, nil)

	art, err := svc.Compile(context.Background(), decay, CompileOptions{Name: "decay", DefaultRate: 1})
	require.NoError(t, err)
	drain(events)

	var buf bytes.Buffer
	require.NoError(t, svc.Emit(art, "go", &buf))
	assert.Contains(t, buf.String(), "package decay")
	assert.Contains(t, buf.String(), "func Odesystem(")
	assert.Equal(t, []EventType{EventExported}, drain(events))

	buf.Reset()
	require.NoError(t, svc.Emit(art, "json", &buf))
	assert.Contains(t, buf.String(), `"name": "decay"`)

	assert.ErrorIs(t, svc.Emit(art, "toml", &buf), codec.ErrUnknownFormat)
}

func TestImport(t *testing.T) {
	svc := NewCompilerService(nil, nil)
	compiled, err := svc.Compile(context.Background(), decay, CompileOptions{Name: "decay", DefaultRate: 1, RateNames: true})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, svc.Emit(compiled, "yaml", &buf))

	bus := NewEventBus()
	events := make(chan Event, 4)
	bus.Subscribe(events)
	art, err := NewCompilerService(bus, nil).Import(context.Background(), buf.Bytes(), "yaml", "fallback")
	require.NoError(t, err)
	assert.Equal(t, []EventType{EventImported}, drain(events))

	assert.Equal(t, "decay", art.Name)
	assert.Nil(t, art.Graph)
	assert.Equal(t, compiled.System.Equations(), art.System.Equations())
	assert.Equal(t, compiled.Model.Rates(), art.Model.Rates())
	assert.Len(t, art.SourceHash, 64)
	assert.Equal(t, compiled.System.Equations(), art.Record().ODEs)

	opts := simulate.DefaultOptions()
	opts.T8, opts.TLin = 1, 3
	opts.Solver.AbsTol, opts.Solver.RelTol = 1e-10, 1e-10
	res, _, err := NewSimulationService(nil, nil, nil).Simulate(context.Background(), art.Model, art.Record(), art.Model.DefaultConcentrations(), opts)
	require.NoError(t, err)
	_, final := res.Trajectory.Last()
	assert.InDelta(t, math.Exp(-1), final[0], 1e-7)
}

func TestImportErrors(t *testing.T) {
	svc := NewCompilerService(nil, nil)
	ctx := context.Background()

	art, err := svc.Import(ctx, []byte(`{"variables": ["A"], "odes": ["-A"]}`), "json", "unnamed")
	require.NoError(t, err)
	assert.Equal(t, "unnamed", art.Name)

	_, err = svc.Import(ctx, []byte(`{"variables": ["A"], "odes": ["-A"]}`), "go", "unnamed")
	assert.ErrorIs(t, err, codec.ErrUnknownFormat)

	_, err = svc.Import(ctx, []byte(`{"name": "my-model", "variables": ["A"], "odes": ["-A"]}`), "json", "unnamed")
	assert.ErrorIs(t, err, codec.ErrInvalidName)

	_, err = svc.Import(ctx, []byte(`{"variables": ["A"], "odes": ["-k*A"]}`), "json", "unnamed")
	assert.ErrorIs(t, err, codec.ErrInvalidDescription)

	_, err = svc.Import(ctx, []byte(`{`), "json", "unnamed")
	assert.Error(t, err)
}

func TestSimulateWithoutRepository(t *testing.T) {
	art, err := NewCompilerService(nil, nil).Compile(context.Background(), decay, CompileOptions{Name: "decay", DefaultRate: 1})
	require.NoError(t, err)

	opts := simulate.DefaultOptions()
	opts.T8, opts.TLin = 1, 3
	opts.Solver.AbsTol, opts.Solver.RelTol = 1e-10, 1e-10

	svc := NewSimulationService(nil, nil, nil)
	res, run, err := svc.Simulate(context.Background(), art.Model, art.Record(), art.Ordering.Concentrations, opts)
	require.NoError(t, err)
	assert.Nil(t, run)

	_, final := res.Trajectory.Last()
	assert.InDelta(t, math.Exp(-1), final[0], 1e-7)
	assert.InDelta(t, 1-math.Exp(-1), final[1], 1e-7)

	_, err = svc.Runs(context.Background(), "")
	assert.Error(t, err)
}

func TestSimulateRecords(t *testing.T) {
	repo, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	bus := NewEventBus()
	events := make(chan Event, 16)
	bus.Subscribe(events)

	ctx := context.Background()
	art, err := NewCompilerService(nil, nil).Compile(ctx, decay, CompileOptions{Name: "decay", DefaultRate: 1})
	require.NoError(t, err)

	opts := simulate.DefaultOptions()
	opts.T8, opts.TLin = 1, 3
	svc := NewSimulationService(repo, bus, nil)

	_, first, err := svc.Simulate(ctx, art.Model, art.Record(), art.Ordering.Concentrations, opts)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, []EventType{EventSimulated, EventRecorded}, drain(events))

	_, second, err := svc.Simulate(ctx, art.Model, art.Record(), []float64{0.5, 0.5}, opts)
	require.NoError(t, err)
	assert.Equal(t, first.ModelID, second.ModelID)

	models, err := repo.ListModels(ctx)
	require.NoError(t, err)
	assert.Len(t, models, 1)

	runs, err := svc.Runs(ctx, first.ModelID)
	require.NoError(t, err)
	assert.Len(t, runs, 2)

	run, m, err := svc.GetRun(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, "decay", m.Name)
	assert.Equal(t, []float64{0.5, 0.5}, run.Initial)
	assert.Equal(t, 3, run.NumSamples())
	assert.Equal(t, 1.0, run.Options["t8"])
	assert.Equal(t, 3.0, run.Options["t_lin"])

	_, _, err = svc.GetRun(ctx, "missing")
	assert.Error(t, err)
}

func TestSimulateFailure(t *testing.T) {
	bus := NewEventBus()
	events := make(chan Event, 4)
	bus.Subscribe(events)

	art, err := NewCompilerService(nil, nil).Compile(context.Background(), decay, CompileOptions{Name: "decay", DefaultRate: 1})
	require.NoError(t, err)

	opts := simulate.DefaultOptions()
	opts.T8 = 0
	_, _, err = NewSimulationService(nil, bus, nil).Simulate(context.Background(), art.Model, nil, []float64{1, 0}, opts)
	assert.ErrorIs(t, err, simulate.ErrNoEndTime)
	assert.Equal(t, []EventType{EventFailed}, drain(events))
}

func TestModelRecordFor(t *testing.T) {
	art, err := NewCompilerService(nil, nil).Compile(context.Background(), "A -> B [k = 3]", CompileOptions{
		Name:      "decay",
		Jacobian:  true,
		RateNames: true,
	})
	require.NoError(t, err)

	rec := ModelRecordFor(art.Model, "feed")
	assert.Equal(t, "decay", rec.Name)
	assert.Equal(t, "feed", rec.SourceHash)
	assert.Equal(t, []string{"A", "B"}, rec.Variables)
	assert.Equal(t, map[string]float64{"k0": 3}, rec.Rates)
	assert.True(t, rec.Jacobian)
}
