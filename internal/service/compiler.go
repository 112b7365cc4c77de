package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"go.uber.org/zap"

	"crnsim/internal/codec"
	"crnsim/internal/domain"
	"crnsim/internal/graph"
	"crnsim/internal/logging"
	"crnsim/internal/model"
	"crnsim/internal/ode"
	"crnsim/internal/parser"
	"crnsim/internal/simulate"
)

// ErrSpeciesMismatch means the network names species that no reaction uses
var ErrSpeciesMismatch = errors.New("species in network and reaction graph differ")

// CompileOptions configures one compilation
type CompileOptions struct {
	Name        string
	Labels      []string
	DefaultRate float64
	Jacobian    bool
	RateNames   bool
}

// Artifact holds every stage of a compiled network
type Artifact struct {
	Name       string
	SourceHash string
	Network    *domain.Network
	Graph      *graph.Graph
	Ordering   *simulate.Ordering
	System     *ode.System
	Model      *model.Model
}

// CompilerService runs the parse, graph and assembly stages
type CompilerService struct {
	eventBus *EventBus
	logger   *zap.Logger
}

// NewCompilerService creates a new compiler service. Both arguments may be nil.
func NewCompilerService(eventBus *EventBus, logger *zap.Logger) *CompilerService {
	return &CompilerService{
		eventBus: eventBus,
		logger:   logging.OrNop(logger),
	}
}

// Compile turns CRN text into an assembled system and a callable model
func (s *CompilerService) Compile(ctx context.Context, src string, opts CompileOptions) (*Artifact, error) {
	art, err := s.compile(ctx, src, opts)
	if err != nil {
		s.eventBus.Publish(Event{Type: EventFailed, Model: opts.Name, Payload: err.Error()})
		return nil, err
	}
	s.eventBus.Publish(Event{
		Type:    EventCompiled,
		Model:   art.Name,
		Payload: map[string]int{"variables": art.System.Len(), "reactions": len(art.Graph.Reactions())},
	})
	return art, nil
}

func (s *CompilerService) compile(ctx context.Context, src string, opts CompileOptions) (*Artifact, error) {
	if err := codec.ValidateName(opts.Name); err != nil {
		return nil, err
	}

	net, err := parser.ParseString(src)
	if err != nil {
		return nil, err
	}
	s.eventBus.Publish(Event{Type: EventParsed, Model: opts.Name, Payload: map[string]int{
		"reactions": len(net.Reactions),
		"species":   len(net.Species),
	}})
	s.logger.Debug("parsed network",
		zap.String("model", opts.Name),
		zap.Int("reactions", len(net.Reactions)),
		zap.Int("species", len(net.Species)))

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reactions, err := net.Irreversible(opts.DefaultRate)
	if err != nil {
		return nil, err
	}
	g, err := graph.FromReactions(reactions)
	if err != nil {
		return nil, err
	}
	if err := checkSpecies(net, g); err != nil {
		return nil, err
	}

	order, err := simulate.Order(net, opts.Labels)
	if err != nil {
		return nil, err
	}

	sys, err := ode.Assemble(g, ode.Options{
		Order:          order.Variables,
		Constant:       order.Constant,
		Concentrations: order.Concentrations,
		Jacobian:       opts.Jacobian,
		RateNames:      opts.RateNames,
		Logger:         s.logger,
	})
	if err != nil {
		return nil, err
	}
	s.eventBus.Publish(Event{Type: EventAssembled, Model: opts.Name, Payload: sys.Equations()})

	m, err := model.New(opts.Name, sys)
	if err != nil {
		return nil, err
	}

	return &Artifact{
		Name:       opts.Name,
		SourceHash: SourceHash(src, opts),
		Network:    net,
		Graph:      g,
		Ordering:   order,
		System:     sys,
		Model:      m,
	}, nil
}

// checkSpecies requires every species of the network to occur in a reaction
func checkSpecies(net *domain.Network, g *graph.Graph) error {
	if len(net.Species) == len(g.Species()) {
		return nil
	}
	inNet := net.SpeciesNames()
	inGraph := g.Species()
	sort.Strings(inNet)
	sort.Strings(inGraph)
	return fmt.Errorf("%w: network has %d (%s), graph has %d (%s)", ErrSpeciesMismatch,
		len(inNet), strings.Join(inNet, ", "), len(inGraph), strings.Join(inGraph, ", "))
}

// SourceHash identifies a compilation by its input text and options
func SourceHash(src string, opts CompileOptions) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%g\x00%t\x00%t\x00", opts.Name, strings.Join(opts.Labels, ","),
		opts.DefaultRate, opts.Jacobian, opts.RateNames)
	io.WriteString(h, src)
	return hex.EncodeToString(h.Sum(nil))
}

// Import rebuilds an artifact from a JSON or YAML model description. The
// artifact has no network or graph. fallbackName is used when the
// description carries no name.
func (s *CompilerService) Import(ctx context.Context, src []byte, format, fallbackName string) (*Artifact, error) {
	art, err := s.importDescription(ctx, src, format, fallbackName)
	if err != nil {
		s.eventBus.Publish(Event{Type: EventFailed, Model: fallbackName, Payload: err.Error()})
		return nil, err
	}
	s.eventBus.Publish(Event{Type: EventImported, Model: art.Name, Payload: map[string]int{"variables": art.System.Len()}})
	s.logger.Info("model imported",
		zap.String("model", art.Name),
		zap.String("format", format),
		zap.Int("variables", art.System.Len()))
	return art, nil
}

func (s *CompilerService) importDescription(ctx context.Context, src []byte, format, fallbackName string) (*Artifact, error) {
	imp, err := codec.ImporterFor(format)
	if err != nil {
		return nil, err
	}
	d, err := imp.Parse(bytes.NewReader(src))
	if err != nil {
		return nil, err
	}
	if d.Name == "" {
		d.Name = fallbackName
	}
	if err := codec.ValidateName(d.Name); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sys, err := d.System()
	if err != nil {
		return nil, err
	}
	m, err := model.New(d.Name, sys)
	if err != nil {
		return nil, err
	}
	return &Artifact{
		Name:       d.Name,
		SourceHash: SourceHash(string(src), CompileOptions{Name: d.Name, Jacobian: sys.HasJacobian()}),
		System:     sys,
		Model:      m,
	}, nil
}

// Emit writes the artifact's system in the given codec format
func (s *CompilerService) Emit(art *Artifact, format string, w io.Writer) error {
	exp, err := codec.ForFormat(format)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := exp.Export(art.Name, art.System, &buf); err != nil {
		return fmt.Errorf("export %s: %w", format, err)
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return err
	}

	s.eventBus.Publish(Event{Type: EventExported, Model: art.Name, Payload: exp.Format()})
	s.logger.Info("model exported",
		zap.String("model", art.Name),
		zap.String("format", exp.Format()),
		zap.Int("bytes", buf.Len()))
	return nil
}

// Record converts the artifact into a persistable model record
func (a *Artifact) Record() *domain.ModelRecord {
	return &domain.ModelRecord{
		Name:       a.Name,
		SourceHash: a.SourceHash,
		Variables:  append([]string(nil), a.System.Variables...),
		ODEs:       a.System.Equations(),
		Rates:      a.Model.Rates(),
		Jacobian:   a.System.HasJacobian(),
	}
}
