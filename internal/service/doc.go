// Package service wires the compiler stages into the two pipelines the
// commands run.
//
// # Services
//
// CompilerService takes CRN text through parsing, reversible splitting,
// graph construction and assembly, and produces an Artifact holding every
// intermediate result together with a callable model. Artifacts can be
// emitted in any codec format.
//
// SimulationService integrates a model over a time grid and, when a
// repository is configured, records the model and the trajectory.
//
// # Event System
//
// Both services publish one event per finished stage on an EventBus.
// Publishing never blocks: a subscriber that is not ready misses the event.
// The watch mode of the compile command subscribes to report progress.
package service
