// Package repository defines the data access interface for crnsim.
//
// Compiled models and simulation runs are recorded so that a trajectory can
// be looked up again without re-integrating. The implementation lives in the
// sqlite subpackage.
//
// # Records
//
// A model record holds the variable order, the rendered ODEs and the numeric
// rate table of a compiled network, keyed by a hash of its source and compile
// options. A run references a model and stores the initial state, the solver
// options and every sampled time point.
//
// # SQLite Implementation
//
// The sqlite implementation uses the pure Go modernc.org/sqlite driver with a
// single pooled connection, so in-memory databases work for tests. Samples
// are written in the same transaction as their run.
package repository
