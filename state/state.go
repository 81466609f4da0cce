package state

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// NodeId identifies a node in the network. Ids are assigned by the
// experiment harness and carried verbatim in the Hello wire format.
type NodeId uint32

type GsqrModule interface {
	Init(s *State) error
	Cleanup(s *State) error
}

// State access must be done only on a single Goroutine
type State struct {
	*Env
	Modules    map[string]GsqrModule
	Neighbours *NeighbourTable
	Embeddings *EmbeddingStore
}

// Env can be read from any Goroutine
type Env struct {
	DispatchChannel chan<- func(s *State) error
	CentralCfg
	LocalCfg
	Context  context.Context
	Cancel   context.CancelCauseFunc
	Log      *slog.Logger
	Clock    Clock
	Stopping atomic.Bool
}

// Now returns the current simulated time in seconds.
func (e *Env) Now() float64 {
	return e.Clock.Now()
}
