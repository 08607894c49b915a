// Package fetch holds the request bookkeeping shared by the controllers that
// load remote data: the status of the latest load and the sequence numbers
// used to drop responses that arrive after a newer request was issued.
package fetch

import "sync/atomic"

type Status string

const (
	Idle    Status = "idle"
	Loading Status = "loading"
	Success Status = "success"
	Error   Status = "error"
)

// Sequencer hands out increasing tickets. Only the most recent ticket is
// current.
type Sequencer struct {
	n atomic.Uint64
}

func (s *Sequencer) Next() uint64 {
	return s.n.Add(1)
}

func (s *Sequencer) Current(ticket uint64) bool {
	return s.n.Load() == ticket
}
