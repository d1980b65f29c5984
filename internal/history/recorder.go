package history

import (
	"context"

	"github.com/PatrickWalther/wordle-timer-go/internal/puzzle"
)

var _ puzzle.Recorder = (*Recorder)(nil)

// Recorder stores completions and announces them on the hub. Either part may
// be nil.
type Recorder struct {
	repo *Repository
	hub  *Hub
}

func NewRecorder(repo *Repository, hub *Hub) *Recorder {
	return &Recorder{repo: repo, hub: hub}
}

func (r *Recorder) RecordCompletion(ctx context.Context, c puzzle.Completion) error {
	e := NewEntry(c)
	if r.repo != nil {
		if err := r.repo.Insert(ctx, e); err != nil {
			return err
		}
	}
	if r.hub != nil {
		r.hub.Publish(e)
	}
	return nil
}
