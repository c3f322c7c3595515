package store

import (
	"context"

	"github.com/convictionlabs/credence/internal/domain"
)

// NopHook discards snapshots. Used when no database is configured; the
// pipeline keeps full state in memory either way.
type NopHook struct{}

func NewNopHook() *NopHook {
	return &NopHook{}
}

func (NopHook) Persist(context.Context, domain.BeliefSnapshot) error {
	return nil
}
