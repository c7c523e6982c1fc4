package cmd

import (
	"context"
	"errors"

	"github.com/IIExpanse/honest-sign-test-task/internal/config"
	"github.com/IIExpanse/honest-sign-test-task/internal/core/store"
)

// openJournal opens the configured journal. A disabled journal yields nil
// without an error.
func openJournal(ctx context.Context, cfg *config.Config) (store.Journal, error) {
	journal, err := store.OpenJournal(ctx, cfg.Journal)
	if errors.Is(err, store.ErrJournalDisabled) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return journal, nil
}

// requireJournal is openJournal for commands that cannot run without one.
func requireJournal(ctx context.Context, cfg *config.Config) (store.Journal, error) {
	journal, err := store.OpenJournal(ctx, cfg.Journal)
	if err != nil {
		return nil, err
	}
	return journal, nil
}
