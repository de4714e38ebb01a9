package inboxapi

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/DoyleJ11/inbox-dashboard/pkg/types"
)

// LoadSeed reads a JSON array of tickets.
func LoadSeed(path string) ([]types.Ticket, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var tickets []types.Ticket
	if err := json.Unmarshal(data, &tickets); err != nil {
		return nil, fmt.Errorf("parse seed %s: %w", path, err)
	}
	return tickets, nil
}

// SeedIfEmpty fills an empty store from path. A populated store is left alone.
// A missing or broken seed file is logged, not fatal.
func SeedIfEmpty(ctx context.Context, s Store, path string, logger *zap.Logger) error {
	n, err := s.Count(ctx)
	if err != nil {
		return fmt.Errorf("count tickets: %w", err)
	}
	if n > 0 || path == "" {
		return nil
	}

	logger.Info("empty store, loading seed tickets", zap.String("file", path))
	tickets, err := LoadSeed(path)
	if err != nil {
		logger.Warn("could not load seed tickets", zap.Error(err))
		return nil
	}
	if err := s.Insert(ctx, tickets); err != nil {
		return fmt.Errorf("insert seed tickets: %w", err)
	}
	logger.Info("seed tickets inserted", zap.Int("count", len(tickets)))
	return nil
}
