package learning

import (
	"context"
	"errors"
	"fmt"
	"time"

	"adaptiveRouter/domain"
	"adaptiveRouter/pkg/logger"

	"golang.org/x/sync/errgroup"
)

const finalSaveTimeout = 5 * time.Second

// SnapshotStore persists engine snapshots. LatestSnapshot returns nil, nil
// when nothing has been stored yet.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, snap domain.StoredSnapshot) error
	LatestSnapshot(ctx context.Context) (*domain.StoredSnapshot, error)
}

// MultiStore writes to every store concurrently and reads the newest
// snapshot any store holds, so a cache can front a durable store. A failing
// store never cancels the writes to the others.
type MultiStore []SnapshotStore

func (m MultiStore) SaveSnapshot(ctx context.Context, snap domain.StoredSnapshot) error {
	errs := make([]error, len(m))
	var g errgroup.Group
	for i, s := range m {
		g.Go(func() error {
			errs[i] = s.SaveSnapshot(ctx, snap)
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// LatestSnapshot returns the snapshot with the latest TakenAt. Store errors
// are only reported when no store produced a snapshot.
func (m MultiStore) LatestSnapshot(ctx context.Context) (*domain.StoredSnapshot, error) {
	var (
		newest *domain.StoredSnapshot
		errs   []error
	)
	for _, s := range m {
		snap, err := s.LatestSnapshot(ctx)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if snap != nil && (newest == nil || snap.TakenAt.After(newest.TakenAt)) {
			newest = snap
		}
	}
	if newest != nil {
		if len(errs) > 0 {
			logger.Warn("learning_snapshot_store_read_failed", "error", errors.Join(errs...))
		}
		return newest, nil
	}
	return nil, errors.Join(errs...)
}

// Persister restores the engine on startup and saves it periodically.
type Persister struct {
	engine   *Engine
	store    SnapshotStore
	interval time.Duration
}

func NewPersister(engine *Engine, store SnapshotStore, interval time.Duration) *Persister {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Persister{engine: engine, store: store, interval: interval}
}

// RestoreLatest loads the newest stored snapshot into the engine.
func (p *Persister) RestoreLatest(ctx context.Context) (domain.RestoreReport, error) {
	snap, err := p.store.LatestSnapshot(ctx)
	if err != nil {
		return domain.RestoreReport{}, fmt.Errorf("failed to load latest snapshot: %w", err)
	}
	if snap == nil {
		logger.Info("learning_no_snapshot_to_restore")
		return domain.RestoreReport{Restored: []string{}, Skipped: map[string]string{}}, nil
	}
	logger.Info("learning_snapshot_loaded", "taken_at", snap.TakenAt)
	return p.engine.Restore(snap.Domains), nil
}

func (p *Persister) SaveNow(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}
	snap := p.engine.Snapshot()
	if len(snap) == 0 {
		return nil
	}
	stored := domain.StoredSnapshot{TakenAt: time.Now().UTC(), Domains: snap}
	if err := p.store.SaveSnapshot(ctx, stored); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	logger.Debug("learning_snapshot_saved", "domains", len(snap))
	return nil
}

// Run saves on every tick until ctx is cancelled, then saves once more.
func (p *Persister) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			finalCtx, cancel := context.WithTimeout(context.Background(), finalSaveTimeout)
			if err := p.SaveNow(finalCtx); err != nil {
				logger.Error("learning_final_snapshot_failed", "error", err)
			}
			cancel()
			return
		case <-ticker.C:
			if err := p.SaveNow(ctx); err != nil {
				logger.Error("learning_snapshot_failed", "error", err)
			}
		}
	}
}
