package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/eventportal/internal/content"
	"github.com/Shivanand-hulikatti/eventportal/internal/model"
)

// CatalogSource supplies validated catalog events.
type CatalogSource interface {
	FetchEvents(ctx context.Context) (*content.FetchResult, error)
}

// CatalogSync copies the CMS catalog into the event registry.
type CatalogSync struct {
	source   CatalogSource
	registry EventRegistry
	logger   *zap.Logger

	mu sync.Mutex
}

// NewCatalogSync constructs a CatalogSync reading from source.
func NewCatalogSync(source CatalogSource, registry EventRegistry, logger *zap.Logger) *CatalogSync {
	return &CatalogSync{source: source, registry: registry, logger: logger.Named("catalog")}
}

// Sync fetches the catalog once and upserts it. On failure the registry is
// left untouched. Concurrent calls are serialized.
func (s *CatalogSync) Sync(ctx context.Context) (model.SyncResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.source.FetchEvents(ctx)
	if err != nil {
		return model.SyncResult{}, err
	}
	if err := s.registry.Upsert(ctx, res.Events); err != nil {
		return model.SyncResult{}, fmt.Errorf("store catalog: %w", err)
	}

	out := model.SyncResult{Fetched: len(res.Events), Dropped: len(res.Dropped)}
	s.logger.Info("catalog synced", zap.Int("events", out.Fetched), zap.Int("dropped", out.Dropped))
	return out, nil
}

// Run syncs immediately and then every interval until ctx is cancelled.
// Failures are logged and the previous catalog keeps being served.
func (s *CatalogSync) Run(ctx context.Context, interval time.Duration) {
	s.syncLogged(ctx)
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.syncLogged(ctx)
		}
	}
}

func (s *CatalogSync) syncLogged(ctx context.Context) {
	if _, err := s.Sync(ctx); err != nil && ctx.Err() == nil {
		s.logger.Error("catalog sync failed", zap.Error(err))
	}
}
