package sim

import (
	"context"
	"fmt"
	"io"

	"github.com/go-drift/grant/cmd/grantsim/internal/config"
	"github.com/go-drift/grant/pkg/diagnostics"
	"github.com/go-drift/grant/pkg/store"
	"github.com/go-drift/grant/pkg/store/redisstore"
	"github.com/go-drift/grant/pkg/store/sqlstore"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// OpenStore opens the backend cfg selects. The returned closer releases
// connections and is never nil.
func OpenStore(ctx context.Context, cfg config.StoreConfig, sink diagnostics.Sink) (store.Store, io.Closer, error) {
	switch cfg.Backend {
	case config.StoreNone:
		return store.Nop{}, nopCloser{}, nil
	case "", config.StoreMemory:
		return store.NewMemory(), nopCloser{}, nil
	case config.StoreFile:
		f, err := store.OpenFile(cfg.Path, sink)
		if err != nil {
			return nil, nil, err
		}
		return f, nopCloser{}, nil
	case config.StoreSQLite:
		s, err := sqlstore.Open(sqlstore.Config{Path: cfg.Path}, sink)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case config.StoreRedis:
		s, err := redisstore.Open(ctx, redisstore.Config{Addr: cfg.RedisAddr}, sink)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
