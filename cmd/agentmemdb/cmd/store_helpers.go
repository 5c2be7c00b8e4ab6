package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	memerrors "github.com/agentmem/agentmemdb/internal/errors"
	"github.com/agentmem/agentmemdb/internal/config"
	"github.com/agentmem/agentmemdb/pkg/memdb"
)

// lockRetryConfig governs how long openStore waits for another process to
// release a store's advisory lock before giving up. Tuned short: a CLI
// invocation is not a long-lived daemon, so a few hundred milliseconds of
// backoff is enough to ride out a neighboring command's brief hold on the
// lock without making an interactive user wait noticeably.
var lockRetryConfig = memerrors.RetryConfig{
	MaxRetries:   4,
	InitialDelay: 50 * time.Millisecond,
	MaxDelay:     400 * time.Millisecond,
	Multiplier:   2.0,
	Jitter:       true,
}

// storeFlags holds the flags shared by every subcommand that opens a
// DiskStore: a path, an optional dim override, and config overrides for
// the backend/capacity a fresh store is created with.
type storeFlags struct {
	path        string
	dim         int
	backend     string
	maxElements int
}

func addStoreFlags(cmd *cobra.Command, f *storeFlags) {
	cmd.Flags().StringVar(&f.path, "store", "", "Store directory (defaults to the configured store path)")
	cmd.Flags().IntVar(&f.dim, "dim", 0, "Embedding dimensionality (required the first time a store is created)")
	cmd.Flags().StringVar(&f.backend, "backend", "", "Index backend for a newly created store: exact or hnsw")
	cmd.Flags().IntVar(&f.maxElements, "max-elements", 0, "Capacity for a newly created HNSW-backed store")
}

// resolveStoreOptions merges CLI flags over config defaults and figures
// out the dim: an explicit --dim flag wins, then the existing store's
// meta.json (if any), then config.Store.Dim.
func resolveStoreOptions(cfg *config.Config, f *storeFlags) (path string, opts memdb.DiskOptions, err error) {
	path = f.path
	if path == "" {
		path = cfg.Store.Path
	}

	dim := f.dim
	if dim == 0 {
		if existing, ok, peekErr := memdb.PeekDim(path); peekErr != nil {
			return "", memdb.DiskOptions{}, fmt.Errorf("inspect existing store: %w", peekErr)
		} else if ok {
			dim = existing
		}
	}
	if dim == 0 {
		dim = cfg.Store.Dim
	}
	if dim == 0 {
		return "", memdb.DiskOptions{}, memerrors.ConfigError(
			fmt.Sprintf("no embedding dimensionality known for store %q; pass --dim on first use", path), nil)
	}

	backend := config.BackendType(f.backend)
	if backend == "" {
		backend = cfg.Store.Backend
	}

	maxElements := f.maxElements
	if maxElements == 0 {
		maxElements = cfg.Store.MaxElements
	}
	if maxElements == 0 {
		maxElements = 20000
	}

	switch backend {
	case config.BackendHNSW:
		opts = memdb.HnswDiskOptions(dim, maxElements)
	case config.BackendExact:
		opts = memdb.ExactDiskOptionsWithCheckpoint(dim)
	default:
		return "", memdb.DiskOptions{}, fmt.Errorf("unknown backend %q", backend)
	}

	return path, opts, nil
}

// openStore opens (or creates) the DiskStore named by f, relative to cfg.
// When another process briefly holds the store's lock file, it retries
// with backoff rather than failing the command immediately.
func openStore(ctx context.Context, cfg *config.Config, f *storeFlags) (*memdb.DiskStore, error) {
	path, opts, err := resolveStoreOptions(cfg, f)
	if err != nil {
		return nil, err
	}

	store, err := memerrors.RetryWithResult(ctx, lockRetryConfig, func() (*memdb.DiskStore, error) {
		return memdb.OpenWithOptions(path, opts)
	})
	if err != nil {
		if isLockContentionErr(err) {
			return nil, memerrors.New(memerrors.ErrCodeStoreLocked,
				fmt.Sprintf("store at %s is still locked by another process after retrying", path), err)
		}
		return nil, memerrors.FromMemDBErr(unwrapRetry(err))
	}
	return store, nil
}

// isLockContentionErr reports whether err (possibly wrapped by Retry's
// "failed after N retries" message) is the disk store's lock-held error.
func isLockContentionErr(err error) bool {
	return strings.Contains(err.Error(), "already open by another process")
}

// unwrapRetry strips Retry's "failed after N retries: %w" wrapping so
// FromMemDBErr sees the original memdb error, not the retry envelope.
func unwrapRetry(err error) error {
	if u := errors.Unwrap(err); u != nil {
		return u
	}
	return err
}

func loadConfig() (*config.Config, error) {
	return config.Load(".")
}
