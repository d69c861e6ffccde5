package state

import (
	"context"
	"runtime"

	"github.com/clydemeng/fvm/core/types"
	"golang.org/x/sync/errgroup"
)

// Prefetch warms the account and code caches for the given addresses so that
// the executor resolves them without touching disk. It is best-effort:
// unknown accounts are cached as missing and decoding errors are memoized
// in Error. The call returns early if ctx is cancelled.
func (db *Database) Prefetch(ctx context.Context, addrs []types.Address) error {
	if len(addrs) == 0 {
		return nil
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for _, addr := range addrs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			db.CodeByHash(db.GetCodeHash(addr))
			return nil
		})
	}
	return g.Wait()
}
