package netinfo

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"tunneldeck/internal/backend"
	"tunneldeck/internal/guard"
)

// Source is the subset of the backend the fetcher queries.
type Source interface {
	ResetCachedData(ctx context.Context) (bool, error)
	PriorityInterface(ctx context.Context) (backend.InterfaceResult, error)
	InternetAvailable(ctx context.Context) (backend.ReachabilityResult, error)
	GatewayAvailable(ctx context.Context) (backend.ReachabilityResult, error)
	PrioritizedNetworkInfo(ctx context.Context) (backend.NetworkInfoResult, error)
}

// Fetcher produces one snapshot update per Fetch call.
type Fetcher struct {
	src    Source
	store  *Store
	logger *zap.Logger
}

// NewFetcher creates a fetcher writing into store.
func NewFetcher(src Source, store *Store, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{src: src, store: store, logger: logger}
}

// Fetch clears the backend cache, then queries every fact concurrently. Each fact
// is applied to the store as soon as its own call resolves; failures fall back to
// the fact's sentinel without affecting the others. Fetch returns after all
// queries have finished, and only reports ctx cancellation.
func (f *Fetcher) Fetch(ctx context.Context, cycleID string) error {
	guard.Call(ctx, f.logger, cycleID, backend.MethodResetCachedData, f.src.ResetCachedData, true)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		res := guard.Call(gctx, f.logger, cycleID, backend.MethodPriorityInterface, f.src.PriorityInterface,
			backend.InterfaceResult{Success: false, Data: backend.NotAvailable})
		f.store.SetInterface(InterfaceFacts(res))
		return gctx.Err()
	})

	g.Go(func() error {
		res := guard.Call(gctx, f.logger, cycleID, backend.MethodInternetAvailable, f.src.InternetAvailable,
			backend.ReachabilityResult{Success: false})
		f.store.SetInternet(Reachability(res))
		return gctx.Err()
	})

	g.Go(func() error {
		res := guard.Call(gctx, f.logger, cycleID, backend.MethodGatewayAvailable, f.src.GatewayAvailable,
			backend.ReachabilityResult{Success: false})
		f.store.SetGateway(Reachability(res))
		return gctx.Err()
	})

	g.Go(func() error {
		res := guard.Call(gctx, f.logger, cycleID, backend.MethodPrioritizedNetworkInfo, f.src.PrioritizedNetworkInfo,
			backend.NetworkInfoResult{Success: false, Data: backend.NotAvailable})
		f.store.SetDiagnostics(DiagnosticLines(res))
		return gctx.Err()
	})

	return g.Wait()
}
