// Package guard runs a single remote call so that its failure degrades to a default
// value instead of escaping the caller.
package guard

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Call invokes fn and returns its result. If fn returns an error or panics, the
// failure is logged with the call id and method name and def is returned instead.
func Call[T any](ctx context.Context, logger *zap.Logger, id, method string, fn func(context.Context) (T, error), def T) (result T) {
	defer func() {
		if r := recover(); r != nil {
			logFailure(logger, id, method, fmt.Errorf("panic: %v", r))
			result = def
		}
	}()

	v, err := fn(ctx)
	if err != nil {
		logFailure(logger, id, method, err)
		return def
	}
	return v
}

func logFailure(logger *zap.Logger, id, method string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("remote call failed",
		zap.String("call_id", id),
		zap.String("method", method),
		zap.Error(err),
	)
}
