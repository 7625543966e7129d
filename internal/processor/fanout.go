package processor

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// fanOut runs fn once per key with at most workers in flight and concatenates the
// results in key order.
func fanOut[In, Out any](
	ctx context.Context,
	workers int,
	keys []string,
	groups map[string][]In,
	fn func(key string, rows []In) ([]Out, error),
) ([]Out, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	parts := make([][]Out, len(keys))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, k := range keys {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out, err := fn(k, groups[k])
			if err != nil {
				return err
			}
			parts[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, p := range parts {
		total += len(p)
	}
	out := make([]Out, 0, total)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out, nil
}
