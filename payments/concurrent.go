package payments

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// DefaultBatchConcurrency bounds how many status queries run at once.
const DefaultBatchConcurrency = 10

// BatchQueryStatus fetches the status of multiple transactions
// concurrently. Individual lookup failures are logged and skipped so
// one bad ID does not sink the whole batch; the returned map holds an
// entry per transaction that resolved.
func (s *Service) BatchQueryStatus(ctx context.Context, ids []string) (map[string]*TransactionStatus, error) {
	results := make(map[string]*TransactionStatus, len(ids))
	if len(ids) == 0 {
		return results, nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(DefaultBatchConcurrency)

	var mu sync.Mutex

	for _, id := range ids {
		id := id
		g.Go(func() error {
			status, err := s.QueryStatus(ctx, id)
			if err != nil {
				s.logger.Warn().
					Err(err).
					Str("transaction_id", id).
					Msg("Failed to query transaction status")
				return nil
			}

			mu.Lock()
			results[id] = status
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
