package escrow

import (
	"context"
	"errors"
	"fmt"
)

// expiryBatch caps how many records one FlagExpired pass visits. The rest
// are picked up on later passes since flagged records drop out of the scan.
const expiryBatch = 100

var errNotExpired = errors.New("match not eligible for refund flag")

// FlagExpired marks HostFunded matches whose deadline has passed and appends
// one refund_available event to each. It never moves funds; the host still
// has to call RefundHostExpired. It returns the codes flagged on this pass.
func (e *Engine) FlagExpired(ctx context.Context) ([]string, error) {
	now := e.clock.Now()
	matches, err := e.store.List(ctx, ListFilter{
		States:         []State{StateHostFunded},
		DeadlineBefore: now,
		Unflagged:      true,
		Limit:          expiryBatch,
	})
	if err != nil {
		return nil, fmt.Errorf("list expired: %w", err)
	}

	var flagged []string
	for _, m := range matches {
		err := e.store.Update(ctx, m.Code, func(rec *Match, tx Tx) error {
			if rec.State != StateHostFunded || rec.RefundFlagged || now.Before(rec.Deadline) {
				return errNotExpired
			}
			rec.RefundFlagged = true
			return tx.Emit(e.event(rec, EventRefundAvailable, NoAccount, "", map[string]any{
				"deadline": rec.Deadline.Unix(),
				"amount":   rec.Stake,
			}))
		})
		switch {
		case errors.Is(err, errNotExpired):
			continue
		case err != nil:
			return flagged, fmt.Errorf("flag %s: %w", m.Code, err)
		}
		flagged = append(flagged, m.Code)
	}
	return flagged, nil
}
