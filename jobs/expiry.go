package jobs

import (
	"context"
	"time"

	"wagerd/escrow"

	"github.com/gofiber/fiber/v2/log"
)

// StartExpiryScanner flags expired host-funded matches every interval until
// ctx is cancelled. The returned channel closes once the loop has stopped.
func StartExpiryScanner(ctx context.Context, engine *escrow.Engine, interval time.Duration) <-chan struct{} {
	done := make(chan struct{})
	ticker := time.NewTicker(interval)
	go func() {
		defer close(done)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				scanOnce(ctx, engine)
			}
		}
	}()
	return done
}

func scanOnce(ctx context.Context, engine *escrow.Engine) {
	flagged, err := engine.FlagExpired(ctx)
	if err != nil {
		log.Errorf("❌ error scanning expired matches: %v", err)
	}
	for _, code := range flagged {
		log.Infof("🟡 match %s refund available", code)
	}
}
