package autocheck

import (
	"context"
	"time"

	"payment-confirmation-backend/internal/models"
)

// Start runs one pass immediately, then one per interval until ctx is
// done. Failures are logged and never stop the loop.
func (c *Checker) Start(ctx context.Context, interval time.Duration) {
	c.logger.InfoContext(ctx, "auto-checker started", "interval", interval)

	c.safeRun(ctx, models.RunTriggerStartup)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("auto-checker stopped")
			return
		case <-ticker.C:
			c.safeRun(ctx, models.RunTriggerSchedule)
		}
	}
}

func (c *Checker) safeRun(ctx context.Context, trigger string) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.ErrorContext(ctx, "auto-check run panicked", "trigger", trigger, "panic", r)
		}
	}()

	if _, err := c.Run(ctx, trigger); err != nil {
		c.logger.ErrorContext(ctx, "auto-check run failed", "trigger", trigger, "error", err)
	}
}
