package service

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// StartSweeps schedules the maintenance deletes: expired sessions and lapsed
// verification tokens. Request handling never runs these; they only remove
// rows already past expiry, so they're safe to race with live traffic.
// Returns the scheduler so the caller can Stop it on shutdown.
func StartSweeps(spec string, sessions *Sessions, tokens *TokenRegistry) (*cron.Cron, error) {
	c := cron.New()

	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		n, err := sessions.DeleteAllExpired(ctx)
		if err != nil {
			zap.L().Error("Failed to sweep expired sessions", zap.Error(err))
		} else if n > 0 {
			zap.L().Debug("Swept expired sessions", zap.Int64("deleted", n))
		}

		n, err = tokens.DeleteAllExpired(ctx)
		if err != nil {
			zap.L().Error("Failed to sweep expired tokens", zap.Error(err))
		} else if n > 0 {
			zap.L().Debug("Swept expired tokens", zap.Int64("deleted", n))
		}
	})
	if err != nil {
		return nil, err
	}

	c.Start()
	zap.L().Debug("Expiry sweeps attached", zap.String("schedule", spec))

	return c, nil
}
