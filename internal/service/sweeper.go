package service

import (
	"context"
	"time"

	"gitlab.com/sgtreasury/tally/internal/logger"
)

// SweepTimeout bounds a single purge.
const SweepTimeout = time.Minute

// RunInviteSweeper purges expired invites every interval until ctx is done.
// It returns immediately when interval is not positive.
func RunInviteSweeper(ctx context.Context, invites *InviteService, interval time.Duration) {
	if interval <= 0 {
		logger.Log.Info().Msg("Invite sweeper is disabled")
		return
	}

	logger.Log.Info().Dur("interval", interval).Msg("Invite sweeper loop started")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	select {
	case <-ctx.Done():
		logger.Log.Info().Msg("Invite sweeper loop stopped")
		return
	default:
	}

	sweep(ctx, invites)

	for {
		select {
		case <-ctx.Done():
			logger.Log.Info().Msg("Invite sweeper loop stopped")
			return
		case <-ticker.C:
			sweep(ctx, invites)
		}
	}
}

func sweep(ctx context.Context, invites *InviteService) {
	sweepCtx, cancel := context.WithTimeout(ctx, SweepTimeout)
	defer cancel()

	n, err := invites.PurgeExpired(sweepCtx)
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to purge expired invites")
		return
	}
	if n > 0 {
		logger.Log.Info().Int64("purged", n).Msg("Purged expired invites")
	}
}
