package jobs

import (
	"context"
	"strconv"
	"time"

	"library-lending-backend/internal/logger"
)

// FlagStaleSettlements escalates payment intents stuck in a non-terminal
// state for longer than the configured window. The engine never resolves
// these on its own; an operator reconciles them against the gateway.
func (jr *JobRunner) FlagStaleSettlements() {
	jr.runWithRecovery("FlagStaleSettlements", func() {
		ctx := context.Background()
		cutoff := time.Now().Add(-time.Duration(jr.config.Gateway.StaleAfterHours) * time.Hour)

		stale, err := jr.services.Settlement.FlagStale(ctx, cutoff)
		if err != nil {
			logger.Error("Failed to flag stale settlements", "error", err)
			return
		}

		logger.Info("Stale settlements flagged", "count", len(stale), "cutoff", cutoff)
	})
}

func itoa(v int32) string {
	return strconv.FormatInt(int64(v), 10)
}
