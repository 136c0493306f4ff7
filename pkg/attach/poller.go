package attach

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/skiff-data/skiff-engine/pkg/apperrors"
	"github.com/skiff-data/skiff-engine/pkg/engine"
	"github.com/skiff-data/skiff-engine/pkg/engine/drivers"
	"github.com/skiff-data/skiff-engine/pkg/logging"
)

// VerificationPoller confirms that an attach actually landed in the
// engine catalog. An ATTACH statement returning without error is not
// proof of attachment for kinds that settle asynchronously, so a
// source is only marked connected after its alias shows up in catalog
// introspection.
type VerificationPoller struct {
	logger *zap.Logger

	// sleep is swappable in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewVerificationPoller creates a poller.
func NewVerificationPoller(logger *zap.Logger) *VerificationPoller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VerificationPoller{logger: logger, sleep: sleepCtx}
}

// Confirm polls the catalog until alias is present or the budget is
// exhausted. Exhaustion returns *apperrors.VerificationTimeoutError,
// which the pipeline treats as attach failure with rollback, distinct
// from an attach error.
func (p *VerificationPoller) Confirm(ctx context.Context, h *engine.Handle, alias string, budget drivers.VerificationBudget) error {
	query := drivers.VerificationQuery()

	for attempt := 1; attempt <= budget.Attempts; attempt++ {
		present, err := h.QueryExists(ctx, query, alias)
		if err != nil {
			// A duplicate-class answer during verification means the
			// entry is there; that is the confirmation we wanted.
			if engine.IsDuplicate(err) {
				return nil
			}
			p.logger.Warn("Catalog verification query failed",
				zap.String("alias", alias),
				zap.Int("attempt", attempt),
				zap.String("error", logging.SanitizeError(err)))
		} else if present {
			if attempt > 1 {
				p.logger.Debug("Catalog entry appeared after polling",
					zap.String("alias", alias),
					zap.Int("attempt", attempt))
			}
			return nil
		}

		if attempt < budget.Attempts {
			if err := p.sleep(ctx, budget.Delay); err != nil {
				return err
			}
		}
	}

	return &apperrors.VerificationTimeoutError{Alias: alias, Attempts: budget.Attempts}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
