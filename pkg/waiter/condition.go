package waiter

import (
	"context"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/creasty/defaults"
	"go.uber.org/zap"
)

// Condition reports whether the awaited condition holds.
type Condition func(ctx context.Context) (bool, error)

// ConditionOptions configure Until. Zero fields take their defaults.
type ConditionOptions struct {
	Name     string        `default:"condition"`
	Interval time.Duration `default:"2s"`
	Attempts int           `default:"40"`
	// Duration bounds the wait by time instead of Attempts when set.
	Duration     time.Duration
	Silent       bool
	IgnoreErrors bool
	Clock        clock.Clock
}

// Until evaluates cond until it holds, attempts or duration are exhausted, or ctx ends.
// Exhaustion is reported as (false, nil).
func Until(ctx context.Context, cond Condition, opts ConditionOptions) (bool, error) {
	if err := defaults.Set(&opts); err != nil {
		return false, fmt.Errorf("invalid condition options: %w", err)
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.New()
	}

	log := zap.S().Named("condition_waiter").With("condition", opts.Name)
	start := clk.Now()
	end := start.Add(opts.Duration)

	attempt := 1
	for ; ; attempt++ {
		ok, err := cond(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return false, ctx.Err()
			}
			if !opts.IgnoreErrors {
				return false, fmt.Errorf("%s: attempt %d: %w", opts.Name, attempt, err)
			}
			log.Warnw("ignoring condition error", "attempt", attempt, "error", err)
		}
		if ok {
			log.Infow("condition met", "attempts", attempt, "duration", clk.Since(start).Round(time.Second))
			return true, nil
		}
		if !opts.Silent {
			log.Infow("condition not met yet", "attempt", attempt, "duration", clk.Since(start).Round(time.Second))
		}

		if opts.Duration > 0 {
			if !clk.Now().Add(opts.Interval).Before(end) {
				break
			}
		} else if attempt >= opts.Attempts {
			break
		}

		if err := sleep(ctx, clk, opts.Interval); err != nil {
			return false, err
		}
	}

	log.Errorw("condition not met", "attempts", attempt, "duration", clk.Since(start).Round(time.Second))
	return false, nil
}
