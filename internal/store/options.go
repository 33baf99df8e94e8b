package store

import sq "github.com/Masterminds/squirrel"

type ListOption func(sq.SelectBuilder) sq.SelectBuilder

func ByTestcase(ids ...string) ListOption {
	return func(b sq.SelectBuilder) sq.SelectBuilder {
		if len(ids) == 0 {
			return b
		}
		return b.Where(sq.Eq{"testcase_id": ids})
	}
}

func ByStatus(statuses ...string) ListOption {
	return func(b sq.SelectBuilder) sq.SelectBuilder {
		if len(statuses) == 0 {
			return b
		}
		return b.Where(sq.Eq{"status": statuses})
	}
}

func ByRun(runID string) ListOption {
	return func(b sq.SelectBuilder) sq.SelectBuilder {
		if runID == "" {
			return b
		}
		return b.Where(sq.Eq{"run_id": runID})
	}
}

func ByJob(jobIDs ...string) ListOption {
	return func(b sq.SelectBuilder) sq.SelectBuilder {
		if len(jobIDs) == 0 {
			return b
		}
		return b.Where(sq.Eq{"job_id": jobIDs})
	}
}

func ByOutcome(outcomes ...string) ListOption {
	return func(b sq.SelectBuilder) sq.SelectBuilder {
		if len(outcomes) == 0 {
			return b
		}
		return b.Where(sq.Eq{"outcome": outcomes})
	}
}

func WithLimit(limit uint64) ListOption {
	return func(b sq.SelectBuilder) sq.SelectBuilder {
		return b.Limit(limit)
	}
}

func WithOffset(offset uint64) ListOption {
	return func(b sq.SelectBuilder) sq.SelectBuilder {
		return b.Offset(offset)
	}
}

// countable applies opts without paging so the total can be counted.
func countable(b sq.SelectBuilder, opts []ListOption) sq.SelectBuilder {
	for _, opt := range opts {
		b = opt(b)
	}
	return b.RemoveLimit().RemoveOffset()
}
