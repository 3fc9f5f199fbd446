package hybridexcel

import "fmt"

// Strategy is how Phase 2 edits the worksheet part.
type Strategy int

const (
	StrategySkip Strategy = iota
	StrategyTree
	StrategyStreaming
)

func (s Strategy) String() string {
	switch s {
	case StrategySkip:
		return "skip"
	case StrategyTree:
		return "tree"
	case StrategyStreaming:
		return "streaming"
	}
	return fmt.Sprintf("strategy(%d)", int(s))
}

// Decision is the selector's verdict with a short reason for logs.
type Decision struct {
	Strategy Strategy
	Reason   string
}

// SelectStrategy picks the Phase-2 mode from the row count and the
// uncompressed size of the worksheet part. It has no side effects.
func SelectStrategy(rows int, partSize int64, req FeatureRequest, schema ColumnSchema, th Thresholds) Decision {
	if req.Empty(schema) {
		return Decision{StrategySkip, "no features requested"}
	}
	if th.HardMaxPartBytes > 0 && partSize > th.HardMaxPartBytes {
		return Decision{StrategySkip, fmt.Sprintf("part size %d exceeds hard limit %d", partSize, th.HardMaxPartBytes)}
	}
	if rows > th.TreeMaxRows {
		if th.RowOverflow == RowOverflowStream {
			return Decision{StrategyStreaming, fmt.Sprintf("%d rows exceeds tree limit %d", rows, th.TreeMaxRows)}
		}
		return Decision{StrategySkip, fmt.Sprintf("%d rows exceeds tree limit %d", rows, th.TreeMaxRows)}
	}
	if partSize > th.TreeMaxPartBytes {
		return Decision{StrategyStreaming, fmt.Sprintf("part size %d exceeds tree limit %d", partSize, th.TreeMaxPartBytes)}
	}
	return Decision{StrategyTree, "within tree limits"}
}
