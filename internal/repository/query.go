package repository

import (
	"fmt"
	"strings"

	"github.com/nadmax/modreport/internal/outcome"
)

const (
	countColumns = `
		SELECT module, success, COUNT(*) AS count`
	latencyColumns = `
		SELECT module, success, COUNT(*) AS count,
			percentile_cont(0.5) WITHIN GROUP (ORDER BY ttfb_ms) AS ttfb_p50,
			percentile_cont(0.95) WITHIN GROUP (ORDER BY ttfb_ms) AS ttfb_p95`
)

func subjectColumn(s outcome.Subject) (string, error) {
	switch s.Kind {
	case outcome.SubjectClient:
		return "client_id", nil
	case outcome.SubjectProvider:
		return "provider_id", nil
	default:
		return "", fmt.Errorf("unsupported subject kind: %q", s.Kind)
	}
}

// buildGroupedQuery returns the grouped aggregation for variant over f.
// The base filter is fixed; exactly one identifier column is attached.
func buildGroupedQuery(variant outcome.Variant, f outcome.Filter) (string, []any, error) {
	column, err := subjectColumn(f.Subject)
	if err != nil {
		return "", nil, err
	}
	if f.Subject.ID == "" {
		return "", nil, fmt.Errorf("empty %s identifier", f.Subject.Kind)
	}

	var b strings.Builder
	switch variant {
	case outcome.VariantCounts:
		b.WriteString(countColumns)
	case outcome.VariantLatency:
		b.WriteString(latencyColumns)
	default:
		return "", nil, fmt.Errorf("unsupported report variant: %q", variant)
	}

	b.WriteString(`
		FROM task_result
		WHERE requester = $1
		  AND `)
	b.WriteString(column)
	b.WriteString(` = $2
		  AND created_at >= $3
		  AND created_at < $4
		GROUP BY module, success
	`)

	args := []any{f.Requester, f.Subject.ID, f.Window.Start, f.Window.End}
	return b.String(), args, nil
}
