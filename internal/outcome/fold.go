package outcome

// Fold merges grouped rows into one summary per module. Modules keep the
// order in which they first appear in rows. A success row overwrites the
// module's percentiles, so modules without successful tasks keep nil ones.
func Fold(rows []GroupRow) []ModuleSummary {
	summaries := make([]ModuleSummary, 0, len(rows))
	index := make(map[string]int, len(rows))

	for _, row := range rows {
		i, ok := index[row.Module]
		if !ok {
			i = len(summaries)
			index[row.Module] = i
			summaries = append(summaries, ModuleSummary{
				ModuleCounts: ModuleCounts{Module: row.Module},
			})
		}

		s := &summaries[i]
		s.Total += row.Count
		if row.Success {
			s.Success += row.Count
			s.TTFBP50 = row.TTFBP50
			s.TTFBP95 = row.TTFBP95
		}
	}

	return summaries
}

// Counts drops the latency columns from summaries.
func Counts(summaries []ModuleSummary) []ModuleCounts {
	counts := make([]ModuleCounts, 0, len(summaries))
	for _, s := range summaries {
		counts = append(counts, s.ModuleCounts)
	}

	return counts
}
