package domain

import "sort"

// Aggregate outer-joins per-gas tables on (lon, lat, year) and assigns each
// cell the most severe label among the gases present. If a gas table lists
// the same cell twice, the more severe label is kept. Rows are sorted by
// year, then latitude, then longitude.
func Aggregate(tables []GasTable) []Row {
	index := make(map[CellKey]int)
	var rows []Row

	for _, t := range tables {
		for _, cl := range t.Labels {
			if !cl.Label.Valid() {
				continue
			}
			i, ok := index[cl.Key]
			if !ok {
				i = len(rows)
				index[cl.Key] = i
				rows = append(rows, Row{Key: cl.Key, Labels: make(map[Gas]Severity, len(CanonicalGases))})
			}
			rows[i].Labels[t.Gas] = MaxSeverity(rows[i].Labels[t.Gas], cl.Label)
		}
	}

	for i := range rows {
		rows[i].Final = WorstLabel(rows[i].Labels)
	}

	sort.SliceStable(rows, func(a, b int) bool {
		return rows[a].Key.Less(rows[b].Key)
	})
	return rows
}

// WorstLabel returns the most severe valid label, or Good when none is present.
func WorstLabel(labels map[Gas]Severity) Severity {
	var worst Severity
	for _, s := range labels {
		if s.Valid() {
			worst = MaxSeverity(worst, s)
		}
	}
	if worst == 0 {
		return Good
	}
	return worst
}
