package storage

// Table is an in-memory dataset: a header and rows of string cells.
// Rows may be shorter than Columns; missing cells read as empty.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Len returns the number of rows.
func (t Table) Len() int { return len(t.Rows) }

// ColumnIndex returns the position of name in the header, or -1.
func (t Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Column returns every value of the named column in row order.
func (t Table) Column(name string) []string {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return nil
	}
	out := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		if idx < len(row) {
			out[i] = row[idx]
		}
	}
	return out
}

// MergeStats describes the outcome of a merge.
type MergeStats struct {
	// Existing is the number of rows before the merge.
	Existing int
	// Incoming is the number of rows offered.
	Incoming int
	// Added counts distinct incoming keys that were not present before.
	Added int
	// Replaced counts distinct incoming keys that superseded an existing row.
	Replaced int
	// Total is the number of rows after the merge.
	Total int
}

// Merge appends incoming after existing and keeps only the last row for each
// value of the key column. Columns are the union of both headers, existing
// order first. Surviving rows keep their relative order, so an existing row
// that is replaced moves to the position of its replacement.
func Merge(existing, incoming Table, key string) (Table, MergeStats, error) {
	columns := unionColumns(existing.Columns, incoming.Columns)
	merged := Table{Columns: columns}
	keyIdx := merged.ColumnIndex(key)
	if keyIdx < 0 {
		return Table{}, MergeStats{}, ErrMissingKeyColumn
	}

	all := make([][]string, 0, existing.Len()+incoming.Len())
	all = append(all, project(existing, columns)...)
	all = append(all, project(incoming, columns)...)

	last := make(map[string]int, len(all))
	for i, row := range all {
		last[row[keyIdx]] = i
	}

	stats := MergeStats{Existing: existing.Len(), Incoming: incoming.Len()}
	before := make(map[string]bool, existing.Len())
	for _, row := range all[:existing.Len()] {
		before[row[keyIdx]] = true
	}
	counted := make(map[string]bool, incoming.Len())
	for _, row := range all[existing.Len():] {
		k := row[keyIdx]
		if counted[k] {
			continue
		}
		counted[k] = true
		if before[k] {
			stats.Replaced++
		} else {
			stats.Added++
		}
	}

	for i, row := range all {
		if last[row[keyIdx]] == i {
			merged.Rows = append(merged.Rows, row)
		}
	}
	stats.Total = merged.Len()
	return merged, stats, nil
}

func unionColumns(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	seen := make(map[string]bool, len(a)+len(b))
	for _, cols := range [][]string{a, b} {
		for _, c := range cols {
			if !seen[c] {
				seen[c] = true
				out = append(out, c)
			}
		}
	}
	return out
}

// project re-orders every row of t onto columns, filling gaps with "".
func project(t Table, columns []string) [][]string {
	pos := make(map[string]int, len(t.Columns))
	for i, c := range t.Columns {
		if _, dup := pos[c]; !dup {
			pos[c] = i
		}
	}
	out := make([][]string, len(t.Rows))
	for r, row := range t.Rows {
		cells := make([]string, len(columns))
		for i, c := range columns {
			if src, ok := pos[c]; ok && src < len(row) {
				cells[i] = row[src]
			}
		}
		out[r] = cells
	}
	return out
}
