package gold

// RowFromSnapshot builds the table row for a snapshot
func RowFromSnapshot(s *Snapshot) Row {
	row := Row{Date: s.Date, Time: s.Time}
	for _, v := range Vendors {
		row.Sell[v] = s.Quotes[v].Sell
		row.Buyback[v] = s.Quotes[v].Buyback
	}
	return row
}

// Merge appends the snapshot to existing when every vendor has a sell price.
// Otherwise existing is returned as is and the bool is false.
// Missing buyback prices do not block the append.
func Merge(existing Series, s *Snapshot) (Series, bool) {
	if s == nil || !s.Complete() {
		return existing, false
	}
	return appendRow(existing, RowFromSnapshot(s)), true
}

// ForceMerge appends the snapshot regardless of completeness
func ForceMerge(existing Series, s *Snapshot) Series {
	return appendRow(existing, RowFromSnapshot(s))
}

func appendRow(existing Series, row Row) Series {
	out := make(Series, len(existing), len(existing)+1)
	copy(out, existing)
	return append(out, row)
}
