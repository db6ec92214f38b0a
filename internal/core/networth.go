package core

// NetWorthPoint is one day of the reconstructed net-worth series.
type NetWorthPoint struct {
	Date  Date
	Value Money
}

// ReconstructNetWorthSeries rebuilds a daily net-worth series by walking
// backward from the current cached net worth, undoing each day's net signed
// change (income positive, expense negative) as it goes. The value plotted
// for a day is the running balance at the end of that day.
//
// The transaction slice is a bounded window (callers typically pass the most
// recent 50 records). Days whose transactions fall outside the window are
// treated as zero change, so the series is exact only as far back as the
// window reaches and flattens beyond that. That is the defined contract of
// this function, not an approximation to be corrected here.
//
// The result covers rangeDays days ending at today, in chronological order.
// It is a pure function of its inputs.
func ReconstructNetWorthSeries(currentNetWorth Money, txs []Transaction, rangeDays int, today Date) []NetWorthPoint {
	if rangeDays <= 0 {
		return nil
	}

	changeByDay := make(map[string]int64, len(txs))
	for _, tx := range txs {
		delta := tx.Amount.Cents
		if tx.Type == Expense {
			delta = -delta
		}
		changeByDay[tx.Date.String()] += delta
	}

	points := make([]NetWorthPoint, 0, rangeDays)
	running := currentNetWorth.Cents
	for i := 0; i < rangeDays; i++ {
		day := DateOf(today.AddDate(0, 0, -i))
		points = append(points, NetWorthPoint{Date: day, Value: Money{Cents: running}})
		// Undo this day's change to get yesterday's closing balance.
		running -= changeByDay[day.String()]
	}

	// Walked newest-first; the chart wants chronological order.
	for i, j := 0, len(points)-1; i < j; i, j = i+1, j-1 {
		points[i], points[j] = points[j], points[i]
	}
	return points
}
