package forecast

// BlendedDailyAverage converts a lookback sales total into a daily average
// without a denominator cliff at the data-maturity boundary.
//
// Items younger than 7 days divide by the days they have actually existed in
// history (so a brand-new item is not under-counted), mature items divide by
// the full analysis window, and the band in between blends the two linearly.
// A naive switch at 7 days makes the denominator jump from 7 to the full
// window in one step, which can multiply the average several-fold overnight;
// the blend keeps the change across both boundaries bounded.
func BlendedDailyAverage(totalSales float64, actualDataDays, analysisDays int) float64 {
	if analysisDays < 1 {
		analysisDays = 1
	}
	if actualDataDays > analysisDays {
		actualDataDays = analysisDays
	}

	switch {
	case actualDataDays < 7:
		days := actualDataDays
		if days < 1 {
			days = 1
		}
		return totalSales / float64(days)

	case actualDataDays < 14:
		shortAvg := totalSales / float64(actualDataDays)
		longAvg := totalSales / float64(analysisDays)
		blend := float64(actualDataDays-7) / 7.0
		return shortAvg*(1-blend) + longAvg*blend

	default:
		return totalSales / float64(analysisDays)
	}
}
