package db

import (
	"math"

	"tradedash/models"
)

// ComputeProfileStats derives summary counts and percentages from a loaded
// profile document. Pure function, no I/O. An empty document yields zero
// counts and 0.0 percentages (the denominator is clamped to 1).
func ComputeProfileStats(doc models.ProfileDocument) models.ProfileStats {
	stats := models.ProfileStats{TotalConfigs: len(doc)}

	for _, rec := range doc {
		if rec.Tested {
			stats.ConfigsTested++
		}
		if rec.Improved {
			stats.ConfigsImproved++
		}
		if rec.Note != "" {
			stats.ConfigsWithNotes++
		}
		if len(rec.Screenshots) > 0 {
			stats.ConfigsWithScreenshots++
		}
	}

	denominator := float64(stats.TotalConfigs)
	if denominator < 1 {
		denominator = 1
	}
	stats.PercentTested = roundOneDecimal(float64(stats.ConfigsTested) / denominator * 100)
	stats.PercentImproved = roundOneDecimal(float64(stats.ConfigsImproved) / denominator * 100)

	return stats
}

func roundOneDecimal(value float64) float64 {
	return math.Round(value*10) / 10
}
