// Package main provides helper functions for the benchmark CLI
package main

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// formatRate formats a rate (items per second)
func formatRate(count int, duration time.Duration) string {
	if duration.Seconds() == 0 {
		return "N/A"
	}
	rate := float64(count) / duration.Seconds()
	return fmt.Sprintf("%.2f/s", rate)
}

// percentageString calculates and formats a percentage
func percentageString(part, total int) string {
	if total == 0 {
		return "0.00%"
	}
	return fmt.Sprintf("%.2f%%", float64(part)/float64(total)*100)
}

// statusEmoji returns an emoji for an endpoint's outcome
func statusEmoji(passed, failed, limited int) string {
	if failed > 0 {
		return "❌"
	}
	if limited > 0 {
		return "🟡"
	}
	if passed > 0 {
		return "✅"
	}
	return "⚪"
}

// percentile returns the nearest-rank percentile of the samples.
// samples is sorted in place.
func percentile(samples []time.Duration, p float64) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	rank := int(math.Ceil(float64(len(samples))*p/100)) - 1
	if rank < 0 {
		rank = 0
	}
	if rank >= len(samples) {
		rank = len(samples) - 1
	}
	return samples[rank]
}
