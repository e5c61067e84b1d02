package immune

import (
	"fmt"
	"math"
	"sync"

	"github.com/chronosdb/chronosai/internal/aimodel"
)

// AnomalyDetector classifies current mutation rates against each
// table's own history using a z-score, with quiet-state handling for
// dormant tables. Ported from ai/immune/anomaly_detector.cpp.
type AnomalyDetector struct {
	windowSize     int
	rateIntervalUS uint64
	lowThreshold   float64
	mediumThreshold float64
	highThreshold  float64
	maxHistory     int

	historyMu sync.Mutex
	history   []aimodel.AnomalyReport // newest last
}

// NewAnomalyDetector creates an AnomalyDetector.
func NewAnomalyDetector(windowSize int, rateIntervalUS uint64, low, medium, high float64, maxHistory int) *AnomalyDetector {
	return &AnomalyDetector{
		windowSize:      windowSize,
		rateIntervalUS:  rateIntervalUS,
		lowThreshold:    low,
		mediumThreshold: medium,
		highThreshold:   high,
		maxHistory:      maxHistory,
	}
}

// Thresholds returns the configured low/medium/high z-score
// boundaries, for SHOW AI STATUS.
func (d *AnomalyDetector) Thresholds() (low, medium, high float64) {
	return d.lowThreshold, d.mediumThreshold, d.highThreshold
}

// Analyze iterates every monitored table, computes the z-score of its
// current rate against its historical rate buckets, and returns one
// report per non-NONE outcome.
func (d *AnomalyDetector) Analyze(mm *MutationMonitor, up *UserProfiler, nowUS uint64) []aimodel.AnomalyReport {
	var reports []aimodel.AnomalyReport
	for _, table := range mm.GetMonitoredTables() {
		historical := mm.GetHistoricalRates(table, d.windowSize, d.rateIntervalUS, nowUS)
		if !eligible(historical) {
			continue
		}

		currentRate := mm.GetMutationRate(table, nowUS)
		mean, stddev := meanStdDev(historical)
		z := d.computeZScore(currentRate, mean, stddev)
		severity := d.classify(z, currentRate, mean, stddev)
		if severity == aimodel.SeverityNone {
			continue
		}

		reports = append(reports, aimodel.AnomalyReport{
			TableName:   table,
			Severity:    severity,
			ZScore:      z,
			CurrentRate: currentRate,
			MeanRate:    mean,
			StdDev:      stddev,
			TimestampUS: nowUS,
			Description: fmt.Sprintf("mutation rate %.2f rows/s deviates %.2fσ from historical mean %.2f rows/s", currentRate, z, mean),
		})
	}
	return reports
}

// eligible requires at least 10 non-empty (non-zero) historical
// buckets. spec.md §4.6 is explicit on this condition; it differs
// deliberately from the original C++'s dead `size() < 10` check (see
// DESIGN.md).
func eligible(historical []float64) bool {
	var nonEmpty int
	for _, v := range historical {
		if v != 0 {
			nonEmpty++
		}
	}
	return nonEmpty >= 10
}

func meanStdDev(values []float64) (mean, stddev float64) {
	if len(values) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean = sum / float64(len(values))

	var sqDiff float64
	for _, v := range values {
		d := v - mean
		sqDiff += d * d
	}
	stddev = math.Sqrt(sqDiff / float64(len(values)))
	return mean, stddev
}

// computeZScore implements the quiet-state rule: when stddev is
// effectively zero the table is idle, and only a meaningful absolute
// spike (≥1.0 rows/s above the mean) is reported, eliminating false
// positives on dormant tables.
func (d *AnomalyDetector) computeZScore(current, mean, stddev float64) float64 {
	if stddev < 0.001 {
		if current-mean >= 1.0 {
			return d.highThreshold + 1.0
		}
		return 0
	}
	return (current - mean) / stddev
}

func (d *AnomalyDetector) classify(z, current, mean, stddev float64) aimodel.AnomalySeverity {
	az := math.Abs(z)
	switch {
	case az >= d.highThreshold:
		return aimodel.SeverityHigh
	case az >= d.mediumThreshold:
		return aimodel.SeverityMedium
	case az >= d.lowThreshold:
		return aimodel.SeverityLow
	default:
		return aimodel.SeverityNone
	}
}

// Classify exposes the severity classifier directly for the z-score
// boundary test scenario in spec.md §8.
func (d *AnomalyDetector) Classify(z float64) aimodel.AnomalySeverity {
	return d.classify(z, 0, 0, 0)
}

// RecordAnomaly appends report to the bounded history, evicting the
// oldest entry once maxHistory is exceeded.
func (d *AnomalyDetector) RecordAnomaly(report aimodel.AnomalyReport) {
	d.historyMu.Lock()
	defer d.historyMu.Unlock()
	d.history = append(d.history, report)
	if len(d.history) > d.maxHistory {
		d.history = d.history[len(d.history)-d.maxHistory:]
	}
}

// GetRecentAnomalies returns up to n most recent reports, newest
// first.
func (d *AnomalyDetector) GetRecentAnomalies(n int) []aimodel.AnomalyReport {
	d.historyMu.Lock()
	defer d.historyMu.Unlock()
	if n > len(d.history) {
		n = len(d.history)
	}
	out := make([]aimodel.AnomalyReport, n)
	for i := 0; i < n; i++ {
		out[i] = d.history[len(d.history)-1-i]
	}
	return out
}

// TotalAnomalies returns the number of anomalies currently retained in
// history (at most maxHistory; evicted ones are not counted).
func (d *AnomalyDetector) TotalAnomalies() int {
	d.historyMu.Lock()
	defer d.historyMu.Unlock()
	return len(d.history)
}
