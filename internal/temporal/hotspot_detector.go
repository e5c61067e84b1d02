package temporal

import (
	"math"
	"sort"

	"github.com/chronosdb/chronosai/internal/aimodel"
)

// HotspotDetector clusters time-travel query targets with a 1-D
// DBSCAN sweep and finds change points in an access-rate series with
// CUSUM. Ported from ai/temporal/hotspot_detector.cpp.
type HotspotDetector struct {
	clusterEpsilonUS        uint64
	clusterMinPoints        int
	cusumThresholdSigmaMult float64
	cusumDriftSigmaMult     float64
}

// NewHotspotDetector creates a HotspotDetector from the shared
// tunables.
func NewHotspotDetector(clusterEpsilonUS uint64, clusterMinPoints int, thresholdSigmaMult, driftSigmaMult float64) *HotspotDetector {
	return &HotspotDetector{
		clusterEpsilonUS:        clusterEpsilonUS,
		clusterMinPoints:        clusterMinPoints,
		cusumThresholdSigmaMult: thresholdSigmaMult,
		cusumDriftSigmaMult:     driftSigmaMult,
	}
}

// DetectHotspots clusters the queried timestamps of events via 1-D
// DBSCAN and returns the resulting hotspots sorted by density
// descending.
func (d *HotspotDetector) DetectHotspots(events []aimodel.TemporalAccessEvent) []aimodel.TemporalHotspot {
	if len(events) == 0 {
		return nil
	}

	timestamps := make([]uint64, len(events))
	for i, e := range events {
		timestamps[i] = e.QueriedTimestampUS
	}
	sort.Slice(timestamps, func(i, j int) bool { return timestamps[i] < timestamps[j] })

	clusters := d.clusterTimestamps(timestamps)

	hotspots := make([]aimodel.TemporalHotspot, 0, len(clusters))
	for _, cluster := range clusters {
		minTS := timestamps[cluster[0]]
		maxTS := minTS
		var sum float64
		for _, idx := range cluster {
			ts := timestamps[idx]
			if ts < minTS {
				minTS = ts
			}
			if ts > maxTS {
				maxTS = ts
			}
			sum += float64(ts)
		}

		accessCount := len(cluster)
		center := uint64(sum / float64(accessCount))
		rangeSeconds := float64(maxTS-minTS) / 1_000_000.0

		density := float64(accessCount)
		if rangeSeconds > 0 {
			density = float64(accessCount) / rangeSeconds
		}

		hotspots = append(hotspots, aimodel.TemporalHotspot{
			CenterTimestampUS: center,
			RangeStartUS:      minTS,
			RangeEndUS:        maxTS,
			AccessCount:       accessCount,
			Density:           density,
		})
	}

	sort.Slice(hotspots, func(i, j int) bool { return hotspots[i].Density > hotspots[j].Density })
	return hotspots
}

// clusterTimestamps performs a single sweep over sorted timestamps,
// extending the current cluster while successive gaps stay within
// epsilon and emitting it once the gap widens or input ends, provided
// it has at least clusterMinPoints members.
func (d *HotspotDetector) clusterTimestamps(sorted []uint64) [][]int {
	if len(sorted) == 0 {
		return nil
	}

	var clusters [][]int
	current := []int{0}

	for i := 1; i < len(sorted); i++ {
		gap := float64(sorted[i] - sorted[i-1])
		if gap <= float64(d.clusterEpsilonUS) {
			current = append(current, i)
			continue
		}
		if len(current) >= d.clusterMinPoints {
			clusters = append(clusters, current)
		}
		current = []int{i}
	}
	if len(current) >= d.clusterMinPoints {
		clusters = append(clusters, current)
	}
	return clusters
}

// DetectChangePoints runs CUSUM over a rate series, returning the
// timestamps of detected change points.
func (d *HotspotDetector) DetectChangePoints(rates []float64, timestamps []uint64) []uint64 {
	if len(rates) < 3 || len(rates) != len(timestamps) {
		return nil
	}

	var sum float64
	for _, v := range rates {
		sum += v
	}
	mean := sum / float64(len(rates))

	var sqSum float64
	for _, v := range rates {
		sqSum += (v - mean) * (v - mean)
	}
	sigma := math.Sqrt(sqSum / float64(len(rates)))
	if sigma < 0.001 {
		return nil
	}

	threshold := d.cusumThresholdSigmaMult * sigma
	drift := d.cusumDriftSigmaMult * sigma

	indices := cusumChangePoints(rates, mean, threshold, drift)

	out := make([]uint64, 0, len(indices))
	for _, idx := range indices {
		if idx < len(timestamps) {
			out = append(out, timestamps[idx])
		}
	}
	return out
}

func cusumChangePoints(values []float64, mean, threshold, drift float64) []int {
	var changePoints []int
	var sPos, sNeg float64

	for i, v := range values {
		sPos = math.Max(0, sPos+(v-mean-drift))
		sNeg = math.Max(0, sNeg+(mean-v-drift))

		if sPos > threshold || sNeg > threshold {
			changePoints = append(changePoints, i)
			sPos = 0
			sNeg = 0
		}
	}
	return changePoints
}
