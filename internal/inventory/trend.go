package inventory

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"blocknex-supply-api-server/internal/models"
)

type Direction string

const (
	Up     Direction = "up"
	Down   Direction = "down"
	Stable Direction = "stable"
)

const (
	slopeThreshold = 0.1
	smoothWindow   = 3
)

type Window struct {
	Name string
	Days int
}

var Windows = []Window{
	{Name: "Week", Days: 7},
	{Name: "Biweekly", Days: 14},
	{Name: "Monthly", Days: 28},
	{Name: "6 Weeks", Days: 42},
}

type WindowTrend struct {
	Window string    `json:"window"`
	Trend  Direction `json:"trend"`
	Slope  float64   `json:"slope"`
	Reason string    `json:"reason"`
}

// Predict computes one trend per window from the quantity history of an item.
// Each window is min-max normalized, smoothed and fitted with a least-squares line.
func Predict(history []models.InventorySnapshot, now time.Time) []WindowTrend {
	sorted := make([]models.InventorySnapshot, len(history))
	copy(sorted, history)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Timestamp.Before(sorted[j].Timestamp) })

	out := make([]WindowTrend, 0, len(Windows))
	for _, w := range Windows {
		seg := segment(sorted, now, w.Days)
		if len(seg) < 2 {
			out = append(out, WindowTrend{Window: w.Name, Trend: Stable, Reason: "Not enough data."})
			continue
		}
		slope := regressionSlope(movingAverage(normalize(seg), smoothWindow))
		dir := Stable
		switch {
		case slope > slopeThreshold:
			dir = Up
		case slope < -slopeThreshold:
			dir = Down
		}
		out = append(out, WindowTrend{
			Window: w.Name,
			Trend:  dir,
			Slope:  math.Round(slope*100) / 100,
			Reason: reason(dir, w.Name),
		})
	}
	return out
}

func reason(dir Direction, window string) string {
	verb := "stable"
	switch dir {
	case Up:
		verb = "increasing"
	case Down:
		verb = "decreasing"
	}
	return fmt.Sprintf("Usage %s in last %s.", verb, strings.ToLower(window))
}

func segment(history []models.InventorySnapshot, now time.Time, days int) []float64 {
	span := time.Duration(days) * 24 * time.Hour
	var out []float64
	for _, h := range history {
		if now.Sub(h.Timestamp) <= span {
			out = append(out, h.Quantity)
		}
	}
	return out
}

func normalize(q []float64) []float64 {
	lo, hi := q[0], q[0]
	for _, v := range q {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	out := make([]float64, len(q))
	for i, v := range q {
		if hi == lo {
			out[i] = 0.5
			continue
		}
		out[i] = (v - lo) / (hi - lo)
	}
	return out
}

// movingAverage is trailing; shorter series than w are returned as is.
func movingAverage(q []float64, w int) []float64 {
	if len(q) < w {
		return q
	}
	out := make([]float64, len(q))
	sum := 0.0
	for i, v := range q {
		sum += v
		if i >= w {
			sum -= q[i-w]
		}
		n := i + 1
		if n > w {
			n = w
		}
		out[i] = sum / float64(n)
	}
	return out
}

func regressionSlope(q []float64) float64 {
	n := float64(len(q))
	if n < 2 {
		return 0
	}
	var sumX, sumY, sumXY, sumX2 float64
	for i, y := range q {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumX2 += x * x
	}
	den := n*sumX2 - sumX*sumX
	if den == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / den
}
