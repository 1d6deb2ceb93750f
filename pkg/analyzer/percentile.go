package analyzer

import (
	"math"
	"sort"
)

// Percentile returns the p-th percentile (0-100) of values using linear
// interpolation between order statistics. values is not modified.
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	return calculatePercentile(sorted, p)
}

// calculatePercentile computes the Nth percentile using linear interpolation
func calculatePercentile(sortedValues []float64, percentile float64) float64 {
	if len(sortedValues) == 0 {
		return 0
	}

	if len(sortedValues) == 1 {
		return sortedValues[0]
	}

	n := float64(len(sortedValues))
	rank := (percentile / 100.0) * (n - 1)

	lowerIndex := int(math.Floor(rank))
	upperIndex := int(math.Ceil(rank))

	// Clamp so out of range percentiles stay on the first or last element
	if lowerIndex < 0 {
		return sortedValues[0]
	}
	if upperIndex >= len(sortedValues) {
		return sortedValues[len(sortedValues)-1]
	}

	if lowerIndex == upperIndex {
		return sortedValues[lowerIndex]
	}

	lowerValue := sortedValues[lowerIndex]
	upperValue := sortedValues[upperIndex]
	fraction := rank - float64(lowerIndex)

	return lowerValue + (upperValue-lowerValue)*fraction
}

// Mean computes the arithmetic mean of values, 0 when empty
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sum := 0.0
	for _, v := range values {
		sum += v
	}

	return sum / float64(len(values))
}

// CoefficientOfVariation measures the relative variability
// High CV (>0.5) = spiky workload
// Low CV (<0.2) = steady workload
func CoefficientOfVariation(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}

	mean := Mean(values)
	if mean == 0 {
		return 0
	}

	sumSquaredDiff := 0.0
	for _, v := range values {
		diff := v - mean
		sumSquaredDiff += diff * diff
	}

	variance := sumSquaredDiff / float64(len(values))
	return math.Sqrt(variance) / mean
}

// AnalyzeUsagePattern determines if a usage stream is steady or spiky
func AnalyzeUsagePattern(values []float64) UsagePattern {
	if len(values) < 10 {
		return UsagePattern{Type: PatternUnknown}
	}

	cv := CoefficientOfVariation(values)

	var patternType PatternType
	var confidence float64

	if cv < 0.15 {
		patternType = PatternSteady
		confidence = 0.95
	} else if cv < 0.35 {
		patternType = PatternModerate
		confidence = 0.85
	} else if cv < 0.70 {
		patternType = PatternSpiky
		confidence = 0.80
	} else {
		patternType = PatternHighlyVariable
		confidence = 0.75
	}

	return UsagePattern{
		Type:       patternType,
		Variation:  cv,
		Confidence: confidence,
	}
}
