package analyzer

// PatternType classifies how much a stream varies over the window
type PatternType string

const (
	PatternUnknown        PatternType = "unknown"
	PatternSteady         PatternType = "steady"
	PatternModerate       PatternType = "moderate"
	PatternSpiky          PatternType = "spiky"
	PatternHighlyVariable PatternType = "highly-variable"
)

// UsagePattern describes usage behavior
type UsagePattern struct {
	Type       PatternType
	Variation  float64 // Coefficient of variation
	Confidence float64 // How confident we are (0-1)
}
