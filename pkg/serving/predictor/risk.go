package predictor

import (
	"math"
	"strings"
)

type RiskTier string

const (
	RiskHigh     RiskTier = "high"
	RiskModerate RiskTier = "moderate"
	RiskLow      RiskTier = "low"
)

const (
	highRiskThreshold     = 0.80
	moderateRiskThreshold = 0.55
)

func DetermineRisk(probability float64) RiskTier {
	switch {
	case probability >= highRiskThreshold:
		return RiskHigh
	case probability >= moderateRiskThreshold:
		return RiskModerate
	default:
		return RiskLow
	}
}

var (
	negativeAdvice = [3]string{"Maintain hydration", "Monitor symptoms", "Regular checkups"}
	tierAdvice     = map[RiskTier][3]string{
		RiskHigh: {
			"Seek medical consultation immediately",
			"Consider urine culture test",
			"Increase water intake",
		},
		RiskModerate: {
			"Monitor symptoms for 48 hours",
			"Increase fluid intake",
			"Consult doctor if symptoms worsen",
		},
		RiskLow: {
			"Low risk detected",
			"Maintain hydration",
			"Monitor for any changes",
		},
	}
)

// Recommendations returns the advice list for a result. A negative diagnosis
// gets the neutral list whatever the tier; unknown tiers get the low-risk list.
func Recommendations(diagnosis string, tier RiskTier) []string {
	advice := tierAdvice[RiskLow]
	if strings.EqualFold(strings.TrimSpace(diagnosis), DiagnosisNegative) {
		advice = negativeAdvice
	} else if a, ok := tierAdvice[tier]; ok {
		advice = a
	}
	return advice[:]
}

// Confidence expresses a probability as a percentage with two decimals.
func Confidence(probability float64) float64 {
	return math.Round(probability*100*100) / 100
}
