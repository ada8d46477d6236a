package insights

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// confidence scores given to the qualitative levels returned by the decision service
const (
	ConfidenceHigh    = 85
	ConfidenceMedium  = 65
	ConfidenceOther   = 45
	ConfidenceDefault = 75
)

// NormalizeConfidence maps the service's confidence value to a 0-100 score.
// "high" and "medium" (any case) map to fixed scores and any other string to ConfidenceOther.
// Numbers are rounded and clamped to 0-100; zero, NaN and missing values map to ConfidenceDefault.
func NormalizeConfidence(raw any) int {
	switch v := raw.(type) {
	case string:
		switch strings.ToLower(v) {
		case "high":
			return ConfidenceHigh
		case "medium":
			return ConfidenceMedium
		default:
			return ConfidenceOther
		}
	case json.Number:
		f, err := strconv.ParseFloat(string(v), 64)
		if err != nil {
			return ConfidenceDefault
		}
		return fromNumber(f)
	case float64:
		return fromNumber(v)
	case float32:
		return fromNumber(float64(v))
	case int:
		return fromNumber(float64(v))
	case int64:
		return fromNumber(float64(v))
	case bool:
		if v {
			return 1
		}
		return ConfidenceDefault
	default:
		return ConfidenceDefault
	}
}

func fromNumber(f float64) int {
	if f == 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return ConfidenceDefault
	}
	return int(min(max(math.Round(f), 0), 100))
}
