package scoring

import (
	"strconv"
	"strings"

	"github.com/nao1215/emailharvester/internal/model"
)

// Confidence thresholds on the 0-100 scale.
const (
	highConfidence   = 80.0
	mediumConfidence = 50.0
)

// Corroboration thresholds on the number of distinct sources.
const (
	strongSourceCount = 3
	weakSourceCount   = 1
)

// resultKeys are the payload fields that may carry the provider's verdict.
var resultKeys = []string{"result", "status", "status_text", "result_code"}

// confidenceKeys are the payload fields that may carry a numeric confidence.
var confidenceKeys = []string{"confidence", "score"}

// deliverable is the verdict vocabulary treated as a positive verification.
var deliverable = map[string]bool{
	"deliverable":        true,
	"deliverable (smtp)": true,
	"valid":              true,
	"ok":                 true,
	"success":            true,
	"deliverable?":       true,
}

// ComputeQuality labels an address. The first matching rule wins:
//
//  1. a deliverable verdict is High
//  2. a confidence of at least 80 is High and one of at least 50 is Medium,
//     provided the domain has MX or the address has a source
//  3. MX plus three or more sources is High, MX plus one source is Medium
//  4. anything else is Low
func ComputeQuality(mxOK bool, verification model.Verification, sourceCount int) model.QualityLabel {
	if ResultIsDeliverable(verification) {
		return model.QualityHigh
	}

	corroborated := mxOK || sourceCount >= weakSourceCount
	if confidence, ok := ParseConfidence(verification); ok && corroborated {
		normalized := confidence
		if normalized <= 1.0 {
			normalized *= 100.0
		}
		switch {
		case normalized >= highConfidence:
			return model.QualityHigh
		case normalized >= mediumConfidence:
			return model.QualityMedium
		}
	}

	switch {
	case mxOK && sourceCount >= strongSourceCount:
		return model.QualityHigh
	case mxOK && sourceCount >= weakSourceCount:
		return model.QualityMedium
	default:
		return model.QualityLow
	}
}

// ResultIsDeliverable reports whether any verdict field holds a deliverable
// value, compared case-insensitively after trimming.
func ResultIsDeliverable(verification model.Verification) bool {
	for _, key := range resultKeys {
		value, ok := verification[key]
		if !ok || value == nil {
			continue
		}
		if deliverable[strings.ToLower(strings.TrimSpace(model.FormatValue(value)))] {
			return true
		}
	}
	return false
}

// ParseConfidence returns the first numeric confidence found in the payload.
// Numbers, numeric strings and booleans are accepted; other values are
// skipped.
func ParseConfidence(verification model.Verification) (float64, bool) {
	for _, key := range confidenceKeys {
		value, ok := verification[key]
		if !ok {
			continue
		}
		if f, ok := toFloat(value); ok {
			return f, true
		}
	}
	return 0, false
}

// toFloat converts a JSON-decoded scalar to a float.
func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
