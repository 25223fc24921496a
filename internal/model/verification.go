package model

import (
	"fmt"
	"strconv"
)

// Verification is the raw payload returned by the verification provider.
//
// The provider's shape is not contractually fixed, so the payload is kept as
// a string-keyed map and read through alias helpers instead of a schema.
type Verification map[string]any

// Status values produced locally when the provider could not answer.
const (
	VerificationStatusTimeout = "timeout"
	VerificationStatusError   = "error"
)

// Result returns the verdict, checking "result" before "status".
// Empty or missing values fall through to the next alias.
func (v Verification) Result() string {
	return v.firstNonEmpty("result", "status")
}

// Confidence returns the confidence, checking "confidence" before "score".
func (v Verification) Confidence() string {
	return v.firstNonEmpty("confidence", "score")
}

// firstNonEmpty returns the string form of the first truthy value among keys.
func (v Verification) firstNonEmpty(keys ...string) string {
	for _, key := range keys {
		if s := FormatValue(v[key]); s != "" && s != "0" && s != "false" {
			return s
		}
	}
	return ""
}

// FormatValue renders a JSON-decoded value the way it is written to output.
// Whole floats are rendered without a fractional part, so a decoded 95
// reads "95" rather than "95.000000".
func FormatValue(value any) string {
	switch val := value.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}
