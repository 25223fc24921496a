package model

// QualityLabel is a coarse confidence classification of a discovered address.
// It is derived per output row and never stored on a record.
type QualityLabel int

const (
	// QualityLow means neither verification nor corroboration supports the address.
	QualityLow QualityLabel = iota

	// QualityMedium means the address is plausible but only weakly corroborated.
	QualityMedium

	// QualityHigh means the address was verified or strongly corroborated.
	QualityHigh
)

// String returns the label as written to the output.
func (q QualityLabel) String() string {
	switch q {
	case QualityLow:
		return "Low"
	case QualityMedium:
		return "Medium"
	case QualityHigh:
		return "High"
	default:
		return "Unknown"
	}
}

// QualityLabels lists every label from best to worst.
func QualityLabels() []QualityLabel {
	return []QualityLabel{QualityHigh, QualityMedium, QualityLow}
}
