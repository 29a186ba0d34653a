package media

import (
	"fmt"
	"strings"
)

// Quality is the requested video quality tier.
type Quality string

const (
	QualityLow  Quality = "Low"
	QualityHigh Quality = "High"
)

// String returns the string representation of Quality.
func (q Quality) String() string {
	return string(q)
}

// Label is the text shown in the quality selector.
func (q Quality) Label() string {
	if q == QualityHigh {
		return "High (HD)"
	}
	return string(q)
}

// ParseQuality accepts "Low", "High", "High (HD)" and "hd", case-insensitive.
// An empty value means Low.
func ParseQuality(s string) (Quality, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "low":
		return QualityLow, nil
	case "high", "high (hd)", "hd":
		return QualityHigh, nil
	}
	return "", fmt.Errorf("%w %q", ErrUnknownQuality, s)
}

// Qualities lists the selectable tiers in display order.
func Qualities() []Quality {
	return []Quality{QualityLow, QualityHigh}
}
