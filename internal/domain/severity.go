package domain

import "fmt"

// Severity is an ordered AQI-style class. The zero value means "no label".
type Severity int

const (
	Good Severity = iota + 1
	Moderate
	USG
	Unhealthy
	VeryUnhealthy
	Hazardous
)

// Severities lists every class from least to most severe.
var Severities = []Severity{Good, Moderate, USG, Unhealthy, VeryUnhealthy, Hazardous}

var severityNames = [...]string{
	Good:          "Good",
	Moderate:      "Moderate",
	USG:           "USG",
	Unhealthy:     "Unhealthy",
	VeryUnhealthy: "Very Unhealthy",
	Hazardous:     "Hazardous",
}

// Valid reports whether s is one of the six classes.
func (s Severity) Valid() bool {
	return s >= Good && s <= Hazardous
}

func (s Severity) String() string {
	if !s.Valid() {
		return ""
	}
	return severityNames[s]
}

// ParseSeverity returns the class with the given display name.
func ParseSeverity(name string) (Severity, error) {
	for _, s := range Severities {
		if severityNames[s] == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown severity %q", name)
}

func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*s = 0
		return nil
	}
	parsed, err := ParseSeverity(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// MaxSeverity returns the more severe of a and b.
func MaxSeverity(a, b Severity) Severity {
	if b > a {
		return b
	}
	return a
}
