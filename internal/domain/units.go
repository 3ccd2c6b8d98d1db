package domain

import (
	"regexp"
	"strings"
)

// unitsTokenRe captures the first alphabetic token after a "Units:" label.
var unitsTokenRe = regexp.MustCompile(`(?i)Units\s*:\s*([A-Za-z]+)`)

// unitPrefixes is checked in order; "T" must come after the two-letter
// prefixes that start with it (TG) and after KG/KT.
var unitPrefixes = []struct {
	prefix string
	scale  float64
}{
	{"MT", 1e9},
	{"TG", 1e9},
	{"GG", 1e6},
	{"KT", 1e6},
	{"KG", 1.0},
	{"T", 1e3},
}

// UnitScale returns the factor converting values in the given units header
// line to kilograms. Unrecognized or missing units scale by 1.
func UnitScale(unitsLine string) float64 {
	m := unitsTokenRe.FindStringSubmatch(unitsLine)
	if m == nil {
		return 1.0
	}
	token := strings.ToUpper(m[1])
	for _, u := range unitPrefixes {
		if strings.HasPrefix(token, u.prefix) {
			return u.scale
		}
	}
	return 1.0
}
