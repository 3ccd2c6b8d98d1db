package alert

import (
	"fmt"
	"strings"
	"time"

	"github.com/couchcryptid/emissions-classifier/internal/domain"
)

// guidance is the AQI-style health message for each class.
var guidance = map[domain.Severity]string{
	domain.Good:          "Air quality is satisfactory and poses little or no risk.",
	domain.Moderate:      "Unusually sensitive people should consider reducing prolonged outdoor exertion.",
	domain.USG:           "Members of sensitive groups may experience health effects; the general public is less likely to be affected.",
	domain.Unhealthy:     "Everyone may begin to experience health effects; sensitive groups should avoid prolonged outdoor exertion.",
	domain.VeryUnhealthy: "Health alert: the risk of health effects is increased for everyone.",
	domain.Hazardous:     "Health warning of emergency conditions: everyone is more likely to be affected.",
}

// Cell is one flagged grid cell as shown in an alert.
type Cell struct {
	Row   domain.Row
	Place domain.Place
}

// Summary is everything an alert message is rendered from.
type Summary struct {
	GeneratedAt time.Time
	Params      domain.Params
	MinLabel    domain.Severity
	TotalCells  int
	Flagged     int
	Counts      map[domain.Severity]int
	Worst       domain.Severity
	Top         []Cell
}

// Compose renders the subject and plain-text body of an alert.
func Compose(s Summary) (subject, body string) {
	subject = fmt.Sprintf("Emissions alert: %d cells at %s or worse (worst: %s)", s.Flagged, s.MinLabel, s.Worst)

	var b strings.Builder
	fmt.Fprintf(&b, "Classification run of %s, %s.\n\n", s.GeneratedAt.UTC().Format(time.RFC3339), window(s.Params))
	fmt.Fprintf(&b, "%d of %d grid cells reached %s or worse.\n", s.Flagged, s.TotalCells, s.MinLabel)
	for i := len(domain.Severities) - 1; i >= 0; i-- {
		sev := domain.Severities[i]
		if n := s.Counts[sev]; n > 0 {
			fmt.Fprintf(&b, "  %s: %d\n", sev, n)
		}
	}

	if len(s.Top) > 0 {
		b.WriteString("\nMost affected cells:\n")
		for _, c := range s.Top {
			fmt.Fprintf(&b, "  - %s\n", describeCell(c))
		}
	}

	fmt.Fprintf(&b, "\n%s\n", guidance[s.Worst])
	return subject, b.String()
}

func window(p domain.Params) string {
	if p.Year != nil {
		return fmt.Sprintf("year %d", *p.Year)
	}
	return fmt.Sprintf("years %d-%d", p.MinYear, p.MaxYear)
}

func describeCell(c Cell) string {
	lat, lon := domain.CellCenter(c.Row.Key)
	where := fmt.Sprintf("%d, cell centered at %.1f, %.1f", c.Row.Key.Year, lat, lon)
	if c.Place.FormattedAddress != "" {
		where += " (" + c.Place.FormattedAddress + ")"
	}

	var gases []string
	for _, g := range domain.CanonicalGases {
		if s, ok := c.Row.Label(g); ok {
			gases = append(gases, fmt.Sprintf("%s %s", g, s))
		}
	}
	return fmt.Sprintf("%s: %s [%s]", where, c.Row.Final, strings.Join(gases, ", "))
}
