package domain

import "strings"

// Gas identifies a reactive gas species.
type Gas string

const (
	GasCO    Gas = "CO"
	GasNMVOC Gas = "NMVOC"
	GasNOx   Gas = "NOx"
	GasCH4   Gas = "CH4"
)

// CanonicalGases lists the classified gases in output column order.
var CanonicalGases = []Gas{GasCO, GasNMVOC, GasNOx, GasCH4}

// gasAliases folds inventory spellings into canonical names.
var gasAliases = map[string]Gas{
	"CO":    GasCO,
	"NMVOC": GasNMVOC,
	"NOx":   GasNOx,
	"NOX":   GasNOx,
	"NO2":   GasNOx,
	"CH4":   GasCH4,
	"CH_4":  GasCH4,
}

// NormalizeGas maps a raw gas token to its canonical name. Unknown tokens are
// returned trimmed but otherwise unchanged.
func NormalizeGas(token string) Gas {
	token = strings.TrimSpace(token)
	if g, ok := gasAliases[token]; ok {
		return g
	}
	return Gas(token)
}

// IsCanonical reports whether g belongs to the classified gas set.
func (g Gas) IsCanonical() bool {
	for _, c := range CanonicalGases {
		if g == c {
			return true
		}
	}
	return false
}

// LabelColumn is the output column holding this gas's label, e.g. "NOx_label".
func (g Gas) LabelColumn() string {
	return string(g) + "_label"
}
