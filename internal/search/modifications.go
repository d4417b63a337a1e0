package search

import (
	"strings"
)

// Included maps the modification types kept in the results to the residues
// they are accepted on. An empty residue list accepts any residue.
type Included map[string]string

// DefaultIncluded is the default modification filter.
var DefaultIncluded = Included{
	"Phospho":        "STY",
	"Acetyl":         "K",
	"Methyl":         "KR",
	"GG":             "K",
	"Citrullination": "R",
	"Deamidated":     "NQR",
}

// Accept reports whether a modification is kept and returns the name it is
// reported under. Deamidation of arginine is citrullination.
func (in Included) Accept(name string, aa byte) (string, bool) {
	residues, ok := in[name]
	if !ok {
		return "", false
	}
	if residues != "" && strings.IndexByte(residues, aa) < 0 {
		return "", false
	}
	if name == "Deamidated" && aa == 'R' {
		return "Citrullination", true
	}
	return name, true
}

// modAbbreviations are the two-letter codes MaxQuant writes into modified
// sequences.
var modAbbreviations = map[string]string{
	"ph": "Phospho",
	"ac": "Acetyl",
	"gg": "GG",
	"me": "Methyl",
	"ci": "Citrullination",
	"de": "Deamidated",
}

// modName maps a modification annotation such as "ph" or "Phospho (STY)" to
// a modification type.
func modName(annotation string) string {
	annotation = strings.TrimSpace(annotation)
	if name, ok := modAbbreviations[annotation]; ok {
		return name
	}
	if i := strings.IndexAny(annotation, " ("); i > 0 {
		return annotation[:i]
	}
	return annotation
}
