package normalize

import (
	"regexp"
	"strconv"
	"strings"
)

// Gram conversion factors for the units scrapers produce.
const (
	gramsPerOunce = 28.0
	gramsPerMg    = 0.001
	gramsPerLb    = 453.592
)

// Weight is a parsed unit size: the canonical display label and its gram
// equivalent. Variants are keyed by Grams; Label is what buyers see.
type Weight struct {
	Label string
	Grams float64
}

// Conventional cannabis sizes keep their retail label instead of a raw
// gram rendering (28g is always sold as "1oz").
var conventionalLabels = map[float64]string{
	0.5: "0.5g",
	1:   "1g",
	2:   "2g",
	3.5: "3.5g",
	7:   "7g",
	14:  "14g",
	28:  "1oz",
	56:  "2oz",
}

var namedFractions = map[string]float64{
	"eighth":   3.5,
	"eighths":  3.5,
	"quarter":  7,
	"quarters": 7,
	"half":     14,
	"halves":   14,
	"ounce":    28,
	"ounces":   28,
	"oz":       28,
}

var (
	fractionOzRe  = regexp.MustCompile(`(?i)\b(\d+)\s*/\s*(\d+)\s*(?:oz|ounce|ounces)\b`)
	numericUnitRe = regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?)\s*(mg|g|gr|gram|grams|oz|ounce|ounces|lb|lbs|pound|pounds)\b`)
	namedRe       = regexp.MustCompile(`(?i)\b(eighths?|quarters?|hal(?:f|ves)|ounces?|oz)\b`)
)

// ParseWeight parses a free-text quantity string into a canonical weight.
// Recognized, in priority order: fractional ounces ("1/8 oz"), named
// fractions ("eighth", "quarter", "half"), and numeric-plus-unit ("3.5g",
// "1 oz", "100mg", "1 lb"). Unparseable or empty input returns ok=false;
// parsing never fails with an error.
func ParseWeight(text string) (Weight, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Weight{}, false
	}

	if m := fractionOzRe.FindStringSubmatch(text); m != nil {
		num, _ := strconv.ParseFloat(m[1], 64)
		den, _ := strconv.ParseFloat(m[2], 64)
		if den != 0 {
			grams := num / den * gramsPerOunce
			return Weight{Label: FormatLabel(grams), Grams: grams}, true
		}
	}

	// Numeric amounts win over bare fraction words so that "2 oz" is two
	// ounces, not one.
	if m := numericUnitRe.FindStringSubmatch(text); m == nil {
		if n := namedRe.FindStringSubmatch(text); n != nil {
			grams := namedFractions[strings.ToLower(n[1])]
			return Weight{Label: FormatLabel(grams), Grams: grams}, true
		}
	} else {
		value, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return Weight{}, false
		}
		unit := strings.ToLower(m[2])
		switch unit {
		case "mg":
			// milligram products (edibles, tinctures) keep their mg label
			return Weight{Label: formatNumber(value) + "mg", Grams: value * gramsPerMg}, true
		case "oz", "ounce", "ounces":
			grams := value * gramsPerOunce
			return Weight{Label: FormatLabel(grams), Grams: grams}, true
		case "lb", "lbs", "pound", "pounds":
			grams := value * gramsPerLb
			return Weight{Label: FormatLabel(grams), Grams: grams}, true
		default: // g, gr, gram, grams
			return Weight{Label: FormatLabel(value), Grams: value}, true
		}
	}

	return Weight{}, false
}

// ExtractWeightFromName finds a weight token at the end of a product name or
// inside trailing parentheses, strips it, and returns the remaining name with
// the parsed weight. Names without a recognizable weight come back unchanged.
func ExtractWeightFromName(name string) (string, Weight, bool) {
	trimmed := strings.TrimSpace(name)

	// "Blue Dream (3.5g)" / "Sour Diesel (1/8 oz)"
	if m := trailingParensRe.FindStringSubmatch(trimmed); m != nil {
		if w, ok := ParseWeight(m[1]); ok {
			return tidyName(trimmed[:len(trimmed)-len(m[0])]), w, true
		}
	}

	// "Blue Dream 3.5g" / "OG Kush 1/8 oz" / "GSC Eighth"
	for _, re := range trailingWeightRes {
		if loc := re.FindStringIndex(trimmed); loc != nil {
			if w, ok := ParseWeight(trimmed[loc[0]:]); ok {
				return tidyName(trimmed[:loc[0]]), w, true
			}
		}
	}

	return trimmed, Weight{}, false
}

var (
	trailingParensRe  = regexp.MustCompile(`\(([^)]+)\)\s*$`)
	trailingWeightRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)[-\s]\d+\s*/\s*\d+\s*(?:oz|ounce|ounces)\s*$`),
		regexp.MustCompile(`(?i)[-\s]\d+(?:\.\d+)?\s*(?:mg|g|gr|gram|grams|oz|ounce|ounces|lb|lbs|pound|pounds)\s*$`),
		regexp.MustCompile(`(?i)[-\s](?:eighths?|quarters?|hal(?:f|ves))\s*$`),
	}
)

func tidyName(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimRight(s, "-|,:; ")
	return strings.TrimSpace(s)
}

// FormatLabel renders a gram amount as its canonical label. Conventional
// retail sizes use their conventional label; everything else is "<n>g" with
// trailing ".0" dropped.
func FormatLabel(grams float64) string {
	if label, ok := conventionalLabels[grams]; ok {
		return label
	}
	return formatNumber(grams) + "g"
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
