package farmacias

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// truthyText renders a decoded JSON value as text, treating every falsy value
// (null, "", 0, false) as the empty string.
func truthyText(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		if v {
			return "true"
		}
		return ""
	case float64:
		if v == 0 || math.IsNaN(v) {
			return ""
		}
		return formatNumber(v)
	default:
		return fmt.Sprint(v)
	}
}

// text renders a decoded JSON value as text, only null turns into the empty string.
func text(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return formatNumber(v)
	default:
		return fmt.Sprint(v)
	}
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// NormalizeComuna canonicalizes a municipality name for comparison.
// It never fails, absent values normalize to "".
func NormalizeComuna(value any) string {
	return strings.ToLower(strings.TrimSpace(truthyText(value)))
}

const horarioSeparator = " – "

// BuildHorario composes the opening hours shown to users out of the
// opening and closing times.
func BuildHorario(apertura, cierre any) string {
	a := strings.TrimSpace(truthyText(apertura))
	c := strings.TrimSpace(truthyText(cierre))
	switch {
	case a != "" && c != "":
		return a + horarioSeparator + c
	case a != "":
		return a
	default:
		return c
	}
}
