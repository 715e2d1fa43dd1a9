package currency

import (
	"fmt"
	"math"
	"strings"
)

var symbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"INR": "₹",
	"JPY": "¥",
}

// zero-decimal currencies are rounded to whole units.
var zeroDecimal = map[string]bool{
	"JPY": true,
	"IDR": true,
	"KRW": true,
}

// Format renders amount for display, e.g. "$1,299.50" or "IDR 1,500,000".
// The result is presentation only and is never parsed back.
func Format(amount float64, code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))

	decimals := 2
	if zeroDecimal[code] {
		decimals = 0
	}
	scale := math.Pow10(decimals)
	rounded := math.Round(amount*scale) / scale

	negative := rounded < 0
	if negative {
		rounded = -rounded
	}

	s := fmt.Sprintf("%.*f", decimals, rounded)
	intPart, frac, _ := strings.Cut(s, ".")
	formatted := addThousandsSeparator(intPart, ",")
	if frac != "" {
		formatted += "." + frac
	}

	var result string
	if sym, ok := symbols[code]; ok {
		result = sym + formatted
	} else {
		result = code + " " + formatted
	}
	if negative {
		result = "-" + result
	}

	return result
}

func addThousandsSeparator(s string, sep string) string {
	n := len(s)
	if n <= 3 {
		return s
	}

	numSeps := (n - 1) / 3
	result := make([]byte, n+numSeps)

	j := len(result) - 1
	for i := n - 1; i >= 0; i-- {
		result[j] = s[i]
		j--

		pos := n - i
		if pos%3 == 0 && i > 0 {
			result[j] = sep[0]
			j--
		}
	}

	return string(result)
}
