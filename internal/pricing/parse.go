package pricing

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ParseAmount converts free-form field text into an amount. It reads the longest
// leading decimal literal (optional sign, digits, fraction and exponent) after
// skipping leading whitespace and ignores whatever follows, so "12abc" is 12 and
// "1000,50" is 1000. Text without a leading number, or one that overflows a
// float64, yields zero. Unlike parseFloat, "Infinity" and "1e400" are zero
// rather than infinite, since no amount can be infinite.
func ParseAmount(text string) decimal.Decimal {
	literal := numericPrefix(text)
	if literal == "" {
		return decimal.Zero
	}
	f, err := strconv.ParseFloat(literal, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) || f == 0 {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(strings.TrimPrefix(literal, "+"))
	if err != nil {
		return decimal.NewFromFloat(f)
	}
	return d
}

func numericPrefix(text string) string {
	s := strings.TrimLeftFunc(text, isLeadingSpace)
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	start := i
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	intDigits := i - start
	fracDigits := 0
	if i < len(s) && s[i] == '.' {
		j := i + 1
		for j < len(s) && isDigit(s[j]) {
			j++
		}
		fracDigits = j - i - 1
		if intDigits > 0 || fracDigits > 0 {
			i = j
		}
	}
	if intDigits == 0 && fracDigits == 0 {
		return ""
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		k := j
		for k < len(s) && isDigit(s[k]) {
			k++
		}
		if k > j {
			i = k
		}
	}
	return s[:i]
}

// isLeadingSpace matches the whitespace and line terminators parseFloat skips:
// the Unicode White_Space set plus the byte order mark, without U+0085.
func isLeadingSpace(r rune) bool {
	switch r {
	case '\ufeff':
		return true
	case '\u0085':
		return false
	}
	return unicode.IsSpace(r)
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
