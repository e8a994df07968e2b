// Package money turns printed monetary substrings into signed integer cents.
package money

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/kirillkom/invoice-totals/internal/core/domain"
)

var (
	reCurrency     = regexp.MustCompile(`(?i)\bUSD\b|US\$|[$€£]`)
	reCreditSuffix = regexp.MustCompile(`(?i)\s*(?:-|CR)$`)
	reNumeric      = regexp.MustCompile(`^(?:\d+(?:\.\d*)?|\.\d+)$`)
	reDecimalComma = regexp.MustCompile(`^\d+,\d{2}$`)

	// Amount tokens carry exactly two decimals; bare integers are too often
	// quantities, item codes or dates.
	reAmount     = regexp.MustCompile(`\(?(?:-?\$ ?|-)?(?:\d{1,3}(?:,\d{3})+|\d+)\.\d{2}\)?`)
	reBareAmount = regexp.MustCompile(`^(?i:USD)?\s*\(?-?\$? ?(?:\d{1,3}(?:,\d{3})+|\d+)\.\d{2}\)?-?\s*(?i:USD)?$`)

	// "1 748 .85" and "12. 50": a single stray space on either side of the
	// decimal point is the signature of extraction jitter.
	reSplitNumber = regexp.MustCompile(`\b\d{1,3}(?:[ ,]?\d{3})*(?: \. ?|\. )\d{2}\b`)

	// "TOTAL 1 748.85": space-separated thousands are only joined right after
	// a money label or currency sign, so "2 100.00" quantity/price rows stay
	// apart.
	reSpacedThousands = regexp.MustCompile(`(?i)((?:\b(?:SUB\s*)?T[O0]TAL|\bDUE|\bBALANCE|\bAMOUNT|\bPAY|\bTAX)\s*:?\s*\$?\s?|\$\s?)(\d{1,3}(?: \d{3})+\.\d{2})\b`)
)

// Amount is one money-shaped token found in a line.
type Amount struct {
	Cents domain.Cents
	Raw   string
	Start int
	End   int
}

// ParseCents converts a printed amount to cents. Parenthesised values and
// trailing "-" or "CR" markers are negative.
func ParseCents(s string) (domain.Cents, bool) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return 0, false
	}

	negative := false
	if strings.HasPrefix(raw, "(") && strings.HasSuffix(raw, ")") {
		negative = true
		raw = strings.TrimSpace(raw[1 : len(raw)-1])
	}
	if loc := reCreditSuffix.FindStringIndex(raw); loc != nil && loc[0] > 0 {
		negative = true
		raw = raw[:loc[0]]
	}

	raw = reCurrency.ReplaceAllString(raw, "")
	raw = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\u00a0':
			return -1
		}
		return r
	}, raw)
	if strings.HasPrefix(raw, "-") {
		negative = true
		raw = raw[1:]
	}
	if strings.HasPrefix(raw, "(") && strings.HasSuffix(raw, ")") {
		negative = true
		raw = raw[1 : len(raw)-1]
	}

	if reDecimalComma.MatchString(raw) {
		raw = strings.Replace(raw, ",", ".", 1)
	}
	raw = strings.ReplaceAll(raw, ",", "")
	if !reNumeric.MatchString(raw) {
		return 0, false
	}

	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, false
	}
	scaled := d.Shift(2).Round(0)
	if !scaled.BigInt().IsInt64() {
		return 0, false
	}
	cents := domain.Cents(scaled.IntPart())
	if negative {
		cents = -cents
	}
	return cents, true
}

// NormalizeToCents is ParseCents with zero for unparseable input.
func NormalizeToCents(s string) domain.Cents {
	cents, _ := ParseCents(s)
	return cents
}

// RepairSplitNumbers removes spaces that text extraction inserted inside
// numerals, e.g. "1 748 .85" becomes "1748.85" and "TOTAL 1 748.85" becomes
// "TOTAL 1748.85".
func RepairSplitNumbers(text string) string {
	if text == "" {
		return text
	}
	text = reSplitNumber.ReplaceAllStringFunc(text, func(m string) string {
		return strings.ReplaceAll(m, " ", "")
	})
	return reSpacedThousands.ReplaceAllStringFunc(text, func(m string) string {
		sub := reSpacedThousands.FindStringSubmatch(m)
		return sub[1] + strings.ReplaceAll(sub[2], " ", "")
	})
}

// FindAmounts returns the money tokens of a line in reading order.
func FindAmounts(line string) []Amount {
	locs := reAmount.FindAllStringIndex(line, -1)
	if len(locs) == 0 {
		return nil
	}
	out := make([]Amount, 0, len(locs))
	for _, loc := range locs {
		start, end := loc[0], loc[1]
		if start > 0 {
			prev := line[start-1]
			if isDigit(prev) || prev == '.' || prev == ',' || isLetter(prev) {
				continue
			}
		}
		if end < len(line) {
			next := line[end]
			if isDigit(next) || (next == '.' && end+1 < len(line) && isDigit(line[end+1])) {
				continue
			}
		}
		raw := line[start:end]
		if strings.HasPrefix(raw, "(") != strings.HasSuffix(raw, ")") {
			raw = strings.Trim(raw, "()")
		}
		if end < len(line) && line[end] == '-' && (end+1 == len(line) || line[end+1] == ' ') {
			raw += "-"
		}
		cents, ok := ParseCents(raw)
		if !ok {
			continue
		}
		out = append(out, Amount{Cents: cents, Raw: raw, Start: start, End: end})
	}
	return out
}

// BareAmount reports whether the whole line is a single amount.
func BareAmount(line string) (domain.Cents, bool) {
	trimmed := strings.TrimSpace(line)
	if !reBareAmount.MatchString(trimmed) {
		return 0, false
	}
	return ParseCents(trimmed)
}

// HasAmount reports whether any money token appears in text.
func HasAmount(text string) bool {
	for _, line := range strings.Split(text, "\n") {
		if len(FindAmounts(line)) > 0 {
			return true
		}
	}
	return false
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
