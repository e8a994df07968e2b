package money

import (
	"testing"

	"github.com/kirillkom/invoice-totals/internal/core/domain"
)

func TestParseCents(t *testing.T) {
	tests := []struct {
		in   string
		want domain.Cents
		ok   bool
	}{
		{in: "1,748.85", want: 174885, ok: true},
		{in: "$1,748.85", want: 174885, ok: true},
		{in: "$ 1,748.85", want: 174885, ok: true},
		{in: "USD 100.00", want: 10000, ok: true},
		{in: "1 748 .85", want: 174885, ok: true},
		{in: "(12.50)", want: -1250, ok: true},
		{in: "-$3.00", want: -300, ok: true},
		{in: "3.00-", want: -300, ok: true},
		{in: "45.10 CR", want: -4510, ok: true},
		{in: "12,50", want: 1250, ok: true},
		{in: "7", want: 700, ok: true},
		{in: ".99", want: 99, ok: true},
		{in: "0.005", want: 1, ok: true},
		{in: "", want: 0, ok: false},
		{in: "TOTAL", want: 0, ok: false},
		{in: "$", want: 0, ok: false},
		{in: "1.2.3", want: 0, ok: false},
		{in: "99999999999999999999999.99", want: 0, ok: false},
		{in: "-92233720368547758.09", want: 0, ok: false},
		{in: "92233720368547758.07", want: 9223372036854775807, ok: true},
	}

	for _, tt := range tests {
		got, ok := ParseCents(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Fatalf("ParseCents(%q) = %d, %v; want %d, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestNormalizeToCentsIgnoresExtractionArtifacts(t *testing.T) {
	clean := []string{"1748.85", "100.00", "7.00", "107.00", "1234567.89", "0.99"}
	decorate := []func(string) string{
		func(s string) string { return "$" + s },
		func(s string) string { return "$ " + s },
		func(s string) string { return s + " USD" },
		func(s string) string { return withThousands(s) },
		func(s string) string { return "$" + withThousands(s) },
		func(s string) string { return s[:len(s)-3] + " " + s[len(s)-3:] },
		func(s string) string { return s[:1] + " " + s[1:] },
	}

	for _, value := range clean {
		want := NormalizeToCents(value)
		if want == 0 {
			t.Fatalf("NormalizeToCents(%q) returned zero", value)
		}
		for i, fn := range decorate {
			got := NormalizeToCents(fn(value))
			if got != want {
				t.Fatalf("decoration %d of %q: got %d, want %d (input %q)", i, value, got, want, fn(value))
			}
		}
	}
}

func withThousands(s string) string {
	intPart, frac := s[:len(s)-3], s[len(s)-3:]
	var out []byte
	for i := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, intPart[i])
	}
	return string(out) + frac
}

func TestRepairSplitNumbers(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "TOTAL 1 748 .85", want: "TOTAL 1748.85"},
		{in: "TOTAL 1,748 .85", want: "TOTAL 1,748.85"},
		{in: "TAX 7. 00", want: "TAX 7.00"},
		{in: "TOTAL 1 748.85", want: "TOTAL 1748.85"},
		{in: "BALANCE DUE $ 12 345 678.90", want: "BALANCE DUE $ 12345678.90"},
		{in: "SUBTOTAL: 2 500.00", want: "SUBTOTAL: 2500.00"},
		{in: "ITEM 2 100.00", want: "ITEM 2 100.00"},
		{in: "12 150.00 1 800.00", want: "12 150.00 1 800.00"},
		{in: "2 CS CHICKEN 100.00", want: "2 CS CHICKEN 100.00"},
		{in: "100.00 7.00 107.00", want: "100.00 7.00 107.00"},
		{in: "", want: ""},
	}
	for _, tt := range tests {
		if got := RepairSplitNumbers(tt.in); got != tt.want {
			t.Fatalf("RepairSplitNumbers(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFindAmounts(t *testing.T) {
	amounts := FindAmounts("SUBTOTAL $1,000.00 TAX (7.50) REF 12.345 DATE 01.15.24")
	if len(amounts) != 2 {
		t.Fatalf("expected 2 amounts, got %+v", amounts)
	}
	if amounts[0].Cents != 100000 {
		t.Fatalf("expected first amount 100000, got %d", amounts[0].Cents)
	}
	if amounts[1].Cents != -750 {
		t.Fatalf("expected second amount -750, got %d", amounts[1].Cents)
	}
}

func TestFindAmountsDoesNotTreatDashSeparatorAsSign(t *testing.T) {
	amounts := FindAmounts("TOTAL - 107.00")
	if len(amounts) != 1 || amounts[0].Cents != 10700 {
		t.Fatalf("expected 10700, got %+v", amounts)
	}
}

func TestBareAmount(t *testing.T) {
	if cents, ok := BareAmount("  $1,748.85 "); !ok || cents != 174885 {
		t.Fatalf("BareAmount() = %d, %v", cents, ok)
	}
	if _, ok := BareAmount("TOTAL 1,748.85"); ok {
		t.Fatalf("expected labelled line to be rejected")
	}
	if _, ok := BareAmount("100.00 7.00"); ok {
		t.Fatalf("expected two amounts to be rejected")
	}
}

func TestSplitLinesKeepsSourcePositions(t *testing.T) {
	lines := SplitLines("INVOICE\r\n\n  TOTAL  1,748.85  \n\n—\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %+v", lines)
	}
	if lines[0].Index != 1 || lines[1].Index != 3 || lines[2].Index != 5 {
		t.Fatalf("unexpected indexes: %+v", lines)
	}
	if lines[1].Text != "TOTAL 1,748.85" {
		t.Fatalf("unexpected normalized text %q", lines[1].Text)
	}
	if lines[2].Text != "-" {
		t.Fatalf("expected dash normalization, got %q", lines[2].Text)
	}
}

func TestEmptyInputs(t *testing.T) {
	if got := NormalizeToCents(""); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
	if got := SplitLines(""); len(got) != 0 {
		t.Fatalf("expected no lines, got %+v", got)
	}
	if got := FindAmounts(""); len(got) != 0 {
		t.Fatalf("expected no amounts, got %+v", got)
	}
}
