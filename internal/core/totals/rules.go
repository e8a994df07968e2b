package totals

import (
	"regexp"

	"github.com/kirillkom/invoice-totals/internal/core/domain"
)

func rule(label string, priority int, pattern string) domain.PatternRule {
	return domain.PatternRule{
		Label:    label,
		Priority: priority,
		Pattern:  regexp.MustCompile(`(?i)` + pattern),
	}
}

// PrioritySplitInvoiceTotal ranks "INVOICE" alone on a line followed by
// "TOTAL <value>" above every other total rule.
const PrioritySplitInvoiceTotal = 0

// Rule sets are ordered by priority; the first match on a line labels it.
var (
	totalRules = []domain.PatternRule{
		rule("invoice_total", 1, `\bINVOICE\s+TOTAL\b`),
		rule("total_usd", 1, `\bTOTAL\s+USD\b`),
		rule("grand_total", 2, `\bGRAND\s+TOTAL\b`),
		rule("amount_due", 2, `\b(?:TOTAL\s+)?AMOUNT\s+DUE\b`),
		rule("balance_due", 2, `\bBALANCE\s+DUE\b`),
		rule("total_due", 3, `\bTOTAL\s+DUE\b`),
		rule("total_this_invoice", 3, `\bTOTAL\s+(?:THIS\s+)?INVOICE\b`),
		rule("invoice_amount", 3, `\bINVOICE\s+(?:AMOUNT|BALANCE)\b`),
		rule("please_pay", 3, `\bPLEASE\s+PAY\b`),
		rule("amount_payable", 3, `\b(?:AMOUNT|TOTAL)\s+PAYABLE\b`),
		rule("total_amount", 4, `\bTOTAL\s+(?:AMOUNT|CHARGES|SALE|INV)\b`),
		rule("order_total", 4, `\b(?:ORDER|TICKET|DELIVERY\s+TICKET)\s+TOTAL\b`),
		rule("net_total", 4, `\bNET\s+(?:TOTAL|AMOUNT)\b`),
		rule("new_balance", 5, `\bNEW\s+BALANCE\b`),
		rule("total", 6, `\bTOTAL\b`),
	}

	subtotalRules = []domain.PatternRule{
		rule("subtotal", 1, `\bSUB[\s-]?TOTAL\b`),
		rule("total_before_tax", 2, `\bTOTAL\s+BEFORE\s+TAX\b|\bPRE-?TAX\s+TOTAL\b`),
		rule("merchandise_total", 3, `\b(?:MERCHANDISE|PRODUCT|ITEMS?|GOODS)\s+TOTAL\b`),
		rule("net_sales", 4, `\bNET\s+SALES\b`),
	}

	taxRules = []domain.PatternRule{
		rule("sales_tax", 1, `\bSALES\s+TAX\b`),
		rule("tax_total", 2, `\bTOTAL\s+TAX(?:ES)?\b|\bTAX\s+TOTAL\b`),
		rule("vat", 2, `\b(?:VAT|GST|HST|PST)\b`),
		rule("tax", 3, `\bTAX(?:ES)?\b`),
	}

	feeRules = []domain.PatternRule{
		rule("fuel_surcharge", 1, `\bFUEL\s+(?:SURCHARGE|CHARGE|FEE)\b`),
		rule("delivery_fee", 1, `\bDELIVERY\s+(?:FEE|CHARGE)S?\b`),
		rule("service_fee", 1, `\bSERVICE\s+(?:FEE|CHARGE)S?\b`),
		rule("shipping", 2, `\bSHIPPING\b`),
		rule("freight", 2, `\bFREIGHT\b`),
		rule("handling_fee", 2, `\bHANDLING\s+(?:FEE|CHARGE)\b`),
		rule("environmental_fee", 2, `\bENVIRONMENTAL\s+FEE\b`),
		rule("deposit", 2, `\b(?:BOTTLE|CONTAINER|KEG)\s+DEPOSIT\b`),
		rule("surcharge", 3, `\bSURCHARGE\b`),
		rule("fee", 4, `\bFEES?\b`),
	}

	discountRules = []domain.PatternRule{
		rule("discount", 1, `\bDISCOUNTS?\b`),
		rule("coupon", 1, `\bCOUPONS?\b`),
		rule("promotion", 2, `\bPROMO(?:TION(?:AL)?)?\b`),
		rule("rebate", 2, `\bREBATES?\b`),
		rule("allowance", 2, `\bALLOWANCES?\b`),
		rule("credit", 3, `\bCREDIT\s+(?:MEMO|APPLIED|ADJ(?:USTMENT)?)\b`),
		rule("savings", 3, `\bSAVINGS\b`),
	}

	// groupRejectionRules describe departmental, per-employee and banner
	// subtotals that look like totals but cover only part of the invoice.
	groupRejectionRules = []domain.PatternRule{
		rule("group_total", 1, `\bGROUP\s+(?:SUB)?TOTAL\b`),
		rule("category_total", 1, `\bCATEGORY\s+(?:SUB)?TOTAL\b`),
		rule("section_total", 1, `\bSECTION\s+(?:SUB)?TOTAL\b`),
		rule("dept_total", 1, `\b(?:DEPT\.?|DEPARTMENT)\s+(?:SUB)?TOTAL\b`),
		rule("scoped_total", 2, `\b(?:CLASS|LOCATION|STORE|EMPLOYEE|PAGE|ROUTE|STOP)\s+(?:SUB)?TOTAL\b`),
		rule("total_for_scope", 2, `\bTOTAL\s+(?:FOR\s+)?(?:GROUP|CATEGORY|SECTION|DEPT|DEPARTMENT|CLASS|EMPLOYEE|LOCATION)\b`),
		rule("scoped_subtotal", 2, `\b(?:GROUP|CATEGORY|SECTION|DEPT|DEPARTMENT|CLASS|EMPLOYEE|EMP|LOCATION|STORE)\b.*\bSUB[\s-]?TOTAL\b`),
		rule("named_subtotal", 3, `^[A-Z][A-Z.'&-]*(?:\s+[A-Z][A-Z.'&-]*)+\s*:?\s+SUB[\s-]?TOTAL\b`),
		rule("banner_total", 3, `\*{2,}[^*]*\bTOTAL\b[^*]*\*{2,}`),
		rule("category_marker_total", 4, `\b(?:PRODUCE|DAIRY|MEATS?|POULTRY|SEAFOOD|FROZEN|GROCERY|BEVERAGES?|PAPER|CHEMICALS?|DISPOSABLES?|CANNED|BAKERY|SUPPLIES)\s+(?:SUB)?TOTAL\b`),
	}

	// whitelistRules always identify the invoice total and override every
	// rejection rule.
	whitelistRules = []domain.PatternRule{
		rule("invoice_total", 1, `\bINVOICE\s+TOTAL\b`),
		rule("total_usd", 1, `\bTOTAL\s+USD\b`),
		rule("amount_due", 1, `\bAMOUNT\s+DUE\b`),
		rule("balance_due", 1, `\bBALANCE\s+DUE\b`),
		rule("grand_total", 1, `\bGRAND\s+TOTAL\b`),
	}
)

var (
	reNotTotal  = regexp.MustCompile(`(?i)\bTOTAL\s+(?:TAX(?:ES)?|ITEMS?|QTY|QUANTITY|CASES?|PIECES|PCS|UNITS|WEIGHT|LBS|DISCOUNTS?|SAVINGS|FEES?|DEPOSITS?|CUBE|LINES|PAID|TENDERED)\b|\b(?:TAX|FEE|FREIGHT|DISCOUNT|DEPOSIT)\s+TOTAL\b`)
	reNotTax    = regexp.MustCompile(`(?i)\bTAX\s*(?:ID|EXEMPT(?:ION)?|#|NO\b|NUMBER|RATE|CODE)|\bTAXABLE\b|\bNON-?TAX|\bBEFORE\s+TAX\b|\bPRE-?TAX\b`)
	reTotalWord = regexp.MustCompile(`(?i)\bTOTAL\b`)
	reTaxWord   = regexp.MustCompile(`(?i)\b(?:SALES\s+)?TAX(?:ES)?\b|\b(?:VAT|GST|HST|PST)\b`)

	reInvoiceAlone     = regexp.MustCompile(`(?i)^INVOICE\s*:?$`)
	reTotalLineStart   = regexp.MustCompile(`(?i)^TOTAL\b`)
	reCategoryMarker   = regexp.MustCompile(`(?i)\*{2,}|\b(?:GROUP|CATEGORY|DEPT|DEPARTMENT|SECTION|CLASS|PRODUCE|DAIRY|MEATS?|POULTRY|SEAFOOD|FROZEN|GROCERY|BEVERAGES?|PAPER|CHEMICALS?|DISPOSABLES?|CANNED|BAKERY)\b`)
	reLineItemShape    = regexp.MustCompile(`(?i)^\s*(?:\d{4,}\s+\S|\d+\s+(?:CS|EA|LB|LBS|BG|PK|CT|DZ|GAL|BX|CASE|EACH)\b)`)
	reFallbackKeywords = regexp.MustCompile(`(?i)\bT[O0]T[A4][L1I]\b|\bAM[O0]UNT\b|\bDUE\b|\bPAY(?:ABLE)?\b|\bBALANCE\b`)
)

type LineClass int

const (
	LineNeutral LineClass = iota
	LineWhitelisted
	LineRejected
)

func (c LineClass) String() string {
	switch c {
	case LineWhitelisted:
		return "whitelisted"
	case LineRejected:
		return "rejected"
	default:
		return "neutral"
	}
}

// ClassifyLine is the single authority on group-subtotal rejection. The
// whitelist is consulted first and wins over every rejection rule.
func ClassifyLine(line string) LineClass {
	if firstMatch(whitelistRules, line) != nil {
		return LineWhitelisted
	}
	if firstMatch(groupRejectionRules, line) != nil {
		return LineRejected
	}
	return LineNeutral
}

// RejectionRule names the rejection rule that matches line, or "" when the
// line is neutral or whitelisted.
func RejectionRule(line string) string {
	if ClassifyLine(line) != LineRejected {
		return ""
	}
	return firstMatch(groupRejectionRules, line).Label
}

func firstMatch(rules []domain.PatternRule, line string) *domain.PatternRule {
	for i := range rules {
		if rules[i].Match(line) {
			return &rules[i]
		}
	}
	return nil
}

func isSubtotalLine(line string) bool {
	return firstMatch(subtotalRules, line) != nil
}

// totalRuleFor returns the total rule labelling line. Subtotals, group
// subtotals and count/tax summaries ("TOTAL CASES", "TOTAL TAX") never label
// an invoice total unless whitelisted.
func totalRuleFor(line string) *domain.PatternRule {
	class := ClassifyLine(line)
	if class == LineRejected {
		return nil
	}
	if class != LineWhitelisted && (isSubtotalLine(line) || reNotTotal.MatchString(line)) {
		return nil
	}
	return firstMatch(totalRules, line)
}

func subtotalRuleFor(line string) *domain.PatternRule {
	if ClassifyLine(line) == LineRejected {
		return nil
	}
	return firstMatch(subtotalRules, line)
}

func taxRuleFor(line string) *domain.PatternRule {
	if ClassifyLine(line) == LineRejected || reNotTax.MatchString(line) {
		return nil
	}
	if isSubtotalLine(line) {
		return nil
	}
	return firstMatch(taxRules, line)
}

// Fee and discount summaries ("TOTAL FEES") are skipped so that itemised
// adjustments are not counted twice.
func feeRuleFor(line string) *domain.PatternRule {
	if reTotalWord.MatchString(line) || ClassifyLine(line) == LineRejected || taxRuleFor(line) != nil {
		return nil
	}
	return firstMatch(feeRules, line)
}

func discountRuleFor(line string) *domain.PatternRule {
	if reTotalWord.MatchString(line) || ClassifyLine(line) == LineRejected {
		return nil
	}
	return firstMatch(discountRules, line)
}
