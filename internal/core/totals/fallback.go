package totals

import (
	"sort"
	"strings"

	"github.com/kirillkom/invoice-totals/internal/core/domain"
)

const (
	nuclearMinScore      = 50
	nuclearLowConfidence = 70

	lastResortBefore = 150
	lastResortAfter  = 250
	lastResortMin    = domain.Cents(1000)
	lastResortMax    = domain.Cents(10_000_000)

	plausibleMin = domain.Cents(100)
	plausibleMax = domain.Cents(10_000_000)
)

type scoredAmount struct {
	candidate domain.Candidate
	score     int
}

// nuclearFallback scores every positive amount in the document by keyword
// proximity, position and magnitude. It only accepts a winner scoring at
// least nuclearMinScore.
func nuclearFallback(d *document) (*domain.Evidence, domain.Cents, bool) {
	var largest domain.Cents
	for _, l := range d.lines {
		if l.class == LineRejected {
			continue
		}
		for _, a := range l.amounts {
			if a.Cents > largest {
				largest = a.Cents
			}
		}
	}

	n := len(d.lines)
	var scored []scoredAmount
	for i := n - 1; i >= 0; i-- {
		l := d.lines[i]
		if l.class == LineRejected {
			continue
		}
		for j, a := range l.amounts {
			if a.Cents <= 0 {
				continue
			}
			score := keywordScore(d, i)
			if subtotalRuleFor(l.Text) != nil || taxRuleFor(l.Text) != nil ||
				feeRuleFor(l.Text) != nil || discountRuleFor(l.Text) != nil {
				score -= 30
			}
			if reLineItemShape.MatchString(l.Text) {
				score -= 20
			}
			switch rel := float64(i+1) / float64(n); {
			case rel >= 2.0/3.0:
				score += 15
			case rel >= 0.5:
				score += 8
			}
			if a.Cents >= plausibleMin && a.Cents <= plausibleMax {
				score += 10
			} else {
				score -= 20
			}
			if a.Cents == largest {
				score += 10
			}
			if j == len(l.amounts)-1 {
				score += 5
			}
			scored = append(scored, scoredAmount{
				candidate: domain.Candidate{
					Cents:        a.Cents,
					RuleLabel:    FormatNuclearFallback,
					EvidenceLine: l.Text,
					LineIndex:    l.Index,
				},
				score: score,
			})
		}
	}
	if len(scored) == 0 {
		return nil, 0, false
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })

	best := scored[0]
	if best.score < nuclearMinScore {
		return nil, 0, false
	}
	ev := candidateEvidence(best.candidate)
	ev.Score = min(best.score, 100)
	ev.LowConfidence = best.score < nuclearLowConfidence
	for _, s := range scored[1:] {
		if len(ev.RunnersUp) == maxRunnersUp {
			break
		}
		ev.RunnersUp = append(ev.RunnersUp, s.candidate)
	}
	return ev, best.candidate.Cents, true
}

func keywordScore(d *document, i int) int {
	l := d.lines[i]
	score := 0
	switch {
	case totalRuleFor(l.Text) != nil || reFallbackKeywords.MatchString(l.Text):
		score += 40
	case i > 0:
		prev := d.lines[i-1]
		if prev.labelOnly() && prev.class != LineRejected &&
			(totalRuleFor(prev.Text) != nil || reFallbackKeywords.MatchString(prev.Text)) {
			score += 30
		}
	}
	upper := strings.ToUpper(l.Text)
	if strings.Contains(upper, "DUE") || strings.Contains(upper, "PAY") || strings.Contains(upper, "BALANCE") {
		score += 15
	}
	return score
}

// lastResort anchors on the last "INVOICE TOTAL" (or failing that "TOTAL")
// line and takes the largest plausible amount in a character window around
// it. The result is always low confidence.
func lastResort(d *document) (*domain.Evidence, domain.Cents, bool) {
	anchor := lastLineWhere(d, func(l line) bool {
		return strings.Contains(strings.ToUpper(l.Text), "INVOICE TOTAL")
	})
	if anchor < 0 {
		anchor = lastLineWhere(d, func(l line) bool { return reTotalWord.MatchString(l.Text) })
	}
	if anchor < 0 {
		return nil, 0, false
	}

	offsets := make([]int, len(d.lines))
	pos := 0
	for i, l := range d.lines {
		offsets[i] = pos
		pos += len(l.Text) + 1
	}
	from := offsets[anchor] - lastResortBefore
	to := offsets[anchor] + len(d.lines[anchor].Text) + lastResortAfter

	var best domain.Cents
	bestAt := -1
	for i, l := range d.lines {
		start, end := offsets[i], offsets[i]+len(l.Text)
		if end < from || start > to || l.class == LineRejected {
			continue
		}
		for _, a := range l.amounts {
			if a.Cents < lastResortMin || a.Cents > lastResortMax {
				continue
			}
			if bestAt < 0 || a.Cents > best {
				best, bestAt = a.Cents, i
			}
		}
	}
	if bestAt < 0 {
		return nil, 0, false
	}

	lines := []line{d.lines[anchor]}
	if bestAt != anchor {
		lines = append(lines, d.lines[bestAt])
	}
	ev := evidenceOf(FormatLastResort, 0, lines...)
	ev.LowConfidence = true
	return ev, best, true
}

func lastLineWhere(d *document, match func(line) bool) int {
	for i := len(d.lines) - 1; i >= 0; i-- {
		if d.lines[i].class != LineRejected && match(d.lines[i]) {
			return i
		}
	}
	return -1
}
