package totals

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/diegoholiveira/jsonlogic/v3"
	"gopkg.in/yaml.v3"

	"github.com/kirillkom/invoice-totals/internal/core/domain"
)

const WarningTotalEvidenceRejected = "total_evidence_rejected"

//go:embed sanity_rules.yaml
var defaultSanityRules []byte

type sanityFile struct {
	Rules []struct {
		Name  string         `yaml:"name"`
		Logic map[string]any `yaml:"logic"`
	} `yaml:"rules"`
}

type sanityRule struct {
	name  string
	logic []byte
}

// SanityChecker annotates extracted totals with warnings. It never changes
// the totals themselves.
type SanityChecker struct {
	rules []sanityRule
}

// LoadSanityRules reads JSONLogic sanity rules from YAML.
func LoadSanityRules(r io.Reader) (*SanityChecker, error) {
	var file sanityFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode sanity rules: %w", err)
	}

	checker := &SanityChecker{rules: make([]sanityRule, 0, len(file.Rules))}
	seen := make(map[string]struct{}, len(file.Rules))
	for i, raw := range file.Rules {
		name := strings.TrimSpace(raw.Name)
		if name == "" {
			return nil, fmt.Errorf("sanity rule %d: empty name", i)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("sanity rule %q: duplicate name", name)
		}
		if len(raw.Logic) == 0 {
			return nil, fmt.Errorf("sanity rule %q: empty logic", name)
		}
		logic, err := json.Marshal(raw.Logic)
		if err != nil {
			return nil, fmt.Errorf("sanity rule %q: encode logic: %w", name, err)
		}
		seen[name] = struct{}{}
		checker.rules = append(checker.rules, sanityRule{name: name, logic: logic})
	}
	return checker, nil
}

func mustDefaultSanityChecker() *SanityChecker {
	checker, err := LoadSanityRules(bytes.NewReader(defaultSanityRules))
	if err != nil {
		panic(fmt.Sprintf("load embedded sanity rules: %v", err))
	}
	return checker
}

// Check returns the names of every rule that fired, plus a warning when the
// accepted total is backed by a line the classifier rejects.
func (c *SanityChecker) Check(t domain.Totals) ([]string, error) {
	data, err := json.Marshal(sanityFacts(t))
	if err != nil {
		return nil, fmt.Errorf("encode sanity facts: %w", err)
	}

	var warnings []string
	for _, r := range c.rules {
		var out bytes.Buffer
		if err := jsonlogic.Apply(bytes.NewReader(r.logic), bytes.NewReader(data), &out); err != nil {
			return warnings, fmt.Errorf("apply sanity rule %q: %w", r.name, err)
		}
		if truthy(out.Bytes()) {
			warnings = append(warnings, r.name)
		}
	}

	if ev := t.Evidence.Total; ev != nil && ClassifyLine(strings.Join(ev.Lines, " ")) == LineRejected {
		warnings = append(warnings, WarningTotalEvidenceRejected)
	}
	return warnings, nil
}

func sanityFacts(t domain.Totals) map[string]any {
	lowConfidence := false
	if t.Evidence.Total != nil {
		lowConfidence = t.Evidence.Total.LowConfidence
	}
	return map[string]any{
		"has_total":            t.HasTotal(),
		"has_subtotal":         t.Evidence.Subtotal != nil,
		"total_cents":          int64(t.TotalCents),
		"subtotal_cents":       int64(t.SubtotalCents),
		"tax_cents":            int64(t.TaxCents),
		"fees_cents":           int64(t.FeesCents),
		"discount_cents":       int64(t.DiscountCents),
		"total_low_confidence": lowConfidence,
	}
}

func truthy(raw []byte) bool {
	var v any
	if err := json.Unmarshal(bytes.TrimSpace(raw), &v); err != nil {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}
