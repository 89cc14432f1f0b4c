package costing

import (
	"regexp"
	"strings"
)

// Family is the pricing scheme a sales line belongs to
type Family string

const (
	FamilyGeometry Family = "geometry" // PVC, priced from the geometry-derived table
	FamilyDomestic Family = "domestic" // heat-shrink, domestic catalog
	FamilyForeign  Family = "foreign"  // sleeving, foreign catalog
	FamilyUnpriced Family = "unpriced"
)

// Classification is the outcome of the classifier: exactly one family, plus
// the supplier (foreign) or series (geometry) it implies.
type Classification struct {
	Family   Family
	Supplier Supplier
	Series   string
	Rule     string
}

// Rule names, in evaluation order
const (
	RuleExcludedPrefix = "excluded-prefix"
	RulePVC            = "pvc"
	RuleDomestic       = "domestic-heat-shrink"
	RuleForeignCode    = "foreign-code"
	RuleForeignName    = "foreign-name"
	RuleCatchAll       = "catch-all"
)

// Rule is one predicate -> family step of the classifier
type Rule struct {
	Name  string
	Match func(code, name string) (Classification, bool)
}

// Classifier evaluates its rules in order; the first match wins
type Classifier struct {
	rules    RuleSet
	sequence []Rule
}

var domesticCodePattern = regexp.MustCompile(`^H\d+`)

// NewClassifier builds the rule sequence from the catalog's rule data
func NewClassifier(cat *Catalog) *Classifier {
	c := &Classifier{rules: cat.Rules}
	c.sequence = []Rule{
		{Name: RuleExcludedPrefix, Match: c.matchExcluded},
		{Name: RulePVC, Match: c.matchPVC},
		{Name: RuleDomestic, Match: c.matchDomestic},
		{Name: RuleForeignCode, Match: c.matchForeignCode},
		{Name: RuleForeignName, Match: c.matchForeignName},
		{Name: RuleCatchAll, Match: func(string, string) (Classification, bool) {
			return Classification{Family: FamilyUnpriced}, true
		}},
	}
	return c
}

// Rules returns the rule sequence in evaluation order
func (c *Classifier) Rules() []Rule {
	out := make([]Rule, len(c.sequence))
	copy(out, c.sequence)
	return out
}

// Classify returns the pricing family of a line. It always returns a result.
func (c *Classifier) Classify(itemCode, name string) Classification {
	code := normalizeCode(itemCode)
	for _, rule := range c.sequence {
		if cls, ok := rule.Match(code, name); ok {
			cls.Rule = rule.Name
			return cls
		}
	}
	// unreachable: the catch-all always matches
	return Classification{Family: FamilyUnpriced, Rule: RuleCatchAll}
}

// IsExcluded reports whether a line must be dropped from every output
func (c *Classifier) IsExcluded(itemCode string) bool {
	return hasAnyPrefix(normalizeCode(itemCode), c.rules.ExcludedPrefixes)
}

func (c *Classifier) matchExcluded(code, _ string) (Classification, bool) {
	if hasAnyPrefix(code, c.rules.ExcludedPrefixes) {
		return Classification{Family: FamilyUnpriced}, true
	}
	return Classification{}, false
}

func (c *Classifier) matchPVC(code, name string) (Classification, bool) {
	pvc := c.rules.PVC
	for _, prefix := range pvc.CodePrefixes {
		if strings.HasPrefix(code, prefix) {
			return Classification{Family: FamilyGeometry, Series: c.seriesFor(prefix)}, true
		}
	}
	if containsAny(name, pvc.NameKeywords) {
		return Classification{Family: FamilyGeometry, Series: c.seriesFromName(name)}, true
	}
	return Classification{}, false
}

// seriesFor maps a code prefix onto a known series; the prefixes double as
// series names in the default catalog
func (c *Classifier) seriesFor(prefix string) string {
	for _, s := range c.rules.PVC.Series {
		if strings.HasPrefix(prefix, s) || strings.HasPrefix(s, prefix) {
			return s
		}
	}
	return c.rules.PVC.DefaultSeries
}

func (c *Classifier) seriesFromName(name string) string {
	upper := strings.ToUpper(name)
	for _, s := range c.rules.PVC.Series {
		if strings.Contains(upper, s) || strings.Contains(upper, strings.ReplaceAll(s, "-", "")) {
			return s
		}
	}
	return c.rules.PVC.DefaultSeries
}

func (c *Classifier) matchDomestic(code, _ string) (Classification, bool) {
	if domesticCodePattern.MatchString(code) {
		return Classification{Family: FamilyDomestic}, true
	}
	return Classification{}, false
}

func (c *Classifier) matchForeignCode(code, _ string) (Classification, bool) {
	f := c.rules.Foreign
	if containsAny(code, f.PrimaryCodeMarkers) {
		return Classification{Family: FamilyForeign, Supplier: SupplierPrimary}, true
	}
	if containsAny(code, f.SecondaryCodeMarkers) {
		return Classification{Family: FamilyForeign, Supplier: SupplierSecondary}, true
	}
	return Classification{}, false
}

func (c *Classifier) matchForeignName(_, name string) (Classification, bool) {
	f := c.rules.Foreign
	switch {
	case containsAny(name, f.PrimaryKeywords):
		return Classification{Family: FamilyForeign, Supplier: SupplierPrimary}, true
	case containsAny(name, f.SecondaryKeywords):
		return Classification{Family: FamilyForeign, Supplier: SupplierSecondary}, true
	case containsAny(name, f.GenericKeywords):
		return Classification{Family: FamilyForeign, Supplier: SupplierPrimary}, true
	}
	return Classification{}, false
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

func hasAnySuffix(s string, suffixes []string) bool {
	for _, p := range suffixes {
		if p != "" && strings.HasSuffix(s, p) {
			return true
		}
	}
	return false
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
