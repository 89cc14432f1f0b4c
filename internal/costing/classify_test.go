package costing

import "testing"

func TestClassify(t *testing.T) {
	c := NewClassifier(mustCatalog(t))

	tests := []struct {
		name     string
		code     string
		item     string
		family   Family
		supplier Supplier
		series   string
		rule     string
	}{
		{"excluded prefix", "Z043-001", "運費", FamilyUnpriced, SupplierNone, "", RuleExcludedPrefix},
		{"excluded beats pvc name", "Z044", "PVC套管 5mm", FamilyUnpriced, SupplierNone, "", RuleExcludedPrefix},
		{"pvc code cft-3", "CFT-3-050", "套管 5mm", FamilyGeometry, SupplierNone, "CFT-3", RulePVC},
		{"pvc code cft-6", "CFT-6-050", "套管 5mm", FamilyGeometry, SupplierNone, "CFT-6", RulePVC},
		{"pvc name with series", "X100", "PVC套管 CFT6 5mm", FamilyGeometry, SupplierNone, "CFT-6", RulePVC},
		{"pvc name default series", "X100", "PVC軟管 5mm", FamilyGeometry, SupplierNone, "CFT-3", RulePVC},
		{"domestic heat shrink", "H015R", "熱收縮套管 1.5mm", FamilyDomestic, SupplierNone, "", RuleDomestic},
		{"domestic lower case code", " h015r ", "熱收縮套管 1.5mm", FamilyDomestic, SupplierNone, "", RuleDomestic},
		{"domestic beats sleeving name", "H100", "玻璃纖維 10mm", FamilyDomestic, SupplierNone, "", RuleDomestic},
		{"primary code marker", "FSG-3-100", "套管 10mm", FamilyForeign, SupplierPrimary, "", RuleForeignCode},
		{"hst code marker", "HST-10R", "套管 10mm", FamilyForeign, SupplierPrimary, "", RuleForeignCode},
		{"secondary code marker", "FSG-2-100", "套管 10mm", FamilyForeign, SupplierSecondary, "", RuleForeignCode},
		{"srg code marker", "SRG-5", "套管 5mm", FamilyForeign, SupplierSecondary, "", RuleForeignCode},
		{"primary keyword", "A1", "內纖外膠 5mm", FamilyForeign, SupplierPrimary, "", RuleForeignName},
		{"secondary keyword", "A1", "內膠外纖 5mm", FamilyForeign, SupplierSecondary, "", RuleForeignName},
		{"generic keyword", "A1", "玻璃纖維矽套管 10.0mm 1.5KV", FamilyForeign, SupplierPrimary, "", RuleForeignName},
		{"catch all", "A1", "螺絲", FamilyUnpriced, SupplierNone, "", RuleCatchAll},
		{"empty code and name", "", "", FamilyUnpriced, SupplierNone, "", RuleCatchAll},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.code, tt.item)
			if got.Family != tt.family {
				t.Errorf("family = %q, want %q", got.Family, tt.family)
			}
			if got.Supplier != tt.supplier {
				t.Errorf("supplier = %q, want %q", got.Supplier, tt.supplier)
			}
			if got.Series != tt.series {
				t.Errorf("series = %q, want %q", got.Series, tt.series)
			}
			if got.Rule != tt.rule {
				t.Errorf("rule = %q, want %q", got.Rule, tt.rule)
			}
		})
	}
}

func TestIsExcluded(t *testing.T) {
	c := NewClassifier(mustCatalog(t))

	for _, code := range []string{"Z043", "Z044-9", "z045x"} {
		if !c.IsExcluded(code) {
			t.Errorf("IsExcluded(%q) = false, want true", code)
		}
	}
	for _, code := range []string{"", "Z046", "AZ043", "H015R"} {
		if c.IsExcluded(code) {
			t.Errorf("IsExcluded(%q) = true, want false", code)
		}
	}
}

func TestClassifierRuleOrder(t *testing.T) {
	c := NewClassifier(mustCatalog(t))

	want := []string{RuleExcludedPrefix, RulePVC, RuleDomestic, RuleForeignCode, RuleForeignName, RuleCatchAll}
	rules := c.Rules()
	if len(rules) != len(want) {
		t.Fatalf("got %d rules, want %d", len(rules), len(want))
	}
	for i, r := range rules {
		if r.Name != want[i] {
			t.Errorf("rule %d = %q, want %q", i, r.Name, want[i])
		}
	}
}
