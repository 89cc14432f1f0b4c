package costing

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/shopspring/decimal"
)

//go:embed catalog.toml
var defaultCatalogTOML []byte

// Supplier identifies one of the two foreign sleeving suppliers
type Supplier string

const (
	SupplierNone      Supplier = ""
	SupplierPrimary   Supplier = "primary"
	SupplierSecondary Supplier = "secondary"
)

// ColorClass is the secondary key of the domestic heat-shrink table
type ColorClass string

const (
	ColorBlack       ColorClass = "black"
	ColorColor       ColorClass = "color"
	ColorTransparent ColorClass = "transparent"
	ColorThin        ColorClass = "thin"
	ColorNoPrint     ColorClass = "no_print"
)

// Catalog is the immutable pricing configuration handed to every run.
// Build it with LoadCatalog or DefaultCatalog; never mutate it afterwards.
type Catalog struct {
	Rules RuleSet

	// supplier -> spec key -> CNY per meter
	Foreign map[Supplier]map[string]decimal.Decimal
	// SupplierNames maps a supplier to its display name
	SupplierNames map[Supplier]string

	// spec key -> colour class -> TWD per meter (absent = no price)
	Domestic map[string]map[ColorClass]decimal.Decimal

	// gauge designator ("18", "1/0") -> nominal mm
	AWG map[string]decimal.Decimal
}

// RuleSet holds the keyword and marker tables used by the classifier and
// resolver. The order of evaluation is fixed in code; only the data lives here.
type RuleSet struct {
	ExcludedPrefixes []string
	PVC              PVCRules
	Domestic         DomesticRules
	Foreign          ForeignRules
}

type PVCRules struct {
	CodePrefixes  []string
	NameKeywords  []string
	Series        []string
	DefaultSeries string
}

type DomesticRules struct {
	ThinSuffix          string
	TransparentSuffix   string
	ColorSuffixes       []string
	ThinKeywords        []string
	TransparentKeywords []string
	ColorKeywords       []string
}

type ForeignRules struct {
	PrimaryCodeMarkers   []string
	SecondaryCodeMarkers []string
	PrimaryKeywords      []string
	SecondaryKeywords    []string
	GenericKeywords      []string
	WhiteKeyword         string
	WhiteSuffix          string
	ColorKeywords        []string
	ColorSuffixes        []string
	Surcharges           []Surcharge
}

// Surcharge multiplies the foreign price of coloured items whose code
// contains Marker.
type Surcharge struct {
	Marker string
	Factor decimal.Decimal
}

// catalogFile mirrors catalog.toml
type catalogFile struct {
	Rules struct {
		ExcludedPrefixes []string `toml:"excluded_prefixes"`
		PVC              struct {
			CodePrefixes  []string `toml:"code_prefixes"`
			NameKeywords  []string `toml:"name_keywords"`
			Series        []string `toml:"series"`
			DefaultSeries string   `toml:"default_series"`
		} `toml:"pvc"`
		Domestic struct {
			ThinSuffix          string   `toml:"thin_suffix"`
			TransparentSuffix   string   `toml:"transparent_suffix"`
			ColorSuffixes       []string `toml:"color_suffixes"`
			ThinKeywords        []string `toml:"thin_keywords"`
			TransparentKeywords []string `toml:"transparent_keywords"`
			ColorKeywords       []string `toml:"color_keywords"`
		} `toml:"domestic"`
		Foreign struct {
			PrimaryCodeMarkers   []string `toml:"primary_code_markers"`
			SecondaryCodeMarkers []string `toml:"secondary_code_markers"`
			PrimaryKeywords      []string `toml:"primary_keywords"`
			SecondaryKeywords    []string `toml:"secondary_keywords"`
			GenericKeywords      []string `toml:"generic_keywords"`
			WhiteKeyword         string   `toml:"white_keyword"`
			WhiteSuffix          string   `toml:"white_suffix"`
			ColorKeywords        []string `toml:"color_keywords"`
			ColorSuffixes        []string `toml:"color_suffixes"`
			Surcharges           []struct {
				Marker string  `toml:"marker"`
				Factor float64 `toml:"factor"`
			} `toml:"surcharges"`
		} `toml:"foreign"`
	} `toml:"rules"`

	AWG map[string]float64 `toml:"awg"`

	Suppliers map[string]struct {
		Name   string             `toml:"name"`
		Prices map[string]float64 `toml:"prices"`
	} `toml:"suppliers"`

	Domestic map[string]struct {
		Black       *float64 `toml:"black"`
		Color       *float64 `toml:"color"`
		Transparent *float64 `toml:"transparent"`
		Thin        *float64 `toml:"thin"`
		NoPrint     *float64 `toml:"no_print"`
	} `toml:"domestic"`
}

// DefaultCatalog returns the catalog embedded in the binary
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(defaultCatalogTOML)
}

// LoadCatalog reads a catalog from path. An empty path yields the embedded
// default catalog.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	return ParseCatalog(data)
}

// ParseCatalog decodes a TOML catalog and normalizes every spec key
func ParseCatalog(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	cat := &Catalog{
		Foreign:       make(map[Supplier]map[string]decimal.Decimal),
		SupplierNames: make(map[Supplier]string),
		Domestic:      make(map[string]map[ColorClass]decimal.Decimal),
		AWG:           make(map[string]decimal.Decimal),
	}

	r := file.Rules
	cat.Rules = RuleSet{
		ExcludedPrefixes: upperAll(r.ExcludedPrefixes),
		PVC: PVCRules{
			CodePrefixes:  upperAll(r.PVC.CodePrefixes),
			NameKeywords:  r.PVC.NameKeywords,
			Series:        upperAll(r.PVC.Series),
			DefaultSeries: strings.ToUpper(r.PVC.DefaultSeries),
		},
		Domestic: DomesticRules{
			ThinSuffix:          strings.ToUpper(r.Domestic.ThinSuffix),
			TransparentSuffix:   strings.ToUpper(r.Domestic.TransparentSuffix),
			ColorSuffixes:       upperAll(r.Domestic.ColorSuffixes),
			ThinKeywords:        r.Domestic.ThinKeywords,
			TransparentKeywords: r.Domestic.TransparentKeywords,
			ColorKeywords:       r.Domestic.ColorKeywords,
		},
		Foreign: ForeignRules{
			PrimaryCodeMarkers:   upperAll(r.Foreign.PrimaryCodeMarkers),
			SecondaryCodeMarkers: upperAll(r.Foreign.SecondaryCodeMarkers),
			PrimaryKeywords:      r.Foreign.PrimaryKeywords,
			SecondaryKeywords:    r.Foreign.SecondaryKeywords,
			GenericKeywords:      r.Foreign.GenericKeywords,
			WhiteKeyword:         r.Foreign.WhiteKeyword,
			WhiteSuffix:          strings.ToUpper(r.Foreign.WhiteSuffix),
			ColorKeywords:        r.Foreign.ColorKeywords,
			ColorSuffixes:        upperAll(r.Foreign.ColorSuffixes),
		},
	}
	for _, s := range r.Foreign.Surcharges {
		if s.Marker == "" || s.Factor <= 0 {
			return nil, fmt.Errorf("invalid surcharge %q: factor must be positive", s.Marker)
		}
		cat.Rules.Foreign.Surcharges = append(cat.Rules.Foreign.Surcharges, Surcharge{
			Marker: strings.ToUpper(s.Marker),
			Factor: decimal.NewFromFloat(s.Factor),
		})
	}

	if cat.Rules.PVC.DefaultSeries == "" && len(cat.Rules.PVC.Series) > 0 {
		cat.Rules.PVC.DefaultSeries = cat.Rules.PVC.Series[0]
	}

	for gauge, mm := range file.AWG {
		cat.AWG[strings.TrimSpace(gauge)] = decimal.NewFromFloat(mm)
	}

	for id, sup := range file.Suppliers {
		supplier := Supplier(strings.ToLower(id))
		if supplier != SupplierPrimary && supplier != SupplierSecondary {
			return nil, fmt.Errorf("unknown supplier %q", id)
		}
		cat.SupplierNames[supplier] = sup.Name
		prices := make(map[string]decimal.Decimal, len(sup.Prices))
		for key, price := range sup.Prices {
			norm, err := NormalizeSpecKey(key)
			if err != nil {
				return nil, fmt.Errorf("supplier %s: %w", id, err)
			}
			prices[norm] = decimal.NewFromFloat(price)
		}
		cat.Foreign[supplier] = prices
	}

	for key, row := range file.Domestic {
		norm, err := NormalizeSpecKey(key)
		if err != nil {
			return nil, fmt.Errorf("domestic table: %w", err)
		}
		cells := make(map[ColorClass]decimal.Decimal)
		setCell(cells, ColorBlack, row.Black)
		setCell(cells, ColorColor, row.Color)
		setCell(cells, ColorTransparent, row.Transparent)
		setCell(cells, ColorThin, row.Thin)
		setCell(cells, ColorNoPrint, row.NoPrint)
		cat.Domestic[norm] = cells
	}

	return cat, nil
}

// SupplierName returns the display name of a supplier, falling back to its id
func (c *Catalog) SupplierName(s Supplier) string {
	if name, ok := c.SupplierNames[s]; ok && name != "" {
		return name
	}
	return string(s)
}

// GeometrySeries upper-cases series and checks it is one of the PVC series
// the catalog prices from the geometry table
func (c *Catalog) GeometrySeries(series string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(series))
	for _, known := range c.Rules.PVC.Series {
		if s == known {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: unknown series %q (want one of %s)",
		ErrInvalidInput, series, strings.Join(c.Rules.PVC.Series, ", "))
}

// DomesticSpecs lists the domestic table keys in ascending numeric order
func (c *Catalog) DomesticSpecs() []string {
	keys := make([]string, 0, len(c.Domestic))
	for k := range c.Domestic {
		keys = append(keys, k)
	}
	sortSpecKeys(keys)
	return keys
}

// NormalizeSpecKey canonicalizes a numeric table key so that "2", "2.0" and
// "2.00" all address the same row.
func NormalizeSpecKey(key string) (string, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(key))
	if err != nil {
		return "", fmt.Errorf("invalid spec key %q: %w", key, err)
	}
	return d.String(), nil
}

// specCandidates lists the keys tried, in order, when looking a spec up in a
// catalog table. Fixed-point forms are only tried when they do not round.
func specCandidates(spec decimal.Decimal) []string {
	out := []string{spec.String()}
	seen := map[string]bool{out[0]: true}
	for _, places := range []int32{1, 2} {
		if !spec.Equal(spec.Round(places)) {
			continue
		}
		c := spec.StringFixed(places)
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

func sortSpecKeys(keys []string) {
	sort.SliceStable(keys, func(i, j int) bool {
		a, errA := decimal.NewFromString(keys[i])
		b, errB := decimal.NewFromString(keys[j])
		if errA != nil || errB != nil {
			return keys[i] < keys[j]
		}
		return a.LessThan(b)
	})
}

func setCell(cells map[ColorClass]decimal.Decimal, class ColorClass, v *float64) {
	if v == nil {
		return
	}
	cells[class] = decimal.NewFromFloat(*v)
}

func upperAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToUpper(strings.TrimSpace(s))
	}
	return out
}
