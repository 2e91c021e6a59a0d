package sku

import "strings"

// Kind classifies a SKU by how it expands into purchasable units
type Kind string

const (
	// KindSingle is a plain SKU that maps to itself
	KindSingle Kind = "SINGLE"
	// KindPack represents N units of one underlying purchasable SKU
	KindPack Kind = "PACK"
	// KindCombo represents one unit each of several distinct purchasable SKUs
	KindCombo Kind = "COMBO"
)

// String returns the string representation of Kind
func (k Kind) String() string {
	return string(k)
}

// Canonical normalizes a SKU for comparison and storage.
// SKUs are case-insensitive; the canonical form is upper-case and trimmed.
func Canonical(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// PackDef describes a pack SKU in the composite map
type PackDef struct {
	PackSize   int64
	VendorHint string
}

// ComboDef describes a combo SKU in the composite map
type ComboDef struct {
	Components []string
	VendorHint string
}

// CompositeMap is a snapshot of the external composite SKU mapping table.
// It is versionless: callers treat it as valid until explicitly invalidated.
type CompositeMap struct {
	Packs  map[string]PackDef
	Combos map[string]ComboDef
}

// NewCompositeMap creates an empty composite map
func NewCompositeMap() *CompositeMap {
	return &CompositeMap{
		Packs:  make(map[string]PackDef),
		Combos: make(map[string]ComboDef),
	}
}

// VendorHintFor returns the vendor hint recorded for the given canonical SKU,
// or the empty string when the SKU has no composite entry
func (m *CompositeMap) VendorHintFor(canonicalSKU string) string {
	if m == nil {
		return ""
	}
	if def, ok := m.Packs[canonicalSKU]; ok {
		return def.VendorHint
	}
	if def, ok := m.Combos[canonicalSKU]; ok {
		return def.VendorHint
	}
	return ""
}
