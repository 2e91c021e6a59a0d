package sku

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

const (
	// DefaultPackPrefix marks a SKU as a pack of N identical units
	DefaultPackPrefix = "PK-"
	// DefaultComboPrefix marks a SKU as a combination of distinct units
	DefaultComboPrefix = "CB-"
)

// Component is one purchasable unit produced by expanding a SKU
type Component struct {
	SKU      string
	Quantity int64
}

// Expansion is the result of expanding a SKU into purchasable components
type Expansion struct {
	SKU        string // canonical input SKU
	Kind       Kind
	Components []Component
	// Degraded is set when a classified SKU had no composite entry and the
	// expander fell back to passthrough
	Degraded bool
}

// Expander turns composite SKUs into their purchasable components.
// It is stateless and safe for concurrent use; the composite map is read
// through the injected CompositeSource on every call.
type Expander struct {
	source      CompositeSource
	packPrefix  string
	comboPrefix string
	logger      *zap.Logger
}

// ExpanderOption configures an Expander
type ExpanderOption func(*Expander)

// WithPackPrefix overrides the pack SKU prefix
func WithPackPrefix(prefix string) ExpanderOption {
	return func(e *Expander) {
		if prefix != "" {
			e.packPrefix = Canonical(prefix)
		}
	}
}

// WithComboPrefix overrides the combo SKU prefix
func WithComboPrefix(prefix string) ExpanderOption {
	return func(e *Expander) {
		if prefix != "" {
			e.comboPrefix = Canonical(prefix)
		}
	}
}

// NewExpander creates a new Expander backed by the given composite source
func NewExpander(source CompositeSource, logger *zap.Logger, opts ...ExpanderOption) *Expander {
	e := &Expander{
		source:      source,
		packPrefix:  DefaultPackPrefix,
		comboPrefix: DefaultComboPrefix,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Classify determines the kind of a SKU from its reserved prefix alone.
// A prefixed SKU may still expand as a single if the composite map has no
// entry for it.
func (e *Expander) Classify(rawSKU string) Kind {
	s := Canonical(rawSKU)
	switch {
	case strings.HasPrefix(s, e.packPrefix):
		return KindPack
	case strings.HasPrefix(s, e.comboPrefix):
		return KindCombo
	default:
		return KindSingle
	}
}

// Expand resolves a SKU into purchasable components with quantities applied.
// Pack SKUs multiply: each component receives quantity*packSize. Combo SKUs
// fan out: each member receives exactly quantity. Expansion never fails; a
// lookup miss or source error degrades to passthrough so downstream
// accounting still produces a ledger entry.
func (e *Expander) Expand(ctx context.Context, rawSKU string, quantity int64) Expansion {
	s := Canonical(rawSKU)
	kind := e.Classify(s)

	passthrough := Expansion{
		SKU:        s,
		Kind:       KindSingle,
		Components: []Component{{SKU: s, Quantity: quantity}},
	}
	if kind == KindSingle {
		return passthrough
	}

	m, err := e.source.GetCompositeMap(ctx)
	if err != nil {
		e.logger.Warn("composite map unavailable, expanding as single",
			zap.String("sku", s),
			zap.Error(err),
		)
		passthrough.Kind = kind
		passthrough.Degraded = true
		return passthrough
	}

	switch kind {
	case KindPack:
		def, ok := m.Packs[s]
		if !ok || def.PackSize <= 0 {
			e.logger.Warn("pack SKU missing from composite map, expanding as single",
				zap.String("sku", s),
			)
			passthrough.Kind = kind
			passthrough.Degraded = true
			return passthrough
		}
		base := strings.TrimPrefix(s, e.packPrefix)
		return Expansion{
			SKU:  s,
			Kind: KindPack,
			Components: []Component{
				{SKU: Canonical(base), Quantity: quantity * def.PackSize},
			},
		}

	case KindCombo:
		def, ok := m.Combos[s]
		if !ok || len(def.Components) == 0 {
			e.logger.Warn("combo SKU missing from composite map, expanding as single",
				zap.String("sku", s),
			)
			passthrough.Kind = kind
			passthrough.Degraded = true
			return passthrough
		}
		components := make([]Component, 0, len(def.Components))
		for _, member := range def.Components {
			components = append(components, Component{
				SKU:      Canonical(member),
				Quantity: quantity,
			})
		}
		return Expansion{SKU: s, Kind: KindCombo, Components: components}
	}

	return passthrough
}
