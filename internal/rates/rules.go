package rates

import (
	"errors"
	"fmt"

	"MarketSeries/internal/model"
)

// ErrDuplicateRule is returned when two conversion rules share an instrument key.
var ErrDuplicateRule = errors.New("duplicate conversion rule")

// RuleBook is a read-only lookup of conversion rules by instrument key.
// It is safe for concurrent use once built.
type RuleBook struct {
	rules map[string]model.ConversionRule
}

// NewRuleBook indexes rules by instrument key.
func NewRuleBook(rules []model.ConversionRule) (*RuleBook, error) {
	book := &RuleBook{rules: make(map[string]model.ConversionRule, len(rules))}
	for _, r := range rules {
		if r.InstrumentKey == "" {
			return nil, errors.New("conversion rule with empty instrument key")
		}
		if _, ok := book.rules[r.InstrumentKey]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateRule, r.InstrumentKey)
		}
		book.rules[r.InstrumentKey] = r
	}
	return book, nil
}

// Lookup returns the rule for key.
func (b *RuleBook) Lookup(key string) (model.ConversionRule, bool) {
	if b == nil {
		return model.ConversionRule{}, false
	}
	r, ok := b.rules[key]
	return r, ok
}

// Attach copies the rule fields for row's instrument onto a new row.
// Without a rule both fields are absent.
func (b *RuleBook) Attach(row model.JoinedRow) model.JoinedRow {
	r, ok := b.Lookup(row.InstrumentKey)
	if !ok {
		row.ConvertPrice = model.NoBool()
		row.ConversionFactor = model.NoFloat()
		return row
	}
	row.ConvertPrice = r.ConvertPrice
	row.ConversionFactor = r.ConversionFactor
	return row
}
