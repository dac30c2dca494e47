// Package catalog holds the priced reference data the quote engine consumes:
// packs, addable items, professional items and quote services. The engine
// only reads this data; it is maintained through the admin surface.
package catalog

import (
	"encoding/json"
	"fmt"
)

// Fulfillment paths for quote services. EXPRESS is the direct-booking path
// with fixed catalog pricing; SURVEY paths require an in-person visit before
// a firm price.
const (
	PathExpress = "EXPRESS"
	PathSurvey  = "SURVEY"
)

// Compatibility rule kinds.
const (
	RuleRequiresPack = "requiresPack"
	RuleExcludesItem = "excludesItem"
)

// Pack is a fixed-scope labor-only base offering priced as a lump sum.
// Immutable once referenced by a quote.
type Pack struct {
	ID                 int64
	Slug               string
	Name               string
	Description        string
	BaseLaborPrice     float64
	IncludedUnits      int
	ReferenceRoomCount int
}

// Rule constrains which selections an item may be combined with. The set is
// closed: either the item requires a specific pack, or it excludes another
// item.
type Rule struct {
	Kind   string `json:"kind"`
	PackID int64  `json:"packId,omitempty"`
	ItemID int64  `json:"itemId,omitempty"`
}

// Item is an addable, quantity-priced line layered on top of a pack.
type Item struct {
	ID             int64
	Name           string
	Description    string
	Unit           string
	UnitLaborPrice float64
	PackID         *int64
	Rules          []Rule
}

// ProfessionalItem plays the same role as Item; SuggestedQty is only used to
// pre-populate a request in professional mode.
type ProfessionalItem struct {
	ID             int64
	Name           string
	Description    string
	Unit           string
	UnitLaborPrice float64
	SuggestedQty   int
}

// Service is a quote service offered through the wizard, grouped by
// fulfillment path.
type Service struct {
	ID             int64
	Name           string
	Description    string
	Path           string
	UnitLaborPrice float64
}

func decodeRules(raw string) ([]Rule, error) {
	if raw == "" {
		return nil, nil
	}
	var rules []Rule
	if err := json.Unmarshal([]byte(raw), &rules); err != nil {
		return nil, fmt.Errorf("decode compatibility rules: %w", err)
	}
	return rules, nil
}

// EncodeRules serializes compatibility rules for storage on the item row.
func EncodeRules(rules []Rule) (string, error) {
	if len(rules) == 0 {
		return "", nil
	}
	data, err := json.Marshal(rules)
	if err != nil {
		return "", fmt.Errorf("encode compatibility rules: %w", err)
	}
	return string(data), nil
}
