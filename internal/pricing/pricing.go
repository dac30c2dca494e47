// Package pricing computes quote totals from a selected pack, the addable
// catalog and a wizard summary. Everything here is pure: no I/O, no clock,
// no hidden state.
package pricing

import (
	"fmt"

	"github.com/valdirnerin/nerin-cotizador/internal/catalog"
	"github.com/valdirnerin/nerin-cotizador/internal/zones"
)

// Mode is the service mode selected in the wizard.
type Mode string

const (
	ModeExpress      Mode = "EXPRESS"
	ModeAssisted     Mode = "ASSISTED"
	ModeProfessional Mode = "PROFESSIONAL"
)

// Suffix appended to the pack name when suggesting a step up to a larger
// bundle.
const upsellSuffix = " (considerar pack superior)"

// Selection is one requested catalog line: an item id and a quantity.
type Selection struct {
	ID       int64
	Cantidad int
}

// Summary is the single input collected by the wizard. Quantities must be
// positive; zero-quantity selections are expected to have been normalized
// out before calculation (see NormalizeSelections).
type Summary struct {
	Mode                 Mode
	ServiceID            int64
	ServiceUnits         int
	ZoneTier             zones.Tier
	UrgencyMultiplier    float64
	DifficultyMultiplier float64
	PackID               int64
	Ambientes            int
	BocasExtra           int
	Adicionales          []Selection
	ProfessionalItems    []Selection
	Comentarios          string
}

// Line is one resolved, priced line of the quote.
type Line struct {
	ID             int64
	Nombre         string
	Cantidad       int
	PrecioUnitario float64
	Subtotal       float64
}

// Recommendation signals the UI to suggest a larger pack. Display hint only;
// it never changes the total.
type Recommendation struct {
	PackID int64
	Nombre string
}

// Totals is the derived, non-persistent result of a calculation.
type Totals struct {
	SubtotalPack   float64
	Adicionales    []Line
	TotalManoObra  float64
	Recomendado    *Recommendation
	Warning        string
	RequiresSurvey bool
}

// Input groups everything Calculate needs. Items and ProfessionalItems are
// the catalogs the summary selections are resolved against.
type Input struct {
	Pack              catalog.Pack
	Items             []catalog.Item
	ProfessionalItems []catalog.ProfessionalItem
	Summary           Summary

	// ApplyMultipliers enables the corrected behavior where urgency and
	// difficulty scale the total. Off by default: the shipped behavior
	// carries the multipliers for presentation only.
	ApplyMultipliers bool
}

// Calculate produces the cost breakdown for a summary. Selections whose id
// is missing from the catalogs are dropped silently so a stale reference
// never fails the whole calculation.
func Calculate(in Input) Totals {
	s := in.Summary

	totals := Totals{
		SubtotalPack:   in.Pack.BaseLaborPrice,
		Adicionales:    make([]Line, 0, len(s.Adicionales)+len(s.ProfessionalItems)),
		RequiresSurvey: s.Mode != ModeExpress,
	}

	itemsByID := make(map[int64]catalog.Item, len(in.Items))
	for _, item := range in.Items {
		itemsByID[item.ID] = item
	}
	professionalByID := make(map[int64]catalog.ProfessionalItem, len(in.ProfessionalItems))
	for _, item := range in.ProfessionalItems {
		professionalByID[item.ID] = item
	}

	selected := make([]catalog.Item, 0, len(s.Adicionales))

	totalAdicionales := 0.0
	for _, sel := range s.Adicionales {
		item, ok := itemsByID[sel.ID]
		if !ok {
			continue
		}
		selected = append(selected, item)

		subtotal := item.UnitLaborPrice * float64(sel.Cantidad)
		totals.Adicionales = append(totals.Adicionales, Line{
			ID:             item.ID,
			Nombre:         item.Name,
			Cantidad:       sel.Cantidad,
			PrecioUnitario: item.UnitLaborPrice,
			Subtotal:       subtotal,
		})
		totalAdicionales += subtotal
	}

	for _, sel := range s.ProfessionalItems {
		item, ok := professionalByID[sel.ID]
		if !ok {
			continue
		}

		subtotal := item.UnitLaborPrice * float64(sel.Cantidad)
		totals.Adicionales = append(totals.Adicionales, Line{
			ID:             item.ID,
			Nombre:         item.Name,
			Cantidad:       sel.Cantidad,
			PrecioUnitario: item.UnitLaborPrice,
			Subtotal:       subtotal,
		})
		totalAdicionales += subtotal
	}

	totals.TotalManoObra = totals.SubtotalPack + totalAdicionales

	if float64(s.BocasExtra) > float64(in.Pack.IncludedUnits)*0.5 {
		totals.Recomendado = &Recommendation{
			PackID: in.Pack.ID,
			Nombre: in.Pack.Name + upsellSuffix,
		}
	}

	totals.Warning = CheckCompatibility(in.Pack, selected)

	if in.ApplyMultipliers {
		totals.TotalManoObra *= multiplierOrOne(s.UrgencyMultiplier) * multiplierOrOne(s.DifficultyMultiplier)
	}

	return totals
}

// CheckCompatibility evaluates the tagged rules of the selected items
// against the chosen pack and each other. It returns a warning message for
// the first violation found, or "" when the selection is consistent.
// Violations are soft: they never block the quote.
func CheckCompatibility(pack catalog.Pack, selected []catalog.Item) string {
	selectedIDs := make(map[int64]bool, len(selected))
	for _, item := range selected {
		selectedIDs[item.ID] = true
	}

	for _, item := range selected {
		for _, rule := range item.Rules {
			switch rule.Kind {
			case catalog.RuleRequiresPack:
				if rule.PackID != pack.ID {
					return fmt.Sprintf("«%s» está pensado para otro pack; revisá la combinación elegida.", item.Name)
				}
			case catalog.RuleExcludesItem:
				if selectedIDs[rule.ItemID] {
					return fmt.Sprintf("«%s» no se combina con otro de los adicionales elegidos.", item.Name)
				}
			}
		}
	}

	return ""
}

// NormalizeSelections drops selections with a non-positive quantity. A
// cantidad <= 0 means "not selected" and must never reach the calculator or
// the persisted summary.
func NormalizeSelections(selections []Selection) []Selection {
	normalized := make([]Selection, 0, len(selections))
	for _, sel := range selections {
		if sel.Cantidad <= 0 {
			continue
		}
		normalized = append(normalized, sel)
	}
	return normalized
}

func multiplierOrOne(m float64) float64 {
	if m <= 0 {
		return 1
	}
	return m
}
