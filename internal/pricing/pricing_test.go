package pricing

import (
	"math"
	"reflect"
	"testing"

	"github.com/valdirnerin/nerin-cotizador/internal/catalog"
)

func nearlyEqual(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("%s = %v, want %v", name, got, want)
	}
}

func testPack() catalog.Pack {
	return catalog.Pack{
		ID:                 1,
		Slug:               "pack-basico",
		Name:               "Pack Básico",
		BaseLaborPrice:     2500000,
		IncludedUnits:      60,
		ReferenceRoomCount: 2,
	}
}

func testItems() []catalog.Item {
	return []catalog.Item{
		{ID: 10, Name: "Boca adicional", Unit: "unidad", UnitLaborPrice: 15000},
		{ID: 11, Name: "Tendido de cable", Unit: "metro", UnitLaborPrice: 4500},
	}
}

func TestCalculateTotalIsPackPlusLineSubtotals(t *testing.T) {
	result := Calculate(Input{
		Pack:  testPack(),
		Items: testItems(),
		Summary: Summary{
			Mode:   ModeExpress,
			PackID: 1,
			Adicionales: []Selection{
				{ID: 10, Cantidad: 3},
				{ID: 11, Cantidad: 10},
			},
		},
	})

	nearlyEqual(t, "subtotalPack", result.SubtotalPack, 2500000)
	if len(result.Adicionales) != 2 {
		t.Fatalf("expected 2 resolved lines, got %d", len(result.Adicionales))
	}
	nearlyEqual(t, "line 0 subtotal", result.Adicionales[0].Subtotal, 45000)
	nearlyEqual(t, "line 1 subtotal", result.Adicionales[1].Subtotal, 45000)

	sum := result.SubtotalPack
	for _, line := range result.Adicionales {
		sum += line.Subtotal
	}
	nearlyEqual(t, "totalManoObra", result.TotalManoObra, sum)
}

func TestCalculateEmptySelectionsYieldPackOnlyTotal(t *testing.T) {
	result := Calculate(Input{Pack: testPack(), Items: testItems(), Summary: Summary{Mode: ModeExpress}})

	if len(result.Adicionales) != 0 {
		t.Fatalf("expected no lines, got %+v", result.Adicionales)
	}
	nearlyEqual(t, "totalManoObra", result.TotalManoObra, 2500000)
}

func TestCalculateDropsStaleIDsSilently(t *testing.T) {
	withStale := Calculate(Input{
		Pack:  testPack(),
		Items: testItems(),
		Summary: Summary{
			Mode: ModeExpress,
			Adicionales: []Selection{
				{ID: 10, Cantidad: 3},
				{ID: 999, Cantidad: 5},
			},
		},
	})
	without := Calculate(Input{
		Pack:    testPack(),
		Items:   testItems(),
		Summary: Summary{Mode: ModeExpress, Adicionales: []Selection{{ID: 10, Cantidad: 3}}},
	})

	if len(withStale.Adicionales) != 1 {
		t.Fatalf("expected stale line to be dropped, got %+v", withStale.Adicionales)
	}
	nearlyEqual(t, "totalManoObra", withStale.TotalManoObra, without.TotalManoObra)
}

func TestCalculateResolvesProfessionalItems(t *testing.T) {
	result := Calculate(Input{
		Pack: testPack(),
		ProfessionalItems: []catalog.ProfessionalItem{
			{ID: 20, Name: "Tablero seccional", Unit: "unidad", UnitLaborPrice: 90000, SuggestedQty: 1},
		},
		Summary: Summary{
			Mode:              ModeProfessional,
			ProfessionalItems: []Selection{{ID: 20, Cantidad: 2}},
		},
	})

	if len(result.Adicionales) != 1 {
		t.Fatalf("expected 1 resolved professional line, got %d", len(result.Adicionales))
	}
	nearlyEqual(t, "professional subtotal", result.Adicionales[0].Subtotal, 180000)
	nearlyEqual(t, "totalManoObra", result.TotalManoObra, 2680000)
}

func TestCalculateUpsellThreshold(t *testing.T) {
	over := Calculate(Input{Pack: testPack(), Summary: Summary{Mode: ModeExpress, BocasExtra: 40}})
	under := Calculate(Input{Pack: testPack(), Summary: Summary{Mode: ModeExpress, BocasExtra: 20}})
	exact := Calculate(Input{Pack: testPack(), Summary: Summary{Mode: ModeExpress, BocasExtra: 30}})

	if over.Recomendado == nil {
		t.Fatalf("expected recommendation for 40 extra bocas over 60 included")
	}
	if over.Recomendado.Nombre != "Pack Básico (considerar pack superior)" {
		t.Fatalf("unexpected recommendation name: %q", over.Recomendado.Nombre)
	}
	if under.Recomendado != nil {
		t.Fatalf("expected no recommendation for 20 extra bocas, got %+v", under.Recomendado)
	}
	// Threshold is strict: exactly half the included units does not trigger.
	if exact.Recomendado != nil {
		t.Fatalf("expected no recommendation at the exact threshold, got %+v", exact.Recomendado)
	}

	nearlyEqual(t, "over total", over.TotalManoObra, under.TotalManoObra)
}

func TestCalculateSurveyRequirementByMode(t *testing.T) {
	cases := []struct {
		mode Mode
		want bool
	}{
		{ModeExpress, false},
		{ModeAssisted, true},
		{ModeProfessional, true},
	}
	for _, tc := range cases {
		result := Calculate(Input{
			Pack: testPack(),
			Summary: Summary{
				Mode:        tc.mode,
				BocasExtra:  100,
				Ambientes:   4,
				Adicionales: nil,
			},
		})
		if result.RequiresSurvey != tc.want {
			t.Fatalf("requiresSurvey for %s = %v, want %v", tc.mode, result.RequiresSurvey, tc.want)
		}
	}
}

func TestCalculateMultipliersCarriedButNotAppliedByDefault(t *testing.T) {
	base := Summary{
		Mode:                 ModeExpress,
		UrgencyMultiplier:    1.2,
		DifficultyMultiplier: 1.5,
		Adicionales:          []Selection{{ID: 10, Cantidad: 2}},
	}

	asIs := Calculate(Input{Pack: testPack(), Items: testItems(), Summary: base})
	corrected := Calculate(Input{Pack: testPack(), Items: testItems(), Summary: base, ApplyMultipliers: true})

	nearlyEqual(t, "as-is total", asIs.TotalManoObra, 2530000)
	nearlyEqual(t, "corrected total", corrected.TotalManoObra, 2530000*1.2*1.5)
}

func TestCalculateApplyMultipliersTreatsZeroAsNeutral(t *testing.T) {
	result := Calculate(Input{
		Pack:             testPack(),
		Summary:          Summary{Mode: ModeExpress},
		ApplyMultipliers: true,
	})

	nearlyEqual(t, "totalManoObra", result.TotalManoObra, 2500000)
}

func TestCalculateIsDeterministic(t *testing.T) {
	in := Input{
		Pack:  testPack(),
		Items: testItems(),
		Summary: Summary{
			Mode:        ModeAssisted,
			Ambientes:   3,
			BocasExtra:  40,
			Adicionales: []Selection{{ID: 10, Cantidad: 3}, {ID: 11, Cantidad: 7}},
		},
	}

	first := Calculate(in)
	second := Calculate(in)

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("identical inputs produced different outputs:\n%+v\n%+v", first, second)
	}
}

func TestCheckCompatibilityRequiresPack(t *testing.T) {
	item := catalog.Item{
		ID:    30,
		Name:  "Domótica base",
		Rules: []catalog.Rule{{Kind: catalog.RuleRequiresPack, PackID: 2}},
	}

	warning := CheckCompatibility(testPack(), []catalog.Item{item})
	if warning == "" {
		t.Fatalf("expected warning when item requires a different pack")
	}

	matching := catalog.Pack{ID: 2, Name: "Pack Completo"}
	if warning := CheckCompatibility(matching, []catalog.Item{item}); warning != "" {
		t.Fatalf("expected no warning for matching pack, got %q", warning)
	}
}

func TestCheckCompatibilityExcludesItem(t *testing.T) {
	a := catalog.Item{
		ID:    31,
		Name:  "Cableado embutido",
		Rules: []catalog.Rule{{Kind: catalog.RuleExcludesItem, ItemID: 32}},
	}
	b := catalog.Item{ID: 32, Name: "Cableado exterior"}

	if warning := CheckCompatibility(testPack(), []catalog.Item{a, b}); warning == "" {
		t.Fatalf("expected warning for mutually exclusive items")
	}
	if warning := CheckCompatibility(testPack(), []catalog.Item{a}); warning != "" {
		t.Fatalf("expected no warning without the excluded item, got %q", warning)
	}
}

func TestCalculateSetsWarningOnIncompatibleSelection(t *testing.T) {
	items := []catalog.Item{
		{ID: 30, Name: "Domótica base", UnitLaborPrice: 50000, Rules: []catalog.Rule{{Kind: catalog.RuleRequiresPack, PackID: 2}}},
	}

	result := Calculate(Input{
		Pack:    testPack(),
		Items:   items,
		Summary: Summary{Mode: ModeExpress, Adicionales: []Selection{{ID: 30, Cantidad: 1}}},
	})

	if result.Warning == "" {
		t.Fatalf("expected compatibility warning on totals")
	}
	// Warning is soft: the line still prices normally.
	nearlyEqual(t, "totalManoObra", result.TotalManoObra, 2550000)
}

func TestNormalizeSelectionsDropsNonPositiveQuantities(t *testing.T) {
	got := NormalizeSelections([]Selection{
		{ID: 1, Cantidad: 2},
		{ID: 2, Cantidad: 0},
		{ID: 3, Cantidad: -1},
		{ID: 4, Cantidad: 1},
	})

	want := []Selection{{ID: 1, Cantidad: 2}, {ID: 4, Cantidad: 1}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("NormalizeSelections = %+v, want %+v", got, want)
	}
}
