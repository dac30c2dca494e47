package catalog

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/valdirnerin/nerin-cotizador/internal/db"
	"github.com/valdirnerin/nerin-cotizador/internal/migrations"
)

func newTestRepository(t *testing.T) (*Repository, *sql.DB) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "catalog-test.db")
	database, err := db.Open(dbPath)
	if err != nil {
		t.Fatalf("open sqlite database: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })

	if err := migrations.Up(database, "../../migrations"); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	return NewRepository(database), database
}

func TestPackByIDAndBySlug(t *testing.T) {
	repo, database := newTestRepository(t)

	_, err := database.Exec(`
		INSERT INTO packs (id, slug, name, description, base_labor_price, included_units, reference_room_count)
		VALUES (1, 'pack-basico', 'Pack Básico', 'Departamento chico', 2500000, 60, 2)
	`)
	if err != nil {
		t.Fatalf("seed pack: %v", err)
	}

	byID, err := repo.PackByID(context.Background(), 1)
	if err != nil {
		t.Fatalf("PackByID returned error: %v", err)
	}
	if byID.Slug != "pack-basico" || byID.BaseLaborPrice != 2500000 || byID.IncludedUnits != 60 {
		t.Fatalf("unexpected pack: %+v", byID)
	}

	bySlug, err := repo.PackBySlug(context.Background(), "pack-basico")
	if err != nil {
		t.Fatalf("PackBySlug returned error: %v", err)
	}
	if bySlug.ID != byID.ID {
		t.Fatalf("PackBySlug returned a different pack: %+v", bySlug)
	}
}

func TestPackByIDNotFound(t *testing.T) {
	repo, _ := newTestRepository(t)

	_, err := repo.PackByID(context.Background(), 404)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestItemsByIDsBatchToleratesMissingIDs(t *testing.T) {
	repo, database := newTestRepository(t)

	_, err := database.Exec(`
		INSERT INTO catalog_items (id, name, unit, unit_labor_price, active) VALUES
			(10, 'Boca adicional', 'unidad', 15000, TRUE),
			(11, 'Tendido de cable', 'metro', 4500, TRUE),
			(12, 'Item dado de baja', 'unidad', 1000, FALSE)
	`)
	if err != nil {
		t.Fatalf("seed catalog items: %v", err)
	}

	items, err := repo.ItemsByIDs(context.Background(), []int64{10, 11, 12, 999})
	if err != nil {
		t.Fatalf("ItemsByIDs returned error: %v", err)
	}

	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if _, ok := items[999]; ok {
		t.Fatalf("missing id must be absent from the result")
	}
	if _, ok := items[12]; ok {
		t.Fatalf("inactive item must be absent from the result")
	}
	if items[10].UnitLaborPrice != 15000 {
		t.Fatalf("unexpected item: %+v", items[10])
	}
}

func TestItemsByIDsEmptyInput(t *testing.T) {
	repo, _ := newTestRepository(t)

	items, err := repo.ItemsByIDs(context.Background(), nil)
	if err != nil {
		t.Fatalf("ItemsByIDs returned error: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected empty result, got %+v", items)
	}
}

func TestItemRulesRoundTrip(t *testing.T) {
	repo, database := newTestRepository(t)

	rules, err := EncodeRules([]Rule{
		{Kind: RuleRequiresPack, PackID: 3},
		{Kind: RuleExcludesItem, ItemID: 11},
	})
	if err != nil {
		t.Fatalf("EncodeRules returned error: %v", err)
	}

	_, err = database.Exec(`
		INSERT INTO catalog_items (id, name, unit, unit_labor_price, rules_json, active)
		VALUES (30, 'Domótica base', 'unidad', 180000, ?, TRUE)
	`, rules)
	if err != nil {
		t.Fatalf("seed catalog item: %v", err)
	}

	items, err := repo.ItemsByIDs(context.Background(), []int64{30})
	if err != nil {
		t.Fatalf("ItemsByIDs returned error: %v", err)
	}

	item := items[30]
	if len(item.Rules) != 2 {
		t.Fatalf("expected 2 decoded rules, got %+v", item.Rules)
	}
	if item.Rules[0].Kind != RuleRequiresPack || item.Rules[0].PackID != 3 {
		t.Fatalf("unexpected first rule: %+v", item.Rules[0])
	}
	if item.Rules[1].Kind != RuleExcludesItem || item.Rules[1].ItemID != 11 {
		t.Fatalf("unexpected second rule: %+v", item.Rules[1])
	}
}

func TestListProfessionalItemsCarriesSuggestedQty(t *testing.T) {
	repo, database := newTestRepository(t)

	_, err := database.Exec(`
		INSERT INTO professional_items (id, name, unit, unit_labor_price, suggested_qty, active) VALUES
			(20, 'Pendiente de obra nueva', 'boca', 9000, 40, TRUE),
			(21, 'Item retirado', 'unidad', 100, 1, FALSE)
	`)
	if err != nil {
		t.Fatalf("seed professional items: %v", err)
	}

	items, err := repo.ListProfessionalItems(context.Background())
	if err != nil {
		t.Fatalf("ListProfessionalItems returned error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 active item, got %d", len(items))
	}
	if items[0].SuggestedQty != 40 {
		t.Fatalf("unexpected suggested qty: %+v", items[0])
	}
}

func TestListServicesGroupsByPath(t *testing.T) {
	repo, database := newTestRepository(t)

	_, err := database.Exec(`
		INSERT INTO services (id, name, path, unit_labor_price) VALUES
			(1, 'Instalación completa', 'SURVEY', 0),
			(2, 'Reparación puntual', 'EXPRESS', 45000)
	`)
	if err != nil {
		t.Fatalf("seed services: %v", err)
	}

	services, err := repo.ListServices(context.Background())
	if err != nil {
		t.Fatalf("ListServices returned error: %v", err)
	}
	if len(services) != 2 {
		t.Fatalf("expected 2 services, got %d", len(services))
	}
	if services[0].Path != PathExpress {
		t.Fatalf("expected EXPRESS services first, got %+v", services)
	}
}
