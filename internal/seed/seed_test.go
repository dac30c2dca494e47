package seed

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/valdirnerin/nerin-cotizador/internal/db"
	"github.com/valdirnerin/nerin-cotizador/internal/migrations"
)

func TestRunIsIdempotent(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "seed-test.db")
	database, err := db.Open(dbPath)
	if err != nil {
		t.Fatalf("open sqlite database: %v", err)
	}
	defer database.Close()

	if err := migrations.Up(database, "../../migrations"); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	expectedInserts := len(defaultPacks) + len(defaultItems) + len(defaultProfessionalItems) + len(defaultServices)

	for i := 0; i < 10; i++ {
		stats, err := Run(database)
		if err != nil {
			t.Fatalf("run seed (iteration=%d): %v", i, err)
		}
		if i == 0 {
			if stats.Inserts != expectedInserts {
				t.Fatalf("expected %d inserts in first run, got %d", expectedInserts, stats.Inserts)
			}
			continue
		}
		if stats.Inserts != 0 {
			t.Fatalf("expected 0 inserts in iteration %d, got %d", i, stats.Inserts)
		}
	}

	assertCount(t, database, `SELECT COUNT(*) FROM packs`, len(defaultPacks))
	assertCount(t, database, `SELECT COUNT(*) FROM catalog_items`, len(defaultItems))
	assertCount(t, database, `SELECT COUNT(*) FROM professional_items`, len(defaultProfessionalItems))
	assertCount(t, database, `SELECT COUNT(*) FROM services`, len(defaultServices))
}

func TestRunBindsPackAffinityAndRules(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "seed-rules-test.db")
	database, err := db.Open(dbPath)
	if err != nil {
		t.Fatalf("open sqlite database: %v", err)
	}
	defer database.Close()

	if err := migrations.Up(database, "../../migrations"); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	if _, err := Run(database); err != nil {
		t.Fatalf("run seed: %v", err)
	}

	var premiumID int64
	if err := database.QueryRow(`SELECT id FROM packs WHERE slug = 'pack-premium'`).Scan(&premiumID); err != nil {
		t.Fatalf("query premium pack: %v", err)
	}

	var packID sql.NullInt64
	var rulesJSON sql.NullString
	err = database.QueryRow(`
		SELECT pack_id, rules_json FROM catalog_items WHERE name = 'Domótica base'
	`).Scan(&packID, &rulesJSON)
	if err != nil {
		t.Fatalf("query seeded item: %v", err)
	}

	if !packID.Valid || packID.Int64 != premiumID {
		t.Fatalf("expected pack affinity %d, got %+v", premiumID, packID)
	}
	if !rulesJSON.Valid || rulesJSON.String == "" {
		t.Fatalf("expected rules_json to be populated")
	}
}

func assertCount(t *testing.T, database *sql.DB, query string, expected int) {
	t.Helper()

	var count int
	if err := database.QueryRow(query).Scan(&count); err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	if count != expected {
		t.Fatalf("expected count %d, got %d", expected, count)
	}
}
