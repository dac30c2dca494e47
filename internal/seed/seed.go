// Package seed inserts the initial catalog in an idempotent way so a fresh
// deployment can quote from the first request.
package seed

import (
	"database/sql"
	"fmt"

	"github.com/valdirnerin/nerin-cotizador/internal/catalog"
)

// Stats contains seed operation counters.
type Stats struct {
	Inserts int
}

type packRow struct {
	slug               string
	name               string
	description        string
	baseLaborPrice     float64
	includedUnits      int
	referenceRoomCount int
}

type itemRow struct {
	name           string
	description    string
	unit           string
	unitLaborPrice float64
	packSlug       string
	rules          []catalog.Rule
}

type professionalRow struct {
	name           string
	description    string
	unit           string
	unitLaborPrice float64
	suggestedQty   int
}

type serviceRow struct {
	name           string
	description    string
	path           string
	unitLaborPrice float64
}

var defaultPacks = []packRow{
	{"pack-basico", "Pack Básico", "Instalación eléctrica completa para departamento chico.", 2500000, 60, 2},
	{"pack-completo", "Pack Completo", "Instalación eléctrica completa para casa mediana.", 4200000, 110, 4},
	{"pack-premium", "Pack Premium", "Instalación eléctrica integral con tablero ampliado.", 6800000, 180, 6},
}

var defaultItems = []itemRow{
	{"Boca adicional", "Boca de luz o toma extra sobre lo incluido en el pack.", "unidad", 15000, "", nil},
	{"Tendido de cable", "Metro lineal de cableado adicional.", "metro", 4500, "", nil},
	{"Tablero seccional", "Instalación de tablero seccional con térmicas.", "unidad", 95000, "", nil},
	{"Puesta a tierra", "Jabalina y conexionado de puesta a tierra.", "unidad", 120000, "", nil},
	{"Domótica base", "Módulos de automatización para iluminación.", "unidad", 180000, "pack-premium", []catalog.Rule{{Kind: catalog.RuleRequiresPack}}},
}

var defaultProfessionalItems = []professionalRow{
	{"Pendiente de obra nueva", "Caños y cajas amurados en obra gruesa.", "boca", 9000, 40},
	{"Cableado en obra", "Cableado completo sobre cañería existente.", "boca", 7500, 40},
	{"Tablero principal", "Armado y conexionado de tablero principal.", "unidad", 160000, 1},
	{"Certificación DCI", "Certificado de instalación eléctrica apta.", "unidad", 250000, 1},
}

var defaultServices = []serviceRow{
	{"Reparación puntual", "Visita para reparación de un circuito o artefacto.", catalog.PathExpress, 45000},
	{"Instalación de artefacto", "Colocación de luminaria, ventilador o similar.", catalog.PathExpress, 35000},
	{"Instalación completa", "Obra eléctrica completa, requiere relevamiento.", catalog.PathSurvey, 0},
	{"Ampliación de instalación", "Extensión de circuitos existentes.", catalog.PathSurvey, 0},
}

// Run executes the startup seed inside one transaction.
func Run(db *sql.DB) (Stats, error) {
	tx, err := db.Begin()
	if err != nil {
		return Stats{}, fmt.Errorf("begin seed transaction: %w", err)
	}

	stats := Stats{}

	if err := ensurePacks(tx, &stats); err != nil {
		_ = tx.Rollback()
		return Stats{}, err
	}
	if err := ensureItems(tx, &stats); err != nil {
		_ = tx.Rollback()
		return Stats{}, err
	}
	if err := ensureProfessionalItems(tx, &stats); err != nil {
		_ = tx.Rollback()
		return Stats{}, err
	}
	if err := ensureServices(tx, &stats); err != nil {
		_ = tx.Rollback()
		return Stats{}, err
	}

	if err := tx.Commit(); err != nil {
		return Stats{}, fmt.Errorf("commit seed transaction: %w", err)
	}

	return stats, nil
}

func ensurePacks(tx *sql.Tx, stats *Stats) error {
	for _, p := range defaultPacks {
		var exists bool
		if err := tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM packs WHERE slug = ? LIMIT 1)`, p.slug).Scan(&exists); err != nil {
			return fmt.Errorf("check pack %s existence: %w", p.slug, err)
		}
		if exists {
			continue
		}

		if _, err := tx.Exec(`
			INSERT INTO packs (slug, name, description, base_labor_price, included_units, reference_room_count)
			VALUES (?, ?, ?, ?, ?, ?)
		`, p.slug, p.name, p.description, p.baseLaborPrice, p.includedUnits, p.referenceRoomCount); err != nil {
			return fmt.Errorf("insert pack %s: %w", p.slug, err)
		}
		stats.Inserts++
	}
	return nil
}

func ensureItems(tx *sql.Tx, stats *Stats) error {
	for _, item := range defaultItems {
		var exists bool
		if err := tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM catalog_items WHERE name = ? LIMIT 1)`, item.name).Scan(&exists); err != nil {
			return fmt.Errorf("check catalog item %q existence: %w", item.name, err)
		}
		if exists {
			continue
		}

		var packID *int64
		rules := item.rules
		if item.packSlug != "" {
			var id int64
			if err := tx.QueryRow(`SELECT id FROM packs WHERE slug = ?`, item.packSlug).Scan(&id); err != nil {
				return fmt.Errorf("resolve pack slug %s: %w", item.packSlug, err)
			}
			packID = &id
			for i := range rules {
				if rules[i].Kind == catalog.RuleRequiresPack && rules[i].PackID == 0 {
					rules[i].PackID = id
				}
			}
		}

		rulesJSON, err := catalog.EncodeRules(rules)
		if err != nil {
			return fmt.Errorf("catalog item %q: %w", item.name, err)
		}

		if _, err := tx.Exec(`
			INSERT INTO catalog_items (name, description, unit, unit_labor_price, pack_id, rules_json, active)
			VALUES (?, ?, ?, ?, ?, ?, TRUE)
		`, item.name, item.description, item.unit, item.unitLaborPrice, packID, nullableString(rulesJSON)); err != nil {
			return fmt.Errorf("insert catalog item %q: %w", item.name, err)
		}
		stats.Inserts++
	}
	return nil
}

func ensureProfessionalItems(tx *sql.Tx, stats *Stats) error {
	for _, item := range defaultProfessionalItems {
		var exists bool
		if err := tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM professional_items WHERE name = ? LIMIT 1)`, item.name).Scan(&exists); err != nil {
			return fmt.Errorf("check professional item %q existence: %w", item.name, err)
		}
		if exists {
			continue
		}

		if _, err := tx.Exec(`
			INSERT INTO professional_items (name, description, unit, unit_labor_price, suggested_qty, active)
			VALUES (?, ?, ?, ?, ?, TRUE)
		`, item.name, item.description, item.unit, item.unitLaborPrice, item.suggestedQty); err != nil {
			return fmt.Errorf("insert professional item %q: %w", item.name, err)
		}
		stats.Inserts++
	}
	return nil
}

func ensureServices(tx *sql.Tx, stats *Stats) error {
	for _, s := range defaultServices {
		var exists bool
		if err := tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM services WHERE name = ? LIMIT 1)`, s.name).Scan(&exists); err != nil {
			return fmt.Errorf("check service %q existence: %w", s.name, err)
		}
		if exists {
			continue
		}

		if _, err := tx.Exec(`
			INSERT INTO services (name, description, path, unit_labor_price)
			VALUES (?, ?, ?, ?)
		`, s.name, s.description, s.path, s.unitLaborPrice); err != nil {
			return fmt.Errorf("insert service %q: %w", s.name, err)
		}
		stats.Inserts++
	}
	return nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
