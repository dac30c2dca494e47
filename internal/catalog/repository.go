package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when a referenced row does not exist.
var ErrNotFound = errors.New("catalog: not found")

// Repository provides read-only lookups over the catalog tables.
type Repository struct {
	db *sql.DB
}

// NewRepository wraps db with catalog lookups.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// PackByID loads one pack. Returns ErrNotFound for a dangling reference.
func (r *Repository) PackByID(ctx context.Context, id int64) (Pack, error) {
	return r.scanPack(r.db.QueryRowContext(ctx, `
		SELECT id, slug, name, COALESCE(description, ''), base_labor_price, included_units, reference_room_count
		FROM packs
		WHERE id = ?
	`, id))
}

// PackBySlug loads one pack by its URL-safe slug.
func (r *Repository) PackBySlug(ctx context.Context, slug string) (Pack, error) {
	return r.scanPack(r.db.QueryRowContext(ctx, `
		SELECT id, slug, name, COALESCE(description, ''), base_labor_price, included_units, reference_room_count
		FROM packs
		WHERE slug = ?
	`, slug))
}

func (r *Repository) scanPack(row *sql.Row) (Pack, error) {
	var p Pack
	err := row.Scan(&p.ID, &p.Slug, &p.Name, &p.Description, &p.BaseLaborPrice, &p.IncludedUnits, &p.ReferenceRoomCount)
	if errors.Is(err, sql.ErrNoRows) {
		return Pack{}, ErrNotFound
	}
	if err != nil {
		return Pack{}, fmt.Errorf("scan pack: %w", err)
	}
	return p, nil
}

// ListPacks returns all packs ordered by included units, smallest first.
func (r *Repository) ListPacks(ctx context.Context) ([]Pack, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, slug, name, COALESCE(description, ''), base_labor_price, included_units, reference_room_count
		FROM packs
		ORDER BY included_units ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query packs: %w", err)
	}
	defer rows.Close()

	packs := make([]Pack, 0)
	for rows.Next() {
		var p Pack
		if err := rows.Scan(&p.ID, &p.Slug, &p.Name, &p.Description, &p.BaseLaborPrice, &p.IncludedUnits, &p.ReferenceRoomCount); err != nil {
			return nil, fmt.Errorf("scan pack: %w", err)
		}
		packs = append(packs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate packs: %w", err)
	}

	return packs, nil
}

// ItemsByIDs loads the given catalog items in one batched query. Ids with no
// matching row are simply absent from the result map; callers decide how to
// treat a stale reference.
func (r *Repository) ItemsByIDs(ctx context.Context, ids []int64) (map[int64]Item, error) {
	items := make(map[int64]Item, len(ids))
	if len(ids) == 0 {
		return items, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, name, COALESCE(description, ''), unit, unit_labor_price, pack_id, COALESCE(rules_json, '')
		FROM catalog_items
		WHERE active AND id IN (%s)
	`, placeholders), args...)
	if err != nil {
		return nil, fmt.Errorf("query catalog items by ids: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items[item.ID] = item
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate catalog items: %w", err)
	}

	return items, nil
}

// ListItems returns all active addable items.
func (r *Repository) ListItems(ctx context.Context) ([]Item, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, COALESCE(description, ''), unit, unit_labor_price, pack_id, COALESCE(rules_json, '')
		FROM catalog_items
		WHERE active
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query catalog items: %w", err)
	}
	defer rows.Close()

	items := make([]Item, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate catalog items: %w", err)
	}

	return items, nil
}

func scanItem(rows *sql.Rows) (Item, error) {
	var item Item
	var rulesJSON string
	if err := rows.Scan(&item.ID, &item.Name, &item.Description, &item.Unit, &item.UnitLaborPrice, &item.PackID, &rulesJSON); err != nil {
		return Item{}, fmt.Errorf("scan catalog item: %w", err)
	}

	rules, err := decodeRules(rulesJSON)
	if err != nil {
		return Item{}, fmt.Errorf("catalog item %d: %w", item.ID, err)
	}
	item.Rules = rules

	return item, nil
}

// ProfessionalItemsByIDs loads professional items in one batched query,
// with the same missing-id tolerance as ItemsByIDs.
func (r *Repository) ProfessionalItemsByIDs(ctx context.Context, ids []int64) (map[int64]ProfessionalItem, error) {
	items := make(map[int64]ProfessionalItem, len(ids))
	if len(ids) == 0 {
		return items, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, name, COALESCE(description, ''), unit, unit_labor_price, suggested_qty
		FROM professional_items
		WHERE active AND id IN (%s)
	`, placeholders), args...)
	if err != nil {
		return nil, fmt.Errorf("query professional items by ids: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item ProfessionalItem
		if err := rows.Scan(&item.ID, &item.Name, &item.Description, &item.Unit, &item.UnitLaborPrice, &item.SuggestedQty); err != nil {
			return nil, fmt.Errorf("scan professional item: %w", err)
		}
		items[item.ID] = item
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate professional items: %w", err)
	}

	return items, nil
}

// ListProfessionalItems returns all active professional items.
func (r *Repository) ListProfessionalItems(ctx context.Context) ([]ProfessionalItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, COALESCE(description, ''), unit, unit_labor_price, suggested_qty
		FROM professional_items
		WHERE active
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query professional items: %w", err)
	}
	defer rows.Close()

	items := make([]ProfessionalItem, 0)
	for rows.Next() {
		var item ProfessionalItem
		if err := rows.Scan(&item.ID, &item.Name, &item.Description, &item.Unit, &item.UnitLaborPrice, &item.SuggestedQty); err != nil {
			return nil, fmt.Errorf("scan professional item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate professional items: %w", err)
	}

	return items, nil
}

// ListServices returns the quote services offered through the wizard.
func (r *Repository) ListServices(ctx context.Context) ([]Service, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, COALESCE(description, ''), path, unit_labor_price
		FROM services
		ORDER BY path ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query services: %w", err)
	}
	defer rows.Close()

	services := make([]Service, 0)
	for rows.Next() {
		var s Service
		if err := rows.Scan(&s.ID, &s.Name, &s.Description, &s.Path, &s.UnitLaborPrice); err != nil {
			return nil, fmt.Errorf("scan service: %w", err)
		}
		services = append(services, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate services: %w", err)
	}

	return services, nil
}
