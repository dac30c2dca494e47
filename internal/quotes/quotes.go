// Package quotes is the boundary of the pricing engine: it validates a
// wizard summary, loads the referenced catalog rows, delegates to the
// calculator and persists the result as a write-once quote with line-level
// price snapshots.
package quotes

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/valdirnerin/nerin-cotizador/internal/catalog"
	"github.com/valdirnerin/nerin-cotizador/internal/pricing"
	"github.com/valdirnerin/nerin-cotizador/internal/zones"
)

var (
	// ErrPackNotFound signals a dangling pack reference. Fatal for the
	// request: a missing pack must not silently produce a zero-cost quote.
	ErrPackNotFound = errors.New("pack no encontrado")

	// ErrQuoteNotFound signals an unknown quote id.
	ErrQuoteNotFound = errors.New("presupuesto no encontrado")
)

const timeLayout = "2006-01-02 15:04:05"

// ValidationError reports malformed or out-of-range request fields,
// field by field. Nothing is persisted when validation fails.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		names = append(names, field)
	}
	sort.Strings(names)
	return "datos inválidos: " + strings.Join(names, ", ")
}

// CreateInput is the raw wizard summary received at the boundary.
type CreateInput struct {
	Mode                 string
	ServiceID            int64
	ServiceUnits         int
	PackID               int64
	Ambientes            int
	BocasExtra           int
	UrgencyMultiplier    float64
	DifficultyMultiplier float64
	Adicionales          []pricing.Selection
	ProfessionalItems    []pricing.Selection
	Comentarios          string
	ContactName          string
	ContactEmail         string

	// Optional coordinates; when present the quote is annotated with the
	// resolved zone tier.
	Lat *float64
	Lng *float64
}

// Created references a persisted quote.
type Created struct {
	ID     string
	PDFURL string
}

// Line is a snapshotted quote line.
type Line struct {
	Descripcion    string
	Cantidad       int
	PrecioUnitario float64
	Subtotal       float64
}

// Quote is a persisted quote with its snapshot lines. Quotes are write-once:
// they never change after creation, even if catalog prices do.
type Quote struct {
	ID             string
	CreatedAt      string
	PackID         int64
	Mode           string
	ZoneTier       string
	ContactName    string
	ContactEmail   string
	Comentarios    string
	SubtotalPack   float64
	TotalManoObra  float64
	RequiresSurvey bool
	Warning        string
	Recomendado    string
	Lines          []Line
}

// ListItem is one row of the quote listing.
type ListItem struct {
	ID            string
	CreatedAt     string
	ContactName   string
	TotalManoObra float64
}

// Service orchestrates quote creation and reads.
type Service struct {
	db            *sql.DB
	catalog       *catalog.Repository
	zones         *zones.Resolver
	publicBaseURL string

	newID func() string
	now   func() time.Time
}

// NewService builds the orchestrator over the shared database handle.
func NewService(db *sql.DB, cat *catalog.Repository, resolver *zones.Resolver, publicBaseURL string) *Service {
	return &Service{
		db:            db,
		catalog:       cat,
		zones:         resolver,
		publicBaseURL: strings.TrimSuffix(publicBaseURL, "/"),
		newID:         func() string { return ulid.Make().String() },
		now:           time.Now,
	}
}

// CreateQuote validates the input, prices it and persists the parent record
// plus one line per contributing item atomically. It returns the quote id
// and the URL where the rendered document can be fetched.
func (s *Service) CreateQuote(ctx context.Context, in CreateInput) (Created, error) {
	in.Adicionales = pricing.NormalizeSelections(in.Adicionales)
	in.ProfessionalItems = pricing.NormalizeSelections(in.ProfessionalItems)
	if in.ServiceUnits == 0 {
		in.ServiceUnits = 1
	}
	if in.UrgencyMultiplier == 0 {
		in.UrgencyMultiplier = 1.0
	}
	if in.DifficultyMultiplier == 0 {
		in.DifficultyMultiplier = 1.0
	}

	if err := validate(in); err != nil {
		return Created{}, err
	}

	pack, err := s.catalog.PackByID(ctx, in.PackID)
	if errors.Is(err, catalog.ErrNotFound) {
		return Created{}, ErrPackNotFound
	}
	if err != nil {
		return Created{}, fmt.Errorf("load pack %d: %w", in.PackID, err)
	}

	items, err := s.catalog.ItemsByIDs(ctx, selectionIDs(in.Adicionales))
	if err != nil {
		return Created{}, fmt.Errorf("load catalog items: %w", err)
	}
	professional, err := s.catalog.ProfessionalItemsByIDs(ctx, selectionIDs(in.ProfessionalItems))
	if err != nil {
		return Created{}, fmt.Errorf("load professional items: %w", err)
	}
	logStaleSelections("adicional", in.Adicionales, func(id int64) bool { _, ok := items[id]; return ok })
	logStaleSelections("item profesional", in.ProfessionalItems, func(id int64) bool { _, ok := professional[id]; return ok })

	zoneTier := ""
	if in.Lat != nil && in.Lng != nil {
		zoneTier = string(s.zones.Resolve(*in.Lat, *in.Lng).Tier)
	}

	totals := pricing.Calculate(pricing.Input{
		Pack:              pack,
		Items:             itemValues(items),
		ProfessionalItems: professionalValues(professional),
		Summary: pricing.Summary{
			Mode:                 pricing.Mode(in.Mode),
			ServiceID:            in.ServiceID,
			ServiceUnits:         in.ServiceUnits,
			ZoneTier:             zones.Tier(zoneTier),
			UrgencyMultiplier:    in.UrgencyMultiplier,
			DifficultyMultiplier: in.DifficultyMultiplier,
			PackID:               in.PackID,
			Ambientes:            in.Ambientes,
			BocasExtra:           in.BocasExtra,
			Adicionales:          in.Adicionales,
			ProfessionalItems:    in.ProfessionalItems,
			Comentarios:          in.Comentarios,
		},
	})

	id := s.newID()
	if err := s.persist(ctx, id, in, pack, zoneTier, totals); err != nil {
		return Created{}, err
	}

	return Created{ID: id, PDFURL: s.pdfURL(id)}, nil
}

func (s *Service) pdfURL(id string) string {
	return fmt.Sprintf("%s/presupuestos/%s/pdf", s.publicBaseURL, id)
}

// persist writes the parent record and its lines in one transaction: all
// lines or none.
func (s *Service) persist(ctx context.Context, id string, in CreateInput, pack catalog.Pack, zoneTier string, totals pricing.Totals) error {
	summaryJSON, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode summary snapshot: %w", err)
	}

	recomendado := ""
	if totals.Recomendado != nil {
		recomendado = totals.Recomendado.Nombre
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin quote transaction: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO quotes (
			id, created_at, pack_id, mode, zone_tier,
			contact_name, contact_email, comentarios, summary_json,
			subtotal_pack, total_mano_obra, requires_survey, warning, recomendado
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		id,
		s.now().UTC().Format(timeLayout),
		pack.ID,
		in.Mode,
		zoneTier,
		in.ContactName,
		in.ContactEmail,
		in.Comentarios,
		string(summaryJSON),
		totals.SubtotalPack,
		totals.TotalManoObra,
		totals.RequiresSurvey,
		totals.Warning,
		recomendado,
	)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert quote: %w", err)
	}

	// Pack base line first, then the resolved lines in input order.
	lines := make([]Line, 0, len(totals.Adicionales)+1)
	lines = append(lines, Line{
		Descripcion:    pack.Name,
		Cantidad:       1,
		PrecioUnitario: pack.BaseLaborPrice,
		Subtotal:       pack.BaseLaborPrice,
	})
	for _, line := range totals.Adicionales {
		lines = append(lines, Line{
			Descripcion:    line.Nombre,
			Cantidad:       line.Cantidad,
			PrecioUnitario: line.PrecioUnitario,
			Subtotal:       line.Subtotal,
		})
	}

	for position, line := range lines {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO quote_lines (quote_id, position, descripcion, cantidad, precio_unitario, subtotal)
			VALUES (?, ?, ?, ?, ?, ?)
		`, id, position, line.Descripcion, line.Cantidad, line.PrecioUnitario, line.Subtotal)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert quote line %d: %w", position, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit quote transaction: %w", err)
	}

	return nil
}

// GetQuote reads a persisted quote and its lines. It never recalculates:
// historical quotes stay stable even if catalog prices change.
func (s *Service) GetQuote(ctx context.Context, id string) (Quote, error) {
	var q Quote
	err := s.db.QueryRowContext(ctx, `
		SELECT
			id, created_at, pack_id, mode, COALESCE(zone_tier, ''),
			COALESCE(contact_name, ''), COALESCE(contact_email, ''), COALESCE(comentarios, ''),
			subtotal_pack, total_mano_obra, requires_survey, COALESCE(warning, ''), COALESCE(recomendado, '')
		FROM quotes
		WHERE id = ?
	`, id).Scan(
		&q.ID,
		&q.CreatedAt,
		&q.PackID,
		&q.Mode,
		&q.ZoneTier,
		&q.ContactName,
		&q.ContactEmail,
		&q.Comentarios,
		&q.SubtotalPack,
		&q.TotalManoObra,
		&q.RequiresSurvey,
		&q.Warning,
		&q.Recomendado,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Quote{}, ErrQuoteNotFound
	}
	if err != nil {
		return Quote{}, fmt.Errorf("query quote %s: %w", id, err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT descripcion, cantidad, precio_unitario, subtotal
		FROM quote_lines
		WHERE quote_id = ?
		ORDER BY position ASC
	`, id)
	if err != nil {
		return Quote{}, fmt.Errorf("query quote lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var line Line
		if err := rows.Scan(&line.Descripcion, &line.Cantidad, &line.PrecioUnitario, &line.Subtotal); err != nil {
			return Quote{}, fmt.Errorf("scan quote line: %w", err)
		}
		q.Lines = append(q.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return Quote{}, fmt.Errorf("iterate quote lines: %w", err)
	}

	return q, nil
}

// ListQuotes returns quotes newest first, optionally filtered by a free-text
// search over contact name and comments.
func (s *Service) ListQuotes(ctx context.Context, query string) ([]ListItem, error) {
	search := "%" + query + "%"
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, COALESCE(contact_name, ''), total_mano_obra
		FROM quotes
		WHERE (? = '' OR COALESCE(contact_name, '') LIKE ? OR COALESCE(comentarios, '') LIKE ?)
		ORDER BY datetime(created_at) DESC, id DESC
	`, query, search, search)
	if err != nil {
		return nil, fmt.Errorf("query quotes: %w", err)
	}
	defer rows.Close()

	quotes := make([]ListItem, 0)
	for rows.Next() {
		var item ListItem
		if err := rows.Scan(&item.ID, &item.CreatedAt, &item.ContactName, &item.TotalManoObra); err != nil {
			return nil, fmt.Errorf("scan quote list item: %w", err)
		}
		quotes = append(quotes, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate quotes: %w", err)
	}

	return quotes, nil
}

func validate(in CreateInput) error {
	fields := make(map[string]string)

	switch pricing.Mode(in.Mode) {
	case pricing.ModeExpress, pricing.ModeAssisted, pricing.ModeProfessional:
	default:
		fields["mode"] = "mode debe ser EXPRESS, ASSISTED o PROFESSIONAL"
	}

	if in.PackID <= 0 {
		fields["packId"] = "packId es requerido"
	}
	if pricing.Mode(in.Mode) == pricing.ModeAssisted && (in.Ambientes < 1 || in.Ambientes > 30) {
		fields["ambientes"] = "ambientes debe estar entre 1 y 30"
	}
	if in.BocasExtra < 0 || in.BocasExtra > 500 {
		fields["bocasExtra"] = "bocasExtra debe estar entre 0 y 500"
	}
	if in.ServiceUnits < 1 {
		fields["serviceUnits"] = "serviceUnits debe ser mayor o igual a 1"
	}

	if !validUrgency(in.UrgencyMultiplier) {
		fields["urgencyMultiplier"] = "urgencyMultiplier debe ser 1.0, 1.1 o 1.2"
	}
	if in.DifficultyMultiplier < 1.0 {
		fields["difficultyMultiplier"] = "difficultyMultiplier debe ser mayor o igual a 1.0"
	}

	for _, sel := range in.Adicionales {
		if sel.Cantidad > 100 {
			fields["adicionales"] = "cantidad debe estar entre 1 y 100"
			break
		}
	}
	for _, sel := range in.ProfessionalItems {
		if sel.Cantidad > 100 {
			fields["professionalItems"] = "cantidad debe estar entre 1 y 100"
			break
		}
	}

	if in.ContactEmail != "" && !strings.Contains(in.ContactEmail, "@") {
		fields["contactEmail"] = "contactEmail no es un email válido"
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func validUrgency(m float64) bool {
	for _, allowed := range []float64{1.0, 1.1, 1.2} {
		if math.Abs(m-allowed) < 1e-9 {
			return true
		}
	}
	return false
}

func selectionIDs(selections []pricing.Selection) []int64 {
	ids := make([]int64, 0, len(selections))
	for _, sel := range selections {
		ids = append(ids, sel.ID)
	}
	return ids
}

// logStaleSelections records references to removed catalog rows. The line is
// dropped from the calculation, but the case is worth surfacing for catalog
// hygiene.
func logStaleSelections(kind string, selections []pricing.Selection, found func(int64) bool) {
	for _, sel := range selections {
		if !found(sel.ID) {
			log.Printf("catálogo: %s %d inexistente, se descarta de la cotización", kind, sel.ID)
		}
	}
}

func itemValues(items map[int64]catalog.Item) []catalog.Item {
	values := make([]catalog.Item, 0, len(items))
	for _, item := range items {
		values = append(values, item)
	}
	return values
}

func professionalValues(items map[int64]catalog.ProfessionalItem) []catalog.ProfessionalItem {
	values := make([]catalog.ProfessionalItem, 0, len(items))
	for _, item := range items {
		values = append(values, item)
	}
	return values
}
