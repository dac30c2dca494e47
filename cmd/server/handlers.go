package main

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/valdirnerin/nerin-cotizador/internal/catalog"
	"github.com/valdirnerin/nerin-cotizador/internal/pricing"
	"github.com/valdirnerin/nerin-cotizador/internal/quotes"
	"github.com/valdirnerin/nerin-cotizador/internal/quotes/pdf"
	"github.com/valdirnerin/nerin-cotizador/internal/zones"
)

type server struct {
	catalog *catalog.Repository
	quotes  *quotes.Service
	zones   *zones.Resolver
	pdf     *pdf.Generator
}

type quoteSelection struct {
	ID       int64 `json:"id"`
	Cantidad int   `json:"cantidad"`
}

type createQuoteRequest struct {
	Mode                 string           `json:"mode"`
	ServiceID            int64            `json:"serviceId"`
	ServiceUnits         int              `json:"serviceUnits"`
	PackID               int64            `json:"packId"`
	Ambientes            int              `json:"ambientes"`
	BocasExtra           int              `json:"bocasExtra"`
	UrgencyMultiplier    float64          `json:"urgencyMultiplier"`
	DifficultyMultiplier float64          `json:"difficultyMultiplier"`
	Adicionales          []quoteSelection `json:"adicionales"`
	ProfessionalItems    []quoteSelection `json:"professionalItems"`
	Comentarios          string           `json:"comentarios"`
	ContactName          string           `json:"contactName"`
	ContactEmail         string           `json:"contactEmail"`
	Lat                  *float64         `json:"lat"`
	Lng                  *float64         `json:"lng"`
}

type createQuoteResponse struct {
	ID     string `json:"id"`
	PDFURL string `json:"pdfUrl"`
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleQuoteCreate(w http.ResponseWriter, r *http.Request) {
	var req createQuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "JSON inválido"})
		return
	}

	created, err := s.quotes.CreateQuote(r.Context(), quotes.CreateInput{
		Mode:                 req.Mode,
		ServiceID:            req.ServiceID,
		ServiceUnits:         req.ServiceUnits,
		PackID:               req.PackID,
		Ambientes:            req.Ambientes,
		BocasExtra:           req.BocasExtra,
		UrgencyMultiplier:    req.UrgencyMultiplier,
		DifficultyMultiplier: req.DifficultyMultiplier,
		Adicionales:          toSelections(req.Adicionales),
		ProfessionalItems:    toSelections(req.ProfessionalItems),
		Comentarios:          req.Comentarios,
		ContactName:          req.ContactName,
		ContactEmail:         req.ContactEmail,
		Lat:                  req.Lat,
		Lng:                  req.Lng,
	})

	var validationErr *quotes.ValidationError
	switch {
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"errors": validationErr.Fields})
	case errors.Is(err, quotes.ErrPackNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case err != nil:
		log.Printf("create quote failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "no se pudo crear el presupuesto"})
	default:
		writeJSON(w, http.StatusCreated, createQuoteResponse{ID: created.ID, PDFURL: created.PDFURL})
	}
}

func (s *server) handleQuoteList(w http.ResponseWriter, r *http.Request) {
	items, err := s.quotes.ListQuotes(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		log.Printf("list quotes failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "no se pudieron cargar los presupuestos"})
		return
	}

	type listItem struct {
		ID            string  `json:"id"`
		CreatedAt     string  `json:"createdAt"`
		ContactName   string  `json:"contactName"`
		TotalManoObra float64 `json:"totalManoObra"`
	}
	out := make([]listItem, 0, len(items))
	for _, item := range items {
		out = append(out, listItem{
			ID:            item.ID,
			CreatedAt:     item.CreatedAt,
			ContactName:   item.ContactName,
			TotalManoObra: item.TotalManoObra,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type quoteLineResponse struct {
	Descripcion    string  `json:"descripcion"`
	Cantidad       int     `json:"cantidad"`
	PrecioUnitario float64 `json:"precioUnitario"`
	Subtotal       float64 `json:"subtotal"`
}

type quoteDetailResponse struct {
	ID             string              `json:"id"`
	CreatedAt      string              `json:"createdAt"`
	PackID         int64               `json:"packId"`
	Mode           string              `json:"mode"`
	ZoneTier       string              `json:"zoneTier,omitempty"`
	ContactName    string              `json:"contactName,omitempty"`
	ContactEmail   string              `json:"contactEmail,omitempty"`
	Comentarios    string              `json:"comentarios,omitempty"`
	SubtotalPack   float64             `json:"subtotalPack"`
	TotalManoObra  float64             `json:"totalManoObra"`
	RequiresSurvey bool                `json:"requiresSurvey"`
	Warning        string              `json:"warning,omitempty"`
	Recomendado    string              `json:"recomendado,omitempty"`
	Lines          []quoteLineResponse `json:"lineas"`
}

func (s *server) handleQuoteDetail(w http.ResponseWriter, r *http.Request) {
	quote, ok := s.loadQuote(w, r)
	if !ok {
		return
	}

	out := quoteDetailResponse{
		ID:             quote.ID,
		CreatedAt:      quote.CreatedAt,
		PackID:         quote.PackID,
		Mode:           quote.Mode,
		ZoneTier:       quote.ZoneTier,
		ContactName:    quote.ContactName,
		ContactEmail:   quote.ContactEmail,
		Comentarios:    quote.Comentarios,
		SubtotalPack:   quote.SubtotalPack,
		TotalManoObra:  quote.TotalManoObra,
		RequiresSurvey: quote.RequiresSurvey,
		Warning:        quote.Warning,
		Recomendado:    quote.Recomendado,
		Lines:          make([]quoteLineResponse, 0, len(quote.Lines)),
	}
	for _, line := range quote.Lines {
		out.Lines = append(out.Lines, quoteLineResponse{
			Descripcion:    line.Descripcion,
			Cantidad:       line.Cantidad,
			PrecioUnitario: line.PrecioUnitario,
			Subtotal:       line.Subtotal,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *server) handleQuotePDF(w http.ResponseWriter, r *http.Request) {
	quote, ok := s.loadQuote(w, r)
	if !ok {
		return
	}

	document, err := s.pdf.Generate(quote)
	if err != nil {
		log.Printf("render quote pdf failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "no se pudo generar el documento"})
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `inline; filename="presupuesto-`+quote.ID+`.pdf"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(document)
}

func (s *server) loadQuote(w http.ResponseWriter, r *http.Request) (quotes.Quote, bool) {
	id := chi.URLParam(r, "id")
	quote, err := s.quotes.GetQuote(r.Context(), id)
	if errors.Is(err, quotes.ErrQuoteNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return quotes.Quote{}, false
	}
	if err != nil {
		log.Printf("load quote %s failed: %v", id, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "no se pudo cargar el presupuesto"})
		return quotes.Quote{}, false
	}
	return quote, true
}

func (s *server) handlePacks(w http.ResponseWriter, r *http.Request) {
	packs, err := s.catalog.ListPacks(r.Context())
	if err != nil {
		log.Printf("list packs failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "no se pudieron cargar los packs"})
		return
	}

	type packResponse struct {
		ID                 int64   `json:"id"`
		Slug               string  `json:"slug"`
		Name               string  `json:"name"`
		Description        string  `json:"description,omitempty"`
		BaseLaborPrice     float64 `json:"baseLaborPrice"`
		IncludedUnits      int     `json:"includedUnits"`
		ReferenceRoomCount int     `json:"referenceRoomCount"`
	}
	out := make([]packResponse, 0, len(packs))
	for _, p := range packs {
		out = append(out, packResponse{
			ID:                 p.ID,
			Slug:               p.Slug,
			Name:               p.Name,
			Description:        p.Description,
			BaseLaborPrice:     p.BaseLaborPrice,
			IncludedUnits:      p.IncludedUnits,
			ReferenceRoomCount: p.ReferenceRoomCount,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *server) handleItems(w http.ResponseWriter, r *http.Request) {
	items, err := s.catalog.ListItems(r.Context())
	if err != nil {
		log.Printf("list catalog items failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "no se pudieron cargar los adicionales"})
		return
	}

	type itemResponse struct {
		ID             int64          `json:"id"`
		Name           string         `json:"name"`
		Description    string         `json:"description,omitempty"`
		Unit           string         `json:"unit"`
		UnitLaborPrice float64        `json:"unitLaborPrice"`
		PackID         *int64         `json:"packId,omitempty"`
		Rules          []catalog.Rule `json:"compatibilityRules,omitempty"`
	}
	out := make([]itemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, itemResponse{
			ID:             item.ID,
			Name:           item.Name,
			Description:    item.Description,
			Unit:           item.Unit,
			UnitLaborPrice: item.UnitLaborPrice,
			PackID:         item.PackID,
			Rules:          item.Rules,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *server) handleProfessionalItems(w http.ResponseWriter, r *http.Request) {
	items, err := s.catalog.ListProfessionalItems(r.Context())
	if err != nil {
		log.Printf("list professional items failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "no se pudieron cargar los items profesionales"})
		return
	}

	type professionalResponse struct {
		ID             int64   `json:"id"`
		Name           string  `json:"name"`
		Description    string  `json:"description,omitempty"`
		Unit           string  `json:"unit"`
		UnitLaborPrice float64 `json:"unitLaborPrice"`
		SuggestedQty   int     `json:"suggestedQuantity,omitempty"`
	}
	out := make([]professionalResponse, 0, len(items))
	for _, item := range items {
		out = append(out, professionalResponse{
			ID:             item.ID,
			Name:           item.Name,
			Description:    item.Description,
			Unit:           item.Unit,
			UnitLaborPrice: item.UnitLaborPrice,
			SuggestedQty:   item.SuggestedQty,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *server) handleServices(w http.ResponseWriter, r *http.Request) {
	services, err := s.catalog.ListServices(r.Context())
	if err != nil {
		log.Printf("list services failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "no se pudieron cargar los servicios"})
		return
	}

	type serviceResponse struct {
		ID             int64   `json:"id"`
		Name           string  `json:"name"`
		Description    string  `json:"description,omitempty"`
		Path           string  `json:"path"`
		UnitLaborPrice float64 `json:"unitLaborPrice"`
	}
	out := make([]serviceResponse, 0, len(services))
	for _, svc := range services {
		out = append(out, serviceResponse{
			ID:             svc.ID,
			Name:           svc.Name,
			Description:    svc.Description,
			Path:           svc.Path,
			UnitLaborPrice: svc.UnitLaborPrice,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *server) handleZone(w http.ResponseWriter, r *http.Request) {
	lat, errLat := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lng, errLng := strconv.ParseFloat(r.URL.Query().Get("lng"), 64)
	if errLat != nil || errLng != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "lat y lng deben ser numéricos"})
		return
	}

	result := s.zones.Resolve(lat, lng)
	writeJSON(w, http.StatusOK, map[string]string{
		"tier":  string(result.Tier),
		"label": result.Label,
	})
}

func toSelections(in []quoteSelection) []pricing.Selection {
	out := make([]pricing.Selection, 0, len(in))
	for _, sel := range in {
		out = append(out, pricing.Selection{ID: sel.ID, Cantidad: sel.Cantidad})
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode response failed: %v", err)
	}
}
