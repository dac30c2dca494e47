package main

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/valdirnerin/nerin-cotizador/internal/catalog"
	"github.com/valdirnerin/nerin-cotizador/internal/config"
	"github.com/valdirnerin/nerin-cotizador/internal/db"
	"github.com/valdirnerin/nerin-cotizador/internal/migrations"
	"github.com/valdirnerin/nerin-cotizador/internal/quotes"
	"github.com/valdirnerin/nerin-cotizador/internal/quotes/pdf"
	"github.com/valdirnerin/nerin-cotizador/internal/seed"
	"github.com/valdirnerin/nerin-cotizador/internal/zones"
)

func main() {
	cfg := config.Load()

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer database.Close()

	if cfg.IsDev() {
		if err := migrations.Up(database, "migrations"); err != nil {
			log.Fatalf("failed to run database migrations: %v", err)
		}
	}

	stats, err := seed.Run(database)
	if err != nil {
		log.Fatalf("failed to seed catalog: %v", err)
	}
	if stats.Inserts > 0 {
		log.Printf("seeded %d catalog rows", stats.Inserts)
	}

	cat := catalog.NewRepository(database)
	resolver := zones.NewResolver(
		zones.Coordinate{Lat: cfg.BaseLat, Lng: cfg.BaseLng},
		zones.DefaultDefinitions(),
	)
	quoteService := quotes.NewService(database, cat, resolver, cfg.PublicBaseURL)

	srv := &server{
		catalog: cat,
		quotes:  quoteService,
		zones:   resolver,
		pdf:     pdf.New(),
	}

	r := chi.NewRouter()
	r.Get("/health", srv.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/presupuestos", srv.handleQuoteCreate)
		r.Get("/presupuestos", srv.handleQuoteList)
		r.Get("/presupuestos/{id}", srv.handleQuoteDetail)
		r.Get("/catalogo/packs", srv.handlePacks)
		r.Get("/catalogo/adicionales", srv.handleItems)
		r.Get("/catalogo/profesionales", srv.handleProfessionalItems)
		r.Get("/catalogo/servicios", srv.handleServices)
		r.Get("/zonas", srv.handleZone)
	})
	r.Get("/presupuestos/{id}/pdf", srv.handleQuotePDF)

	addr := ":" + cfg.Port
	log.Printf("listening on %s", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
