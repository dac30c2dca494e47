// Package pdf renders a persisted quote as a downloadable PDF document.
package pdf

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"github.com/valdirnerin/nerin-cotizador/internal/quotes"
)

type Generator struct{}

func New() *Generator { return &Generator{} }

// Generate renders the quote from its snapshot; it never re-prices.
func (g *Generator) Generate(q quotes.Quote) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Presupuesto NERIN", false)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, tr("Presupuesto de mano de obra"))
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 6, tr(fmt.Sprintf("N° %s — %s", q.ID, q.CreatedAt)))
	pdf.Ln(6)

	if q.ContactName != "" || q.ContactEmail != "" {
		pdf.Cell(0, 6, tr(fmt.Sprintf("Cliente: %s %s", q.ContactName, q.ContactEmail)))
		pdf.Ln(6)
	}
	if q.ZoneTier != "" {
		pdf.Cell(0, 6, tr(fmt.Sprintf("Zona de servicio: %s", q.ZoneTier)))
		pdf.Ln(6)
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.Cell(100, 7, tr("Descripción"))
	pdf.Cell(20, 7, tr("Cant."))
	pdf.Cell(35, 7, tr("Precio unitario"))
	pdf.Cell(35, 7, tr("Subtotal"))
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "", 10)
	for _, line := range q.Lines {
		pdf.Cell(100, 6, tr(trim(line.Descripcion, 55)))
		pdf.Cell(20, 6, fmt.Sprintf("%d", line.Cantidad))
		pdf.Cell(35, 6, fmt.Sprintf("$ %.0f", line.PrecioUnitario))
		pdf.Cell(35, 6, fmt.Sprintf("$ %.0f", line.Subtotal))
		pdf.Ln(6)
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.Cell(0, 7, tr(fmt.Sprintf("Total mano de obra: $ %.0f", q.TotalManoObra)))
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "", 9)
	if q.RequiresSurvey {
		pdf.Cell(0, 5, tr("Sujeto a relevamiento técnico en obra antes de confirmar el precio final."))
		pdf.Ln(5)
	}
	if q.Warning != "" {
		pdf.Cell(0, 5, tr(q.Warning))
		pdf.Ln(5)
	}
	if q.Recomendado != "" {
		pdf.Cell(0, 5, tr(fmt.Sprintf("Sugerencia: %s", q.Recomendado)))
		pdf.Ln(5)
	}
	pdf.Cell(0, 5, tr("NERIN • Instalaciones eléctricas"))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render quote pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func trim(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
