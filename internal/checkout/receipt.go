package checkout

import (
	"bytes"
	"fmt"

	"github.com/phpdave11/gofpdf"

	"storefront-service/internal/domain"
	"storefront-service/internal/numfmt"
)

// Receipt renders the order as a PDF using the store's number format.
func (s *Service) Receipt(o domain.Order) ([]byte, string, error) {
	return RenderReceipt(o, s.numberOptions(s.store.Get().Locale))
}

// RenderReceipt renders an A4 order summary. It returns the PDF and a file name.
func RenderReceipt(o domain.Order, opts numfmt.Options) ([]byte, string, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Order "+shortID(o.ID), false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, tr(o.StoreName))
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	header := []string{
		"Order   : " + shortID(o.ID),
		"Date    : " + o.PlacedAt.Format("2006-01-02 15:04"),
		"Customer: " + safe(o.Customer.Name),
		"Phone   : " + safe(o.Customer.Phone),
	}
	if o.Customer.Address != "" {
		header = append(header, "Address : "+o.Customer.Address)
	}
	for _, line := range header {
		pdf.Cell(0, 7, tr(line))
		pdf.Ln(7)
	}
	pdf.Ln(4)

	widths := []float64{95, 20, 35, 35}
	pdf.SetFont("Helvetica", "B", 11)
	for i, h := range []string{"Item", "Qty", "Unit", "Amount"} {
		align := "R"
		if i == 0 {
			align = "L"
		}
		pdf.CellFormat(widths[i], 8, h, "B", 0, align, false, 0, "")
	}
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "", 11)
	for _, it := range o.Items {
		amount := numfmt.ParseNumber(it.UnitPrice*float64(it.Quantity), opts)
		pdf.CellFormat(widths[0], 7, tr(it.Title), "", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 7, fmt.Sprintf("%d", it.Quantity), "", 0, "R", false, 0, "")
		pdf.CellFormat(widths[2], 7, numfmt.FormatNumber(it.UnitPrice, opts), "", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], 7, numfmt.FormatNumber(amount, opts), "", 0, "R", false, 0, "")
		pdf.Ln(7)
	}

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(widths[0]+widths[1]+widths[2], 9, fmt.Sprintf("Total (%d items)", o.ItemCount), "T", 0, "L", false, 0, "")
	pdf.CellFormat(widths[3], 9, o.Currency+" "+numfmt.FormatNumber(o.Total, opts), "T", 0, "R", false, 0, "")
	pdf.Ln(12)

	if o.Customer.Notes != "" {
		pdf.SetFont("Helvetica", "I", 10)
		pdf.MultiCell(0, 6, tr("Notes: "+o.Customer.Notes), "", "", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", fmt.Errorf("checkout: Receipt failed: %w", err)
	}
	return buf.Bytes(), fmt.Sprintf("order-%s.pdf", shortID(o.ID)), nil
}

func safe(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
