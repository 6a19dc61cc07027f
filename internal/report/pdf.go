// Package report renders inventory reports and forecast charts as PDF.
package report

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"inventory-ledger/internal/forecast"
	"inventory-ledger/internal/models"

	"github.com/go-pdf/fpdf"
)

// Renderer writes finished documents to w
type Renderer interface {
	InventoryReport(w io.Writer, products []models.Product, generatedAt time.Time) error
	ForecastChart(w io.Writer, f *forecast.Forecast) error
}

// PDFRenderer lays documents out on landscape letter pages
type PDFRenderer struct{}

// NewPDFRenderer creates a PDF renderer
func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{}
}

const (
	margin     = 15.0
	rowHeight  = 7.0
	labelWidth = 28.0
)

var inventoryColumns = []struct {
	title string
	width float64
	align string
}{
	{"Product Name", 90, "L"},
	{"Price", 40, "R"},
	{"Category", 80, "L"},
	{"Stock", 30, "R"},
}

type rect struct {
	x, y, w, h float64
}

func newDocument(title string) *fpdf.Fpdf {
	pdf := fpdf.New("L", "mm", "Letter", "")
	pdf.SetTitle(title, true)
	pdf.SetCreator("inventory-ledger", true)
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(true, margin)
	pdf.AddPage()
	return pdf
}

// InventoryReport writes a title, the generation time, the product table
// and a bar chart of stock levels.
func (r *PDFRenderer) InventoryReport(w io.Writer, products []models.Product, generatedAt time.Time) error {
	pdf := newDocument("Inventory Report")

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, "Inventory Report", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, "Generated on: "+models.FormatTimestamp(generatedAt), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for _, col := range inventoryColumns {
		pdf.CellFormat(col.width, rowHeight, col.title, "1", 0, col.align, true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	for _, p := range products {
		cells := []string{
			p.Name,
			"$" + p.Price.StringFixed(2),
			p.Category,
			strconv.Itoa(p.Stock),
		}
		for i, col := range inventoryColumns {
			pdf.CellFormat(col.width, rowHeight, fit(pdf, cells[i], col.width-2), "1", 0, col.align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	if len(products) > 0 {
		pdf.AddPage()
		pageW, pageH := pdf.GetPageSize()
		pdf.SetFont("Helvetica", "B", 14)
		pdf.CellFormat(0, 10, "Stock Levels", "", 1, "C", false, 0, "")
		area := rect{x: margin + labelWidth, y: margin + 20, w: pageW - 2*margin - labelWidth, h: pageH - 2*margin - 50}
		drawStockBars(pdf, area, products)
	}

	return output(pdf, w)
}

// ForecastChart plots monthly history and the projection on one time axis
func (r *PDFRenderer) ForecastChart(w io.Writer, f *forecast.Forecast) error {
	if f == nil || len(f.History) == 0 {
		return fmt.Errorf("failed to render chart: %w", forecast.ErrNoSalesHistory)
	}

	pdf := newDocument("Sales Prediction for " + f.Product)
	pageW, pageH := pdf.GetPageSize()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 10, "Sales Prediction for "+f.Product, "", 1, "C", false, 0, "")

	area := rect{x: margin + labelWidth, y: margin + 20, w: pageW - 2*margin - labelWidth - 5, h: pageH - 2*margin - 55}

	points := make([]forecast.Point, 0, len(f.History)+len(f.Predictions))
	points = append(points, f.History...)
	points = append(points, f.Predictions...)

	maxY := 0.0
	for _, p := range points {
		maxY = math.Max(maxY, p.Quantity)
	}
	maxY = niceCeil(maxY)

	xAt := func(i int) float64 {
		if len(points) < 2 {
			return area.x + area.w/2
		}
		return area.x + area.w*float64(i)/float64(len(points)-1)
	}
	yAt := func(q float64) float64 {
		return area.y + area.h - area.h*q/maxY
	}

	drawAxes(pdf, area, maxY, "Quantity Sold")

	// month labels, thinned to at most 12
	pdf.SetFont("Helvetica", "", 8)
	step := int(math.Ceil(float64(len(points)) / 12))
	for i := 0; i < len(points); i += step {
		label := points[i].Date.Format("Jan 06")
		x := xAt(i) - pdf.GetStringWidth(label)/2
		pdf.Text(x, area.y+area.h+5, label)
	}
	pdf.SetFont("Helvetica", "", 10)
	pdf.Text(area.x+area.w/2-5, area.y+area.h+12, "Date")

	pdf.SetLineWidth(0.6)
	pdf.SetDrawColor(31, 119, 180)
	for i := 1; i < len(f.History); i++ {
		pdf.Line(xAt(i-1), yAt(f.History[i-1].Quantity), xAt(i), yAt(f.History[i].Quantity))
	}
	for i, p := range f.History {
		pdf.Circle(xAt(i), yAt(p.Quantity), 0.8, "D")
	}

	pdf.SetDrawColor(255, 127, 14)
	pdf.SetDashPattern([]float64{2, 1.5}, 0)
	last := len(f.History) - 1
	prevX, prevY := xAt(last), yAt(f.History[last].Quantity)
	for i, p := range f.Predictions {
		x, y := xAt(last+1+i), yAt(p.Quantity)
		pdf.Line(prevX, prevY, x, y)
		prevX, prevY = x, y
	}
	pdf.SetDashPattern([]float64{}, 0)

	drawLegend(pdf, area.x+area.w-55, area.y+2, []legendEntry{
		{"Historical Sales", 31, 119, 180},
		{"Predicted Sales", 255, 127, 14},
	})

	return output(pdf, w)
}

func drawStockBars(pdf *fpdf.Fpdf, area rect, products []models.Product) {
	maxStock := 0.0
	for _, p := range products {
		maxStock = math.Max(maxStock, float64(p.Stock))
	}
	maxStock = niceCeil(maxStock)

	drawAxes(pdf, area, maxStock, "Stock")

	slot := area.w / float64(len(products))
	barW := slot * 0.7
	pdf.SetFillColor(31, 119, 180)
	pdf.SetFont("Helvetica", "", 7)
	for i, p := range products {
		h := area.h * float64(p.Stock) / maxStock
		x := area.x + slot*float64(i) + (slot-barW)/2
		pdf.Rect(x, area.y+area.h-h, barW, h, "F")

		label := fit(pdf, p.Name, slot-1)
		pdf.Text(area.x+slot*float64(i)+(slot-pdf.GetStringWidth(label))/2, area.y+area.h+4, label)
	}
}

// drawAxes draws the frame, horizontal grid lines and y tick labels
func drawAxes(pdf *fpdf.Fpdf, area rect, maxY float64, yLabel string) {
	const ticks = 5

	pdf.SetFont("Helvetica", "", 8)
	pdf.SetLineWidth(0.1)
	for i := 0; i <= ticks; i++ {
		v := maxY * float64(i) / ticks
		y := area.y + area.h - area.h*float64(i)/ticks
		pdf.SetDrawColor(210, 210, 210)
		pdf.Line(area.x, y, area.x+area.w, y)
		label := strconv.FormatFloat(v, 'f', -1, 64)
		pdf.Text(area.x-pdf.GetStringWidth(label)-2, y+1, label)
	}

	pdf.SetDrawColor(0, 0, 0)
	pdf.SetLineWidth(0.3)
	pdf.Line(area.x, area.y, area.x, area.y+area.h)
	pdf.Line(area.x, area.y+area.h, area.x+area.w, area.y+area.h)

	pdf.SetFont("Helvetica", "", 10)
	pdf.Text(area.x-labelWidth+2, area.y-4, yLabel)
}

type legendEntry struct {
	label   string
	r, g, b int
}

func drawLegend(pdf *fpdf.Fpdf, x, y float64, entries []legendEntry) {
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetLineWidth(0.6)
	for i, e := range entries {
		ly := y + float64(i)*5 + 2
		pdf.SetDrawColor(e.r, e.g, e.b)
		pdf.Line(x, ly, x+8, ly)
		pdf.Text(x+10, ly+1, e.label)
	}
	pdf.SetLineWidth(0.2)
	pdf.SetDrawColor(0, 0, 0)
}

// fit truncates s with ".." so it is at most width wide in the current font
func fit(pdf *fpdf.Fpdf, s string, width float64) string {
	if pdf.GetStringWidth(s) <= width {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && pdf.GetStringWidth(string(runes)+"..") > width {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + ".."
}

// niceCeil rounds v up to 1, 2 or 5 times a power of ten; never below 1
func niceCeil(v float64) float64 {
	if v <= 1 {
		return 1
	}
	pow := math.Pow(10, math.Floor(math.Log10(v)))
	for _, m := range []float64{1, 2, 5, 10} {
		if m*pow >= v {
			return m * pow
		}
	}
	return 10 * pow
}

func output(pdf *fpdf.Fpdf, w io.Writer) error {
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("failed to render pdf: %w", err)
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to write pdf: %w", err)
	}
	return nil
}
