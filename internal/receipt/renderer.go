package receipt

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/GimhanaMahela/BusWatch/internal/models"

	"github.com/h2non/filetype"
	"github.com/jung-kurt/gofpdf"
	"github.com/sirupsen/logrus"
)

// Renderer produces the PDF receipt for a submitted report. Evidence images
// are fetched over the network; a single unreachable or undecodable image
// degrades to a placeholder line instead of failing the document.
type Renderer struct {
	client *http.Client
}

func NewRenderer(client *http.Client) *Renderer {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Renderer{client: client}
}

const (
	maxImageBoxHeight = 110.0 // mm
	maxImageBytes     = 20 << 20
)

type fetchedImage struct {
	data []byte
	ok   bool
}

// Render lays out the receipt document and returns it as PDF bytes. Only an
// error from the underlying PDF writer is fatal.
func (r *Renderer) Render(ctx context.Context, report models.Report) ([]byte, error) {
	images := r.fetchImages(ctx, report.Images)

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("BusWatch Incident Report "+report.ReceiptID, false)
	pdf.AliasNbPages("")
	pdf.SetAutoPageBreak(true, 20)

	// Page numbers are stamped via the footer hook; the total comes from the
	// alias substituted when the document is closed, after all content is
	// laid out.
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "", 8)
		pdf.SetTextColor(102, 102, 102)
		pdf.CellFormat(0, 6, fmt.Sprintf("Page %d of {nb}", pdf.PageNo()), "", 0, "R", false, 0, "")
	})

	generatedAt := time.Now().Format("January 2, 2006 15:04")

	r.coverPage(pdf, report.ReceiptID, generatedAt)
	r.detailPage(pdf, report, generatedAt)
	if len(report.Images) > 0 {
		r.evidenceSection(pdf, report.Images, images)
	}
	r.footerSection(pdf, report.ReceiptID)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to write receipt PDF: %w", err)
	}
	return buf.Bytes(), nil
}

// fetchImages downloads every evidence image concurrently and joins before
// layout starts. Failures are recorded, not propagated.
func (r *Renderer) fetchImages(ctx context.Context, urls []string) []fetchedImage {
	results := make([]fetchedImage, len(urls))

	var wg sync.WaitGroup
	for i, url := range urls {
		wg.Add(1)
		go func(i int, url string) {
			defer wg.Done()

			data, err := r.fetchOne(ctx, url)
			if err != nil {
				logrus.WithError(err).WithField("url", url).Warn("failed to download evidence image")
				return
			}
			results[i] = fetchedImage{data: data, ok: true}
		}(i, url)
	}
	wg.Wait()

	return results
}

func (r *Renderer) fetchOne(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
}

func (r *Renderer) coverPage(pdf *gofpdf.Fpdf, receiptID, generatedAt string) {
	pdf.AddPage()
	pageW, pageH := pdf.GetPageSize()

	pdf.SetFillColor(248, 249, 250)
	pdf.Rect(0, 0, pageW, pageH, "F")

	pdf.SetTextColor(0, 86, 179)
	pdf.SetFont("Helvetica", "B", 36)
	pdf.SetXY(0, pageH/2-75)
	pdf.CellFormat(pageW, 14, "BusWatch", "", 1, "C", false, 0, "")

	pdf.SetTextColor(102, 102, 102)
	pdf.SetFont("Helvetica", "I", 16)
	pdf.CellFormat(pageW, 10, "Public Transport Monitoring System", "", 1, "C", false, 0, "")

	pdf.SetTextColor(51, 51, 51)
	pdf.SetFont("Helvetica", "B", 40)
	pdf.SetXY(0, pageH/2-10)
	pdf.CellFormat(pageW, 16, "INCIDENT", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "B", 48)
	pdf.CellFormat(pageW, 20, "REPORT", "", 1, "C", false, 0, "")

	pdf.SetDrawColor(255, 140, 0)
	pdf.SetLineWidth(1.5)
	pdf.Line(pageW/2-22, pageH/2+35, pageW/2+22, pageH/2+35)

	pdf.SetTextColor(102, 102, 102)
	pdf.SetFont("Helvetica", "", 11)
	pdf.SetXY(0, pageH-40)
	pdf.CellFormat(pageW, 6, "Report ID: "+receiptID, "", 1, "C", false, 0, "")
	pdf.CellFormat(pageW, 6, "Date: "+generatedAt, "", 1, "C", false, 0, "")
}

func (r *Renderer) detailPage(pdf *gofpdf.Fpdf, report models.Report, generatedAt string) {
	pdf.AddPage()

	pdf.SetTextColor(51, 51, 51)
	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(0, 10, "Incident Report Details", "", 1, "L", false, 0, "")

	r.rule(pdf, 0, 86, 179, 0.8)
	pdf.Ln(6)

	pdf.SetTextColor(0, 86, 179)
	pdf.SetFont("Helvetica", "BU", 14)
	pdf.CellFormat(0, 8, "Report Summary", "", 1, "L", false, 0, "")
	pdf.Ln(1)

	r.summaryLine(pdf, "Unique Report Identifier: ", report.ReceiptID)
	r.summaryLine(pdf, "Report Generated On: ", generatedAt)
	pdf.Ln(6)

	pdf.SetTextColor(0, 86, 179)
	pdf.SetFont("Helvetica", "BU", 14)
	pdf.CellFormat(0, 8, "Incident Overview", "", 1, "L", false, 0, "")
	pdf.Ln(2)

	busName := report.BusName
	if busName == "" {
		busName = "N/A"
	}
	rows := []struct {
		label string
		value string
	}{
		{"Bus Number", report.BusNumber},
		{"Route Number", report.RouteNumber},
		{"Bus Name", busName},
		{"Location of Incident", report.Location},
		{"Date & Time of Incident", report.ReportedAt.Format("Jan 2, 2006 3:04 PM")},
		{"Detailed Description", report.Description},
	}

	left, _, right, _ := pdf.GetMargins()
	pageW, _ := pdf.GetPageSize()
	contentW := pageW - left - right
	labelW := 60.0
	valueW := contentW - labelW - 4

	for i, row := range rows {
		// Measure the wrapped value before placing the row so the estimate,
		// not an overflow, decides the page break.
		pdf.SetFont("Helvetica", "B", 11)
		lines := pdf.SplitLines([]byte(row.value), valueW)
		rowH := float64(len(lines))*5.5 + 4
		if rowH < 10 {
			rowH = 10
		}
		r.ensureSpace(pdf, rowH)

		y := pdf.GetY()
		if i%2 == 0 {
			pdf.SetFillColor(248, 249, 250)
			pdf.Rect(left, y, contentW, rowH, "F")
		}

		pdf.SetTextColor(102, 102, 102)
		pdf.SetFont("Helvetica", "", 10)
		pdf.SetXY(left, y+2)
		pdf.MultiCell(labelW, 5.5, row.label+":", "", "L", false)

		pdf.SetTextColor(51, 51, 51)
		pdf.SetFont("Helvetica", "B", 11)
		pdf.SetXY(left+labelW+4, y+2)
		pdf.MultiCell(valueW, 5.5, row.value, "", "L", false)

		pdf.SetY(y + rowH)
	}
	pdf.Ln(6)
}

func (r *Renderer) evidenceSection(pdf *gofpdf.Fpdf, urls []string, images []fetchedImage) {
	pdf.AddPage()

	pdf.SetTextColor(0, 86, 179)
	pdf.SetFont("Helvetica", "BU", 14)
	pdf.CellFormat(0, 8, "Attached Evidence", "", 1, "L", false, 0, "")

	pdf.SetTextColor(102, 102, 102)
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Total %d image(s) attached to this report:", len(urls)), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	for i, img := range images {
		caption := fmt.Sprintf("Image %d of %d", i+1, len(urls))
		if !img.ok {
			r.placeholder(pdf, fmt.Sprintf("[%s unavailable or failed to download]", caption))
			continue
		}
		r.embedImage(pdf, img.data, i, caption)
	}
}

// embedImage scales the image into the content box preserving aspect ratio,
// never upscaling, and falls back to a placeholder when the bytes cannot be
// decoded.
func (r *Renderer) embedImage(pdf *gofpdf.Fpdf, data []byte, index int, caption string) {
	imgType, err := detectImageType(data)
	if err != nil {
		logrus.WithError(err).Warn("failed to decode evidence image")
		r.placeholder(pdf, fmt.Sprintf("[Failed to display image: %s]", caption))
		return
	}

	name := fmt.Sprintf("evidence-%d", index)
	opts := gofpdf.ImageOptions{ImageType: imgType, ReadDpi: true}
	info := pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))
	if pdf.Err() {
		logrus.WithField("error", pdf.Error()).Warn("failed to register evidence image")
		pdf.ClearError()
		r.placeholder(pdf, fmt.Sprintf("[Failed to display image: %s]", caption))
		return
	}

	left, _, right, _ := pdf.GetMargins()
	pageW, _ := pdf.GetPageSize()
	maxW := pageW - left - right - 10

	w, h := info.Extent()
	if w > maxW {
		ratio := maxW / w
		w = maxW
		h = h * ratio
	}
	if h > maxImageBoxHeight {
		ratio := maxImageBoxHeight / h
		h = maxImageBoxHeight
		w = w * ratio
	}

	// Image plus caption must fit; otherwise start a fresh page.
	r.ensureSpace(pdf, h+14)

	x := left + (pageW-left-right-w)/2
	y := pdf.GetY()
	pdf.ImageOptions(name, x, y, w, h, false, opts, 0, "")
	pdf.SetDrawColor(224, 224, 224)
	pdf.SetLineWidth(0.3)
	pdf.Rect(x-1, y-1, w+2, h+2, "D")
	pdf.SetY(y + h + 3)

	pdf.SetTextColor(102, 102, 102)
	pdf.SetFont("Helvetica", "I", 9)
	pdf.CellFormat(0, 5, caption, "", 1, "C", false, 0, "")
	pdf.Ln(5)
}

func (r *Renderer) footerSection(pdf *gofpdf.Fpdf, receiptID string) {
	// Rough height of the whole acknowledgment block.
	r.ensureSpace(pdf, 55)

	r.rule(pdf, 224, 224, 224, 0.3)
	pdf.Ln(5)

	pdf.SetTextColor(40, 167, 69)
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 8, "Report Successfully Submitted", "", 1, "C", false, 0, "")
	pdf.Ln(1)

	pdf.SetTextColor(102, 102, 102)
	pdf.SetFont("Helvetica", "", 10)
	pdf.MultiCell(0, 5.5, "Thank you for contributing to safer public transportation. Your report has been recorded and will be reviewed by our team.", "", "C", false)
	pdf.Ln(4)

	pdf.SetTextColor(0, 86, 179)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(0, 5, "Need to reference this report?", "", 1, "C", false, 0, "")

	pdf.SetTextColor(51, 51, 51)
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(0, 5, "Please provide this Report ID: "+receiptID, "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 5, "For follow-up inquiries, contact support@buswatch.example.com", "", 1, "C", false, 0, "")
}

func (r *Renderer) placeholder(pdf *gofpdf.Fpdf, text string) {
	r.ensureSpace(pdf, 10)
	pdf.SetTextColor(102, 102, 102)
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, text, "", 1, "C", false, 0, "")
	pdf.Ln(4)
}

// ensureSpace starts a new page when the next block would not fit below the
// current position.
func (r *Renderer) ensureSpace(pdf *gofpdf.Fpdf, need float64) {
	_, pageH := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	if pdf.GetY()+need > pageH-bottom-8 {
		pdf.AddPage()
	}
}

func (r *Renderer) rule(pdf *gofpdf.Fpdf, red, green, blue int, width float64) {
	left, _, right, _ := pdf.GetMargins()
	pageW, _ := pdf.GetPageSize()
	y := pdf.GetY()
	pdf.SetDrawColor(red, green, blue)
	pdf.SetLineWidth(width)
	pdf.Line(left, y, pageW-right, y)
}

func (r *Renderer) summaryLine(pdf *gofpdf.Fpdf, label, value string) {
	pdf.SetTextColor(102, 102, 102)
	pdf.SetFont("Helvetica", "", 10)
	labelW := pdf.GetStringWidth(label) + 1
	pdf.CellFormat(labelW, 6, label, "", 0, "L", false, 0, "")
	pdf.SetTextColor(51, 51, 51)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(0, 6, value, "", 1, "L", false, 0, "")
}

// detectImageType maps the image's magic bytes to the type tag gofpdf
// expects, after verifying the standard library can actually decode it.
func detectImageType(data []byte) (string, error) {
	kind, err := filetype.Match(data)
	if err != nil {
		return "", err
	}

	var imgType string
	switch kind.Extension {
	case "png":
		imgType = "PNG"
	case "jpg":
		imgType = "JPG"
	case "gif":
		imgType = "GIF"
	default:
		return "", fmt.Errorf("unsupported image format %q", kind.MIME.Value)
	}

	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("undecodable image: %w", err)
	}
	return imgType, nil
}
