package dashsheet

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"os"
	"strings"

	"ms-registration/internal/logger"
	"ms-registration/internal/models"

	"github.com/signintech/gopdf"
)

// Letter landscape in points.
var pageLetterLandscape = gopdf.Rect{W: 792, H: 612}

// LocalRenderer draws the dash sheet with gopdf when no conversion API is
// configured. It needs a TTF font on disk.
type LocalRenderer struct {
	fontPath string
	logger   *logger.Logger
}

func NewLocalRenderer(fontPath string, log *logger.Logger) (*LocalRenderer, error) {
	if fontPath == "" {
		return nil, ErrRendererNotConfigured
	}
	if _, err := os.Stat(fontPath); err != nil {
		return nil, fmt.Errorf("%w: font %s: %v", ErrRendererNotConfigured, fontPath, err)
	}
	return &LocalRenderer{fontPath: fontPath, logger: log}, nil
}

func (g *LocalRenderer) Render(_ context.Context, data models.DashSheetData) ([]byte, error) {
	pdf := &gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: pageLetterLandscape})
	pdf.AddPage()

	if err := pdf.AddTTFFont("dejavu", g.fontPath); err != nil {
		return nil, fmt.Errorf("failed to load font: %w", err)
	}

	// Border
	pdf.SetLineWidth(8)
	pdf.SetStrokeColor(15, 76, 117)
	pdf.RectFromUpperLeftWithStyle(18, 18, pageLetterLandscape.W-36, pageLetterLandscape.H-36, "D")

	if err := addHeader(pdf); err != nil {
		return nil, err
	}
	if err := addEntryNumber(pdf, data); err != nil {
		return nil, err
	}
	if err := addVehicle(pdf, data); err != nil {
		return nil, err
	}

	qr, err := CheckInQR(data, 256)
	if err != nil {
		g.logger.Warn("DASHSHEET", fmt.Sprintf("QR code generation failed: %v", err))
	} else {
		addQRCode(pdf, qr)
	}

	var buf bytes.Buffer
	if err := pdf.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write PDF: %w", err)
	}
	g.logger.Info("DASHSHEET", fmt.Sprintf("Local PDF generated for entry %03d, size: %d bytes", data.EntryNumber, buf.Len()))
	return buf.Bytes(), nil
}

func centered(pdf *gopdf.GoPdf, y, h float64, text string) error {
	pdf.SetXY(0, y)
	return pdf.CellWithOption(&gopdf.Rect{W: pageLetterLandscape.W, H: h}, text, gopdf.CellOption{Align: gopdf.Center | gopdf.Middle})
}

func addHeader(pdf *gopdf.GoPdf) error {
	if err := pdf.SetFont("dejavu", "", 26); err != nil {
		return fmt.Errorf("failed to set font: %w", err)
	}
	pdf.SetTextColor(29, 39, 51)
	if err := centered(pdf, 50, 34, "FATHER'S DAY SHOW AND SHINE"); err != nil {
		return err
	}
	if err := pdf.SetFont("dejavu", "", 14); err != nil {
		return err
	}
	return centered(pdf, 86, 20, "Seaside Cruizers · June 19-21, 2026 · Parksville - Qualicum Beach")
}

func addEntryNumber(pdf *gopdf.GoPdf, data models.DashSheetData) error {
	entry := "000"
	if data.EntryNumber > 0 {
		entry = fmt.Sprintf("%03d", data.EntryNumber)
	}

	if err := pdf.SetFont("dejavu", "", 18); err != nil {
		return err
	}
	pdf.SetTextColor(50, 130, 184)
	if err := centered(pdf, 140, 24, "ENTRY NUMBER"); err != nil {
		return err
	}

	if err := pdf.SetFont("dejavu", "", 150); err != nil {
		return err
	}
	pdf.SetTextColor(192, 57, 43)
	if err := centered(pdf, 170, 160, entry); err != nil {
		return err
	}

	if data.PokerRunNumber > 0 {
		if err := pdf.SetFont("dejavu", "", 18); err != nil {
			return err
		}
		pdf.SetTextColor(29, 39, 51)
		return centered(pdf, 335, 24, fmt.Sprintf("Poker Run # %03d", data.PokerRunNumber))
	}
	return nil
}

func addVehicle(pdf *gopdf.GoPdf, data models.DashSheetData) error {
	pdf.SetTextColor(29, 39, 51)
	if err := pdf.SetFont("dejavu", "", 32); err != nil {
		return err
	}
	vehicle := strings.TrimSpace(data.Year + " " + data.Make + " " + data.Model)
	if err := centered(pdf, 380, 44, vehicle); err != nil {
		return err
	}

	if err := pdf.SetFont("dejavu", "", 18); err != nil {
		return err
	}
	pdf.SetXY(60, 500)
	if err := pdf.Cell(nil, "Owner: "+data.OwnerName); err != nil {
		return err
	}
	location := strings.Trim(data.City+", "+data.Province, ", ")
	pdf.SetXY(60, 530)
	return pdf.Cell(nil, location)
}

func addQRCode(pdf *gopdf.GoPdf, qrCode []byte) {
	img, err := png.Decode(bytes.NewReader(qrCode))
	if err != nil {
		return
	}
	rect := &gopdf.Rect{W: 110, H: 110}
	_ = pdf.ImageFrom(img, pageLetterLandscape.W-170, pageLetterLandscape.H-170, rect)
}
