package dashsheet

import (
	"fmt"
	"strings"

	"ms-registration/internal/models"

	"github.com/skip2/go-qrcode"
)

// CheckInCode is the text encoded in the dash-sheet QR code.
func CheckInCode(data models.DashSheetData) string {
	vehicle := strings.TrimSpace(data.Year + " " + data.Make + " " + data.Model)
	return fmt.Sprintf("ENTRY-%03d|%s|%s", data.EntryNumber, data.OwnerName, vehicle)
}

// CheckInQR renders CheckInCode as a PNG of size pixels.
func CheckInQR(data models.DashSheetData, size int) ([]byte, error) {
	return qrcode.Encode(CheckInCode(data), qrcode.Medium, size)
}
