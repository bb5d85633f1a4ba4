package dashsheet

import (
	_ "embed"
	"encoding/base64"
	"fmt"
	"html"
	"net/http"
	"os"
	"strings"

	"ms-registration/internal/models"
)

//go:embed templates/dashsheet.html
var defaultTemplate string

// logoSrc is the image reference replaced by the inlined logo.
const logoSrc = `src="seaside-cruizers.jpg"`

// RequiredPlaceholders must appear in every dash-sheet template.
var RequiredPlaceholders = []string{
	"{{entryNumber}}",
	"{{year}}",
	"{{make}}",
	"{{model}}",
	"{{ownerName}}",
	"{{city}}",
	"{{province}}",
}

// Template is a dash-sheet HTML document with {{name}} placeholders.
type Template struct {
	html string
	logo string // data URI, may be empty
}

// LoadTemplate reads the override at path, or the embedded default when path
// is empty. logoPath, when set, is inlined as a base64 data URI.
func LoadTemplate(path, logoPath string) (*Template, error) {
	t := &Template{html: defaultTemplate}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read dash sheet template: %w", err)
		}
		t.html = string(b)
	}
	if logoPath != "" {
		b, err := os.ReadFile(logoPath)
		if err != nil {
			return nil, fmt.Errorf("read dash sheet logo: %w", err)
		}
		t.logo = fmt.Sprintf("data:%s;base64,%s", http.DetectContentType(b), base64.StdEncoding.EncodeToString(b))
	}
	return t, nil
}

// NewTemplate wraps raw template HTML.
func NewTemplate(raw string) *Template {
	return &Template{html: raw}
}

// MissingPlaceholders lists required placeholders absent from the template.
func (t *Template) MissingPlaceholders() []string {
	var missing []string
	for _, p := range RequiredPlaceholders {
		if !strings.Contains(t.html, p) {
			missing = append(missing, p)
		}
	}
	return missing
}

// HasLogoReference reports whether the template references the logo image.
func (t *Template) HasLogoReference() bool {
	return strings.Contains(t.html, logoSrc)
}

// Populate substitutes data into the template. A zero entry number renders as
// "000"; a zero Poker Run number hides the Poker Run line.
func (t *Template) Populate(data models.DashSheetData) string {
	entry := "000"
	if data.EntryNumber > 0 {
		entry = fmt.Sprintf("%03d", data.EntryNumber)
	}
	pokerRun, pokerRunStyle := "", "display:none"
	if data.PokerRunNumber > 0 {
		pokerRun, pokerRunStyle = fmt.Sprintf("%03d", data.PokerRunNumber), ""
	}

	r := strings.NewReplacer(
		"{{entryNumber}}", entry,
		"{{pokerRunNumber}}", pokerRun,
		"{{pokerRunStyle}}", pokerRunStyle,
		"{{year}}", html.EscapeString(data.Year),
		"{{make}}", html.EscapeString(data.Make),
		"{{model}}", html.EscapeString(data.Model),
		"{{ownerName}}", html.EscapeString(data.OwnerName),
		"{{city}}", html.EscapeString(data.City),
		"{{province}}", html.EscapeString(data.Province),
	)
	out := r.Replace(t.html)
	return strings.Replace(out, logoSrc, fmt.Sprintf(`src="%s"`, t.logo), 1)
}
