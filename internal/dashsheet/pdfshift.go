package dashsheet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"ms-registration/internal/logger"
	"ms-registration/internal/models"
)

const DefaultPDFShiftEndpoint = "https://api.pdfshift.io/v3/convert/pdf"

// PDFShiftRenderer converts the populated template through the PDFShift API.
type PDFShiftRenderer struct {
	apiKey   string
	endpoint string
	client   *http.Client
	tmpl     *Template
	logger   *logger.Logger
}

type PDFShiftOptions struct {
	APIKey     string
	Endpoint   string
	HTTPClient *http.Client
	Template   *Template
	Logger     *logger.Logger
}

func NewPDFShiftRenderer(opts PDFShiftOptions) (*PDFShiftRenderer, error) {
	if opts.APIKey == "" {
		return nil, ErrRendererNotConfigured
	}
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultPDFShiftEndpoint
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if opts.Template == nil {
		opts.Template = NewTemplate(defaultTemplate)
	}
	return &PDFShiftRenderer{
		apiKey:   opts.APIKey,
		endpoint: opts.Endpoint,
		client:   opts.HTTPClient,
		tmpl:     opts.Template,
		logger:   opts.Logger,
	}, nil
}

type pdfShiftMargin struct {
	Top    string `json:"top"`
	Right  string `json:"right"`
	Bottom string `json:"bottom"`
	Left   string `json:"left"`
}

type pdfShiftRequest struct {
	Source    string         `json:"source"`
	Format    string         `json:"format"`
	Margin    pdfShiftMargin `json:"margin"`
	Landscape bool           `json:"landscape"`
	UsePrint  bool           `json:"use_print"`
}

func (r *PDFShiftRenderer) Render(ctx context.Context, data models.DashSheetData) ([]byte, error) {
	body, err := json.Marshal(pdfShiftRequest{
		Source:    r.tmpl.Populate(data),
		Format:    "Letter",
		Margin:    pdfShiftMargin{Top: "0", Right: "0", Bottom: "0", Left: "0"},
		Landscape: true,
		UsePrint:  true,
	})
	if err != nil {
		return nil, fmt.Errorf("encode pdfshift request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth("api", r.apiKey)
	req.Header.Set("Content-Type", "application/json")

	r.logger.Info("DASHSHEET", fmt.Sprintf("Converting dash sheet %03d with PDFShift", data.EntryNumber))
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pdfshift request: %w", err)
	}
	defer resp.Body.Close()

	pdf, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read pdfshift response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		r.logger.Error("DASHSHEET", fmt.Sprintf("PDFShift API error: %d %s", resp.StatusCode, bytes.TrimSpace(pdf)))
		return nil, fmt.Errorf("pdfshift API error: %d - %s", resp.StatusCode, bytes.TrimSpace(pdf))
	}

	r.logger.Info("DASHSHEET", fmt.Sprintf("PDF generated successfully, size: %d bytes", len(pdf)))
	return pdf, nil
}
