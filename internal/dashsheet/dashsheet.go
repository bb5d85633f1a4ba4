// Package dashsheet renders the personalised PDF displayed on a registrant's
// dashboard during the show.
package dashsheet

import (
	"context"
	"errors"

	"ms-registration/internal/logger"
	"ms-registration/internal/models"
)

// ErrRendererNotConfigured is returned when neither PDFShift nor a local
// font is available.
var ErrRendererNotConfigured = errors.New("dash sheet renderer not configured")

type Renderer interface {
	Render(ctx context.Context, data models.DashSheetData) ([]byte, error)
}

type Options struct {
	PDFShiftAPIKey string
	TemplatePath   string
	LogoPath       string
	FontPath       string
	Logger         *logger.Logger
}

// NewRenderer prefers PDFShift, falls back to the local gopdf renderer, and
// otherwise returns a renderer that always fails with ErrRendererNotConfigured.
func NewRenderer(opts Options) (Renderer, error) {
	if opts.PDFShiftAPIKey != "" {
		tmpl, err := LoadTemplate(opts.TemplatePath, opts.LogoPath)
		if err != nil {
			return nil, err
		}
		opts.Logger.Info("DASHSHEET", "Using PDFShift for dash sheet rendering")
		return NewPDFShiftRenderer(PDFShiftOptions{APIKey: opts.PDFShiftAPIKey, Template: tmpl, Logger: opts.Logger})
	}

	local, err := NewLocalRenderer(opts.FontPath, opts.Logger)
	if err == nil {
		opts.Logger.Info("DASHSHEET", "PDFSHIFT_API_KEY not set, using local renderer")
		return local, nil
	}

	opts.Logger.Warn("DASHSHEET", "No dash sheet renderer available: "+err.Error())
	return unconfigured{err: err}, nil
}

type unconfigured struct{ err error }

func (u unconfigured) Render(context.Context, models.DashSheetData) ([]byte, error) {
	return nil, u.err
}
