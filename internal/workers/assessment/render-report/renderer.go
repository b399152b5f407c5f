package renderreport

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"assessment-pipeline/internal/common/config"
	"assessment-pipeline/internal/common/logger"
	"assessment-pipeline/internal/models"
)

// DocumentRenderer turns report markup into the stored artifact bytes.
type DocumentRenderer interface {
	Name() string
	MediaType() models.MediaType
	Extension() string
	Render(ctx context.Context, markup []byte) ([]byte, error)
}

// chromeCandidates are looked up on PATH when no chrome_path is configured.
var chromeCandidates = []string{
	"google-chrome",
	"google-chrome-stable",
	"chromium",
	"chromium-browser",
	"headless-shell",
	"chrome",
}

var lookPath = exec.LookPath

// FindChrome returns the configured executable when it resolves, otherwise the first candidate on PATH.
func FindChrome(configured string) (string, bool) {
	if configured != "" {
		if p, err := lookPath(configured); err == nil {
			return p, true
		}
		return "", false
	}
	for _, name := range chromeCandidates {
		if p, err := lookPath(name); err == nil {
			return p, true
		}
	}
	return "", false
}

// NewRenderer picks the renderer once at startup.
func NewRenderer(cfg *Config, log logger.Logger) (DocumentRenderer, error) {
	switch cfg.Renderer {
	case config.RendererMarkup:
		return MarkupRenderer{}, nil
	case config.RendererPDF:
		path, ok := FindChrome(cfg.ChromePath)
		if !ok {
			return nil, fmt.Errorf("renderer pdf: no chrome executable found")
		}
		return NewPDFRenderer(path), nil
	case config.RendererAuto, "":
		if path, ok := FindChrome(cfg.ChromePath); ok {
			log.Info("using pdf renderer", map[string]interface{}{"chrome": path})
			return NewPDFRenderer(path), nil
		}
		log.Warn("no chrome executable found, reports will be written as markup", nil)
		return MarkupRenderer{}, nil
	default:
		return nil, fmt.Errorf("unknown renderer %q", cfg.Renderer)
	}
}

// MarkupRenderer stores the HTML itself.
type MarkupRenderer struct{}

func (MarkupRenderer) Name() string { return config.RendererMarkup }
func (MarkupRenderer) MediaType() models.MediaType { return models.MediaFallbackText }
func (MarkupRenderer) Extension() string { return ".html" }

func (MarkupRenderer) Render(_ context.Context, markup []byte) ([]byte, error) {
	out := make([]byte, len(markup))
	copy(out, markup)
	return out, nil
}

// PDFRenderer prints the markup through headless Chrome.
type PDFRenderer struct {
	execPath string
}

func NewPDFRenderer(execPath string) *PDFRenderer {
	return &PDFRenderer{execPath: execPath}
}

func (r *PDFRenderer) Name() string { return config.RendererPDF }
func (r *PDFRenderer) MediaType() models.MediaType { return models.MediaDocument }
func (r *PDFRenderer) Extension() string { return ".pdf" }

func (r *PDFRenderer) Render(ctx context.Context, markup []byte) ([]byte, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.ExecPath(r.execPath),
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	var pdf []byte
	err := chromedp.Run(browserCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, string(markup)).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithPreferCSSPageSize(true).
				Do(ctx)
			if err != nil {
				return err
			}
			pdf = buf
			return nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("print to pdf: %w", err)
	}
	return pdf, nil
}
