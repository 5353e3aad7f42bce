package report

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"
)

const renderTimeout = time.Minute

// PDFExporter renders invoices to A4 PDF through Gotenberg. Concurrent
// exports of the same invoice share one render.
type PDFExporter struct {
	renderer *Renderer
	client   *Client
	group    singleflight.Group
}

// NewPDFExporter wires a renderer to a Gotenberg client.
func NewPDFExporter(renderer *Renderer, client *Client) *PDFExporter {
	return &PDFExporter{renderer: renderer, client: client}
}

// Invoice returns the PDF bytes of doc. A shared render is detached from the
// caller that started it; each caller stops waiting when its own ctx ends.
func (p *PDFExporter) Invoice(ctx context.Context, doc Document) ([]byte, error) {
	if p == nil || p.renderer == nil || p.client == nil {
		return nil, fmt.Errorf("pdf exporter not initialised")
	}
	key := doc.InvoiceID + "|" + doc.Number
	ch := p.group.DoChan(key, func() (any, error) {
		renderCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), renderTimeout)
		defer cancel()
		html, err := p.renderer.InvoiceHTML(doc)
		if err != nil {
			return nil, fmt.Errorf("render template: %w", err)
		}
		return p.client.RenderHTML(renderCtx, html, A4)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	}
}
