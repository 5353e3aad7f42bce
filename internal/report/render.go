package report

import (
	"bytes"
	"fmt"
	"html/template"
	"io"

	"github.com/facturier/facturier/internal/view"
	"github.com/facturier/facturier/web"
)

const invoiceTemplate = "reports/invoice.html"

// Renderer executes the invoice print template.
type Renderer struct {
	templates *template.Template
}

// NewRenderer parses the embedded report templates.
func NewRenderer() (*Renderer, error) {
	tpl, err := template.New("reports").ParseFS(web.Templates, "templates/reports/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse report templates: %w", err)
	}
	return &Renderer{templates: tpl}, nil
}

// Invoice writes the printable HTML of doc to w.
func (r *Renderer) Invoice(w io.Writer, doc Document) error {
	if r == nil || r.templates == nil {
		return fmt.Errorf("report renderer not initialised")
	}
	data := view.TemplateData{Title: "Facture N° " + doc.Number, Data: doc}
	return r.templates.ExecuteTemplate(w, invoiceTemplate, data)
}

// InvoiceHTML renders doc to a string.
func (r *Renderer) InvoiceHTML(doc Document) (string, error) {
	buf := &bytes.Buffer{}
	if err := r.Invoice(buf, doc); err != nil {
		return "", err
	}
	return buf.String(), nil
}
