package ubl

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"io"

	"github.com/rezonia/invoice-engine/internal/model"
)

const formatName = "UBL"

// Adapter decodes one UBL root document type
type Adapter interface {
	// Parse decodes XML content into a Document
	Parse(ctx context.Context, r io.Reader) (*Document, error)

	// CanParse returns true if adapter can handle this content
	CanParse(content []byte) bool

	// Format returns the root document type
	Format() Format
}

// Registry holds all registered adapters
type Registry struct {
	adapters []Adapter
}

// NewRegistry creates registry with the Invoice and CreditNote adapters
func NewRegistry() *Registry {
	return &Registry{
		adapters: []Adapter{
			NewInvoiceAdapter(),
			NewCreditNoteAdapter(),
		},
	}
}

// Detect identifies the adapter from the root element
func (r *Registry) Detect(content []byte) (Adapter, error) {
	for _, a := range r.adapters {
		if a.CanParse(content) {
			return a, nil
		}
	}
	return nil, model.NewParseError(formatName, "root", "unknown XML format, no matching adapter found", nil)
}

// Parse decodes content using the matching adapter
func (r *Registry) Parse(ctx context.Context, content []byte) (*Document, error) {
	adapter, err := r.Detect(content)
	if err != nil {
		return nil, err
	}
	return adapter.Parse(ctx, bytes.NewReader(content))
}

// RegisterAdapter adds a custom adapter to the registry
func (r *Registry) RegisterAdapter(a Adapter) {
	// custom adapters take priority
	r.adapters = append([]Adapter{a}, r.adapters...)
}

// GetAdapter returns adapter for a specific format
func (r *Registry) GetAdapter(format Format) Adapter {
	for _, a := range r.adapters {
		if a.Format() == format {
			return a
		}
	}
	return nil
}

// Decode reads a UBL document from r with the default adapters
func Decode(ctx context.Context, r io.Reader) (*Document, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, model.NewParseError(formatName, "content", "failed to read content", err)
	}
	return NewRegistry().Parse(ctx, content)
}

// rootAdapter decodes documents whose root element has a fixed local name
type rootAdapter struct {
	format Format
}

// NewInvoiceAdapter creates the adapter for UBL Invoice documents
func NewInvoiceAdapter() Adapter {
	return &rootAdapter{format: FormatInvoice}
}

// NewCreditNoteAdapter creates the adapter for UBL CreditNote documents
func NewCreditNoteAdapter() Adapter {
	return &rootAdapter{format: FormatCreditNote}
}

func (a *rootAdapter) Format() Format {
	return a.format
}

func (a *rootAdapter) CanParse(content []byte) bool {
	name, err := rootName(content)
	return err == nil && name == string(a.format)
}

func (a *rootAdapter) Parse(ctx context.Context, r io.Reader) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var doc Document
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, model.NewParseError(formatName, "xml", "failed to parse XML", err)
	}
	if doc.XMLName.Local != string(a.format) {
		return nil, model.NewParseError(formatName, "root", "expected <"+string(a.format)+"> root, got <"+doc.XMLName.Local+">", nil)
	}
	doc.Format = a.format

	if doc.ID == "" {
		return nil, model.NewParseError(formatName, "ID", "document identifier is missing", nil)
	}
	if len(doc.Lines()) == 0 {
		return nil, model.NewParseError(formatName, string(a.format)+"Line", "document has no lines", nil)
	}
	return &doc, nil
}

// rootName returns the local name of the first element
func rootName(content []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(content))
	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return "", model.NewParseError(formatName, "root", "document has no root element", nil)
			}
			return "", err
		}
		if start, ok := tok.(xml.StartElement); ok {
			return start.Name.Local, nil
		}
	}
}
