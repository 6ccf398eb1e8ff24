// Package domain holds the import pipeline model: the field catalog, table
// parsing, mapping suggestion and row validation.
package domain

import (
	"strings"

	leadsdomain "leadboard_backend/internal/leads/domain"
)

// Field keys of the lead field catalog.
const (
	FieldName       = "name"
	FieldPhone      = "phone"
	FieldEmail      = "email"
	FieldDocumentID = "document_id"
	FieldCity       = "city"
	FieldOccupation = "occupation"
	FieldNotes      = "notes"
)

// Field is one importable lead attribute.
type Field struct {
	Key      string   `json:"key"`
	Label    string   `json:"label"`
	Required bool     `json:"required"`
	Aliases  []string `json:"aliases,omitempty"`
	// Rule is the validator tag applied to a non-empty value.
	Rule string `json:"-"`
}

var fieldCatalog = []Field{
	{Key: FieldName, Label: "Nombre", Required: true, Rule: "max=200",
		Aliases: []string{"name", "nombres", "nombre completo", "full name", "cliente", "contacto", "razon social"}},
	{Key: FieldPhone, Label: "Teléfono", Required: true, Rule: "max=40",
		Aliases: []string{"phone", "telefono", "celular", "movil", "mobile", "whatsapp", "tel", "nro celular"}},
	{Key: FieldEmail, Label: "Correo", Rule: "email,max=254",
		Aliases: []string{"email", "e mail", "mail", "correo electronico"}},
	{Key: FieldDocumentID, Label: "Documento", Rule: "max=40",
		Aliases: []string{"document id", "dni", "ruc", "cedula", "nro documento", "documento de identidad"}},
	{Key: FieldCity, Label: "Ciudad", Rule: "max=100",
		Aliases: []string{"city", "distrito", "provincia", "localidad"}},
	{Key: FieldOccupation, Label: "Ocupación", Rule: "max=100",
		Aliases: []string{"occupation", "profesion", "cargo", "oficio", "puesto"}},
	{Key: FieldNotes, Label: "Notas", Rule: "max=2000",
		Aliases: []string{"notes", "observaciones", "comentarios", "comentario", "nota"}},
}

// Fields returns the field catalog in display order.
func Fields() []Field {
	out := make([]Field, len(fieldCatalog))
	copy(out, fieldCatalog)
	return out
}

// LookupField returns the field with key.
func LookupField(key string) (Field, bool) {
	for _, f := range fieldCatalog {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}

// Mapping maps a header of the uploaded table to a field key.
type Mapping map[string]string

// MissingRequired returns the required field keys no header maps to, in
// catalog order.
func (m Mapping) MissingRequired() []string {
	mapped := make(map[string]bool, len(m))
	for _, field := range m {
		mapped[field] = true
	}
	var missing []string
	for _, f := range fieldCatalog {
		if f.Required && !mapped[f.Key] {
			missing = append(missing, f.Key)
		}
	}
	return missing
}

// Columns resolves the mapping against headers and returns field key ->
// column index.
func (m Mapping) Columns(headers []string) map[string]int {
	index := make(map[string]int, len(headers))
	for i, h := range headers {
		if _, dup := index[h]; !dup {
			index[h] = i
		}
	}
	out := make(map[string]int, len(m))
	for header, field := range m {
		if i, ok := index[header]; ok {
			out[field] = i
		}
	}
	return out
}

// SuggestMapping fuzzy-matches headers against field keys, labels and
// aliases. Exact normalized matches win over containment, and each field is
// suggested at most once. Headers with no match are left out.
func SuggestMapping(headers []string) Mapping {
	suggested := make(Mapping)
	used := make(map[string]bool)

	normalized := make([]string, len(headers))
	for i, h := range headers {
		normalized[i] = leadsdomain.Normalize(h)
	}

	assign := func(match func(header string, candidates []string) bool) {
		for i, h := range headers {
			if _, done := suggested[h]; done || normalized[i] == "" {
				continue
			}
			for _, f := range fieldCatalog {
				if used[f.Key] {
					continue
				}
				if match(normalized[i], candidatesFor(f)) {
					suggested[h] = f.Key
					used[f.Key] = true
					break
				}
			}
		}
	}

	assign(func(header string, candidates []string) bool {
		for _, c := range candidates {
			if header == c {
				return true
			}
		}
		return false
	})
	assign(func(header string, candidates []string) bool {
		for _, c := range candidates {
			if len(c) >= 3 && (strings.Contains(header, c) || (len(header) >= 3 && strings.Contains(c, header))) {
				return true
			}
		}
		return false
	})
	return suggested
}

func candidatesFor(f Field) []string {
	out := []string{leadsdomain.Normalize(f.Key), leadsdomain.Normalize(f.Label)}
	for _, a := range f.Aliases {
		out = append(out, leadsdomain.Normalize(a))
	}
	return out
}
