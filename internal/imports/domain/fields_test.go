package domain

import (
	"reflect"
	"strings"
	"testing"

	"leadboard_backend/platform/validator"
)

func TestSuggestMapping(t *testing.T) {
	headers := []string{"Nombre completo", "Teléfono Celular", "E-mail", "DNI", "Fecha de registro", "Nombres"}
	got := SuggestMapping(headers)

	want := Mapping{
		"Nombre completo":  FieldName,
		"Teléfono Celular": FieldPhone,
		"E-mail":           FieldEmail,
		"DNI":              FieldDocumentID,
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestSuggestMappingPrefersExactMatch(t *testing.T) {
	got := SuggestMapping([]string{"Nombre del asesor", "NOMBRE"})
	if got["NOMBRE"] != FieldName {
		t.Fatalf("exact header should win, got %v", got)
	}
	if _, ok := got["Nombre del asesor"]; ok {
		t.Fatalf("field must be suggested once, got %v", got)
	}
}

func TestMissingRequired(t *testing.T) {
	if missing := (Mapping{"Correo": FieldEmail}).MissingRequired(); !reflect.DeepEqual(missing, []string{FieldName, FieldPhone}) {
		t.Fatalf("unexpected missing fields %v", missing)
	}
	if missing := (Mapping{"a": FieldName, "b": FieldPhone}).MissingRequired(); len(missing) != 0 {
		t.Fatalf("expected none missing, got %v", missing)
	}
}

func TestRowValidator(t *testing.T) {
	headers := []string{"Nombre", "Celular", "Correo", "Notas"}
	mapping := Mapping{"Nombre": FieldName, "Celular": FieldPhone, "Correo": FieldEmail, "Notas": FieldNotes}
	v := NewRowValidator(validator.New(), "PE", headers, mapping)

	tests := []struct {
		name   string
		values []string
		issue  string
	}{
		{"valid", []string{" Ana  María ", "912 345 678", "ANA@EXAMPLE.COM", "<b>hola</b>"}, ""},
		{"missing name", []string{"", "912345678", "", ""}, "name is required"},
		{"bad email", []string{"Ana", "912345678", "not-an-email", ""}, "email is not a valid email address"},
		{"bad phone", []string{"Ana", "12", "", ""}, "not a valid phone number"},
		{"too long", []string{"Ana", "912345678", "", strings.Repeat("x", 2001)}, "notes must be at most 2000 characters"},
		{"malformed", []string{"Ana", "912345678"}, "malformed row"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, issues := v.Validate(Row{Number: 2, Values: tt.values})
			if tt.issue == "" {
				if issues != nil {
					t.Fatalf("unexpected issues %v", issues)
				}
				if in.Name != "Ana María" || in.Phone != "+51912345678" || in.Email != "ana@example.com" || in.Notes != "hola" {
					t.Fatalf("unexpected input %+v", in)
				}
				return
			}
			if len(issues) == 0 || !strings.Contains(strings.Join(issues, "; "), tt.issue) {
				t.Fatalf("expected issue containing %q, got %v", tt.issue, issues)
			}
		})
	}
}
