package domain

import (
	"fmt"
	"strings"

	"leadboard_backend/platform/phone"
	"leadboard_backend/platform/sanitize"
	"leadboard_backend/platform/validator"
)

// LeadInput is a validated, normalized row.
type LeadInput struct {
	Name       string
	Phone      string
	Email      string
	DocumentID string
	City       string
	Occupation string
	Notes      string
}

// RowValidator turns raw rows into lead input.
type RowValidator struct {
	val     *validator.Validator
	region  string
	headers int
	columns map[string]int
}

// NewRowValidator binds a mapping to the header row of a file.
func NewRowValidator(val *validator.Validator, region string, headers []string, mapping Mapping) *RowValidator {
	return &RowValidator{
		val:     val,
		region:  region,
		headers: len(headers),
		columns: mapping.Columns(headers),
	}
}

// Validate checks one row. A nil issue list means the input is usable.
func (v *RowValidator) Validate(row Row) (LeadInput, []string) {
	if len(row.Values) != v.headers {
		return LeadInput{}, []string{fmt.Sprintf("malformed row: expected %d columns, got %d", v.headers, len(row.Values))}
	}

	var issues []string
	values := make(map[string]string, len(v.columns))
	for _, f := range fieldCatalog {
		raw := v.cell(row, f.Key)
		value := clean(f.Key, raw)
		if value == "" {
			if f.Required {
				issues = append(issues, fmt.Sprintf("%s is required", f.Key))
			}
			continue
		}
		if err := v.val.Var(value, f.Rule); err != nil {
			issues = append(issues, validator.DescribeVar(err, f.Key)...)
			continue
		}
		values[f.Key] = value
	}

	if raw := values[FieldPhone]; raw != "" {
		normalized, ok := phone.NormalizeE164(raw, v.region)
		if !ok {
			issues = append(issues, fmt.Sprintf("phone %q is not a valid phone number", raw))
		}
		values[FieldPhone] = normalized
	}

	if len(issues) > 0 {
		return LeadInput{}, issues
	}
	return LeadInput{
		Name:       values[FieldName],
		Phone:      values[FieldPhone],
		Email:      strings.ToLower(values[FieldEmail]),
		DocumentID: values[FieldDocumentID],
		City:       values[FieldCity],
		Occupation: values[FieldOccupation],
		Notes:      values[FieldNotes],
	}, nil
}

func (v *RowValidator) cell(row Row, field string) string {
	i, ok := v.columns[field]
	if !ok || i >= len(row.Values) {
		return ""
	}
	return row.Values[i]
}

func clean(field, raw string) string {
	if field == FieldNotes {
		return sanitize.Text(raw)
	}
	return sanitize.Line(raw)
}
