package abp

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// Date and time layouts used across every record kind. The extracts carry
// ISO dates; anything else is rejected rather than guessed at.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05"
)

// Row is one typed record ready for insertion. Values align with the
// kind's Columns() order: int64 for integers, string for character and
// text fields, float64 for decimals, time.Time for dates, nil for NULL.
//
// Wide marks a source line that carried extra trailing fields past the
// kind's layout; the extras are ignored but the condition is counted.
type Row struct {
	Kind   *Kind
	Values []any
	Wide   bool
}

// Map converts one routed CSV line into a typed Row. Fields are read
// positionally per the kind's layout; fields[0] is the type code and is
// not mapped.
//
// A line shorter than the layout, or any single field that fails its
// type conversion, rejects the row with a *RowError naming the field and
// reason. Rejection is row-level only: the caller counts it and keeps
// streaming the file.
func (k *Kind) Map(fields []string) (Row, *RowError) {
	want := len(k.Fields) + 1
	if len(fields) < want {
		return Row{}, &RowError{
			Reason: fmt.Sprintf("%s record needs %d fields, got %d", k.Name, want, len(fields)),
		}
	}
	values := make([]any, len(k.Fields))
	for i := range k.Fields {
		f := &k.Fields[i]
		v, reason := convert(f, fields[f.Position])
		if reason != "" {
			return Row{}, &RowError{Field: f.Name, Reason: reason}
		}
		values[i] = v
	}
	return Row{Kind: k, Values: values, Wide: len(fields) > want}, nil
}

// convert maps one raw field to its typed value, or a non-empty rejection
// reason. Numeric, date and time fields tolerate surrounding whitespace;
// character and text fields are kept verbatim. Integer values must fit the
// field's column width; an oversized value rejects the row.
func convert(f *FieldSpec, raw string) (any, string) {
	switch f.Type {
	case BigInt, Int:
		s := strings.TrimSpace(raw)
		if s == "" {
			return null(f)
		}
		bits := 64
		if f.Type == Int {
			bits = 32
		}
		n, err := strconv.ParseInt(s, 10, bits)
		if err != nil {
			if errors.Is(err, strconv.ErrRange) {
				return nil, fmt.Sprintf("%q does not fit %s", raw, f.Type)
			}
			return nil, fmt.Sprintf("%q is not an integer", raw)
		}
		return n, ""

	case Decimal:
		s := strings.TrimSpace(raw)
		if s == "" {
			return null(f)
		}
		return parseDecimal(s, f.Precision, f.Scale)

	case Date:
		s := strings.TrimSpace(raw)
		if s == "" {
			return null(f)
		}
		t, err := time.Parse(DateLayout, s)
		if err != nil {
			return nil, fmt.Sprintf("%q is not a %s date", raw, DateLayout)
		}
		return t, ""

	case TimeOfDay:
		s := strings.TrimSpace(raw)
		if s == "" {
			return null(f)
		}
		if _, err := time.Parse(TimeLayout, s); err != nil {
			return nil, fmt.Sprintf("%q is not a %s time", raw, TimeLayout)
		}
		return s, ""

	case FixedChar, Text:
		if raw == "" {
			return null(f)
		}
		if utf8.RuneCountInString(raw) > f.Size {
			return nil, fmt.Sprintf("%q exceeds %d characters", raw, f.Size)
		}
		return raw, ""

	default:
		return nil, fmt.Sprintf("unhandled field type %s", f.Type)
	}
}

func null(f *FieldSpec) (any, string) {
	if !f.Nullable {
		return nil, "required field is empty"
	}
	return nil, ""
}

// parseDecimal validates a signed decimal against a declared precision and
// scale, then converts it. Fractional digits beyond the scale and integer
// digits beyond precision-scale are rejected; the value is returned as
// float64, which is exact for every width the v2.3 layouts declare.
func parseDecimal(s string, precision, scale int) (any, string) {
	body := s
	if len(body) > 0 && (body[0] == '+' || body[0] == '-') {
		body = body[1:]
	}
	intPart, fracPart, dotted := strings.Cut(body, ".")
	if body == "" || (dotted && fracPart == "") {
		return nil, fmt.Sprintf("%q is not a decimal", s)
	}
	if !allDigits(intPart) || !allDigits(fracPart) {
		return nil, fmt.Sprintf("%q is not a decimal", s)
	}
	if intPart == "" && fracPart == "" {
		return nil, fmt.Sprintf("%q is not a decimal", s)
	}
	if len(fracPart) > scale {
		return nil, fmt.Sprintf("%q has more than %d decimal places", s, scale)
	}
	if sig := len(strings.TrimLeft(intPart, "0")); sig > precision-scale {
		return nil, fmt.Sprintf("%q does not fit numeric(%d,%d)", s, precision, scale)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Sprintf("%q is not a decimal", s)
	}
	return v, ""
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
