package probe

import (
	"strconv"
	"strings"

	"qcmeta/internal/table"
)

// ColumnType is the coarse storage type inferred for a column.
type ColumnType int

const (
	TypeText ColumnType = iota
	TypeInteger
	TypeReal
	TypeBoolean
)

func (c ColumnType) String() string {
	switch c {
	case TypeInteger:
		return "integer"
	case TypeReal:
		return "real"
	case TypeBoolean:
		return "boolean"
	default:
		return "text"
	}
}

// InferColumnTypes infers one type per column of t. Null cells are ignored;
// a column with no values is text. Integer wins over boolean, which wins over
// real, so a column of 0/1 is integer and a column of T/F is boolean.
func InferColumnTypes(t *table.Table) []ColumnType {
	out := make([]ColumnType, t.Width())
	for col := range out {
		out[col] = inferColumn(t, col)
	}
	return out
}

func inferColumn(t *table.Table, col int) ColumnType {
	var seen bool
	allInt, allReal, allBool := true, true, true

	for _, r := range t.Rows {
		if r[col] == nil {
			continue
		}
		s := strings.TrimSpace(table.FormatValue(r[col]))
		if s == "" {
			continue
		}
		seen = true

		if allInt {
			if _, err := strconv.ParseInt(s, 10, 64); err != nil {
				allInt = false
			}
		}
		if allReal {
			if _, err := strconv.ParseFloat(s, 64); err != nil {
				allReal = false
			}
		}
		if allBool {
			if _, ok := parseBoolLoose(s); !ok {
				allBool = false
			}
		}
		if !allInt && !allReal && !allBool {
			return TypeText
		}
	}

	switch {
	case !seen:
		return TypeText
	case allInt:
		return TypeInteger
	case allBool:
		return TypeBoolean
	case allReal:
		return TypeReal
	default:
		return TypeText
	}
}

// Convert returns v as a Go value of type ct: int64, float64, bool or
// string. Null stays null. ok is false when v does not parse as ct, in which
// case the text form is returned.
func Convert(v any, ct ColumnType) (out any, ok bool) {
	if v == nil {
		return nil, true
	}
	s := strings.TrimSpace(table.FormatValue(v))
	if s == "" && ct != TypeText {
		return nil, true
	}
	switch ct {
	case TypeInteger:
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, true
		}
	case TypeReal:
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f, true
		}
	case TypeBoolean:
		if b, ok := parseBoolLoose(s); ok {
			return b, true
		}
	default:
		return s, true
	}
	return s, false
}

func parseBoolLoose(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "t", "true", "yes", "y":
		return true, true
	case "0", "f", "false", "no", "n":
		return false, true
	default:
		return false, false
	}
}

// MarshalText renders the type name in JSON reports.
func (c ColumnType) MarshalText() ([]byte, error) { return []byte(c.String()), nil }
