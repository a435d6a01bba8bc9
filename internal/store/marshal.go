package store

import (
	"database/sql"
	"fmt"

	"github.com/roach88/lambdaq/internal/ir"
)

// Version columns are compared against these. Tests override them to
// simulate rows left by an older translator.
var (
	translatorVersion = ir.TranslatorVersion
	encodingVersion   = ir.EncodingVersion
)

// marshalValue converts an IR value to canonical JSON TEXT. A nil value is
// stored as SQL NULL.
func marshalValue(v ir.IRValue) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("marshal value: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

// unmarshalValue parses TEXT written by marshalValue.
func unmarshalValue(data sql.NullString) (ir.IRValue, error) {
	if !data.Valid {
		return nil, nil
	}
	v, err := ir.UnmarshalIRValue([]byte(data.String))
	if err != nil {
		return nil, fmt.Errorf("unmarshal value: %w", err)
	}
	return v, nil
}

func marshalParams(params ir.IRArray) (string, error) {
	if params == nil {
		params = ir.IRArray{}
	}
	data, err := ir.MarshalCanonical(params)
	if err != nil {
		return "", fmt.Errorf("marshal params: %w", err)
	}
	return string(data), nil
}

func unmarshalParams(data string) (ir.IRArray, error) {
	v, err := ir.UnmarshalIRValue([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal params: %w", err)
	}
	arr, ok := v.(ir.IRArray)
	if !ok {
		return nil, fmt.Errorf("unmarshal params: expected array, got %T", v)
	}
	return arr, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
