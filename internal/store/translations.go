package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/lambdaq/internal/ir"
)

// Translation is a stored interpretation result. Exactly one of Value and
// Err is set.
type Translation struct {
	Key               string
	ClosureID         string
	TranslatorVersion string
	EncodingVersion   string

	// Value is the canonical encoding of the symbolic result.
	Value ir.IRValue

	// Err is the recorded failure.
	Err *ir.TranslationError

	// Steps is the number of interpreter steps the translation took.
	Steps int

	// Seq is assigned by the store on insert.
	Seq int64
}

// WriteTranslation records t and reports whether a new row was inserted.
// Writing a key that already exists is a no-op. The version columns are
// always those of the running translator.
func (s *Store) WriteTranslation(ctx context.Context, t Translation) (bool, error) {
	if (t.Value == nil) == (t.Err == nil) {
		return false, fmt.Errorf("write translation %s: exactly one of value and error must be set", t.Key)
	}
	value, err := marshalValue(t.Value)
	if err != nil {
		return false, fmt.Errorf("write translation %s: %w", t.Key, err)
	}

	var code, message, expr sql.NullString
	if t.Err != nil {
		code = sql.NullString{String: string(t.Err.Code), Valid: true}
		message = sql.NullString{String: t.Err.Message, Valid: true}
		expr = nullString(t.Err.Expr)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO translations
		(key, closure_id, translator_version, encoding_version, value, error_code, error_message, error_expr, steps, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM translations))
		ON CONFLICT(key) DO NOTHING
	`,
		t.Key,
		t.ClosureID,
		translatorVersion,
		encodingVersion,
		value,
		code,
		message,
		expr,
		t.Steps,
	)
	if err != nil {
		return false, fmt.Errorf("write translation %s: %w", t.Key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("write translation %s: %w", t.Key, err)
	}
	return n > 0, nil
}

// ReadTranslation returns the translation stored under key by the running
// translator version. The bool is false when there is none.
func (s *Store) ReadTranslation(ctx context.Context, key string) (Translation, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT key, closure_id, translator_version, encoding_version, value, error_code, error_message, error_expr, steps, seq
		FROM translations
		WHERE key = ? AND translator_version = ? AND encoding_version = ?
	`, key, translatorVersion, encodingVersion)

	t, err := scanTranslation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Translation{}, false, nil
	}
	if err != nil {
		return Translation{}, false, err
	}
	return t, true, nil
}

// ListTranslations returns every translation, including stale ones, in
// insertion order.
func (s *Store) ListTranslations(ctx context.Context) ([]Translation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT key, closure_id, translator_version, encoding_version, value, error_code, error_message, error_expr, steps, seq
		FROM translations
		ORDER BY seq ASC, key COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query translations: %w", err)
	}
	defer rows.Close()

	translations := []Translation{}
	for rows.Next() {
		t, err := scanTranslation(rows)
		if err != nil {
			return nil, err
		}
		translations = append(translations, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate translations: %w", err)
	}
	return translations, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTranslation(sc scanner) (Translation, error) {
	var (
		t                   Translation
		value               sql.NullString
		code, message, expr sql.NullString
	)
	err := sc.Scan(&t.Key, &t.ClosureID, &t.TranslatorVersion, &t.EncodingVersion,
		&value, &code, &message, &expr, &t.Steps, &t.Seq)
	if errors.Is(err, sql.ErrNoRows) {
		return Translation{}, err
	}
	if err != nil {
		return Translation{}, fmt.Errorf("scan translation: %w", err)
	}

	t.Value, err = unmarshalValue(value)
	if err != nil {
		return Translation{}, fmt.Errorf("translation %s: %w", t.Key, err)
	}
	if code.Valid {
		t.Err = &ir.TranslationError{
			Code:    ir.ErrorCode(code.String),
			Message: message.String,
			Closure: t.ClosureID,
			Expr:    expr.String,
		}
	}
	return t, nil
}
