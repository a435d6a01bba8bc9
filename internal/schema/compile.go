package schema

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/lambdaq/internal/ir"
)

// CompileEntity parses a CUE value into an Entity. Field types naming
// other schema types are left unresolved; see Compile.
//
// The CUE value is the entity struct itself, e.g.:
//
//	v := cuecontext.New().CompileString(`entity: Customer: { ... }`)
//	e, err := CompileEntity(v.LookupPath(cue.ParsePath("entity.Customer")))
func CompileEntity(v cue.Value) (*ir.Entity, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	e := &ir.Entity{Name: labelOf(v), Fields: make(map[string]ir.Field)}

	if tableVal := v.LookupPath(cue.ParsePath("table")); tableVal.Exists() {
		table, err := tableVal.String()
		if err != nil {
			return nil, &CompileError{Field: "table", Message: "table must be a string", Pos: tableVal.Pos()}
		}
		e.Table = table
	}

	fieldsVal := v.LookupPath(cue.ParsePath("fields"))
	if !fieldsVal.Exists() {
		return nil, &CompileError{
			Field:   "fields",
			Message: "fields is required",
			Pos:     v.Pos(),
		}
	}
	iter, err := fieldsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		f, err := parseField(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		e.Fields[f.Name] = f
	}
	if len(e.Fields) == 0 {
		return nil, &CompileError{
			Field:   "fields",
			Message: "at least one field is required",
			Pos:     fieldsVal.Pos(),
		}
	}
	return e, nil
}

func parseField(name string, v cue.Value) (ir.Field, error) {
	f := ir.Field{Name: name}
	kind := v.IncompleteKind()

	if kind == cue.StructKind {
		typeVal := v.LookupPath(cue.ParsePath("type"))
		if !typeVal.Exists() {
			return f, &CompileError{
				Field:   "type",
				Message: fmt.Sprintf("field %s: type is required", name),
				Pos:     v.Pos(),
			}
		}
		t, nullable, err := parseFieldType(name, typeVal)
		if err != nil {
			return f, err
		}
		f.Type, f.Nullable = t, nullable
		if nv := v.LookupPath(cue.ParsePath("nullable")); nv.Exists() {
			b, err := nv.Bool()
			if err != nil {
				return f, &CompileError{Field: "nullable", Message: fmt.Sprintf("field %s: nullable must be a bool", name), Pos: nv.Pos()}
			}
			f.Nullable = f.Nullable || b
		}
		return f, nil
	}

	t, nullable, err := parseFieldType(name, v)
	if err != nil {
		return f, err
	}
	f.Type, f.Nullable = t, nullable
	return f, nil
}

// parseFieldType maps a CUE type or a descriptor string to a type. A
// disjunction with null marks the field nullable.
func parseFieldType(name string, v cue.Value) (ir.Type, bool, error) {
	kind := v.IncompleteKind()
	nullable := kind&cue.NullKind != 0 && kind != cue.NullKind
	kind &^= cue.NullKind

	if kind == cue.StringKind && v.IsConcrete() {
		s, err := v.String()
		if err != nil {
			return ir.Type{}, false, formatCUEError(err)
		}
		t, err := ir.ParseType(s)
		if err != nil {
			return ir.Type{}, false, &CompileError{
				Field:   "type",
				Message: fmt.Sprintf("field %s: %v", name, err),
				Pos:     v.Pos(),
			}
		}
		if t.Kind == ir.KindVoid {
			return ir.Type{}, false, &CompileError{
				Field:   "type",
				Message: fmt.Sprintf("field %s: void is not a field type", name),
				Pos:     v.Pos(),
			}
		}
		return t, nullable, nil
	}

	switch kind {
	case cue.StringKind:
		return ir.String, nullable, nil
	case cue.IntKind:
		return ir.Int, nullable, nil
	case cue.BoolKind:
		return ir.Bool, nullable, nil
	case cue.FloatKind, cue.NumberKind:
		return ir.Double, nullable, nil
	case cue.BytesKind:
		return ir.Type{Kind: ir.KindBytes}, nullable, nil
	default:
		return ir.Type{}, false, &CompileError{
			Field:   "type",
			Message: fmt.Sprintf("field %s: unsupported type kind: %v", name, v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

// CompileEnum parses a CUE value into an Enum. The value is either a list
// of constant names or a struct with values and an optional qualified name.
func CompileEnum(v cue.Value) (*ir.Enum, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	e := &ir.Enum{Name: labelOf(v)}
	valuesVal := v
	if v.IncompleteKind() == cue.StructKind {
		if qv := v.LookupPath(cue.ParsePath("qualified")); qv.Exists() {
			q, err := qv.String()
			if err != nil {
				return nil, &CompileError{Field: "qualified", Message: "qualified must be a string", Pos: qv.Pos()}
			}
			e.Qualified = q
		}
		valuesVal = v.LookupPath(cue.ParsePath("values"))
		if !valuesVal.Exists() {
			return nil, &CompileError{
				Field:   "values",
				Message: "values is required",
				Pos:     v.Pos(),
			}
		}
	}
	if valuesVal.IncompleteKind() != cue.ListKind {
		return nil, &CompileError{
			Field:   "values",
			Message: "values must be a list of strings",
			Pos:     valuesVal.Pos(),
		}
	}

	list, err := valuesVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	seen := make(map[string]bool)
	for list.Next() {
		s, err := list.Value().String()
		if err != nil {
			return nil, &CompileError{
				Field:   "values",
				Message: "values must be a list of strings",
				Pos:     list.Value().Pos(),
			}
		}
		if seen[s] {
			return nil, &CompileError{
				Field:   "values",
				Message: fmt.Sprintf("duplicate value %s", s),
				Pos:     list.Value().Pos(),
			}
		}
		seen[s] = true
		e.Values = append(e.Values, s)
	}
	if len(e.Values) == 0 {
		return nil, &CompileError{
			Field:   "values",
			Message: "at least one value is required",
			Pos:     valuesVal.Pos(),
		}
	}
	return e, nil
}

func labelOf(v cue.Value) string {
	labels := v.Path().Selectors()
	if len(labels) == 0 {
		return ""
	}
	return labels[len(labels)-1].String()
}

// CompileError is a schema error with its CUE source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
