package schema

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/token"

	"github.com/roach88/lambdaq/internal/ir"
)

// LoadMode controls how errors are handled while loading a schema.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadResult is a loaded schema.
type LoadResult struct {
	Schema    *ir.Schema
	CUEValue  cue.Value
	FileCount int
}

// LoadError is an error that occurred while loading a schema.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error codes, shared with the command line.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeWriteFailed = "E007" // File write error

	ErrCodeEntityFields = "E101" // Missing or empty fields
	ErrCodeInvalidType  = "E102" // Invalid field type
	ErrCodeEnumValues   = "E103" // Missing or malformed enum values
	ErrCodeUnknownType  = "E104" // Field names a type the schema lacks
	ErrCodeDuplicate    = "E105" // Entity and enum share a name
)

// MapFieldToErrorCode maps a CompileError field to an error code.
func MapFieldToErrorCode(field string) string {
	switch field {
	case "fields":
		return ErrCodeEntityFields
	case "type", "nullable":
		return ErrCodeInvalidType
	case "values", "qualified":
		return ErrCodeEnumValues
	default:
		return ErrCodeGeneric
	}
}

// Load reads a schema from a .cue file or from every .cue file of a
// directory. With LoadModeFailFast it returns on the first error.
func Load(path string, mode LoadMode) (*LoadResult, []error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("schema not found: %s", path)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing schema: %v", err)}}
	}
	if !info.IsDir() {
		return loadFile(path, mode)
	}

	cueFiles, err := FindCUEFiles(path)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(cueFiles) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", path)}}
	}

	// Each file compiles on its own and the results unify, so files need
	// no package clause and may sit in nested directories.
	ctx := cuecontext.New()
	value := ctx.CompileString("{}")
	for _, file := range cueFiles {
		src, err := os.ReadFile(file)
		if err != nil {
			return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("reading %s: %v", file, err)}}
		}
		v := ctx.CompileBytes(src, cue.Filename(file))
		if err := v.Err(); err != nil {
			return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", err)}}
		}
		value = value.Unify(v)
	}
	if err := value.Err(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}}
	}
	return compileValue(value, len(cueFiles), mode)
}

func loadFile(path string, mode LoadMode) (*LoadResult, []error) {
	if filepath.Ext(path) != ".cue" {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("not a CUE file: %s", path)}}
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("reading %s: %v", path, err)}}
	}
	return LoadSource(path, src, mode)
}

// LoadSource compiles schema source held in memory. filename is used in
// error positions.
func LoadSource(filename string, src []byte, mode LoadMode) (*LoadResult, []error) {
	value := cuecontext.New().CompileBytes(src, cue.Filename(filename))
	if err := value.Err(); err != nil {
		loadErr := &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}
		var compileErr *CompileError
		if errors.As(formatCUEError(err), &compileErr) {
			loadErr.Pos = compileErr.Pos
		}
		return nil, []error{loadErr}
	}
	return compileValue(value, 1, mode)
}

func compileValue(value cue.Value, files int, mode LoadMode) (*LoadResult, []error) {
	var errs []error
	result := &LoadResult{Schema: ir.NewSchema(), CUEValue: value, FileCount: files}
	s := result.Schema

	// fail records err and reports whether loading should stop.
	fail := func(err error) bool {
		errs = append(errs, err)
		return mode == LoadModeFailFast
	}

	if enumsVal := value.LookupPath(cue.ParsePath("enum")); enumsVal.Exists() {
		iter, err := enumsVal.Fields()
		if err != nil {
			if fail(&LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating enums: %v", err)}) {
				return result, errs
			}
		} else {
			for iter.Next() {
				e, err := CompileEnum(iter.Value())
				if err != nil {
					if fail(convertCompileError(err, "enum."+iter.Label())) {
						return result, errs
					}
					continue
				}
				s.AddEnum(e)
			}
		}
	}

	if entitiesVal := value.LookupPath(cue.ParsePath("entity")); entitiesVal.Exists() {
		iter, err := entitiesVal.Fields()
		if err != nil {
			if fail(&LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating entities: %v", err)}) {
				return result, errs
			}
		} else {
			for iter.Next() {
				e, err := CompileEntity(iter.Value())
				if err != nil {
					if fail(convertCompileError(err, "entity."+iter.Label())) {
						return result, errs
					}
					continue
				}
				if _, dup := s.Enums[e.Name]; dup {
					if fail(&LoadError{
						Code:    ErrCodeDuplicate,
						Message: fmt.Sprintf("%s is declared as both an entity and an enum", e.Name),
						Pos:     iter.Value().Pos(),
					}) {
						return result, errs
					}
					continue
				}
				s.AddEntity(e)
			}
		}
	}

	for _, err := range resolve(s, value) {
		if fail(err) {
			return result, errs
		}
	}

	if len(s.Entities) == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeGeneric, Message: "no entities found in schema"})
	}
	return result, errs
}

// resolve turns field types that name entities or enums into entity and
// enum types. Names the schema does not declare are errors.
func resolve(s *ir.Schema, value cue.Value) []error {
	var errs []error
	names := make([]string, 0, len(s.Entities))
	for name := range s.Entities {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		e := s.Entities[name]
		for _, fname := range e.FieldNames() {
			f := e.Fields[fname]
			t := s.Resolve(f.Type)
			if t.Kind == ir.KindObject && t.Name != "" {
				pos := value.LookupPath(cue.MakePath(cue.Str("entity"), cue.Str(name), cue.Str("fields"), cue.Str(fname))).Pos()
				errs = append(errs, &LoadError{
					Code:    ErrCodeUnknownType,
					Message: fmt.Sprintf("%s.%s: unknown type %s", name, fname, t.Name),
					Pos:     pos,
				})
				continue
			}
			f.Type = t
			e.Fields[fname] = f
		}
	}
	return errs
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// convertCompileError converts a compile error to a LoadError with
// position info.
func convertCompileError(err error, context string) *LoadError {
	var compileErr *CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: fmt.Sprintf("%s: %s", context, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: fmt.Sprintf("%s: %v", context, err),
	}
}
