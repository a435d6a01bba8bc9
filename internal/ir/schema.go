package ir

import (
	"sort"
	"strings"
)

// Schema is the entity mapping the translator works against: which types
// are persistent entities, which of their properties are mapped fields,
// and which named types are enums.
type Schema struct {
	Entities map[string]*Entity `json:"entities"`
	Enums    map[string]*Enum   `json:"enums"`
}

// Entity is a mapped persistent type.
type Entity struct {
	Name   string           `json:"name"`
	Table  string           `json:"table,omitempty"`
	Fields map[string]Field `json:"fields"`
}

// Field is a mapped property of an entity.
type Field struct {
	Name     string `json:"name"`
	Type     Type   `json:"type"`
	Nullable bool   `json:"nullable,omitempty"`
}

// Enum is a named enumeration. Qualified is the name used when an enum
// constant is rendered into query text.
type Enum struct {
	Name      string   `json:"name"`
	Qualified string   `json:"qualified"`
	Values    []string `json:"values"`
}

// NewSchema returns an empty schema.
func NewSchema() *Schema {
	return &Schema{
		Entities: make(map[string]*Entity),
		Enums:    make(map[string]*Enum),
	}
}

// AddEntity registers an entity, replacing any previous one of that name.
func (s *Schema) AddEntity(e *Entity) {
	if e.Fields == nil {
		e.Fields = make(map[string]Field)
	}
	s.Entities[e.Name] = e
}

// AddEnum registers an enum, replacing any previous one of that name.
func (s *Schema) AddEnum(e *Enum) {
	if e.Qualified == "" {
		e.Qualified = e.Name
	}
	s.Enums[e.Name] = e
}

// Entity returns the entity with the given name.
func (s *Schema) Entity(name string) (*Entity, bool) {
	if s == nil {
		return nil, false
	}
	e, ok := s.Entities[name]
	return e, ok
}

// Enum returns the enum with the given name, accepting either the short or
// the qualified spelling.
func (s *Schema) Enum(name string) (*Enum, bool) {
	if s == nil {
		return nil, false
	}
	if e, ok := s.Enums[name]; ok {
		return e, true
	}
	for _, e := range s.Enums {
		if e.Qualified == name {
			return e, true
		}
	}
	return nil, false
}

// Resolve upgrades an unresolved object type to an entity or enum type when
// the schema knows its name. Other types are returned unchanged.
func (s *Schema) Resolve(t Type) Type {
	if t.Kind != KindObject || t.Name == "" {
		return t
	}
	if _, ok := s.Entity(t.Name); ok {
		return EntityType(t.Name)
	}
	if e, ok := s.Enum(t.Name); ok {
		return EnumType(e.Name)
	}
	return t
}

// FieldNames returns the entity's field names in sorted order.
func (e *Entity) FieldNames() []string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Getter maps an accessor method name to a mapped field. Both getX/isX
// accessors and methods named exactly like a field are recognised.
func (e *Entity) Getter(method string) (Field, bool) {
	if f, ok := e.Fields[method]; ok {
		return f, true
	}
	for _, prefix := range []string{"get", "is"} {
		rest, ok := strings.CutPrefix(method, prefix)
		if !ok || rest == "" {
			continue
		}
		name := strings.ToLower(rest[:1]) + rest[1:]
		if f, ok := e.Fields[name]; ok {
			return f, true
		}
	}
	return Field{}, false
}

// HasValue reports whether name is a constant of the enum.
func (e *Enum) HasValue(name string) bool {
	for _, v := range e.Values {
		if v == name {
			return true
		}
	}
	return false
}

// Fingerprint returns a content hash of the schema. Translations cached
// against one schema are not reused with another.
func (s *Schema) Fingerprint() string {
	entities := IRObject{}
	enums := IRObject{}
	if s != nil {
		for name, e := range s.Entities {
			fields := IRObject{}
			for fname, f := range e.Fields {
				fields[fname] = EncodeType(f.Type)
			}
			entities[name] = fields
		}
		for name, e := range s.Enums {
			values := make(IRArray, len(e.Values))
			for i, v := range e.Values {
				values[i] = IRString(v)
			}
			enums[name] = IRObject{"qualified": IRString(e.Qualified), "values": values}
		}
	}
	id, err := HashCanonical(DomainSchema, IRObject{"entities": entities, "enums": enums})
	if err != nil {
		panic(err)
	}
	return id
}
