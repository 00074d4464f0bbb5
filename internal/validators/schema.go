package validators

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/MKhiriev/go-sync-core/models"
)

// Kind is the JSON shape a payload field must have.
type Kind string

const (
	KindString    Kind = "string"
	KindNumber    Kind = "number"
	KindInteger   Kind = "integer"
	KindBool      Kind = "bool"
	KindTimestamp Kind = "timestamp"
	KindObject    Kind = "object"
	KindArray     Kind = "array"
)

func (k Kind) valid() bool {
	switch k {
	case KindString, KindNumber, KindInteger, KindBool, KindTimestamp, KindObject, KindArray:
		return true
	}
	return false
}

// FieldSpec declares one payload field.
type FieldSpec struct {
	Kind     Kind
	Required bool
	// Mergeable fields changed only by the losing side of a conflict survive
	// the resolution.
	Mergeable bool
}

// Schema is the static definition of one record type.
type Schema struct {
	Type   string
	Fields map[string]FieldSpec
}

// SchemaRegistry validates records against registered schemas.
type SchemaRegistry struct {
	mu      sync.RWMutex
	schemas map[string]Schema
}

// NewSchemaRegistry creates a registry holding the given schemas. It panics
// on an invalid schema since schemas are static program data.
func NewSchemaRegistry(schemas ...Schema) *SchemaRegistry {
	r := &SchemaRegistry{schemas: make(map[string]Schema, len(schemas))}
	for _, s := range schemas {
		if err := r.Register(s); err != nil {
			panic(err)
		}
	}
	return r
}

// Register adds or replaces a schema.
func (r *SchemaRegistry) Register(s Schema) error {
	if s.Type == "" {
		return fmt.Errorf("%w: empty type", ErrInvalidSchema)
	}
	for name, spec := range s.Fields {
		if name == "" {
			return fmt.Errorf("%w: %s: empty field name", ErrInvalidSchema, s.Type)
		}
		if !spec.Kind.valid() {
			return fmt.Errorf("%w: %s.%s: unknown kind %q", ErrInvalidSchema, s.Type, name, spec.Kind)
		}
	}

	fields := make(map[string]FieldSpec, len(s.Fields))
	for k, v := range s.Fields {
		fields[k] = v
	}

	r.mu.Lock()
	r.schemas[s.Type] = Schema{Type: s.Type, Fields: fields}
	r.mu.Unlock()
	return nil
}

// Schema returns the schema registered for recordType.
func (r *SchemaRegistry) Schema(recordType string) (Schema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.schemas[recordType]
	return s, ok
}

// Types returns the registered record types in sorted order.
func (r *SchemaRegistry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.schemas))
	for t := range r.schemas {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Mergeable reports whether field of recordType is declared mergeable.
// Unknown types and fields are never mergeable.
func (r *SchemaRegistry) Mergeable(recordType, field string) bool {
	s, ok := r.Schema(recordType)
	if !ok {
		return false
	}
	return s.Fields[field].Mergeable
}

// Validate checks a models.Record (or pointer) against its schema. When
// fields are given, only those fields are checked.
func (r *SchemaRegistry) Validate(ctx context.Context, obj any, fields ...string) error {
	switch value := obj.(type) {
	case models.Record:
		return r.validateRecord(ctx, value, fields...)
	case *models.Record:
		if value == nil {
			return ErrUnsupportedType
		}
		return r.validateRecord(ctx, *value, fields...)
	default:
		return ErrUnsupportedType
	}
}

func (r *SchemaRegistry) validateRecord(_ context.Context, rec models.Record, fields ...string) error {
	s, ok := r.Schema(rec.Type)
	if !ok {
		return &ValidationError{Type: rec.Type, Reason: ErrUnknownRecordType}
	}

	if len(fields) > 0 {
		for _, name := range fields {
			spec, ok := s.Fields[name]
			if !ok {
				return fmt.Errorf("%w: %s", ErrUnknownField, name)
			}
			if err := checkField(s.Type, name, spec, rec.Payload); err != nil {
				return err
			}
		}
		return nil
	}

	for _, name := range rec.Payload.Fields() {
		if _, ok := s.Fields[name]; !ok {
			return &ValidationError{Type: s.Type, Field: name, Reason: ErrUnknownField}
		}
	}

	names := make([]string, 0, len(s.Fields))
	for name := range s.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := checkField(s.Type, name, s.Fields[name], rec.Payload); err != nil {
			return err
		}
	}

	return nil
}

func checkField(recordType, name string, spec FieldSpec, payload models.Payload) error {
	raw, ok := payload[name]
	if !ok || isNull(raw) {
		if spec.Required {
			return &ValidationError{Type: recordType, Field: name, Reason: ErrMissingField}
		}
		return nil
	}

	if !matchesKind(spec.Kind, raw) {
		return &ValidationError{
			Type:   recordType,
			Field:  name,
			Reason: fmt.Errorf("%w: want %s", ErrKindMismatch, spec.Kind),
		}
	}
	return nil
}

func isNull(raw json.RawMessage) bool {
	return len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func matchesKind(kind Kind, raw json.RawMessage) bool {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return false
	}

	switch kind {
	case KindString:
		_, ok := v.(string)
		return ok
	case KindTimestamp:
		s, ok := v.(string)
		if !ok {
			return false
		}
		_, err := time.Parse(time.RFC3339Nano, s)
		return err == nil
	case KindNumber:
		_, ok := v.(json.Number)
		return ok
	case KindInteger:
		n, ok := v.(json.Number)
		if !ok {
			return false
		}
		_, err := n.Int64()
		return err == nil
	case KindBool:
		_, ok := v.(bool)
		return ok
	case KindObject:
		_, ok := v.(map[string]any)
		return ok
	case KindArray:
		_, ok := v.([]any)
		return ok
	}
	return false
}
