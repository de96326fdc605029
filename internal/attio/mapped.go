package attio

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"

	"basegraph.app/crmsync/internal/store"
)

// FieldMapping pairs one local column with one Attio attribute.
type FieldMapping struct {
	Local       string        `yaml:"local"`
	External    string        `yaml:"external"`
	Type        AttributeType `yaml:"type"`
	Title       string        `yaml:"title,omitempty"`
	Required    bool          `yaml:"required,omitempty"`
	Unique      bool          `yaml:"unique,omitempty"`
	Multiselect bool          `yaml:"multiselect,omitempty"`
}

// Mapping declares an adapter for a model without writing Go.
type Mapping struct {
	LocalModel       string         `yaml:"local_model"`
	ExternalObject   string         `yaml:"external_object"`
	OnMissing        OnMissing      `yaml:"on_missing"`
	SyncDeletions    *bool          `yaml:"sync_deletions"`
	CorrelationField string         `yaml:"correlation_field,omitempty"`
	Fields           []FieldMapping `yaml:"fields"`
}

type mappingFile struct {
	Adapters []Mapping `yaml:"adapters"`
}

// LoadMappings reads adapter mappings from a YAML file.
func LoadMappings(path string) ([]Mapping, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading mappings file: %w", err)
	}
	return ParseMappings(raw)
}

// ParseMappings decodes and validates YAML mappings. Unknown keys are rejected.
func ParseMappings(raw []byte) ([]Mapping, error) {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)

	var f mappingFile
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decoding mappings: %w", err)
	}
	for i := range f.Adapters {
		if err := f.Adapters[i].validate(); err != nil {
			return nil, fmt.Errorf("mapping %d (%s): %w", i, f.Adapters[i].LocalModel, err)
		}
	}
	return f.Adapters, nil
}

func (m *Mapping) validate() error {
	if m.LocalModel == "" || m.ExternalObject == "" {
		return fmt.Errorf("local_model and external_object are required")
	}
	if m.OnMissing == "" {
		m.OnMissing = OnMissingCreate
	}
	if !m.OnMissing.Valid() {
		return fmt.Errorf("on_missing must be create, delete or ignore, got %q", m.OnMissing)
	}
	if len(m.Fields) == 0 {
		return fmt.Errorf("at least one field is required")
	}
	seen := map[string]bool{}
	for _, f := range m.Fields {
		if f.Local == "" || f.External == "" {
			return fmt.Errorf("fields need local and external names")
		}
		if f.External == RecordIDKey || immutableFields[f.Local] {
			return fmt.Errorf("field %s -> %s maps a reserved name", f.Local, f.External)
		}
		if !f.Type.Valid() {
			return fmt.Errorf("field %s has unknown type %q", f.Local, f.Type)
		}
		if seen[f.External] {
			return fmt.Errorf("external attribute %s mapped twice", f.External)
		}
		seen[f.External] = true
	}
	return nil
}

// MappedAdapter is a declarative adapter that copies mapped columns and coerces them by type.
type MappedAdapter struct {
	m    Mapping
	meta AdapterMeta
}

func NewMappedAdapter(m Mapping) *MappedAdapter {
	syncDeletions := true
	if m.SyncDeletions != nil {
		syncDeletions = *m.SyncDeletions
	}
	schema := make([]Attribute, len(m.Fields))
	for i, f := range m.Fields {
		title := f.Title
		if title == "" {
			title = humanize(f.External)
		}
		schema[i] = Attribute{
			Slug:          f.External,
			Title:         title,
			Type:          f.Type,
			IsRequired:    f.Required,
			IsUnique:      f.Unique,
			IsMultiselect: f.Multiselect,
		}
	}
	return &MappedAdapter{
		m: m,
		meta: AdapterMeta{
			LocalModel:       m.LocalModel,
			ExternalObject:   m.ExternalObject,
			Schema:           schema,
			OnMissing:        m.OnMissing,
			SyncDeletions:    syncDeletions,
			CorrelationField: m.CorrelationField,
		},
	}
}

// MappedAdapters builds one adapter per mapping, in order.
func MappedAdapters(mappings []Mapping) []Adapter {
	out := make([]Adapter, len(mappings))
	for i, m := range mappings {
		out[i] = NewMappedAdapter(m)
	}
	return out
}

func (a *MappedAdapter) Meta() AdapterMeta {
	return a.meta
}

func (a *MappedAdapter) ToAttio(_ context.Context, _ Event, rec store.Record, _ *SyncContext) (store.Record, error) {
	out := store.Record{}
	for _, f := range a.m.Fields {
		v, ok := rec[f.Local]
		if !ok {
			continue
		}
		coerced, err := coerce(f.Type, v)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Local, err)
		}
		out[f.External] = coerced
	}
	if a.m.CorrelationField != "" {
		out[a.m.CorrelationField] = cast.ToString(rec.ID())
	}
	if attioID := rec.AttioID(); attioID != "" {
		out[RecordIDKey] = attioID
	}
	return out, nil
}

// FromAttio returns the mapped attributes present on the inbound record. Deletes return an
// empty patch so the default policy applies.
func (a *MappedAdapter) FromAttio(_ context.Context, event Event, values store.Record, _ *SyncContext) (store.Record, error) {
	patch := store.Record{}
	if event == EventDelete {
		return patch, nil
	}
	for _, f := range a.m.Fields {
		v, ok := values[f.External]
		if !ok {
			continue
		}
		coerced, err := coerce(f.Type, v)
		if err != nil {
			return nil, fmt.Errorf("attribute %s: %w", f.External, err)
		}
		patch[f.Local] = coerced
	}
	return patch, nil
}

// coerce normalizes v for an attribute type. nil passes through; lists are coerced per element.
func coerce(t AttributeType, v any) (any, error) {
	if store.IsNil(v) {
		return nil, nil
	}
	if list, ok := v.([]any); ok {
		out := make([]any, len(list))
		for i, item := range list {
			c, err := coerce(t, item)
			if err != nil {
				return nil, err
			}
			out[i] = c
		}
		return out, nil
	}

	switch t {
	case AttributeNumber:
		return cast.ToFloat64E(v)
	case AttributeCheckbox:
		return cast.ToBoolE(v)
	case AttributeTimestamp:
		ts, err := cast.ToTimeE(v)
		if err != nil {
			return nil, err
		}
		return ts.UTC().Format(time.RFC3339), nil
	default:
		return cast.ToStringE(v)
	}
}

func humanize(slug string) string {
	words := strings.FieldsFunc(slug, func(r rune) bool { return r == '_' || r == '-' })
	if len(words) == 0 {
		return slug
	}
	words[0] = strings.ToUpper(words[0][:1]) + words[0][1:]
	return strings.Join(words, " ")
}
