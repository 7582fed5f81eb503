package ingest

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/jmespath/go-jmespath"

	"github.com/uruley/4HorsemenDFS/pkg/models"
	"github.com/uruley/4HorsemenDFS/pkg/normalizers"
)

// Record field keys a mapping may populate.
const (
	FieldName       = "name"
	FieldExternalID = "external_id"
	FieldTeam       = "team"
	FieldPosition   = "position"
)

// FieldMapping extracts one record field: a JMESPath expression evaluated
// against the record element, then an optional normalizer chain.
type FieldMapping struct {
	Expression  string   `json:"expression" validate:"required"`
	Normalizers []string `json:"normalizers"`
}

// MappingConfig describes how to read an arbitrary JSON feed. Records points
// at the array of record elements; Fields maps record fields to expressions
// evaluated per element.
type MappingConfig struct {
	SourceName string                  `json:"source_name" validate:"required"`
	Records    string                  `json:"records" validate:"required"`
	Fields     map[string]FieldMapping `json:"fields" validate:"required"`
}

// MappedJSONAdapter parses any JSON feed a MappingConfig can describe.
// New providers get a mapping instead of code.
type MappedJSONAdapter struct {
	sourceName string
	records    *jmespath.JMESPath
	fields     map[string]compiledField
}

type compiledField struct {
	expression  *jmespath.JMESPath
	normalizers []string
}

// NewMappedJSONAdapter compiles a mapping into an adapter. Every expression
// is validated here so a bad mapping fails at registration, not mid-feed.
func NewMappedJSONAdapter(cfg MappingConfig) (*MappedJSONAdapter, error) {
	if cfg.SourceName == "" {
		return nil, fmt.Errorf("mapping needs a source name")
	}

	records, err := jmespath.Compile(cfg.Records)
	if err != nil {
		return nil, fmt.Errorf("invalid records expression %q: %w", cfg.Records, err)
	}

	fields := make(map[string]compiledField, len(cfg.Fields))
	for field, mapping := range cfg.Fields {
		switch field {
		case FieldName, FieldExternalID, FieldTeam, FieldPosition:
		default:
			return nil, fmt.Errorf("unknown record field %q", field)
		}

		compiled, err := jmespath.Compile(mapping.Expression)
		if err != nil {
			return nil, fmt.Errorf("invalid expression %q for field %q: %w", mapping.Expression, field, err)
		}
		for _, name := range mapping.Normalizers {
			if _, ok := normalizers.Get(name); !ok {
				return nil, fmt.Errorf("unknown normalizer %q for field %q", name, field)
			}
		}
		fields[field] = compiledField{
			expression:  compiled,
			normalizers: mapping.Normalizers,
		}
	}
	if _, ok := fields[FieldName]; !ok {
		if _, ok := fields[FieldExternalID]; !ok {
			return nil, fmt.Errorf("mapping must extract %q or %q", FieldName, FieldExternalID)
		}
	}

	return &MappedJSONAdapter{
		sourceName: cfg.SourceName,
		records:    records,
		fields:     fields,
	}, nil
}

// SourceName returns the provider key from the mapping.
func (a *MappedJSONAdapter) SourceName() string {
	return a.sourceName
}

// Parse decodes the feed, locates the record array, and extracts each
// element's fields through the compiled expressions.
func (a *MappedJSONAdapter) Parse(r io.Reader) ([]models.SourceRecord, error) {
	var payload interface{}
	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode feed: %w", err)
	}

	located, err := a.records.Search(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to locate records: %w", err)
	}
	if located == nil {
		return nil, nil
	}
	elements, ok := located.([]interface{})
	if !ok {
		return nil, fmt.Errorf("records expression returned %T, want an array", located)
	}

	records := make([]models.SourceRecord, 0, len(elements))
	for i, element := range elements {
		record := models.SourceRecord{SourceName: a.sourceName}
		for field, compiled := range a.fields {
			value, err := compiled.expression.Search(element)
			if err != nil {
				return nil, fmt.Errorf("failed to extract field %q from record %d: %w", field, i, err)
			}
			text := normalizers.ApplyChain(stringify(value), compiled.normalizers...)

			switch field {
			case FieldName:
				record.Name = text
			case FieldExternalID:
				record.ExternalID = text
			case FieldTeam:
				record.Team = text
			case FieldPosition:
				record.Position = text
			}
		}
		if record.Name == "" && record.ExternalID == "" {
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

// stringify renders an extracted value as text. JSON numbers decode as
// float64 and ids must not come out in scientific notation.
func stringify(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
