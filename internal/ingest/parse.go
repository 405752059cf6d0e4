package ingest

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"tmsbridge/internal/language"
	"tmsbridge/internal/services"
)

//go:embed event.schema.json
var eventSchemaJSON string

var (
	compileOnce       sync.Once
	compiledSchema    *jsonschema.Schema
	compiledSchemaErr error
)

func loadSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		compiler.AssertFormat = true

		if err := compiler.AddResource("event.schema.json", strings.NewReader(eventSchemaJSON)); err != nil {
			compiledSchemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		schema, err := compiler.Compile("event.schema.json")
		if err != nil {
			compiledSchemaErr = fmt.Errorf("compile schema: %w", err)
			return
		}
		compiledSchema = schema
	})
	if compiledSchemaErr != nil {
		return nil, compiledSchemaErr
	}
	if compiledSchema == nil {
		return nil, errors.New("schema not initialized")
	}
	return compiledSchema, nil
}

// raw is the wire shape before normalization. Values arrive as strings from
// query/form encodings and as strings or native JSON types from JSON bodies.
type raw struct {
	ProjectID  string
	DocumentID string
	Type       string
	LocaleCode string
	Locale     string
	Complete   string
	Progress   string
}

// ParseValues builds an Event from query or form values.
func ParseValues(values url.Values) (Event, error) {
	return normalize(raw{
		ProjectID:  values.Get("project_id"),
		DocumentID: values.Get("document_id"),
		Type:       values.Get("type"),
		LocaleCode: values.Get("locale_code"),
		Locale:     values.Get("locale"),
		Complete:   values.Get("complete"),
		Progress:   values.Get("progress"),
	})
}

// ParseJSON builds an Event from a JSON object body.
func ParseJSON(body []byte) (Event, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return Event{}, invalid("payload is empty")
	}
	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()
	var fields map[string]any
	if err := decoder.Decode(&fields); err != nil {
		return Event{}, invalid("decode payload: %v", err)
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return Event{}, invalid("payload contains trailing content")
	}
	get := func(key string) string {
		value, ok := fields[key]
		if !ok || value == nil {
			return ""
		}
		switch v := value.(type) {
		case string:
			return v
		case bool:
			return strconv.FormatBool(v)
		case json.Number:
			return v.String()
		default:
			return fmt.Sprint(v)
		}
	}
	return normalize(raw{
		ProjectID:  get("project_id"),
		DocumentID: get("document_id"),
		Type:       get("type"),
		LocaleCode: get("locale_code"),
		Locale:     get("locale"),
		Complete:   get("complete"),
		Progress:   get("progress"),
	})
}

func normalize(in raw) (Event, error) {
	ev := Event{
		ProjectID:  strings.TrimSpace(in.ProjectID),
		DocumentID: strings.TrimSpace(in.DocumentID),
		Type:       Type(strings.ToLower(strings.TrimSpace(in.Type))),
		Locales:    []string{},
	}

	if value := strings.TrimSpace(in.Complete); value != "" {
		complete, err := strconv.ParseBool(value)
		if err != nil {
			return Event{}, invalid("complete must be true or false, got %q", in.Complete)
		}
		ev.Complete = complete
	}
	if value := strings.TrimSpace(in.Progress); value != "" {
		progress, err := strconv.Atoi(value)
		if err != nil {
			return Event{}, invalid("progress must be an integer, got %q", in.Progress)
		}
		ev.Progress = progress
	}

	locales := strings.TrimSpace(in.LocaleCode)
	if locales == "" {
		locales = strings.TrimSpace(in.Locale)
	}
	if locales != "" {
		parsed, err := language.SplitList(locales)
		if err != nil {
			return Event{}, services.Wrap(services.ErrInvalidLocale, "ingest", "parse", "locale", err)
		}
		ev.Locales = parsed
	}

	if err := Validate(ev); err != nil {
		return Event{}, err
	}
	return ev, nil
}

// Validate checks an event against the embedded schema.
func Validate(ev Event) error {
	schema, err := loadSchema()
	if err != nil {
		return fmt.Errorf("load schema: %w", err)
	}
	if ev.Locales == nil {
		ev.Locales = []string{}
	}
	encoded, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	decoder := json.NewDecoder(bytes.NewReader(encoded))
	decoder.UseNumber()
	var value any
	if err := decoder.Decode(&value); err != nil {
		return fmt.Errorf("decode event: %w", err)
	}
	if err := schema.Validate(value); err != nil {
		return fmt.Errorf("%w: %w", services.ErrValidation, err)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", services.ErrValidation, fmt.Sprintf(format, args...))
}
