package ai

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// ResponseSchema describes the structured output requested from a chat model.
// The same document is sent to the backend and used to validate the reply.
type ResponseSchema struct {
	Name     string
	Document json.RawMessage

	once     sync.Once
	compiled *gojsonschema.Schema
	err      error
}

// NewResponseSchema creates a schema from a JSON-schema document.
func NewResponseSchema(name, document string) *ResponseSchema {
	return &ResponseSchema{
		Name:     name,
		Document: json.RawMessage(document),
	}
}

func (s *ResponseSchema) schema() (*gojsonschema.Schema, error) {
	s.once.Do(func() {
		s.compiled, s.err = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(s.Document))
	})
	return s.compiled, s.err
}

// Validate checks a JSON document against the schema.
func (s *ResponseSchema) Validate(data []byte) error {
	compiled, err := s.schema()
	if err != nil {
		return fmt.Errorf("compile schema %s: %w", s.Name, err)
	}
	result, err := compiled.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return err
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("%w: %s", ErrSchemaViolation, strings.Join(msgs, "; "))
	}
	return nil
}

// Decode cleans a model reply, validates it against the schema and
// unmarshals it into v.
func (s *ResponseSchema) Decode(reply string, v any) error {
	cleaned := []byte(cleanReply(reply))
	if err := s.Validate(cleaned); err != nil {
		return err
	}
	return json.Unmarshal(cleaned, v)
}

// DecodeJSON cleans a model reply and unmarshals it into v without schema validation.
func DecodeJSON(reply string, v any) error {
	return json.Unmarshal([]byte(cleanReply(reply)), v)
}
