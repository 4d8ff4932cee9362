package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/san-kum/kilosim/internal/dynamo"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed schema.json
var schemaJSON string

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = jsonschema.CompileString("kilosim.schema.json", schemaJSON)
	})
	return schema, schemaErr
}

// ValidateDocument checks a YAML or JSON document against the config schema.
func ValidateDocument(data []byte) error {
	sch, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}

	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	if doc == nil {
		doc = map[string]interface{}{}
	}

	// the validator wants JSON values, not YAML ones
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: config is not representable as JSON: %v", dynamo.ErrInvalidConfig, err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}

	if err := sch.Validate(v); err != nil {
		return fmt.Errorf("%w: %v", dynamo.ErrInvalidConfig, err)
	}
	return nil
}

// Schema returns the embedded JSON schema.
func Schema() string {
	return schemaJSON
}
