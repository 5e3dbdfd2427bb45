package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed config.schema.json
var schemaJSON string

const schemaURL = "config.schema.json"

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func configSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(schemaURL, strings.NewReader(schemaJSON)); err != nil {
			schemaErr = fmt.Errorf("load config schema: %w", err)
			return
		}
		compiledSchema, schemaErr = compiler.Compile(schemaURL)
		if schemaErr != nil {
			schemaErr = fmt.Errorf("compile config schema: %w", schemaErr)
		}
	})
	return compiledSchema, schemaErr
}

// ValidateSchema checks the raw YAML document against the config schema.
// Structural problems are reported as a ValidationError.
func ValidateSchema(data []byte) error {
	schema, err := configSchema()
	if err != nil {
		return err
	}
	var doc any
	if err := yaml.NewDecoder(bytes.NewReader(data)).Decode(&doc); err != nil {
		if err == io.EOF {
			return nil
		}
		return fmt.Errorf("parse config: %w", err)
	}
	// Round-trip through JSON so numbers and maps take the shapes the
	// validator expects.
	encoded, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	var instance any
	if err := json.Unmarshal(encoded, &instance); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	if err := schema.Validate(instance); err != nil {
		var validationErr *jsonschema.ValidationError
		if errors.As(err, &validationErr) {
			collector := &issueCollector{}
			collectSchemaIssues(validationErr, collector.add)
			return collector.result()
		}
		return err
	}
	return nil
}

// collectSchemaIssues flattens the validator's cause tree into leaf issues.
func collectSchemaIssues(err *jsonschema.ValidationError, add issueAdder) {
	if len(err.Causes) == 0 {
		add(fieldPath(err.InstanceLocation), err.Message)
		return
	}
	for _, cause := range err.Causes {
		collectSchemaIssues(cause, add)
	}
}

// fieldPath converts a JSON pointer such as /agents/0/id into agents[0].id.
func fieldPath(pointer string) string {
	pointer = strings.TrimPrefix(pointer, "/")
	if pointer == "" {
		return "config"
	}
	var b strings.Builder
	for i, part := range strings.Split(pointer, "/") {
		if isIndex(part) {
			b.WriteString("[" + part + "]")
			continue
		}
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(part)
	}
	return b.String()
}

func isIndex(part string) bool {
	if part == "" {
		return false
	}
	for _, r := range part {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
