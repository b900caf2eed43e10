package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ValidateJSONAgainstSchema validates "data" against "schemaMap".
func ValidateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	schema, err := compile(schemaMap)
	if err != nil {
		return err
	}
	return validate(schema, data)
}

func compile(schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

func validate(schema *jsonschema.Schema, data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}

var (
	batchOnce   sync.Once
	batchSchema *jsonschema.Schema
	batchErr    error

	imageOnce   sync.Once
	imageSchema *jsonschema.Schema
	imageErr    error
)

// ValidateBatch checks an encoded batch document.
func ValidateBatch(data []byte) error {
	batchOnce.Do(func() { batchSchema, batchErr = compile(BatchSchema()) })
	if batchErr != nil {
		return batchErr
	}
	return validate(batchSchema, data)
}

// ValidateImage checks an encoded single-image document.
func ValidateImage(data []byte) error {
	imageOnce.Do(func() { imageSchema, imageErr = compile(ImageResultSchema()) })
	if imageErr != nil {
		return imageErr
	}
	return validate(imageSchema, data)
}
