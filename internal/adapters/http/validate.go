package httpadapter

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/kirillkom/invoice-totals/internal/core/domain"
)

//go:embed analyze_request.schema.json
var analyzeRequestSchema []byte

var (
	analyzeSchemaOnce sync.Once
	analyzeSchema     *jsonschema.Schema
	analyzeSchemaErr  error
)

func compiledAnalyzeSchema() (*jsonschema.Schema, error) {
	analyzeSchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("analyze_request.schema.json", bytes.NewReader(analyzeRequestSchema)); err != nil {
			analyzeSchemaErr = fmt.Errorf("add schema: %w", err)
			return
		}
		analyzeSchema, analyzeSchemaErr = compiler.Compile("analyze_request.schema.json")
	})
	return analyzeSchema, analyzeSchemaErr
}

// validateAnalyzeRequest checks raw against the request schema before it is
// bound to Go types, so clients get field-level messages.
func validateAnalyzeRequest(raw []byte) error {
	schema, err := compiledAnalyzeSchema()
	if err != nil {
		return fmt.Errorf("compile analyze schema: %w", err)
	}

	var v any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return domain.WrapError(domain.ErrInvalidInput, "decode analyze request", err)
	}
	if err := schema.Validate(v); err != nil {
		return domain.WrapError(domain.ErrInvalidInput, "validate analyze request", err)
	}
	return nil
}
