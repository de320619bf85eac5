package toolcall

import (
	"bytes"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// compileSignature compiles an advertised signature schema into a validator.
// Called once at registration when WithValidation is set; the hot call path
// only runs Validate.
func compileSignature(schemaJSON []byte) (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("parse signature schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("signature.json", doc); err != nil {
		return nil, fmt.Errorf("add signature schema: %w", err)
	}
	sch, err := c.Compile("signature.json")
	if err != nil {
		return nil, fmt.Errorf("compile signature schema: %w", err)
	}
	return sch, nil
}

// validateArgs runs schema validation of the parsed argument object against
// the compiled signature. A nil schema (validation disabled) always passes.
func validateArgs(sch *jsonschema.Schema, v any) error {
	if sch == nil {
		return nil
	}
	if err := sch.Validate(v); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}
