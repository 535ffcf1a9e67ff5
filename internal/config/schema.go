package config

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//go:embed schema.json
var schemaJSON []byte

const schemaName = "gate-agent.schema.json"

var (
	printer = message.NewPrinter(language.English)
	schema  = mustCompileSchema(schemaJSON)
)

// Schema returns the JSON Schema config files are checked against.
func Schema() []byte { return schemaJSON }

func mustCompileSchema(raw []byte) *jsonschema.Schema {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		panic(fmt.Sprintf("parsing embedded %s: %v", schemaName, err))
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(schemaName, doc); err != nil {
		panic(fmt.Sprintf("adding %s: %v", schemaName, err))
	}
	sch, err := c.Compile(schemaName)
	if err != nil {
		panic(fmt.Sprintf("compiling %s: %v", schemaName, err))
	}
	return sch
}

func validateSchema(doc any) ValidationErrors {
	err := schema.Validate(doc)
	if err == nil {
		return nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return ValidationErrors{{Field: "(root)", Message: err.Error()}}
	}
	var out ValidationErrors
	collectSchemaErrors(ve, &out)
	return out
}

func collectSchemaErrors(ve *jsonschema.ValidationError, out *ValidationErrors) {
	if len(ve.Causes) == 0 {
		field := "(root)"
		if len(ve.InstanceLocation) > 0 {
			field = strings.Join(ve.InstanceLocation, ".")
		}
		*out = append(*out, ValidationError{Field: field, Message: ve.ErrorKind.LocalizedString(printer)})
		return
	}
	for _, c := range ve.Causes {
		collectSchemaErrors(c, out)
	}
}
