package glyph

import (
	"fmt"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// descriptorSchema constrains the JSON object the server uses to describe
// a remote object: the object's name under "command" and its class under
// "type". Anything else in the map is rejected before handle wrapping.
const descriptorSchema = `{
	"type": "object",
	"properties": {
		"command": {"type": "string", "minLength": 1},
		"type": {"type": "string", "minLength": 1}
	},
	"required": ["command", "type"],
	"additionalProperties": true
}`

var (
	descriptorOnce     sync.Once
	compiledDescriptor *gojsonschema.Schema
	descriptorErr      error
)

func descriptor() (*gojsonschema.Schema, error) {
	descriptorOnce.Do(func() {
		compiledDescriptor, descriptorErr = gojsonschema.NewSchema(
			gojsonschema.NewStringLoader(descriptorSchema),
		)
	})
	return compiledDescriptor, descriptorErr
}

// validateDescriptor checks that a decoded JSON object has the shape of
// an object descriptor and returns its name and class.
func validateDescriptor(m map[string]any) (id, category string, err error) {
	schema, err := descriptor()
	if err != nil {
		return "", "", fmt.Errorf("compiling descriptor schema: %w", err)
	}
	result, err := schema.Validate(gojsonschema.NewGoLoader(m))
	if err != nil {
		return "", "", fmt.Errorf("validating object descriptor: %w", err)
	}
	if !result.Valid() {
		details := ""
		for _, e := range result.Errors() {
			if details != "" {
				details += "; "
			}
			details += e.String()
		}
		return "", "", fmt.Errorf("object descriptor is malformed: %s", details)
	}
	id, _ = m["command"].(string)
	category, _ = m["type"].(string)
	return id, category, nil
}
