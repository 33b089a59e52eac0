package api

import (
	"bytes"
	"embed"
	"encoding/json"
	"strings"

	"github.com/alecthomas/errors"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.json
var schemaFiles embed.FS

// schemas holds the compiled request body schemas, keyed by file name without extension.
type schemas map[string]*jsonschema.Schema

func compileSchemas() (schemas, error) {
	entries, err := schemaFiles.ReadDir("schemas")
	if err != nil {
		return nil, errors.WithStack(err)
	}
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft7
	out := schemas{}
	for _, entry := range entries {
		data, err := schemaFiles.ReadFile("schemas/" + entry.Name())
		if err != nil {
			return nil, errors.WithStack(err)
		}
		url := "file:///" + entry.Name()
		if err := c.AddResource(url, bytes.NewReader(data)); err != nil {
			return nil, errors.Wrapf(err, "failed to add schema %s", entry.Name())
		}
		compiled, err := c.Compile(url)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to compile schema %s", entry.Name())
		}
		out[strings.TrimSuffix(entry.Name(), ".json")] = compiled
	}
	return out, nil
}

// decode validates body against the named schema and unmarshals it into v.
func (s schemas) decode(name string, body []byte, v any) error {
	schema, ok := s[name]
	if !ok {
		return errors.Errorf("unknown schema %q", name)
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return validationErrorf("Invalid JSON body: %s", err)
	}
	if err := schema.Validate(doc); err != nil {
		return &ValidationError{Message: err.Error()}
	}
	if err := json.Unmarshal(body, v); err != nil {
		return validationErrorf("Invalid JSON body: %s", err)
	}
	return nil
}
