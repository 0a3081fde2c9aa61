package protocol

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

const schemaBaseURL = "https://skyticket.ai/schemas/"

// Validator checks raw messages against the embedded JSON Schemas, keyed by
// message type. It is read-only after construction and safe to share.
type Validator struct {
	schemas map[string]*jsonschema.Schema
}

func NewValidator() (*Validator, error) {
	names, err := fs.Glob(schemaFS, "schemas/*.schema.json")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)

	c := jsonschema.NewCompiler()
	for _, name := range names {
		b, err := schemaFS.ReadFile(name)
		if err != nil {
			return nil, err
		}
		if err := c.AddResource(schemaBaseURL+strings.TrimPrefix(name, "schemas/"), bytes.NewReader(b)); err != nil {
			return nil, fmt.Errorf("add schema %s: %w", name, err)
		}
	}

	v := &Validator{schemas: map[string]*jsonschema.Schema{}}
	for _, name := range names {
		base := strings.TrimPrefix(name, "schemas/")
		s, err := c.Compile(schemaBaseURL + base)
		if err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", base, err)
		}
		v.schemas[strings.ToUpper(strings.TrimSuffix(base, ".schema.json"))] = s
	}
	return v, nil
}

// Types lists the message types that have a schema.
func (v *Validator) Types() []string {
	out := make([]string, 0, len(v.schemas))
	for k := range v.schemas {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Validate checks a raw JSON message of the given type.
func (v *Validator) Validate(msgType string, raw []byte) error {
	s := v.schemas[msgType]
	if s == nil {
		return fmt.Errorf("no schema for message type %q", msgType)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}
	return s.Validate(doc)
}

// ValidateValue marshals msg and validates it as msgType.
func (v *Validator) ValidateValue(msgType string, msg any) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return v.Validate(msgType, b)
}
