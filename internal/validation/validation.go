// Package validation checks request payloads against JSON schemas embedded in the binary.
package validation

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

const schemaBaseURL = "https://flightdeck.local/schemas/"

// Kind names a payload schema.
type Kind string

const (
	KindOperator Kind = "operator"
	KindAirport  Kind = "airport"
	KindFlight   Kind = "flight"
)

// ErrInvalidPayload wraps every schema or decoding failure.
var ErrInvalidPayload = errors.New("invalid payload")

var icaoPattern = regexp.MustCompile(`^[A-Z0-9]{4}$`)

// ValidICAO reports whether code is a four-character upper-case ICAO location indicator.
func ValidICAO(code string) bool {
	return icaoPattern.MatchString(code)
}

// Validator holds the compiled payload schemas.
type Validator struct {
	schemas map[Kind]*jsonschema.Schema
}

// New compiles the embedded schemas. Remote references are refused.
func New() (*Validator, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	compiler.AssertFormat = true
	compiler.LoadURL = func(u string) (io.ReadCloser, error) {
		return nil, fmt.Errorf("loading %s: remote schemas are not allowed", u)
	}

	kinds := []Kind{KindOperator, KindAirport, KindFlight}
	for _, k := range kinds {
		name := string(k) + ".schema.json"
		raw, err := schemaFS.ReadFile("schemas/" + name)
		if err != nil {
			return nil, fmt.Errorf("reading schema %s: %w", name, err)
		}
		if err := compiler.AddResource(schemaBaseURL+name, bytes.NewReader(raw)); err != nil {
			return nil, fmt.Errorf("adding schema %s: %w", name, err)
		}
	}

	v := &Validator{schemas: make(map[Kind]*jsonschema.Schema, len(kinds))}
	for _, k := range kinds {
		s, err := compiler.Compile(schemaBaseURL + string(k) + ".schema.json")
		if err != nil {
			return nil, fmt.Errorf("compiling %s schema: %w", k, err)
		}
		v.schemas[k] = s
	}
	return v, nil
}

// Validate checks body against the schema for kind.
func (v *Validator) Validate(kind Kind, body []byte) error {
	schema, ok := v.schemas[kind]
	if !ok {
		return fmt.Errorf("no schema for %q", kind)
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: malformed JSON", ErrInvalidPayload)
	}

	if err := schema.Validate(doc); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return fmt.Errorf("%w: %s", ErrInvalidPayload, describe(ve))
		}
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}

// Decode validates body and then unmarshals it into dst.
func (v *Validator) Decode(kind Kind, body []byte, dst any) error {
	if err := v.Validate(kind, body); err != nil {
		return err
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}

// describe reduces a validation error tree to its first leaf, e.g.
// "/position/lat: must be <= 90 but found 91".
func describe(ve *jsonschema.ValidationError) string {
	leaf := ve
	for len(leaf.Causes) > 0 {
		leaf = leaf.Causes[0]
	}
	loc := leaf.InstanceLocation
	if loc == "" {
		loc = "/"
	}
	return loc + ": " + strings.TrimSpace(leaf.Message)
}
