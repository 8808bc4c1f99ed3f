// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package pipelinedef

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/tidwall/jsonc"
)

// Parse strips JSONC comments and trailing commas from data, then
// unmarshals the result into a Definition with defaults applied.
// Unknown fields are rejected so that a misspelled key ("comit")
// fails loudly instead of falling back to a default.
func Parse(data []byte) (*Definition, error) {
	stripped := jsonc.ToJSON(data)

	decoder := json.NewDecoder(bytes.NewReader(stripped))
	decoder.DisallowUnknownFields()
	var definition Definition
	if err := decoder.Decode(&definition); err != nil {
		return nil, fmt.Errorf("parsing job definition: %w", err)
	}
	if decoder.More() {
		return nil, fmt.Errorf("parsing job definition: trailing data after the top-level object")
	}

	definition.applyDefaults()
	return &definition, nil
}

// ReadFile reads a JSONC job definition from disk and parses it.
func ReadFile(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	definition, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return definition, nil
}
