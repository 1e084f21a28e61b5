package model

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ParseDefinition decodes a JSON or YAML survey definition. YAML is converted
// to JSON first so both formats go through the same option and trigger value
// decoding. The result is not normalised.
func ParseDefinition(data []byte) (*Survey, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("empty survey definition")
	}

	if data[0] != '{' {
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("invalid yaml definition: %w", err)
		}
		converted, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("failed to convert yaml definition: %w", err)
		}
		data = converted
	}

	var survey Survey
	if err := json.Unmarshal(data, &survey); err != nil {
		return nil, fmt.Errorf("invalid survey definition: %w", err)
	}
	return &survey, nil
}
