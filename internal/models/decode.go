package models

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Decode copies a validated JSON payload into a request struct. Scalars are converted
// where unambiguous, so a numeric contact_id decodes into a string field.
func Decode(payload map[string]interface{}, out interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
		TagName:          "mapstructure",
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(payload); err != nil {
		return fmt.Errorf("failed to decode payload: %w", err)
	}
	return nil
}
