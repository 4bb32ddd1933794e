package validation

import (
	"encoding/json"

	validation "github.com/jellydator/validation"
)

// JSONDocument validates that a []byte, json.RawMessage or string holds valid JSON.
// Empty values are left to validation.Required.
var JSONDocument = validation.By(func(value any) error {
	var data []byte
	switch v := value.(type) {
	case json.RawMessage:
		data = v
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return validation.NewError("validation_json_type", "must be a JSON document")
	}
	if len(data) == 0 {
		return nil
	}
	if !json.Valid(data) {
		return validation.NewError("validation_json", "must be a valid JSON document")
	}
	return nil
})
