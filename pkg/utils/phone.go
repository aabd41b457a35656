package utils

import (
	"encoding/json"
	"errors"
	"strings"
)

var ErrInvalidPhoneNumbers = errors.New("phone_numbers must be a string or an array of strings")

// NormalizePhoneNumbers accepts the raw JSON value of a phone_numbers field and
// reduces every accepted input shape to a flat list of strings:
//
//	absent/null        -> empty list
//	["a", "b"]         -> as given
//	"[\"a\", \"b\"]"   -> the encoded list
//	"555-1111"         -> single-element list
//
// Anything else (objects, mixed-type arrays, numbers) is rejected rather than
// reinterpreted.
func NormalizePhoneNumbers(raw json.RawMessage) ([]string, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return []string{}, nil
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		if list == nil {
			return []string{}, nil
		}
		return list, nil
	}

	var single string
	if err := json.Unmarshal(raw, &single); err != nil {
		return nil, ErrInvalidPhoneNumbers
	}

	if nested := strings.TrimSpace(single); nested == "" {
		return []string{}, nil
	} else if err := json.Unmarshal([]byte(nested), &list); err == nil && list != nil {
		return list, nil
	}

	return []string{single}, nil
}
