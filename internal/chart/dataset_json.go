package chart

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// UnmarshalJSON decodes {"columns": [...], "rows": [...]}. When columns is
// omitted the schema is the key order of the first row, followed by any key
// first seen in a later row. Unknown fields are rejected.
func (d *Dataset) UnmarshalJSON(data []byte) error {
	var raw struct {
		Columns []string          `json:"columns"`
		Rows    []json.RawMessage `json:"rows"`
	}
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&raw); err != nil {
		return err
	}

	var rows []Row
	if raw.Rows != nil {
		rows = make([]Row, 0, len(raw.Rows))
	}
	columns := raw.Columns
	deriveColumns := len(columns) == 0
	seen := map[string]bool{}

	for i, message := range raw.Rows {
		var row Row
		if err := json.Unmarshal(message, &row); err != nil {
			return fmt.Errorf("decode row %d: %w", i, err)
		}
		rows = append(rows, row)
		if !deriveColumns {
			continue
		}
		keys, err := objectKeys(message)
		if err != nil {
			return fmt.Errorf("decode row %d: %w", i, err)
		}
		for _, key := range keys {
			if key != "" && !seen[key] {
				seen[key] = true
				columns = append(columns, key)
			}
		}
	}

	d.Columns = columns
	d.Rows = rows
	return nil
}

// objectKeys lists the keys of a JSON object in document order. Anything
// other than an object has no keys.
func objectKeys(data []byte) ([]string, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	token, err := decoder.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := token.(json.Delim); !ok || delim != '{' {
		return nil, nil
	}

	var keys []string
	for decoder.More() {
		token, err := decoder.Token()
		if err != nil {
			return nil, err
		}
		key, ok := token.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected object key %v", token)
		}
		keys = append(keys, key)

		var value json.RawMessage
		if err := decoder.Decode(&value); err != nil {
			return nil, err
		}
	}
	return keys, nil
}
