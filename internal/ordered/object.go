// Package ordered decodes JSON objects while keeping the order in which keys appear.
// Solr's facet maps and client filter selections are objects whose key order is observable.
package ordered

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Member is a single key/value pair of a JSON object
type Member struct {
	Key   string
	Value json.RawMessage
}

// Object is a JSON object decoded in document order. Duplicate keys are kept.
type Object []Member

// UnmarshalJSON implements json.Unmarshaler
func (o *Object) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}

	if tok == nil {
		*o = nil
		return nil
	}

	if delim, ok := tok.(json.Delim); ok == false || delim != '{' {
		return fmt.Errorf("expected JSON object, got %v", tok)
	}

	members := Object{}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}

		key, ok := keyTok.(string)
		if ok == false {
			return fmt.Errorf("expected object key, got %v", keyTok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}

		members = append(members, Member{Key: key, Value: raw})
	}

	if _, err := dec.Token(); err != nil {
		return err
	}

	*o = members

	return nil
}

// Keys returns the keys in document order
func (o Object) Keys() []string {
	keys := make([]string, 0, len(o))

	for _, m := range o {
		keys = append(keys, m.Key)
	}

	return keys
}

// Get returns the first value stored under key
func (o Object) Get(key string) (json.RawMessage, bool) {
	for _, m := range o {
		if m.Key == key {
			return m.Value, true
		}
	}

	return nil, false
}
