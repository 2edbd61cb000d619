package search

import (
	"bytes"
	"encoding/json"
)

type pair struct {
	key   string
	value interface{}
}

// marshalPairs writes a JSON object whose keys appear in the given order
func marshalPairs(pairs []pair) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte('{')

	for i, p := range pairs {
		if i > 0 {
			buf.WriteByte(',')
		}

		key, err := json.Marshal(p.key)
		if err != nil {
			return nil, err
		}

		val, err := json.Marshal(p.value)
		if err != nil {
			return nil, err
		}

		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}

	buf.WriteByte('}')

	return buf.Bytes(), nil
}
