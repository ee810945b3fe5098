// Package canon implements deterministic canonicalization of records:
// sorted keys, minimal separators, UTF-8, and omission of null-valued
// fields, so that two semantically equal records produce byte-equal
// output on any platform.
package canon

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrNonFinite is returned by canonicalizeValue when a float value is
// NaN or +/-Inf. Marshal rejects such values earlier, with the error
// encoding/json reports for them.
var ErrNonFinite = errors.New("canon: non-finite number")

// Marshal encodes v into canonical bytes. v is first round-tripped
// through encoding/json so that structs, maps and slices are all
// reduced to the same tree of strings, json.Numbers, bools, nils,
// slices and map[string]any that canonicalizeValue operates on.
func Marshal(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canon: marshal input: %w", err)
	}
	return MarshalJSON(raw)
}

// MarshalJSON canonicalizes an already-encoded JSON document.
func MarshalJSON(raw []byte) ([]byte, error) {
	var v any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("canon: decode input: %w", err)
	}
	cv, err := canonicalizeValue(v)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(cv); err != nil {
		return nil, fmt.Errorf("canon: encode canonical value: %w", err)
	}
	// json.Encoder.Encode appends a trailing newline; strip it so the
	// canonical form has no incidental whitespace.
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// orderedMap preserves canonical (sorted) key order through
// json.Marshal, which otherwise re-sorts map[string]any keys itself --
// relying on that stdlib behavior would be fragile if it ever changes,
// so key order is made explicit here.
type orderedMap struct {
	keys   []string
	values map[string]any
}

func (m orderedMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := enc.Encode(k); err != nil {
			return nil, err
		}
		buf.Truncate(buf.Len() - 1) // drop Encode's trailing newline
		buf.WriteByte(':')
		if err := enc.Encode(m.values[k]); err != nil {
			return nil, err
		}
		buf.Truncate(buf.Len() - 1)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// canonicalizeValue recursively sorts map keys, omits null-valued
// fields, and validates that numbers are finite.
func canonicalizeValue(v any) (any, error) {
	switch vv := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(vv))
		for k, val := range vv {
			if val == nil {
				continue
			}
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := orderedMap{keys: keys, values: make(map[string]any, len(keys))}
		for _, k := range keys {
			cv, err := canonicalizeValue(vv[k])
			if err != nil {
				return nil, err
			}
			out.values[k] = cv
		}
		return out, nil
	case []any:
		out := make([]any, len(vv))
		for i, e := range vv {
			cv, err := canonicalizeValue(e)
			if err != nil {
				return nil, err
			}
			out[i] = cv
		}
		return out, nil
	case float64:
		if math.IsNaN(vv) || math.IsInf(vv, 0) {
			return nil, ErrNonFinite
		}
		return vv, nil
	case json.Number:
		if _, err := vv.Float64(); err != nil {
			return nil, fmt.Errorf("canon: invalid number %q: %w", vv.String(), err)
		}
		return json.RawMessage(vv.String()), nil
	default:
		return vv, nil
	}
}
