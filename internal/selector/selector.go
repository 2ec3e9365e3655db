// Package selector describes which sensors a read query targets. A selector
// picks sensors by key, by attribute, or by boolean composition of other
// selectors. The same selector evaluates in memory (Match) and compiles to a
// SQL predicate against the sensors table (the db layer calls SQL).
//
// Wire forms:
//
//	"all"
//	{"keys":["garage-temp","roof-temp"]}
//	{"attributes":{"building":"north"}}
//	{"and":[{"attributes":{"kind":"temperature"}},{"attributes":{"floor":"2"}}]}
//	{"or":[{"keys":["a"]},{"keys":["b"]}]}
package selector

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Selector chooses a set of sensors. Exactly one of the fields is set; the
// zero value selects nothing.
type Selector struct {
	// All selects every sensor.
	All bool
	// Keys selects sensors by exact key.
	Keys []string
	// Attributes selects sensors carrying every listed attribute value.
	Attributes map[string]string
	// AndGroup / OrGroup compose child selectors.
	AndGroup []Selector
	OrGroup  []Selector
}

// AllSensors returns the selector matching every sensor.
func AllSensors() Selector { return Selector{All: true} }

// ByKeys returns a selector matching the given sensor keys.
func ByKeys(keys ...string) Selector { return Selector{Keys: keys} }

// ByAttributes returns a selector matching sensors that carry every given
// attribute value.
func ByAttributes(attrs map[string]string) Selector { return Selector{Attributes: attrs} }

// And composes selectors that must all match.
func And(sels ...Selector) Selector { return Selector{AndGroup: sels} }

// Or composes selectors of which at least one must match.
func Or(sels ...Selector) Selector { return Selector{OrGroup: sels} }

// Validate checks that at most one selector form is populated.
func (s Selector) Validate() error {
	set := 0
	if s.All {
		set++
	}
	if len(s.Keys) > 0 {
		set++
	}
	if len(s.Attributes) > 0 {
		set++
	}
	if len(s.AndGroup) > 0 {
		set++
	}
	if len(s.OrGroup) > 0 {
		set++
	}
	if set > 1 {
		return fmt.Errorf("selector sets %d forms, want at most one", set)
	}
	for _, child := range append(append([]Selector{}, s.AndGroup...), s.OrGroup...) {
		if err := child.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Empty reports whether the selector selects nothing by construction.
func (s Selector) Empty() bool {
	return !s.All && len(s.Keys) == 0 && len(s.Attributes) == 0 &&
		len(s.AndGroup) == 0 && len(s.OrGroup) == 0
}

// Match evaluates the selector against a sensor's key and attributes.
func (s Selector) Match(key string, attrs map[string]string) bool {
	switch {
	case s.All:
		return true
	case len(s.Keys) > 0:
		for _, k := range s.Keys {
			if k == key {
				return true
			}
		}
		return false
	case len(s.Attributes) > 0:
		for k, v := range s.Attributes {
			if attrs[k] != v {
				return false
			}
		}
		return true
	case len(s.AndGroup) > 0:
		for _, child := range s.AndGroup {
			if !child.Match(key, attrs) {
				return false
			}
		}
		return true
	case len(s.OrGroup) > 0:
		for _, child := range s.OrGroup {
			if child.Match(key, attrs) {
				return true
			}
		}
		return false
	}
	return false
}

// SQL compiles the selector into a predicate over the sensors table. The
// attributes column holds a JSON object, matched with sqlite's json_extract.
// Returns the predicate and its bind arguments.
func (s Selector) SQL() (string, []interface{}) {
	switch {
	case s.All:
		return "1=1", nil
	case len(s.Keys) > 0:
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(s.Keys)), ",")
		args := make([]interface{}, len(s.Keys))
		for i, k := range s.Keys {
			args[i] = k
		}
		return fmt.Sprintf("key IN (%s)", placeholders), args
	case len(s.Attributes) > 0:
		// Deterministic clause order keeps queries cacheable and tests stable.
		names := make([]string, 0, len(s.Attributes))
		for k := range s.Attributes {
			names = append(names, k)
		}
		sort.Strings(names)
		clauses := make([]string, 0, len(names))
		var args []interface{}
		for _, name := range names {
			clauses = append(clauses, "json_extract(attributes, '$.' || ?) = ?")
			args = append(args, name, s.Attributes[name])
		}
		return "(" + strings.Join(clauses, " AND ") + ")", args
	case len(s.AndGroup) > 0:
		return joinSQL(s.AndGroup, " AND ")
	case len(s.OrGroup) > 0:
		return joinSQL(s.OrGroup, " OR ")
	}
	return "1=0", nil
}

func joinSQL(children []Selector, sep string) (string, []interface{}) {
	clauses := make([]string, 0, len(children))
	var args []interface{}
	for _, child := range children {
		sql, childArgs := child.SQL()
		clauses = append(clauses, sql)
		args = append(args, childArgs...)
	}
	return "(" + strings.Join(clauses, sep) + ")", args
}

// selectorJSON is the object wire form; the string form "all" is handled
// directly in UnmarshalJSON.
type selectorJSON struct {
	Keys       []string          `json:"keys,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	And        []Selector        `json:"and,omitempty"`
	Or         []Selector        `json:"or,omitempty"`
}

// MarshalJSON encodes the selector in its wire form.
func (s Selector) MarshalJSON() ([]byte, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if s.All {
		return json.Marshal("all")
	}
	return json.Marshal(selectorJSON{
		Keys:       s.Keys,
		Attributes: s.Attributes,
		And:        s.AndGroup,
		Or:         s.OrGroup,
	})
}

// UnmarshalJSON decodes either the string form "all" or the object form.
func (s *Selector) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, `"`) {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		if str != "all" {
			return fmt.Errorf("unknown selector %q", str)
		}
		*s = AllSensors()
		return nil
	}

	var wire selectorJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("selector: %w", err)
	}
	decoded := Selector{
		Keys:       wire.Keys,
		Attributes: wire.Attributes,
		AndGroup:   wire.And,
		OrGroup:    wire.Or,
	}
	if err := decoded.Validate(); err != nil {
		return err
	}
	*s = decoded
	return nil
}
