package config

import (
	"slices"
	"sort"
	"strings"
)

// Kind is the semantic type of a configuration field.
type Kind int

const (
	KindAny Kind = iota
	KindString
	KindInt
	KindFloat
	KindBool
	KindStringList
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "integer"
	case KindFloat:
		return "number"
	case KindBool:
		return "boolean"
	case KindStringList:
		return "string array"
	case KindObject:
		return "object"
	default:
		return "any"
	}
}

// Schema describes one level of the configuration tree. Fields are leaf
// settings keyed by their camelCase name, Sections are nested levels keyed
// by their lowercase name, and Entries, when set, describes the value of
// every key of a name-keyed map (such as databases).
type Schema struct {
	Fields   map[string]Kind
	Sections map[string]*Schema
	Entries  *Schema
}

// Lookup returns the kind of the field at path. Inside a name-keyed map any
// entry name is accepted.
func (s *Schema) Lookup(path ...string) (Kind, bool) {
	node := s
	for i, seg := range path {
		if i == len(path)-1 {
			kind, ok := node.Fields[seg]
			return kind, ok
		}
		switch {
		case node.Entries != nil:
			node = node.Entries
		case node.Sections[seg] != nil:
			node = node.Sections[seg]
		default:
			return KindAny, false
		}
	}
	return KindAny, false
}

// Resolve maps lowercase, underscore-split name segments onto a field path.
//
// The walk goes left to right. At every level the remaining segments are
// first tried, camel-cased, as a field of that level; only when that fails
// is the current segment consumed as a section key. The shallowest match
// therefore wins when a name could address fields at several depths. In a
// name-keyed map the entry name is grown one segment at a time, shortest
// first, until the rest resolves inside the entry.
func (s *Schema) Resolve(segments []string) ([]string, Kind, bool) {
	if slices.Contains(segments, "") {
		return nil, KindAny, false
	}
	node := s
	var path []string
	for i := 0; i < len(segments); i++ {
		name := camelCase(segments[i:])
		if kind, ok := node.Fields[name]; ok {
			return append(path, name), kind, true
		}

		if node.Entries != nil {
			for j := i + 1; j < len(segments); j++ {
				entry := strings.Join(segments[i:j], "_")
				if rest, kind, ok := node.Entries.Resolve(segments[j:]); ok {
					path = append(path, entry)
					return append(path, rest...), kind, true
				}
			}
			return nil, KindAny, false
		}

		next, ok := node.Sections[segments[i]]
		if !ok {
			return nil, KindAny, false
		}
		path = append(path, segments[i])
		node = next
	}
	return nil, KindAny, false
}

// Paths lists every field path of the schema in sorted order. Entry levels
// are shown as "*".
func (s *Schema) Paths() []string {
	var out []string
	s.collect("", &out)
	sort.Strings(out)
	return out
}

func (s *Schema) collect(prefix string, out *[]string) {
	for name := range s.Fields {
		*out = append(*out, prefix+name)
	}
	for name, sec := range s.Sections {
		sec.collect(prefix+name+".", out)
	}
	if s.Entries != nil {
		s.Entries.collect(prefix+"*.", out)
	}
}

// camelCase joins segments as lowerCamelCase: ["max", "file", "size"] -> "maxFileSize".
func camelCase(segments []string) string {
	var b strings.Builder
	for i, seg := range segments {
		if seg == "" {
			continue
		}
		if i == 0 || b.Len() == 0 {
			b.WriteString(strings.ToLower(seg))
			continue
		}
		b.WriteString(strings.ToUpper(seg[:1]))
		b.WriteString(strings.ToLower(seg[1:]))
	}
	return b.String()
}
