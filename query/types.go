package query

import (
	"fmt"
	"strings"
)

// Type is the closed set of query kinds accepted by the search backends.
type Type uint8

const (
	// Text is a free-text or keyword query.
	Text Type = iota
	// Image is a query by an uploaded or external image.
	Image
	// DatasetImage is a query by an image that is part of the searched dataset.
	DatasetImage
	// Refine builds on the result set of a parent session.
	Refine
)

var typeNames = [...]string{
	Text:         "text",
	Image:        "image",
	DatasetImage: "dsetimage",
	Refine:       "refine",
}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("Type(%d)", uint8(t))
}

// MarshalText implements encoding.TextMarshaler.
func (t Type) MarshalText() ([]byte, error) {
	if int(t) >= len(typeNames) {
		return nil, fmt.Errorf("query: unknown type %d", uint8(t))
	}
	return []byte(typeNames[t]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Type) UnmarshalText(b []byte) error {
	v, err := ParseType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// ParseType parses the wire name of a query type. An empty name means Text.
func ParseType(s string) (Type, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Text, nil
	}
	for i, name := range typeNames {
		if name == s {
			return Type(i), nil
		}
	}
	return 0, invalid("type", fmt.Sprintf("unsupported query type %q", s))
}

// Raw holds the query parameters as submitted by a caller.
type Raw struct {
	// Spec is the query text or the image reference.
	Spec    string `json:"q"`
	Type    string `json:"qtype,omitempty"`
	Dataset string `json:"dsetname,omitempty"`
	Engine  string `json:"engine"`
	// Parent is the session a refine query builds on.
	Parent string `json:"prev_qsid,omitempty"`
}

// Definition is the canonical, comparable description of a query.
//
// Two definitions are equal iff their fields are equal; the Normalizer is
// responsible for producing the same Definition for equivalent raw input.
type Definition struct {
	Spec    string    `json:"spec"`
	Type    Type      `json:"type"`
	Dataset string    `json:"dataset"`
	Engine  string    `json:"engine"`
	Parent  SessionID `json:"parent,omitempty"`
}

// IsCurated reports whether the definition is a curated text query.
func (d Definition) IsCurated() bool {
	return d.Type == Text && strings.HasPrefix(d.Spec, string(CuratedMarker))
}

// IsKeyword reports whether the definition is a keyword query.
func (d Definition) IsKeyword() bool {
	return d.Type == Text && strings.HasPrefix(d.Spec, KeywordsPrefix)
}

func (d Definition) String() string {
	var b strings.Builder
	b.WriteString(d.Type.String())
	b.WriteByte(':')
	b.WriteString(d.Spec)
	b.WriteString(" dataset=")
	b.WriteString(d.Dataset)
	b.WriteString(" engine=")
	b.WriteString(d.Engine)
	if d.Parent != "" {
		b.WriteString(" parent=")
		b.WriteString(string(d.Parent))
	}
	return b.String()
}
