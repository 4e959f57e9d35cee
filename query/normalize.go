package query

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	// CuratedMarker prefixes curated queries.
	CuratedMarker = '#'
	// KeywordsPrefix introduces a comma separated keyword query.
	KeywordsPrefix = "keywords:"
)

// allowedText is the character allow-list for non-curated text queries.
var allowedText = regexp.MustCompile(`^\$?[a-z0-9_\-\ +,:;.!?()\[\]]*$`)

// Normalizer converts raw parameters into canonical definitions.
// It is safe for concurrent use.
type Normalizer struct {
	reg *Registry
}

// NewNormalizer creates a Normalizer backed by reg.
func NewNormalizer(reg *Registry) *Normalizer {
	return &Normalizer{reg: reg}
}

// Registry returns the registry the normalizer validates against.
func (n *Normalizer) Registry() *Registry { return n.reg }

// Normalize validates raw and returns its canonical Definition.
//
// Errors satisfy errors.Is(err, ErrInvalidQuery) or errors.Is(err, ErrUnknownEngine).
func (n *Normalizer) Normalize(raw Raw) (Definition, error) {
	typ, err := ParseType(raw.Type)
	if err != nil {
		return Definition{}, err
	}

	eng, ok := n.reg.Engine(raw.Engine)
	if !ok {
		return Definition{}, fmt.Errorf("%w: %q", ErrUnknownEngine, strings.TrimSpace(raw.Engine))
	}

	dataset := strings.TrimSpace(raw.Dataset)
	if dataset == "" {
		dataset = n.reg.DefaultDataset()
	}
	if !n.reg.HasDataset(dataset) {
		return Definition{}, invalid("dataset", fmt.Sprintf("unknown dataset %q", dataset))
	}

	def := Definition{
		Type:    typ,
		Dataset: dataset,
		Engine:  eng.Name,
	}

	if p := strings.TrimSpace(raw.Parent); p != "" {
		parent, err := ParseSessionID(p)
		if err != nil {
			return Definition{}, err
		}
		def.Parent = parent
	}

	switch typ {
	case Text:
		def.Spec, err = n.normalizeText(raw.Spec)
	case Image, DatasetImage:
		def.Spec = strings.TrimSpace(raw.Spec)
		if def.Spec == "" {
			err = invalid("q", "missing image reference")
		} else if typ == Image && !eng.ImageInput {
			err = invalid("qtype", fmt.Sprintf("engine %q does not support image queries", eng.Name))
		}
	case Refine:
		if def.Parent == "" {
			err = invalid("prev_qsid", "refine queries need a parent session")
		}
		def.Spec = collapseSpaces(raw.Spec)
	}
	if err != nil {
		return Definition{}, err
	}
	return def, nil
}

func (n *Normalizer) normalizeText(s string) (string, error) {
	s = collapseSpaces(s)
	if s == "" {
		return "", invalid("q", "empty query")
	}
	if s[0] == CuratedMarker {
		if len(s) == 1 {
			return "", invalid("q", "empty curated query")
		}
		return s, nil
	}

	s = strings.ToLower(s)
	wildcard := n.reg.Wildcard()

	if strings.HasPrefix(s, KeywordsPrefix) {
		keywords := splitKeywords(strings.TrimPrefix(s, KeywordsPrefix))
		if len(keywords) == 0 {
			return "", invalid("q", "empty keyword list")
		}
		if len(keywords) == 1 && keywords[0] == wildcard {
			return KeywordsPrefix + wildcard, nil
		}
		for _, k := range keywords {
			if strings.Contains(k, wildcard) {
				return "", invalid("q", fmt.Sprintf("the keyword wildcard (%s) cannot be combined with other keywords", wildcard))
			}
		}
		s = KeywordsPrefix + strings.Join(keywords, ",")
	}

	if !allowedText.MatchString(s) {
		return "", invalid("q", "only letters, numbers, spaces and common word dividers are allowed")
	}
	return s, nil
}

func splitKeywords(s string) []string {
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// collapseSpaces trims s and folds every whitespace run into a single space.
func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
