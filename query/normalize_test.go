package query

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRegistry() *Registry {
	return NewRegistry([]Engine{
		{Name: "instances", FullName: "Instance search", BackendAddr: "127.0.0.1:45288", BackendTimeout: 5 * time.Second, ImageInput: true},
		{Name: "Faces", FullName: "Face search", BackendAddr: "127.0.0.1:45289", BackendTimeout: 5 * time.Second},
	}, map[string]string{
		"mydataset": "My dataset",
		"other":     "Another dataset",
	}, WithDefaultDataset("mydataset"))
}

func TestNormalizeText(t *testing.T) {
	n := NewNormalizer(testRegistry())

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"lowercase", "Cat", "cat"},
		{"trim", "  cat  ", "cat"},
		{"collapse", "black \t cat\n on  mat", "black cat on mat"},
		{"separators", "cat, dog; (bird)!", "cat, dog; (bird)!"},
		{"dollar prefix", "$cat", "$cat"},
		{"curated keeps case", "  #Special Collection ", "#Special Collection"},
		{"curated skips allow-list", "#ünïcode/*", "#ünïcode/*"},
		{"keywords normalized", "Keywords: Cat , ,dog ", "keywords:cat,dog"},
		{"keyword wildcard", "keywords:*", "keywords:*"},
		{"keyword wildcard spaced", "keywords: * ", "keywords:*"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def, err := n.Normalize(Raw{Spec: tt.raw, Engine: "instances"})
			require.NoError(t, err)
			assert.Equal(t, tt.want, def.Spec)
			assert.Equal(t, Text, def.Type)
			assert.Equal(t, "mydataset", def.Dataset)
		})
	}
}

func TestNormalizeRejects(t *testing.T) {
	n := NewNormalizer(testRegistry())

	tests := []struct {
		name  string
		raw   Raw
		field string
	}{
		{"empty", Raw{Spec: "   ", Engine: "instances"}, "q"},
		{"bad chars", Raw{Spec: "cat/dog", Engine: "instances"}, "q"},
		{"bare wildcard", Raw{Spec: "*", Engine: "instances"}, "q"},
		{"mixed wildcard", Raw{Spec: "keywords:cat,*", Engine: "instances"}, "q"},
		{"empty keywords", Raw{Spec: "keywords: , ", Engine: "instances"}, "q"},
		{"bare curated marker", Raw{Spec: "#", Engine: "instances"}, "q"},
		{"unknown type", Raw{Spec: "cat", Type: "video", Engine: "instances"}, "type"},
		{"unknown dataset", Raw{Spec: "cat", Dataset: "nope", Engine: "instances"}, "dataset"},
		{"image unsupported", Raw{Spec: "img.jpg", Type: "image", Engine: "faces"}, "qtype"},
		{"image empty", Raw{Spec: " ", Type: "image", Engine: "instances"}, "q"},
		{"refine without parent", Raw{Spec: "", Type: "refine", Engine: "instances"}, "prev_qsid"},
		{"bad parent", Raw{Spec: "cat", Engine: "instances", Parent: "not-an-id"}, "qsid"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := n.Normalize(tt.raw)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidQuery)

			var qe *InvalidQueryError
			require.True(t, errors.As(err, &qe))
			assert.Equal(t, tt.field, qe.Field)
		})
	}
}

func TestNormalizeUnknownEngine(t *testing.T) {
	n := NewNormalizer(testRegistry())

	_, err := n.Normalize(Raw{Spec: "cat", Engine: "missing"})
	assert.ErrorIs(t, err, ErrUnknownEngine)
	assert.NotErrorIs(t, err, ErrInvalidQuery)
}

func TestNormalizeEngineCaseInsensitive(t *testing.T) {
	n := NewNormalizer(testRegistry())

	def, err := n.Normalize(Raw{Spec: "cat", Engine: " FACES "})
	require.NoError(t, err)
	assert.Equal(t, "faces", def.Engine)
}

func TestNormalizeImageAndRefine(t *testing.T) {
	n := NewNormalizer(testRegistry())

	def, err := n.Normalize(Raw{Spec: " uploads/a.jpg ", Type: "image", Engine: "instances"})
	require.NoError(t, err)
	assert.Equal(t, "uploads/a.jpg", def.Spec)
	assert.Equal(t, Image, def.Type)

	def, err = n.Normalize(Raw{Spec: "frames/0001.jpg", Type: "dsetimage", Engine: "faces", Dataset: "other"})
	require.NoError(t, err)
	assert.Equal(t, DatasetImage, def.Type)
	assert.Equal(t, "other", def.Dataset)

	parent := Fingerprint(Definition{Spec: "cat", Dataset: "mydataset", Engine: "instances"})
	def, err = n.Normalize(Raw{Type: "refine", Engine: "instances", Parent: string(parent), Spec: " more   red "})
	require.NoError(t, err)
	assert.Equal(t, Refine, def.Type)
	assert.Equal(t, parent, def.Parent)
	assert.Equal(t, "more red", def.Spec)
}

func TestRegistry(t *testing.T) {
	r := testRegistry()
	assert.Equal(t, []string{"faces", "instances"}, r.EngineNames())
	assert.Equal(t, "mydataset", r.DefaultDataset())
	assert.True(t, r.HasDataset("other"))
	assert.False(t, r.HasDataset(""))
	assert.Equal(t, DefaultWildcard, r.Wildcard())

	open := NewRegistry(nil, nil, WithWildcard("#"))
	assert.True(t, open.HasDataset("anything"))
	assert.False(t, open.HasDataset(""))
	assert.Equal(t, DefaultWildcard, open.Wildcard(), "curated marker cannot be the wildcard")

	single := NewRegistry(nil, map[string]string{"only": ""}, WithWildcard("%"))
	assert.Equal(t, "only", single.DefaultDataset())
	assert.Equal(t, "%", single.Wildcard())
}

func TestNormalizeCustomWildcard(t *testing.T) {
	r := NewRegistry([]Engine{{Name: "instances"}}, nil, WithDefaultDataset("d"), WithWildcard("%"))
	n := NewNormalizer(r)

	def, err := n.Normalize(Raw{Spec: "keywords:%", Engine: "instances"})
	require.NoError(t, err)
	assert.Equal(t, "keywords:%", def.Spec)

	_, err = n.Normalize(Raw{Spec: "keywords:*", Engine: "instances"})
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestTypeText(t *testing.T) {
	for _, typ := range []Type{Text, Image, DatasetImage, Refine} {
		b, err := typ.MarshalText()
		require.NoError(t, err)

		var got Type
		require.NoError(t, got.UnmarshalText(b))
		assert.Equal(t, typ, got)
	}

	_, err := Type(42).MarshalText()
	assert.Error(t, err)
	assert.Equal(t, "Type(42)", Type(42).String())
}
