package archive

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/visor/blobstore"
	"github.com/hupe1980/visor/codec"
	"github.com/hupe1980/visor/model"
	"github.com/hupe1980/visor/query"
)

func testItems(n int) []model.Item {
	items := make([]model.Item, n)
	for i := range items {
		items[i] = model.Item{Path: fmt.Sprintf("dataset/frames/%05d.jpg", i), Score: float64(n-i) / float64(n)}
		if i%4 == 0 {
			items[i].ROI = "10_10_50_10_50_50_10_50_10_10"
		}
	}
	return items
}

var testDef = query.Definition{Spec: "cat", Type: query.Text, Dataset: "mydataset", Engine: "instances"}

func TestEncodeDecode(t *testing.T) {
	rec := Record{Definition: testDef, Items: testItems(200)}

	for _, c := range []codec.Codec{codec.JSON{}, codec.GoJSON{}} {
		for _, comp := range []Compression{CompressionNone, CompressionLZ4, CompressionZSTD} {
			t.Run(c.Name()+"/"+comp.String(), func(t *testing.T) {
				data, err := Encode(rec, c, comp)
				require.NoError(t, err)
				assert.True(t, bytes.HasPrefix(data, []byte("VRL1")))

				got, err := Decode(data)
				require.NoError(t, err)
				assert.Equal(t, rec.Definition, got.Definition)
				assert.Equal(t, rec.Items, got.Items)
			})
		}
	}
}

func TestCompressionShrinksRepetitiveLists(t *testing.T) {
	rec := Record{Definition: testDef, Items: testItems(500)}

	raw, err := Encode(rec, codec.GoJSON{}, CompressionNone)
	require.NoError(t, err)
	packed, err := Encode(rec, codec.GoJSON{}, CompressionZSTD)
	require.NoError(t, err)
	assert.Less(t, len(packed), len(raw))
}

func TestDecodeRejects(t *testing.T) {
	_, err := Decode([]byte("nope"))
	assert.ErrorIs(t, err, ErrFormat)

	data, err := Encode(Record{Definition: testDef}, codec.GoJSON{}, CompressionZSTD)
	require.NoError(t, err)

	_, err = Decode(data[:len(data)-3])
	assert.ErrorIs(t, err, ErrFormat)

	bad := bytes.Clone(data)
	copy(bad[6:], "xx-json")
	_, err = Decode(bad)
	assert.ErrorIs(t, err, ErrFormat)
}

func TestParseCompression(t *testing.T) {
	for name, want := range map[string]Compression{"": CompressionZSTD, "ZSTD": CompressionZSTD, "lz4": CompressionLZ4, "none": CompressionNone} {
		got, err := ParseCompression(name)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseCompression("gzip")
	assert.Error(t, err)
}

func TestArchiveSaveLoad(t *testing.T) {
	store := blobstore.NewMemoryStore()
	a := New(store, WithPrefix("rankinglists"), WithCompression(CompressionLZ4))
	ctx := context.Background()
	id := query.Fingerprint(testDef)

	_, err := a.Load(ctx, id, testDef)
	assert.ErrorIs(t, err, ErrNotFound)

	items := testItems(50)
	require.NoError(t, a.Save(ctx, id, testDef, items))

	names, err := store.List(ctx, "rankinglists/")
	require.NoError(t, err)
	assert.Equal(t, []string{"rankinglists/" + string(id) + ".vrl"}, names)

	got, err := a.Load(ctx, id, testDef)
	require.NoError(t, err)
	assert.Equal(t, items, got)

	// First writer wins on conditional stores.
	require.NoError(t, a.Save(ctx, id, testDef, testItems(3)))
	got, err = a.Load(ctx, id, testDef)
	require.NoError(t, err)
	assert.Len(t, got, 50)

	other := testDef
	other.Spec = "dog"
	_, err = a.Load(ctx, id, other)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, a.Delete(ctx, id))
	_, err = a.Load(ctx, id, testDef)
	assert.ErrorIs(t, err, ErrNotFound)
}

type plainStore struct {
	blobstore.Store
	puts int
}

func (s *plainStore) Put(ctx context.Context, name string, data []byte) error {
	s.puts++
	return s.Store.Put(ctx, name, data)
}

func TestArchiveOverwritesOnPlainStores(t *testing.T) {
	store := &plainStore{Store: blobstore.NewMemoryStore()}
	a := New(store)
	ctx := context.Background()
	id := query.Fingerprint(testDef)

	require.NoError(t, a.Save(ctx, id, testDef, testItems(2)))
	require.NoError(t, a.Save(ctx, id, testDef, testItems(4)))
	assert.Equal(t, 2, store.puts)

	got, err := a.Load(ctx, id, testDef)
	require.NoError(t, err)
	assert.Len(t, got, 4)
}
