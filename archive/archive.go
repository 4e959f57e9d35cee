// Package archive persists completed ranking lists so that a query evicted
// from the cache, or submitted after a restart, can be served without
// running the backend again.
package archive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"time"

	"github.com/hupe1980/visor/blobstore"
	"github.com/hupe1980/visor/codec"
	"github.com/hupe1980/visor/model"
	"github.com/hupe1980/visor/query"
)

// ErrNotFound is returned when no usable record exists for a query.
var ErrNotFound = errors.New("archive: ranking list not found")

// conditionalPutter is implemented by stores with first-writer-wins writes.
type conditionalPutter interface {
	PutIfAbsent(ctx context.Context, name string, data []byte) error
}

// Option configures an Archive.
type Option func(*Archive)

// WithCodec sets the codec used for new records.
func WithCodec(c codec.Codec) Option {
	return func(a *Archive) {
		if c != nil {
			a.codec = c
		}
	}
}

// WithCompression sets the compression used for new records.
func WithCompression(c Compression) Option {
	return func(a *Archive) {
		a.compression = c
	}
}

// WithPrefix places records under prefix in the store.
func WithPrefix(prefix string) Option {
	return func(a *Archive) {
		a.prefix = prefix
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Archive) {
		if l != nil {
			a.logger = l
		}
	}
}

// Archive reads and writes ranking lists in a blob store.
type Archive struct {
	store       blobstore.Store
	codec       codec.Codec
	compression Compression
	prefix      string
	logger      *slog.Logger
	now         func() time.Time
}

// New creates an Archive on top of store.
func New(store blobstore.Store, opts ...Option) *Archive {
	a := &Archive{
		store:       store,
		codec:       codec.Default,
		compression: CompressionZSTD,
		logger:      slog.Default(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Name returns the blob name of the ranking list of id.
func (a *Archive) Name(id query.SessionID) string {
	return path.Join(a.prefix, string(id)+".vrl")
}

// Save stores the ranking list of def. A list already archived by another
// writer is left untouched.
func (a *Archive) Save(ctx context.Context, id query.SessionID, def query.Definition, items []model.Item) error {
	data, err := Encode(Record{Definition: def, Items: items, SavedAt: a.now().UTC()}, a.codec, a.compression)
	if err != nil {
		return err
	}

	name := a.Name(id)
	if cp, ok := a.store.(conditionalPutter); ok {
		err = cp.PutIfAbsent(ctx, name, data)
		if errors.Is(err, blobstore.ErrAlreadyExists) {
			a.logger.Debug("ranking list already archived", "qsid", string(id))
			return nil
		}
	} else {
		err = a.store.Put(ctx, name, data)
	}
	if err != nil {
		return fmt.Errorf("archive: save %s: %w", id, err)
	}
	return nil
}

// Load returns the archived ranking list of def. A record stored for a
// different definition is reported as ErrNotFound.
func (a *Archive) Load(ctx context.Context, id query.SessionID, def query.Definition) ([]model.Item, error) {
	data, err := a.store.Get(ctx, a.Name(id))
	if errors.Is(err, blobstore.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("archive: load %s: %w", id, err)
	}

	rec, err := Decode(data)
	if err != nil {
		return nil, err
	}
	if rec.Definition != def {
		a.logger.Warn("archived ranking list belongs to another query", "qsid", string(id))
		return nil, ErrNotFound
	}
	return rec.Items, nil
}

// Delete removes the ranking list of id.
func (a *Archive) Delete(ctx context.Context, id query.SessionID) error {
	return a.store.Delete(ctx, a.Name(id))
}
