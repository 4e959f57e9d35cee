package archive

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/visor/codec"
	"github.com/hupe1980/visor/model"
	"github.com/hupe1980/visor/query"
)

// magic identifies an archived ranking list.
var magic = []byte("VRL1")

// ErrFormat is returned for blobs that are not valid archive records.
var ErrFormat = errors.New("archive: invalid record format")

// Record is one archived ranking list.
type Record struct {
	Definition query.Definition `json:"definition"`
	Items      []model.Item     `json:"items"`
	SavedAt    time.Time        `json:"saved_at"`
}

// Encode serializes rec as
//
//	"VRL1" | compression (1 byte) | len(codec name) (1 byte) | codec name | payload block
func Encode(rec Record, c codec.Codec, comp Compression) ([]byte, error) {
	if c == nil {
		c = codec.Default
	}
	name := c.Name()
	if len(name) > 255 {
		return nil, fmt.Errorf("archive: codec name too long: %q", name)
	}

	payload, err := c.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("archive: encode with %s: %w", name, err)
	}
	block, err := compressBlock(payload, comp)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Grow(len(magic) + 2 + len(name) + len(block))
	buf.Write(magic)
	buf.WriteByte(byte(comp))
	buf.WriteByte(byte(len(name)))
	buf.WriteString(name)
	buf.Write(block)
	return buf.Bytes(), nil
}

// Decode parses a record written by Encode, selecting the codec by the
// name stored in the header.
func Decode(data []byte) (Record, error) {
	if len(data) < len(magic)+2 || !bytes.Equal(data[:len(magic)], magic) {
		return Record{}, ErrFormat
	}
	data = data[len(magic):]
	comp := Compression(data[0])
	nameLen := int(data[1])
	data = data[2:]
	if len(data) < nameLen {
		return Record{}, ErrFormat
	}

	name := string(data[:nameLen])
	c, ok := codec.ByName(name)
	if !ok {
		return Record{}, fmt.Errorf("%w: unknown codec %q", ErrFormat, name)
	}

	payload, err := decompressBlock(data[nameLen:], comp)
	if err != nil {
		return Record{}, fmt.Errorf("%w: %w", ErrFormat, err)
	}

	var rec Record
	if err := c.Unmarshal(payload, &rec); err != nil {
		return Record{}, fmt.Errorf("%w: %w", ErrFormat, err)
	}
	return rec, nil
}
