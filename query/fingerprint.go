package query

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"hash"
)

// SessionID is the external handle of a query session. It is URL safe.
type SessionID string

// sessionIDBytes is the number of hash bytes kept in a SessionID.
const sessionIDBytes = 16

// SessionIDLen is the length of an encoded SessionID.
var SessionIDLen = base64.RawURLEncoding.EncodedLen(sessionIDBytes)

// fingerprintVersion is mixed into every hash so the encoding can evolve
// without silently reusing IDs.
const fingerprintVersion = "visor/v1"

// Fingerprint derives the SessionID of a definition.
//
// Each field is length-prefixed before hashing, so no two distinct
// definitions share an encoding.
func Fingerprint(def Definition) SessionID {
	h := sha256.New()
	writeField(h, fingerprintVersion)
	writeField(h, def.Type.String())
	writeField(h, def.Dataset)
	writeField(h, def.Engine)
	writeField(h, string(def.Parent))
	writeField(h, def.Spec)

	var sum [sha256.Size]byte
	h.Sum(sum[:0])
	return SessionID(base64.RawURLEncoding.EncodeToString(sum[:sessionIDBytes]))
}

func writeField(h hash.Hash, s string) {
	var l [4]byte
	binary.BigEndian.PutUint32(l[:], uint32(len(s)))
	_, _ = h.Write(l[:])
	_, _ = h.Write([]byte(s))
}

// ParseSessionID validates an externally supplied session ID.
func ParseSessionID(s string) (SessionID, error) {
	if len(s) != SessionIDLen {
		return "", invalid("qsid", "malformed session id")
	}
	if _, err := base64.RawURLEncoding.DecodeString(s); err != nil {
		return "", invalid("qsid", "malformed session id")
	}
	return SessionID(s), nil
}

// String implements fmt.Stringer.
func (id SessionID) String() string { return string(id) }
