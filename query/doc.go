// Package query turns raw search parameters into canonical definitions and
// derives the stable session identifiers used to deduplicate executions.
//
// # Normalization
//
// A Normalizer validates the raw parameters against a Registry of engines and
// datasets and produces a Definition. Text queries are trimmed, have inner
// whitespace collapsed and are lower-cased, so that "  Cat " and "cat" are the
// same query. Two text forms are privileged:
//
//   - the keyword wildcard token (keywords:*), accepted verbatim
//   - curated queries, marked with a leading '#', which skip the character
//     allow-list and keep their case
//
// # Session IDs
//
// Fingerprint hashes the canonical encoding of a Definition into a 22 character
// URL-safe SessionID. The mapping depends only on the definition, never on the
// caller or the clock, so concurrent callers with the same query meet on the
// same ID.
package query
