// Package backend talks to the visual-search backend engines.
//
// Every engine listens on its own TCP address. A request is one JSON object
// followed by the "$$$" terminator and the engine answers the same way on
// the same connection. A Session opens one connection per request, so a
// Session value is safe for concurrent use.
//
// Runner drives the query protocol (prepare, train, rank, fetch ranking)
// and implements execution.Runner. LookupROI is the supplementary
// region-of-interest lookup used when rendering results.
package backend
