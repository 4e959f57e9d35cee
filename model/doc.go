// Package model defines the result types shared by the cache, the executors
// and the pagination layer.
//
//   - Item: one ranked match (path, score, optional region of interest and description)
//   - Result: the immutable, ordered list of items produced by one execution
//
// A Result keeps the backend's ranking order. It never hands out its backing
// array; accessors return copies so that pages can be cut from it concurrently.
package model
