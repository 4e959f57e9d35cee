// Package testutil provides testing utilities for visor.
//
// This package is intended for use in tests only. It provides seeded
// generators for ranking lists and queries, a manual clock, a fake backend
// engine that speaks the "$$$"-terminated JSON protocol over TCP, and a
// gated runner for driving executions step by step.
//
// # Ranking Lists
//
//	rng := testutil.NewRNG(seed)
//	items := rng.Items(50, 0.25) // 50 items, about a quarter with an ROI
//
// # Fake Engine
//
//	eng := testutil.NewFakeEngine(t)
//	eng.SetRanking(items)
//	reg := query.NewRegistry([]query.Engine{{Name: "instances", BackendAddr: eng.Addr()}}, nil)
//
// # Gated Runner
//
//	r := testutil.NewGatedRunner(items)
//	// ... submit, observe a running state ...
//	r.Release()
package testutil
