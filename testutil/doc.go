// Package testutil provides fixtures for diskstore tests and benchmarks.
//
// This package is intended for use in tests and benchmarks only.
// It generates reproducible records and computes expected query results
// by scanning, so store behavior can be checked against a brute-force answer.
//
// # Record Generation
//
//	rng := testutil.NewRNG(seed)
//	users := rng.Users(100, 0.1)          // 10% of ages are null
//	posts := rng.Posts(1000, 100, 1.2)    // authors follow a Zipf law
//
// # Ground Truth
//
//	want := testutil.Filter(users, func(r document.Record) bool { ... })
package testutil
