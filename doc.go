// Package visor is the query core of a visual search frontend.
//
// A Service turns raw query parameters into a canonical definition, derives
// a stable session ID from it and guarantees that identical queries
// submitted concurrently share a single backend execution. Callers follow
// the execution by polling its status and read the finished ranking list
// page by page.
//
// # Quick Start
//
//	reg := query.NewRegistry([]query.Engine{{
//	    Name:        "instances",
//	    BackendAddr: "127.0.0.1:45288",
//	    ImageInput:  true,
//	}}, map[string]string{"mydataset": "Any dataset"})
//
//	svc, _ := visor.New(backend.NewRunner(nil), reg)
//	defer svc.Close()
//
//	id, _ := svc.Submit(ctx, query.Raw{Spec: "cat", Engine: "instances"})
//	st, _ := svc.Wait(ctx, id)           // polls every 250ms
//	pg, _ := svc.FetchPage(ctx, id, 1, 10)
//	fmt.Println(st.State, pg.Count, len(pg.Items))
//
// # Deduplication
//
// Submit takes the "cached, running or start" decision under the cache
// lock. Only the caller that wins the start decision schedules an
// execution; everyone else receives the same session ID and polls. The
// backend call runs on a worker pool, never under the lock.
//
// # Errors
//
// Errors returned by a Service match the sentinels in errors.go:
//
//	errors.Is(err, visor.ErrValidation)      // bad parameters, not retried
//	errors.Is(err, visor.ErrUnknownEngine)   // engine not configured
//	errors.Is(err, visor.ErrNotFound)        // unknown or expired session, resubmit
//	errors.Is(err, visor.ErrNotReady)        // still running, poll again
//	errors.Is(err, visor.ErrNoResults)       // finished without matches
//	errors.Is(err, visor.ErrExecutionFailed) // backend failure, message attached
//	errors.Is(err, visor.ErrWaitTimeout)     // Wait gave up
//
// # Persistence
//
// WithArchive stores finished ranking lists in a blob store (local disk,
// MinIO or S3). A query that is no longer cached is answered from the
// archive before the backend is asked again.
package visor
