// Package repo is the record access layer: the single synchronization
// boundary between callers (host UI, scheduler, export) and the
// record store.
//
// All mutations funnel through a fixed set of worker lanes; calls
// targeting the same uid share a lane and therefore apply in issuance
// order, while the store's single connection serializes the actual
// writes across lanes. Results, watch snapshots, and export outcomes
// are all delivered from one designated notification goroutine, so an
// observer is never called from two contexts at once.
//
// Reads come in two shapes: synchronous queries (QueryActive,
// QueryByID, TimeTerms) and watch subscriptions that push a fresh
// snapshot after every committed write and recompute pass. Watch
// delivery coalesces - a slow consumer sees the latest state, not
// every intermediate one.
package repo
