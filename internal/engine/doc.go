// Package engine derives the cached prescription flags from stored
// facts and the current day.
//
// The two derived flags (isActive, hasReceivedToday) are an instance
// of cached derived state: they are stored for cheap querying but
// their correct values are fully determined by other fields plus
// "today". Derive is the single pure derivation function; Recomputer
// applies it to every record as one atomic batch. Invalidation is
// explicit - the scheduler triggers a pass at startup, hourly, and
// after external writes - so consistency is eventual, not immediate,
// between a date-changing event and the next pass.
package engine
