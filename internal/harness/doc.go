// Package harness runs declarative YAML scenarios against the full
// store/repository stack and compares their traces and final active
// lists with golden snapshots.
//
// Scenarios exercise the pieces end to end the way the application
// does: mutations go through the repository's asynchronous surface,
// the calendar is simulated so day transitions are explicit steps, and
// the final state is observed through the same active query the live
// view and export use.
package harness
