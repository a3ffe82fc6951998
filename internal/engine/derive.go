package engine

// Derive returns the two derived flags for a record as of the given
// day. This is the single source of truth for the derivation rules:
//
//	isActive         = startEpoch <= today <= endEpoch
//	hasReceivedToday = lastReceived != nil && *lastReceived == today
//
// Both the insert-time initialization in the repository and the batch
// recompute pass implement exactly these rules; neither inlines its
// own variant.
//
// A record whose window lies entirely before or entirely after today
// is inactive either way - there is no distinct "not yet started" vs
// "expired" state. A nil lastReceived never equals any day, so a
// record that was never marked received cannot report a received-today
// flag. A lastReceived in the future (clock skew, backdating) also
// compares unequal and yields false.
func Derive(startEpoch, endEpoch int64, lastReceived *int64, today int64) (isActive, hasReceivedToday bool) {
	isActive = startEpoch <= today && today <= endEpoch
	hasReceivedToday = lastReceived != nil && *lastReceived == today
	return isActive, hasReceivedToday
}
