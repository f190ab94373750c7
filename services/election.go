package services

import "time"

// electFirstVerifier decides which of two concurrently verifying devices
// performs match finalization, given the freshly re-read verification
// timestamps of both columns. The side whose verification landed first is the
// first verifier and acts; the other side waits. On an exact timestamp tie
// the home side acts, so the function stays a total order.
//
// Comparing store timestamps is a heuristic, not a guaranteed global order —
// two truly concurrent writes can land with skewed clocks. The coordinator
// therefore backs this election with a compare-and-swap claim on the match
// row; the election only decides who attempts the claim first.
func electFirstVerifier(homeVerifiedAt, awayVerifiedAt time.Time, local Side) bool {
	if homeVerifiedAt.Equal(awayVerifiedAt) {
		return local == SideHome
	}
	if homeVerifiedAt.Before(awayVerifiedAt) {
		return local == SideHome
	}
	return local == SideAway
}
