// Package policy maps interaction kinds and event age onto weight changes.
// Everything here is pure: callers apply the returned values to the store.
package policy

import (
	"fmt"
	"math"
	"time"

	types "github.com/yungbote/interestgraph-backend/internal/domain"
)

const (
	decayBase  = 0.95
	staleAfter = time.Minute
)

// DeltaFor returns the base interest delta for an interaction. The switch is
// exhaustive over the InteractionType enum; events with unknown types never
// reach this point because decoding validates them first.
func DeltaFor(t types.InteractionType) (float64, error) {
	switch t {
	case types.InteractionLike:
		return 0.5, nil
	case types.InteractionComment:
		return 1.0, nil
	case types.InteractionDislike:
		return -0.5, nil
	case types.InteractionHide:
		return -1.0, nil
	case types.InteractionPost:
		return 2.0, nil
	default:
		return 0, fmt.Errorf("policy: unknown interaction type %q", t)
	}
}

// DecayFactor reports the multiplicative staleness factor for an event
// observed at now. Events younger than a minute carry no decay; older ones
// decay all of the user's interest weights by 0.95 per whole minute of age.
func DecayFactor(eventTime, now time.Time) (float64, bool) {
	age := now.Sub(eventTime)
	if age <= staleAfter {
		return 1, false
	}
	minutes := math.Floor(age.Seconds() / staleAfter.Seconds())
	return math.Pow(decayBase, minutes), true
}
