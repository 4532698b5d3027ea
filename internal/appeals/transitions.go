package appeals

import (
	"fmt"

	"github.com/ums222/ClarityClaim-AI-sub001/pkg/types"
)

// transitions lists the statuses each appeal status may move to. won and lost are final.
var transitions = map[types.AppealStatus][]types.AppealStatus{
	types.AppealStatusDraft:     {types.AppealStatusSubmitted},
	types.AppealStatusSubmitted: {types.AppealStatusInReview},
	types.AppealStatusInReview:  {types.AppealStatusWon, types.AppealStatusLost},
}

// CanTransition reports whether an appeal in status from may move to status to
func CanTransition(from, to types.AppealStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func transitionError(from, to types.AppealStatus) error {
	return types.NewBadRequestError(fmt.Sprintf("Invalid status transition from %s to %s", from, to))
}
