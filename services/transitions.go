package services

import "brz/models"

// allowedTransitions is the complete lifecycle graph. Cancellation and operator
// deletion remove the row instead of moving it, so they have no edge here.
var allowedTransitions = map[models.RegistrationStatus][]models.RegistrationStatus{
	models.StatusWaiting:  {models.StatusApproved, models.StatusRejected},
	models.StatusApproved: {models.StatusCompleted},
}

// CanTransition reports whether from → to is an edge of the lifecycle graph.
func CanTransition(from, to models.RegistrationStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
