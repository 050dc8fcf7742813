package store

// allowedTransitions is the authoritative application status table.
// Accepted and Rejected are terminal.
var allowedTransitions = map[ApplicationStatus][]ApplicationStatus{
	ApplicationSubmitted: {ApplicationReviewing, ApplicationAccepted, ApplicationRejected},
	ApplicationReviewing: {ApplicationAccepted, ApplicationRejected},
	ApplicationAccepted:  {},
	ApplicationRejected:  {},
}

// ValidApplicationStatus reports whether the value belongs to the closed
// status set.
func ValidApplicationStatus(status ApplicationStatus) bool {
	_, ok := allowedTransitions[status]
	return ok
}

// CanTransition reports whether the workflow permits moving from one
// status to another. Re-asserting the current status is a permitted no-op.
func CanTransition(from, to ApplicationStatus) bool {
	if from == to {
		return true
	}
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
