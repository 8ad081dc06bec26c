package issuer

// Outcome is the terminal result of one issuance attempt. Every admitted
// attempt ends in exactly one of these.
type Outcome int

const (
	// OutcomeAccepted means a unit was granted and recorded.
	OutcomeAccepted Outcome = iota
	// OutcomeNotFound means no coupon exists with the requested ID.
	OutcomeNotFound
	// OutcomeOutOfWindow means the attempt fell outside [StartAt, EndAt).
	OutcomeOutOfWindow
	// OutcomeSoldOut means the pool was exhausted.
	OutcomeSoldOut
	// OutcomeQuotaExceeded means the user already holds MaxPerUser units.
	OutcomeQuotaExceeded
	// OutcomeInternalError means the decision could not be completed.
	OutcomeInternalError
)

// String returns the stable wire name of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeAccepted:
		return "accepted"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeOutOfWindow:
		return "out_of_window"
	case OutcomeSoldOut:
		return "sold_out"
	case OutcomeQuotaExceeded:
		return "quota_exceeded"
	case OutcomeInternalError:
		return "internal_error"
	default:
		return "unknown"
	}
}

// Accepted reports whether the attempt granted a unit.
func (o Outcome) Accepted() bool {
	return o == OutcomeAccepted
}
