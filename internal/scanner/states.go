package scanner

// Phase is the buyer view state. Every transition goes through the
// scanner's lock, so the phase is always exactly one of these values and
// illegal combinations cannot be represented.
type Phase int

const (
	// PhaseIdle waits for the user to choose camera or upload
	PhaseIdle Phase = iota
	// PhaseAcquiring is establishing the capture source
	PhaseAcquiring
	// PhaseScanning runs the continuous decode loop
	PhaseScanning
	// PhaseValidating compares a decoded payload against the session
	PhaseValidating
	// PhaseAwaitingConfirmation shows the confirmation prompt; capture is
	// already released by the time this phase is entered
	PhaseAwaitingConfirmation
	// PhaseConfirming has the completion call in flight
	PhaseConfirming
	// PhaseFailed is the catch-all for unrecoverable acquisition failures;
	// Reset returns to PhaseIdle
	PhaseFailed
	// PhaseDone means the backend acknowledged completion
	PhaseDone
)

// String returns the phase name for logging
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseAcquiring:
		return "acquiring"
	case PhaseScanning:
		return "scanning"
	case PhaseValidating:
		return "validating"
	case PhaseAwaitingConfirmation:
		return "awaiting-confirmation"
	case PhaseConfirming:
		return "confirming"
	case PhaseFailed:
		return "failed"
	case PhaseDone:
		return "done"
	default:
		return "unknown"
	}
}

// FailReason categorizes acquisition failures into user-facing messages
type FailReason int

const (
	ReasonNone FailReason = iota
	ReasonPermissionDenied
	ReasonDeviceNotFound
	ReasonUnsupported
	ReasonNoCodeFound
	ReasonUnknown
)

// Message returns the user-facing text for the failure
func (r FailReason) Message() string {
	switch r {
	case ReasonPermissionDenied:
		return "Capture permission denied. Allow access or upload a photo of the code instead."
	case ReasonDeviceNotFound:
		return "No capture source found. Upload a photo of the code instead."
	case ReasonUnsupported:
		return "This capture source is not supported. Upload a photo of the code instead."
	case ReasonNoCodeFound:
		return "No valid code found in the image. Try another photo."
	case ReasonUnknown:
		return "Could not start scanning. Try again or upload a photo of the code."
	default:
		return ""
	}
}

// NoticeKind classifies user-facing scan events
type NoticeKind int

const (
	// NoticeInvalidFormat reports scanned content that is not a payload
	NoticeInvalidFormat NoticeKind = iota
	// NoticeWrongCode reports a payload for some other transaction
	NoticeWrongCode
	// NoticeMatched reports that the code verified against the session
	NoticeMatched
	// NoticeCompleted reports backend-acknowledged completion
	NoticeCompleted
	// NoticeCompleteFailed reports a failed completion call; the
	// confirmation prompt stays available for an explicit retry
	NoticeCompleteFailed
	// NoticeFailed reports an unrecoverable acquisition failure
	NoticeFailed
)

// Notice is a user-facing scan event
type Notice struct {
	Kind    NoticeKind
	Message string
}
