package orders

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusCanceled   Status = "CANCELED"
)

var validNext = map[Status]map[Status]bool{
	StatusPending:    {StatusProcessing: true, StatusCompleted: true, StatusCanceled: true},
	StatusProcessing: {StatusCompleted: true, StatusCanceled: true},
	StatusCompleted:  {},
	StatusCanceled:   {},
}

// CanTransition: same-status is never a valid transition.
func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

func ValidStatus(s Status) bool {
	_, ok := validNext[s]
	return ok
}

type CustomStatus string

const (
	CustomPending   CustomStatus = "PENDING"
	CustomApproved  CustomStatus = "APPROVED"
	CustomRejected  CustomStatus = "REJECTED"
	CustomConverted CustomStatus = "CONVERTED"
)

// Converted & Rejected are terminal. Convert is allowed from any non-terminal
// status, approval is just the intended path.
var customNext = map[CustomStatus]map[CustomStatus]bool{
	CustomPending:   {CustomApproved: true, CustomRejected: true, CustomConverted: true},
	CustomApproved:  {CustomConverted: true},
	CustomRejected:  {},
	CustomConverted: {},
}

func CanTransitionCustom(from, to CustomStatus) bool {
	return customNext[from][to]
}
