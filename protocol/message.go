package protocol

// Role identifies the author of a history message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of the prior-conversation projection handed to a run
// request. Only user queries and assistant final answers are replayed;
// intermediate steps never appear in history.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// OutcomeStatus is the terminal state of a task or attempt.
type OutcomeStatus string

const (
	StatusRunning   OutcomeStatus = "running"
	StatusDone      OutcomeStatus = "done"
	StatusCancelled OutcomeStatus = "cancelled"
	StatusError     OutcomeStatus = "error"
)

// Outcome is the single terminal result an attempt returns. Err is set iff
// Status is StatusError.
type Outcome struct {
	Status OutcomeStatus
	Err    string
}

func OutcomeDone() Outcome      { return Outcome{Status: StatusDone} }
func OutcomeCancelled() Outcome { return Outcome{Status: StatusCancelled} }
func OutcomeError(msg string) Outcome {
	return Outcome{Status: StatusError, Err: msg}
}
