package ec

import "fmt"

// Status tells callers how faithfully a request was carried out
type Status int

const (
	// StatusApplied means the request reached the hardware as asked
	StatusApplied Status = iota
	// StatusDegraded means the request was accepted but only approximately
	// honored, e.g. a sentinel read or a coarse firmware preset
	StatusDegraded
	// StatusFailed means nothing was applied
	StatusFailed
)

var statusNames = map[Status]string{
	StatusApplied:  "applied",
	StatusDegraded: "degraded",
	StatusFailed:   "failed",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// MarshalText renders the status name in JSON
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Result is returned by every register operation
type Result struct {
	Status Status `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// Applied reports full success
func Applied() Result {
	return Result{Status: StatusApplied}
}

// Degraded reports a lossy success
func Degraded(format string, args ...interface{}) Result {
	return Result{Status: StatusDegraded, Reason: fmt.Sprintf(format, args...)}
}

// Failed reports that nothing was applied
func Failed(format string, args ...interface{}) Result {
	return Result{Status: StatusFailed, Reason: fmt.Sprintf(format, args...)}
}

// OK is true for applied and degraded results
func (r Result) OK() bool {
	return r.Status == StatusApplied || r.Status == StatusDegraded
}

func (r Result) String() string {
	if r.Reason == "" {
		return r.Status.String()
	}
	return r.Status.String() + ": " + r.Reason
}
