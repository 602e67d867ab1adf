package captchaai

import "strings"

// Status is the task state reported by getTaskResult.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusProcessing Status = "processing"
	StatusReady      Status = "ready"
	StatusFailed     Status = "failed"
)

// parseStatus maps a wire value onto a known Status. Unknown values are kept
// verbatim so service-side additions pass through instead of failing.
func parseStatus(s string) Status {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusIdle, StatusProcessing, StatusReady, StatusFailed:
		return st
	}
	return Status(s)
}

// Known reports whether s is one of the documented statuses.
func (s Status) Known() bool {
	switch s {
	case StatusIdle, StatusProcessing, StatusReady, StatusFailed:
		return true
	}
	return false
}

// Pending reports whether the task is still queued or being solved.
func (s Status) Pending() bool {
	return s == StatusIdle || s == StatusProcessing
}

// Response carries the error fields common to every API answer.
type Response struct {
	ErrorID          bool   `json:"errorId"`
	ErrorCode        string `json:"errorCode,omitempty"`
	ErrorDescription string `json:"errorDescription,omitempty"`
}

// CreateTaskResponse is the answer to createTask.
type CreateTaskResponse struct {
	Response
	TaskID string `json:"taskId,omitempty"`
}

// TaskResultResponse is the answer to one getTaskResult call. A fresh value
// is produced per poll.
type TaskResultResponse struct {
	Response
	TaskID   string         `json:"taskId,omitempty"`
	Status   Status         `json:"status"`
	Solution map[string]any `json:"solution,omitempty"`
}

// Terminal reports whether polling should stop: the service reported an
// error, or the status is ready, failed or unrecognized.
func (r *TaskResultResponse) Terminal() bool {
	return r.ErrorID || !r.Status.Pending()
}

// SolutionString returns solution[key] if it is a string.
func (r *TaskResultResponse) SolutionString(key string) string {
	if r == nil || r.Solution == nil {
		return ""
	}
	s, _ := r.Solution[key].(string)
	return s
}

// ControlResponse is the answer to getBalance.
type ControlResponse struct {
	Response
	Balance  float64 `json:"balance"`
	Packages []any   `json:"packages,omitempty"`
}

// createTaskRequest is the createTask payload.
type createTaskRequest struct {
	ClientKey string         `json:"clientKey"`
	Task      map[string]any `json:"task"`
	AppID     string         `json:"appId"`
}

// getTaskResultRequest is the getTaskResult payload.
type getTaskResultRequest struct {
	ClientKey string `json:"clientKey"`
	TaskID    string `json:"taskId"`
}

// controlRequest is the payload of account-level calls such as getBalance.
type controlRequest struct {
	ClientKey string `json:"clientKey"`
}
