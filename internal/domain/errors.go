package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// ErrorCode is the machine-readable part of a domain error
type ErrorCode string

const (
	CodePlanNotFound           ErrorCode = "PLAN_NOT_FOUND"
	CodeHandlerNotFound        ErrorCode = "HANDLER_NOT_FOUND"
	CodeNotApproved            ErrorCode = "NOT_APPROVED"
	CodeApproverNotFound       ErrorCode = "APPROVER_NOT_FOUND"
	CodeApproverAlreadyDecided ErrorCode = "APPROVER_ALREADY_DECIDED"
	CodeInvalidState           ErrorCode = "INVALID_STATE"
	CodeInvalidInput           ErrorCode = "INVALID_INPUT"
	CodeExecutionFailed        ErrorCode = "EXECUTION_FAILED"
)

// Sentinel values for errors.Is comparisons. Matching is by code only.
var (
	ErrPlanNotFound           = &Error{Code: CodePlanNotFound}
	ErrHandlerNotFound        = &Error{Code: CodeHandlerNotFound}
	ErrNotApproved            = &Error{Code: CodeNotApproved}
	ErrApproverNotFound       = &Error{Code: CodeApproverNotFound}
	ErrApproverAlreadyDecided = &Error{Code: CodeApproverAlreadyDecided}
	ErrInvalidState           = &Error{Code: CodeInvalidState}
	ErrInvalidInput           = &Error{Code: CodeInvalidInput}
	ErrExecutionFailed        = &Error{Code: CodeExecutionFailed}
)

// Error is a domain failure carrying a message, a code and the ids involved
type Error struct {
	Code    ErrorCode
	Message string
	Context map[string]string
	Cause   error
}

// NewError creates a domain error. ctx is a flat list of key/value pairs.
func NewError(code ErrorCode, message string, ctx ...string) *Error {
	e := &Error{Code: code, Message: message}
	if len(ctx) > 0 {
		e.Context = make(map[string]string, len(ctx)/2)
		for i := 0; i+1 < len(ctx); i += 2 {
			e.Context[ctx[i]] = ctx[i+1]
		}
	}
	return e
}

// Wrap attaches an underlying cause
func (e *Error) Wrap(cause error) *Error {
	e.Cause = cause
	return e
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%s", k, e.Context[k]))
		}
		b.WriteString(" (")
		b.WriteString(strings.Join(parts, ", "))
		b.WriteString(")")
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Is matches any *Error with the same code
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// PlanNotFound builds a PLAN_NOT_FOUND error
func PlanNotFound(planID string) *Error {
	return NewError(CodePlanNotFound, "rebalance plan not found", "plan_id", planID)
}

// HandlerNotFound builds a HANDLER_NOT_FOUND error
func HandlerNotFound(handlerID string) *Error {
	return NewError(CodeHandlerNotFound, "override handler not found", "handler_id", handlerID)
}

// NotApproved builds a NOT_APPROVED error
func NotApproved(handlerID string, status HandlerStatus) *Error {
	return NewError(CodeNotApproved, "override must be approved before execution",
		"handler_id", handlerID, "status", string(status))
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
