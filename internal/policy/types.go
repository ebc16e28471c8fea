package policy

import "github.com/upb/jobtracker/internal/shared"

// Decision represents the result of policy evaluation.
type Decision struct {
	Allowed    bool
	Violations []Violation
}

// Violation represents a specific policy violation.
type Violation struct {
	Type    ViolationType
	Message string
}

// ViolationType categorizes policy violations.
type ViolationType string

const (
	ViolationClient ViolationType = "client"
	ViolationApp    ViolationType = "app"
	ViolationEnv    ViolationType = "env"
	ViolationScope  ViolationType = "scope"
)

// Code returns the auth error code reported for the violation type
func (t ViolationType) Code() shared.ErrorCode {
	switch t {
	case ViolationClient:
		return shared.CodeForbiddenClient
	case ViolationApp:
		return shared.CodeForbiddenApp
	case ViolationEnv:
		return shared.CodeForbiddenEnv
	default:
		return shared.CodeForbiddenScope
	}
}

// Err converts the violation into a structured auth error
func (v Violation) Err() error {
	return shared.NewAuthError(v.Type.Code(), v.Message)
}
