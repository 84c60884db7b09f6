package authz

import (
	"context"
	"fmt"

	"github.com/edushield/edushield/pkg/audit"
	"github.com/edushield/edushield/pkg/auth"
	"github.com/edushield/edushield/pkg/observability"
	"github.com/edushield/edushield/pkg/school"
)

// auditAction is the action string reported with every decision
const auditAction = "Access"

// policy binds a resource kind to its requirement, its natural owner role,
// and the field that identifies ownership on a loaded resource instance.
type policy struct {
	requirement Requirement
	ownerRole   auth.Role
	owner       func(resource interface{}) (string, error)
	// directoryRead, when set, grants read access ahead of the switch
	// evaluation. Only the faculty directory uses it.
	directoryRead func(role auth.Role) (string, bool)
}

// Engine evaluates access decisions. It is stateless per call and safe for
// concurrent use; every decision, allow or deny, is reported to the audit
// sink. Sink failures are logged locally and never affect the decision.
type Engine struct {
	policies map[ResourceKind]policy
	sink     audit.Sink
	logger   *observability.Logger
}

// NewEngine creates the engine with the default per-resource policies
func NewEngine(sink audit.Sink, logger *observability.Logger) *Engine {
	if sink == nil {
		sink = audit.NopSink{}
	}
	return &Engine{
		policies: defaultPolicies(),
		sink:     sink,
		logger:   logger,
	}
}

func defaultPolicies() map[ResourceKind]policy {
	return map[ResourceKind]policy{
		KindStudent: {
			requirement: Requirement{
				AllowAdminAccess:  true,
				AllowSelfAccess:   true,
				AllowParentAccess: true,
			},
			ownerRole: auth.RoleStudent,
			owner:     studentOwner,
		},
		KindFaculty: {
			requirement: Requirement{
				AllowAdminAccess: true,
				AllowSelfAccess:  true,
			},
			ownerRole:     auth.RoleTeacher,
			owner:         facultyOwner,
			directoryRead: facultyDirectoryRead,
		},
		KindFee: {
			requirement: Requirement{
				AllowAdminAccess:   true,
				AllowParentAccess:  true,
				AllowStudentAccess: true,
			},
			ownerRole: auth.RoleStudent,
			owner:     feeOwner,
		},
		KindPerformance: {
			requirement: Requirement{
				AllowAdminAccess:   true,
				AllowTeacherAccess: true,
				AllowParentAccess:  true,
				AllowStudentAccess: true,
			},
			ownerRole: auth.RoleStudent,
			owner:     performanceOwner,
		},
	}
}

func studentOwner(resource interface{}) (string, error) {
	s, ok := resource.(*school.Student)
	if !ok {
		return "", fmt.Errorf("expected *school.Student, got %T", resource)
	}
	return s.UserID, nil
}

func facultyOwner(resource interface{}) (string, error) {
	f, ok := resource.(*school.Faculty)
	if !ok {
		return "", fmt.Errorf("expected *school.Faculty, got %T", resource)
	}
	return f.UserID, nil
}

func feeOwner(resource interface{}) (string, error) {
	f, ok := resource.(*school.Fee)
	if !ok {
		return "", fmt.Errorf("expected *school.Fee, got %T", resource)
	}
	if f.Student == nil {
		return "", fmt.Errorf("fee %s has no student loaded", f.ID)
	}
	return f.Student.UserID, nil
}

func performanceOwner(resource interface{}) (string, error) {
	p, ok := resource.(*school.PerformanceRecord)
	if !ok {
		return "", fmt.Errorf("expected *school.PerformanceRecord, got %T", resource)
	}
	if p.Student == nil {
		return "", fmt.Errorf("performance record %s has no student loaded", p.ID)
	}
	return p.Student.UserID, nil
}

// facultyDirectoryRead grants every teacher and student read access to the
// faculty directory. Blanket by current policy; no assignment or enrollment
// relationship is checked.
func facultyDirectoryRead(role auth.Role) (string, bool) {
	switch role {
	case auth.RoleTeacher:
		return ReasonTeacherAccess, true
	case auth.RoleStudent:
		return ReasonStudentSelfAccess, true
	default:
		return "", false
	}
}

// Authorize decides whether the identity may perform the action on the
// loaded resource instance. A failure while evaluating rules, including a
// panic, denies with an Error reason; it never propagates as an allow.
func (e *Engine) Authorize(ctx context.Context, ident *auth.Identity, kind ResourceKind, action Action, resource interface{}) (decision Decision) {
	defer func() {
		if r := recover(); r != nil {
			decision = deny(fmt.Sprintf("%s: %v", ReasonError, r))
			if e.logger != nil {
				e.logger.WithField("resource", string(kind)).
					Errorf("authorization rule panicked: %v", r)
			}
			e.report(ctx, ident, kind, decision)
		}
	}()

	decision = e.decide(ident, kind, action, resource)
	e.report(ctx, ident, kind, decision)
	return decision
}

func (e *Engine) decide(ident *auth.Identity, kind ResourceKind, action Action, resource interface{}) Decision {
	if ident == nil || ident.UserID == "" || !ident.Role.Valid() {
		return deny(ReasonInvalidClaims)
	}

	pol, ok := e.policies[kind]
	if !ok {
		return deny(fmt.Sprintf("%s: unknown resource kind %q", ReasonError, kind))
	}

	if action == ActionRead && pol.directoryRead != nil {
		if reason, granted := pol.directoryRead(ident.Role); granted {
			return allow(reason)
		}
	}

	if pol.requirement.AllowAdminAccess && ident.Role.IsAdmin() {
		return allow(ReasonAdminAccess)
	}

	if pol.requirement.AllowSelfAccess && ident.Role == pol.ownerRole {
		ownerID, err := pol.owner(resource)
		if err != nil {
			return deny(fmt.Sprintf("%s: %v", ReasonError, err))
		}
		if ownerID == ident.UserID {
			return allow(ReasonSelfAccess)
		}
	}

	if pol.requirement.AllowTeacherAccess && ident.Role == auth.RoleTeacher {
		return allow(ReasonTeacherAccess)
	}

	if pol.requirement.AllowParentAccess && ident.Role == auth.RoleParent {
		return allow(ReasonParentAccess)
	}

	if pol.requirement.AllowStudentAccess && ident.Role == auth.RoleStudent {
		ownerID, err := pol.owner(resource)
		if err != nil {
			return deny(fmt.Sprintf("%s: %v", ReasonError, err))
		}
		if ownerID == ident.UserID {
			return allow(ReasonStudentSelfAccess)
		}
	}

	return deny(ReasonInsufficientPermissions)
}

func (e *Engine) report(ctx context.Context, ident *auth.Identity, kind ResourceKind, d Decision) {
	userID := ""
	if ident != nil {
		userID = ident.UserID
	}
	if err := e.sink.LogAuthorization(ctx, userID, string(kind), auditAction, d.Allowed, d.Reason); err != nil && e.logger != nil {
		e.logger.WithError(err).Warn("failed to write authorization audit event")
	}
}
