// Package authz decides resource access for an authenticated identity. Each
// protected resource type carries a requirement: a set of independent access
// switches evaluated in a fixed order where the first satisfied switch wins.
// Switches are never combined with AND.
package authz

// ResourceKind names a protected resource type
type ResourceKind string

const (
	KindStudent     ResourceKind = "Student"
	KindFaculty     ResourceKind = "Faculty"
	KindFee         ResourceKind = "Fee"
	KindPerformance ResourceKind = "Performance"
)

// Action distinguishes reads from mutations. Only the faculty directory rule
// depends on it; the requirement switches apply to both.
type Action string

const (
	ActionRead  Action = "Read"
	ActionWrite Action = "Write"
)

// Requirement is the per-resource-type set of access switches. Evaluation
// order is fixed: admin, self, teacher, parent, student-self.
type Requirement struct {
	// AllowSelfAccess grants the resource's natural owner (matching role and
	// owning user id) access
	AllowSelfAccess bool
	// AllowAdminAccess grants SchoolAdmin and SystemAdmin access
	AllowAdminAccess bool
	// AllowTeacherAccess grants any Teacher access
	AllowTeacherAccess bool
	// AllowParentAccess grants any Parent access
	AllowParentAccess bool
	// AllowStudentAccess grants a Student access when the resource's owning
	// user id is the caller's
	AllowStudentAccess bool
}

// Decision reason codes. Allow reasons name the satisfied switch; deny
// reasons name the refusal. Rule-evaluation failures use ReasonError plus
// the underlying message.
const (
	ReasonInvalidClaims           = "InvalidClaims"
	ReasonAdminAccess             = "AdminAccess"
	ReasonSelfAccess              = "SelfAccess"
	ReasonTeacherAccess           = "TeacherAccess"
	ReasonParentAccess            = "ParentAccess"
	ReasonStudentSelfAccess       = "StudentSelfAccess"
	ReasonInsufficientPermissions = "InsufficientPermissions"
	ReasonError                   = "Error"
)

// Decision is the outcome of one authorization check
type Decision struct {
	Allowed bool
	Reason  string
}

func allow(reason string) Decision {
	return Decision{Allowed: true, Reason: reason}
}

func deny(reason string) Decision {
	return Decision{Allowed: false, Reason: reason}
}
