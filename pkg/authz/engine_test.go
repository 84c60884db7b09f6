package authz

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edushield/edushield/pkg/auth"
	"github.com/edushield/edushield/pkg/observability"
	"github.com/edushield/edushield/pkg/school"
)

// recordingSink captures authorization reports for assertions
type recordingSink struct {
	calls []authzCall
}

type authzCall struct {
	userID   string
	resource string
	success  bool
	reason   string
}

func (s *recordingSink) LogAuthentication(context.Context, string, string, bool, string, string, string) error {
	return nil
}

func (s *recordingSink) LogAuthorization(_ context.Context, userID, resource, _ string, success bool, reason string) error {
	s.calls = append(s.calls, authzCall{userID: userID, resource: resource, success: success, reason: reason})
	return nil
}

func (s *recordingSink) LogSecurityEvent(context.Context, string, string, string, string, string) error {
	return nil
}

func testEngine(t *testing.T) (*Engine, *recordingSink) {
	t.Helper()
	sink := &recordingSink{}
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	return NewEngine(sink, logger), sink
}

func ident(userID string, role auth.Role) *auth.Identity {
	return &auth.Identity{UserID: userID, Role: role}
}

func TestInvalidClaims(t *testing.T) {
	engine, sink := testEngine(t)
	resource := &school.Student{ID: "s1", UserID: "u1"}

	cases := []*auth.Identity{
		nil,
		{UserID: "", Role: auth.RoleStudent},
		{UserID: "u1", Role: auth.Role("Wizard")},
	}
	for _, id := range cases {
		d := engine.Authorize(context.Background(), id, KindStudent, ActionRead, resource)
		assert.False(t, d.Allowed)
		assert.Equal(t, ReasonInvalidClaims, d.Reason)
	}
	assert.Len(t, sink.calls, len(cases), "denials are audited too")
}

func TestAdminAccess(t *testing.T) {
	engine, _ := testEngine(t)
	resource := &school.Student{ID: "s1", UserID: "someone-else"}

	for _, role := range []auth.Role{auth.RoleSchoolAdmin, auth.RoleSystemAdmin} {
		d := engine.Authorize(context.Background(), ident("admin-1", role), KindStudent, ActionRead, resource)
		assert.True(t, d.Allowed)
		assert.Equal(t, ReasonAdminAccess, d.Reason)
	}
}

func TestStudentSelfAccess(t *testing.T) {
	engine, _ := testEngine(t)

	own := &school.Student{ID: "s1", UserID: "u1"}
	d := engine.Authorize(context.Background(), ident("u1", auth.RoleStudent), KindStudent, ActionRead, own)
	assert.True(t, d.Allowed)
	assert.Equal(t, ReasonSelfAccess, d.Reason)

	other := &school.Student{ID: "s2", UserID: "u2"}
	d = engine.Authorize(context.Background(), ident("u1", auth.RoleStudent), KindStudent, ActionRead, other)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonInsufficientPermissions, d.Reason)
}

func TestParentAccessToStudent(t *testing.T) {
	engine, _ := testEngine(t)
	resource := &school.Student{ID: "s1", UserID: "u1"}

	// Blanket by current policy: no parent-child relationship is checked.
	d := engine.Authorize(context.Background(), ident("p1", auth.RoleParent), KindStudent, ActionRead, resource)
	assert.True(t, d.Allowed)
	assert.Equal(t, ReasonParentAccess, d.Reason)
}

func TestTeacherHasNoStudentRecordAccess(t *testing.T) {
	engine, _ := testEngine(t)
	resource := &school.Student{ID: "s1", UserID: "u1"}

	d := engine.Authorize(context.Background(), ident("t1", auth.RoleTeacher), KindStudent, ActionRead, resource)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonInsufficientPermissions, d.Reason)
}

func TestFeeOwnership(t *testing.T) {
	engine, _ := testEngine(t)
	fee := &school.Fee{ID: "f1", StudentID: "s1", Student: &school.Student{ID: "s1", UserID: "u1"}}

	d := engine.Authorize(context.Background(), ident("u1", auth.RoleStudent), KindFee, ActionRead, fee)
	assert.True(t, d.Allowed)
	assert.Equal(t, ReasonStudentSelfAccess, d.Reason)

	d = engine.Authorize(context.Background(), ident("u2", auth.RoleStudent), KindFee, ActionRead, fee)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonInsufficientPermissions, d.Reason)

	d = engine.Authorize(context.Background(), ident("p1", auth.RoleParent), KindFee, ActionRead, fee)
	assert.True(t, d.Allowed)
	assert.Equal(t, ReasonParentAccess, d.Reason)

	d = engine.Authorize(context.Background(), ident("t1", auth.RoleTeacher), KindFee, ActionRead, fee)
	assert.False(t, d.Allowed, "teachers have no fee access")
}

func TestFeeWithoutLoadedStudentDenies(t *testing.T) {
	engine, sink := testEngine(t)
	fee := &school.Fee{ID: "f1", StudentID: "s1"}

	d := engine.Authorize(context.Background(), ident("u1", auth.RoleStudent), KindFee, ActionRead, fee)
	assert.False(t, d.Allowed, "ownership failure denies, never allows")
	assert.Contains(t, d.Reason, ReasonError)

	require.NotEmpty(t, sink.calls)
	last := sink.calls[len(sink.calls)-1]
	assert.False(t, last.success)
	assert.Contains(t, last.reason, ReasonError)
}

func TestPerformanceAccess(t *testing.T) {
	engine, _ := testEngine(t)
	rec := &school.PerformanceRecord{ID: "r1", StudentID: "s1", Student: &school.Student{ID: "s1", UserID: "u1"}}

	d := engine.Authorize(context.Background(), ident("t1", auth.RoleTeacher), KindPerformance, ActionRead, rec)
	assert.True(t, d.Allowed)
	assert.Equal(t, ReasonTeacherAccess, d.Reason)

	d = engine.Authorize(context.Background(), ident("u1", auth.RoleStudent), KindPerformance, ActionRead, rec)
	assert.True(t, d.Allowed)
	assert.Equal(t, ReasonStudentSelfAccess, d.Reason)

	d = engine.Authorize(context.Background(), ident("u2", auth.RoleStudent), KindPerformance, ActionRead, rec)
	assert.False(t, d.Allowed)
}

func TestFacultyDirectoryRead(t *testing.T) {
	engine, _ := testEngine(t)
	member := &school.Faculty{ID: "fac1", UserID: "t9"}

	// Blanket read precedes the switch evaluation.
	d := engine.Authorize(context.Background(), ident("t1", auth.RoleTeacher), KindFaculty, ActionRead, member)
	assert.True(t, d.Allowed)

	d = engine.Authorize(context.Background(), ident("u1", auth.RoleStudent), KindFaculty, ActionRead, member)
	assert.True(t, d.Allowed)

	d = engine.Authorize(context.Background(), ident("p1", auth.RoleParent), KindFaculty, ActionRead, member)
	assert.False(t, d.Allowed, "parents do not get the directory rule")
}

func TestFacultyWrite(t *testing.T) {
	engine, _ := testEngine(t)
	member := &school.Faculty{ID: "fac1", UserID: "t9"}

	d := engine.Authorize(context.Background(), ident("t9", auth.RoleTeacher), KindFaculty, ActionWrite, member)
	assert.True(t, d.Allowed, "teacher may edit their own record")
	assert.Equal(t, ReasonSelfAccess, d.Reason)

	d = engine.Authorize(context.Background(), ident("t1", auth.RoleTeacher), KindFaculty, ActionWrite, member)
	assert.False(t, d.Allowed, "directory rule does not extend to writes")

	d = engine.Authorize(context.Background(), ident("u1", auth.RoleStudent), KindFaculty, ActionWrite, member)
	assert.False(t, d.Allowed)

	d = engine.Authorize(context.Background(), ident("a1", auth.RoleSchoolAdmin), KindFaculty, ActionWrite, member)
	assert.True(t, d.Allowed)
}

func TestWrongResourceTypeDenies(t *testing.T) {
	engine, _ := testEngine(t)

	// Student policy handed a Fee value: evaluation fails, decision denies.
	d := engine.Authorize(context.Background(), ident("u1", auth.RoleStudent), KindStudent, ActionRead, &school.Fee{})
	assert.False(t, d.Allowed)
	assert.Contains(t, d.Reason, ReasonError)
}

func TestUnknownKindDenies(t *testing.T) {
	engine, _ := testEngine(t)

	d := engine.Authorize(context.Background(), ident("u1", auth.RoleStudent), ResourceKind("Locker"), ActionRead, nil)
	assert.False(t, d.Allowed)
	assert.Contains(t, d.Reason, ReasonError)
}

func TestEveryDecisionIsAudited(t *testing.T) {
	engine, sink := testEngine(t)
	resource := &school.Student{ID: "s1", UserID: "u1"}

	engine.Authorize(context.Background(), ident("u1", auth.RoleStudent), KindStudent, ActionRead, resource)
	engine.Authorize(context.Background(), ident("u2", auth.RoleStudent), KindStudent, ActionRead, resource)

	require.Len(t, sink.calls, 2)
	assert.True(t, sink.calls[0].success)
	assert.Equal(t, ReasonSelfAccess, sink.calls[0].reason)
	assert.False(t, sink.calls[1].success)
	assert.Equal(t, ReasonInsufficientPermissions, sink.calls[1].reason)
	assert.Equal(t, "Student", sink.calls[0].resource)
}
