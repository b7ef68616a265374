package workflow

// Role classifies the resolved identity performing a workflow operation.
type Role string

// Known platform roles. Parent and admin are read-only with respect to
// the state machine: they can view submissions but never transition them.
const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleParent  Role = "parent"
	RoleAdmin   Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleParent, RoleAdmin:
		return true
	}
	return false
}

// Actor is the resolved identity behind a workflow call: who they are,
// what role they hold, and — for teachers — which students they may act
// on. The engine trusts this value; credential verification happened
// upstream.
type Actor struct {
	ID               string
	Role             Role
	ScopedStudentIDs []string
}

// InScope reports whether the actor's review scope covers a student.
func (a Actor) InScope(studentID string) bool {
	for _, id := range a.ScopedStudentIDs {
		if id == studentID {
			return true
		}
	}
	return false
}
