package domain

type Role string

const (
	RoleAdmin     Role = "admin"
	RoleLibrarian Role = "librarian"
	RoleTeacher   Role = "teacher"
	RoleStudent   Role = "student"
)

// IsOverseer reports whether the role may approve, reject, direct-borrow
// and see records other than its own.
func (r Role) IsOverseer() bool {
	return r == RoleAdmin || r == RoleLibrarian
}

type User struct {
	ID    int32  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// Caller is the identity supplied by the external session-verification
// service for the current request.
type Caller struct {
	UserID int32
	Role   Role
}
