package auth

import "time"

// Roles
const (
	RoleAdmin         = "admin"
	RoleTeacher       = "teacher"
	RoleStudent       = "student"
	RoleNuraniStudent = "nurani_student"
)

var (
	AllRoles = []string{RoleAdmin, RoleTeacher, RoleStudent, RoleNuraniStudent}

	// dashboard tree each role lands on
	roleDashboards = map[string]string{
		RoleAdmin:         "/admin",
		RoleTeacher:       "/teacher",
		RoleStudent:       "/student",
		RoleNuraniStudent: "/student",
	}
)

func IsValidRole(role string) bool {
	_, ok := roleDashboards[role]
	return ok
}

// Dashboard returns the dashboard path of role, "/login" for unknown roles.
func Dashboard(role string) string {
	if p, ok := roleDashboards[role]; ok {
		return p
	}
	return "/login"
}

// Source tells which credential store authenticated a login.
type Source string

const (
	SourceProvider Source = "provider"
	SourceTeacher  Source = "teacher"
	SourceNurani   Source = "nurani"
	SourceStudent  Source = "student"
	SourceDemo     Source = "demo"
)

// RoleForSource returns the role implied by a fallback source. The provider source has no implied role.
func RoleForSource(src Source) string {
	switch src {
	case SourceTeacher:
		return RoleTeacher
	case SourceNurani:
		return RoleNuraniStudent
	case SourceStudent:
		return RoleStudent
	}
	return ""
}

// Identity is an account of the identity provider.
type Identity struct {
	UID   string
	Email string
	Name  string
}

// RoleRecord is a document of one of the role collections (teachers, nurani_students, students).
type RoleRecord struct {
	ID          string
	Name        string
	Email       string
	LoginMobile string
	Secret      string
	Class       string
	Roll        int
}

// AdminRecord is a document of the admins collection.
type AdminRecord struct {
	UID        string    `json:"uid"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	ShortCode  string    `json:"-"`
	TOTPSecret string    `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}

// Profile is a document of the users collection.
type Profile struct {
	UID       string    `json:"uid"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Principal is the signed-in user.
type Principal struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role"`
	Source Source `json:"source"`
	Class  string `json:"class,omitempty"`
	Roll   int    `json:"roll,omitempty"`
}

func (p Principal) IsAdmin() bool   { return p.Role == RoleAdmin }
func (p Principal) IsTeacher() bool { return p.Role == RoleTeacher }
func (p Principal) IsStudent() bool { return p.Role == RoleStudent || p.Role == RoleNuraniStudent }
