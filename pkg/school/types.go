package school

import (
	"time"

	"github.com/edushield/edushield/pkg/auth"
)

// User is an account known to the school system. Role drives authorization;
// Active gates login and session validity.
type User struct {
	ID          string    `json:"id"`
	ExternalID  string    `json:"external_id,omitempty"` // identity provider subject
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email"`
	Role        auth.Role `json:"role"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Student is an enrolled student. UserID links to the student's account and
// is the ownership anchor for self-access checks.
type Student struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Grade      int       `json:"grade"`
	EnrolledAt time.Time `json:"enrolled_at"`
}

// Faculty is a staff member. UserID anchors teacher self-service access.
type Faculty struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Department string    `json:"department"`
	HiredAt    time.Time `json:"hired_at"`
}

// Fee is a charge against a student. Student is populated on load so
// ownership checks can follow Fee.Student.UserID.
type Fee struct {
	ID          string     `json:"id"`
	StudentID   string     `json:"student_id"`
	Student     *Student   `json:"student,omitempty"`
	AmountCents int64      `json:"amount_cents"`
	Description string     `json:"description"`
	DueDate     time.Time  `json:"due_date"`
	Paid        bool       `json:"paid"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
}

// PerformanceRecord is an academic result for a student in one subject and
// term. Student is populated on load for ownership checks.
type PerformanceRecord struct {
	ID         string    `json:"id"`
	StudentID  string    `json:"student_id"`
	Student    *Student  `json:"student,omitempty"`
	Subject    string    `json:"subject"`
	Term       string    `json:"term"`
	Score      float64   `json:"score"`
	Comments   string    `json:"comments,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}
