package school

import (
	"context"
	"errors"
)

// ErrNotFound is returned by repositories when the requested entity does
// not exist
var ErrNotFound = errors.New("not found")

// UserRepository resolves accounts. The access-control core consults it for
// identity resolution; the login callback upserts provisioned users.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*User, error)
	GetByExternalID(ctx context.Context, externalID string) (*User, error)
	Upsert(ctx context.Context, user *User) error
	SetActive(ctx context.Context, id string, active bool) error
}

// StudentRepository persists students
type StudentRepository interface {
	GetByID(ctx context.Context, id string) (*Student, error)
	List(ctx context.Context) ([]*Student, error)
	Create(ctx context.Context, student *Student) error
	Update(ctx context.Context, student *Student) error
	Delete(ctx context.Context, id string) error
}

// FacultyRepository persists faculty members
type FacultyRepository interface {
	GetByID(ctx context.Context, id string) (*Faculty, error)
	List(ctx context.Context) ([]*Faculty, error)
	Create(ctx context.Context, faculty *Faculty) error
	Update(ctx context.Context, faculty *Faculty) error
	Delete(ctx context.Context, id string) error
}

// FeeRepository persists fees. GetByID populates Fee.Student.
type FeeRepository interface {
	GetByID(ctx context.Context, id string) (*Fee, error)
	ListByStudent(ctx context.Context, studentID string) ([]*Fee, error)
	Create(ctx context.Context, fee *Fee) error
	Update(ctx context.Context, fee *Fee) error
	Delete(ctx context.Context, id string) error
}

// PerformanceRepository persists performance records. GetByID populates
// PerformanceRecord.Student.
type PerformanceRepository interface {
	GetByID(ctx context.Context, id string) (*PerformanceRecord, error)
	ListByStudent(ctx context.Context, studentID string) ([]*PerformanceRecord, error)
	Create(ctx context.Context, record *PerformanceRecord) error
	Update(ctx context.Context, record *PerformanceRecord) error
	Delete(ctx context.Context, id string) error
}

// Repositories bundles the full set for server wiring
type Repositories struct {
	Users       UserRepository
	Students    StudentRepository
	Faculty     FacultyRepository
	Fees        FeeRepository
	Performance PerformanceRepository
}
