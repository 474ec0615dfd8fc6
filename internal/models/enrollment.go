package models

// EnrollmentStatus represents the lifecycle of a course enrollment.
type EnrollmentStatus string

// Possible enrollment statuses.
const (
	EnrollmentStatusEnrolled  EnrollmentStatus = "enrolled"
	EnrollmentStatusDropped   EnrollmentStatus = "dropped"
	EnrollmentStatusCompleted EnrollmentStatus = "completed"
)

// Enrollment identifies a student included in a term's grade run.
type Enrollment struct {
	StudentID    string           `db:"student_id" json:"student_id"`
	Term         string           `db:"term" json:"term"`
	Status       EnrollmentStatus `db:"enrollment_status" json:"enrollment_status"`
	StudentName  string           `db:"full_name" json:"student_name"`
	StudentEmail string           `db:"email" json:"student_email"`
}
