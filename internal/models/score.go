package models

// MidtermSubmission is a submitted midterm with an optional finalized grade.
type MidtermSubmission struct {
	ID          string   `db:"id" json:"id"`
	UserID      string   `db:"user_id" json:"user_id"`
	Grade       *float64 `db:"grade" json:"grade,omitempty"`
	IsSubmitted bool     `db:"is_submitted" json:"is_submitted"`
}

// SubmissionGrade is a per-question grade row produced by rubric grading.
type SubmissionGrade struct {
	SubmissionID    string   `db:"submission_id" json:"submission_id"`
	QuestionType    string   `db:"question_type" json:"question_type"`
	QuestionID      string   `db:"question_id" json:"question_id"`
	AIScore         *float64 `db:"ai_score" json:"ai_score,omitempty"`
	InstructorScore *float64 `db:"instructor_score" json:"instructor_score,omitempty"`
}

// QuestionKey identifies a rubric question.
func (g SubmissionGrade) QuestionKey() string {
	return g.QuestionType + ":" + g.QuestionID
}

// GradingRubric defines the maximum points for one question.
type GradingRubric struct {
	QuestionType string   `db:"question_type" json:"question_type"`
	QuestionID   string   `db:"question_id" json:"question_id"`
	TotalPoints  *float64 `db:"total_points" json:"total_points,omitempty"`
}

// QuestionKey identifies the rubric question.
func (r GradingRubric) QuestionKey() string {
	return r.QuestionType + ":" + r.QuestionID
}

// AssignmentScore is a graded assignment submission.
type AssignmentScore struct {
	StudentID    string  `db:"student_id" json:"-"`
	AssignmentID string  `db:"assignment_id" json:"assignment_id"`
	Score        float64 `db:"grade" json:"score"`
	MaxPoints    float64 `db:"-" json:"max_points"`
}

// JournalScore is a graded listening journal.
type JournalScore struct {
	StudentID string   `db:"student_id" json:"-"`
	JournalID string   `db:"journal_id" json:"journal_id"`
	Overall   *float64 `db:"overall_score" json:"-"`
	Score     float64  `db:"-" json:"score"`
	MaxPoints float64  `db:"-" json:"max_points"`
}

// ParticipationScore holds participation points for a term.
type ParticipationScore struct {
	StudentID    string   `db:"student_id" json:"student_id"`
	Term         string   `db:"term" json:"term"`
	PointsEarned *float64 `db:"points_earned" json:"points_earned,omitempty"`
}

// DefaultMaxPoints is the scale of assignment and journal scores.
const DefaultMaxPoints = 100.0

// DefaultRubricPoints applies to questions missing from the rubric table.
const DefaultRubricPoints = 10.0
