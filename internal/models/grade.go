package models

import "time"

// WeightPolicy decides how absent grade components are treated.
type WeightPolicy string

const (
	// WeightPolicyLiteral applies weights as given; absent components contribute 0.
	WeightPolicyLiteral WeightPolicy = "literal"
	// WeightPolicyRenormalize redistributes the weight of absent components across present ones.
	WeightPolicyRenormalize WeightPolicy = "renormalize"
)

// Valid reports whether the policy is known.
func (p WeightPolicy) Valid() bool {
	return p == WeightPolicyLiteral || p == WeightPolicyRenormalize
}

// GradeWeights are percentage-of-total weights per component. They are not
// required to sum to 100.
type GradeWeights struct {
	Midterm       float64 `json:"midterm" form:"midterm" validate:"min=0"`
	Assignments   float64 `json:"assignments" form:"assignments" validate:"min=0"`
	Journals      float64 `json:"journals" form:"journals" validate:"min=0"`
	Participation float64 `json:"participation" form:"participation" validate:"min=0"`
}

// DefaultGradeWeights is the course default of 25/40/25/10.
var DefaultGradeWeights = GradeWeights{Midterm: 25, Assignments: 40, Journals: 25, Participation: 10}

// Sum returns the total of all component weights.
func (w GradeWeights) Sum() float64 {
	return w.Midterm + w.Assignments + w.Journals + w.Participation
}

// Scale multiplies every weight by factor.
func (w GradeWeights) Scale(factor float64) GradeWeights {
	return GradeWeights{
		Midterm:       w.Midterm * factor,
		Assignments:   w.Assignments * factor,
		Journals:      w.Journals * factor,
		Participation: w.Participation * factor,
	}
}

// ComponentPoints is the weighted contribution of each component to the total.
type ComponentPoints struct {
	Midterm       float64 `json:"midterm"`
	Assignments   float64 `json:"assignments"`
	Journals      float64 `json:"journals"`
	Participation float64 `json:"participation"`
}

// StudentGrades groups every score source for one student.
type StudentGrades struct {
	Enrollment    Enrollment
	Midterm       *float64
	Assignments   []AssignmentScore
	Journals      []JournalScore
	Participation *float64
}

// StudentGradeSummary is the derived, non-authoritative grade of one student.
type StudentGradeSummary struct {
	StudentID          string            `json:"student_id"`
	StudentName        string            `json:"student_name"`
	StudentEmail       string            `json:"student_email"`
	Term               string            `json:"term"`
	MidtermScore       *float64          `json:"midterm_score"`
	AssignmentScores   []AssignmentScore `json:"assignment_scores"`
	AssignmentAverage  float64           `json:"assignment_average"`
	JournalScores      []JournalScore    `json:"journal_scores"`
	JournalAverage     float64           `json:"journal_average"`
	ParticipationScore float64           `json:"participation_score"`
	Components         ComponentPoints   `json:"components"`
	TotalPoints        float64           `json:"total_points"`
	TotalPossible      float64           `json:"total_possible"`
	Percentage         float64           `json:"percentage"`
	LetterGrade        string            `json:"letter_grade"`
}

// GradeDistribution counts students by letter family.
type GradeDistribution struct {
	A int `json:"A"`
	B int `json:"B"`
	C int `json:"C"`
	D int `json:"D"`
	F int `json:"F"`
}

// ClassStatistics summarises a computed roster.
type ClassStatistics struct {
	TotalStudents     int               `json:"total_students"`
	AveragePercentage float64           `json:"average_percentage"`
	PassingRate       float64           `json:"passing_rate"`
	Distribution      GradeDistribution `json:"grade_distribution"`
}

// GradeRoster is the result of one calculation run for a term.
type GradeRoster struct {
	Term       string                `json:"term"`
	Weights    GradeWeights          `json:"weights"`
	Policy     WeightPolicy          `json:"policy"`
	Students   []StudentGradeSummary `json:"students"`
	Statistics ClassStatistics       `json:"statistics"`
	ComputedAt time.Time             `json:"computed_at"`
	Cached     bool                  `json:"cached"`
}

// GradeSummaryRecord is the cached summary row keyed by (student_id, term).
type GradeSummaryRecord struct {
	StudentID             string    `db:"student_id" json:"student_id"`
	Term                  string    `db:"term" json:"term"`
	AssignmentPoints      float64   `db:"assignment_points" json:"assignment_points"`
	AssignmentPossible    float64   `db:"assignment_possible" json:"assignment_possible"`
	ParticipationPoints   float64   `db:"participation_points" json:"participation_points"`
	ParticipationPossible float64   `db:"participation_possible" json:"participation_possible"`
	OverallPoints         float64   `db:"overall_points" json:"overall_points"`
	OverallPossible       float64   `db:"overall_possible" json:"overall_possible"`
	OverallPercentage     float64   `db:"overall_percentage" json:"overall_percentage"`
	LetterGrade           string    `db:"letter_grade" json:"letter_grade"`
	CalculatedAt          time.Time `db:"calculated_at" json:"calculated_at"`
}

// CommitResult reports how many summaries were written.
type CommitResult struct {
	Term    string    `json:"term"`
	Updated int       `json:"updated"`
	Atomic  bool      `json:"atomic"`
	At      time.Time `json:"calculated_at"`
}
