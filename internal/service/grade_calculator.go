package service

import (
	"math"
	"sort"

	"github.com/gleeclub/portal-api/internal/models"
)

// PassingPercentage is the lowest percentage counted as passing in class statistics.
const PassingPercentage = 70.0

var letterThresholds = []struct {
	min    float64
	letter string
}{
	{97, "A+"},
	{93, "A"},
	{90, "A-"},
	{87, "B+"},
	{83, "B"},
	{80, "B-"},
	{77, "C+"},
	{73, "C"},
	{70, "C-"},
	{67, "D+"},
	{63, "D"},
	{60, "D-"},
}

// LetterGrade maps a percentage onto the course letter scale. Lower bounds are inclusive.
func LetterGrade(percentage float64) string {
	for _, t := range letterThresholds {
		if percentage >= t.min {
			return t.letter
		}
	}
	return "F"
}

// roundPercentage rounds half up to two decimals.
func roundPercentage(v float64) float64 {
	return math.Floor(v*100+0.5) / 100
}

// ResolveMidterms returns the midterm percentage per user. A finalized grade on the
// user's first submission wins; otherwise rubric grades are summed against the
// rubric maximums. Users with neither are absent from the map.
func ResolveMidterms(submissions []models.MidtermSubmission, grades []models.SubmissionGrade, rubrics []models.GradingRubric) map[string]float64 {
	userBySubmission := make(map[string]string, len(submissions))
	finalized := make(map[string]*float64, len(submissions))
	for _, sub := range submissions {
		if sub.ID == "" || sub.UserID == "" {
			continue
		}
		userBySubmission[sub.ID] = sub.UserID
		if _, seen := finalized[sub.UserID]; !seen {
			finalized[sub.UserID] = sub.Grade
		}
	}

	maxPoints := make(map[string]float64, len(rubrics))
	for _, r := range rubrics {
		points := models.DefaultRubricPoints
		if r.TotalPoints != nil && *r.TotalPoints != 0 && !math.IsNaN(*r.TotalPoints) {
			points = *r.TotalPoints
		}
		maxPoints[r.QuestionKey()] = points
	}

	type aggregate struct{ received, possible float64 }
	totals := make(map[string]*aggregate)
	seen := make(map[string]struct{}, len(grades))
	for _, g := range grades {
		key := g.SubmissionID + "|" + g.QuestionKey()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		uid, ok := userBySubmission[g.SubmissionID]
		if !ok {
			continue
		}
		received := 0.0
		switch {
		case g.InstructorScore != nil:
			received = *g.InstructorScore
		case g.AIScore != nil:
			received = *g.AIScore
		}
		if math.IsNaN(received) || math.IsInf(received, 0) {
			continue
		}
		possible, ok := maxPoints[g.QuestionKey()]
		if !ok {
			possible = models.DefaultRubricPoints
		}
		agg := totals[uid]
		if agg == nil {
			agg = &aggregate{}
			totals[uid] = agg
		}
		agg.received += received
		agg.possible += possible
	}

	result := make(map[string]float64, len(finalized)+len(totals))
	for uid, agg := range totals {
		if agg.possible > 0 {
			result[uid] = agg.received / agg.possible * 100
		}
	}
	for uid, grade := range finalized {
		if grade != nil {
			result[uid] = *grade
		}
	}
	return result
}

// GradeSources are the raw collections read for one calculation run.
type GradeSources struct {
	Enrollments   []models.Enrollment
	Midterms      map[string]float64
	Assignments   []models.AssignmentScore
	Journals      []models.JournalScore
	Participation []models.ParticipationScore
}

// AssembleStudentGrades groups the source collections per enrolled student, in
// enrollment order. Rows for students outside the enrollment list are ignored.
func AssembleStudentGrades(src GradeSources) []models.StudentGrades {
	index := make(map[string]int, len(src.Enrollments))
	students := make([]models.StudentGrades, 0, len(src.Enrollments))
	for _, enrollment := range src.Enrollments {
		if _, dup := index[enrollment.StudentID]; dup {
			continue
		}
		index[enrollment.StudentID] = len(students)
		student := models.StudentGrades{Enrollment: enrollment}
		if midterm, ok := src.Midterms[enrollment.StudentID]; ok {
			value := midterm
			student.Midterm = &value
		}
		students = append(students, student)
	}

	for _, a := range src.Assignments {
		i, ok := index[a.StudentID]
		if !ok {
			continue
		}
		a.MaxPoints = models.DefaultMaxPoints
		students[i].Assignments = append(students[i].Assignments, a)
	}
	for _, j := range src.Journals {
		i, ok := index[j.StudentID]
		if !ok {
			continue
		}
		j.Score = 0
		if j.Overall != nil {
			j.Score = *j.Overall
		}
		j.MaxPoints = models.DefaultMaxPoints
		students[i].Journals = append(students[i].Journals, j)
	}
	for _, p := range src.Participation {
		i, ok := index[p.StudentID]
		if !ok || students[i].Participation != nil {
			continue
		}
		value := 0.0
		if p.PointsEarned != nil {
			value = *p.PointsEarned
		}
		students[i].Participation = &value
	}
	return students
}

// CalculateStudentGrade computes one student's composite grade.
func CalculateStudentGrade(input models.StudentGrades, weights models.GradeWeights, policy models.WeightPolicy) models.StudentGradeSummary {
	assignmentAvg := averageAssignments(input.Assignments)
	journalAvg := averageJournals(input.Journals)
	participation := 0.0
	if input.Participation != nil {
		participation = *input.Participation
	}
	midterm := 0.0
	if input.Midterm != nil {
		midterm = *input.Midterm
	}

	effective := weights
	if policy == models.WeightPolicyRenormalize {
		effective = renormalize(weights, input)
	}

	components := models.ComponentPoints{
		Midterm:       midterm * effective.Midterm / 100,
		Assignments:   assignmentAvg * effective.Assignments / 100,
		Journals:      journalAvg * effective.Journals / 100,
		Participation: participation * effective.Participation / 100,
	}
	total := components.Midterm + components.Assignments + components.Journals + components.Participation
	percentage := roundPercentage(total)

	assignments := input.Assignments
	if assignments == nil {
		assignments = []models.AssignmentScore{}
	}
	journals := input.Journals
	if journals == nil {
		journals = []models.JournalScore{}
	}

	return models.StudentGradeSummary{
		StudentID:          input.Enrollment.StudentID,
		StudentName:        input.Enrollment.StudentName,
		StudentEmail:       input.Enrollment.StudentEmail,
		Term:               input.Enrollment.Term,
		MidtermScore:       input.Midterm,
		AssignmentScores:   assignments,
		AssignmentAverage:  roundPercentage(assignmentAvg),
		JournalScores:      journals,
		JournalAverage:     roundPercentage(journalAvg),
		ParticipationScore: participation,
		Components: models.ComponentPoints{
			Midterm:       roundPercentage(components.Midterm),
			Assignments:   roundPercentage(components.Assignments),
			Journals:      roundPercentage(components.Journals),
			Participation: roundPercentage(components.Participation),
		},
		TotalPoints:   percentage,
		TotalPossible: 100,
		Percentage:    percentage,
		LetterGrade:   LetterGrade(total),
	}
}

// CalculateRoster computes and orders summaries for every student, highest percentage first.
// Equal percentages keep their input order.
func CalculateRoster(students []models.StudentGrades, weights models.GradeWeights, policy models.WeightPolicy) []models.StudentGradeSummary {
	summaries := make([]models.StudentGradeSummary, 0, len(students))
	for _, student := range students {
		summaries = append(summaries, CalculateStudentGrade(student, weights, policy))
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].Percentage > summaries[j].Percentage
	})
	return summaries
}

// ComputeClassStatistics reduces a roster to count, mean, pass rate and letter histogram.
func ComputeClassStatistics(summaries []models.StudentGradeSummary) models.ClassStatistics {
	stats := models.ClassStatistics{TotalStudents: len(summaries)}
	if len(summaries) == 0 {
		return stats
	}
	sum := 0.0
	passing := 0
	for _, s := range summaries {
		sum += s.Percentage
		if s.Percentage >= PassingPercentage {
			passing++
		}
		switch firstLetter(s.LetterGrade) {
		case 'A':
			stats.Distribution.A++
		case 'B':
			stats.Distribution.B++
		case 'C':
			stats.Distribution.C++
		case 'D':
			stats.Distribution.D++
		default:
			stats.Distribution.F++
		}
	}
	stats.AveragePercentage = sum / float64(len(summaries))
	stats.PassingRate = float64(passing) * 100 / float64(len(summaries))
	return stats
}

// SummaryRecord converts a computed summary into its cache row.
func SummaryRecord(s models.StudentGradeSummary) models.GradeSummaryRecord {
	assignmentPoints := 0.0
	for _, a := range s.AssignmentScores {
		assignmentPoints += a.Score
	}
	return models.GradeSummaryRecord{
		StudentID:             s.StudentID,
		Term:                  s.Term,
		AssignmentPoints:      assignmentPoints,
		AssignmentPossible:    float64(len(s.AssignmentScores)) * models.DefaultMaxPoints,
		ParticipationPoints:   s.ParticipationScore,
		ParticipationPossible: models.DefaultMaxPoints,
		OverallPoints:         s.TotalPoints,
		OverallPossible:       s.TotalPossible,
		OverallPercentage:     s.Percentage,
		LetterGrade:           s.LetterGrade,
	}
}

func renormalize(weights models.GradeWeights, input models.StudentGrades) models.GradeWeights {
	present := models.GradeWeights{}
	if input.Midterm != nil {
		present.Midterm = weights.Midterm
	}
	if len(input.Assignments) > 0 {
		present.Assignments = weights.Assignments
	}
	if len(input.Journals) > 0 {
		present.Journals = weights.Journals
	}
	if input.Participation != nil {
		present.Participation = weights.Participation
	}
	presentSum := present.Sum()
	if presentSum == 0 {
		return present
	}
	return present.Scale(weights.Sum() / presentSum)
}

func averageAssignments(scores []models.AssignmentScore) float64 {
	if len(scores) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range scores {
		sum += s.Score
	}
	return sum / float64(len(scores))
}

func averageJournals(scores []models.JournalScore) float64 {
	if len(scores) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range scores {
		sum += s.Score
	}
	return sum / float64(len(scores))
}

func firstLetter(letter string) byte {
	if letter == "" {
		return 'F'
	}
	return letter[0]
}
