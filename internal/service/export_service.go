package service

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/gleeclub/portal-api/internal/models"
	"github.com/gleeclub/portal-api/pkg/export"
	"github.com/gleeclub/portal-api/pkg/storage"
)

type rosterCalculator interface {
	Calculate(ctx context.Context, query GradeQuery) (*models.GradeRoster, error)
}

type fileStorage interface {
	Save(name string, data []byte) error
	Open(name string) (*os.File, error)
	Delete(name string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type tableRenderer interface {
	Render(table export.Table) ([]byte, error)
	ContentType() string
	Extension() string
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	File      string
	Token     string
	URL       string
	Format    models.ReportFormat
	Students  int
	ExpiresAt time.Time
}

// ExportService renders term rosters and persists them for signed download.
type ExportService struct {
	grades    rosterCalculator
	storage   fileStorage
	signer    *storage.SignedURLSigner
	renderers map[models.ReportFormat]tableRenderer
	logger    *zap.Logger
	cfg       ExportConfig
	now       func() time.Time
}

// NewExportService constructs an ExportService with the CSV and PDF renderers.
func NewExportService(grades rosterCalculator, files fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api/v1"
	}
	return &ExportService{
		grades:  grades,
		storage: files,
		signer:  signer,
		renderers: map[models.ReportFormat]tableRenderer{
			models.ReportFormatCSV: export.NewCSVExporter(),
			models.ReportFormatPDF: export.NewPDFExporter(),
		},
		logger: logger,
		cfg:    cfg,
		now:    time.Now,
	}
}

// Supports reports whether a renderer exists for format.
func (s *ExportService) Supports(format models.ReportFormat) bool {
	_, ok := s.renderers[format]
	return ok
}

// ContentType returns the MIME type served for format.
func (s *ExportService) ContentType(format models.ReportFormat) string {
	if r, ok := s.renderers[format]; ok {
		return r.ContentType()
	}
	return "application/octet-stream"
}

// Generate computes the roster described by job, renders it and stores the file.
func (s *ExportService) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("report job is nil")
	}
	renderer, ok := s.renderers[job.Params.Format]
	if !ok {
		return nil, fmt.Errorf("unsupported format %q", job.Params.Format)
	}

	weights := job.Params.Weights
	roster, err := s.grades.Calculate(ctx, GradeQuery{
		Term:    job.Params.Term,
		Weights: &weights,
		Policy:  job.Params.Policy,
		Refresh: true,
	})
	if err != nil {
		return nil, err
	}

	payload, err := renderer.Render(RosterTable(roster))
	if err != nil {
		return nil, fmt.Errorf("render %s roster: %w", job.Params.Format, err)
	}

	filename := s.filename(job, renderer.Extension())
	if err := s.storage.Save(filename, payload); err != nil {
		return nil, fmt.Errorf("store export: %w", err)
	}

	token, expiresAt, err := s.signer.Generate(job.ID, filename)
	if err != nil {
		return nil, err
	}
	url := fmt.Sprintf("%s/reports/download/%s", strings.TrimRight(s.cfg.APIPrefix, "/"), token)

	s.logger.Info("roster export stored",
		zap.String("job_id", job.ID),
		zap.String("file", filename),
		zap.Int("students", len(roster.Students)),
		zap.Int("bytes", len(payload)),
	)
	return &ExportResult{
		File:      filename,
		Token:     token,
		URL:       url,
		Format:    job.Params.Format,
		Students:  len(roster.Students),
		ExpiresAt: expiresAt,
	}, nil
}

// ParseToken validates a download token.
func (s *ExportService) ParseToken(token string, allowExpired bool) (storage.Download, error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to a stored export.
func (s *ExportService) Open(name string) (*os.File, error) {
	return s.storage.Open(name)
}

// Delete removes a stored export.
func (s *ExportService) Delete(name string) error {
	return s.storage.Delete(name)
}

// Cleanup removes files older than ttl, or the configured result TTL when ttl <= 0.
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) filename(job *models.ReportJob, ext string) string {
	id := job.ID
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("grades_%s_%s_%s.%s", sanitizeFilename(job.Params.Term), s.now().UTC().Format("20060102_150405"), id, ext)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".")
	result := replacer.Replace(raw)
	if len(result) > 64 {
		return result[:64]
	}
	return result
}

var rosterColumns = []export.Column{
	{Header: "Student Name", Width: 3, Align: export.AlignLeft},
	{Header: "Email", Width: 3.5, Align: export.AlignLeft},
	{Header: "Midterm", Width: 1.2, Align: export.AlignRight},
	{Header: "Assignment Avg", Width: 1.6, Align: export.AlignRight},
	{Header: "Journal Avg", Width: 1.4, Align: export.AlignRight},
	{Header: "Participation", Width: 1.5, Align: export.AlignRight},
	{Header: "Overall %", Width: 1.2, Align: export.AlignRight},
	{Header: "Letter Grade", Width: 1.2, Align: export.AlignCenter},
	{Header: "Submissions", Width: 1.2, Align: export.AlignRight},
}

// RosterTable lays a computed roster out as an export table, one row per student.
func RosterTable(roster *models.GradeRoster) export.Table {
	table := export.Table{Columns: rosterColumns}
	if roster == nil {
		return table
	}
	w := roster.Weights
	table.Title = fmt.Sprintf("Grade roster: %s", roster.Term)
	table.Subtitle = fmt.Sprintf("Weights M%s/A%s/J%s/P%s (%s) | %d students | average %s%% | passing %s%%",
		formatScore(w.Midterm), formatScore(w.Assignments), formatScore(w.Journals), formatScore(w.Participation),
		roster.Policy, roster.Statistics.TotalStudents,
		formatScore(roster.Statistics.AveragePercentage), formatScore(roster.Statistics.PassingRate))

	table.Rows = make([][]string, 0, len(roster.Students))
	for _, st := range roster.Students {
		midterm := "-"
		if st.MidtermScore != nil {
			midterm = formatScore(*st.MidtermScore)
		}
		table.Rows = append(table.Rows, []string{
			st.StudentName,
			st.StudentEmail,
			midterm,
			formatScore(st.AssignmentAverage),
			formatScore(st.JournalAverage),
			formatScore(st.ParticipationScore),
			formatScore(st.Percentage),
			st.LetterGrade,
			strconv.Itoa(len(st.AssignmentScores) + len(st.JournalScores)),
		})
	}
	return table
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
