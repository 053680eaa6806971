package vetting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SlenderjuniorxD/UPDS-TIM/internal/metrics"
	"github.com/SlenderjuniorxD/UPDS-TIM/internal/models"
	"github.com/SlenderjuniorxD/UPDS-TIM/internal/plagiarism"
	"github.com/SlenderjuniorxD/UPDS-TIM/internal/scanner"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
)

// ErrScanTimeout is returned when the scanner never produced a definitive
// verdict within the configured number of poll attempts.
var ErrScanTimeout = errors.New("scan report not ready after maximum poll attempts")

// Scanner submits files to the external malware scanning service.
type Scanner interface {
	Submit(ctx context.Context, fileURL string) (string, error)
	FetchReport(ctx context.Context, analysisID string) (*scanner.Report, error)
}

// FileStore removes stored files by their deletion credential.
type FileStore interface {
	DeleteByToken(ctx context.Context, token string) error
}

// SubmissionsStore is the slice of the persistence layer the pipeline mutates.
type SubmissionsStore interface {
	UpdateFields(ctx context.Context, id string, fields bson.M) error
	Delete(ctx context.Context, id string) error
	ListWithText(ctx context.Context) ([]*models.Submission, error)
}

// Notifier delivers outcome notifications to the submission owner.
type Notifier interface {
	Send(ctx context.Context, userID, title, message string, notifType models.NotificationType)
}

// StatusPublisher mirrors coarse pipeline progress for observers.
type StatusPublisher interface {
	Publish(ctx context.Context, submissionID string, step models.Step) error
}

// Config are the pipeline tuning knobs.
type Config struct {
	PollInterval       time.Duration
	PollMaxAttempts    int
	RejectionThreshold int
	TitleWeight        float64
	ContentWeight      float64
}

// Service runs the automated vetting pipeline: malware scan, then corpus
// plagiarism scoring, then the resulting lifecycle transition. One invocation
// is one strictly sequential task; concurrent invocations for different
// submissions are independent.
type Service struct {
	scanner  Scanner
	files    FileStore
	repo     SubmissionsStore
	notifier Notifier
	status   StatusPublisher
	checker  *plagiarism.Checker
	cfg      Config
}

func NewService(
	scn Scanner,
	files FileStore,
	repo SubmissionsStore,
	notifier Notifier,
	status StatusPublisher,
	cfg Config,
) *Service {
	return &Service{
		scanner:  scn,
		files:    files,
		repo:     repo,
		notifier: notifier,
		status:   status,
		checker:  plagiarism.NewChecker(cfg.TitleWeight, cfg.ContentWeight),
		cfg:      cfg,
	}
}

// Vet runs the full pipeline for one uploaded file and returns the outcome.
// Scanner and persistence failures abort the run and propagate to the caller;
// whatever was persisted before the failing step stays persisted. There is no
// automatic retry: re-invoking Vet re-submits the file to the scanner.
func (s *Service) Vet(ctx context.Context, req models.VetRequest) (models.VetResult, error) {
	start := time.Now()

	s.publish(ctx, req.SubmissionID, models.StepSubmitted)

	analysisID, err := s.scanner.Submit(ctx, req.FileURL)
	if err != nil {
		return s.fail(ctx, req.SubmissionID, fmt.Errorf("failed to submit file for scanning: %w", err))
	}

	log.Debug().
		Str("submissionId", req.SubmissionID).
		Str("analysisId", analysisID).
		Msg("File submitted for malware scanning")

	s.publish(ctx, req.SubmissionID, models.StepScanning)

	report, attempts, err := s.awaitReport(ctx, analysisID)
	if err != nil {
		return s.fail(ctx, req.SubmissionID, err)
	}
	metrics.ScanPollAttempts.Observe(float64(attempts))

	now := time.Now()

	if report.Malicious() {
		// Terminal state in one update: no plagiarism scoring for infected
		// files, and the score for this cycle is recorded as 0.
		score := 0
		err := s.repo.UpdateFields(ctx, req.SubmissionID, bson.M{
			"status":           models.StatusFlagged,
			"virusScanStatus":  models.ScanInfected,
			"plagiarismScore":  score,
			"securityReportId": analysisID,
			"lastCheck":        now,
		})
		if err != nil {
			return s.fail(ctx, req.SubmissionID, fmt.Errorf("failed to persist infected verdict: %w", err))
		}

		s.notifier.Send(ctx, req.StudentID,
			"Threat detected",
			"A virus was detected in your file. Please upload a clean copy.",
			models.NotifyError)

		s.finish(ctx, req.SubmissionID, models.OutcomeInfected, start)
		return models.VetResult{Status: models.OutcomeInfected, Score: 0}, nil
	}

	// The clean flag is persisted before scoring, so an observer may briefly
	// see virusScanStatus=clean with the pre-vetting lifecycle status.
	if err := s.repo.UpdateFields(ctx, req.SubmissionID, bson.M{
		"virusScanStatus": models.ScanClean,
	}); err != nil {
		return s.fail(ctx, req.SubmissionID, fmt.Errorf("failed to persist clean scan status: %w", err))
	}

	s.publish(ctx, req.SubmissionID, models.StepScoring)

	score, err := s.scoreAgainstCorpus(ctx, req)
	if err != nil {
		return s.fail(ctx, req.SubmissionID, err)
	}
	metrics.PlagiarismScores.Observe(float64(score))

	log.Info().
		Str("submissionId", req.SubmissionID).
		Int("score", score).
		Msg("Plagiarism score computed")

	if score > s.cfg.RejectionThreshold {
		// Removing the offending content takes priority over cleanup
		// completeness: a failed file delete is logged and the record is
		// deleted anyway.
		if req.DeleteToken != "" {
			if err := s.files.DeleteByToken(ctx, req.DeleteToken); err != nil {
				log.Warn().Err(err).
					Str("submissionId", req.SubmissionID).
					Msg("Failed to delete stored file of rejected submission")
			}
		}

		if err := s.repo.Delete(ctx, req.SubmissionID); err != nil {
			return s.fail(ctx, req.SubmissionID, fmt.Errorf("failed to delete rejected submission: %w", err))
		}

		// The record is gone; the score survives only in the result.
		s.finish(ctx, req.SubmissionID, models.OutcomePlagiarismRejected, start)
		return models.VetResult{Status: models.OutcomePlagiarismRejected, Score: score}, nil
	}

	err = s.repo.UpdateFields(ctx, req.SubmissionID, bson.M{
		"status":           models.StatusUnderReview,
		"virusScanStatus":  models.ScanClean,
		"plagiarismScore":  score,
		"securityReportId": analysisID,
		"lastCheck":        now,
	})
	if err != nil {
		return s.fail(ctx, req.SubmissionID, fmt.Errorf("failed to persist review transition: %w", err))
	}

	s.notifier.Send(ctx, req.StudentID,
		"Automated checks passed",
		"Your file passed the security and plagiarism checks. It is now with your reviewer.",
		models.NotifySuccess)

	s.finish(ctx, req.SubmissionID, models.OutcomeClean, start)
	return models.VetResult{Status: models.OutcomeClean, Score: score}, nil
}

// awaitReport polls the scanner until the analysis reaches a definitive
// verdict, waiting one interval before each fetch. The attempt count is
// returned for observability.
func (s *Service) awaitReport(ctx context.Context, analysisID string) (*scanner.Report, int, error) {
	for attempt := 1; attempt <= s.cfg.PollMaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, attempt, ctx.Err()
		case <-time.After(s.cfg.PollInterval):
		}

		report, err := s.scanner.FetchReport(ctx, analysisID)
		if err != nil {
			return nil, attempt, fmt.Errorf("failed to fetch scan report: %w", err)
		}

		if report.Done() {
			return report, attempt, nil
		}

		log.Debug().
			Str("analysisId", analysisID).
			Int("attempt", attempt).
			Str("reportStatus", report.Status).
			Msg("Scan report not ready yet")
	}

	return nil, s.cfg.PollMaxAttempts, ErrScanTimeout
}

// scoreAgainstCorpus reads a point-in-time snapshot of every submission with
// stored text and reduces it to the worst-case similarity score. The snapshot
// is read without locking; submissions created mid-run may or may not appear.
func (s *Service) scoreAgainstCorpus(ctx context.Context, req models.VetRequest) (int, error) {
	submissions, err := s.repo.ListWithText(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load plagiarism corpus: %w", err)
	}

	corpus := make([]plagiarism.Document, 0, len(submissions))
	for _, sub := range submissions {
		if sub.ID == req.SubmissionID {
			continue
		}
		corpus = append(corpus, plagiarism.Document{
			Title: sub.Title,
			Text:  sub.TextContent,
		})
	}

	return s.checker.MaxSimilarity(req.Title, req.TextContent, corpus), nil
}

func (s *Service) publish(ctx context.Context, submissionID string, step models.Step) {
	if err := s.status.Publish(ctx, submissionID, step); err != nil {
		log.Warn().Err(err).
			Str("submissionId", submissionID).
			Str("step", string(step)).
			Msg("Failed to publish vetting status")
	}
}

func (s *Service) finish(ctx context.Context, submissionID string, outcome models.Outcome, start time.Time) {
	s.publish(ctx, submissionID, models.StepCompleted)
	metrics.VettingRuns.WithLabelValues(string(outcome)).Inc()
	metrics.VettingDuration.Observe(time.Since(start).Seconds())
}

func (s *Service) fail(ctx context.Context, submissionID string, err error) (models.VetResult, error) {
	s.publish(ctx, submissionID, models.StepFailed)
	metrics.VettingRuns.WithLabelValues("failed").Inc()
	log.Error().Err(err).Str("submissionId", submissionID).Msg("Vetting run failed")
	return models.VetResult{}, err
}
