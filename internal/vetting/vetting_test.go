package vetting

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/SlenderjuniorxD/UPDS-TIM/internal/models"
	"github.com/SlenderjuniorxD/UPDS-TIM/internal/scanner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

type fakeScanner struct {
	submitID    string
	submitErr   error
	reports     []*scanner.Report
	fetchErr    error
	submitCalls int
	fetchCalls  int
}

func (f *fakeScanner) Submit(ctx context.Context, fileURL string) (string, error) {
	f.submitCalls++
	if f.submitErr != nil {
		return "", f.submitErr
	}
	return f.submitID, nil
}

func (f *fakeScanner) FetchReport(ctx context.Context, analysisID string) (*scanner.Report, error) {
	defer func() { f.fetchCalls++ }()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	idx := f.fetchCalls
	if idx >= len(f.reports) {
		idx = len(f.reports) - 1
	}
	return f.reports[idx], nil
}

type fakeFileStore struct {
	deleteErr     error
	deletedTokens []string
}

func (f *fakeFileStore) DeleteByToken(ctx context.Context, token string) error {
	f.deletedTokens = append(f.deletedTokens, token)
	return f.deleteErr
}

type fakeSubmissionsStore struct {
	corpus    []*models.Submission
	updates   []bson.M
	updateErr error
	deleteErr error
	deletedID string
	listCalls int
}

func (f *fakeSubmissionsStore) UpdateFields(ctx context.Context, id string, fields bson.M) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates = append(f.updates, fields)
	return nil
}

func (f *fakeSubmissionsStore) Delete(ctx context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deletedID = id
	return nil
}

func (f *fakeSubmissionsStore) ListWithText(ctx context.Context) ([]*models.Submission, error) {
	f.listCalls++
	return f.corpus, nil
}

func (f *fakeSubmissionsStore) lastUpdate() bson.M {
	if len(f.updates) == 0 {
		return nil
	}
	return f.updates[len(f.updates)-1]
}

type sentNotification struct {
	userID  string
	title   string
	msgType models.NotificationType
}

type fakeNotifier struct {
	sent []sentNotification
}

func (f *fakeNotifier) Send(ctx context.Context, userID, title, message string, notifType models.NotificationType) {
	f.sent = append(f.sent, sentNotification{userID: userID, title: title, msgType: notifType})
}

type fakeStatus struct {
	steps []models.Step
}

func (f *fakeStatus) Publish(ctx context.Context, submissionID string, step models.Step) error {
	f.steps = append(f.steps, step)
	return nil
}

func testConfig() Config {
	return Config{
		PollInterval:       time.Millisecond,
		PollMaxAttempts:    3,
		RejectionThreshold: 50,
		TitleWeight:        0.2,
		ContentWeight:      0.8,
	}
}

func cleanReport() *scanner.Report {
	return &scanner.Report{Status: "completed", Stats: scanner.ReportStats{Harmless: 70}}
}

func maliciousReport() *scanner.Report {
	return &scanner.Report{Status: "completed", Stats: scanner.ReportStats{Malicious: 2}}
}

func queuedReport() *scanner.Report {
	return &scanner.Report{Status: "queued"}
}

func baseRequest() models.VetRequest {
	return models.VetRequest{
		SubmissionID: "sub-1",
		FileURL:      "https://cdn.example.com/thesis.pdf",
		Title:        "candidate thesis title",
		TextContent:  "candidate body content tokens here",
		DeleteToken:  "tok-1",
		StudentID:    "student-1",
	}
}

func TestVetCleanOutcome(t *testing.T) {
	scn := &fakeScanner{submitID: "analysis-1", reports: []*scanner.Report{cleanReport()}}
	repo := &fakeSubmissionsStore{
		corpus: []*models.Submission{
			// Disjoint title, 1 of 3 body tokens shared: score well under 50.
			{ID: "sub-2", Title: "unrelated prior work", TextContent: "tokens from another document"},
		},
	}
	files := &fakeFileStore{}
	notifier := &fakeNotifier{}
	status := &fakeStatus{}

	svc := NewService(scn, files, repo, notifier, status, testConfig())
	result, err := svc.Vet(context.Background(), baseRequest())

	require.NoError(t, err)
	assert.Equal(t, models.OutcomeClean, result.Status)
	assert.LessOrEqual(t, result.Score, 50)

	last := repo.lastUpdate()
	require.NotNil(t, last)
	assert.Equal(t, models.StatusUnderReview, last["status"])
	assert.Equal(t, models.ScanClean, last["virusScanStatus"])
	assert.Equal(t, result.Score, last["plagiarismScore"])
	assert.Equal(t, "analysis-1", last["securityReportId"])

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "student-1", notifier.sent[0].userID)
	assert.Equal(t, models.NotifySuccess, notifier.sent[0].msgType)

	assert.Empty(t, files.deletedTokens)
	assert.Equal(t, models.Step("completed"), status.steps[len(status.steps)-1])
}

func TestVetInfectedShortCircuits(t *testing.T) {
	scn := &fakeScanner{submitID: "analysis-1", reports: []*scanner.Report{maliciousReport()}}
	repo := &fakeSubmissionsStore{}
	notifier := &fakeNotifier{}

	svc := NewService(scn, &fakeFileStore{}, repo, notifier, &fakeStatus{}, testConfig())
	result, err := svc.Vet(context.Background(), baseRequest())

	require.NoError(t, err)
	assert.Equal(t, models.OutcomeInfected, result.Status)
	assert.Zero(t, result.Score)

	// Plagiarism scoring never runs for infected files.
	assert.Zero(t, repo.listCalls)

	require.Len(t, repo.updates, 1)
	assert.Equal(t, models.StatusFlagged, repo.updates[0]["status"])
	assert.Equal(t, models.ScanInfected, repo.updates[0]["virusScanStatus"])
	assert.Equal(t, 0, repo.updates[0]["plagiarismScore"])

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, models.NotifyError, notifier.sent[0].msgType)
}

func TestVetPlagiarismRejection(t *testing.T) {
	scn := &fakeScanner{submitID: "analysis-1", reports: []*scanner.Report{cleanReport()}}
	req := baseRequest()
	repo := &fakeSubmissionsStore{
		corpus: []*models.Submission{
			// Identical body, different title: contentSim 100 -> combined 80.
			{ID: "sub-2", Title: "previous archived work", TextContent: req.TextContent},
		},
	}
	files := &fakeFileStore{}
	notifier := &fakeNotifier{}

	svc := NewService(scn, files, repo, notifier, &fakeStatus{}, testConfig())
	result, err := svc.Vet(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, models.OutcomePlagiarismRejected, result.Status)
	assert.Equal(t, 80, result.Score)

	assert.Equal(t, []string{"tok-1"}, files.deletedTokens)
	assert.Equal(t, "sub-1", repo.deletedID)

	// Only the clean-flag interleaving write happened; no terminal status.
	require.Len(t, repo.updates, 1)
	assert.Equal(t, models.ScanClean, repo.updates[0]["virusScanStatus"])
	assert.NotContains(t, repo.updates[0], "status")
}

func TestVetScoreAtThresholdIsNotRejected(t *testing.T) {
	scn := &fakeScanner{submitID: "analysis-1", reports: []*scanner.Report{cleanReport()}}
	repo := &fakeSubmissionsStore{
		corpus: []*models.Submission{
			// titleSim 50 (2/4 tokens) and contentSim 50 (2/4 tokens):
			// combined = 50*0.2 + 50*0.8 = exactly the threshold.
			{ID: "sub-2", Title: "aaaa bbbb dddd", TextContent: "one1 two2 four4"},
		},
	}

	svc := NewService(scn, &fakeFileStore{}, repo, &fakeNotifier{}, &fakeStatus{}, testConfig())

	req := baseRequest()
	req.Title = "aaaa bbbb cccc"
	req.TextContent = "one1 two2 three3"

	result, err := svc.Vet(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, models.OutcomeClean, result.Status)
	assert.Equal(t, 50, result.Score)
	assert.Empty(t, repo.deletedID)
}

func TestVetScoreJustAboveThresholdIsRejected(t *testing.T) {
	scn := &fakeScanner{submitID: "analysis-1", reports: []*scanner.Report{cleanReport()}}
	req := baseRequest()
	repo := &fakeSubmissionsStore{
		corpus: []*models.Submission{
			{ID: "sub-2", Title: "previous archived work", TextContent: req.TextContent},
		},
	}

	// Same corpus score, threshold one below it: strictly-greater must fire.
	cfg := testConfig()
	cfg.RejectionThreshold = 79

	svc := NewService(scn, &fakeFileStore{}, repo, &fakeNotifier{}, &fakeStatus{}, cfg)
	result, err := svc.Vet(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, models.OutcomePlagiarismRejected, result.Status)
	assert.Equal(t, "sub-1", repo.deletedID)
}

func TestVetExcludesCandidateRecordFromCorpus(t *testing.T) {
	scn := &fakeScanner{submitID: "analysis-1", reports: []*scanner.Report{cleanReport()}}
	req := baseRequest()
	repo := &fakeSubmissionsStore{
		corpus: []*models.Submission{
			// The candidate's own record is in the snapshot and would score
			// 100 against itself; it must be skipped.
			{ID: req.SubmissionID, Title: req.Title, TextContent: req.TextContent},
		},
	}

	svc := NewService(scn, &fakeFileStore{}, repo, &fakeNotifier{}, &fakeStatus{}, testConfig())
	result, err := svc.Vet(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, models.OutcomeClean, result.Status)
	assert.Zero(t, result.Score)
}

func TestVetPollTimeout(t *testing.T) {
	scn := &fakeScanner{submitID: "analysis-1", reports: []*scanner.Report{queuedReport()}}
	repo := &fakeSubmissionsStore{}
	status := &fakeStatus{}

	svc := NewService(scn, &fakeFileStore{}, repo, &fakeNotifier{}, status, testConfig())
	_, err := svc.Vet(context.Background(), baseRequest())

	require.ErrorIs(t, err, ErrScanTimeout)
	assert.Equal(t, 3, scn.fetchCalls)
	assert.Empty(t, repo.updates)
	assert.Equal(t, models.StepFailed, status.steps[len(status.steps)-1])
}

func TestVetScannerSubmitFailurePropagates(t *testing.T) {
	scn := &fakeScanner{submitErr: errors.New("connection refused")}
	repo := &fakeSubmissionsStore{}

	svc := NewService(scn, &fakeFileStore{}, repo, &fakeNotifier{}, &fakeStatus{}, testConfig())
	_, err := svc.Vet(context.Background(), baseRequest())

	require.Error(t, err)
	assert.ErrorContains(t, err, "failed to submit file for scanning")
	assert.Empty(t, repo.updates)
}

func TestVetFetchFailurePropagates(t *testing.T) {
	scn := &fakeScanner{submitID: "analysis-1", fetchErr: errors.New("service unavailable")}
	repo := &fakeSubmissionsStore{}

	svc := NewService(scn, &fakeFileStore{}, repo, &fakeNotifier{}, &fakeStatus{}, testConfig())
	_, err := svc.Vet(context.Background(), baseRequest())

	require.Error(t, err)
	assert.ErrorContains(t, err, "failed to fetch scan report")
	assert.Empty(t, repo.updates)
}

func TestVetFileDeleteFailureStillDeletesRecord(t *testing.T) {
	scn := &fakeScanner{submitID: "analysis-1", reports: []*scanner.Report{cleanReport()}}
	req := baseRequest()
	repo := &fakeSubmissionsStore{
		corpus: []*models.Submission{
			{ID: "sub-2", Title: "previous archived work", TextContent: req.TextContent},
		},
	}
	files := &fakeFileStore{deleteErr: errors.New("stale token")}

	svc := NewService(scn, files, repo, &fakeNotifier{}, &fakeStatus{}, testConfig())
	result, err := svc.Vet(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, models.OutcomePlagiarismRejected, result.Status)
	assert.Equal(t, "sub-1", repo.deletedID)
}
