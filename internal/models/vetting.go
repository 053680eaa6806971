package models

// Outcome is the terminal result of a vetting run.
type Outcome string

const (
	OutcomeClean              Outcome = "clean"
	OutcomeInfected           Outcome = "infected"
	OutcomePlagiarismRejected Outcome = "plagiarism_rejected"
)

// Step is a coarse progress marker published while a vetting run executes.
type Step string

const (
	StepIdle      Step = "idle"
	StepSubmitted Step = "submitted"
	StepScanning  Step = "scanning"
	StepScoring   Step = "scoring"
	StepCompleted Step = "completed"
	StepFailed    Step = "failed"
)

// VetRequest carries everything the pipeline needs about the upload under vetting.
type VetRequest struct {
	SubmissionID string `json:"submissionId" binding:"required"`
	FileURL      string `json:"fileUrl" binding:"required"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	TextContent  string `json:"textContent"`
	DeleteToken  string `json:"deleteToken"`
	StudentID    string `json:"studentId"`
}

// VetResult is what the pipeline reports back to the caller. For the
// plagiarism_rejected outcome the submission record no longer exists; the
// score survives only here.
type VetResult struct {
	Status Outcome `json:"status"`
	Score  int     `json:"score"`
}

// VetAcceptedResponse is returned by the async vetting endpoint.
type VetAcceptedResponse struct {
	Step         Step   `json:"step"`
	SubmissionID string `json:"submissionId"`
}
