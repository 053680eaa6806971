package models

import (
	"time"
)

// Status is the lifecycle status of a submission.
type Status string

const (
	StatusDraft       Status = "draft"
	StatusUploaded    Status = "uploaded"
	StatusUnderReview Status = "under_review"
	StatusFlagged     Status = "flagged"
	StatusApproved    Status = "approved"
)

// ScanStatus is the malware scan state of the current file.
type ScanStatus string

const (
	ScanPending  ScanStatus = "pending"
	ScanClean    ScanStatus = "clean"
	ScanInfected ScanStatus = "infected"
)

// FileVersion is one entry of a submission's append-only version history.
type FileVersion struct {
	FileURL    string    `bson:"fileUrl" json:"fileUrl"`
	FilePath   string    `bson:"filePath" json:"filePath"`
	FileName   string    `bson:"fileName" json:"fileName"`
	Comment    string    `bson:"comment,omitempty" json:"comment,omitempty"`
	UploadedAt time.Time `bson:"uploadedAt" json:"uploadedAt"`
}

// Submission represents a student's thesis document and its review state.
type Submission struct {
	ID          string `bson:"_id,omitempty" json:"id"`
	StudentID   string `bson:"studentId" json:"studentId"`
	StudentName string `bson:"studentName" json:"studentName"`
	Title       string `bson:"title" json:"title"`
	Description string `bson:"description" json:"description"`
	Category    string `bson:"category,omitempty" json:"category,omitempty"`

	// Extracted full text of the current file. Empty until extraction runs;
	// submissions without text are excluded from the plagiarism corpus.
	TextContent string `bson:"textContent,omitempty" json:"textContent,omitempty"`

	FileURL          string `bson:"fileUrl,omitempty" json:"fileUrl,omitempty"`
	FilePath         string `bson:"filePath,omitempty" json:"filePath,omitempty"`
	OriginalFileName string `bson:"originalFileName,omitempty" json:"originalFileName,omitempty"`
	// DeleteToken is the opaque credential required to purge the stored file.
	DeleteToken string `bson:"deleteToken,omitempty" json:"-"`

	VirusScanStatus  ScanStatus `bson:"virusScanStatus,omitempty" json:"virusScanStatus,omitempty"`
	PlagiarismScore  *int       `bson:"plagiarismScore,omitempty" json:"plagiarismScore,omitempty"`
	SecurityReportID string     `bson:"securityReportId,omitempty" json:"securityReportId,omitempty"`
	LastCheck        *time.Time `bson:"lastCheck,omitempty" json:"lastCheck,omitempty"`

	Status   Status        `bson:"status" json:"status"`
	Versions []FileVersion `bson:"versions,omitempty" json:"versions,omitempty"`

	EvaluatorID   string     `bson:"evaluatorId,omitempty" json:"evaluatorId,omitempty"`
	EvaluatorName string     `bson:"evaluatorName,omitempty" json:"evaluatorName,omitempty"`
	AssignedAt    *time.Time `bson:"assignedAt,omitempty" json:"assignedAt,omitempty"`

	RubricScores map[string]int `bson:"rubricScores,omitempty" json:"rubricScores,omitempty"`
	FinalGrade   *int           `bson:"finalGrade,omitempty" json:"finalGrade,omitempty"`
	Feedback     string         `bson:"feedback,omitempty" json:"feedback,omitempty"`
	GradedAt     *time.Time     `bson:"gradedAt,omitempty" json:"gradedAt,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}
