package stream

import (
	"fmt"

	"github.com/SlenderjuniorxD/UPDS-TIM/internal/models"
)

// StreamMessage is a raw entry read from the uploads stream.
type StreamMessage struct {
	ID     string
	Fields map[string]string
}

// ParseUploadEvent converts a stream entry into a vetting request.
// submissionId and fileUrl are mandatory; everything else is optional.
func ParseUploadEvent(msg *StreamMessage) (*models.VetRequest, error) {
	submissionID := msg.Fields["submissionId"]
	if submissionID == "" {
		return nil, fmt.Errorf("upload event missing submissionId")
	}

	fileURL := msg.Fields["fileUrl"]
	if fileURL == "" {
		return nil, fmt.Errorf("upload event missing fileUrl")
	}

	return &models.VetRequest{
		SubmissionID: submissionID,
		FileURL:      fileURL,
		Title:        msg.Fields["title"],
		Description:  msg.Fields["description"],
		TextContent:  msg.Fields["textContent"],
		DeleteToken:  msg.Fields["deleteToken"],
		StudentID:    msg.Fields["studentId"],
	}, nil
}

// UploadEventFields flattens a vetting request into stream entry fields.
func UploadEventFields(req *models.VetRequest) map[string]interface{} {
	return map[string]interface{}{
		"submissionId": req.SubmissionID,
		"fileUrl":      req.FileURL,
		"title":        req.Title,
		"description":  req.Description,
		"textContent":  req.TextContent,
		"deleteToken":  req.DeleteToken,
		"studentId":    req.StudentID,
	}
}
