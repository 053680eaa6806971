package stream

import (
	"testing"

	"github.com/SlenderjuniorxD/UPDS-TIM/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUploadEvent(t *testing.T) {
	msg := &StreamMessage{
		ID: "1700000000000-0",
		Fields: map[string]string{
			"submissionId": "sub-1",
			"fileUrl":      "https://cdn.example.com/thesis.pdf",
			"title":        "My Thesis",
			"textContent":  "extracted body",
			"deleteToken":  "tok-1",
			"studentId":    "student-1",
		},
	}

	event, err := ParseUploadEvent(msg)

	require.NoError(t, err)
	assert.Equal(t, "sub-1", event.SubmissionID)
	assert.Equal(t, "https://cdn.example.com/thesis.pdf", event.FileURL)
	assert.Equal(t, "My Thesis", event.Title)
	assert.Equal(t, "tok-1", event.DeleteToken)
}

func TestParseUploadEventMissingRequiredFields(t *testing.T) {
	_, err := ParseUploadEvent(&StreamMessage{Fields: map[string]string{"fileUrl": "https://x"}})
	assert.ErrorContains(t, err, "missing submissionId")

	_, err = ParseUploadEvent(&StreamMessage{Fields: map[string]string{"submissionId": "sub-1"}})
	assert.ErrorContains(t, err, "missing fileUrl")
}

func TestUploadEventFieldsRoundTrip(t *testing.T) {
	req := &models.VetRequest{
		SubmissionID: "sub-1",
		FileURL:      "https://cdn.example.com/thesis.pdf",
		Title:        "My Thesis",
		StudentID:    "student-1",
	}

	fields := UploadEventFields(req)
	stringFields := make(map[string]string, len(fields))
	for k, v := range fields {
		stringFields[k] = v.(string)
	}

	parsed, err := ParseUploadEvent(&StreamMessage{Fields: stringFields})

	require.NoError(t, err)
	assert.Equal(t, req, parsed)
}
