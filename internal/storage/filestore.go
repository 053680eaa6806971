package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to a Cloudinary-compatible unsigned upload API. Uploads are
// authorized by an upload preset; deletions by the per-file token returned at
// upload time.
type Client struct {
	baseURL      string
	uploadPreset string
	httpClient   *http.Client
}

func NewClient(baseURL, uploadPreset string) *Client {
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		uploadPreset: uploadPreset,
		httpClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
	}
}

// UploadResult identifies a stored file. DeleteToken is the only credential
// that can remove the file later.
type UploadResult struct {
	URL         string
	Path        string
	DeleteToken string
}

type uploadResponse struct {
	SecureURL   string `json:"secure_url"`
	PublicID    string `json:"public_id"`
	DeleteToken string `json:"delete_token"`
}

// Upload stores a file under the given folder and returns its locator and
// deletion credential. The stored name is the original base name suffixed
// with the upload timestamp so re-uploads never collide.
func (c *Client) Upload(ctx context.Context, fileName, folder string, content io.Reader) (*UploadResult, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, fmt.Errorf("failed to copy file content: %w", err)
	}

	publicID := fmt.Sprintf("%s_%d", baseName(fileName), time.Now().UnixMilli())

	fields := map[string]string{
		"upload_preset": c.uploadPreset,
		"folder":        folder,
		"public_id":     publicID,
	}
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return nil, fmt.Errorf("failed to write form field %s: %w", key, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	endpoint := fmt.Sprintf("%s/upload", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to execute upload request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("upload failed with status %d: %s", resp.StatusCode, string(body))
	}

	var uploadResp uploadResponse
	if err := json.Unmarshal(body, &uploadResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal upload response: %w", err)
	}

	return &UploadResult{
		URL:         uploadResp.SecureURL,
		Path:        uploadResp.PublicID,
		DeleteToken: uploadResp.DeleteToken,
	}, nil
}

// DeleteByToken removes a previously uploaded file using its deletion
// credential.
func (c *Client) DeleteByToken(ctx context.Context, token string) error {
	endpoint := fmt.Sprintf("%s/delete_by_token", c.baseURL)

	form := url.Values{}
	form.Set("token", token)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to execute delete request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("delete failed with status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}

func baseName(fileName string) string {
	if idx := strings.LastIndex(fileName, "."); idx > 0 {
		return fileName[:idx]
	}
	return fileName
}
