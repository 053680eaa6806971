package extract

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientExtract(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/extract", r.URL.Path)
		require.Equal(t, "extract-key", r.Header.Get("x-api-key"))

		var req ExtractRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "https://cdn.example.com/thesis.pdf", req.FileURL)

		w.Write([]byte(`{"text":"extracted thesis body","pages":42,"truncated":false}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "extract-key")
	resp, err := client.Extract(context.Background(), &ExtractRequest{
		FileURL:  "https://cdn.example.com/thesis.pdf",
		FileName: "thesis.pdf",
	})

	require.NoError(t, err)
	assert.Equal(t, "extracted thesis body", resp.Text)
	assert.Equal(t, 42, resp.Pages)
}

func TestClientExtractBadRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error":"unsupported_format","message":"not a PDF"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "extract-key")
	_, err := client.Extract(context.Background(), &ExtractRequest{FileURL: "https://cdn.example.com/x.bin"})

	assert.ErrorContains(t, err, "unsupported_format")
}
