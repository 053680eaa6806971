package storage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientUpload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/upload", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1 << 20))

		assert.Equal(t, "upds-upload", r.FormValue("upload_preset"))
		assert.Equal(t, "proyectos/sub-1", r.FormValue("folder"))
		assert.True(t, strings.HasPrefix(r.FormValue("public_id"), "thesis_"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "thesis.pdf", header.Filename)

		w.Write([]byte(`{"secure_url":"https://cdn.example.com/thesis.pdf","public_id":"proyectos/sub-1/thesis_1","delete_token":"tok-abc"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "upds-upload")
	result, err := client.Upload(context.Background(), "thesis.pdf", "proyectos/sub-1", strings.NewReader("%PDF-1.4 fake"))

	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/thesis.pdf", result.URL)
	assert.Equal(t, "proyectos/sub-1/thesis_1", result.Path)
	assert.Equal(t, "tok-abc", result.DeleteToken)
}

func TestClientDeleteByToken(t *testing.T) {
	var gotToken string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/delete_by_token", r.URL.Path)
		require.NoError(t, r.ParseForm())
		gotToken = r.PostForm.Get("token")
		w.Write([]byte(`{"result":"ok"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "upds-upload")
	err := client.DeleteByToken(context.Background(), "tok-abc")

	require.NoError(t, err)
	assert.Equal(t, "tok-abc", gotToken)
}

func TestClientDeleteByTokenFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"Stale token"}}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "upds-upload")
	err := client.DeleteByToken(context.Background(), "expired")

	assert.ErrorContains(t, err, "status 400")
}
