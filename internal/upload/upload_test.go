package upload_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kolah/ontogen/internal/upload"
	"github.com/stretchr/testify/require"
)

func TestUpload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/content/upload", r.URL.Path)
		require.Equal(t, "KYA", r.URL.Query().Get("filePath"))
		require.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		require.Equal(t, []string{""}, r.MultipartForm.Value["fileName"])

		files := r.MultipartForm.File["file"]
		require.Len(t, files, 1)
		require.Equal(t, "swagger.rdf", files[0].Filename)
		require.Equal(t, "application/rdf+xml", files[0].Header.Get("Content-Type"))
		f, err := files[0].Open()
		require.NoError(t, err)
		content, err := io.ReadAll(f)
		require.NoError(t, err)
		require.Equal(t, "<rdf:RDF/>", string(content))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id": "asset-1", "url": "https://cdn.example.com/a.rdf"}`)
	}))
	defer srv.Close()

	client := upload.New(srv.URL + "/content/upload?filePath=KYA")
	asset, err := client.Upload(context.Background(), strings.NewReader("<rdf:RDF/>"), "swagger.rdf", "application/rdf+xml", "secret")
	require.NoError(t, err)
	require.Equal(t, &upload.Asset{ID: "asset-1", URL: "https://cdn.example.com/a.rdf"}, asset)
}

func TestUploadCDNFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"id": "asset-2", "url": "", "cdnUrl": "https://cdn.example.com/b.ttl"}`)
	}))
	defer srv.Close()

	asset, err := upload.New(srv.URL).Upload(context.Background(), strings.NewReader("x"), "api.ttl", "text/turtle", "t")
	require.NoError(t, err)
	require.Equal(t, "https://cdn.example.com/b.ttl", asset.URL)
}

func TestUploadFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    string
	}{
		{
			name: "status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "token expired", http.StatusUnauthorized)
			},
			want: "unexpected status 401 Unauthorized: token expired",
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, `not json`)
			},
			want: "decoding response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := upload.New(srv.URL).Upload(context.Background(), strings.NewReader("x"), "a.rdf", "application/rdf+xml", "t")
			require.ErrorIs(t, err, upload.ErrUpload)
			require.ErrorContains(t, err, tt.want)
		})
	}
}

func TestUploadUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := upload.New(url, upload.WithHTTPClient(http.DefaultClient)).
		Upload(context.Background(), strings.NewReader("x"), "a.rdf", "application/rdf+xml", "t")
	require.ErrorIs(t, err, upload.ErrUpload)
}

func TestUploadCanceled(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := upload.New(srv.URL).Upload(ctx, strings.NewReader("x"), "a.rdf", "application/rdf+xml", "t")
	require.ErrorIs(t, err, upload.ErrUpload)
	require.True(t, errors.Is(err, context.Canceled))
}
