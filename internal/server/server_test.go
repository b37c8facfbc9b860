package server_test

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/kolah/ontogen/internal/builder"
	"github.com/kolah/ontogen/internal/convert"
	"github.com/kolah/ontogen/internal/server"
	"github.com/kolah/ontogen/internal/upload"
	"github.com/stretchr/testify/require"
)

const petstore = `{
  "openapi": "3.0.0",
  "info": {"title": "Pets", "version": "1.0.0"},
  "paths": {},
  "components": {
    "schemas": {
      "Pet": {"type": "object", "properties": {"name": {"type": "string"}}}
    }
  }
}`

type testServer struct {
	*httptest.Server
}

func newServer(t *testing.T, cfg server.Config, opts ...server.Option) testServer {
	t.Helper()
	conv, err := convert.New(convert.Options{DisableFileReferences: true})
	require.NoError(t, err)

	if cfg.BaseURI == "" {
		cfg.BaseURI = convert.DefaultBaseURI
	}
	if cfg.MaxDepth == 0 {
		cfg.MaxDepth = builder.DefaultMaxDepth
	}
	s, err := server.New(conv, cfg, opts...)
	require.NoError(t, err)

	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return testServer{srv}
}

func (s testServer) post(t *testing.T, path, contentType string, body io.Reader, header http.Header) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, s.URL+path, body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", contentType)
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func multipartBody(t *testing.T, field, filename string, content []byte) (string, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return w.FormDataContentType(), &buf
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(data)
}

func errorCode(t *testing.T, resp *http.Response) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body.Error
}

func TestHealth(t *testing.T) {
	s := newServer(t, server.Config{})

	resp, err := http.Get(s.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "Endpoint is working fine", readBody(t, resp))
}

func TestConvertJSONBody(t *testing.T) {
	s := newServer(t, server.Config{})

	resp := s.post(t, "/convert/turtle", "application/json", strings.NewReader(petstore), nil)
	body := readBody(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)

	require.Equal(t, "text/turtle", resp.Header.Get("Content-Type"))
	_, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition"))
	require.NoError(t, err)
	require.Equal(t, "ontology.ttl", params["filename"])

	_, err = uuid.Parse(resp.Header.Get(server.ConversionIDHeader))
	require.NoError(t, err)
	require.Equal(t, "0", resp.Header.Get(server.ConversionWarningsHeader))

	require.Contains(t, body, "@prefix api: <http://example.org/api#> .")
	require.Contains(t, body, "api:Pet_name a owl:DatatypeProperty ;\n")
}

func TestConvertMultipart(t *testing.T) {
	s := newServer(t, server.Config{})

	contentType, body := multipartBody(t, "openapi_file", "petstore.json", []byte(petstore))
	resp := s.post(t, "/convert/rdfxml", contentType, body, nil)
	content := readBody(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode, content)

	require.Equal(t, "application/rdf+xml", resp.Header.Get("Content-Type"))
	require.Equal(t, `attachment; filename=petstore.rdf`, resp.Header.Get("Content-Disposition"))
	require.Contains(t, content, `<owl:Class rdf:about="http://example.org/api#Pet">`)
}

func TestConvertRefusesFileReferences(t *testing.T) {
	secret := filepath.Join(t.TempDir(), "secret.json")
	require.NoError(t, os.WriteFile(secret, []byte(`{
  "Secret": {"type": "object", "description": "password=hunter2", "properties": {"token": {"type": "string"}}}
}`), 0o600))

	doc := `{
  "openapi": "3.0.0",
  "info": {"title": "Pets", "version": "1.0.0"},
  "paths": {},
  "components": {
    "schemas": {
      "Pet": {"type": "object", "properties": {"leak": {"$ref": "` + secret + `#/Secret"}}}
    }
  }
}`

	s := newServer(t, server.Config{})
	resp := s.post(t, "/convert/turtle", "application/json", strings.NewReader(doc), nil)
	body := readBody(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)

	require.NotContains(t, body, "hunter2")
	require.NotContains(t, body, "Pet_leak_token")
	require.Equal(t, "1", resp.Header.Get(server.ConversionWarningsHeader))
}

func TestConvertQueryParameters(t *testing.T) {
	s := newServer(t, server.Config{})

	resp := s.post(t, "/convert/turtle?base_uri=https://onto.example.com/shop&dedup=ref", "application/json", strings.NewReader(petstore), nil)
	body := readBody(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	require.Contains(t, body, "@prefix api: <https://onto.example.com/shop#> .")
}

func TestConvertRejects(t *testing.T) {
	s := newServer(t, server.Config{})

	tests := []struct {
		name        string
		path        string
		contentType string
		body        func(t *testing.T) (string, io.Reader)
		wantStatus  int
		wantCode    string
	}{
		{
			name: "unknown format",
			path: "/convert/jsonld",
			body: func(*testing.T) (string, io.Reader) {
				return "application/json", strings.NewReader(petstore)
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "depth below one",
			path: "/convert/turtle?max_depth=0",
			body: func(*testing.T) (string, io.Reader) {
				return "application/json", strings.NewReader(petstore)
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   "validation_error",
		},
		{
			name: "relative base uri",
			path: "/convert/turtle?base_uri=shop",
			body: func(*testing.T) (string, io.Reader) {
				return "application/json", strings.NewReader(petstore)
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid_parameters",
		},
		{
			name: "document without info",
			path: "/convert/turtle",
			body: func(*testing.T) (string, io.Reader) {
				return "application/json", strings.NewReader(`{"openapi": "3.0.0", "paths": {}}`)
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid_input",
		},
		{
			name: "not an api document file",
			path: "/convert/turtle",
			body: func(t *testing.T) (string, io.Reader) {
				return multipartBody(t, "openapi_file", "notes.txt", []byte(petstore))
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid_request",
		},
		{
			name: "missing form field",
			path: "/convert/turtle",
			body: func(t *testing.T) (string, io.Reader) {
				return multipartBody(t, "document", "petstore.json", []byte(petstore))
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid_request",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			contentType, body := tt.body(t)
			resp := s.post(t, tt.path, contentType, body, nil)
			require.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.wantCode != "" {
				require.Equal(t, tt.wantCode, errorCode(t, resp))
			}
		})
	}
}

func TestConvertBodyTooLarge(t *testing.T) {
	s := newServer(t, server.Config{MaxUploadBytes: 64})

	resp := s.post(t, "/convert/turtle", "application/json", strings.NewReader(petstore), nil)
	require.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	require.Equal(t, "payload_too_large", errorCode(t, resp))
}

func bearer(token string) http.Header {
	return http.Header{"Authorization": []string{"Bearer " + token}}
}

func TestConvertUpload(t *testing.T) {
	var gotAuth, gotFile string
	cms := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotFile = r.MultipartForm.File["file"][0].Filename
		_, _ = io.WriteString(w, `{"id": "asset-7", "cdnUrl": "https://cdn.example.com/ontology.ttl"}`)
	}))
	defer cms.Close()

	s := newServer(t, server.Config{}, server.WithUploader(upload.New(cms.URL)))

	resp := s.post(t, "/convert/turtle/upload", "application/json", strings.NewReader(petstore), bearer("secret"))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var asset struct {
		ID           string `json:"id"`
		URL          string `json:"url"`
		Format       string `json:"format"`
		ConversionID string `json:"conversion_id"`
		Warnings     int    `json:"warnings"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&asset))
	require.Equal(t, "asset-7", asset.ID)
	require.Equal(t, "https://cdn.example.com/ontology.ttl", asset.URL)
	require.Equal(t, "turtle", asset.Format)
	require.Equal(t, resp.Header.Get(server.ConversionIDHeader), asset.ConversionID)
	require.Zero(t, asset.Warnings)
	require.Equal(t, "0", resp.Header.Get(server.ConversionWarningsHeader))

	require.Equal(t, "Bearer secret", gotAuth)
	require.Equal(t, "ontology.ttl", gotFile)
}

func TestConvertUploadFailures(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "storage full", http.StatusInsufficientStorage)
	}))
	defer failing.Close()

	t.Run("missing token", func(t *testing.T) {
		s := newServer(t, server.Config{}, server.WithUploader(upload.New(failing.URL)))
		resp := s.post(t, "/convert/turtle/upload", "application/json", strings.NewReader(petstore), nil)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		require.Equal(t, "Bearer", resp.Header.Get("WWW-Authenticate"))
		require.Equal(t, "authentication_error", errorCode(t, resp))
	})

	t.Run("no uploader", func(t *testing.T) {
		s := newServer(t, server.Config{})
		resp := s.post(t, "/convert/turtle/upload", "application/json", strings.NewReader(petstore), bearer("secret"))
		require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		require.Equal(t, "upload_unavailable", errorCode(t, resp))
	})

	t.Run("cms error", func(t *testing.T) {
		s := newServer(t, server.Config{}, server.WithUploader(upload.New(failing.URL)))
		resp := s.post(t, "/convert/rdfxml/upload", "application/json", strings.NewReader(petstore), bearer("secret"))
		require.Equal(t, http.StatusBadGateway, resp.StatusCode)
		require.Equal(t, "upload_failed", errorCode(t, resp))
	})
}

func docx(t *testing.T, paragraphs ...string) []byte {
	t.Helper()
	var doc strings.Builder
	doc.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)
	for _, p := range paragraphs {
		doc.WriteString(`<w:p><w:r><w:t>` + p + `</w:t></w:r></w:p>`)
	}
	doc.WriteString(`</w:body></w:document>`)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = io.WriteString(f, doc.String())
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestExtract(t *testing.T) {
	s := newServer(t, server.Config{})

	contentType, body := multipartBody(t, "file", "requirements.docx", docx(t, "Pets API", "List every pet"))
	resp := s.post(t, "/extract", contentType, body, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got struct {
		Filename string `json:"filename"`
		Text     string `json:"text"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.Equal(t, "requirements.docx", got.Filename)
	require.Equal(t, "Pets API\nList every pet", got.Text)
}

func TestExtractBrokenPDF(t *testing.T) {
	s := newServer(t, server.Config{})

	var pdf bytes.Buffer
	pdf.WriteString("%PDF-1.4\n")
	obj := pdf.Len()
	pdf.WriteString("this line is not an object definition although the xref says so\n")
	xref := pdf.Len()
	fmt.Fprintf(&pdf, "xref\n0 2\n0000000000 65535 f \n%010d 00000 n \n", obj)
	pdf.WriteString("trailer\n<< /Size 2 /Root 1 0 R >>\n")
	fmt.Fprintf(&pdf, "startxref\n%d\n%%%%EOF\n", xref)

	contentType, body := multipartBody(t, "file", "broken.pdf", pdf.Bytes())
	resp := s.post(t, "/extract", contentType, body, nil)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	require.Equal(t, "extraction_failed", errorCode(t, resp))
}

func TestExtractUnsupported(t *testing.T) {
	s := newServer(t, server.Config{})

	contentType, body := multipartBody(t, "file", "diagram.png", []byte{0x89, 'P', 'N', 'G'})
	resp := s.post(t, "/extract", contentType, body, nil)
	require.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)
	require.Equal(t, "unsupported_file", errorCode(t, resp))
}

func TestMetrics(t *testing.T) {
	s := newServer(t, server.Config{})

	resp := s.post(t, "/convert/turtle", "application/json", strings.NewReader(petstore), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = s.post(t, "/convert/turtle", "application/json", strings.NewReader(`{"openapi": "3.0.0", "paths": {}}`), nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	metrics, err := http.Get(s.URL + "/metrics")
	require.NoError(t, err)
	defer metrics.Body.Close()
	require.Equal(t, http.StatusOK, metrics.StatusCode)

	body := readBody(t, metrics)
	require.Contains(t, body, `ontogen_convert_requests_total{format="turtle",status="ok"} 1`)
	require.Contains(t, body, `ontogen_convert_requests_total{format="turtle",status="invalid"} 1`)
	require.Contains(t, body, `ontogen_convert_duration_seconds_count{format="turtle"} 2`)
}

func TestOpenAPI(t *testing.T) {
	require.Contains(t, string(server.OpenAPI()), "/convert/{format}/upload:")
}
