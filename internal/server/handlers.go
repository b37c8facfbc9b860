package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/schema"
	"github.com/kolah/ontogen/internal/builder"
	"github.com/kolah/ontogen/internal/convert"
	"github.com/kolah/ontogen/internal/extract"
	"github.com/kolah/ontogen/internal/loader"
	"github.com/kolah/ontogen/middleware"
)

const (
	documentField   = "openapi_file"
	extractField    = "file"
	defaultBaseName = "ontology"
	// multipartMemory is kept in memory before parts spill to disk.
	multipartMemory = 1 << 20
)

const (
	// ConversionIDHeader carries the id the conversion was logged under.
	ConversionIDHeader = "X-Conversion-ID"
	// ConversionWarningsHeader carries the number of conversion warnings.
	ConversionWarningsHeader = "X-Conversion-Warnings"
)

var (
	validate      = validator.New()
	schemaDecoder = schema.NewDecoder()
)

func init() {
	schemaDecoder.IgnoreUnknownKeys(true)
}

type convertParams struct {
	BaseURI  string `schema:"base_uri" validate:"omitempty,url"`
	MaxDepth int    `schema:"max_depth" validate:"omitempty,gte=1"`
	Dedup    string `schema:"dedup" validate:"omitempty,oneof=ref-depth ref"`
}

type assetResponse struct {
	ID           string `json:"id"`
	URL          string `json:"url"`
	Format       string `json:"format"`
	ConversionID string `json:"conversion_id"`
	Warnings     int    `json:"warnings"`
}

type extractResponse struct {
	Filename string `json:"filename"`
	Text     string `json:"text"`
}

// conversion is the rendered output of one request.
type conversion struct {
	id       string
	filename string
	output   convert.Output
	warnings int
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "Endpoint is working fine")
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	conv, ok := s.runConversion(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", conv.output.MediaType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": conv.filename}))
	_, _ = io.WriteString(w, conv.output.Content)
}

func (s *Server) handleConvertUpload(w http.ResponseWriter, r *http.Request) {
	if s.uploader == nil {
		writeError(w, http.StatusServiceUnavailable, "upload_unavailable", "no upload endpoint is configured")
		return
	}

	conv, ok := s.runConversion(w, r)
	if !ok {
		return
	}

	token := middleware.BearerToken(r.Context())
	asset, err := s.uploader.Upload(r.Context(), strings.NewReader(conv.output.Content), conv.filename, conv.output.MediaType, token)
	if err != nil {
		s.metrics.recordUpload("error")
		s.logger.Error("upload failed", "conversion_id", conv.id, "error", err)
		writeError(w, http.StatusBadGateway, "upload_failed", err.Error())
		return
	}
	s.metrics.recordUpload("ok")

	writeJSON(w, http.StatusOK, assetResponse{
		ID:           asset.ID,
		URL:          asset.URL,
		Format:       conv.output.Format,
		ConversionID: conv.id,
		Warnings:     conv.warnings,
	})
}

// runConversion runs the request document through the converter. On failure the
// error response is already written.
func (s *Server) runConversion(w http.ResponseWriter, r *http.Request) (*conversion, bool) {
	format := chi.URLParam(r, "format")
	id := uuid.NewString()
	w.Header().Set(ConversionIDHeader, id)
	logger := s.logger.With("conversion_id", id, "format", format)

	var params convertParams
	if err := schemaDecoder.Decode(&params, r.URL.Query()); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_parameters", err.Error())
		return nil, false
	}
	if err := validate.Struct(params); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_parameters", describeParams(err))
		return nil, false
	}

	data, name, err := readDocument(r)
	if err != nil {
		writeBodyError(w, err)
		return nil, false
	}

	in := convert.Input{
		Data:     data,
		BaseURI:  firstNonEmpty(params.BaseURI, s.cfg.BaseURI),
		Formats:  []string{format},
		MaxDepth: s.cfg.MaxDepth,
		Dedup:    s.cfg.Dedup,
		Strict:   s.cfg.Strict,
		Logger:   logger,
	}
	if params.MaxDepth > 0 {
		in.MaxDepth = params.MaxDepth
	}
	if params.Dedup != "" {
		in.Dedup = builder.DedupMode(params.Dedup)
	}

	start := time.Now()
	res, err := s.converter.Convert(r.Context(), in)
	if err != nil {
		var inputErr *loader.InputError
		switch {
		case errors.As(err, &inputErr), errors.Is(err, convert.ErrUnknownFormat):
			s.metrics.recordConversion(format, "invalid", time.Since(start), nil)
			writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
		default:
			s.metrics.recordConversion(format, "error", time.Since(start), nil)
			logger.Error("conversion failed", "error", err)
			writeError(w, http.StatusInternalServerError, "conversion_failed", err.Error())
		}
		return nil, false
	}
	s.metrics.recordConversion(format, "ok", time.Since(start), res.Warnings)

	out, ok := res.Output(format)
	if !ok {
		writeError(w, http.StatusInternalServerError, "conversion_failed", "no output rendered for "+format)
		return nil, false
	}
	logger.Info("converted", "source", name, "warnings", len(res.Warnings))
	w.Header().Set(ConversionWarningsHeader, strconv.Itoa(len(res.Warnings)))

	return &conversion{
		id:       id,
		filename: outputName(name, out.Extension),
		output:   out,
		warnings: len(res.Warnings),
	}, true
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	file, header, err := formFile(r, extractField)
	if err != nil {
		writeBodyError(w, err)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeBodyError(w, err)
		return
	}

	text, err := extract.Read(header.Filename, bytes.NewReader(data), int64(len(data)))
	switch {
	case errors.Is(err, extract.ErrUnsupported):
		s.metrics.recordExtraction("unsupported")
		writeError(w, http.StatusUnsupportedMediaType, "unsupported_file",
			fmt.Sprintf("%v (accepted: %s)", err, strings.Join(extract.Extensions(), ", ")))
		return
	case err != nil:
		s.metrics.recordExtraction("error")
		writeError(w, http.StatusUnprocessableEntity, "extraction_failed", err.Error())
		return
	}
	s.metrics.recordExtraction("ok")

	writeJSON(w, http.StatusOK, extractResponse{Filename: header.Filename, Text: text})
}

var errNotDocument = errors.New("input must be a .json, .yaml or .yml file")

// readDocument returns the uploaded document and its file name. A raw body
// has no name.
func readDocument(r *http.Request) ([]byte, string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		data, err := io.ReadAll(r.Body)
		return data, "", err
	}

	file, header, err := formFile(r, documentField)
	if err != nil {
		return nil, "", err
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(header.Filename)) {
	case ".json", ".yaml", ".yml":
	default:
		return nil, "", errNotDocument
	}
	data, err := io.ReadAll(file)
	return data, header.Filename, err
}

func formFile(r *http.Request, field string) (multipart.File, *multipart.FileHeader, error) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return nil, nil, err
	}
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, nil, fmt.Errorf("form field %s: %w", field, err)
	}
	return file, header, nil
}

// outputName derives the attachment name from the uploaded file name.
func outputName(source, ext string) string {
	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	if source == "" || base == "" || base == "." {
		base = defaultBaseName
	}
	return base + ext
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func describeParams(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return strings.Join(msgs, "; ")
}

func writeBodyError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large", err.Error())
		return
	}
	writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{
		"error":   code,
		"message": message,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
