package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nao1215/deepvision/internal/database"
	"github.com/nao1215/deepvision/internal/imaging"
	"github.com/nao1215/deepvision/internal/model"
	"github.com/nao1215/deepvision/internal/report"
)

// uploadField is the multipart field carrying the image.
const uploadField = "file"

// defaultUploadName is used when the client sends no filename.
const defaultUploadName = "upload"

var (
	// errMissingFile is returned when a multipart request has no file field.
	errMissingFile = errors.New(`missing multipart field "file"`)

	// errHistoryDisabled is returned by history endpoints without a database.
	errHistoryDisabled = errors.New("analysis history is disabled")
)

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > s.maxUpload {
		s.writeError(w, http.StatusRequestEntityTooLarge, fmt.Errorf("upload exceeds %d bytes", s.maxUpload))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)

	filename, data, err := readUpload(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			s.writeError(w, http.StatusRequestEntityTooLarge, fmt.Errorf("upload exceeds %d bytes", s.maxUpload))
		case errors.Is(err, errMissingFile):
			s.writeError(w, http.StatusBadRequest, err)
		default:
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("failed to read upload: %w", err))
		}
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	doc, err := s.analyzer.Analyze(ctx, filename, data)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			s.logger.Error("analysis failed", "file", filename, "error", err)
		}
		s.writeError(w, status, err)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := report.NewJSONWriter(w).Write(doc); err != nil {
		s.logger.Warn("failed to write report", "run_id", doc.ID, "error", err)
	}
}

// statusFor maps a pipeline error onto an HTTP status.
func statusFor(err error) int {
	var decodeErr *imaging.DecodeError
	switch {
	case errors.As(err, &decodeErr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// readUpload returns the image of a multipart form or, for any other
// content type, the raw body named by the filename query parameter.
func readUpload(r *http.Request) (string, []byte, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")) //nolint:errcheck // empty on failure
	if mediaType != "multipart/form-data" {
		data, err := io.ReadAll(r.Body)
		if err != nil {
			return "", nil, err
		}
		return cleanName(r.URL.Query().Get("filename")), data, nil
	}

	mr, err := r.MultipartReader()
	if err != nil {
		return "", nil, err
	}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return "", nil, errMissingFile
		}
		if err != nil {
			return "", nil, err
		}
		if part.FormName() != uploadField {
			_ = part.Close() //nolint:errcheck // skipping the part
			continue
		}
		data, err := io.ReadAll(part)
		_ = part.Close() //nolint:errcheck // fully read
		if err != nil {
			return "", nil, err
		}
		return cleanName(part.FileName()), data, nil
	}
}

// cleanName reduces a client-supplied name to its base name.
func cleanName(name string) string {
	name = filepath.Base(strings.ReplaceAll(strings.TrimSpace(name), `\`, "/"))
	if name == "." || name == "/" || name == "" {
		return defaultUploadName
	}
	return name
}

func (s *Server) handleListAnalyses(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.writeError(w, http.StatusNotFound, errHistoryDisabled)
		return
	}

	q := r.URL.Query()
	opts := database.ListOptions{Verdict: q.Get("verdict")}
	var err error
	if opts.Limit, err = intParam(q.Get("limit")); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit: %w", err))
		return
	}
	if opts.Offset, err = intParam(q.Get("offset")); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid offset: %w", err))
		return
	}
	if opts.Verdict != "" {
		if _, ok := model.ParseVerdict(opts.Verdict); !ok {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid verdict %q", opts.Verdict))
			return
		}
	}

	rows, err := s.history.List(r.Context(), opts)
	if err != nil {
		s.logger.Error("failed to list analyses", "error", err)
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if rows == nil {
		rows = []database.AnalysisSummary{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"analyses": rows})
}

func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.writeError(w, http.StatusNotFound, errHistoryDisabled)
		return
	}

	doc, err := s.history.Get(r.Context(), r.PathValue("id"))
	switch {
	case errors.Is(err, database.ErrNotFound):
		s.writeError(w, http.StatusNotFound, err)
		return
	case err != nil:
		s.logger.Error("failed to load analysis", "id", r.PathValue("id"), "error", err)
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = report.NewJSONWriter(w).Write(doc) //nolint:errcheck // client went away
}

func (s *Server) handleTools(w http.ResponseWriter, r *http.Request) {
	if s.tools == nil {
		s.writeJSON(w, http.StatusOK, map[string]any{"tools": []any{}})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"tools": s.tools.Availability(r.Context())})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	body := map[string]string{"status": "ok"}
	if s.version != "" {
		body["version"] = s.version
	}
	s.writeJSON(w, http.StatusOK, body)
}

func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("must be non-negative, got %d", n)
	}
	return n, nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("failed to write response", "error", err)
	}
}

// writeError responds with the error document, the only response shape
// without the full report.
func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if _, werr := report.NewJSONWriter(w).WriteError(report.NewErrorDocument(err)); werr != nil {
		s.logger.Debug("failed to write error response", "error", werr)
	}
}
