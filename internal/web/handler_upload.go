package web

import (
	"errors"
	"io"
	"net/http"

	"github.com/vbonduro/dreamspace/internal/domain"
	"github.com/vbonduro/dreamspace/internal/filestore"
)

// allowedImageTypes is the set of sniffed MIME types accepted as images.
// http.DetectContentType has no WebP signature, so WebP is checked with isWebP.
var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/bmp":  true,
}

// isWebP reports whether data is a WebP image (RIFF container with "WEBP" at
// offset 8).
func isWebP(data []byte) bool {
	return len(data) >= 12 &&
		string(data[0:4]) == "RIFF" &&
		string(data[8:12]) == "WEBP"
}

// allowedImageMIME returns the detected MIME type and true if the data is an
// accepted image format, or ("", false) otherwise.
func allowedImageMIME(data []byte) (string, bool) {
	if isWebP(data) {
		return "image/webp", true
	}
	mime := http.DetectContentType(data)
	if allowedImageTypes[mime] {
		return mime, true
	}
	return "", false
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadSize)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, r, domain.Invalid("upload exceeds %d bytes", tooLarge.Limit))
			return
		}
		s.writeError(w, r, domain.Invalid("failed to parse form"))
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			s.logger.Warn("failed to remove multipart temp files", "error", err)
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, r, domain.Invalid("file is required"))
		return
	}
	defer closeWithLog(file, "upload file", s.logger)
	if header.Filename == "" {
		s.writeError(w, r, domain.Invalid("file is required"))
		return
	}

	result, err := s.uploads.Upload(r.Context(), header.Filename, file)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, map[string]any{
		"success":        true,
		"image_ref":      result.ImageRef,
		"analysis":       result.Analysis,
		"analysis_error": result.AnalysisError,
	})
}

type analyzeRequest struct {
	ImageRef string `json:"image_ref"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := decodeJSON(w, r, maxJSONBody, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	analysis, err := s.uploads.Analyze(r.Context(), req.ImageRef)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, map[string]any{
		"success":  true,
		"analysis": analysis,
	})
}

func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if filestore.SanitizeFilename(name) != name {
		s.writeError(w, r, domain.Invalid("invalid file name"))
		return
	}

	reader, contentType, err := s.files.Open(r.Context(), name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer closeWithLog(reader, "file reader", s.logger)

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "private, max-age=86400")
	if _, err := io.Copy(w, reader); err != nil {
		s.logger.Error("write file failed", "name", name, "error", err)
	}
}
