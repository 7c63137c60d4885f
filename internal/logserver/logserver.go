// Package logserver serves a growing local logfile as a flat byte stream
// with HEAD and single-range GET support.
//
// The file is reopened on every request so appends are visible at once.
// Range bounds are validated against the size at request time; anything
// unsatisfiable, malformed, or asking for more than one range is
// answered with 416.
package logserver

import (
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/webzook/wintail/internal/logging"
)

// Handler serves one file.
type Handler struct {
	path   string
	logger *slog.Logger
}

// New creates a Handler for path. The file does not need to exist yet.
func New(path string, logger *slog.Logger) *Handler {
	return &Handler{path: path, logger: logging.NewComponentLogger(logger, "logserver")}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	f, err := os.Open(h.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			http.NotFound(w, r)
			return
		}
		h.logger.Error("open logfile", slog.String("path", h.path), logging.Err(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		h.logger.Error("stat logfile", slog.String("path", h.path), logging.Err(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if rng := r.Header.Get("Range"); rng != "" && strings.Contains(rng, ",") {
		w.Header().Set("Content-Range", "bytes */"+strconv.FormatInt(info.Size(), 10))
		http.Error(w, "multiple ranges are not supported", http.StatusRequestedRangeNotSatisfiable)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	// ServeContent validates the range, answers HEAD with Content-Length,
	// and replies 416 to bounds outside [0, size).
	http.ServeContent(w, r, "", info.ModTime(), f)
}
