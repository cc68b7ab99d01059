package upload

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"dapp/internal/domain"
)

// FormField is the multipart field carrying the image.
const FormField = "image"

type response struct {
	URL   string `json:"url,omitempty"`
	Error string `json:"error,omitempty"`
}

// NotifyFunc pushes a toast to the browser that sent r.
type NotifyFunc func(r *http.Request, t domain.Toast)

// Handler accepts a multipart image upload and responds with its URL. The
// uploading page stays open, so the outcome is also pushed to it through
// notify when one is given.
func Handler(store domain.ImageStore, notify NotifyFunc, logger *slog.Logger) http.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "upload")
	if notify == nil {
		notify = func(*http.Request, domain.Toast) {}
	}
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, DefaultMaxSize+1<<20)
		file, header, err := r.FormFile(FormField)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, response{Error: "missing image"})
			return
		}
		defer func() { _ = file.Close() }()

		url, err := store.SaveImage(r.Context(), header.Filename, header.Header.Get("Content-Type"), file)
		switch {
		case errors.Is(err, ErrUnsupportedType):
			notify(r, domain.Toast{Level: domain.ToastWarning, Message: "Please choose a PNG, JPEG, GIF or WebP image."})
			writeJSON(w, http.StatusUnsupportedMediaType, response{Error: err.Error()})
		case errors.Is(err, ErrTooLarge):
			notify(r, domain.Toast{Level: domain.ToastWarning, Message: "That image is too large."})
			writeJSON(w, http.StatusRequestEntityTooLarge, response{Error: err.Error()})
		case err != nil:
			logger.Error("save image", "err", err)
			notify(r, domain.Toast{Level: domain.ToastError, Message: "Sadly we were unable to upload your image."})
			writeJSON(w, http.StatusInternalServerError, response{Error: "upload failed"})
		default:
			logger.Info("image uploaded", "url", url)
			notify(r, domain.Toast{Level: domain.ToastSuccess, Message: "Your image has been uploaded"})
			writeJSON(w, http.StatusCreated, response{URL: url})
		}
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
