package apiserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/trititantech/server/pkg/backend"
	"github.com/trititantech/server/pkg/connection"
	"github.com/trititantech/server/pkg/download"
	"github.com/trititantech/server/pkg/model"
	"github.com/trititantech/server/pkg/version"
)

const maxRequestBodyBytes = 1 << 20

type handler struct {
	backend         backend.Backend
	storeConfigured bool
	endpoints       []string
	now             func() time.Time
}

func newHandler(b backend.Backend, storeConfigured bool) *handler {
	return &handler{
		backend:         b,
		storeConfigured: storeConfigured,
		now:             time.Now,
	}
}

// handleError maps the backend error taxonomy onto a status code.
func handleError(w http.ResponseWriter, err error, message string) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, backend.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, backend.ErrDuplicateEmail):
		status = http.StatusBadRequest
		message = "This email is already registered"
	case errors.Is(err, backend.ErrStorageUnavailable):
		message = "Database connection failed"
	case errors.Is(err, backend.ErrUpstreamFetch):
		status = http.StatusBadGateway
	}

	if status >= 500 {
		logrus.WithError(err).Error(message)
	}
	writeError(w, status, message, err)
}

func (h *handler) root(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, model.RootResponse{
		Message:   "Lead capture API is running",
		Version:   version.Get().Tag,
		Endpoints: h.endpoints,
	})
}

func (h *handler) createRecord(w http.ResponseWriter, r *http.Request) {
	var input model.RecordRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
	if err := decoder.Decode(&input); err != nil && !errors.Is(err, io.EOF) {
		handleError(w, &backend.ValidationError{Reason: "invalid JSON body: " + err.Error()}, "Invalid request body")
		return
	}

	id, err := h.backend.CreateRecord(r.Context(), input, clientInfoFromContext(r.Context()))
	if err != nil {
		message := "Registration failed. Please try again."
		if errors.Is(err, backend.ErrValidation) {
			message = "Name, email, and phone are required"
		}
		handleError(w, err, message)
		return
	}

	writeSuccess(w, http.StatusCreated, model.CreateRecordResponse{
		Success: true,
		Message: "Registration completed successfully!",
		UserID:  id,
	})
}

func (h *handler) listRecords(w http.ResponseWriter, r *http.Request) {
	records, err := h.backend.ListRecords(r.Context())
	if err != nil {
		handleError(w, err, "Internal server error")
		return
	}

	writeSuccess(w, http.StatusOK, model.ListRecordsResponse{
		Success: true,
		Count:   len(records),
		Users:   records,
	})
}

// health reports the last known connection state. It never dials.
func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	state := h.backend.ConnectionState()

	uri := "Not Set"
	if h.storeConfigured {
		uri = "Set"
	}

	resp := model.HealthResponse{
		Status:      "OK",
		Message:     "Server is running",
		MongoDB:     state.String(),
		MongoURI:    uri,
		IsConnected: state == connection.Connected,
		Timestamp:   h.now().UTC(),
	}
	if err := h.backend.LastConnectionError(); err != nil && state == connection.Error {
		resp.LastError = err.Error()
	}

	writeSuccess(w, http.StatusOK, resp)
}

func (h *handler) testDB(w http.ResponseWriter, r *http.Request) {
	count, err := h.backend.CountRecords(r.Context())
	if err != nil {
		logrus.WithError(err).Error("database smoke test failed")
		writeJSON(w, http.StatusInternalServerError, model.ErrorResponse{
			Success:         false,
			Message:         "Database connection test failed",
			Error:           err.Error(),
			ConnectionState: h.backend.ConnectionState().String(),
		})
		return
	}

	writeSuccess(w, http.StatusOK, model.TestDBResponse{
		Success:         true,
		Message:         "Database connection working",
		UserCount:       count,
		ConnectionState: h.backend.ConnectionState().String(),
	})
}

func (h *handler) downloadFile(w http.ResponseWriter, r *http.Request) {
	d, err := h.backend.Download(r.Context(), r.URL.Query().Get("movie"))
	if err != nil {
		handleError(w, err, "Download failed")
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", download.ContentDisposition(d.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(d.Body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(d.Body)
}
