package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/alecthomas/errors"

	"github.com/spotify/android-store-service/backend/publisher"
	"github.com/spotify/android-store-service/backend/staging"
	"github.com/spotify/android-store-service/internal/log"
	"github.com/spotify/android-store-service/internal/model"
)

const internalErrorMessage = "Internal server error"

// ValidationError is a malformed request. It is never sent to the store.
type ValidationError struct {
	Message string
}

func (v *ValidationError) Error() string { return v.Message }

func validationErrorf(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

type errorMessage struct {
	Message string `json:"message"`
}

type errorEnvelope struct {
	Error any `json:"error"`
}

// writeError maps err to a status and error envelope.
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	logger := log.FromContext(ctx)
	var (
		validation *ValidationError
		checksum   *staging.ChecksumError
		link       *staging.LinkError
		remote     *publisher.RemoteError
	)
	switch {
	case errors.As(err, &validation):
		logger.Warnf("Bad request: %s", validation.Message)
		writeJSON(w, http.StatusBadRequest, errorEnvelope{Error: errorMessage{Message: validation.Message}})

	case errors.Is(err, model.ErrInvalidPackageName):
		logger.Warnf("Bad request: %s", err)
		writeJSON(w, http.StatusBadRequest, errorEnvelope{Error: errorMessage{Message: model.ErrInvalidPackageName.Error()}})

	case errors.As(err, &checksum), errors.As(err, &link):
		logger.Warnf("Bad request: %s", err)
		writeJSON(w, http.StatusBadRequest, errorEnvelope{Error: errorMessage{Message: err.Error()}})

	case errors.As(err, &remote):
		logger.Errorf(err, "Play Developer API call failed")
		status, body := remoteErrorResponse(remote)
		writeJSON(w, status, body)

	default:
		logger.Errorf(err, "Request failed")
		writeJSON(w, http.StatusInternalServerError, errorEnvelope{Error: errorMessage{Message: internalErrorMessage}})
	}
}

// remoteErrorResponse mirrors the store's status. Its error document is passed
// through when it can be parsed, otherwise the raw text becomes the message.
func remoteErrorResponse(remote *publisher.RemoteError) (int, any) {
	status := remote.Status
	if status < 400 || status > 599 {
		status = http.StatusInternalServerError
	}
	var doc struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal([]byte(remote.Body), &doc); err == nil && len(doc.Error) > 0 && doc.Error[0] == '{' {
		return status, errorEnvelope{Error: doc.Error}
	}
	message := remote.Body
	if message == "" {
		message = remote.Message
	}
	return status, errorEnvelope{Error: errorMessage{Message: message}}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	_ = enc.Encode(v)
}
