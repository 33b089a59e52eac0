package publisher

import (
	"fmt"

	"github.com/alecthomas/errors"
	"google.golang.org/api/googleapi"
)

// duplicateVersionMessage is the store's wording when an uploaded binary reuses a version code.
const duplicateVersionMessage = "APK specifies a version code that has already been used."

// ConfigurationError is returned when the selected credentials cannot be used.
type ConfigurationError struct {
	Secret string
	Err    error
}

func (c *ConfigurationError) Error() string {
	return fmt.Sprintf("credentials %q: %s", c.Secret, c.Err)
}

func (c *ConfigurationError) Unwrap() error { return c.Err }

// RemoteError is a failure reported by the Play Developer API.
type RemoteError struct {
	// Status is the HTTP status of the remote response.
	Status  int
	Message string
	// Body is the raw response body, usually a JSON error document.
	Body string
}

func (r *RemoteError) Error() string {
	return fmt.Sprintf("play developer api: %d: %s", r.Status, r.Message)
}

// IsDuplicateVersion reports whether err is the store rejecting a binary whose
// version code has already been used.
func IsDuplicateVersion(err error) bool {
	var remote *RemoteError
	if !errors.As(err, &remote) {
		return false
	}
	return remote.Status == 403 && remote.Message == duplicateVersionMessage
}

func remoteError(err error) error {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return err
	}
	return &RemoteError{Status: gerr.Code, Message: gerr.Message, Body: gerr.Body}
}
