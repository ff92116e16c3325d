package publish

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/curately/postops/resilience"
)

// ErrNoContainerID is returned when a create response carries neither a
// container id nor an error object.
var ErrNoContainerID = errors.New("publish: response contained no container id")

// ErrNoMediaID is returned when a publish response carries no media id.
var ErrNoMediaID = errors.New("publish: response contained no media id")

// APIError is a provider-reported domain error.
type APIError struct {
	Message string
	Code    int
	Subcode int
}

func (e *APIError) Error() string {
	if e.Subcode != 0 {
		return fmt.Sprintf("publish: api error %d (subcode %d): %s", e.Code, e.Subcode, e.Message)
	}
	return fmt.Sprintf("publish: api error %d: %s", e.Code, e.Message)
}

// apiEnvelope is the provider's response shape: either an id or an error
// object.
type apiEnvelope struct {
	ID         string `json:"id"`
	StatusCode string `json:"status_code"`
	Error      *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
		Subcode int    `json:"error_subcode"`
	} `json:"error"`
}

func (e *apiEnvelope) apiError() *APIError {
	if e.Error == nil {
		return nil
	}
	return &APIError{
		Message: e.Error.Message,
		Code:    e.Error.Code,
		Subcode: e.Error.Subcode,
	}
}

// translateError converts a failed call into the richest error available:
// when the HTTP error body holds a provider error object, that object wins.
func translateError(err error) error {
	var se *resilience.StatusError
	if errors.As(err, &se) && len(se.Body) > 0 {
		var env apiEnvelope
		if json.Unmarshal(se.Body, &env) == nil {
			if apiErr := env.apiError(); apiErr != nil {
				return apiErr
			}
		}
	}
	return err
}
