package additionaldata

import (
	"bytes"
	"crewflow/internal/models"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	json "github.com/goccy/go-json"
)

// ErrInvalidDocument is returned when an additional_data document does not
// match the schema of its entity.
var ErrInvalidDocument = errors.New("invalid additional_data")

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// ValidateRequestData rejects unknown keys, wrongly typed values and
// override statuses outside the request status enum.
func ValidateRequestData(doc map[string]any) error {
	var data models.RequestData
	if err := decode(doc, &data, true); err != nil {
		return err
	}
	if err := checkStruct(&data); err != nil {
		return err
	}
	if status, ok := data.OverrideStatus(); ok && !status.Valid() {
		return fmt.Errorf("%w: status_by_admin.status %d is not a request status", ErrInvalidDocument, int(status))
	}
	return nil
}

// ValidateVideoData is ValidateRequestData for video documents.
func ValidateVideoData(doc map[string]any) error {
	var data models.VideoData
	if err := decode(doc, &data, true); err != nil {
		return err
	}
	if err := checkStruct(&data); err != nil {
		return err
	}
	if status, ok := data.OverrideStatus(); ok && !status.Valid() {
		return fmt.Errorf("%w: status_by_admin.status %d is not a video status", ErrInvalidDocument, int(status))
	}
	return nil
}

// DecodeRequestData converts a stored document into its typed view.
// Unknown keys are ignored.
func DecodeRequestData(doc map[string]any) (models.RequestData, error) {
	var data models.RequestData
	err := decode(doc, &data, false)
	return data, err
}

// DecodeVideoData converts a stored document into its typed view.
// Unknown keys are ignored.
func DecodeVideoData(doc map[string]any) (models.VideoData, error) {
	var data models.VideoData
	err := decode(doc, &data, false)
	return data, err
}

func decode(doc map[string]any, into any, strict bool) error {
	if len(doc) == 0 {
		return nil
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	decoder := json.NewDecoder(bytes.NewReader(raw))
	if strict {
		decoder.DisallowUnknownFields()
	}
	if err := decoder.Decode(into); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return nil
}

func checkStruct(data any) error {
	err := getValidator().Struct(data)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	messages := make([]string, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		messages = append(messages, fmt.Sprintf("%s failed on '%s'", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", ErrInvalidDocument, strings.Join(messages, "; "))
}
