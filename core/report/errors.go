package report

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrNoData     = errors.New("no data available")
	ErrInProgress = errors.New("a report is already being generated")
	ErrNotFound   = errors.New("report not found")
)

// ComputationError is the single aggregated failure of a pipeline run.
type ComputationError struct {
	Stage State
	Err   error
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("computation failed at %s: %v", e.Stage, e.Err)
}

func (e *ComputationError) Unwrap() error { return e.Err }

// DeliveryError reports a failure of an export/sharing collaborator (email, cloud storage).
type DeliveryError struct {
	Channel string
	Err     error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery failed (%s): %v", e.Channel, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// SourceError reports records that could neither be fetched nor found in the cache.
type SourceError struct {
	Err error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("records unavailable: %v", e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// StatusMessage renders err as the status shown to users.
func StatusMessage(err error) string {
	var (
		deliveryErr *DeliveryError
		sourceErr   *SourceError
	)
	switch {
	case err == nil:
		return "report generated successfully"
	case errors.Is(err, ErrNoData):
		return "no data available"
	case errors.Is(err, ErrInProgress):
		return ErrInProgress.Error()
	case errors.As(err, &deliveryErr):
		return "delivery failed"
	case errors.As(err, &sourceErr):
		return "records unavailable"
	default:
		return "computation failed"
	}
}
