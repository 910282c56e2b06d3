package service

import (
	"errors"

	"github.com/noah-isme/timetable-api/internal/timetable"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

// infeasibleDetails is the diagnostic payload of an INFEASIBLE response.
type infeasibleDetails struct {
	Gap     *timetable.Gap      `json:"gap,omitempty"`
	Partial []timetable.Session `json:"partial,omitempty"`
}

// mapEngineError converts engine failures into HTTP-aware application errors,
// keeping the offending entities in Details.
func mapEngineError(err error) error {
	if err == nil {
		return nil
	}
	var engineErr *timetable.Error
	if !errors.As(err, &engineErr) {
		return err
	}

	var template *appErrors.Error
	var details interface{}
	switch engineErr.Kind {
	case timetable.KindConflict:
		template = appErrors.ErrConflict
		details = engineErr.Conflicts
	case timetable.KindNoContinuationSlot:
		template = appErrors.ErrNoContinuationSlot
		details = map[string]string{"slot": engineErr.Label}
	case timetable.KindDuplicateLabel:
		template = appErrors.ErrDuplicateLabel
		details = map[string]string{"label": engineErr.Label}
	case timetable.KindUnknownReference:
		template = appErrors.ErrUnknownReference
		details = map[string]string{"reference": engineErr.Reference}
	case timetable.KindInfeasible:
		template = appErrors.ErrInfeasible
		details = infeasibleDetails{Gap: engineErr.Gap, Partial: engineErr.Partial}
	case timetable.KindCancelled:
		template = appErrors.ErrServiceUnavailable
		details = infeasibleDetails{Gap: engineErr.Gap, Partial: engineErr.Partial}
	default:
		template = appErrors.ErrValidation
	}

	mapped := appErrors.Wrap(err, template.Code, template.Status, engineErr.Error())
	mapped.Details = details
	return mapped
}

// searchDetails returns the progress carried by an interrupted search, or nil
// when the error has none.
func searchDetails(err error) interface{} {
	var engineErr *timetable.Error
	if !errors.As(err, &engineErr) || (engineErr.Gap == nil && len(engineErr.Partial) == 0) {
		return nil
	}
	return infeasibleDetails{Gap: engineErr.Gap, Partial: engineErr.Partial}
}
