// Package validate checks outgoing messages for joinability.
//
// Validation is advisory: callers report the returned errors and still send
// the message. It exists to surface integration bugs in host applications.
package validate

import (
	"errors"
	"fmt"

	"github.com/pithecene-io/beacon/types"
)

// Kind classifies a validation failure.
type Kind string

// Validation kinds.
const (
	KindMissingJoinableFieldsInImpression Kind = "missing_joinable_fields_in_impression"
	KindMissingJoinableFieldsInAction     Kind = "missing_joinable_fields_in_action"
	KindMissingLogUserIDInUser            Kind = "missing_log_user_id_in_user"
	KindMissingLogUserIDInLogRequest      Kind = "missing_log_user_id_in_log_request"
)

// ErrValidation is the sentinel wrapped by every *Error.
var ErrValidation = errors.New("validation error")

// Error describes one failed rule.
type Error struct {
	Kind    Kind
	Message types.MessageKind // empty for request-level errors
	Fields  []string          // the fields of which at least one was required
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: need one of %v", e.Kind, e.Fields)
	}
	return fmt.Sprintf("%s: %s needs one of %v", e.Kind, e.Message, e.Fields)
}

// Unwrap returns ErrValidation.
func (e *Error) Unwrap() error {
	return ErrValidation
}

// Message validates one event. Message kinds without rules always pass.
func Message(msg types.Message) []*Error {
	switch m := msg.(type) {
	case *types.Impression:
		if m.SourceType == types.ImpressionSourceDelivery &&
			types.IsBlankString(m.InsertionID) && types.IsBlankString(m.ContentID) {
			return []*Error{{
				Kind:    KindMissingJoinableFieldsInImpression,
				Message: types.KindImpression,
				Fields:  []string{"insertion_id", "content_id"},
			}}
		}
	case *types.Action:
		if m.ActionType.IsContentless() {
			return nil
		}
		if types.IsBlankString(m.ImpressionID) && types.IsBlankString(m.InsertionID) &&
			types.IsBlankString(m.ContentID) {
			return []*Error{{
				Kind:    KindMissingJoinableFieldsInAction,
				Message: types.KindAction,
				Fields:  []string{"impression_id", "insertion_id", "content_id"},
			}}
		}
	case *types.User:
		if types.IsBlankString(m.LogUserID) {
			return []*Error{{
				Kind:    KindMissingLogUserIDInUser,
				Message: types.KindUser,
				Fields:  []string{"log_user_id"},
			}}
		}
	}
	return nil
}

// Request validates the request envelope. Individual messages are not
// re-checked; they were validated when logged.
func Request(req *types.LogRequest) []*Error {
	if req == nil || types.IsBlankString(req.UserInfo.LogUserID) {
		return []*Error{{
			Kind:   KindMissingLogUserIDInLogRequest,
			Fields: []string{"user_info.log_user_id"},
		}}
	}
	return nil
}

// Kinds returns the kinds of errs, in order.
func Kinds(errs []*Error) []Kind {
	out := make([]Kind, len(errs))
	for i, e := range errs {
		out[i] = e.Kind
	}
	return out
}
