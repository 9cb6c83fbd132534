package metrics

import (
	"fmt"

	"github.com/pithecene-io/beacon/types"
)

// StartSession begins a session for userID and logs a User message.
//
// The session ID always advances. The log-user ID is only regenerated when
// userID differs from the previous session's user, so repeated sign-ins
// with the same user keep their log-user ID.
func (l *Logger) StartSession(userID string) {
	if !l.onLoop("startSessionAndLogUser") {
		return
	}
	l.monitor.ExecuteFunc("startSessionAndLogUser", func() {
		l.startSession(userID)
		l.logUser(UserEvent{})
	})
}

// StartSessionSignedOut begins a session with no user and logs a User
// message.
func (l *Logger) StartSessionSignedOut() {
	if !l.onLoop("startSessionAndLogSignedOutUser") {
		return
	}
	l.monitor.ExecuteFunc("startSessionAndLogSignedOutUser", func() {
		l.startSession("")
		l.logUser(UserEvent{})
	})
}

func (l *Logger) startSession(userID string) {
	var logUserID types.ID
	if userID != l.userID {
		logUserID = l.logUserID.Renew()
	} else {
		logUserID = l.logUserID.Value()
	}
	session := l.sessionID.Advance()

	l.userID = userID
	if err := l.store.SetUserID(userID); err != nil {
		l.reportError(fmt.Errorf("%w: user_id: %w", ErrStore, err))
	}
	if err := l.store.SetLogUserID(logUserID.Value); err != nil {
		l.reportError(fmt.Errorf("%w: log_user_id: %w", ErrStore, err))
	}

	next := l.batchNumber + 1
	l.history.Record(IDLogUser, logUserID, next)
	l.history.Record(IDSession, session, next)

	l.logger.Debug("session started", map[string]any{
		"signed_in":   userID != "",
		"log_user_id": logUserID.Value,
		"session_id":  session.Value,
	})
}

// UserID returns the current user ID, empty when signed out.
func (l *Logger) UserID() string { return l.userID }

// LogUserID returns the current log-user ID without committing it.
func (l *Logger) LogUserID() types.ID { return l.logUserID.CurrentOrPending() }

// SessionID returns the committed session ID, null before a session starts.
func (l *Logger) SessionID() types.ID { return l.sessionID.Current() }

// ViewID returns the committed view ID, null before any view is tracked.
func (l *Logger) ViewID() types.ID { return l.viewID.Current() }

// AutoViewID returns the committed auto-view ID.
func (l *Logger) AutoViewID() types.ID { return l.autoViewID.Current() }

// SetSessionID overrides the session ID with a host-supplied value.
func (l *Logger) SetSessionID(v string) {
	if !l.onLoop("setSessionID") {
		return
	}
	l.monitor.ExecuteFunc("setSessionID", func() {
		l.sessionID.Set(v)
		l.history.Record(IDSession, l.sessionID.Current(), l.batchNumber+1)
	})
}

// SetViewID overrides the view ID with a host-supplied value.
func (l *Logger) SetViewID(v string) {
	if !l.onLoop("setViewID") {
		return
	}
	l.monitor.ExecuteFunc("setViewID", func() {
		l.viewID.Set(v)
		l.history.Record(IDView, l.viewID.Current(), l.batchNumber+1)
	})
}

// SetAutoViewID overrides the auto-view ID with a host-supplied value.
func (l *Logger) SetAutoViewID(v string) {
	if !l.onLoop("setAutoViewID") {
		return
	}
	l.monitor.ExecuteFunc("setAutoViewID", func() {
		l.autoViewID.Set(v)
		l.history.Record(IDAutoView, l.autoViewID.Current(), l.batchNumber+1)
	})
}
