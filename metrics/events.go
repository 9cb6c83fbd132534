package metrics

import (
	"fmt"
	"time"

	"github.com/pithecene-io/beacon/types"
)

// Properties may be opaque pre-serialized bytes ([]byte) or any value the
// configured codec can encode.

// UserEvent describes a User message.
type UserEvent struct {
	Properties any
}

// ViewEvent describes a View message. An empty ViewID advances the view ID.
type ViewEvent struct {
	Name       string
	UseCase    types.UseCase
	ViewID     string
	Properties any
}

// AutoViewEvent describes an AutoView message. An empty AutoViewID
// advances the auto-view ID.
type AutoViewEvent struct {
	Name       string
	UseCase    types.UseCase
	AutoViewID string
	Properties any
}

// ImpressionEvent describes an Impression message. Override fields take
// precedence over the tracked ancestor IDs.
type ImpressionEvent struct {
	ContentID    string
	InsertionID  string
	SourceType   types.ImpressionSourceType
	ImpressionID string
	ViewID       string
	AutoViewID   string
	// Time defaults to now.
	Time       time.Time
	Properties any
}

// ActionEvent describes an Action message.
type ActionEvent struct {
	Name         string
	Type         types.ActionType
	ContentID    string
	InsertionID  string
	ImpressionID string
	ElementID    string
	TargetURL    string
	ViewID       string
	AutoViewID   string
	Properties   any
}

// LogUser logs a User message for the current user.
func (l *Logger) LogUser(e UserEvent) {
	if !l.onLoop("logUser") {
		return
	}
	l.monitor.ExecuteFunc("logUser", func() { l.logUser(e) })
}

func (l *Logger) logUser(e UserEvent) {
	logUserID := l.logUserID.Value()
	msg := &types.User{
		Timing:     l.timing(time.Time{}),
		UserID:     l.userID,
		LogUserID:  logUserID.Value,
		Properties: l.properties(e.Properties),
	}
	if l.config.Diagnostics.IncludeAncestorIDProvenance {
		msg.IDProvenances = &types.IDProvenances{
			UserID:    userProvenance(l.userID),
			LogUserID: logUserID.Provenance,
		}
	}
	l.enqueue(msg)
}

// LogView logs a View message.
func (l *Logger) LogView(e ViewEvent) {
	if !l.onLoop("logView") {
		return
	}
	l.monitor.ExecuteFunc("logView", func() {
		if e.ViewID != "" {
			l.viewID.Set(e.ViewID)
		} else {
			l.viewID.Advance()
		}
		l.logView(e.Name, e.UseCase, e.Properties)
	})
}

// logView logs a View with the current view ID.
func (l *Logger) logView(name string, useCase types.UseCase, props any) {
	view := l.viewID.Current()
	session := l.sessionID.Current()
	l.history.Record(IDView, view, l.batchNumber+1)

	msg := &types.View{
		Timing:     l.timing(time.Time{}),
		ViewID:     view.Value,
		SessionID:  valueOf(session),
		Name:       name,
		UseCase:    useCase,
		Properties: l.properties(props),
	}
	if l.config.Diagnostics.IncludeAncestorIDProvenance {
		msg.IDProvenances = &types.IDProvenances{
			SessionID: session.Provenance,
			ViewID:    view.Provenance,
		}
	}
	l.enqueue(msg)
}

// LogAutoView logs an AutoView message.
func (l *Logger) LogAutoView(e AutoViewEvent) {
	if !l.onLoop("logAutoView") {
		return
	}
	l.monitor.ExecuteFunc("logAutoView", func() {
		if e.AutoViewID != "" {
			l.autoViewID.Set(e.AutoViewID)
		} else {
			l.autoViewID.Advance()
		}
		autoView := l.autoViewID.Current()
		session := l.sessionID.Current()
		l.history.Record(IDAutoView, autoView, l.batchNumber+1)

		msg := &types.AutoView{
			Timing:     l.timing(time.Time{}),
			AutoViewID: autoView.Value,
			SessionID:  valueOf(session),
			Name:       e.Name,
			UseCase:    e.UseCase,
			Properties: l.properties(e.Properties),
		}
		if l.config.Diagnostics.IncludeAncestorIDProvenance {
			msg.IDProvenances = &types.IDProvenances{
				SessionID:  session.Provenance,
				AutoViewID: autoView.Provenance,
			}
		}
		l.enqueue(msg)
	})
}

// LogImpression logs an Impression message.
func (l *Logger) LogImpression(e ImpressionEvent) {
	if !l.onLoop("logImpression") {
		return
	}
	l.monitor.ExecuteFunc("logImpression", func() { l.logImpression(e) })
}

func (l *Logger) logImpression(e ImpressionEvent) {
	impression := override(e.ImpressionID, types.AutoID(l.ids.ImpressionID()))
	session := l.sessionID.Current()
	view := override(e.ViewID, l.viewID.Current())
	autoView := override(e.AutoViewID, l.autoViewID.Current())

	msg := &types.Impression{
		Timing:       l.timing(e.Time),
		ImpressionID: impression.Value,
		InsertionID:  e.InsertionID,
		ContentID:    e.ContentID,
		SessionID:    valueOf(session),
		ViewID:       valueOf(view),
		AutoViewID:   valueOf(autoView),
		SourceType:   e.SourceType,
		Properties:   l.properties(e.Properties),
	}
	if l.config.Diagnostics.IncludeAncestorIDProvenance {
		msg.IDProvenances = &types.IDProvenances{
			SessionID:  session.Provenance,
			ViewID:     view.Provenance,
			AutoViewID: autoView.Provenance,
			EventID:    impression.Provenance,
		}
	}
	l.enqueue(msg)
}

// LogAction logs an Action message.
func (l *Logger) LogAction(e ActionEvent) {
	if !l.onLoop("logAction") {
		return
	}
	l.monitor.ExecuteFunc("logAction", func() {
		action := types.AutoID(l.ids.ActionID())
		session := l.sessionID.Current()
		view := override(e.ViewID, l.viewID.Current())
		autoView := override(e.AutoViewID, l.autoViewID.Current())

		msg := &types.Action{
			Timing:       l.timing(time.Time{}),
			ActionID:     action.Value,
			ImpressionID: e.ImpressionID,
			InsertionID:  e.InsertionID,
			ContentID:    e.ContentID,
			SessionID:    valueOf(session),
			ViewID:       valueOf(view),
			AutoViewID:   valueOf(autoView),
			Name:         e.Name,
			ActionType:   e.Type,
			ElementID:    e.ElementID,
			TargetURL:    e.TargetURL,
			Properties:   l.properties(e.Properties),
		}
		if l.config.Diagnostics.IncludeAncestorIDProvenance {
			msg.IDProvenances = &types.IDProvenances{
				SessionID:  session.Provenance,
				ViewID:     view.Provenance,
				AutoViewID: autoView.Provenance,
				EventID:    action.Provenance,
			}
		}
		l.enqueue(msg)
	})
}

// LogNavigateAction logs a navigate Action toward targetURL.
func (l *Logger) LogNavigateAction(targetURL, contentID, insertionID string) {
	l.LogAction(ActionEvent{
		Name:        "navigate",
		Type:        types.ActionNavigate,
		TargetURL:   targetURL,
		ContentID:   contentID,
		InsertionID: insertionID,
	})
}

// LogAddToCartAction logs an add-to-cart Action.
func (l *Logger) LogAddToCartAction(contentID, insertionID string) {
	l.LogAction(ActionEvent{
		Name:        "add-to-cart",
		Type:        types.ActionAddToCart,
		ContentID:   contentID,
		InsertionID: insertionID,
	})
}

// LogCheckoutAction logs a checkout Action.
func (l *Logger) LogCheckoutAction() {
	l.LogAction(ActionEvent{Name: "checkout", Type: types.ActionCheckout})
}

// LogPurchaseAction logs a purchase Action.
func (l *Logger) LogPurchaseAction(contentID, insertionID string) {
	l.LogAction(ActionEvent{
		Name:        "purchase",
		Type:        types.ActionPurchase,
		ContentID:   contentID,
		InsertionID: insertionID,
	})
}

// enqueue validates msg, notifies listeners and adds it to the queue.
// Validation failures are reported; the message is still sent.
func (l *Logger) enqueue(msg types.Message) {
	for _, err := range validateMessage(msg) {
		l.reportError(err)
	}
	l.monitor.WillLogMessage(msg)
	scheduled := l.queue.Add(msg)
	l.logger.Debug("message enqueued", map[string]any{
		"kind":      string(msg.Kind()),
		"pending":   l.queue.Len(),
		"scheduled": scheduled,
	})
}

func (l *Logger) timing(t time.Time) types.Timing {
	if t.IsZero() {
		t = l.clock.Now()
	}
	return types.Timing{ClientLogTimestamp: t.UnixMilli()}
}

// properties encodes props. On failure the field is omitted and
// ErrPropertiesEncoding is reported.
func (l *Logger) properties(props any) []byte {
	switch p := props.(type) {
	case nil:
		return nil
	case []byte:
		return p
	}
	data, err := l.config.Encoder.EncodeProperties(props)
	if err != nil {
		l.reportError(fmt.Errorf("%w: %w", ErrPropertiesEncoding, err))
		return nil
	}
	return data
}

// override returns a platform ID for a non-empty explicit value, else tracked.
func override(explicit string, tracked types.ID) types.ID {
	if explicit != "" {
		return types.PlatformID(explicit)
	}
	return tracked
}

// valueOf returns the ID value, or empty for null IDs so the field is omitted.
func valueOf(id types.ID) string {
	if id.IsNull() {
		return ""
	}
	return id.Value
}

func userProvenance(userID string) types.Provenance {
	if userID == "" {
		return types.ProvenanceNull
	}
	return types.ProvenancePlatformSpecified
}
