package types

// MessageKind discriminates the logical event types carried in a batch.
type MessageKind string

// Message kinds.
const (
	KindUser       MessageKind = "user"
	KindView       MessageKind = "view"
	KindAutoView   MessageKind = "auto_view"
	KindImpression MessageKind = "impression"
	KindAction     MessageKind = "action"
)

// Message is any event that can be enqueued for a batch.
// Messages are never mutated after they are enqueued.
type Message interface {
	Kind() MessageKind
}

// Timing stamps an event with its client-side log time.
type Timing struct {
	// ClientLogTimestamp is milliseconds since the Unix epoch.
	ClientLogTimestamp int64 `msgpack:"client_log_timestamp" json:"client_log_timestamp"`
}

// IDProvenances records the provenance of every ancestor ID stamped on a
// message. Attached only when ancestor ID diagnostics are enabled.
type IDProvenances struct {
	UserID     Provenance `msgpack:"user_id_provenance,omitempty" json:"user_id_provenance,omitempty"`
	LogUserID  Provenance `msgpack:"log_user_id_provenance,omitempty" json:"log_user_id_provenance,omitempty"`
	SessionID  Provenance `msgpack:"session_id_provenance,omitempty" json:"session_id_provenance,omitempty"`
	ViewID     Provenance `msgpack:"view_id_provenance,omitempty" json:"view_id_provenance,omitempty"`
	AutoViewID Provenance `msgpack:"auto_view_id_provenance,omitempty" json:"auto_view_id_provenance,omitempty"`
	// EventID is the provenance of the event's own ID (impression/action).
	EventID Provenance `msgpack:"event_id_provenance,omitempty" json:"event_id_provenance,omitempty"`
}

// User records a user identity event, emitted when a session starts.
type User struct {
	Timing        Timing         `msgpack:"timing" json:"timing"`
	UserID        string         `msgpack:"user_id,omitempty" json:"user_id,omitempty"`
	LogUserID     string         `msgpack:"log_user_id,omitempty" json:"log_user_id,omitempty"`
	Properties    []byte         `msgpack:"properties,omitempty" json:"properties,omitempty"`
	IDProvenances *IDProvenances `msgpack:"id_provenances,omitempty" json:"id_provenances,omitempty"`
}

// Kind implements Message.
func (*User) Kind() MessageKind { return KindUser }

// View records navigation to a tracked screen.
type View struct {
	Timing        Timing         `msgpack:"timing" json:"timing"`
	ViewID        string         `msgpack:"view_id,omitempty" json:"view_id,omitempty"`
	SessionID     string         `msgpack:"session_id,omitempty" json:"session_id,omitempty"`
	Name          string         `msgpack:"name,omitempty" json:"name,omitempty"`
	UseCase       UseCase        `msgpack:"use_case,omitempty" json:"use_case,omitempty"`
	Properties    []byte         `msgpack:"properties,omitempty" json:"properties,omitempty"`
	IDProvenances *IDProvenances `msgpack:"id_provenances,omitempty" json:"id_provenances,omitempty"`
}

// Kind implements Message.
func (*View) Kind() MessageKind { return KindView }

// AutoView records a view whose identity is owned by an embedding runtime
// (for example a cross-platform bridge) rather than by the view tracker.
type AutoView struct {
	Timing        Timing         `msgpack:"timing" json:"timing"`
	AutoViewID    string         `msgpack:"auto_view_id,omitempty" json:"auto_view_id,omitempty"`
	SessionID     string         `msgpack:"session_id,omitempty" json:"session_id,omitempty"`
	Name          string         `msgpack:"name,omitempty" json:"name,omitempty"`
	UseCase       UseCase        `msgpack:"use_case,omitempty" json:"use_case,omitempty"`
	Properties    []byte         `msgpack:"properties,omitempty" json:"properties,omitempty"`
	IDProvenances *IDProvenances `msgpack:"id_provenances,omitempty" json:"id_provenances,omitempty"`
}

// Kind implements Message.
func (*AutoView) Kind() MessageKind { return KindAutoView }

// Impression records that a content entity became visible.
type Impression struct {
	Timing        Timing               `msgpack:"timing" json:"timing"`
	ImpressionID  string               `msgpack:"impression_id,omitempty" json:"impression_id,omitempty"`
	InsertionID   string               `msgpack:"insertion_id,omitempty" json:"insertion_id,omitempty"`
	ContentID     string               `msgpack:"content_id,omitempty" json:"content_id,omitempty"`
	SessionID     string               `msgpack:"session_id,omitempty" json:"session_id,omitempty"`
	ViewID        string               `msgpack:"view_id,omitempty" json:"view_id,omitempty"`
	AutoViewID    string               `msgpack:"auto_view_id,omitempty" json:"auto_view_id,omitempty"`
	SourceType    ImpressionSourceType `msgpack:"source_type,omitempty" json:"source_type,omitempty"`
	Properties    []byte               `msgpack:"properties,omitempty" json:"properties,omitempty"`
	IDProvenances *IDProvenances       `msgpack:"id_provenances,omitempty" json:"id_provenances,omitempty"`
}

// Kind implements Message.
func (*Impression) Kind() MessageKind { return KindImpression }

// Action records a user action (click, navigation, purchase, ...).
type Action struct {
	Timing        Timing         `msgpack:"timing" json:"timing"`
	ActionID      string         `msgpack:"action_id,omitempty" json:"action_id,omitempty"`
	ImpressionID  string         `msgpack:"impression_id,omitempty" json:"impression_id,omitempty"`
	InsertionID   string         `msgpack:"insertion_id,omitempty" json:"insertion_id,omitempty"`
	ContentID     string         `msgpack:"content_id,omitempty" json:"content_id,omitempty"`
	SessionID     string         `msgpack:"session_id,omitempty" json:"session_id,omitempty"`
	ViewID        string         `msgpack:"view_id,omitempty" json:"view_id,omitempty"`
	AutoViewID    string         `msgpack:"auto_view_id,omitempty" json:"auto_view_id,omitempty"`
	Name          string         `msgpack:"name,omitempty" json:"name,omitempty"`
	ActionType    ActionType     `msgpack:"action_type" json:"action_type"`
	ElementID     string         `msgpack:"element_id,omitempty" json:"element_id,omitempty"`
	TargetURL     string         `msgpack:"target_url,omitempty" json:"target_url,omitempty"`
	Properties    []byte         `msgpack:"properties,omitempty" json:"properties,omitempty"`
	IDProvenances *IDProvenances `msgpack:"id_provenances,omitempty" json:"id_provenances,omitempty"`
}

// Kind implements Message.
func (*Action) Kind() MessageKind { return KindAction }

// Verify message types implement Message.
var (
	_ Message = (*User)(nil)
	_ Message = (*View)(nil)
	_ Message = (*AutoView)(nil)
	_ Message = (*Impression)(nil)
	_ Message = (*Action)(nil)
)
