package types

// LogRequest is one outgoing batch: every pending message plus the
// user/client/device context and optional diagnostics.
type LogRequest struct {
	UserInfo    UserInfo      `msgpack:"user_info" json:"user_info"`
	ClientInfo  ClientInfo    `msgpack:"client_info" json:"client_info"`
	Device      *Device       `msgpack:"device,omitempty" json:"device,omitempty"`
	Users       []*User       `msgpack:"user,omitempty" json:"user,omitempty"`
	Views       []*View       `msgpack:"view,omitempty" json:"view,omitempty"`
	AutoViews   []*AutoView   `msgpack:"auto_view,omitempty" json:"auto_view,omitempty"`
	Impressions []*Impression `msgpack:"impression,omitempty" json:"impression,omitempty"`
	Actions     []*Action     `msgpack:"action,omitempty" json:"action,omitempty"`
	Diagnostics *Diagnostics  `msgpack:"diagnostics,omitempty" json:"diagnostics,omitempty"`
}

// Add appends msg to the list for its kind.
func (r *LogRequest) Add(msg Message) {
	switch m := msg.(type) {
	case *User:
		r.Users = append(r.Users, m)
	case *View:
		r.Views = append(r.Views, m)
	case *AutoView:
		r.AutoViews = append(r.AutoViews, m)
	case *Impression:
		r.Impressions = append(r.Impressions, m)
	case *Action:
		r.Actions = append(r.Actions, m)
	}
}

// MessageCount returns the number of events carried by the request.
func (r *LogRequest) MessageCount() int {
	return len(r.Users) + len(r.Views) + len(r.AutoViews) + len(r.Impressions) + len(r.Actions)
}

// UserInfo identifies the user the batch belongs to.
type UserInfo struct {
	UserID    string `msgpack:"user_id,omitempty" json:"user_id,omitempty"`
	LogUserID string `msgpack:"log_user_id,omitempty" json:"log_user_id,omitempty"`
}

// ClientInfo describes the producing client.
type ClientInfo struct {
	ClientType  ClientType  `msgpack:"client_type" json:"client_type"`
	TrafficType TrafficType `msgpack:"traffic_type" json:"traffic_type"`
}

// Device describes the host device. Process-lifetime constant.
type Device struct {
	Platform     string `msgpack:"platform,omitempty" json:"platform,omitempty"`
	Brand        string `msgpack:"brand,omitempty" json:"brand,omitempty"`
	Manufacturer string `msgpack:"manufacturer,omitempty" json:"manufacturer,omitempty"`
	Model        string `msgpack:"model,omitempty" json:"model,omitempty"`
	OSVersion    string `msgpack:"os_version,omitempty" json:"os_version,omitempty"`
	Locale       string `msgpack:"locale,omitempty" json:"locale,omitempty"`
	ScreenWidth  int    `msgpack:"screen_width,omitempty" json:"screen_width,omitempty"`
	ScreenHeight int    `msgpack:"screen_height,omitempty" json:"screen_height,omitempty"`
}

// Diagnostics is the optional mobile diagnostics sub-message.
type Diagnostics struct {
	ClientVersion           string             `msgpack:"client_version" json:"client_version"`
	BatchesAttempted        int64              `msgpack:"batches_attempted" json:"batches_attempted"`
	BatchesSentSuccessfully int64              `msgpack:"batches_sent_successfully" json:"batches_sent_successfully"`
	BatchesWithErrors       int64              `msgpack:"batches_with_errors" json:"batches_with_errors"`
	AncestorIDHistory       *AncestorIDHistory `msgpack:"ancestor_id_history,omitempty" json:"ancestor_id_history,omitempty"`
	BatchSummaries          []BatchSummary     `msgpack:"batch_summaries,omitempty" json:"batch_summaries,omitempty"`
}

// AncestorIDHistoryEntry is one observed ancestor ID value.
type AncestorIDHistoryEntry struct {
	ID          ID  `msgpack:"id" json:"id"`
	BatchNumber int `msgpack:"batch_number" json:"batch_number"`
}

// AncestorIDHistory is the serialized form of the bounded ancestor ID history.
type AncestorIDHistory struct {
	LogUserIDs  []AncestorIDHistoryEntry `msgpack:"log_user_id_history,omitempty" json:"log_user_id_history,omitempty"`
	SessionIDs  []AncestorIDHistoryEntry `msgpack:"session_id_history,omitempty" json:"session_id_history,omitempty"`
	ViewIDs     []AncestorIDHistoryEntry `msgpack:"view_id_history,omitempty" json:"view_id_history,omitempty"`
	AutoViewIDs []AncestorIDHistoryEntry `msgpack:"auto_view_id_history,omitempty" json:"auto_view_id_history,omitempty"`
}

// BatchSummary is a compact diagnostic record of one past flush.
type BatchSummary struct {
	BatchNumber  int    `msgpack:"batch_number" json:"batch_number"`
	MessageCount int    `msgpack:"message_count" json:"message_count"`
	Bytes        int    `msgpack:"bytes" json:"bytes"`
	LatencyMs    int64  `msgpack:"latency_ms" json:"latency_ms"`
	ErrorCount   int    `msgpack:"error_count" json:"error_count"`
	Outcome      string `msgpack:"outcome" json:"outcome"`
}
