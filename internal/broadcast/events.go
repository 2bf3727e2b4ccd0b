package broadcast

import "github.com/dgallion1/noteloop/internal/pending"

// Event types on the subscribe stream.
const (
	TypeInit            = "init"
	TypeFileUpdated     = "file_updated"
	TypePendingCreated  = "pending_update"
	TypePendingResolved = "pending_resolved"
	TypeHeartbeat       = "heartbeat"
)

// SectionView is the wire shape of one document section.
type SectionView struct {
	Heading string `json:"heading"`
	Level   int    `json:"level"`
	Content string `json:"content"`
}

// TranscriptEntry is one received chunk in the transcript log.
type TranscriptEntry struct {
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// InitEvent is the full snapshot sent to a subscriber on connect.
type InitEvent struct {
	Type       string            `json:"type"`
	Content    string            `json:"content"`
	Sections   []SectionView     `json:"sections"`
	Transcript []TranscriptEntry `json:"transcript"`
	Pending    []pending.Update  `json:"pending"`
	Project    string            `json:"project"`
}

// FileUpdatedEvent announces one committed rewrite. Section is null when the
// change could not be localized; the viewer falls back to a generic
// indication.
type FileUpdatedEvent struct {
	Type    string  `json:"type"`
	Content string  `json:"content"`
	Section *string `json:"section"`
	Action  string  `json:"action"`
}

// NewFileUpdated builds a FileUpdatedEvent, mapping an empty heading to null.
func NewFileUpdated(content, changedHeading, action string) FileUpdatedEvent {
	ev := FileUpdatedEvent{
		Type:    TypeFileUpdated,
		Content: content,
		Action:  action,
	}
	if changedHeading != "" {
		ev.Section = &changedHeading
	}
	return ev
}

// PendingCreatedEvent surfaces a new pending update to viewers.
type PendingCreatedEvent struct {
	Type    string         `json:"type"`
	Pending pending.Update `json:"pending"`
}

// PendingResolvedEvent announces that a pending update left the store.
type PendingResolvedEvent struct {
	Type      string `json:"type"`
	PendingID string `json:"pending_id"`
	Action    string `json:"action"` // "applied", "created" or "rejected"
}

// HeartbeatEvent keeps idle streams alive.
type HeartbeatEvent struct {
	Type string `json:"type"`
}
