package models

import "time"

// Member is one roster entry mapping a Discord user to the name the team
// uses internally. The roster is configuration data, loaded once at startup.
type Member struct {
	MemberName string `json:"member_name"`
	ID         string `json:"id"`
	Username   string `json:"username"`
	GlobalName string `json:"global_name"`
	Nick       string `json:"nick,omitempty"`
}

// SourceKind distinguishes the places messages are collected from.
type SourceKind string

const (
	KindChannel        SourceKind = "channel"
	KindActiveThread   SourceKind = "active_thread"
	KindArchivedThread SourceKind = "archived_thread"
)

// Source is a channel or thread discovered fresh each run.
type Source struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Kind     SourceKind `json:"kind"`
	ParentID string     `json:"parent_id,omitempty"`
}

// Author carries the platform-visible identity fields of a message author.
type Author struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	GlobalName string `json:"global_name"`
}

// Message is a single chat message inside the digest window.
type Message struct {
	Timestamp time.Time `json:"timestamp"`
	Author    Author    `json:"author"`
	Content   string    `json:"content"`
}

// FetchResult is the outcome of fetching one source. NoAccess marks sources
// the bot could not read; that is a skip, not an error.
type FetchResult struct {
	Messages []Message
	NoAccess bool
}

// Window is the fixed lookback period of one run: [Since, Now).
// Messages are in scope only when strictly newer than Since.
type Window struct {
	Since time.Time `json:"since"`
	Now   time.Time `json:"now"`
}

// NewWindow fixes a 24-hour window ending at now.
func NewWindow(now time.Time) Window {
	return Window{Since: now.Add(-24 * time.Hour), Now: now}
}

// Contains reports whether ts falls inside the window.
func (w Window) Contains(ts time.Time) bool {
	return ts.After(w.Since)
}

// DigestReport is the result of one digest run.
type DigestReport struct {
	GeneratedAt      time.Time `json:"generated_at"`
	Window           Window    `json:"window"`
	TranscriptLength int       `json:"transcript_length"`
	Summary          string    `json:"summary"`
	ModelUsed        string    `json:"model_used"`
	Delivered        bool      `json:"delivered"`
}
