// Package store defines the persistence contract between a form session and
// whatever keeps its drafts and submissions. The session treats every call as
// fallible and never retries on its own.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/goliatone/go-formstate/pkg/schema"
)

// ErrNotFound is returned when no draft exists for a session id.
var ErrNotFound = errors.New("store: not found")

// Draft is an incomplete snapshot of a session saved by autosave or an
// explicit save.
type Draft struct {
	SessionID       string                   `json:"session_id"`
	TemplateID      string                   `json:"template_id"`
	TemplateVersion int                      `json:"template_version"`
	Values          schema.Values            `json:"values"`
	Instances       []schema.SectionInstance `json:"instances,omitempty"`
	// NextOrdinals holds, per repeatable section id, the ordinal the next
	// instance will get. It outlives removed instances.
	NextOrdinals map[string]int `json:"next_ordinals,omitempty"`
	SavedAt      time.Time      `json:"saved_at"`
}

// Attachment references an opaque payload (photo, signature, file). Ref is
// whatever the carrier produced, e.g. an encoded blob or an upload key; it
// is forwarded without interpretation.
type Attachment struct {
	FieldCode   string `json:"field_code"`
	Name        string `json:"name,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Size        int64  `json:"size,omitempty"`
	Ref         string `json:"ref"`
}

// Submission is the finalised record of a session.
type Submission struct {
	SessionID       string                   `json:"session_id"`
	TemplateID      string                   `json:"template_id"`
	TemplateVersion int                      `json:"template_version"`
	Values          schema.Values            `json:"values"`
	Instances       []schema.SectionInstance `json:"instances,omitempty"`
	Attachments     []Attachment             `json:"attachments,omitempty"`
	SubmittedAt     time.Time                `json:"submitted_at"`
}

// DraftSaver persists drafts.
type DraftSaver interface {
	SaveDraft(ctx context.Context, draft Draft) error
}

// Submitter persists final submissions.
type Submitter interface {
	Submit(ctx context.Context, submission Submission) error
}

// Store combines both collaborator roles.
type Store interface {
	DraftSaver
	Submitter
}

// DraftReader is implemented by stores that can hand drafts back, which lets
// a session resume where it left off.
type DraftReader interface {
	LoadDraft(ctx context.Context, sessionID string) (Draft, error)
	Drafts(ctx context.Context) ([]Draft, error)
	DeleteDraft(ctx context.Context, sessionID string) error
}
