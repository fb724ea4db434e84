package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/goliatone/go-formstate/pkg/schema"
)

// Memory keeps drafts and submissions in process. It is safe for concurrent
// use. Submitting removes the session's draft.
type Memory struct {
	mu          sync.RWMutex
	drafts      map[string]Draft
	submissions []Submission
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{drafts: make(map[string]Draft)}
}

var (
	_ Store       = (*Memory)(nil)
	_ DraftReader = (*Memory)(nil)
)

// SaveDraft implements DraftSaver.
func (m *Memory) SaveDraft(ctx context.Context, draft Draft) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if draft.SessionID == "" {
		return fmt.Errorf("store: draft session id is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drafts[draft.SessionID] = cloneDraft(draft)
	return nil
}

// Submit implements Submitter.
func (m *Memory) Submit(ctx context.Context, submission Submission) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if submission.SessionID == "" {
		return fmt.Errorf("store: submission session id is required")
	}
	submission.Values = submission.Values.Clone()
	submission.Instances = cloneInstances(submission.Instances)
	submission.Attachments = append([]Attachment(nil), submission.Attachments...)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.submissions = append(m.submissions, submission)
	delete(m.drafts, submission.SessionID)
	return nil
}

// LoadDraft returns the draft saved for sessionID.
func (m *Memory) LoadDraft(ctx context.Context, sessionID string) (Draft, error) {
	if err := ctx.Err(); err != nil {
		return Draft{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	draft, ok := m.drafts[sessionID]
	if !ok {
		return Draft{}, fmt.Errorf("store: draft %q: %w", sessionID, ErrNotFound)
	}
	return cloneDraft(draft), nil
}

// Drafts lists every draft, most recently saved first.
func (m *Memory) Drafts(ctx context.Context) ([]Draft, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	out := make([]Draft, 0, len(m.drafts))
	for _, draft := range m.drafts {
		out = append(out, cloneDraft(draft))
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].SavedAt.Equal(out[j].SavedAt) {
			return out[i].SessionID < out[j].SessionID
		}
		return out[i].SavedAt.After(out[j].SavedAt)
	})
	return out, nil
}

// DeleteDraft discards a draft. Deleting a missing draft is not an error.
func (m *Memory) DeleteDraft(ctx context.Context, sessionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.drafts, sessionID)
	return nil
}

// Submissions returns a copy of every submission in arrival order.
func (m *Memory) Submissions() []Submission {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Submission(nil), m.submissions...)
}

func cloneDraft(draft Draft) Draft {
	draft.Values = draft.Values.Clone()
	draft.Instances = cloneInstances(draft.Instances)
	if draft.NextOrdinals != nil {
		next := make(map[string]int, len(draft.NextOrdinals))
		for k, v := range draft.NextOrdinals {
			next[k] = v
		}
		draft.NextOrdinals = next
	}
	return draft
}

func cloneInstances(instances []schema.SectionInstance) []schema.SectionInstance {
	if instances == nil {
		return nil
	}
	out := make([]schema.SectionInstance, len(instances))
	for i, instance := range instances {
		instance.Values = instance.Values.Clone()
		out[i] = instance
	}
	return out
}
