// Package session runs one form-filling session: values, touched flags,
// validation errors, wizard position, completion and repeatable section
// instances, plus the draft and submit calls to the persistence collaborator.
//
// State is the pure part. Each transition returns a new State, which keeps
// the rules testable without goroutines. Session wraps a State behind a mutex
// and serialises every write to the store, so an autosave tick can never land
// after the submit that finalised the form.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/untillpro/goutils/logger"

	"github.com/goliatone/go-formstate/pkg/schema"
	"github.com/goliatone/go-formstate/pkg/store"
)

// Session is safe for concurrent use.
type Session struct {
	id    string
	store store.Store
	clock func() time.Time

	mu        sync.Mutex
	state     State
	closed    bool
	finalized bool

	// writeMu is held for the whole duration of a store call.
	writeMu sync.Mutex
}

// New starts a session over tpl.
func New(tpl schema.FormTemplate, options ...Option) (*Session, error) {
	cfg := newConfig(options)
	if cfg.draft != nil {
		if cfg.draft.TemplateID != "" && cfg.draft.TemplateID != tpl.ID {
			return nil, fmt.Errorf("%w: draft %q is for %q, not %q", ErrDraftMismatch, cfg.draft.SessionID, cfg.draft.TemplateID, tpl.ID)
		}
		if cfg.draft.SessionID != "" {
			cfg.id = cfg.draft.SessionID
		}
	}
	return &Session{
		id:    cfg.id,
		store: cfg.store,
		clock: cfg.clock,
		state: newState(tpl, cfg),
	}, nil
}

// Resume loads the draft saved for sessionID and starts a session from it.
func Resume(ctx context.Context, tpl schema.FormTemplate, drafts store.DraftReader, sessionID string, options ...Option) (*Session, error) {
	draft, err := drafts.LoadDraft(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("session: resume %q: %w", sessionID, err)
	}
	return New(tpl, append(options, WithDraft(draft))...)
}

// ID returns the session id used for drafts and the submission.
func (s *Session) ID() string {
	return s.id
}

// State returns the current snapshot.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// update applies a transition unless the session no longer accepts edits.
func (s *Session) update(fn func(State) (State, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writableLocked(); err != nil {
		return err
	}
	next, err := fn(s.state)
	if err != nil {
		return err
	}
	s.state = next
	return nil
}

func (s *Session) writableLocked() error {
	switch {
	case s.closed:
		return ErrClosed
	case s.finalized:
		return ErrFinalized
	}
	return nil
}

// SetValue assigns a form-level value.
func (s *Session) SetValue(code string, value any) error {
	return s.update(func(st State) (State, error) {
		return st.SetValue(code, value), nil
	})
}

// SetTouched marks a field or instance key as interacted with.
func (s *Session) SetTouched(key string) error {
	return s.update(func(st State) (State, error) {
		return st.SetTouched(key), nil
	})
}

// Validate refreshes the error map and reports validity.
func (s *Session) Validate() (bool, error) {
	var valid bool
	err := s.update(func(st State) (State, error) {
		next, ok := st.Validate()
		valid = ok
		return next, nil
	})
	return valid, err
}

// Reset restores the initial snapshot.
func (s *Session) Reset() error {
	return s.update(func(st State) (State, error) {
		return st.Reset(), nil
	})
}

// GoToStep moves the wizard; out-of-range steps are ignored.
func (s *Session) GoToStep(n int) error {
	return s.update(func(st State) (State, error) {
		return st.GoToStep(n), nil
	})
}

// NextStep advances the wizard.
func (s *Session) NextStep() error {
	return s.update(func(st State) (State, error) {
		return st.NextStep(), nil
	})
}

// PrevStep moves the wizard back.
func (s *Session) PrevStep() error {
	return s.update(func(st State) (State, error) {
		return st.PrevStep(), nil
	})
}

// AddInstance appends an instance to a repeatable section.
func (s *Session) AddInstance(sectionID string) (schema.SectionInstance, error) {
	var added schema.SectionInstance
	err := s.update(func(st State) (State, error) {
		next, instance, err := st.AddInstance(sectionID)
		added = instance
		return next, err
	})
	return added, err
}

// RemoveInstance removes an instance from a repeatable section.
func (s *Session) RemoveInstance(sectionID, instanceID string) error {
	return s.update(func(st State) (State, error) {
		return st.RemoveInstance(sectionID, instanceID)
	})
}

// SetInstanceValue assigns a value inside an instance.
func (s *Session) SetInstanceValue(instanceID, code string, value any) error {
	return s.update(func(st State) (State, error) {
		return st.SetInstanceValue(instanceID, code, value)
	})
}

// ApplyLibrarySelection selects a catalog record and auto-populates siblings.
func (s *Session) ApplyLibrarySelection(code, id string) error {
	return s.update(func(st State) (State, error) {
		return st.ApplyLibrarySelection(code, id)
	})
}

func (s *Session) draftLocked() store.Draft {
	tpl := s.state.Template()
	return store.Draft{
		SessionID:       s.id,
		TemplateID:      tpl.ID,
		TemplateVersion: tpl.Version,
		Values:          s.state.Values(),
		Instances:       s.state.Instances(""),
		NextOrdinals:    s.state.nextOrdinals(),
	}
}

// SaveDraft persists the current values regardless of the dirty flag.
func (s *Session) SaveDraft(ctx context.Context) error {
	if s.store == nil {
		return ErrNoStore
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.saveDraftLocked(ctx)
}

// saveDraftLocked requires writeMu.
func (s *Session) saveDraftLocked(ctx context.Context) error {
	s.mu.Lock()
	if err := s.writableLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	draft := s.draftLocked()
	s.mu.Unlock()

	draft.SavedAt = s.clock()
	if err := s.store.SaveDraft(ctx, draft); err != nil {
		return fmt.Errorf("session: save draft: %w", err)
	}

	s.mu.Lock()
	s.state = s.state.MarkSaved(draft.SavedAt)
	s.mu.Unlock()
	return nil
}

// Autosave saves a draft when the form is dirty. It skips, reporting false,
// when another write is in flight, while submitting, after a submit and after
// Close.
func (s *Session) Autosave(ctx context.Context) (bool, error) {
	if s.store == nil {
		return false, nil
	}
	if !s.writeMu.TryLock() {
		return false, nil
	}
	defer s.writeMu.Unlock()

	s.mu.Lock()
	skip := s.writableLocked() != nil || s.state.IsSubmitting() || !s.state.IsDirty()
	s.mu.Unlock()
	if skip {
		return false, nil
	}
	if err := s.saveDraftLocked(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// Submit validates and hands the form to the store. An invalid form returns
// ErrInvalid with the errors populated. A store failure returns a
// *SubmitError and leaves the values in place for another try.
func (s *Session) Submit(ctx context.Context, attachments []store.Attachment) error {
	if s.store == nil {
		return ErrNoStore
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	if err := s.writableLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	next, valid := s.state.BeginSubmit()
	s.state = next
	if !valid {
		count := len(next.errors)
		s.mu.Unlock()
		return fmt.Errorf("%w: %d field(s)", ErrInvalid, count)
	}
	draft := s.draftLocked()
	s.mu.Unlock()

	sub := store.Submission{
		SessionID:       draft.SessionID,
		TemplateID:      draft.TemplateID,
		TemplateVersion: draft.TemplateVersion,
		Values:          draft.Values,
		Instances:       draft.Instances,
		Attachments:     append([]store.Attachment(nil), attachments...),
		SubmittedAt:     s.clock(),
	}
	err := s.store.Submit(ctx, sub)

	s.mu.Lock()
	s.state = s.state.EndSubmit()
	if err == nil {
		s.finalized = true
	}
	s.mu.Unlock()

	if err != nil {
		logger.Error("session:", s.id, "submit failed:", err)
		return &SubmitError{Message: submitFailedMessage, Err: err}
	}
	if logger.IsVerbose() {
		logger.Verbose("session:", s.id, "submitted")
	}
	return nil
}

// Finalized reports whether the session was submitted.
func (s *Session) Finalized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finalized
}

// Close stops the session. It waits for a store call already in flight; no
// write starts afterwards.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
}
