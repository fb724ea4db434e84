package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/goliatone/go-formstate/pkg/schema"
	"github.com/goliatone/go-formstate/pkg/store"
)

// Store implements store.Store and store.DraftReader.
type Store struct {
	DB *sql.DB
}

var (
	_ store.Store       = Store{}
	_ store.DraftReader = Store{}
)

// New wraps an open, migrated database.
func New(db *sql.DB) Store {
	return Store{DB: db}
}

// SaveDraft upserts the draft for the session.
func (s Store) SaveDraft(ctx context.Context, draft store.Draft) error {
	if draft.SessionID == "" {
		return errors.New("sqlite: draft session id is required")
	}
	valuesJSON, instancesJSON, err := encodeState(draft.Values, draft.Instances)
	if err != nil {
		return err
	}
	ordinalsJSON, err := encodeOrdinals(draft.NextOrdinals)
	if err != nil {
		return err
	}
	_, err = s.DB.ExecContext(ctx, `INSERT INTO drafts(session_id,template_id,template_version,values_json,instances_json,next_ordinals_json,saved_at)
		VALUES (?,?,?,?,?,?,?)
		ON CONFLICT(session_id) DO UPDATE SET
			template_id=excluded.template_id,
			template_version=excluded.template_version,
			values_json=excluded.values_json,
			instances_json=excluded.instances_json,
			next_ordinals_json=excluded.next_ordinals_json,
			saved_at=excluded.saved_at`,
		draft.SessionID, draft.TemplateID, draft.TemplateVersion, valuesJSON, instancesJSON, ordinalsJSON, formatTime(draft.SavedAt))
	if err != nil {
		return fmt.Errorf("sqlite: save draft: %w", err)
	}
	return nil
}

// Submit records the submission with its attachments and deletes the
// session's draft in the same transaction.
func (s Store) Submit(ctx context.Context, sub store.Submission) error {
	if sub.SessionID == "" {
		return errors.New("sqlite: submission session id is required")
	}
	valuesJSON, instancesJSON, err := encodeState(sub.Values, sub.Instances)
	if err != nil {
		return err
	}
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin submit: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `INSERT INTO submissions(session_id,template_id,template_version,values_json,instances_json,submitted_at) VALUES (?,?,?,?,?,?)`,
		sub.SessionID, sub.TemplateID, sub.TemplateVersion, valuesJSON, instancesJSON, formatTime(sub.SubmittedAt)); err != nil {
		return fmt.Errorf("sqlite: insert submission: %w", err)
	}
	for _, a := range sub.Attachments {
		if _, err := tx.ExecContext(ctx, `INSERT INTO attachments(session_id,field_code,name,content_type,size,ref) VALUES (?,?,?,?,?,?)`,
			sub.SessionID, a.FieldCode, nullable(a.Name), nullable(a.ContentType), a.Size, a.Ref); err != nil {
			return fmt.Errorf("sqlite: insert attachment %s: %w", a.FieldCode, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM drafts WHERE session_id=?`, sub.SessionID); err != nil {
		return fmt.Errorf("sqlite: delete draft: %w", err)
	}
	return tx.Commit()
}

const draftColumns = `session_id,template_id,template_version,values_json,instances_json,next_ordinals_json,saved_at`

// LoadDraft returns the stored draft or store.ErrNotFound.
func (s Store) LoadDraft(ctx context.Context, sessionID string) (store.Draft, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT `+draftColumns+` FROM drafts WHERE session_id=?`, sessionID)
	draft, err := scanDraft(row)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Draft{}, fmt.Errorf("sqlite: draft %q: %w", sessionID, store.ErrNotFound)
	}
	return draft, err
}

// Drafts lists drafts, most recently saved first.
func (s Store) Drafts(ctx context.Context) ([]store.Draft, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT `+draftColumns+` FROM drafts ORDER BY saved_at DESC, session_id`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list drafts: %w", err)
	}
	defer rows.Close()
	var out []store.Draft
	for rows.Next() {
		draft, err := scanDraft(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, draft)
	}
	return out, rows.Err()
}

// DeleteDraft removes a draft; a missing draft is not an error.
func (s Store) DeleteDraft(ctx context.Context, sessionID string) error {
	if _, err := s.DB.ExecContext(ctx, `DELETE FROM drafts WHERE session_id=?`, sessionID); err != nil {
		return fmt.Errorf("sqlite: delete draft: %w", err)
	}
	return nil
}

// Submission loads a stored submission with its attachments.
func (s Store) Submission(ctx context.Context, sessionID string) (store.Submission, error) {
	var (
		sub                       store.Submission
		valuesJSON, instancesJSON string
		submittedAt               string
	)
	err := s.DB.QueryRowContext(ctx, `SELECT session_id,template_id,template_version,values_json,instances_json,submitted_at FROM submissions WHERE session_id=?`, sessionID).
		Scan(&sub.SessionID, &sub.TemplateID, &sub.TemplateVersion, &valuesJSON, &instancesJSON, &submittedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Submission{}, fmt.Errorf("sqlite: submission %q: %w", sessionID, store.ErrNotFound)
	}
	if err != nil {
		return store.Submission{}, fmt.Errorf("sqlite: load submission: %w", err)
	}
	if sub.Values, sub.Instances, err = decodeState(valuesJSON, instancesJSON); err != nil {
		return store.Submission{}, err
	}
	if sub.SubmittedAt, err = parseTime(submittedAt); err != nil {
		return store.Submission{}, err
	}

	rows, err := s.DB.QueryContext(ctx, `SELECT field_code,COALESCE(name,''),COALESCE(content_type,''),size,ref FROM attachments WHERE session_id=? ORDER BY rowid`, sessionID)
	if err != nil {
		return store.Submission{}, fmt.Errorf("sqlite: load attachments: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var a store.Attachment
		if err := rows.Scan(&a.FieldCode, &a.Name, &a.ContentType, &a.Size, &a.Ref); err != nil {
			return store.Submission{}, err
		}
		sub.Attachments = append(sub.Attachments, a)
	}
	return sub, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDraft(row scanner) (store.Draft, error) {
	var (
		d                         store.Draft
		valuesJSON, instancesJSON string
		ordinalsJSON              string
		savedAt                   string
	)
	if err := row.Scan(&d.SessionID, &d.TemplateID, &d.TemplateVersion, &valuesJSON, &instancesJSON, &ordinalsJSON, &savedAt); err != nil {
		return store.Draft{}, err
	}
	var err error
	if d.Values, d.Instances, err = decodeState(valuesJSON, instancesJSON); err != nil {
		return store.Draft{}, err
	}
	if d.NextOrdinals, err = decodeOrdinals(ordinalsJSON); err != nil {
		return store.Draft{}, err
	}
	if d.SavedAt, err = parseTime(savedAt); err != nil {
		return store.Draft{}, err
	}
	return d, nil
}

func encodeState(values schema.Values, instances []schema.SectionInstance) (string, string, error) {
	if values == nil {
		values = schema.Values{}
	}
	if instances == nil {
		instances = []schema.SectionInstance{}
	}
	v, err := json.Marshal(values)
	if err != nil {
		return "", "", fmt.Errorf("sqlite: encode values: %w", err)
	}
	i, err := json.Marshal(instances)
	if err != nil {
		return "", "", fmt.Errorf("sqlite: encode instances: %w", err)
	}
	return string(v), string(i), nil
}

func decodeState(valuesJSON, instancesJSON string) (schema.Values, []schema.SectionInstance, error) {
	var values schema.Values
	if err := json.Unmarshal([]byte(valuesJSON), &values); err != nil {
		return nil, nil, fmt.Errorf("sqlite: decode values: %w", err)
	}
	var instances []schema.SectionInstance
	if err := json.Unmarshal([]byte(instancesJSON), &instances); err != nil {
		return nil, nil, fmt.Errorf("sqlite: decode instances: %w", err)
	}
	if len(instances) == 0 {
		instances = nil
	}
	return values, instances, nil
}

func encodeOrdinals(next map[string]int) (string, error) {
	if next == nil {
		next = map[string]int{}
	}
	b, err := json.Marshal(next)
	if err != nil {
		return "", fmt.Errorf("sqlite: encode next ordinals: %w", err)
	}
	return string(b), nil
}

func decodeOrdinals(raw string) (map[string]int, error) {
	var next map[string]int
	if err := json.Unmarshal([]byte(raw), &next); err != nil {
		return nil, fmt.Errorf("sqlite: decode next ordinals: %w", err)
	}
	if len(next) == 0 {
		return nil, nil
	}
	return next, nil
}

// timeLayout has a fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(raw string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("sqlite: parse time %q: %w", raw, err)
	}
	return t, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
