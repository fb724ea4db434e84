package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-formstate/pkg/contextdata"
	"github.com/goliatone/go-formstate/pkg/store"
	"github.com/goliatone/go-formstate/pkg/validation"
)

type config struct {
	store     store.Store
	validator *validation.Validator
	catalog   *contextdata.Catalog
	clock     func() time.Time
	id        string
	newID     func() string
	draft     *store.Draft
}

// Option configures a State or a Session. Options that only concern
// persistence (store, clock, id) are ignored by NewState.
type Option func(*config)

// WithStore sets the persistence collaborator.
func WithStore(s store.Store) Option {
	return func(c *config) {
		c.store = s
	}
}

// WithValidator replaces the default validator.
func WithValidator(v *validation.Validator) Option {
	return func(c *config) {
		c.validator = v
	}
}

// WithCatalog supplies the context data snapshot used for library
// selections. Unless WithValidator is also given, lookup fields are
// validated against it.
func WithCatalog(catalog *contextdata.Catalog) Option {
	return func(c *config) {
		c.catalog = catalog
	}
}

// WithClock overrides time.Now.
func WithClock(clock func() time.Time) Option {
	return func(c *config) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithID sets the session id. A random UUID is used otherwise.
func WithID(id string) Option {
	return func(c *config) {
		c.id = id
	}
}

// WithInstanceIDs overrides the generator used for section instance ids.
func WithInstanceIDs(next func() string) Option {
	return func(c *config) {
		if next != nil {
			c.newID = next
		}
	}
}

// WithDraft starts from a saved draft. Its values become the initial
// snapshot, so a resumed session is not dirty until edited.
func WithDraft(draft store.Draft) Option {
	return func(c *config) {
		d := draft
		c.draft = &d
	}
}

func newConfig(options []Option) config {
	c := config{
		clock: time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range options {
		if opt != nil {
			opt(&c)
		}
	}
	if c.validator == nil {
		if c.catalog != nil {
			c.validator = validation.New(validation.WithLookup(c.catalog))
		} else {
			c.validator = validation.New()
		}
	}
	if c.id == "" {
		c.id = uuid.NewString()
	}
	return c
}
