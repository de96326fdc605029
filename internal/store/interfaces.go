package store

import (
	"context"
	"errors"

	"basegraph.app/crmsync/internal/model"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write violates a unique key (id, attio_id, membership pair).
var ErrConflict = errors.New("conflict")

// ErrUnscopedDelete is returned by Delete when called without any filter.
var ErrUnscopedDelete = errors.New("delete requires at least one filter")

// Local model names. The table for a model is Tables[model], or model + "s" when unlisted.
const (
	ModelUser                = "user"
	ModelOrganization        = "organization"
	ModelMember              = "member"
	ModelIntegrationEndpoint = "integration_endpoint"
)

// Column holding the external record id on every adapter-governed model.
const AttioIDField = "attio_id"

// DataStore is the generic record store the sync engine reads and writes through.
// Records are column -> value maps so adapters can govern models the engine has no Go type for.
type DataStore interface {
	FindOne(ctx context.Context, model string, where ...Where) (Record, error)
	FindMany(ctx context.Context, model string, where ...Where) ([]Record, error)
	// Create inserts rec, assigning an id when absent, and returns the stored row.
	Create(ctx context.Context, model string, rec Record) (Record, error)
	// Update applies patch to every matching row and returns the updated rows.
	Update(ctx context.Context, model string, where []Where, patch Record) ([]Record, error)
	Delete(ctx context.Context, model string, where ...Where) error
}

// TxRunner runs fn against a transactional view of the store.
// Calling WithTx on the view passed to fn joins the outer transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx DataStore) error) error
}

// Database is a DataStore that can open transactions.
type Database interface {
	DataStore
	TxRunner
}

// UserStore defines the contract for user data access
type UserStore interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByAttioID(ctx context.Context, attioID string) (*model.User, error)
	List(ctx context.Context) ([]model.User, error)
	Create(ctx context.Context, user *model.User) error
	Update(ctx context.Context, user *model.User) error
	Delete(ctx context.Context, id int64) error
}

// OrganizationStore defines the contract for organization data access
type OrganizationStore interface {
	GetByID(ctx context.Context, id int64) (*model.Organization, error)
	GetBySlug(ctx context.Context, slug string) (*model.Organization, error)
	List(ctx context.Context) ([]model.Organization, error)
	Create(ctx context.Context, org *model.Organization) error
	Update(ctx context.Context, org *model.Organization) error
	Delete(ctx context.Context, id int64) error
}

// MemberStore defines the contract for organization membership data access
type MemberStore interface {
	ListByOrganization(ctx context.Context, orgID int64) ([]model.Member, error)
	ListByUser(ctx context.Context, userID int64) ([]model.Member, error)
	Get(ctx context.Context, orgID, userID int64) (*model.Member, error)
	Create(ctx context.Context, member *model.Member) error
	Delete(ctx context.Context, orgID, userID int64) error
	DeleteByOrganization(ctx context.Context, orgID int64) error
	DeleteByUser(ctx context.Context, userID int64) error
}

// EndpointStore defines the contract for integration endpoint data access
type EndpointStore interface {
	GetByID(ctx context.Context, id int64) (*model.IntegrationEndpoint, error)
	List(ctx context.Context) ([]model.IntegrationEndpoint, error)
	Create(ctx context.Context, endpoint *model.IntegrationEndpoint) error
	Delete(ctx context.Context, id int64) error
}
