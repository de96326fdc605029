package service

import (
	"basegraph.app/crmsync/core/config"
	"basegraph.app/crmsync/internal/attio"
	"basegraph.app/crmsync/internal/store"
)

type Services struct {
	stores     *store.Stores
	txRunner   TxRunner
	reconciler *attio.Reconciler
	attioCfg   config.AttioConfig
}

// NewServices wires the services. stores and txRunner should sit on the hooked store so that
// local writes are dispatched; the reconciler sits on the raw store.
func NewServices(stores *store.Stores, txRunner TxRunner, reconciler *attio.Reconciler, attioCfg config.AttioConfig) *Services {
	return &Services{
		stores:     stores,
		txRunner:   txRunner,
		reconciler: reconciler,
		attioCfg:   attioCfg,
	}
}

func (s *Services) Users() UserService {
	return NewUserService(s.stores.Users(), s.txRunner)
}

func (s *Services) Organizations() OrganizationService {
	return NewOrganizationService(s.stores.Organizations(), s.txRunner)
}

func (s *Services) Members() MemberService {
	return NewMemberService(s.stores.Members(), s.stores.Organizations(), s.stores.Users())
}

func (s *Services) Endpoints() EndpointService {
	return NewEndpointService(s.stores.Endpoints())
}

func (s *Services) Webhooks() WebhookService {
	return NewWebhookService(s.reconciler, s.attioCfg.WebhookSecret, s.attioCfg.AuthMode)
}
