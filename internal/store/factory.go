package store

// Stores hands out typed stores over a DataStore. Pass a HookedStore to have typed writes
// announced to mutation hooks, or a transaction view to have them join that transaction.
type Stores struct {
	ds DataStore
}

func NewStores(ds DataStore) *Stores {
	return &Stores{ds: ds}
}

func (s *Stores) Users() UserStore {
	return newUserStore(s.ds)
}

func (s *Stores) Organizations() OrganizationStore {
	return newOrganizationStore(s.ds)
}

func (s *Stores) Members() MemberStore {
	return newMemberStore(s.ds)
}

func (s *Stores) Endpoints() EndpointStore {
	return newEndpointStore(s.ds)
}

// Data returns the underlying generic store.
func (s *Stores) Data() DataStore {
	return s.ds
}
