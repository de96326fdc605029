package attio

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cast"

	"basegraph.app/crmsync/common"
	"basegraph.app/crmsync/internal/store"
)

const (
	WorkspacesObject = "workspaces"
	// membersAttribute is the record-reference attribute listing a workspace's users.
	membersAttribute = "users"
	maxSlugAttempts  = 50
)

var organizationSchema = []Attribute{
	{Slug: "workspace_id", Title: "Workspace ID", Type: AttributeText, IsRequired: true, IsUnique: true},
	{Slug: "name", Title: "Name", Type: AttributeText, IsRequired: true},
	{Slug: "slug", Title: "Slug", Type: AttributeText, IsUnique: true},
	{Slug: membersAttribute, Title: "Users", Type: AttributeRecordReference, IsMultiselect: true, Relationship: UsersObject},
}

// OrganizationAdapter syncs organizations with Attio's workspaces object, including the
// organization's member list. Membership changes re-sync the parent organization.
type OrganizationAdapter struct{}

func NewOrganizationAdapter() *OrganizationAdapter {
	return &OrganizationAdapter{}
}

func (OrganizationAdapter) Meta() AdapterMeta {
	return AdapterMeta{
		LocalModel:     store.ModelOrganization,
		ExternalObject: WorkspacesObject,
		Schema:         organizationSchema,
		OnMissing:      OnMissingCreate,
		SyncDeletions:  true,
		RelatedModels: map[string]ParentResolver{
			store.ModelMember: organizationOfMember,
		},
		CorrelationField: "workspace_id",
	}
}

func organizationOfMember(ctx context.Context, member store.Record, sc *SyncContext) (string, error) {
	orgID := cast.ToInt64(member["organization_id"])
	if orgID == 0 {
		return "", nil
	}
	org, err := sc.Store.FindOne(ctx, store.ModelOrganization, store.Eq("id", orgID))
	if errors.Is(err, store.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("loading organization %d: %w", orgID, err)
	}
	return org.AttioID(), nil
}

func (OrganizationAdapter) ToAttio(ctx context.Context, event Event, rec store.Record, sc *SyncContext) (store.Record, error) {
	out := store.Record{
		"workspace_id": strconv.FormatInt(rec.ID(), 10),
		"name":         rec.String("name"),
		"slug":         rec.String("slug"),
	}
	if attioID := rec.AttioID(); attioID != "" {
		out[RecordIDKey] = attioID
	}
	if event == EventDelete {
		return out, nil
	}

	refs, err := memberUserRefs(ctx, sc.Store, rec.ID())
	if err != nil {
		return nil, err
	}
	out[membersAttribute] = refs
	return out, nil
}

// memberUserRefs lists the Attio ids of the organization's members. Unsynced users are omitted.
func memberUserRefs(ctx context.Context, ds store.DataStore, orgID int64) ([]string, error) {
	members, err := ds.FindMany(ctx, store.ModelMember, store.Eq("organization_id", orgID))
	if err != nil {
		return nil, fmt.Errorf("loading members of organization %d: %w", orgID, err)
	}
	refs := []string{}
	if len(members) == 0 {
		return refs, nil
	}
	userIDs := make([]int64, len(members))
	for i, m := range members {
		userIDs[i] = cast.ToInt64(m["user_id"])
	}
	users, err := ds.FindMany(ctx, store.ModelUser, store.In("id", userIDs))
	if err != nil {
		return nil, fmt.Errorf("loading member users: %w", err)
	}
	for _, u := range users {
		if attioID := u.AttioID(); attioID != "" {
			refs = append(refs, attioID)
		}
	}
	return refs, nil
}

// FromAttio persists the organization and its membership itself and always returns nil.
func (a OrganizationAdapter) FromAttio(ctx context.Context, event Event, values store.Record, sc *SyncContext) (store.Record, error) {
	existing, err := sc.Store.FindOne(ctx, store.ModelOrganization, store.Eq(store.AttioIDField, sc.ExternalID()))
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("finding organization: %w", err)
	}

	if event == EventDelete {
		if existing == nil || !a.Meta().SyncDeletions {
			return nil, nil
		}
		return nil, DeleteOrganization(ctx, sc, existing.ID())
	}

	if existing == nil {
		// an organization created locally comes back carrying its own id
		if localID := cast.ToInt64(values["workspace_id"]); localID > 0 {
			existing, err = sc.Store.FindOne(ctx, store.ModelOrganization, store.Eq("id", localID))
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				return nil, fmt.Errorf("finding organization %d: %w", localID, err)
			}
		}
	}

	patch := store.Record{}
	copyRequired(patch, values, "name", "name")
	copyRequired(patch, values, "slug", "slug")
	if existing == nil && patch.String("name") == "" {
		return nil, fmt.Errorf("organization %s: %w", sc.ExternalID(), ErrMissingRequiredValue)
	}
	if existing == nil && patch.String("slug") == "" {
		slug, err := uniqueSlug(ctx, sc.Store, patch.String("name"))
		if err != nil {
			return nil, err
		}
		patch["slug"] = slug
	}

	res, err := sc.Apply(ctx, event, patch)
	if err != nil {
		return nil, err
	}
	if res.Record == nil {
		return nil, nil
	}

	var change MembershipChange
	if _, carriesMembers := values[membersAttribute]; carriesMembers {
		change, err = ReconcileMembers(ctx, sc, res.Record.ID(), cast.ToStringSlice(ValueList(values[membersAttribute])))
		if err != nil {
			return nil, err
		}
	}

	switch {
	case res.Action == ActionCreated:
		sc.Emit(ctx, EventCreate, res.Record)
	case res.Action == ActionUpdated || change.Changed():
		sc.Emit(ctx, EventUpdate, res.Record)
	}
	return nil, nil
}

func uniqueSlug(ctx context.Context, ds store.DataStore, name string) (string, error) {
	base, err := common.Slugify(name, "organization")
	if err != nil {
		return "", err
	}
	for n := 0; n < maxSlugAttempts; n++ {
		candidate := common.WithSuffix(base, n)
		_, err := ds.FindOne(ctx, store.ModelOrganization, store.Eq("slug", candidate))
		if errors.Is(err, store.ErrNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", fmt.Errorf("checking slug %q: %w", candidate, err)
		}
	}
	return "", fmt.Errorf("no free slug for %q after %d attempts", base, maxSlugAttempts)
}
