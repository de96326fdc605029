package attio

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"basegraph.app/crmsync/internal/store"
)

const UsersObject = "users"

var userSchema = []Attribute{
	{Slug: "user_id", Title: "User ID", Type: AttributeText, IsRequired: true, IsUnique: true},
	{Slug: "primary_email_address", Title: "Primary email address", Type: AttributeEmailAddress, IsRequired: true, IsUnique: true},
	{Slug: "name", Title: "Name", Type: AttributeText},
	{Slug: "avatar_url", Title: "Avatar URL", Type: AttributeText},
}

// UserAdapter syncs local users with Attio's users object.
type UserAdapter struct{}

func NewUserAdapter() *UserAdapter {
	return &UserAdapter{}
}

func (UserAdapter) Meta() AdapterMeta {
	return AdapterMeta{
		LocalModel:       store.ModelUser,
		ExternalObject:   UsersObject,
		Schema:           userSchema,
		OnMissing:        OnMissingCreate,
		SyncDeletions:    true,
		CorrelationField: "user_id",
	}
}

func (UserAdapter) ToAttio(_ context.Context, _ Event, rec store.Record, _ *SyncContext) (store.Record, error) {
	out := store.Record{
		"user_id":               strconv.FormatInt(rec.ID(), 10),
		"primary_email_address": rec.String("email"),
		"name":                  rec.String("name"),
		"avatar_url":            nilIfEmpty(rec.String("avatar_url")),
	}
	if attioID := rec.AttioID(); attioID != "" {
		out[RecordIDKey] = attioID
	}
	return out, nil
}

// FromAttio maps the attributes present on the inbound record. Deletions remove the user's
// memberships before the user, so they are handled here rather than by the default policy.
func (a UserAdapter) FromAttio(ctx context.Context, event Event, values store.Record, sc *SyncContext) (store.Record, error) {
	if event == EventDelete {
		if !a.Meta().SyncDeletions {
			return nil, nil
		}
		existing, err := sc.Store.FindOne(ctx, store.ModelUser, store.Eq(store.AttioIDField, sc.ExternalID()))
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("finding user to delete: %w", err)
		}
		return nil, DeleteUser(ctx, sc, existing.ID())
	}

	patch := store.Record{}
	copyRequired(patch, values, "primary_email_address", "email")
	copyRequired(patch, values, "name", "name")
	copyPresent(patch, values, "avatar_url", "avatar_url")
	return patch, nil
}

// copyPresent sets patch[local] only when the inbound record carried the attribute,
// so absent attributes never clear local columns.
func copyPresent(patch, values store.Record, external, local string) {
	if v, ok := values[external]; ok {
		if list, isList := v.([]any); isList && len(list) > 0 {
			v = list[0]
		}
		patch[local] = v
	}
}

// copyRequired is copyPresent for NOT NULL columns: an empty envelope leaves the local
// value untouched instead of clearing it.
func copyRequired(patch, values store.Record, external, local string) {
	copyPresent(patch, values, external, local)
	if _, ok := patch[local]; ok && patch.String(local) == "" {
		delete(patch, local)
	}
}

func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
