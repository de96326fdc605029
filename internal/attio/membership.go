package attio

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cast"

	"basegraph.app/crmsync/common/id"
	"basegraph.app/crmsync/internal/model"
	"basegraph.app/crmsync/internal/store"
)

// MembershipChange reports the user ids whose membership was removed or added.
type MembershipChange struct {
	Removed []int64
	Added   []int64
}

func (c MembershipChange) Changed() bool {
	return len(c.Removed) > 0 || len(c.Added) > 0
}

// ReconcileMembers makes the organization's member set equal the local users correlated with
// userRefs. Unknown references are dropped; users are never created. All membership writes
// happen in one transaction.
func ReconcileMembers(ctx context.Context, sc *SyncContext, orgID int64, userRefs []string) (MembershipChange, error) {
	var change MembershipChange

	err := sc.WithTx(ctx, func(tx *SyncContext) error {
		current, err := memberUserIDs(ctx, tx.Store, orgID)
		if err != nil {
			return err
		}
		target, err := resolveUserRefs(ctx, tx.Store, userRefs)
		if err != nil {
			return err
		}

		for userID := range current {
			if !target[userID] {
				change.Removed = append(change.Removed, userID)
			}
		}
		for userID := range target {
			if !current[userID] {
				change.Added = append(change.Added, userID)
			}
		}
		sortIDs(change.Removed)
		sortIDs(change.Added)

		for _, userID := range change.Removed {
			if err := tx.Store.Delete(ctx, store.ModelMember,
				store.Eq("organization_id", orgID), store.Eq("user_id", userID)); err != nil {
				return fmt.Errorf("removing member %d: %w", userID, err)
			}
		}
		for _, userID := range change.Added {
			if _, err := tx.Store.Create(ctx, store.ModelMember, store.Record{
				"id":              id.New(),
				"organization_id": orgID,
				"user_id":         userID,
				"role":            model.DefaultMemberRole,
			}); err != nil {
				return fmt.Errorf("adding member %d: %w", userID, err)
			}
		}
		return nil
	})
	if err != nil {
		return MembershipChange{}, fmt.Errorf("reconciling members of organization %d: %w", orgID, err)
	}
	return change, nil
}

// DeleteOrganization removes every membership of the organization and then the organization,
// in one transaction.
func DeleteOrganization(ctx context.Context, sc *SyncContext, orgID int64) error {
	return sc.WithTx(ctx, func(tx *SyncContext) error {
		if err := tx.Store.Delete(ctx, store.ModelMember, store.Eq("organization_id", orgID)); err != nil {
			return fmt.Errorf("deleting members of organization %d: %w", orgID, err)
		}
		if err := tx.Store.Delete(ctx, store.ModelOrganization, store.Eq("id", orgID)); err != nil {
			return fmt.Errorf("deleting organization %d: %w", orgID, err)
		}
		return nil
	})
}

// DeleteUser removes every membership of the user and then the user, in one transaction.
func DeleteUser(ctx context.Context, sc *SyncContext, userID int64) error {
	return sc.WithTx(ctx, func(tx *SyncContext) error {
		if err := tx.Store.Delete(ctx, store.ModelMember, store.Eq("user_id", userID)); err != nil {
			return fmt.Errorf("deleting memberships of user %d: %w", userID, err)
		}
		if err := tx.Store.Delete(ctx, store.ModelUser, store.Eq("id", userID)); err != nil {
			return fmt.Errorf("deleting user %d: %w", userID, err)
		}
		return nil
	})
}

func memberUserIDs(ctx context.Context, ds store.DataStore, orgID int64) (map[int64]bool, error) {
	rows, err := ds.FindMany(ctx, store.ModelMember, store.Eq("organization_id", orgID))
	if err != nil {
		return nil, fmt.Errorf("loading members: %w", err)
	}
	ids := make(map[int64]bool, len(rows))
	for _, row := range rows {
		ids[cast.ToInt64(row["user_id"])] = true
	}
	return ids, nil
}

func resolveUserRefs(ctx context.Context, ds store.DataStore, refs []string) (map[int64]bool, error) {
	ids := make(map[int64]bool, len(refs))
	if len(refs) == 0 {
		return ids, nil
	}
	users, err := ds.FindMany(ctx, store.ModelUser, store.In(store.AttioIDField, refs))
	if err != nil {
		return nil, fmt.Errorf("resolving user references: %w", err)
	}
	for _, u := range users {
		ids[u.ID()] = true
	}
	return ids, nil
}

func sortIDs(ids []int64) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
