package attio_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cast"

	"basegraph.app/crmsync/internal/attio"
	"basegraph.app/crmsync/internal/store"
)

var _ = Describe("Organization membership", func() {
	var (
		ctx     context.Context
		mem     *store.MemoryStore
		emitter *recordingEmitter
		r       *attio.Reconciler
		users   map[string]int64
		orgID   int64
	)

	memberRows := func() map[int64]int64 {
		rows, err := mem.FindMany(ctx, store.ModelMember, store.Eq("organization_id", orgID))
		Expect(err).NotTo(HaveOccurred())
		out := map[int64]int64{}
		for _, row := range rows {
			out[cast.ToInt64(row["user_id"])] = row.ID()
		}
		return out
	}

	BeforeEach(func() {
		ctx = context.Background()
		mem = store.NewMemoryStore()
		emitter = &recordingEmitter{}
		r = attio.NewReconciler(attio.MustNewRegistry(attio.Builtins(attio.Features{Organizations: true})), mem, emitter)

		users = map[string]int64{}
		for _, name := range []string{"A", "B", "C", "D"} {
			rec, err := mem.Create(ctx, store.ModelUser, store.Record{"name": name, "attio_id": "u" + name})
			Expect(err).NotTo(HaveOccurred())
			users[name] = rec.ID()
		}
		org, err := mem.Create(ctx, store.ModelOrganization, store.Record{"name": "Acme", "slug": "acme", "attio_id": "ws_1"})
		Expect(err).NotTo(HaveOccurred())
		orgID = org.ID()
		for _, name := range []string{"A", "B", "C"} {
			_, err := mem.Create(ctx, store.ModelMember, store.Record{"organization_id": orgID, "user_id": users[name], "role": "member"})
			Expect(err).NotTo(HaveOccurred())
		}
	})

	It("converges the member set on the external reference list", func() {
		before := memberRows()

		res := r.Reconcile(ctx, batch(webhookEvent("record.updated", "workspaces", "ws_1", map[string]attio.ValueEnvelope{
			"name":  text("Acme"),
			"users": refs("uB", "uC", "uD", "u_unknown"),
		})))
		Expect(res.Processed).To(Equal(1))

		after := memberRows()
		Expect(after).To(HaveLen(3))
		Expect(after).NotTo(HaveKey(users["A"]))
		Expect(after).To(HaveKey(users["D"]))
		Expect(after[users["B"]]).To(Equal(before[users["B"]]))
		Expect(after[users["C"]]).To(Equal(before[users["C"]]))
		Expect(mem.Count(store.ModelUser)).To(Equal(4))

		d, err := mem.FindOne(ctx, store.ModelMember, store.Eq("organization_id", orgID), store.Eq("user_id", users["D"]))
		Expect(err).NotTo(HaveOccurred())
		Expect(d.String("role")).To(Equal("member"))

		out := emitter.emissions()
		Expect(out).To(HaveLen(1))
		Expect(out[0].model).To(Equal(store.ModelOrganization))
		Expect(out[0].event).To(Equal(attio.EventUpdate))
	})

	It("leaves memberships alone when the reference list is not carried", func() {
		r.Reconcile(ctx, batch(webhookEvent("record.updated", "workspaces", "ws_1", map[string]attio.ValueEnvelope{
			"name": text("Acme"),
		})))
		Expect(memberRows()).To(HaveLen(3))
		Expect(emitter.emissions()).To(BeEmpty())
	})

	It("removes every member for an empty reference list", func() {
		r.Reconcile(ctx, batch(webhookEvent("record.updated", "workspaces", "ws_1", map[string]attio.ValueEnvelope{
			"users": {},
		})))
		Expect(memberRows()).To(BeEmpty())
	})

	It("creates an organization with its members in one pass", func() {
		res := r.Reconcile(ctx, batch(webhookEvent("record.created", "workspaces", "ws_2", map[string]attio.ValueEnvelope{
			"name":  text("Acme"),
			"users": refs("uA"),
		})))
		Expect(res.Processed).To(Equal(1))

		org, err := mem.FindOne(ctx, store.ModelOrganization, store.Eq("attio_id", "ws_2"))
		Expect(err).NotTo(HaveOccurred())
		Expect(org.String("slug")).To(Equal("acme-1"))

		rows, err := mem.FindMany(ctx, store.ModelMember, store.Eq("organization_id", org.ID()))
		Expect(err).NotTo(HaveOccurred())
		Expect(rows).To(HaveLen(1))

		out := emitter.emissions()
		Expect(out).To(HaveLen(1))
		Expect(out[0].event).To(Equal(attio.EventCreate))
	})

	It("deletes memberships before the organization", func() {
		res := r.Reconcile(ctx, batch(webhookEvent("record.deleted", "workspaces", "ws_1", nil)))
		Expect(res.Processed).To(Equal(1))

		Expect(memberRows()).To(BeEmpty())
		_, err := mem.FindOne(ctx, store.ModelOrganization, store.Eq("id", orgID))
		Expect(err).To(MatchError(store.ErrNotFound))
		Expect(mem.Count(store.ModelUser)).To(Equal(4))
	})

	It("deletes a user's memberships with the user", func() {
		r.Reconcile(ctx, batch(webhookEvent("record.deleted", "users", "uA", nil)))

		Expect(memberRows()).To(HaveLen(2))
		Expect(memberRows()).NotTo(HaveKey(users["A"]))
		Expect(mem.Count(store.ModelUser)).To(Equal(3))
	})

	It("reports what changed when called directly", func() {
		sc := &attio.SyncContext{Store: mem}
		change, err := attio.ReconcileMembers(ctx, sc, orgID, []string{"uB", "uC", "uD"})
		Expect(err).NotTo(HaveOccurred())
		Expect(change.Removed).To(Equal([]int64{users["A"]}))
		Expect(change.Added).To(Equal([]int64{users["D"]}))

		change, err = attio.ReconcileMembers(ctx, sc, orgID, []string{"uB", "uC", "uD"})
		Expect(err).NotTo(HaveOccurred())
		Expect(change.Changed()).To(BeFalse())
	})
})
