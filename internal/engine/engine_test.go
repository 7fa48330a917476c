package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"gigledger/internal/config"
	"gigledger/internal/db"
	"gigledger/internal/engine"
	"gigledger/internal/engine/auth"
	"gigledger/internal/migrate"
	"gigledger/internal/repo"
)

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	cfg := config.Default("test-ledger")
	eng := engine.New(conn, cfg)
	eng.Now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	return testEnv{Engine: eng, Ctx: context.Background()}
}

func (env testEnv) fund(t *testing.T, principal string, amount uint64) {
	t.Helper()
	if _, err := env.Engine.Deposit(env.Ctx, principal, amount); err != nil {
		t.Fatalf("deposit for %s: %v", principal, err)
	}
}

func TestCreateGigAssignsSequentialIDs(t *testing.T) {
	env := newTestEnv(t)
	env.fund(t, "alice", 5000)
	first, err := env.Engine.CreateGig(env.Ctx, "alice", "Build a site", "", 1000)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if first.ID != 1 {
		t.Fatalf("expected first gig id 1, got %d", first.ID)
	}
	second, err := env.Engine.CreateGig(env.Ctx, "alice", "Write docs", "", 1000)
	if err != nil {
		t.Fatalf("create second: %v", err)
	}
	if second.ID != 2 {
		t.Fatalf("expected second gig id 2, got %d", second.ID)
	}
}

func TestGigLifecycleHappyPath(t *testing.T) {
	env := newTestEnv(t)
	env.fund(t, "alice", 1500)
	g, err := env.Engine.CreateGig(env.Ctx, "alice", "Logo design", "vector format", 1000)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	// payment moved to escrow up front
	acc, err := env.Engine.Repo.GetAccount(env.Ctx, "alice")
	if err != nil {
		t.Fatalf("owner account: %v", err)
	}
	if acc.Balance != 500 {
		t.Fatalf("expected owner balance 500, got %d", acc.Balance)
	}
	if _, err := env.Engine.AcceptGig(env.Ctx, "bob", g.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := env.Engine.CompleteGig(env.Ctx, "bob", g.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	paid, err := env.Engine.ReleasePayment(env.Ctx, "alice", g.ID)
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if paid.Status != engine.StatusPaid {
		t.Fatalf("expected paid status, got %s", paid.Status)
	}
	worker, err := env.Engine.Repo.GetAccount(env.Ctx, "bob")
	if err != nil {
		t.Fatalf("worker account: %v", err)
	}
	if worker.Balance != 1000 {
		t.Fatalf("expected worker balance 1000, got %d", worker.Balance)
	}
	esc, err := env.Engine.Repo.GetEscrow(env.Ctx, g.ID)
	if err != nil {
		t.Fatalf("escrow: %v", err)
	}
	if esc.Status != repo.EscrowReleased {
		t.Fatalf("expected escrow released, got %s", esc.Status)
	}
}

func TestCreateGigRequiresFunds(t *testing.T) {
	env := newTestEnv(t)
	env.fund(t, "alice", 100)
	_, err := env.Engine.CreateGig(env.Ctx, "alice", "Too big", "", 1000)
	var insufficient engine.InsufficientFundsError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	if insufficient.Have != 100 || insufficient.Need != 1000 {
		t.Fatalf("unexpected amounts in error: %+v", insufficient)
	}
}

func TestZeroPaymentGig(t *testing.T) {
	env := newTestEnv(t)
	// nothing to lock, so no funding needed
	g, err := env.Engine.CreateGig(env.Ctx, "alice", "Pro bono", "", 0)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := env.Engine.AddMilestone(env.Ctx, "alice", g.ID, "handoff", 0); err != nil {
		t.Fatalf("zero milestone: %v", err)
	}
	if _, err := env.Engine.AcceptGig(env.Ctx, "bob", g.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.CompleteGig(env.Ctx, "bob", g.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.ReleasePayment(env.Ctx, "alice", g.ID); err != nil {
		t.Fatalf("release: %v", err)
	}
	worker, err := env.Engine.Repo.GetAccount(env.Ctx, "bob")
	if err != nil {
		t.Fatal(err)
	}
	if worker.Balance != 0 {
		t.Fatalf("expected zero payout, got %d", worker.Balance)
	}
}

func TestDepositRejectsZeroAmount(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.Deposit(env.Ctx, "alice", 0)
	var invalid engine.InvalidAmountError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected invalid amount, got %v", err)
	}
}

func TestAcceptRejectsOwnerAndNonOpen(t *testing.T) {
	env := newTestEnv(t)
	env.fund(t, "alice", 1000)
	g, err := env.Engine.CreateGig(env.Ctx, "alice", "Gig", "", 1000)
	if err != nil {
		t.Fatal(err)
	}
	// owner cannot take their own gig
	_, err = env.Engine.AcceptGig(env.Ctx, "alice", g.ID)
	var unauthorized auth.UnauthorizedError
	if !errors.As(err, &unauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if _, err := env.Engine.AcceptGig(env.Ctx, "bob", g.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}
	// second accept finds the gig no longer open
	_, err = env.Engine.AcceptGig(env.Ctx, "carol", g.ID)
	var invalidState engine.InvalidStateError
	if !errors.As(err, &invalidState) {
		t.Fatalf("expected invalid state, got %v", err)
	}
	// the state check wins even for the owner
	_, err = env.Engine.AcceptGig(env.Ctx, "alice", g.ID)
	if !errors.As(err, &invalidState) {
		t.Fatalf("expected invalid state for owner on accepted gig, got %v", err)
	}
}

func TestCompleteRequiresWorker(t *testing.T) {
	env := newTestEnv(t)
	env.fund(t, "alice", 1000)
	g, _ := env.Engine.CreateGig(env.Ctx, "alice", "Gig", "", 1000)
	if _, err := env.Engine.AcceptGig(env.Ctx, "bob", g.ID); err != nil {
		t.Fatal(err)
	}
	_, err := env.Engine.CompleteGig(env.Ctx, "carol", g.ID)
	var unauthorized auth.UnauthorizedError
	if !errors.As(err, &unauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if _, err := env.Engine.CompleteGig(env.Ctx, "bob", g.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}
}

func TestReleaseOnlyFromCompleted(t *testing.T) {
	env := newTestEnv(t)
	env.fund(t, "alice", 1000)
	g, _ := env.Engine.CreateGig(env.Ctx, "alice", "Gig", "", 1000)
	if _, err := env.Engine.AcceptGig(env.Ctx, "bob", g.ID); err != nil {
		t.Fatal(err)
	}
	// accepted is too early
	_, err := env.Engine.ReleasePayment(env.Ctx, "alice", g.ID)
	var invalidState engine.InvalidStateError
	if !errors.As(err, &invalidState) {
		t.Fatalf("expected invalid state, got %v", err)
	}
	if _, err := env.Engine.CompleteGig(env.Ctx, "bob", g.ID); err != nil {
		t.Fatal(err)
	}
	// only the owner can pay out
	_, err = env.Engine.ReleasePayment(env.Ctx, "bob", g.ID)
	var unauthorized auth.UnauthorizedError
	if !errors.As(err, &unauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if _, err := env.Engine.ReleasePayment(env.Ctx, "alice", g.ID); err != nil {
		t.Fatalf("release: %v", err)
	}
	// double release must not pay twice
	_, err = env.Engine.ReleasePayment(env.Ctx, "alice", g.ID)
	if !errors.As(err, &invalidState) {
		t.Fatalf("expected invalid state on second release, got %v", err)
	}
	worker, _ := env.Engine.Repo.GetAccount(env.Ctx, "bob")
	if worker.Balance != 1000 {
		t.Fatalf("expected single payout of 1000, got %d", worker.Balance)
	}
}

func TestMilestoneBudget(t *testing.T) {
	env := newTestEnv(t)
	env.fund(t, "alice", 1000)
	g, _ := env.Engine.CreateGig(env.Ctx, "alice", "Gig", "", 1000)
	if _, err := env.Engine.AddMilestone(env.Ctx, "alice", g.ID, "draft", 600); err != nil {
		t.Fatalf("first milestone: %v", err)
	}
	// 600 + 500 would exceed the 1000 payment
	_, err := env.Engine.AddMilestone(env.Ctx, "alice", g.ID, "final", 500)
	var exceeded engine.BudgetExceededError
	if !errors.As(err, &exceeded) {
		t.Fatalf("expected budget exceeded, got %v", err)
	}
	if exceeded.Allocated != 600 || exceeded.Requested != 500 {
		t.Fatalf("unexpected budget error: %+v", exceeded)
	}
	got, err := env.Engine.GetGig(env.Ctx, g.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Milestones) != 1 {
		t.Fatalf("rejected milestone must not persist, have %d", len(got.Milestones))
	}
	m, err := env.Engine.AddMilestone(env.Ctx, "alice", g.ID, "final", 400)
	if err != nil {
		t.Fatalf("exact fit milestone: %v", err)
	}
	if m.Position != 1 {
		t.Fatalf("expected position 1, got %d", m.Position)
	}
	if _, err := env.Engine.AcceptGig(env.Ctx, "bob", g.ID); err != nil {
		t.Fatal(err)
	}
	// only the worker signs off on deliverables
	_, err = env.Engine.CompleteMilestone(env.Ctx, "alice", g.ID, 0)
	var unauthorized auth.UnauthorizedError
	if !errors.As(err, &unauthorized) {
		t.Fatalf("expected unauthorized for owner, got %v", err)
	}
	done, err := env.Engine.CompleteMilestone(env.Ctx, "bob", g.ID, 0)
	if err != nil {
		t.Fatalf("complete milestone: %v", err)
	}
	if !done.Completed {
		t.Fatalf("expected milestone completed")
	}
}

func TestRatingRange(t *testing.T) {
	env := newTestEnv(t)
	for _, score := range []uint64{0, 6} {
		_, err := env.Engine.RateUser(env.Ctx, "alice", "bob", score)
		var invalid engine.InvalidRatingError
		if !errors.As(err, &invalid) {
			t.Fatalf("score %d: expected invalid rating, got %v", score, err)
		}
	}
	rec, err := env.Engine.RateUser(env.Ctx, "alice", "bob", 5)
	if err != nil {
		t.Fatalf("rate: %v", err)
	}
	if rec.Count != 1 || rec.TotalScore != 5 {
		t.Fatalf("unexpected record %+v", rec)
	}
	rec, err = env.Engine.RateUser(env.Ctx, "carol", "bob", 3)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Count != 2 || rec.Average() != 4 {
		t.Fatalf("expected average 4 over 2 ratings, got %+v", rec)
	}
}

func TestPortfolioReplacesInFull(t *testing.T) {
	env := newTestEnv(t)
	p, err := env.Engine.UpdatePortfolio(env.Ctx, "bob", []string{"go", " go ", "sql", ""}, "backend dev")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(p.Skills) != 2 {
		t.Fatalf("expected deduped skills, got %v", p.Skills)
	}
	if _, err := env.Engine.UpdatePortfolio(env.Ctx, "bob", []string{"rust"}, ""); err != nil {
		t.Fatal(err)
	}
	stored, err := env.Engine.Repo.GetProfile(env.Ctx, "bob")
	if err != nil {
		t.Fatal(err)
	}
	if len(stored.Skills) != 1 || stored.Skills[0] != "rust" {
		t.Fatalf("expected full replacement, got %v", stored.Skills)
	}
	if stored.Bio != "" {
		t.Fatalf("expected bio cleared, got %q", stored.Bio)
	}
}

func TestCategoriesDedupeAndOrder(t *testing.T) {
	env := newTestEnv(t)
	env.fund(t, "alice", 1000)
	g, _ := env.Engine.CreateGig(env.Ctx, "alice", "Gig", "", 1000)
	labels, err := env.Engine.AddCategories(env.Ctx, "alice", g.ID, []string{"design", "web", "design"})
	if err != nil {
		t.Fatalf("add categories: %v", err)
	}
	if len(labels) != 2 {
		t.Fatalf("expected 2 labels, got %v", labels)
	}
	labels, err = env.Engine.AddCategories(env.Ctx, "alice", g.ID, []string{"web", "logo"})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"design", "web", "logo"}
	if len(labels) != len(want) {
		t.Fatalf("expected %v, got %v", want, labels)
	}
	for i := range want {
		if labels[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, labels)
		}
	}
	// only the owner tags a gig
	_, err = env.Engine.AddCategories(env.Ctx, "bob", g.ID, []string{"spam"})
	var unauthorized auth.UnauthorizedError
	if !errors.As(err, &unauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestDisputeFlagsGigStatus(t *testing.T) {
	env := newTestEnv(t)
	env.fund(t, "alice", 1000)
	g, _ := env.Engine.CreateGig(env.Ctx, "alice", "Gig", "", 1000)
	// disputes on open gigs are recorded but never branch the status
	if _, err := env.Engine.CreateDispute(env.Ctx, "alice", g.ID, "vanished"); err != nil {
		t.Fatalf("dispute on open gig: %v", err)
	}
	got, err := env.Engine.GetGig(env.Ctx, g.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != engine.StatusOpen {
		t.Fatalf("expected status still open, got %s", got.Status)
	}
	if got.Dispute == nil || got.Dispute.Description != "vanished" {
		t.Fatalf("expected dispute recorded, got %+v", got.Dispute)
	}
	if _, err := env.Engine.AcceptGig(env.Ctx, "bob", g.ID); err != nil {
		t.Fatal(err)
	}
	// outsiders cannot dispute
	_, err = env.Engine.CreateDispute(env.Ctx, "mallory", g.ID, "unrelated")
	var unauthorized auth.UnauthorizedError
	if !errors.As(err, &unauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	d, err := env.Engine.CreateDispute(env.Ctx, "bob", g.ID, "scope creep")
	if err != nil {
		t.Fatalf("dispute: %v", err)
	}
	if d.RaisedBy != "bob" {
		t.Fatalf("unexpected dispute %+v", d)
	}
	got, err = env.Engine.GetGig(env.Ctx, g.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != engine.StatusDisputed {
		t.Fatalf("expected disputed status, got %s", got.Status)
	}
	if got.Dispute == nil || got.Dispute.Description != "scope creep" {
		t.Fatalf("expected dispute attached, got %+v", got.Dispute)
	}
}

func TestDisputeWithoutStatusFlag(t *testing.T) {
	env := newTestEnv(t)
	env.Engine.Config.Disputes.FlagStatus = false
	env.fund(t, "alice", 1000)
	g, _ := env.Engine.CreateGig(env.Ctx, "alice", "Gig", "", 1000)
	if _, err := env.Engine.AcceptGig(env.Ctx, "bob", g.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.CreateDispute(env.Ctx, "alice", g.ID, "late"); err != nil {
		t.Fatal(err)
	}
	got, err := env.Engine.GetGig(env.Ctx, g.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != engine.StatusAccepted {
		t.Fatalf("expected status untouched, got %s", got.Status)
	}
	if got.Dispute == nil {
		t.Fatalf("expected dispute recorded")
	}
}

func TestGetGigMissingReturnsNil(t *testing.T) {
	env := newTestEnv(t)
	g, err := env.Engine.GetGig(env.Ctx, 999)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if g != nil {
		t.Fatalf("expected nil for missing gig, got %+v", g)
	}
	ug, err := env.Engine.GetUserGigs(env.Ctx, "nobody")
	if err != nil {
		t.Fatalf("user gigs: %v", err)
	}
	if ug != nil {
		t.Fatalf("expected nil for unknown principal, got %+v", ug)
	}
}

func TestGetUserGigsSplitsRoles(t *testing.T) {
	env := newTestEnv(t)
	env.fund(t, "alice", 2000)
	env.fund(t, "bob", 1000)
	g1, _ := env.Engine.CreateGig(env.Ctx, "alice", "One", "", 1000)
	g2, _ := env.Engine.CreateGig(env.Ctx, "bob", "Two", "", 1000)
	if _, err := env.Engine.AcceptGig(env.Ctx, "alice", g2.ID); err != nil {
		t.Fatal(err)
	}
	ug, err := env.Engine.GetUserGigs(env.Ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if len(ug.Owned) != 1 || ug.Owned[0] != g1.ID {
		t.Fatalf("unexpected owned %v", ug.Owned)
	}
	if len(ug.Worked) != 1 || ug.Worked[0] != g2.ID {
		t.Fatalf("unexpected worked %v", ug.Worked)
	}
	if ug.Total != 2 {
		t.Fatalf("expected total 2, got %d", ug.Total)
	}
}

func TestListGigsFilters(t *testing.T) {
	env := newTestEnv(t)
	env.fund(t, "alice", 3000)
	g1, _ := env.Engine.CreateGig(env.Ctx, "alice", "One", "", 1000)
	g2, _ := env.Engine.CreateGig(env.Ctx, "alice", "Two", "", 1000)
	if _, err := env.Engine.AcceptGig(env.Ctx, "bob", g1.ID); err != nil {
		t.Fatal(err)
	}
	open, err := env.Engine.ListGigs(env.Ctx, repo.GigFilters{Status: engine.StatusOpen})
	if err != nil {
		t.Fatal(err)
	}
	if len(open) != 1 || open[0].ID != g2.ID {
		t.Fatalf("unexpected open gigs %+v", open)
	}
	mine, err := env.Engine.ListGigs(env.Ctx, repo.GigFilters{Worker: "bob"})
	if err != nil {
		t.Fatal(err)
	}
	if len(mine) != 1 || mine[0].ID != g1.ID {
		t.Fatalf("unexpected worker gigs %+v", mine)
	}
}

func TestEventAppendOnStateChanges(t *testing.T) {
	env := newTestEnv(t)
	env.fund(t, "alice", 1000)
	g, _ := env.Engine.CreateGig(env.Ctx, "alice", "Gig", "", 1000)
	_, _ = env.Engine.AcceptGig(env.Ctx, "bob", g.ID)
	_, _ = env.Engine.CompleteGig(env.Ctx, "bob", g.ID)
	_, _ = env.Engine.ReleasePayment(env.Ctx, "alice", g.ID)
	rows, err := env.Engine.DB.QueryContext(env.Ctx, `SELECT type FROM events WHERE entity_kind='gig' AND entity_id=? ORDER BY id`, "1")
	if err != nil {
		t.Fatalf("query events: %v", err)
	}
	defer rows.Close()
	var types []string
	for rows.Next() {
		var typ string
		if err := rows.Scan(&typ); err != nil {
			t.Fatal(err)
		}
		types = append(types, typ)
	}
	want := []string{"gig.created", "gig.accepted", "gig.completed", "payment.released"}
	if len(types) != len(want) {
		t.Fatalf("expected %v, got %v", want, types)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, types)
		}
	}
}
