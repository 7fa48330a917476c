package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"gigledger/internal/config"
	"gigledger/internal/domain"
	"gigledger/internal/engine/auth"
	"gigledger/internal/events"
	"gigledger/internal/repo"
)

const (
	StatusOpen      = "open"
	StatusAccepted  = "accepted"
	StatusCompleted = "completed"
	StatusPaid      = "paid"
	StatusDisputed  = "disputed"
)

type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Config *config.Config
	Now    func() time.Time
}

func New(db *sql.DB, cfg *config.Config) Engine {
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{DB: db},
		Config: cfg,
		Now:    time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func ensureGigTransition(op, oldStatus, newStatus string) error {
	switch oldStatus {
	case StatusOpen:
		if newStatus == StatusAccepted {
			return nil
		}
	case StatusAccepted:
		if newStatus == StatusCompleted || newStatus == StatusDisputed {
			return nil
		}
	case StatusCompleted:
		if newStatus == StatusPaid || newStatus == StatusDisputed {
			return nil
		}
	}
	return InvalidStateError{Op: op, Status: oldStatus}
}

// CreateGig posts a gig and locks its payment in escrow. The payment is
// debited from the owner's account up front so release can never bounce.
func (e Engine) CreateGig(ctx context.Context, caller, title, description string, payment uint64) (domain.Gig, error) {
	if e.Config == nil {
		return domain.Gig{}, errors.New("config not loaded")
	}
	if caller == "" {
		return domain.Gig{}, errors.New("caller is required")
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return domain.Gig{}, errors.New("title is required")
	}
	if len(title) > e.Config.Limits.MaxTitle {
		return domain.Gig{}, fmt.Errorf("title exceeds %d characters", e.Config.Limits.MaxTitle)
	}
	if len(description) > e.Config.Limits.MaxDescription {
		return domain.Gig{}, fmt.Errorf("description exceeds %d characters", e.Config.Limits.MaxDescription)
	}
	now := e.now().UTC().Format(time.RFC3339)
	g := domain.Gig{
		Title:       title,
		Description: description,
		Payment:     payment,
		Owner:       caller,
		Status:      StatusOpen,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Gig{}, err
	}
	defer tx.Rollback()

	// zero-payment gigs lock nothing
	if payment > 0 {
		ok, err := e.Repo.DebitAccount(ctx, tx, caller, payment, now)
		if err != nil {
			return domain.Gig{}, err
		}
		if !ok {
			have := uint64(0)
			if acc, accErr := e.Repo.GetAccountTx(ctx, tx, caller); accErr == nil {
				have = acc.Balance
			}
			return domain.Gig{}, InsufficientFundsError{Principal: caller, Need: payment, Have: have}
		}
	}
	id, err := e.Repo.InsertGig(ctx, tx, g)
	if err != nil {
		return domain.Gig{}, fmt.Errorf("insert gig: %w", err)
	}
	g.ID = id
	if err := e.Repo.InsertEscrow(ctx, tx, domain.EscrowEntry{
		GigID:    id,
		Owner:    caller,
		Amount:   payment,
		Status:   repo.EscrowLocked,
		LockedAt: now,
	}); err != nil {
		return domain.Gig{}, fmt.Errorf("insert escrow: %w", err)
	}
	if err := e.Events.Append(ctx, tx, "gig.created", "gig", gigEntityID(id), caller, events.EventPayload{
		"title":   g.Title,
		"payment": g.Payment,
	}); err != nil {
		return domain.Gig{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Gig{}, err
	}
	return g, nil
}

// AcceptGig assigns the caller as worker on an open gig.
func (e Engine) AcceptGig(ctx context.Context, caller string, gigID uint64) (domain.Gig, error) {
	if caller == "" {
		return domain.Gig{}, errors.New("caller is required")
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Gig{}, err
	}
	defer tx.Rollback()

	g, err := e.Repo.GetGigTx(ctx, tx, gigID)
	if err != nil {
		return g, err
	}
	if err := ensureGigTransition("accept", g.Status, StatusAccepted); err != nil {
		return g, err
	}
	if g.Owner == caller {
		return g, auth.UnauthorizedError{Role: "worker"}
	}
	now := e.now().UTC().Format(time.RFC3339)
	if err := e.Repo.SetGigWorker(ctx, tx, gigID, caller, StatusAccepted, now); err != nil {
		return g, err
	}
	if err := e.Events.Append(ctx, tx, "gig.accepted", "gig", gigEntityID(gigID), caller, events.EventPayload{
		"worker": caller,
	}); err != nil {
		return g, err
	}
	if err := tx.Commit(); err != nil {
		return g, err
	}
	g.Worker = &caller
	g.Status = StatusAccepted
	g.UpdatedAt = now
	return g, nil
}

// CompleteGig lets the worker mark an accepted gig delivered.
func (e Engine) CompleteGig(ctx context.Context, caller string, gigID uint64) (domain.Gig, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Gig{}, err
	}
	defer tx.Rollback()

	g, err := e.Repo.GetGigTx(ctx, tx, gigID)
	if err != nil {
		return g, err
	}
	if err := auth.RequireWorker(g, caller); err != nil {
		return g, err
	}
	if err := ensureGigTransition("complete", g.Status, StatusCompleted); err != nil {
		return g, err
	}
	now := e.now().UTC().Format(time.RFC3339)
	if err := e.Repo.UpdateGigStatus(ctx, tx, gigID, StatusCompleted, now); err != nil {
		return g, err
	}
	if err := e.Events.Append(ctx, tx, "gig.completed", "gig", gigEntityID(gigID), caller, nil); err != nil {
		return g, err
	}
	if err := tx.Commit(); err != nil {
		return g, err
	}
	g.Status = StatusCompleted
	g.UpdatedAt = now
	return g, nil
}

// ReleasePayment pays the worker from escrow once the owner signs off.
func (e Engine) ReleasePayment(ctx context.Context, caller string, gigID uint64) (domain.Gig, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Gig{}, err
	}
	defer tx.Rollback()

	g, err := e.Repo.GetGigTx(ctx, tx, gigID)
	if err != nil {
		return g, err
	}
	if err := auth.RequireOwner(g, caller); err != nil {
		return g, err
	}
	if err := ensureGigTransition("release", g.Status, StatusPaid); err != nil {
		return g, err
	}
	if g.Worker == nil {
		return g, InvalidStateError{Op: "release", Status: g.Status}
	}
	now := e.now().UTC().Format(time.RFC3339)
	if err := e.Repo.ReleaseEscrow(ctx, tx, gigID, now); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return g, InvalidStateError{Op: "release", Status: g.Status}
		}
		return g, err
	}
	if err := e.Repo.CreditAccount(ctx, tx, *g.Worker, g.Payment, now); err != nil {
		return g, err
	}
	if err := e.Repo.UpdateGigStatus(ctx, tx, gigID, StatusPaid, now); err != nil {
		return g, err
	}
	if err := e.Events.Append(ctx, tx, "payment.released", "gig", gigEntityID(gigID), caller, events.EventPayload{
		"worker": *g.Worker,
		"amount": g.Payment,
	}); err != nil {
		return g, err
	}
	if err := tx.Commit(); err != nil {
		return g, err
	}
	g.Status = StatusPaid
	g.UpdatedAt = now
	return g, nil
}

// CreateDispute records a dispute by either participant. The gig status
// branches to disputed only when configured and the work is underway.
func (e Engine) CreateDispute(ctx context.Context, caller string, gigID uint64, description string) (domain.Dispute, error) {
	if e.Config == nil {
		return domain.Dispute{}, errors.New("config not loaded")
	}
	if len(description) > e.Config.Limits.MaxDescription {
		return domain.Dispute{}, fmt.Errorf("description exceeds %d characters", e.Config.Limits.MaxDescription)
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Dispute{}, err
	}
	defer tx.Rollback()

	g, err := e.Repo.GetGigTx(ctx, tx, gigID)
	if err != nil {
		return domain.Dispute{}, err
	}
	if err := auth.RequireParticipant(g, caller); err != nil {
		return domain.Dispute{}, err
	}
	now := e.now().UTC().Format(time.RFC3339)
	d := domain.Dispute{
		GigID:       gigID,
		RaisedBy:    caller,
		Description: description,
		Status:      "open",
		CreatedAt:   now,
	}
	if err := e.Repo.UpsertDispute(ctx, tx, d); err != nil {
		return d, err
	}
	if e.Config.Disputes.FlagStatus && (g.Status == StatusAccepted || g.Status == StatusCompleted) {
		if err := e.Repo.UpdateGigStatus(ctx, tx, gigID, StatusDisputed, now); err != nil {
			return d, err
		}
	}
	if err := e.Events.Append(ctx, tx, "dispute.created", "gig", gigEntityID(gigID), caller, events.EventPayload{
		"raised_by": caller,
	}); err != nil {
		return d, err
	}
	if err := tx.Commit(); err != nil {
		return d, err
	}
	return d, nil
}

// AddMilestone books part of the gig payment against a named deliverable.
// Milestone amounts can never exceed the total payment.
func (e Engine) AddMilestone(ctx context.Context, caller string, gigID uint64, description string, amount uint64) (domain.Milestone, error) {
	if e.Config == nil {
		return domain.Milestone{}, errors.New("config not loaded")
	}
	if len(description) > e.Config.Limits.MaxDescription {
		return domain.Milestone{}, fmt.Errorf("description exceeds %d characters", e.Config.Limits.MaxDescription)
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Milestone{}, err
	}
	defer tx.Rollback()

	g, err := e.Repo.GetGigTx(ctx, tx, gigID)
	if err != nil {
		return domain.Milestone{}, err
	}
	if err := auth.RequireOwner(g, caller); err != nil {
		return domain.Milestone{}, err
	}
	if g.Status != StatusOpen && g.Status != StatusAccepted {
		return domain.Milestone{}, InvalidStateError{Op: "add-milestone", Status: g.Status}
	}
	allocated, err := e.Repo.MilestoneAllocated(ctx, tx, gigID)
	if err != nil {
		return domain.Milestone{}, err
	}
	if allocated+amount > g.Payment {
		return domain.Milestone{}, BudgetExceededError{Payment: g.Payment, Allocated: allocated, Requested: amount}
	}
	existing, err := e.Repo.ListMilestonesTx(ctx, tx, gigID)
	if err != nil {
		return domain.Milestone{}, err
	}
	m := domain.Milestone{
		GigID:       gigID,
		Position:    len(existing),
		Description: description,
		Amount:      amount,
		CreatedAt:   e.now().UTC().Format(time.RFC3339),
	}
	if err := e.Repo.InsertMilestone(ctx, tx, m); err != nil {
		return m, err
	}
	if err := e.Events.Append(ctx, tx, "milestone.added", "gig", gigEntityID(gigID), caller, events.EventPayload{
		"position": m.Position,
		"amount":   m.Amount,
	}); err != nil {
		return m, err
	}
	if err := tx.Commit(); err != nil {
		return m, err
	}
	return m, nil
}

// CompleteMilestone lets the worker mark a booked deliverable done.
// Pure bookkeeping; escrow only ever moves through ReleasePayment.
func (e Engine) CompleteMilestone(ctx context.Context, caller string, gigID uint64, position int) (domain.Milestone, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Milestone{}, err
	}
	defer tx.Rollback()

	g, err := e.Repo.GetGigTx(ctx, tx, gigID)
	if err != nil {
		return domain.Milestone{}, err
	}
	if err := auth.RequireWorker(g, caller); err != nil {
		return domain.Milestone{}, err
	}
	milestones, err := e.Repo.ListMilestonesTx(ctx, tx, gigID)
	if err != nil {
		return domain.Milestone{}, err
	}
	var target *domain.Milestone
	for i := range milestones {
		if milestones[i].Position == position {
			target = &milestones[i]
			break
		}
	}
	if target == nil {
		return domain.Milestone{}, repo.ErrNotFound
	}
	if target.Completed {
		return *target, InvalidStateError{Op: "complete-milestone", Status: "completed"}
	}
	if err := e.Repo.CompleteMilestone(ctx, tx, gigID, position); err != nil {
		return *target, err
	}
	if err := e.Events.Append(ctx, tx, "milestone.completed", "gig", gigEntityID(gigID), caller, events.EventPayload{
		"position": position,
	}); err != nil {
		return *target, err
	}
	if err := tx.Commit(); err != nil {
		return *target, err
	}
	target.Completed = true
	return *target, nil
}

// AddCategories appends distinct labels to a gig, preserving insertion order.
func (e Engine) AddCategories(ctx context.Context, caller string, gigID uint64, labels []string) ([]string, error) {
	if e.Config == nil {
		return nil, errors.New("config not loaded")
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	g, err := e.Repo.GetGigTx(ctx, tx, gigID)
	if err != nil {
		return nil, err
	}
	if err := auth.RequireOwner(g, caller); err != nil {
		return nil, err
	}
	current, err := e.Repo.ListCategoriesTx(ctx, tx, gigID)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	for _, c := range current {
		seen[c] = true
	}
	var fresh []string
	for _, label := range labels {
		label = strings.TrimSpace(label)
		if label == "" || seen[label] {
			continue
		}
		seen[label] = true
		fresh = append(fresh, label)
	}
	if len(current)+len(fresh) > e.Config.Limits.MaxCategories {
		return nil, fmt.Errorf("categories exceed limit of %d", e.Config.Limits.MaxCategories)
	}
	if len(fresh) == 0 {
		return current, tx.Commit()
	}
	if err := e.Repo.AppendCategories(ctx, tx, gigID, len(current), fresh); err != nil {
		return nil, err
	}
	if err := e.Events.Append(ctx, tx, "categories.added", "gig", gigEntityID(gigID), caller, events.EventPayload{
		"labels": fresh,
	}); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return append(current, fresh...), nil
}

// RateUser folds a score into a principal's running rating.
func (e Engine) RateUser(ctx context.Context, caller, principal string, score uint64) (domain.RatingRecord, error) {
	if e.Config == nil {
		return domain.RatingRecord{}, errors.New("config not loaded")
	}
	if caller == "" {
		return domain.RatingRecord{}, errors.New("caller is required")
	}
	if principal == "" {
		return domain.RatingRecord{}, errors.New("principal is required")
	}
	min, max := e.Config.Rating.Min, e.Config.Rating.Max
	if score < min || score > max {
		return domain.RatingRecord{}, InvalidRatingError{Score: score, Min: min, Max: max}
	}
	now := e.now().UTC().Format(time.RFC3339)
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.RatingRecord{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.AddRating(ctx, tx, principal, score, now); err != nil {
		return domain.RatingRecord{}, err
	}
	if err := e.Events.Append(ctx, tx, "user.rated", "user", principal, caller, events.EventPayload{
		"score": score,
	}); err != nil {
		return domain.RatingRecord{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.RatingRecord{}, err
	}
	return e.Repo.GetRating(ctx, principal)
}

// UpdatePortfolio replaces the caller's skills and bio in full.
func (e Engine) UpdatePortfolio(ctx context.Context, caller string, skills []string, bio string) (domain.UserProfile, error) {
	if e.Config == nil {
		return domain.UserProfile{}, errors.New("config not loaded")
	}
	if caller == "" {
		return domain.UserProfile{}, errors.New("caller is required")
	}
	if len(bio) > e.Config.Limits.MaxDescription {
		return domain.UserProfile{}, fmt.Errorf("bio exceeds %d characters", e.Config.Limits.MaxDescription)
	}
	var cleaned []string
	seen := map[string]bool{}
	for _, s := range skills {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		cleaned = append(cleaned, s)
	}
	if len(cleaned) > e.Config.Limits.MaxSkills {
		return domain.UserProfile{}, fmt.Errorf("skills exceed limit of %d", e.Config.Limits.MaxSkills)
	}
	if cleaned == nil {
		cleaned = []string{}
	}
	p := domain.UserProfile{
		Principal: caller,
		Skills:    cleaned,
		Bio:       bio,
		UpdatedAt: e.now().UTC().Format(time.RFC3339),
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return p, err
	}
	defer tx.Rollback()

	if err := e.Repo.UpsertProfile(ctx, tx, p); err != nil {
		return p, err
	}
	if err := e.Events.Append(ctx, tx, "portfolio.updated", "user", caller, caller, events.EventPayload{
		"skills": len(cleaned),
	}); err != nil {
		return p, err
	}
	if err := tx.Commit(); err != nil {
		return p, err
	}
	return p, nil
}

// Deposit credits the caller's ledger account.
func (e Engine) Deposit(ctx context.Context, caller string, amount uint64) (domain.Account, error) {
	if caller == "" {
		return domain.Account{}, errors.New("caller is required")
	}
	if amount == 0 {
		return domain.Account{}, InvalidAmountError{Amount: amount}
	}
	now := e.now().UTC().Format(time.RFC3339)
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Account{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.CreditAccount(ctx, tx, caller, amount, now); err != nil {
		return domain.Account{}, err
	}
	if err := e.Events.Append(ctx, tx, "account.deposited", "user", caller, caller, events.EventPayload{
		"amount": amount,
	}); err != nil {
		return domain.Account{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Account{}, err
	}
	return e.Repo.GetAccount(ctx, caller)
}

// GetGig returns a gig with its milestones, categories and dispute, or
// nil when no gig exists under the ID.
func (e Engine) GetGig(ctx context.Context, gigID uint64) (*domain.Gig, error) {
	g, err := e.Repo.GetGig(ctx, gigID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// GetUserGigs returns a principal's gig associations, or nil when the
// principal appears on no gig.
func (e Engine) GetUserGigs(ctx context.Context, principal string) (*domain.UserGigs, error) {
	ug, err := e.Repo.GetUserGigs(ctx, principal)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ug, nil
}

func (e Engine) ListGigs(ctx context.Context, f repo.GigFilters) ([]domain.Gig, error) {
	return e.Repo.ListGigs(ctx, f)
}

func gigEntityID(id uint64) string {
	return fmt.Sprintf("%d", id)
}
