package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"gigledger/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGig(row rowScanner) (domain.Gig, error) {
	var g domain.Gig
	var id, payment int64
	var description, worker sql.NullString
	err := row.Scan(&id, &g.Title, &description, &payment, &g.Owner, &worker, &g.Status, &g.CreatedAt, &g.UpdatedAt)
	if err == sql.ErrNoRows {
		return g, ErrNotFound
	}
	if err != nil {
		return g, err
	}
	g.ID = uint64(id)
	g.Payment = uint64(payment)
	if description.Valid {
		g.Description = description.String
	}
	if worker.Valid {
		g.Worker = &worker.String
	}
	return g, nil
}

const gigColumns = `id,title,description,payment,owner,worker,status,created_at,updated_at`

// InsertGig inserts a gig and returns the assigned sequential ID.
func (r Repo) InsertGig(ctx context.Context, tx *sql.Tx, g domain.Gig) (uint64, error) {
	res, err := tx.ExecContext(ctx, `INSERT INTO gigs(title,description,payment,owner,worker,status,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?)`,
		g.Title, nullable(g.Description), int64(g.Payment), g.Owner, nil, g.Status, g.CreatedAt, g.UpdatedAt)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

func (r Repo) GetGig(ctx context.Context, id uint64) (domain.Gig, error) {
	g, err := scanGig(r.DB.QueryRowContext(ctx, `SELECT `+gigColumns+` FROM gigs WHERE id=?`, int64(id)))
	if err != nil {
		return g, err
	}
	return r.attachGigRecords(ctx, g)
}

func (r Repo) GetGigTx(ctx context.Context, tx *sql.Tx, id uint64) (domain.Gig, error) {
	return scanGig(tx.QueryRowContext(ctx, `SELECT `+gigColumns+` FROM gigs WHERE id=?`, int64(id)))
}

func (r Repo) attachGigRecords(ctx context.Context, g domain.Gig) (domain.Gig, error) {
	milestones, err := r.ListMilestones(ctx, g.ID)
	if err != nil {
		return g, err
	}
	g.Milestones = milestones
	categories, err := r.ListCategories(ctx, g.ID)
	if err != nil {
		return g, err
	}
	g.Categories = categories
	dispute, err := r.GetDispute(ctx, g.ID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return g, err
	}
	if err == nil {
		g.Dispute = &dispute
	}
	return g, nil
}

// SetGigWorker records the accepting worker and moves the gig along.
func (r Repo) SetGigWorker(ctx context.Context, tx *sql.Tx, id uint64, worker, status, updatedAt string) error {
	res, err := tx.ExecContext(ctx, `UPDATE gigs SET worker=?, status=?, updated_at=? WHERE id=?`,
		worker, status, updatedAt, int64(id))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) UpdateGigStatus(ctx context.Context, tx *sql.Tx, id uint64, status, updatedAt string) error {
	res, err := tx.ExecContext(ctx, `UPDATE gigs SET status=?, updated_at=? WHERE id=?`,
		status, updatedAt, int64(id))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type GigFilters struct {
	Owner    string
	Worker   string
	Status   string
	Limit    int
	CursorID uint64
}

func (r Repo) ListGigs(ctx context.Context, f GigFilters) ([]domain.Gig, error) {
	var clauses []string
	var args []any
	if f.Owner != "" {
		clauses = append(clauses, "owner=?")
		args = append(args, f.Owner)
	}
	if f.Worker != "" {
		clauses = append(clauses, "worker=?")
		args = append(args, f.Worker)
	}
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	if f.CursorID > 0 {
		clauses = append(clauses, "id<?")
		args = append(args, int64(f.CursorID))
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	query := `SELECT ` + gigColumns + ` FROM gigs ` + where + ` ORDER BY id DESC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Gig
	for rows.Next() {
		g, err := scanGig(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, g)
	}
	return res, rows.Err()
}

// GetUserGigs collects the gig IDs a principal is attached to as owner or worker.
func (r Repo) GetUserGigs(ctx context.Context, principal string) (domain.UserGigs, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id, owner, worker FROM gigs WHERE owner=? OR worker=? ORDER BY id ASC`, principal, principal)
	if err != nil {
		return domain.UserGigs{}, err
	}
	defer rows.Close()
	ug := domain.UserGigs{Principal: principal}
	for rows.Next() {
		var id int64
		var owner string
		var worker sql.NullString
		if err := rows.Scan(&id, &owner, &worker); err != nil {
			return domain.UserGigs{}, err
		}
		if owner == principal {
			ug.Owned = append(ug.Owned, uint64(id))
		}
		if worker.Valid && worker.String == principal {
			ug.Worked = append(ug.Worked, uint64(id))
		}
		ug.Total++
	}
	if err := rows.Err(); err != nil {
		return domain.UserGigs{}, err
	}
	if ug.Total == 0 {
		return domain.UserGigs{}, ErrNotFound
	}
	return ug, nil
}

func (r Repo) CountGigsByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT status, count(*) FROM gigs GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := map[string]int{}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		res[status] = count
	}
	return res, rows.Err()
}

// --- milestones ---

func (r Repo) ListMilestones(ctx context.Context, gigID uint64) ([]domain.Milestone, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT gig_id,position,description,amount,completed,created_at FROM milestones WHERE gig_id=? ORDER BY position ASC`, int64(gigID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMilestones(rows)
}

func (r Repo) ListMilestonesTx(ctx context.Context, tx *sql.Tx, gigID uint64) ([]domain.Milestone, error) {
	rows, err := tx.QueryContext(ctx, `SELECT gig_id,position,description,amount,completed,created_at FROM milestones WHERE gig_id=? ORDER BY position ASC`, int64(gigID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMilestones(rows)
}

func collectMilestones(rows *sql.Rows) ([]domain.Milestone, error) {
	var res []domain.Milestone
	for rows.Next() {
		var m domain.Milestone
		var gigID, amount int64
		var completed int
		var description sql.NullString
		if err := rows.Scan(&gigID, &m.Position, &description, &amount, &completed, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.GigID = uint64(gigID)
		m.Amount = uint64(amount)
		m.Completed = completed != 0
		if description.Valid {
			m.Description = description.String
		}
		res = append(res, m)
	}
	return res, rows.Err()
}

// MilestoneAllocated sums milestone amounts already booked against a gig.
func (r Repo) MilestoneAllocated(ctx context.Context, tx *sql.Tx, gigID uint64) (uint64, error) {
	var total sql.NullInt64
	err := tx.QueryRowContext(ctx, `SELECT SUM(amount) FROM milestones WHERE gig_id=?`, int64(gigID)).Scan(&total)
	if err != nil {
		return 0, err
	}
	if !total.Valid {
		return 0, nil
	}
	return uint64(total.Int64), nil
}

func (r Repo) InsertMilestone(ctx context.Context, tx *sql.Tx, m domain.Milestone) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO milestones(gig_id,position,description,amount,completed,created_at) VALUES (?,?,?,?,?,?)`,
		int64(m.GigID), m.Position, nullable(m.Description), int64(m.Amount), boolToInt(m.Completed), m.CreatedAt)
	return err
}

func (r Repo) CompleteMilestone(ctx context.Context, tx *sql.Tx, gigID uint64, position int) error {
	res, err := tx.ExecContext(ctx, `UPDATE milestones SET completed=1 WHERE gig_id=? AND position=?`, int64(gigID), position)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- disputes ---

func (r Repo) UpsertDispute(ctx context.Context, tx *sql.Tx, d domain.Dispute) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO disputes(gig_id,raised_by,description,status,created_at) VALUES (?,?,?,?,?)
ON CONFLICT(gig_id) DO UPDATE SET raised_by=excluded.raised_by, description=excluded.description, status=excluded.status, created_at=excluded.created_at`,
		int64(d.GigID), d.RaisedBy, nullable(d.Description), d.Status, d.CreatedAt)
	return err
}

func (r Repo) GetDispute(ctx context.Context, gigID uint64) (domain.Dispute, error) {
	var d domain.Dispute
	var id int64
	var description sql.NullString
	err := r.DB.QueryRowContext(ctx, `SELECT gig_id,raised_by,description,status,created_at FROM disputes WHERE gig_id=?`, int64(gigID)).
		Scan(&id, &d.RaisedBy, &description, &d.Status, &d.CreatedAt)
	if err == sql.ErrNoRows {
		return d, ErrNotFound
	}
	if err != nil {
		return d, err
	}
	d.GigID = uint64(id)
	if description.Valid {
		d.Description = description.String
	}
	return d, nil
}

// --- categories ---

func (r Repo) ListCategories(ctx context.Context, gigID uint64) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT label FROM gig_categories WHERE gig_id=? ORDER BY position ASC`, int64(gigID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var labels []string
	for rows.Next() {
		var label string
		if err := rows.Scan(&label); err != nil {
			return nil, err
		}
		labels = append(labels, label)
	}
	return labels, rows.Err()
}

func (r Repo) ListCategoriesTx(ctx context.Context, tx *sql.Tx, gigID uint64) ([]string, error) {
	rows, err := tx.QueryContext(ctx, `SELECT label FROM gig_categories WHERE gig_id=? ORDER BY position ASC`, int64(gigID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var labels []string
	for rows.Next() {
		var label string
		if err := rows.Scan(&label); err != nil {
			return nil, err
		}
		labels = append(labels, label)
	}
	return labels, rows.Err()
}

func (r Repo) AppendCategories(ctx context.Context, tx *sql.Tx, gigID uint64, start int, labels []string) error {
	for i, label := range labels {
		if _, err := tx.ExecContext(ctx, `INSERT INTO gig_categories(gig_id,position,label) VALUES (?,?,?)`,
			int64(gigID), start+i, label); err != nil {
			return err
		}
	}
	return nil
}

// --- events ---

func (r Repo) LatestEvents(ctx context.Context, limit int, evtType, entityKind, entityID string) ([]domain.Event, error) {
	return r.LatestEventsFrom(ctx, limit, 0, evtType, entityKind, entityID)
}

func (r Repo) LatestEventsFrom(ctx context.Context, limit int, cursor int64, evtType, entityKind, entityID string) ([]domain.Event, error) {
	clauses := []string{"1=1"}
	var args []any
	if evtType != "" {
		clauses = append(clauses, "type=?")
		args = append(args, evtType)
	}
	if entityKind != "" {
		clauses = append(clauses, "entity_kind=?")
		args = append(args, entityKind)
	}
	if entityID != "" {
		clauses = append(clauses, "entity_id=?")
		args = append(args, entityID)
	}
	if cursor > 0 {
		clauses = append(clauses, "id<?")
		args = append(args, cursor)
	}
	where := "WHERE " + strings.Join(clauses, " AND ")
	query := fmt.Sprintf(`SELECT id,ts,type,entity_kind,entity_id,actor_id,payload_json FROM events %s ORDER BY id DESC LIMIT ?`, where)
	args = append(args, limit)
	return r.queryEvents(ctx, query, args...)
}

// EventsAfter returns events with IDs greater than the cursor in ascending order.
func (r Repo) EventsAfter(ctx context.Context, limit int, cursor int64) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT id,ts,type,entity_kind,entity_id,actor_id,payload_json FROM events WHERE id>? ORDER BY id ASC LIMIT ?`
	return r.queryEvents(ctx, query, cursor, limit)
}

// LatestEventID returns the most recent event ID.
func (r Repo) LatestEventID(ctx context.Context) (int64, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT COALESCE(MAX(id),0) FROM events`)
	var id int64
	if err := row.Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (r Repo) queryEvents(ctx context.Context, query string, args ...any) ([]domain.Event, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		var e domain.Event
		var entityID, payload sql.NullString
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &e.EntityKind, &entityID, &e.ActorID, &payload); err != nil {
			return nil, err
		}
		if entityID.Valid {
			e.EntityID = entityID.String
		}
		if payload.Valid {
			e.Payload = payload.String
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

// --- helpers ---

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
