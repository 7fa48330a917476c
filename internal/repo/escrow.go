package repo

import (
	"context"
	"database/sql"

	"gigledger/internal/domain"
)

const (
	EscrowLocked   = "locked"
	EscrowReleased = "released"
)

func (r Repo) GetAccount(ctx context.Context, principal string) (domain.Account, error) {
	return scanAccount(r.DB.QueryRowContext(ctx, `SELECT principal,balance,updated_at FROM accounts WHERE principal=?`, principal))
}

func (r Repo) GetAccountTx(ctx context.Context, tx *sql.Tx, principal string) (domain.Account, error) {
	return scanAccount(tx.QueryRowContext(ctx, `SELECT principal,balance,updated_at FROM accounts WHERE principal=?`, principal))
}

func scanAccount(row rowScanner) (domain.Account, error) {
	var a domain.Account
	var balance int64
	err := row.Scan(&a.Principal, &balance, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return a, ErrNotFound
	}
	if err != nil {
		return a, err
	}
	a.Balance = uint64(balance)
	return a, nil
}

// CreditAccount adds funds to a principal, creating the account on first use.
func (r Repo) CreditAccount(ctx context.Context, tx *sql.Tx, principal string, amount uint64, updatedAt string) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO accounts(principal,balance,updated_at) VALUES (?,?,?)
ON CONFLICT(principal) DO UPDATE SET balance=balance+excluded.balance, updated_at=excluded.updated_at`,
		principal, int64(amount), updatedAt)
	return err
}

// DebitAccount removes funds and reports whether the balance covered the amount.
func (r Repo) DebitAccount(ctx context.Context, tx *sql.Tx, principal string, amount uint64, updatedAt string) (bool, error) {
	res, err := tx.ExecContext(ctx, `UPDATE accounts SET balance=balance-?, updated_at=? WHERE principal=? AND balance>=?`,
		int64(amount), updatedAt, principal, int64(amount))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r Repo) InsertEscrow(ctx context.Context, tx *sql.Tx, e domain.EscrowEntry) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO escrow_entries(gig_id,owner,amount,status,locked_at) VALUES (?,?,?,?,?)`,
		int64(e.GigID), e.Owner, int64(e.Amount), e.Status, e.LockedAt)
	return err
}

func (r Repo) GetEscrow(ctx context.Context, gigID uint64) (domain.EscrowEntry, error) {
	var e domain.EscrowEntry
	var id, amount int64
	var releasedAt sql.NullString
	err := r.DB.QueryRowContext(ctx, `SELECT gig_id,owner,amount,status,locked_at,released_at FROM escrow_entries WHERE gig_id=?`, int64(gigID)).
		Scan(&id, &e.Owner, &amount, &e.Status, &e.LockedAt, &releasedAt)
	if err == sql.ErrNoRows {
		return e, ErrNotFound
	}
	if err != nil {
		return e, err
	}
	e.GigID = uint64(id)
	e.Amount = uint64(amount)
	if releasedAt.Valid {
		e.ReleasedAt = &releasedAt.String
	}
	return e, nil
}

// ReleaseEscrow flips a locked entry to released. Returns ErrNotFound when
// the entry does not exist or was already released.
func (r Repo) ReleaseEscrow(ctx context.Context, tx *sql.Tx, gigID uint64, releasedAt string) error {
	res, err := tx.ExecContext(ctx, `UPDATE escrow_entries SET status=?, released_at=? WHERE gig_id=? AND status=?`,
		EscrowReleased, releasedAt, int64(gigID), EscrowLocked)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
