package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"gigledger/internal/domain"
)

// UpsertProfile replaces a principal's portfolio in full.
func (r Repo) UpsertProfile(ctx context.Context, tx *sql.Tx, p domain.UserProfile) error {
	skills, err := json.Marshal(p.Skills)
	if err != nil {
		return fmt.Errorf("marshal skills: %w", err)
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO profiles(principal,skills_json,bio,updated_at) VALUES (?,?,?,?)
ON CONFLICT(principal) DO UPDATE SET skills_json=excluded.skills_json, bio=excluded.bio, updated_at=excluded.updated_at`,
		p.Principal, string(skills), nullable(p.Bio), p.UpdatedAt)
	return err
}

func (r Repo) GetProfile(ctx context.Context, principal string) (domain.UserProfile, error) {
	var p domain.UserProfile
	var skills string
	var bio sql.NullString
	err := r.DB.QueryRowContext(ctx, `SELECT principal,skills_json,bio,updated_at FROM profiles WHERE principal=?`, principal).
		Scan(&p.Principal, &skills, &bio, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	if err != nil {
		return p, err
	}
	if err := json.Unmarshal([]byte(skills), &p.Skills); err != nil {
		return p, fmt.Errorf("unmarshal skills for %s: %w", principal, err)
	}
	if bio.Valid {
		p.Bio = bio.String
	}
	return p, nil
}

// AddRating accumulates a score into a principal's running rating.
func (r Repo) AddRating(ctx context.Context, tx *sql.Tx, principal string, score uint64, updatedAt string) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO ratings(principal,total_score,count,updated_at) VALUES (?,?,1,?)
ON CONFLICT(principal) DO UPDATE SET total_score=total_score+excluded.total_score, count=count+1, updated_at=excluded.updated_at`,
		principal, int64(score), updatedAt)
	return err
}

func (r Repo) GetRating(ctx context.Context, principal string) (domain.RatingRecord, error) {
	var rec domain.RatingRecord
	var total, count int64
	err := r.DB.QueryRowContext(ctx, `SELECT principal,total_score,count,updated_at FROM ratings WHERE principal=?`, principal).
		Scan(&rec.Principal, &total, &count, &rec.UpdatedAt)
	if err == sql.ErrNoRows {
		return rec, ErrNotFound
	}
	if err != nil {
		return rec, err
	}
	rec.TotalScore = uint64(total)
	rec.Count = uint64(count)
	return rec, nil
}
