package server

import (
	"gigledger/internal/domain"
)

type CreateGigRequest struct {
	Title       string  `json:"title" example:"Logo design"`
	Description *string `json:"description,omitempty"`
	Payment     uint64  `json:"payment" example:"1000"`
}

type DisputeRequest struct {
	Description string `json:"description,omitempty"`
}

type MilestoneRequest struct {
	Description string `json:"description,omitempty"`
	Amount      uint64 `json:"amount" example:"500"`
}

type CategoriesRequest struct {
	Labels []string `json:"labels"`
}

type RatingRequest struct {
	Score uint64 `json:"score" minimum:"1" maximum:"5"`
}

type PortfolioRequest struct {
	Skills []string `json:"skills"`
	Bio    string   `json:"bio,omitempty"`
}

type DepositRequest struct {
	Amount uint64 `json:"amount" example:"1000"`
}

type MilestoneResponse struct {
	GigID       uint64 `json:"gig_id"`
	Position    int    `json:"position"`
	Description string `json:"description,omitempty"`
	Amount      uint64 `json:"amount"`
	Completed   bool   `json:"completed"`
	CreatedAt   string `json:"created_at"`
}

type DisputeResponse struct {
	GigID       uint64 `json:"gig_id"`
	RaisedBy    string `json:"raised_by"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
}

type GigResponse struct {
	ID          uint64              `json:"id"`
	Title       string              `json:"title"`
	Description string              `json:"description,omitempty"`
	Payment     uint64              `json:"payment"`
	Owner       string              `json:"owner"`
	Worker      *string             `json:"worker,omitempty"`
	Status      string              `json:"status"`
	Milestones  []MilestoneResponse `json:"milestones,omitempty"`
	Categories  []string            `json:"categories,omitempty"`
	Dispute     *DisputeResponse    `json:"dispute,omitempty"`
	CreatedAt   string              `json:"created_at"`
	UpdatedAt   string              `json:"updated_at"`
}

type ProfileResponse struct {
	Principal string   `json:"principal"`
	Skills    []string `json:"skills"`
	Bio       string   `json:"bio,omitempty"`
	UpdatedAt string   `json:"updated_at"`
}

type RatingResponse struct {
	Principal  string  `json:"principal"`
	TotalScore uint64  `json:"total_score"`
	Count      uint64  `json:"count"`
	Average    float64 `json:"average"`
	UpdatedAt  string  `json:"updated_at"`
}

type AccountResponse struct {
	Principal string `json:"principal"`
	Balance   uint64 `json:"balance"`
	UpdatedAt string `json:"updated_at"`
}

type UserGigsResponse struct {
	Principal string   `json:"principal"`
	Owned     []uint64 `json:"owned"`
	Worked    []uint64 `json:"worked"`
	Total     int      `json:"total"`
}

type EventResponse struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json,omitempty"`
}

type paginatedGigs struct {
	Items      []GigResponse `json:"items"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

func milestoneResponse(m domain.Milestone) MilestoneResponse {
	return MilestoneResponse{
		GigID:       m.GigID,
		Position:    m.Position,
		Description: m.Description,
		Amount:      m.Amount,
		Completed:   m.Completed,
		CreatedAt:   m.CreatedAt,
	}
}

func disputeResponse(d domain.Dispute) DisputeResponse {
	return DisputeResponse{
		GigID:       d.GigID,
		RaisedBy:    d.RaisedBy,
		Description: d.Description,
		Status:      d.Status,
		CreatedAt:   d.CreatedAt,
	}
}

func gigResponse(g domain.Gig) GigResponse {
	resp := GigResponse{
		ID:          g.ID,
		Title:       g.Title,
		Description: g.Description,
		Payment:     g.Payment,
		Owner:       g.Owner,
		Worker:      g.Worker,
		Status:      g.Status,
		Categories:  g.Categories,
		CreatedAt:   g.CreatedAt,
		UpdatedAt:   g.UpdatedAt,
	}
	for _, m := range g.Milestones {
		resp.Milestones = append(resp.Milestones, milestoneResponse(m))
	}
	if g.Dispute != nil {
		d := disputeResponse(*g.Dispute)
		resp.Dispute = &d
	}
	return resp
}

func mapGigs(gigs []domain.Gig) []GigResponse {
	res := make([]GigResponse, 0, len(gigs))
	for _, g := range gigs {
		res = append(res, gigResponse(g))
	}
	return res
}

func profileResponse(p domain.UserProfile) ProfileResponse {
	skills := p.Skills
	if skills == nil {
		skills = []string{}
	}
	return ProfileResponse{
		Principal: p.Principal,
		Skills:    skills,
		Bio:       p.Bio,
		UpdatedAt: p.UpdatedAt,
	}
}

func ratingResponse(r domain.RatingRecord) RatingResponse {
	return RatingResponse{
		Principal:  r.Principal,
		TotalScore: r.TotalScore,
		Count:      r.Count,
		Average:    r.Average(),
		UpdatedAt:  r.UpdatedAt,
	}
}

func accountResponse(a domain.Account) AccountResponse {
	return AccountResponse{
		Principal: a.Principal,
		Balance:   a.Balance,
		UpdatedAt: a.UpdatedAt,
	}
}

func userGigsResponse(ug domain.UserGigs) UserGigsResponse {
	resp := UserGigsResponse{
		Principal: ug.Principal,
		Owned:     ug.Owned,
		Worked:    ug.Worked,
		Total:     ug.Total,
	}
	if resp.Owned == nil {
		resp.Owned = []uint64{}
	}
	if resp.Worked == nil {
		resp.Worked = []uint64{}
	}
	return resp
}

func mapEvents(events []domain.Event) []EventResponse {
	res := make([]EventResponse, 0, len(events))
	for _, e := range events {
		res = append(res, EventResponse{
			ID:         e.ID,
			TS:         e.TS,
			Type:       e.Type,
			EntityKind: e.EntityKind,
			EntityID:   e.EntityID,
			ActorID:    e.ActorID,
			Payload:    e.Payload,
		})
	}
	return res
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
