package domain

type Gig struct {
	ID          uint64      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Payment     uint64      `json:"payment"`
	Owner       string      `json:"owner"`
	Worker      *string     `json:"worker,omitempty"`
	Status      string      `json:"status" enum:"open,accepted,completed,paid,disputed"`
	Milestones  []Milestone `json:"milestones,omitempty"`
	Categories  []string    `json:"categories,omitempty"`
	Dispute     *Dispute    `json:"dispute,omitempty"`
	CreatedAt   string      `json:"created_at" format:"date-time"`
	UpdatedAt   string      `json:"updated_at" format:"date-time"`
}

type Milestone struct {
	GigID       uint64 `json:"gig_id"`
	Position    int    `json:"position"`
	Description string `json:"description,omitempty"`
	Amount      uint64 `json:"amount"`
	Completed   bool   `json:"completed"`
	CreatedAt   string `json:"created_at" format:"date-time"`
}

type Dispute struct {
	GigID       uint64 `json:"gig_id"`
	RaisedBy    string `json:"raised_by"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status" enum:"open,resolved"`
	CreatedAt   string `json:"created_at" format:"date-time"`
}

type UserProfile struct {
	Principal string   `json:"principal"`
	Skills    []string `json:"skills"`
	Bio       string   `json:"bio,omitempty"`
	UpdatedAt string   `json:"updated_at" format:"date-time"`
}

type RatingRecord struct {
	Principal  string `json:"principal"`
	TotalScore uint64 `json:"total_score"`
	Count      uint64 `json:"count"`
	UpdatedAt  string `json:"updated_at" format:"date-time"`
}

// Average returns the running average, zero when no ratings exist.
func (r RatingRecord) Average() float64 {
	if r.Count == 0 {
		return 0
	}
	return float64(r.TotalScore) / float64(r.Count)
}

type Account struct {
	Principal string `json:"principal"`
	Balance   uint64 `json:"balance"`
	UpdatedAt string `json:"updated_at" format:"date-time"`
}

type EscrowEntry struct {
	GigID      uint64  `json:"gig_id"`
	Owner      string  `json:"owner"`
	Amount     uint64  `json:"amount"`
	Status     string  `json:"status" enum:"locked,released"`
	LockedAt   string  `json:"locked_at" format:"date-time"`
	ReleasedAt *string `json:"released_at,omitempty" format:"date-time"`
}

// UserGigs summarizes a principal's gig associations.
type UserGigs struct {
	Principal string   `json:"principal"`
	Owned     []uint64 `json:"owned"`
	Worked    []uint64 `json:"worked"`
	Total     int      `json:"total"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}

type APIKey struct {
	ID        string `json:"id"`
	Principal string `json:"principal"`
	Name      string `json:"name,omitempty"`
	KeyHash   string `json:"key_hash"`
	CreatedAt string `json:"created_at" format:"date-time"`
}
