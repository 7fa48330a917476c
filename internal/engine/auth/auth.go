package auth

import (
	"fmt"

	"gigledger/internal/domain"
)

// UnauthorizedError indicates the caller lacks the role an operation requires.
type UnauthorizedError struct {
	Role string
}

func (e UnauthorizedError) Error() string {
	return fmt.Sprintf("%s role required", e.Role)
}

// RequireOwner ensures the caller posted the gig.
func RequireOwner(g domain.Gig, caller string) error {
	if g.Owner != caller {
		return UnauthorizedError{Role: "owner"}
	}
	return nil
}

// RequireWorker ensures the caller is the accepted worker.
func RequireWorker(g domain.Gig, caller string) error {
	if g.Worker == nil || *g.Worker != caller {
		return UnauthorizedError{Role: "worker"}
	}
	return nil
}

// RequireParticipant ensures the caller is either side of the gig.
func RequireParticipant(g domain.Gig, caller string) error {
	if g.Owner == caller {
		return nil
	}
	if g.Worker != nil && *g.Worker == caller {
		return nil
	}
	return UnauthorizedError{Role: "participant"}
}
