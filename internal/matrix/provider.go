package matrix

import (
	"context"

	"routeopt/internal/model"
)

// Matrices holds pairwise travel costs between nodes. Distances are meters,
// Times are seconds; entry [i][j] is the cost traveling from i to j and may
// be asymmetric.
type Matrices struct {
	Distances [][]float64 `json:"distances"`
	Times     [][]float64 `json:"times"`
}

// N is the node count the matrices are indexed by.
func (m Matrices) N() int { return len(m.Distances) }

// Provider fetches distance and duration matrices for an ordered location
// list and a travel profile.
type Provider interface {
	GetDistanceMatrix(ctx context.Context, locations []model.Location, profile string) (Matrices, error)
}
