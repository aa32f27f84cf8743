package api

import (
    "fmt"

    "routeopt/internal/model"
)

// validateOptimizeRequest checks transport-level fields before the request
// reaches the optimizer; the optimizer revalidates the domain objects.
func validateOptimizeRequest(req *model.OptimizationRequest) error {
    if len(req.Vehicles) == 0 {
        return fmt.Errorf("at least one vehicle is required")
    }
    switch req.OptimizationType {
    case "", model.OptimizeDuration, model.OptimizeDistance:
    default:
        return fmt.Errorf("invalid optimizationType: %s (allowed: duration, distance)", req.OptimizationType)
    }
    if req.Options.TimeBudgetSec < 0 {
        return fmt.Errorf("options.timeBudgetSec must be >= 0")
    }
    if req.Options.TimeBudgetSec > 300 {
        return fmt.Errorf("options.timeBudgetSec must be <= 300")
    }
    return nil
}
