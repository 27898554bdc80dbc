// Package services implements the business logic layer between the HTTP
// handlers and the numerical core, ensuring orchestration concerns (run IDs,
// metrics, configuration merging) stay out of both.
//
// # Architecture
//
// Services follow these principles:
//
//	1. Context propagation for cancellation and tracing
//	2. Dependency injection for loose coupling
//	3. Domain-focused methods that encapsulate orchestration rules
//	4. Cross-cutting concerns (logging, metrics) recorded per run
//
// # Available Services
//
//	- VolatilityService: ingests quotes and market series, runs the parallel
//	  implied volatility solve, builds grids, fits surfaces, samples meshes
//	- HealthService: liveness, readiness (including a solver self-check),
//	  version and system statistics
//
// # Common Service Pattern
//
// Services typically follow this structure:
//
//	type ServiceName struct {
//	    cfg    *config.Config
//	    logger *slog.Logger
//	}
//
//	func (s *ServiceName) BusinessOperation(ctx context.Context, input Input) (*Output, error) {
//	    if err := input.Validate(); err != nil {
//	        return nil, fmt.Errorf("validation failed: %w", err)
//	    }
//	    result, err := domainOperation(ctx, input)
//	    if err != nil {
//	        s.logger.ErrorContext(ctx, "operation failed", "error", err)
//	        return nil, fmt.Errorf("operation failed: %w", err)
//	    }
//	    return result, nil
//	}
//
// # Error Handling
//
// Services return sentinel errors for empty inputs and wrap domain errors
// with the run ID; handlers transform both into RFC 7807 responses.
package services
