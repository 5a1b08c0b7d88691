package broker

import "context"

// Gateway accepts normalized order-placement requests in a venue-agnostic
// fashion. Execute is synchronous from the caller's point of view; every call
// must carry a caller-side timeout via ctx so one hung venue cannot stall the
// cycle loop. Implementations must honour ExecutionRequest.IdempotencyKey:
// two submissions with the same key inside a short window must not both
// become live orders.
type Gateway interface {
	Execute(ctx context.Context, req ExecutionRequest) (*ExecutionOutcome, error)

	// OpenPositionCount reports currently open positions, used by the
	// execution feedback loop to refresh the risk guard.
	OpenPositionCount(ctx context.Context) (int, error)

	// AccountValue returns current equity in USD.
	AccountValue(ctx context.Context) (float64, error)
}
