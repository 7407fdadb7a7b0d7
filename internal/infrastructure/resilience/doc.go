/*
Package resilience provides a circuit breaker for calls to external collaborators.

# Usage

	breaker := resilience.New("collaborator", resilience.Settings{
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to resilience.State) {
			logger.Warn("breaker state changed", zap.String("breaker", name),
				zap.Stringer("from", from), zap.Stringer("to", to))
		},
	})

	intent, err := resilience.Do(ctx, breaker, func(ctx context.Context) (*Intent, error) {
		return client.ExtractIntent(ctx, text)
	})

# States

	Closed --[failures]-> Open --[timeout]-> Half-Open --[successes]-> Closed
	                                           |
	                                    [failure]
	                                           |
	                                           v
	                                         Open

Caller cancellation is not counted as a failure unless Settings.IsFailure says so.
*/
package resilience
