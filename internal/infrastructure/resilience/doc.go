/*
Package resilience isolates misbehaving buttons with circuit breakers.

A Breaker trips open after MaxFailures consecutive failures, rejects calls
for Cooldown, then lets Probes calls through half-open. Guard keeps one
breaker per key.

# Usage

	guard := resilience.NewGuard(resilience.Settings{
		MaxFailures: 3,
		Cooldown:    30 * time.Second,
	})
	err := guard.Do("shop:home/buy", func() error {
		return run()
	})
	if errors.Is(err, resilience.ErrOpen) {
		// short-circuited
	}

# States

	Closed --[failures]-> Open --[cooldown]-> Half-Open --[successes]-> Closed
	                                             |
	                                         [failure]
	                                             v
	                                           Open
*/
package resilience
