/*
Package resilience provides a circuit breaker for the browser connection.

# Overview

When the DevTools endpoint goes away every page open fails slowly. The
breaker counts consecutive failures and, once tripped, rejects calls
immediately with ErrCircuitOpen until Timeout has passed. A single probe
then decides whether to close again or reopen.

# Usage

	breaker := resilience.New("browser", resilience.Settings{
		MaxFailures: 5,
		Timeout:     30 * time.Second,
		OnStateChange: func(name string, from, to resilience.State) {
			logger.Warn("Circuit breaker state change",
				zap.String("breaker", name),
				zap.Stringer("from", from),
				zap.Stringer("to", to))
		},
	})

	err := breaker.Execute(func() error {
		page, err = browser.Page(target)
		return err
	})

# States

	Closed --[MaxFailures]-> Open --[Timeout]-> Half-Open --[probe ok]-> Closed
	                                                |
	                                         [probe failed]
	                                                v
	                                              Open
*/
package resilience
