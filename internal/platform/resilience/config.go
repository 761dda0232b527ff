package resilience

import "time"

const (
	defaultFailureThreshold = 3
	defaultOpenTimeout      = 10 * time.Second
	defaultHalfOpenMaxReq   = 1
)

// CircuitBreakerConfig tunes one breaker. Name labels its state-change logs.
type CircuitBreakerConfig struct {
	Name             string
	Enabled          bool
	FailureThreshold int
	OpenTimeout      time.Duration
	// HalfOpenMaxReq is how many trial calls a half-open breaker admits and
	// how many of them must succeed before it closes again.
	HalfOpenMaxReq int
}

// CacheBreakerConfig guards the shared snapshot and accuracy cache. A miss
// only costs a storage read, so one trial call is enough to close it.
func CacheBreakerConfig(failureThreshold int, openTimeout time.Duration) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             "cache",
		Enabled:          true,
		FailureThreshold: failureThreshold,
		OpenTimeout:      openTimeout,
		HalfOpenMaxReq:   1,
	}.withDefaults()
}

func (c CircuitBreakerConfig) withDefaults() CircuitBreakerConfig {
	if c.Name == "" {
		c.Name = "dependency"
	}
	if c.FailureThreshold < 1 {
		c.FailureThreshold = defaultFailureThreshold
	}
	if c.OpenTimeout <= 0 {
		c.OpenTimeout = defaultOpenTimeout
	}
	if c.HalfOpenMaxReq < 1 {
		c.HalfOpenMaxReq = defaultHalfOpenMaxReq
	}
	return c
}
