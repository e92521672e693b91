package api

import (
	"context"
	"sync"
	"time"
)

const (
	// DefaultEndpointLimit is the per-minute request ceiling applied to an
	// endpoint after its first rate-limit response
	DefaultEndpointLimit = 10

	// DefaultCooldown is the wait before retrying a rate-limited request
	DefaultCooldown = 30 * time.Second

	// DefaultRequestDelay is the minimum spacing between consecutive
	// requests to the same endpoint once it is throttled
	DefaultRequestDelay = 300 * time.Millisecond
)

// ThrottlePolicy configures the adaptive per-endpoint throttle. The service's
// actual limit is empirically observed rather than documented, so both knobs
// are configurable.
type ThrottlePolicy struct {
	// EndpointLimit is the request-per-rolling-minute ceiling applied to an
	// endpoint after it returned HTTP 429
	EndpointLimit int

	// Cooldown is how long a rate-limited call waits before its single retry
	Cooldown time.Duration
}

// DefaultThrottlePolicy returns the policy used when none is configured.
func DefaultThrottlePolicy() ThrottlePolicy {
	return ThrottlePolicy{
		EndpointLimit: DefaultEndpointLimit,
		Cooldown:      DefaultCooldown,
	}
}

// endpointState tracks request history for one endpoint path
type endpointState struct {
	requests []time.Time // request timestamps within the rolling window
	limited  bool        // endpoint returned 429 at least once this session
	last429  time.Time
}

// throttle is process-wide per-endpoint shared state. Once an endpoint trips
// the rate limit it stays capped at the policy ceiling for the remainder of
// the session; the degradation never recovers automatically.
type throttle struct {
	mu        sync.Mutex
	policy    ThrottlePolicy
	endpoints map[string]*endpointState
	now       func() time.Time
	sleep     func(context.Context, time.Duration) error
}

func newThrottle(policy ThrottlePolicy) *throttle {
	if policy.EndpointLimit <= 0 {
		policy.EndpointLimit = DefaultEndpointLimit
	}
	if policy.Cooldown <= 0 {
		policy.Cooldown = DefaultCooldown
	}
	return &throttle{
		policy:    policy,
		endpoints: make(map[string]*endpointState),
		now:       time.Now,
		sleep:     sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// SetPolicy replaces the throttle policy. Endpoints already capped stay
// capped under the new ceiling.
func (t *throttle) SetPolicy(policy ThrottlePolicy) {
	if policy.EndpointLimit <= 0 {
		policy.EndpointLimit = DefaultEndpointLimit
	}
	if policy.Cooldown <= 0 {
		policy.Cooldown = DefaultCooldown
	}
	t.mu.Lock()
	t.policy = policy
	t.mu.Unlock()
}

// Cooldown returns the configured retry cooldown for rate-limited calls.
func (t *throttle) Cooldown() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.policy.Cooldown
}

// Wait blocks until a request to endpoint may proceed under the current
// policy, then records it. Endpoints that never saw a 429 pass through
// without delay.
func (t *throttle) Wait(ctx context.Context, endpoint string) error {
	for {
		t.mu.Lock()
		state := t.endpoints[endpoint]
		if state == nil {
			state = &endpointState{}
			t.endpoints[endpoint] = state
		}
		now := t.now()
		state.prune(now)
		if !state.limited || len(state.requests) < t.policy.EndpointLimit {
			state.requests = append(state.requests, now)
			t.mu.Unlock()
			return nil
		}
		// Capped: wait until the oldest request leaves the rolling minute
		wait := state.requests[0].Add(time.Minute).Sub(now)
		t.mu.Unlock()
		if wait <= 0 {
			wait = DefaultRequestDelay
		}
		if err := t.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// MarkLimited records a 429 response for endpoint and switches it to the
// reduced request rate for the rest of the session.
func (t *throttle) MarkLimited(endpoint string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	state := t.endpoints[endpoint]
	if state == nil {
		state = &endpointState{}
		t.endpoints[endpoint] = state
	}
	state.limited = true
	state.last429 = t.now()
}

// IsLimited reports whether endpoint has tripped the rate limit this session.
func (t *throttle) IsLimited(endpoint string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	state := t.endpoints[endpoint]
	return state != nil && state.limited
}

// RequestsLastMinute returns the number of requests recorded for endpoint
// within the rolling minute.
func (t *throttle) RequestsLastMinute(endpoint string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	state := t.endpoints[endpoint]
	if state == nil {
		return 0
	}
	state.prune(t.now())
	return len(state.requests)
}

// prune drops request timestamps older than the rolling minute
func (s *endpointState) prune(now time.Time) {
	cutoff := now.Add(-time.Minute)
	idx := 0
	for idx < len(s.requests) && s.requests[idx].Before(cutoff) {
		idx++
	}
	if idx > 0 {
		s.requests = append(s.requests[:0], s.requests[idx:]...)
	}
}
