package federated

import (
	"fmt"
	"sync"
	"time"
)

// Client states.
const (
	ClientActive  = "active"
	ClientSlow    = "slow"
	ClientDropout = "dropout"
)

// ClientProfile is the simulated behavior of one regional client group.
type ClientProfile struct {
	Region  string        `json:"region"`
	Status  string        `json:"status"`
	Latency time.Duration `json:"latency"`
}

func defaultProfiles() []ClientProfile {
	return []ClientProfile{
		{Region: "us-east-1", Status: ClientActive, Latency: 20 * time.Millisecond},
		{Region: "eu-west-1", Status: ClientActive, Latency: 45 * time.Millisecond},
		{Region: "asia-pacific", Status: ClientSlow, Latency: 150 * time.Millisecond},
		{Region: "us-west-2", Status: ClientActive, Latency: 35 * time.Millisecond},
		{Region: "eu-central-1", Status: ClientDropout, Latency: 0},
	}
}

// clientPool holds the mutable region profiles used by subsequent rounds.
type clientPool struct {
	mu       sync.RWMutex
	profiles []ClientProfile
}

func newClientPool() *clientPool {
	return &clientPool{profiles: defaultProfiles()}
}

func (p *clientPool) snapshot() []ClientProfile {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]ClientProfile, len(p.profiles))
	copy(out, p.profiles)
	return out
}

func (p *clientPool) update(region string, fn func(*ClientProfile)) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.profiles {
		if p.profiles[i].Region == region {
			fn(&p.profiles[i])
			return nil
		}
	}
	return fmt.Errorf("%w: unknown region %q", ErrInvalidInput, region)
}

// degradation compares profiles against the defaults. It returns the number
// of regions dropped that are not dropped by default and the mean latency
// increase over the regions still reporting.
func degradation(profiles []ClientProfile) (extraDropped int, extraLatency time.Duration) {
	baseline := make(map[string]ClientProfile)
	for _, c := range defaultProfiles() {
		baseline[c.Region] = c
	}

	var added time.Duration
	reporting := 0
	for _, c := range profiles {
		base := baseline[c.Region]
		if c.Status == ClientDropout {
			if base.Status != ClientDropout {
				extraDropped++
			}
			continue
		}
		reporting++
		if d := c.Latency - base.Latency; d > 0 {
			added += d
		}
	}
	if reporting > 0 {
		extraLatency = added / time.Duration(reporting)
	}
	return extraDropped, extraLatency
}

// summarize counts clients by state.
func summarize(profiles []ClientProfile) (active, slow, dropped int) {
	for _, c := range profiles {
		switch c.Status {
		case ClientActive:
			active++
		case ClientSlow:
			slow++
		case ClientDropout:
			dropped++
		}
	}
	return active, slow, dropped
}
