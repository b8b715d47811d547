package bandalign

// GrowthPolicy decides the bandwidth of the next attempt for a request
// whose result could not be verified. ok is false when the policy does
// not retry.
type GrowthPolicy interface {
	Next(current, limit int) (next int, ok bool)
}

// DoublingGrowth doubles the bandwidth up to the limit.
type DoublingGrowth struct{}

func (DoublingGrowth) Next(current, limit int) (int, bool) {
	return min(2*current, limit), true
}

// IncrementalGrowth widens the band by Step cells per attempt.
type IncrementalGrowth struct {
	Step int
}

func (g IncrementalGrowth) Next(current, limit int) (int, bool) {
	return min(current+max(g.Step, 1), limit), true
}

// NoGrowth never retries; unverified requests end as band_too_narrow.
type NoGrowth struct{}

func (NoGrowth) Next(current, limit int) (int, bool) {
	return current, false
}

// Decision is the controller's verdict on an unverified request.
type Decision int

const (
	// Retry with the returned bandwidth.
	Retry Decision = iota
	// GiveUp: the policy declined, the request ends as band_too_narrow.
	GiveUp
	// Exceeded: the band cannot grow further, the request ends as band_exceeded.
	Exceeded
)

// BandwidthController drives bounded retries of band-too-narrow requests.
type BandwidthController struct {
	policy GrowthPolicy
	limit  int
}

// NewBandwidthController creates a controller capping bandwidth at limit.
func NewBandwidthController(policy GrowthPolicy, limit int) *BandwidthController {
	if policy == nil {
		policy = DoublingGrowth{}
	}
	return &BandwidthController{policy: policy, limit: limit}
}

// Limit returns the maximum bandwidth.
func (c *BandwidthController) Limit() int {
	return c.limit
}

// SetLimit changes the maximum bandwidth for later decisions.
func (c *BandwidthController) SetLimit(limit int) {
	c.limit = limit
}

// Clamp limits a requested bandwidth to the maximum.
func (c *BandwidthController) Clamp(band int) int {
	return min(band, c.limit)
}

// Decide returns what happens to a request that was computed with band and
// could not be verified. Every Retry strictly widens the band, so a request
// sees at most limit attempts before it is Exceeded.
func (c *BandwidthController) Decide(band int) (Decision, int) {
	if band >= c.limit {
		return Exceeded, band
	}
	next, ok := c.policy.Next(band, c.limit)
	if !ok {
		return GiveUp, band
	}
	if next <= band {
		return Exceeded, band
	}
	return Retry, min(next, c.limit)
}
