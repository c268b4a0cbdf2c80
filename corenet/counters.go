// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package corenet

import "github.com/luxfi/metric"

// Counters are the named observability counters from §6, plus
// telemetry_evicted (a SPEC_FULL supplement — see SPEC_FULL.md). Grounded on
// utils/metered_cache.go's pattern of registering one metric.Counter per
// named stat via metric.NewCounter(metric.CounterOpts{...}).
type Counters struct {
	AggregatorAccepted      metric.Counter
	AggregatorDropped       metric.Counter
	RequestsCachedHashes    metric.Counter
	RequestsCachedVotes     metric.Counter
	RequestsGeneratedHashes metric.Counter
	RequestsGeneratedVotes  metric.Counter
	RequestsUnknown         metric.Counter
	TelemetryEvicted        metric.Counter
}

// NewCounters registers and returns the counter set.
func NewCounters() *Counters {
	return &Counters{
		AggregatorAccepted:      metric.NewCounter(metric.CounterOpts{Name: "aggregator_accepted", Help: "vote requests accepted by the aggregator's admission policy"}),
		AggregatorDropped:       metric.NewCounter(metric.CounterOpts{Name: "aggregator_dropped", Help: "vote requests dropped by the aggregator's admission policy"}),
		RequestsCachedHashes:    metric.NewCounter(metric.CounterOpts{Name: "requests_cached_hashes", Help: "hashes served from the vote cache during aggregation"}),
		RequestsCachedVotes:     metric.NewCounter(metric.CounterOpts{Name: "requests_cached_votes", Help: "votes served from the vote cache during aggregation"}),
		RequestsGeneratedHashes: metric.NewCounter(metric.CounterOpts{Name: "requests_generated_hashes", Help: "hashes for which a fresh vote was generated"}),
		RequestsGeneratedVotes:  metric.NewCounter(metric.CounterOpts{Name: "requests_generated_votes", Help: "votes generated fresh by local representatives"}),
		RequestsUnknown:         metric.NewCounter(metric.CounterOpts{Name: "requests_unknown", Help: "requests whose root resolved to neither a block nor an account"}),
		TelemetryEvicted:        metric.NewCounter(metric.CounterOpts{Name: "telemetry_evicted", Help: "stale telemetry entries evicted by the periodic sweep"}),
	}
}
