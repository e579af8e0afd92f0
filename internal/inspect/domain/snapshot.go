package domain

// TrafficSnapshot is a point-in-time copy of the aggregated statistics.
// It owns its maps and slices; callers may modify them freely.
type TrafficSnapshot struct {
	Total     int64
	Dropped   int64
	Forwarded int64

	// DomainTraffic counts forwarded records per destination domain.
	DomainTraffic map[string]int64
	// BlockCounts counts blocked records per source address.
	BlockCounts map[string]int64
	// Suspicious lists flagged source addresses in ascending order.
	Suspicious []string
}

// Consistent reports whether Total equals Dropped plus Forwarded. This holds
// whenever no inspection task is running.
func (s TrafficSnapshot) Consistent() bool {
	return s.Total == s.Dropped+s.Forwarded
}
