package cache

// UnitWeigher assigns every value a weight of 1, making maximumWeight
// behave identically to maximumSize. Builder uses this implicitly when
// no Weigher is configured; it is exported for callers that want to be
// explicit about it.
func UnitWeigher[V any](V) int64 { return 1 }

// StringWeigher weighs a string by its byte length, the common case for
// bounding a cache by approximate memory footprint rather than entry count.
func StringWeigher(s string) int64 { return int64(len(s)) }

// BytesWeigher weighs a []byte by its length.
func BytesWeigher(b []byte) int64 { return int64(len(b)) }
