package telemetry

// Span names used for instrumentation.
const (
	SpanProximityCycle = "proximity.cycle"
	SpanCatalogFetch   = "catalog.fetch"
	SpanNotify         = "notification.post"
	SpanFixPublish     = "location.publish"
)

// Span attribute keys.
const (
	AttrPlaceID        = "picplace.place_id"
	AttrPlaceCount     = "picplace.catalog.size"
	AttrDistanceMeters = "picplace.distance_m"
	AttrCycleResult    = "picplace.cycle.result"
)
