package domain

// Machine-readable reason codes attached to degraded paths and safeguard
// diagnostics. Consumers (run reports, the operational API, offline review)
// match on these codes, not on log text.
const (
	ReasonNegativeQty      = "NEGATIVE_QTY_CORRECTED"
	ReasonUnmappedCategory = "UNMAPPED_CATEGORY_FALLBACK"
	ReasonLegacyPartition  = "LEGACY_PARTITION_FALLBACK"
	ReasonFloorTriggered   = "COEFFICIENT_FLOOR_TRIGGERED"
	ReasonCacheFallback      = "EXCLUSION_CACHE_FALLBACK"
	ReasonEmptyLiveResult    = "EXCLUSION_EMPTY_LIVE_RESULT"
	ReasonExclusionSkipped   = "EXCLUSION_SKIPPED"
	ReasonCacheRefreshFailed = "EXCLUSION_CACHE_REFRESH_FAILED"
	ReasonItemSkipped        = "ITEM_SKIPPED"
	ReasonDeliveryFailed     = "DELIVERY_FAILED"
)

// RunStatus summarizes how a store's batch run ended.
type RunStatus string

const (
	RunSuccess  RunStatus = "success"
	RunDegraded RunStatus = "degraded"
	RunFatal    RunStatus = "fatal"
)

// SafeguardEvent records one engaged safeguard during a run.
type SafeguardEvent struct {
	Reason   string `json:"reason"`
	ItemCode string `json:"item_code,omitempty"`
	Detail   string `json:"detail,omitempty"`
}

// RunReport is the outcome of a single store run. A run always yields a
// best-effort order list; the report says which safeguards were engaged
// along the way.
type RunReport struct {
	StoreID    int64            `json:"store_id"`
	RunDate    string           `json:"run_date"`
	Status     RunStatus        `json:"status"`
	Proposals  int              `json:"proposals"`
	Excluded   int              `json:"excluded"`
	Safeguards []SafeguardEvent `json:"safeguards,omitempty"`
	Error      string           `json:"error,omitempty"`
}

// AddSafeguard appends an event and downgrades a successful run to degraded.
func (r *RunReport) AddSafeguard(reason, itemCode, detail string) {
	r.Safeguards = append(r.Safeguards, SafeguardEvent{Reason: reason, ItemCode: itemCode, Detail: detail})
	if r.Status == RunSuccess {
		r.Status = RunDegraded
	}
}
