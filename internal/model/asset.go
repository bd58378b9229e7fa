package model

import "time"

// AssetType identifies the kind of rentable equipment.  An asset keeps
// its type for its whole lifetime.
type AssetType string

const (
	AssetGolfCart AssetType = "golfCart"
	AssetGolfBag  AssetType = "golfBag"
)

// AssetTypes lists every supported asset type in display order.
var AssetTypes = []AssetType{AssetGolfCart, AssetGolfBag}

// Valid reports whether t is one of the enumerated asset types.
func (t AssetType) Valid() bool {
	return t == AssetGolfCart || t == AssetGolfBag
}

// AssetStatus is the operational state of a single asset.
type AssetStatus string

const (
	AssetAvailable AssetStatus = "available"
	AssetBooked    AssetStatus = "booked"
	AssetInUse     AssetStatus = "inUse"
	AssetClean     AssetStatus = "clean"
	AssetSpare     AssetStatus = "spare"
	AssetBroken    AssetStatus = "broken"
)

// AssetStatuses lists every asset status.  Summaries are zero-filled in
// this order.
var AssetStatuses = []AssetStatus{AssetBooked, AssetInUse, AssetClean, AssetAvailable, AssetSpare, AssetBroken}

// Valid reports whether s is one of the enumerated asset statuses.
func (s AssetStatus) Valid() bool {
	for _, v := range AssetStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// Asset represents a golf cart or golf bag tracked individually by
// status.
//
// Fields:
//  ID          – primary key identifier.
//  Type        – golfCart or golfBag.
//  Status      – current lifecycle state.
//  Name        – optional display name (e.g. "Cart 12").
//  Description – free text, typically describing a defect.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type Asset struct {
	ID          uint64      `json:"id"`          // assets.id
	Type        AssetType   `json:"type"`        // assets.type
	Status      AssetStatus `json:"status"`      // assets.status
	Name        *string     `json:"name,omitempty"`        // assets.name (nullable)
	Description *string     `json:"description,omitempty"` // assets.description (nullable)
	CreatedAt   time.Time   `json:"created_at"`  // assets.created_at
	UpdatedAt   time.Time   `json:"updated_at"`  // assets.updated_at
}

// AssetSummary counts assets per type and status.  Every status key is
// present for every type, with zero when no asset is in that status.
type AssetSummary map[AssetType]map[AssetStatus]int

// NewAssetSummary returns a zero-filled summary.
func NewAssetSummary() AssetSummary {
	s := make(AssetSummary, len(AssetTypes))
	for _, t := range AssetTypes {
		m := make(map[AssetStatus]int, len(AssetStatuses))
		for _, st := range AssetStatuses {
			m[st] = 0
		}
		s[t] = m
	}
	return s
}

// Total returns the number of assets of the given type across all statuses.
func (s AssetSummary) Total(t AssetType) int {
	n := 0
	for _, c := range s[t] {
		n += c
	}
	return n
}
