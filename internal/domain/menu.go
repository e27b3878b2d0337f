package domain

import (
	"strings"
	"time"
)

// MenuStatus is the publication state of a sheet row
type MenuStatus string

const (
	StatusPublished MenuStatus = "Published"
	StatusDraft     MenuStatus = "Draft"
)

// AiStatus tracks the AI completion review workflow
type AiStatus string

const (
	AiStatusNone        AiStatus = "None"
	AiStatusNeedsReview AiStatus = "NeedsReview"
	AiStatusApproved    AiStatus = "Approved"
	AiStatusRejected    AiStatus = "Rejected"
)

// ApproveFlag is the manual publish approval set in the spreadsheet
type ApproveFlag string

const (
	ApproveFlagApproved ApproveFlag = "Approved"
	ApproveFlagRejected ApproveFlag = "Rejected"
	ApproveFlagNone     ApproveFlag = "-"
)

// Class is a low/mid/high bucket used for ABV and price classification
type Class string

const (
	ClassLow  Class = "low"
	ClassMid  Class = "mid"
	ClassHigh Class = "high"
)

// Valid reports whether c is one of the known buckets
func (c Class) Valid() bool {
	return c == ClassLow || c == ClassMid || c == ClassHigh
}

// MenuItem is a published drink record as written to menu.json
type MenuItem struct {
	ID                     string      `json:"id"`
	Status                 MenuStatus  `json:"status"`
	Name                   string      `json:"name"`
	Maker                  string      `json:"maker"`
	MakerSlug              string      `json:"makerSlug"`
	Category               string      `json:"category"`
	Tags                   []string    `json:"tags"`
	Description            string      `json:"description"`
	AiSuggestedDescription string      `json:"aiSuggestedDescription,omitempty"`
	AiSuggestedImageURL    string      `json:"aiSuggestedImageUrl,omitempty"`
	ImageURL               string      `json:"imageUrl"`
	AiStatus               AiStatus    `json:"aiStatus"`
	ApproveFlag            ApproveFlag `json:"approveFlag"`
	ApprovedBy             string      `json:"approvedBy,omitempty"`
	ApprovedAt             string      `json:"approvedAt,omitempty"`
	UpdatedAt              string      `json:"updatedAt,omitempty"`
	Country                string      `json:"country,omitempty"`
	Manufacturer           string      `json:"manufacturer,omitempty"`
	Distributor            string      `json:"distributor,omitempty"`
	Distillery             string      `json:"distillery,omitempty"`
	Type                   string      `json:"type,omitempty"`
	CaskNumber             string      `json:"caskNumber,omitempty"`
	CaskType               string      `json:"caskType,omitempty"`
	MaturationPlace        string      `json:"maturationPlace,omitempty"`
	MaturationPeriod       string      `json:"maturationPeriod,omitempty"`
	AlcoholVolume          *float64    `json:"alcoholVolume,omitempty"` // percent
	AvailableBottles       *float64    `json:"availableBottles,omitempty"`
	Price30ml              *float64    `json:"price30ml,omitempty"`
	Price15ml              *float64    `json:"price15ml,omitempty"`
	Price10ml              *float64    `json:"price10ml,omitempty"`
	Notes                  string      `json:"notes,omitempty"`
	AbvClass               Class       `json:"abvClass,omitempty"`
	PriceClass             Class       `json:"priceClass,omitempty"`
}

// Recommendable reports whether the item may be listed publicly or recommended
func (m *MenuItem) Recommendable() bool {
	return m.Status == StatusPublished && m.AiStatus == AiStatusApproved
}

// MenuSnapshot is the menu.json document
type MenuSnapshot struct {
	Items     []MenuItem `json:"items"`
	Total     int        `json:"total"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// MakerSummary aggregates published items per maker
type MakerSummary struct {
	Maker     string `json:"maker"`
	MakerSlug string `json:"makerSlug"`
	Country   string `json:"country,omitempty"`
	ItemCount int    `json:"itemCount"`
}

// MenuQuery holds the public listing filters
type MenuQuery struct {
	Keyword  string `form:"keyword"`
	Maker    string `form:"maker"`
	Category string `form:"category"`
	Tags     string `form:"tags"` // comma separated, all must match
}

// TagList splits the comma separated tag filter
func (q MenuQuery) TagList() []string {
	var tags []string
	for _, t := range strings.Split(q.Tags, ",") {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
