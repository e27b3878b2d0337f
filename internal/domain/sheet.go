package domain

// Sheet table keys. Every row lives under one partition.
const (
	SheetPartitionKey = "sheet#menu"
	SheetSortPrefix   = "item#"
)

// SheetKey is the primary key of a sheet row
type SheetKey struct {
	PK string
	SK string
}

// NewSheetKey builds the canonical key for an item id
func NewSheetKey(id string) SheetKey {
	return SheetKey{PK: SheetPartitionKey, SK: SheetSortPrefix + id}
}

// SheetRow is a spreadsheet-sourced drink record stored in the sheet table
type SheetRow struct {
	Key SheetKey `json:"-"`

	ID                     string   `json:"id"`
	Name                   string   `json:"name,omitempty"`
	Status                 string   `json:"status,omitempty"`
	Maker                  string   `json:"maker,omitempty"`
	MakerSlug              string   `json:"makerSlug,omitempty"`
	Category               string   `json:"category,omitempty"`
	Tags                   []string `json:"tags,omitempty"`
	Description            string   `json:"description,omitempty"`
	AiSuggestedDescription string   `json:"aiSuggestedDescription,omitempty"`
	AiSuggestedImageURL    string   `json:"aiSuggestedImageUrl,omitempty"`
	ImageURL               string   `json:"imageUrl,omitempty"`
	StagingKey             string   `json:"stagingKey,omitempty"`
	PublicKey              string   `json:"publicKey,omitempty"`
	AiStatus               string   `json:"aiStatus,omitempty"`
	ApproveFlag            string   `json:"approveFlag,omitempty"`
	ApprovedBy             string   `json:"approvedBy,omitempty"`
	ApprovedAt             string   `json:"approvedAt,omitempty"`
	UpdatedAt              string   `json:"updatedAt,omitempty"`
	Country                string   `json:"country,omitempty"`
	Manufacturer           string   `json:"manufacturer,omitempty"`
	Distributor            string   `json:"distributor,omitempty"`
	Distillery             string   `json:"distillery,omitempty"`
	Type                   string   `json:"type,omitempty"`
	CaskNumber             string   `json:"caskNumber,omitempty"`
	CaskType               string   `json:"caskType,omitempty"`
	MaturationPlace        string   `json:"maturationPlace,omitempty"`
	MaturationPeriod       string   `json:"maturationPeriod,omitempty"`
	AlcoholVolume          *float64 `json:"alcoholVolume,omitempty"`
	AvailableBottles       *float64 `json:"availableBottles,omitempty"`
	Price30ml              *float64 `json:"price30ml,omitempty"`
	Price15ml              *float64 `json:"price15ml,omitempty"`
	Price10ml              *float64 `json:"price10ml,omitempty"`
	Notes                  string   `json:"notes,omitempty"`
	CreatedAt              string   `json:"createdAt,omitempty"`
	SyncedAt               string   `json:"syncedAt,omitempty"`
}

// Published reports whether the row is approved for the public menu
func (r *SheetRow) Published() bool {
	return r.Status == string(StatusPublished) && r.ApproveFlag == string(ApproveFlagApproved)
}

// SheetUpdate describes a partial update of a sheet row.
// SetIfMissing values are only written when the attribute does not exist yet.
type SheetUpdate struct {
	Set          map[string]any
	SetIfMissing map[string]any
	Remove       []string
}

// Empty reports whether the update would change nothing
func (u SheetUpdate) Empty() bool {
	return len(u.Set) == 0 && len(u.SetIfMissing) == 0 && len(u.Remove) == 0
}

// SyncItem is a raw row pushed by the spreadsheet. Keys are sheet field names;
// a present key with an empty value clears the stored attribute.
type SyncItem map[string]any

// ID returns the row id, or "" when absent
func (s SyncItem) ID() string {
	if v, ok := s["id"].(string); ok {
		return v
	}
	return ""
}

// String returns a string field, or "" when absent or not a string
func (s SyncItem) String(field string) string {
	if v, ok := s[field].(string); ok {
		return v
	}
	return ""
}

// SyncRequest is the payload of the sheet sync endpoint
type SyncRequest struct {
	Action  string     `json:"action,omitempty"` // upsert | batch | delete
	Item    SyncItem   `json:"item,omitempty"`
	Items   []SyncItem `json:"items,omitempty"`
	ItemID  string     `json:"itemId,omitempty"`
	ItemIDs []string   `json:"itemIds,omitempty"`
}

// SyncResult reports which ids were processed
type SyncResult struct {
	OK        bool     `json:"ok"`
	Processed []string `json:"processed"`
}

// ApprovalRequest is the payload of the image approval webhook
type ApprovalRequest struct {
	StagingKey string `json:"stagingKey"`
	PublicKey  string `json:"publicKey"`
	ItemID     string `json:"itemId"`
}

// AiSuggestion is a pending AI completion for review
type AiSuggestion struct {
	ID                     string  `json:"id"`
	AiSuggestedDescription *string `json:"aiSuggestedDescription"`
	AiSuggestedImageURL    *string `json:"aiSuggestedImageUrl"`
	AiStatus               string  `json:"aiStatus"`
}
