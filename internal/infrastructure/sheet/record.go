package sheet

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/barease/backend/internal/domain"
)

// record is the stored shape of a sheet row. Spreadsheet pushes from older
// clients wrote numbers and tags as strings, so those columns decode leniently.
type record struct {
	PK                     string     `dynamodbav:"pk"`
	SK                     string     `dynamodbav:"sk"`
	ID                     flexString `dynamodbav:"id"`
	Name                   flexString `dynamodbav:"name"`
	Status                 flexString `dynamodbav:"status"`
	Maker                  flexString `dynamodbav:"maker"`
	MakerSlug              flexString `dynamodbav:"makerSlug"`
	Category               flexString `dynamodbav:"category"`
	Tags                   flexTags   `dynamodbav:"tags"`
	Description            flexString `dynamodbav:"description"`
	AiSuggestedDescription flexString `dynamodbav:"aiSuggestedDescription"`
	AiSuggestedImageURL    flexString `dynamodbav:"aiSuggestedImageUrl"`
	ImageURL               flexString `dynamodbav:"imageUrl"`
	StagingKey             flexString `dynamodbav:"stagingKey"`
	PublicKey              flexString `dynamodbav:"publicKey"`
	AiStatus               flexString `dynamodbav:"aiStatus"`
	ApproveFlag            flexString `dynamodbav:"approveFlag"`
	ApprovedBy             flexString `dynamodbav:"approvedBy"`
	ApprovedAt             flexString `dynamodbav:"approvedAt"`
	UpdatedAt              flexString `dynamodbav:"updatedAt"`
	Country                flexString `dynamodbav:"country"`
	Manufacturer           flexString `dynamodbav:"manufacturer"`
	Distributor            flexString `dynamodbav:"distributor"`
	Distillery             flexString `dynamodbav:"distillery"`
	Type                   flexString `dynamodbav:"type"`
	CaskNumber             flexString `dynamodbav:"caskNumber"`
	CaskType               flexString `dynamodbav:"caskType"`
	MaturationPlace        flexString `dynamodbav:"maturationPlace"`
	MaturationPeriod       flexString `dynamodbav:"maturationPeriod"`
	AlcoholVolume          flexNumber `dynamodbav:"alcoholVolume"`
	AvailableBottles       flexNumber `dynamodbav:"availableBottles"`
	Price30ml              flexNumber `dynamodbav:"price30ml"`
	Price15ml              flexNumber `dynamodbav:"price15ml"`
	Price10ml              flexNumber `dynamodbav:"price10ml"`
	Notes                  flexString `dynamodbav:"notes"`
	CreatedAt              flexString `dynamodbav:"createdAt"`
	SyncedAt               flexString `dynamodbav:"syncedAt"`
}

func (r *record) toRow() domain.SheetRow {
	return domain.SheetRow{
		Key:                    domain.SheetKey{PK: r.PK, SK: r.SK},
		ID:                     string(r.ID),
		Name:                   string(r.Name),
		Status:                 string(r.Status),
		Maker:                  string(r.Maker),
		MakerSlug:              string(r.MakerSlug),
		Category:               string(r.Category),
		Tags:                   []string(r.Tags),
		Description:            string(r.Description),
		AiSuggestedDescription: string(r.AiSuggestedDescription),
		AiSuggestedImageURL:    string(r.AiSuggestedImageURL),
		ImageURL:               string(r.ImageURL),
		StagingKey:             string(r.StagingKey),
		PublicKey:              string(r.PublicKey),
		AiStatus:               string(r.AiStatus),
		ApproveFlag:            string(r.ApproveFlag),
		ApprovedBy:             string(r.ApprovedBy),
		ApprovedAt:             string(r.ApprovedAt),
		UpdatedAt:              string(r.UpdatedAt),
		Country:                string(r.Country),
		Manufacturer:           string(r.Manufacturer),
		Distributor:            string(r.Distributor),
		Distillery:             string(r.Distillery),
		Type:                   string(r.Type),
		CaskNumber:             string(r.CaskNumber),
		CaskType:               string(r.CaskType),
		MaturationPlace:        string(r.MaturationPlace),
		MaturationPeriod:       string(r.MaturationPeriod),
		AlcoholVolume:          r.AlcoholVolume.ptr(),
		AvailableBottles:       r.AvailableBottles.ptr(),
		Price30ml:              r.Price30ml.ptr(),
		Price15ml:              r.Price15ml.ptr(),
		Price10ml:              r.Price10ml.ptr(),
		Notes:                  string(r.Notes),
		CreatedAt:              string(r.CreatedAt),
		SyncedAt:               string(r.SyncedAt),
	}
}

// flexString accepts S, N and BOOL attributes
type flexString string

func (s *flexString) UnmarshalDynamoDBAttributeValue(av types.AttributeValue) error {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		*s = flexString(v.Value)
	case *types.AttributeValueMemberN:
		*s = flexString(v.Value)
	case *types.AttributeValueMemberBOOL:
		*s = flexString(strconv.FormatBool(v.Value))
	}
	return nil
}

// flexNumber accepts N attributes and loosely formatted S attributes
type flexNumber struct {
	value float64
	set   bool
}

func (n *flexNumber) UnmarshalDynamoDBAttributeValue(av types.AttributeValue) error {
	switch v := av.(type) {
	case *types.AttributeValueMemberN:
		f, err := strconv.ParseFloat(v.Value, 64)
		if err != nil {
			return fmt.Errorf("invalid number %q: %w", v.Value, err)
		}
		n.value, n.set = f, true
	case *types.AttributeValueMemberS:
		if f, ok := domain.ParseNumber(v.Value); ok {
			n.value, n.set = f, true
		}
	}
	return nil
}

func (n flexNumber) ptr() *float64 {
	if !n.set {
		return nil
	}
	v := n.value
	return &v
}

// flexTags accepts lists, string sets and comma separated strings
type flexTags []string

func (t *flexTags) UnmarshalDynamoDBAttributeValue(av types.AttributeValue) error {
	var tags []string
	switch v := av.(type) {
	case *types.AttributeValueMemberL:
		for _, item := range v.Value {
			if s, ok := item.(*types.AttributeValueMemberS); ok {
				tags = append(tags, s.Value)
			}
		}
	case *types.AttributeValueMemberSS:
		tags = v.Value
	case *types.AttributeValueMemberS:
		tags = strings.Split(v.Value, ",")
	}

	cleaned := make([]string, 0, len(tags))
	for _, tag := range tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			cleaned = append(cleaned, tag)
		}
	}
	*t = cleaned
	return nil
}
