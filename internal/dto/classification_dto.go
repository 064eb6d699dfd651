package dto

import (
	"time"

	"github.com/noah-isme/email-classifier-api/internal/masking"
	"github.com/noah-isme/email-classifier-api/internal/models"
)

// ClassificationRequest is the payload accepted by POST /classify. The body
// is a pointer so an absent field can be told apart from an empty string.
type ClassificationRequest struct {
	InputEmailBody *string `json:"input_email_body" validate:"required"`
}

// MaskedEntity is one detected PII span in the original body.
type MaskedEntity struct {
	Position       [2]int `json:"position"`
	Classification string `json:"classification"`
	Entity         string `json:"entity"`
}

// ClassificationResponse is the read-only result of classifying one email.
type ClassificationResponse struct {
	InputEmailBody       string         `json:"input_email_body"`
	ListOfMaskedEntities []MaskedEntity `json:"list_of_masked_entities"`
	MaskedEmail          string         `json:"masked_email"`
	CategoryOfTheEmail   string         `json:"category_of_the_email"`
}

// NewMaskedEntities converts masker output into DTOs, keeping its order.
func NewMaskedEntities(entities []masking.Entity) []MaskedEntity {
	out := make([]MaskedEntity, 0, len(entities))
	for _, e := range entities {
		out = append(out, MaskedEntity{
			Position:       e.Position,
			Classification: e.Classification.String(),
			Entity:         e.Entity,
		})
	}
	return out
}

// RootResponse is the liveness payload served at GET /.
type RootResponse struct {
	Message string `json:"message"`
}

// ClassificationHistoryQuery filters GET /api/v1/classifications.
type ClassificationHistoryQuery struct {
	Page     int    `query:"page" validate:"omitempty,min=1"`
	PageSize int    `query:"page_size" validate:"omitempty,min=1,max=100"`
	Category string `query:"category" validate:"omitempty,max=64"`
}

// ClassificationRecordResponse is the public view of a stored record.
type ClassificationRecordResponse struct {
	ReferenceID  string                 `json:"reference_id"`
	MaskedEmail  string                 `json:"masked_email"`
	Category     string                 `json:"category"`
	ClusterID    int                    `json:"cluster_id"`
	EntityCounts map[string]interface{} `json:"entity_counts"`
	Overlaps     int                    `json:"overlaps"`
	EntryPoint   string                 `json:"entry_point"`
	CreatedAt    time.Time              `json:"created_at"`
}

// ClassificationHistoryResponse is a page of stored records.
type ClassificationHistoryResponse struct {
	Items      []ClassificationRecordResponse `json:"items"`
	Total      int64                          `json:"total"`
	Page       int                            `json:"page"`
	PageSize   int                            `json:"page_size"`
	ByCategory map[string]int64               `json:"by_category,omitempty"`
}

// NewClassificationRecordResponse converts a model into a DTO.
func NewClassificationRecordResponse(record models.ClassificationRecord) ClassificationRecordResponse {
	counts := make(map[string]interface{}, len(record.EntityCounts))
	for k, v := range record.EntityCounts {
		counts[k] = v
	}
	return ClassificationRecordResponse{
		ReferenceID:  record.ReferenceID,
		MaskedEmail:  record.MaskedEmail,
		Category:     record.Category,
		ClusterID:    record.ClusterID,
		EntityCounts: counts,
		Overlaps:     record.Overlaps,
		EntryPoint:   record.EntryPoint,
		CreatedAt:    record.CreatedAt,
	}
}

// NewClassificationRecordResponseSlice converts a slice of models into DTOs.
func NewClassificationRecordResponseSlice(records []models.ClassificationRecord) []ClassificationRecordResponse {
	out := make([]ClassificationRecordResponse, 0, len(records))
	for _, record := range records {
		out = append(out, NewClassificationRecordResponse(record))
	}
	return out
}

// ClassificationEvent is published to the broker after each classification.
type ClassificationEvent struct {
	Source        string         `json:"source"`
	ReferenceID   string         `json:"reference_id"`
	CorrelationID string         `json:"correlation_id,omitempty"`
	Category      string         `json:"category"`
	ClusterID     int            `json:"cluster_id"`
	EntityCounts  map[string]int `json:"entity_counts"`
	MaskedEmail   string         `json:"masked_email"`
	EntryPoint    string         `json:"entry_point"`
	ClassifiedAt  time.Time      `json:"classified_at"`
}
