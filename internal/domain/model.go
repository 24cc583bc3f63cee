package domain

import "time"

// BaseModel is the common base struct for all domain models.
// It replaces gorm.Model to avoid the implicit soft delete behavior of DeletedAt.
type BaseModel struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// GetID returns the primary key.
func (m BaseModel) GetID() uint { return m.ID }

// PageRequest holds pagination, search, sorting, and filtering parameters.
type PageRequest struct {
	Page     int
	PageSize int
	Search   string
	Sort     string
	Filter   map[string]string
}

// PageResult is one page of a list query. The JSON shape is the list payload
// the dashboard expects inside the response envelope.
type PageResult[T any] struct {
	Items      []T   `json:"data"`
	Total      int64 `json:"totalItems"`
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	TotalPages int   `json:"totalPages"`
}

// LocalizedText carries the same message in both supported languages.
// The JSON keys match what API consumers already parse.
type LocalizedText struct {
	Arabic  string `json:"arabic"`
	English string `json:"english"`
}

// In returns the text for locale, falling back to English.
func (t LocalizedText) In(locale string) string {
	if locale == "ar" && t.Arabic != "" {
		return t.Arabic
	}
	if t.English != "" {
		return t.English
	}
	return t.Arabic
}
