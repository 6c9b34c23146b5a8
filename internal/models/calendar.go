package models

import "time"

type Category string

const (
	CategoryPersonal Category = "personal"
	CategoryBusiness Category = "business"
	CategoryCustom   Category = "custom"
)

// DefaultColor returns the display color used when neither the appointment
// nor its calendar sets one.
func (c Category) DefaultColor() string {
	switch c {
	case CategoryPersonal:
		return "#3b82f6"
	case CategoryBusiness:
		return "#10b981"
	case CategoryCustom:
		return "#8b5cf6"
	}
	return "#3b82f6"
}

type Calendar struct {
	CalendarID int64     `json:"calendar_id"`
	OwnerID    int64     `json:"owner_id"`
	Name       string    `json:"name"`
	Color      string    `json:"color"`
	Category   Category  `json:"category"`
	Visible    bool      `json:"visible"`
	IsDefault  bool      `json:"is_default"`
	CreatedAt  time.Time `json:"created_at"`
}

// DisplayColor resolves the calendar color, then the category default.
func (c *Calendar) DisplayColor() string {
	if c.Color != "" {
		return c.Color
	}
	return c.Category.DefaultColor()
}
