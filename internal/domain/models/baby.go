package models

import (
	"strings"

	"github.com/google/uuid"
)

// Gender values accepted on a Baby record. A nil pointer means "not set".
const (
	GenderMale   = "male"
	GenderFemale = "female"
)

// Baby is a caregiver subject. Events reference it through BabyID; there is
// no back-reference from the baby to its events.
type Baby struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Color     string  `json:"color"`
	Gender    *string `json:"gender"`
	BirthDate *int64  `json:"birthDate"`
	Photo     *string `json:"photo"`
	CreatedAt int64   `json:"createdAt"`
}

// NewBabyID returns a collision-free identifier for a baby record.
func NewBabyID() string {
	return "baby-" + uuid.NewString()
}

// HasLocalPhoto reports whether the photo reference points at a local file
// rather than an already-uploaded URL.
func (b Baby) HasLocalPhoto() bool {
	return b.Photo != nil && *b.Photo != "" && !strings.Contains(*b.Photo, "://")
}

// Baby UI palette. Gendered colors take priority; otherwise the palette is
// assigned round-robin by the number of babies already registered.
const (
	colorBoy  = "#9CC6E7"
	colorGirl = "#E8B7D4"
)

var babyPalette = []string{
	"#98FFC1", // mint
	"#E6D5F5", // lavender
	"#FFD4B8", // peach
	"#B3E5FC", // sky
	"#FFB3C6", // rose
	"#FFF9C4", // lemon
	"#FFCCBC", // coral
}

// ColorFor picks the display color for a new baby given its gender and the
// number of babies already in the cache.
func ColorFor(gender *string, existing int) string {
	if gender != nil {
		switch *gender {
		case GenderMale:
			return colorBoy
		case GenderFemale:
			return colorGirl
		}
	}
	return babyPalette[existing%len(babyPalette)]
}
