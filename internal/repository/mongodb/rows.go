package mongodb

import (
	"fmt"

	"github.com/AndreasArnolfo/Babyrons/internal/domain/models"
)

// Row shapes for the remote collections. This package is the sole
// translation point between the snake_case remote schema and the local
// camelCase entity model.

type babyRow struct {
	ID        string  `bson:"_id"`
	UserID    string  `bson:"user_id"`
	Name      string  `bson:"name"`
	Color     string  `bson:"color"`
	Gender    *string `bson:"gender"`
	BirthDate *int64  `bson:"birth_date"`
	PhotoURL  *string `bson:"photo_url"`
	CreatedAt int64   `bson:"created_at"`
}

func babyToRow(userID string, b models.Baby) babyRow {
	return babyRow{
		ID:        b.ID,
		UserID:    userID,
		Name:      b.Name,
		Color:     b.Color,
		Gender:    b.Gender,
		BirthDate: b.BirthDate,
		PhotoURL:  b.Photo,
		CreatedAt: b.CreatedAt,
	}
}

func babyFromRow(row babyRow) models.Baby {
	return models.Baby{
		ID:        row.ID,
		Name:      row.Name,
		Color:     row.Color,
		Gender:    row.Gender,
		BirthDate: row.BirthDate,
		Photo:     row.PhotoURL,
		CreatedAt: row.CreatedAt,
	}
}

// eventRow flattens the event union; the type column selects which of the
// nullable columns are meaningful. The kind column is shared by bottle
// and diaper events, matching the remote schema.
type eventRow struct {
	ID     string `bson:"_id"`
	UserID string `bson:"user_id"`
	BabyID string `bson:"baby_id"`
	Type   string `bson:"type"`
	At     int64  `bson:"at"`

	ML   *int    `bson:"ml"`
	Kind *string `bson:"kind"`

	StartAt  *int64 `bson:"start_at"`
	EndAt    *int64 `bson:"end_at"`
	Duration *int64 `bson:"duration"`

	Name *string `bson:"name"`
	Dose *string `bson:"dose"`
	Note *string `bson:"note"`

	WeightKg            *float64 `bson:"weight_kg"`
	HeightCm            *float64 `bson:"height_cm"`
	HeadCircumferenceCm *float64 `bson:"head_circumference_cm"`
}

func eventToRow(userID string, ev models.Event) eventRow {
	base := ev.Base()
	row := eventRow{
		ID:     base.ID,
		UserID: userID,
		BabyID: base.BabyID,
		Type:   string(ev.Type()),
		At:     base.At,
	}
	switch v := ev.(type) {
	case *models.BottleEvent:
		ml := v.ML
		row.ML = &ml
		if v.Kind != nil {
			kind := string(*v.Kind)
			row.Kind = &kind
		}
	case *models.SleepEvent:
		start := v.StartAt
		row.StartAt = &start
		row.EndAt = v.EndAt
		row.Duration = v.Duration
	case *models.MedEvent:
		name := v.Name
		row.Name = &name
		row.Dose = v.Dose
		row.Note = v.Note
	case *models.DiaperEvent:
		kind := string(v.Kind)
		row.Kind = &kind
	case *models.GrowthEvent:
		row.WeightKg = v.WeightKg
		row.HeightCm = v.HeightCm
		row.HeadCircumferenceCm = v.HeadCircumferenceCm
	}
	return row
}

func eventFromRow(row eventRow) (models.Event, error) {
	base := models.EventBase{
		ID:        row.ID,
		BabyID:    row.BabyID,
		At:        row.At,
		CreatedBy: models.ProvenanceRemote,
	}
	switch models.ServiceType(row.Type) {
	case models.ServiceBottle:
		ev := &models.BottleEvent{EventBase: base}
		if row.ML != nil {
			ev.ML = *row.ML
		}
		if row.Kind != nil {
			kind := models.BottleKind(*row.Kind)
			ev.Kind = &kind
		}
		return ev, nil
	case models.ServiceSleep:
		ev := &models.SleepEvent{EventBase: base, EndAt: row.EndAt, Duration: row.Duration}
		if row.StartAt != nil {
			ev.StartAt = *row.StartAt
		} else {
			ev.StartAt = row.At
		}
		return ev, nil
	case models.ServiceMed:
		ev := &models.MedEvent{EventBase: base, Dose: row.Dose, Note: row.Note}
		if row.Name != nil {
			ev.Name = *row.Name
		}
		return ev, nil
	case models.ServiceDiaper:
		ev := &models.DiaperEvent{EventBase: base}
		if row.Kind != nil {
			ev.Kind = models.DiaperKind(*row.Kind)
		}
		return ev, nil
	case models.ServiceGrowth:
		return &models.GrowthEvent{
			EventBase:           base,
			WeightKg:            row.WeightKg,
			HeightCm:            row.HeightCm,
			HeadCircumferenceCm: row.HeadCircumferenceCm,
		}, nil
	}
	return nil, fmt.Errorf("unknown event type %q in row %s", row.Type, row.ID)
}

type settingsRow struct {
	UserID          string   `bson:"_id"`
	EnabledServices []string `bson:"enabled_services"`
	Theme           string   `bson:"theme"`
	IsPro           bool     `bson:"is_pro"`
}

func settingsToRow(userID string, s models.Settings) settingsRow {
	enabled := make([]string, 0, len(s.EnabledServices))
	for _, svc := range s.EnabledServices {
		enabled = append(enabled, string(svc))
	}
	return settingsRow{
		UserID:          userID,
		EnabledServices: enabled,
		Theme:           string(s.Theme),
		IsPro:           s.IsPro,
	}
}

func settingsFromRow(row settingsRow) models.Settings {
	enabled := make([]models.ServiceType, 0, len(row.EnabledServices))
	for _, svc := range row.EnabledServices {
		enabled = append(enabled, models.ServiceType(svc))
	}
	return models.Settings{
		EnabledServices: enabled,
		Theme:           models.Theme(row.Theme),
		IsPro:           row.IsPro,
	}
}
