package models

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// ServiceType discriminates the care event variants.
type ServiceType string

const (
	ServiceBottle ServiceType = "bottle"
	ServiceSleep  ServiceType = "sleep"
	ServiceMed    ServiceType = "med"
	ServiceDiaper ServiceType = "diaper"
	ServiceGrowth ServiceType = "growth"
)

// AllServices lists every event type, in display order.
var AllServices = []ServiceType{ServiceBottle, ServiceSleep, ServiceMed, ServiceDiaper, ServiceGrowth}

// ValidService reports whether t is a known event type.
func ValidService(t ServiceType) bool {
	switch t {
	case ServiceBottle, ServiceSleep, ServiceMed, ServiceDiaper, ServiceGrowth:
		return true
	}
	return false
}

// Provenance records where a record was created. It is informational only
// and never consulted for conflict resolution.
type Provenance string

const (
	ProvenanceLocal  Provenance = "local"
	ProvenanceRemote Provenance = "remote"
)

// BottleKind qualifies a bottle feeding.
type BottleKind string

const (
	BottleBreastmilk BottleKind = "breastmilk"
	BottleFormula    BottleKind = "formula"
	BottleMixed      BottleKind = "mixed"
)

// DiaperKind qualifies a diaper change.
type DiaperKind string

const (
	DiaperWet   DiaperKind = "wet"
	DiaperDirty DiaperKind = "dirty"
	DiaperBoth  DiaperKind = "both"
)

// Event is the tagged union of care event variants. Concrete values are
// always pointers (*BottleEvent etc.) so the base can be mutated in place.
type Event interface {
	Base() *EventBase
	Type() ServiceType
}

// EventBase carries the fields shared by every event variant.
type EventBase struct {
	ID        string     `json:"id"`
	BabyID    string     `json:"babyId"`
	At        int64      `json:"at"`
	CreatedBy Provenance `json:"createdBy"`
}

// Base returns the shared fields; promoted onto every variant.
func (b *EventBase) Base() *EventBase { return b }

// NewEventID returns a collision-free identifier for an event record.
func NewEventID() string {
	return "event-" + uuid.NewString()
}

// BottleEvent is a bottle feeding of ML milliliters.
type BottleEvent struct {
	EventBase
	ML   int         `json:"ml"`
	Kind *BottleKind `json:"kind"`
}

func (*BottleEvent) Type() ServiceType { return ServiceBottle }

// SleepEvent is a sleep period. A nil EndAt means the sleep is still in
// progress; Duration is EndAt-StartAt in milliseconds once ended.
type SleepEvent struct {
	EventBase
	StartAt  int64  `json:"startAt"`
	EndAt    *int64 `json:"endAt"`
	Duration *int64 `json:"duration"`
}

func (*SleepEvent) Type() ServiceType { return ServiceSleep }

// InProgress reports whether the sleep has not been ended yet.
func (e *SleepEvent) InProgress() bool { return e.EndAt == nil }

// MedEvent is a medication intake.
type MedEvent struct {
	EventBase
	Name string  `json:"name"`
	Dose *string `json:"dose"`
	Note *string `json:"note"`
}

func (*MedEvent) Type() ServiceType { return ServiceMed }

// DiaperEvent is a diaper change.
type DiaperEvent struct {
	EventBase
	Kind DiaperKind `json:"kind"`
}

func (*DiaperEvent) Type() ServiceType { return ServiceDiaper }

// GrowthEvent is a growth measurement. All fields are optional; the caller
// creating the event guarantees at least one is set.
type GrowthEvent struct {
	EventBase
	WeightKg            *float64 `json:"weightKg"`
	HeightCm            *float64 `json:"heightCm"`
	HeadCircumferenceCm *float64 `json:"headCircumferenceCm"`
}

func (*GrowthEvent) Type() ServiceType { return ServiceGrowth }

// HasMeasurement reports whether at least one measurement is present.
func (e *GrowthEvent) HasMeasurement() bool {
	return e.WeightKg != nil || e.HeightCm != nil || e.HeadCircumferenceCm != nil
}

// CloneEvent returns an independent copy of the event so callers cannot
// alias cache-owned values.
func CloneEvent(ev Event) Event {
	switch v := ev.(type) {
	case *BottleEvent:
		c := *v
		return &c
	case *SleepEvent:
		c := *v
		return &c
	case *MedEvent:
		c := *v
		return &c
	case *DiaperEvent:
		c := *v
		return &c
	case *GrowthEvent:
		c := *v
		return &c
	}
	return ev
}

// eventEnvelope is the flat JSON shape events serialize through. The type
// tag selects which optional fields are meaningful on decode.
type eventEnvelope struct {
	ID        string      `json:"id"`
	BabyID    string      `json:"babyId"`
	Type      ServiceType `json:"type"`
	At        int64       `json:"at"`
	CreatedBy Provenance  `json:"createdBy"`

	ML         *int        `json:"ml,omitempty"`
	BottleKind *BottleKind `json:"kind,omitempty"`

	StartAt  *int64 `json:"startAt,omitempty"`
	EndAt    *int64 `json:"endAt,omitempty"`
	Duration *int64 `json:"duration,omitempty"`

	Name *string `json:"name,omitempty"`
	Dose *string `json:"dose,omitempty"`
	Note *string `json:"note,omitempty"`

	DiaperKind *DiaperKind `json:"diaperKind,omitempty"`

	WeightKg            *float64 `json:"weightKg,omitempty"`
	HeightCm            *float64 `json:"heightCm,omitempty"`
	HeadCircumferenceCm *float64 `json:"headCircumferenceCm,omitempty"`
}

func encodeEvent(ev Event) eventEnvelope {
	base := ev.Base()
	env := eventEnvelope{
		ID:        base.ID,
		BabyID:    base.BabyID,
		Type:      ev.Type(),
		At:        base.At,
		CreatedBy: base.CreatedBy,
	}
	switch v := ev.(type) {
	case *BottleEvent:
		ml := v.ML
		env.ML = &ml
		env.BottleKind = v.Kind
	case *SleepEvent:
		start := v.StartAt
		env.StartAt = &start
		env.EndAt = v.EndAt
		env.Duration = v.Duration
	case *MedEvent:
		name := v.Name
		env.Name = &name
		env.Dose = v.Dose
		env.Note = v.Note
	case *DiaperEvent:
		kind := v.Kind
		env.DiaperKind = &kind
	case *GrowthEvent:
		env.WeightKg = v.WeightKg
		env.HeightCm = v.HeightCm
		env.HeadCircumferenceCm = v.HeadCircumferenceCm
	}
	return env
}

func decodeEvent(env eventEnvelope) (Event, error) {
	base := EventBase{ID: env.ID, BabyID: env.BabyID, At: env.At, CreatedBy: env.CreatedBy}
	switch env.Type {
	case ServiceBottle:
		ev := &BottleEvent{EventBase: base, Kind: env.BottleKind}
		if env.ML != nil {
			ev.ML = *env.ML
		}
		return ev, nil
	case ServiceSleep:
		ev := &SleepEvent{EventBase: base, EndAt: env.EndAt, Duration: env.Duration}
		if env.StartAt != nil {
			ev.StartAt = *env.StartAt
		} else {
			ev.StartAt = env.At
		}
		return ev, nil
	case ServiceMed:
		ev := &MedEvent{EventBase: base, Dose: env.Dose, Note: env.Note}
		if env.Name != nil {
			ev.Name = *env.Name
		}
		return ev, nil
	case ServiceDiaper:
		ev := &DiaperEvent{EventBase: base}
		if env.DiaperKind != nil {
			ev.Kind = *env.DiaperKind
		}
		return ev, nil
	case ServiceGrowth:
		return &GrowthEvent{
			EventBase:           base,
			WeightKg:            env.WeightKg,
			HeightCm:            env.HeightCm,
			HeadCircumferenceCm: env.HeadCircumferenceCm,
		}, nil
	}
	return nil, fmt.Errorf("unknown event type %q", env.Type)
}

// MarshalEvents serializes a full event collection for the durable store.
func MarshalEvents(events []Event) ([]byte, error) {
	envs := make([]eventEnvelope, 0, len(events))
	for _, ev := range events {
		envs = append(envs, encodeEvent(ev))
	}
	return json.Marshal(envs)
}

// UnmarshalEvents restores an event collection written by MarshalEvents.
func UnmarshalEvents(data []byte) ([]Event, error) {
	var envs []eventEnvelope
	if err := json.Unmarshal(data, &envs); err != nil {
		return nil, err
	}
	events := make([]Event, 0, len(envs))
	for _, env := range envs {
		ev, err := decodeEvent(env)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}
