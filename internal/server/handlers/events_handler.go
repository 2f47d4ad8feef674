package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/AndreasArnolfo/Babyrons/internal/domain/models"
	"github.com/AndreasArnolfo/Babyrons/internal/store"
)

// EventsHandler exposes care event CRUD over HTTP. Type-specific
// validation lives here: the store accepts whatever its callers hand it.
type EventsHandler struct {
	store  *store.Store
	logger *zap.Logger
}

// NewEventsHandler constructs the HTTP handler adapter.
func NewEventsHandler(st *store.Store, logger *zap.Logger) *EventsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventsHandler{store: st, logger: logger}
}

// eventRequest is the flat payload for creating or replacing an event;
// the type field selects which of the optional fields apply.
type eventRequest struct {
	BabyID string             `json:"babyId" binding:"required"`
	Type   models.ServiceType `json:"type" binding:"required"`
	At     *int64             `json:"at"`

	ML   *int    `json:"ml"`
	Kind *string `json:"kind"`

	StartAt *int64 `json:"startAt"`
	EndAt   *int64 `json:"endAt"`

	Name *string `json:"name"`
	Dose *string `json:"dose"`
	Note *string `json:"note"`

	WeightKg            *float64 `json:"weightKg"`
	HeightCm            *float64 `json:"heightCm"`
	HeadCircumferenceCm *float64 `json:"headCircumferenceCm"`
}

// buildEvent validates the payload and constructs the event variant.
// Invalid or missing timestamps fall back to now rather than rejecting.
func buildEvent(req eventRequest) (models.Event, string) {
	at := time.Now().UnixMilli()
	if req.At != nil && *req.At > 0 {
		at = *req.At
	}
	base := models.EventBase{BabyID: req.BabyID, At: at}

	switch req.Type {
	case models.ServiceBottle:
		if req.ML == nil || *req.ML <= 0 {
			return nil, "ml must be a positive integer"
		}
		ev := &models.BottleEvent{EventBase: base, ML: *req.ML}
		if req.Kind != nil {
			kind := models.BottleKind(*req.Kind)
			switch kind {
			case models.BottleBreastmilk, models.BottleFormula, models.BottleMixed:
				ev.Kind = &kind
			default:
				return nil, "kind must be breastmilk, formula or mixed"
			}
		}
		return ev, ""

	case models.ServiceSleep:
		start := at
		if req.StartAt != nil && *req.StartAt > 0 {
			start = *req.StartAt
		}
		ev := &models.SleepEvent{EventBase: base, StartAt: start}
		if req.EndAt != nil {
			if *req.EndAt < start {
				return nil, "endAt must not precede startAt"
			}
			end := *req.EndAt
			duration := end - start
			ev.EndAt = &end
			ev.Duration = &duration
		}
		return ev, ""

	case models.ServiceMed:
		if req.Name == nil || *req.Name == "" {
			return nil, "name is required for med events"
		}
		return &models.MedEvent{EventBase: base, Name: *req.Name, Dose: req.Dose, Note: req.Note}, ""

	case models.ServiceDiaper:
		if req.Kind == nil {
			return nil, "kind is required for diaper events"
		}
		kind := models.DiaperKind(*req.Kind)
		switch kind {
		case models.DiaperWet, models.DiaperDirty, models.DiaperBoth:
			return &models.DiaperEvent{EventBase: base, Kind: kind}, ""
		}
		return nil, "kind must be wet, dirty or both"

	case models.ServiceGrowth:
		ev := &models.GrowthEvent{
			EventBase:           base,
			WeightKg:            req.WeightKg,
			HeightCm:            req.HeightCm,
			HeadCircumferenceCm: req.HeadCircumferenceCm,
		}
		if !ev.HasMeasurement() {
			return nil, "growth events need at least one measurement"
		}
		return ev, ""
	}
	return nil, "unknown event type"
}

// List returns events, optionally filtered by babyId and/or type.
func (h *EventsHandler) List(c *gin.Context) {
	babyID := c.Query("babyId")
	eventType := c.Query("type")

	var events []models.Event
	switch {
	case babyID != "":
		events = h.store.EventsByBaby(babyID)
	case eventType != "":
		events = h.store.EventsByType(models.ServiceType(eventType))
	default:
		events = h.store.Events()
	}
	if babyID != "" && eventType != "" {
		filtered := events[:0]
		for _, ev := range events {
			if ev.Type() == models.ServiceType(eventType) {
				filtered = append(filtered, ev)
			}
		}
		events = filtered
	}
	if events == nil {
		events = []models.Event{}
	}
	c.JSON(http.StatusOK, events)
}

// Create logs a new care event.
func (h *EventsHandler) Create(c *gin.Context) {
	var req eventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid event payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	ev, msg := buildEvent(req)
	if ev == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	// One in-progress sleep per baby. The store tolerates more; this is
	// the caller-side invariant.
	if sleep, ok := ev.(*models.SleepEvent); ok && sleep.InProgress() {
		if _, open := h.store.OpenSleep(req.BabyID); open {
			c.JSON(http.StatusConflict, gin.H{"error": "a sleep is already in progress for this baby"})
			return
		}
	}

	created := h.store.AddEvent(ev)
	c.JSON(http.StatusCreated, created)
}

// Update replaces an event with a full new payload under the same id.
func (h *EventsHandler) Update(c *gin.Context) {
	var req eventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid event patch", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	ev, msg := buildEvent(req)
	if ev == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}
	ev.Base().ID = c.Param("id")

	if !h.store.UpdateEvent(ev) {
		c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
		return
	}
	updated, _ := h.store.Event(ev.Base().ID)
	c.JSON(http.StatusOK, updated)
}

// Delete removes an event.
func (h *EventsHandler) Delete(c *gin.Context) {
	h.store.RemoveEvent(c.Param("id"))
	c.Status(http.StatusNoContent)
}
