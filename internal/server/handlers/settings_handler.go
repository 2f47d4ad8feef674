package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/AndreasArnolfo/Babyrons/internal/domain/models"
	"github.com/AndreasArnolfo/Babyrons/internal/store"
)

// SettingsHandler exposes the settings singleton over HTTP.
type SettingsHandler struct {
	store  *store.Store
	logger *zap.Logger
}

// NewSettingsHandler constructs the HTTP handler adapter.
func NewSettingsHandler(st *store.Store, logger *zap.Logger) *SettingsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettingsHandler{store: st, logger: logger}
}

type updateSettingsRequest struct {
	EnabledServices *[]models.ServiceType `json:"enabledServices"`
	Theme           *models.Theme         `json:"theme"`
	IsPro           *bool                 `json:"isPro"`
}

// Get returns the current settings.
func (h *SettingsHandler) Get(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Settings())
}

// Update merges a partial settings payload.
func (h *SettingsHandler) Update(c *gin.Context) {
	var req updateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid settings payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Theme != nil {
		switch *req.Theme {
		case models.ThemeLight, models.ThemeDark, models.ThemePastel:
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "theme must be light, dark or pastel"})
			return
		}
	}
	if req.EnabledServices != nil {
		for _, svc := range *req.EnabledServices {
			if !models.ValidService(svc) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "unknown service type"})
				return
			}
		}
	}

	h.store.UpdateSettings(store.SettingsPatch{
		EnabledServices: req.EnabledServices,
		Theme:           req.Theme,
		IsPro:           req.IsPro,
	})
	c.JSON(http.StatusOK, h.store.Settings())
}

// Toggle flips whether one event type is offered.
func (h *SettingsHandler) Toggle(c *gin.Context) {
	svc := models.ServiceType(c.Param("type"))
	if !models.ValidService(svc) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown service type"})
		return
	}
	h.store.ToggleService(svc)
	c.JSON(http.StatusOK, h.store.Settings())
}
