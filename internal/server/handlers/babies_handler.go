package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/AndreasArnolfo/Babyrons/internal/domain/models"
	"github.com/AndreasArnolfo/Babyrons/internal/store"
)

// BabiesHandler exposes baby CRUD over HTTP.
type BabiesHandler struct {
	store  *store.Store
	logger *zap.Logger
}

// NewBabiesHandler constructs the HTTP handler adapter.
func NewBabiesHandler(st *store.Store, logger *zap.Logger) *BabiesHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BabiesHandler{store: st, logger: logger}
}

type createBabyRequest struct {
	Name      string  `json:"name" binding:"required"`
	Gender    *string `json:"gender"`
	BirthDate *int64  `json:"birthDate"`
	Photo     *string `json:"photo"`
}

type updateBabyRequest struct {
	Name           *string `json:"name"`
	Gender         *string `json:"gender"`
	BirthDate      *int64  `json:"birthDate"`
	Photo          *string `json:"photo"`
	ClearGender    bool    `json:"clearGender"`
	ClearBirthDate bool    `json:"clearBirthDate"`
	ClearPhoto     bool    `json:"clearPhoto"`
}

func validGender(g *string) bool {
	return g == nil || *g == models.GenderMale || *g == models.GenderFemale
}

// List returns every baby.
func (h *BabiesHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Babies())
}

// Create registers a new baby.
func (h *BabiesHandler) Create(c *gin.Context) {
	var req createBabyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid baby payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if !validGender(req.Gender) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "gender must be male or female"})
		return
	}

	baby := h.store.AddBaby(store.NewBaby{
		Name:      req.Name,
		Gender:    req.Gender,
		BirthDate: req.BirthDate,
		Photo:     req.Photo,
	})
	c.JSON(http.StatusCreated, baby)
}

// Update merges partial fields into an existing baby.
func (h *BabiesHandler) Update(c *gin.Context) {
	var req updateBabyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid baby patch", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if !validGender(req.Gender) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "gender must be male or female"})
		return
	}

	id := c.Param("id")
	ok := h.store.UpdateBaby(id, store.BabyPatch{
		Name:           req.Name,
		Gender:         req.Gender,
		BirthDate:      req.BirthDate,
		Photo:          req.Photo,
		ClearGender:    req.ClearGender,
		ClearBirthDate: req.ClearBirthDate,
		ClearPhoto:     req.ClearPhoto,
	})
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "baby not found"})
		return
	}
	baby, _ := h.store.Baby(id)
	c.JSON(http.StatusOK, baby)
}

// Delete removes the baby and all its events.
func (h *BabiesHandler) Delete(c *gin.Context) {
	h.store.RemoveBaby(c.Param("id"))
	c.Status(http.StatusNoContent)
}
