package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vitalstack/formula-backend/internal/models"
	"github.com/vitalstack/formula-backend/internal/service"
	"github.com/vitalstack/formula-backend/internal/types"
)

type FormulaHandler struct {
	formulaService service.IFormulaService
}

func NewFormulaHandler(formulaService service.IFormulaService) *FormulaHandler {
	return &FormulaHandler{
		formulaService: formulaService,
	}
}

// RegisterRoutes wires the formula endpoints into an authenticated group.
func (h *FormulaHandler) RegisterRoutes(router *gin.RouterGroup, mutation ...gin.HandlerFunc) {
	formulas := router.Group("/formulas")
	{
		formulas.GET("/current", h.GetCurrentFormula)
		formulas.GET("/history", h.GetHistory)
		formulas.GET("/archived", h.ListArchived)
		formulas.GET("/compare", h.Compare)
		formulas.GET("/:id", h.GetVersion)
		formulas.GET("/:id/changes", h.GetChanges)

		guarded := formulas.Group("", mutation...)
		guarded.POST("", h.CreateCustom)
		guarded.POST("/consultation", h.CreateFromConsultation)
		guarded.POST("/:id/customize", h.Customize)
		guarded.POST("/:id/revert", h.Revert)
		guarded.PATCH("/:id/name", h.Rename)
		guarded.POST("/:id/archive", h.Archive)
		guarded.POST("/:id/restore", h.Restore)
	}
}

// currentUserID reads the authenticated user from the Gin context. The
// engine never trusts a caller-supplied user id.
func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return uuid.Nil, false
	}
	id, ok := userID.(uuid.UUID)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return uuid.Nil, false
	}
	return id, true
}

func parseFormulaID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid formula id"})
		return uuid.Nil, false
	}
	return id, true
}

func toEntries(reqs []types.IngredientEntryRequest) []models.IngredientEntry {
	entries := make([]models.IngredientEntry, 0, len(reqs))
	for _, r := range reqs {
		entries = append(entries, models.IngredientEntry{
			Ingredient: r.Ingredient,
			AmountMg:   r.AmountMg,
			Unit:       r.Unit,
		})
	}
	return entries
}

func (h *FormulaHandler) CreateCustom(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req types.CreateCustomFormulaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	formula, err := h.formulaService.CreateCustom(c.Request.Context(), userID, req.Name, toEntries(req.Bases), toEntries(req.Individuals))
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"formula": formula})
}

func (h *FormulaHandler) CreateFromConsultation(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req types.CreateConsultationFormulaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	formula, err := h.formulaService.CreateFromConsultation(c.Request.Context(), userID,
		toEntries(req.Bases), toEntries(req.Additions), req.Rationale, req.Notes, req.Warnings)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"formula": formula})
}

func (h *FormulaHandler) Customize(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	formulaID, ok := parseFormulaID(c)
	if !ok {
		return
	}

	var req types.CustomizeFormulaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	formula, err := h.formulaService.Customize(c.Request.Context(), userID, formulaID, toEntries(req.Bases), toEntries(req.Individuals))
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"formula": formula})
}

func (h *FormulaHandler) Revert(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	formulaID, ok := parseFormulaID(c)
	if !ok {
		return
	}

	var req types.RevertFormulaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	formula, err := h.formulaService.Revert(c.Request.Context(), userID, formulaID, req.Reason)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"formula": formula})
}

func (h *FormulaHandler) Compare(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	fromID, err := uuid.Parse(c.Query("from"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'from' formula id"})
		return
	}
	toID, err := uuid.Parse(c.Query("to"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'to' formula id"})
		return
	}

	comparison, err := h.formulaService.Compare(c.Request.Context(), userID, fromID, toID)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"comparison": comparison})
}

func (h *FormulaHandler) Rename(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	formulaID, ok := parseFormulaID(c)
	if !ok {
		return
	}

	var req types.RenameFormulaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	formula, err := h.formulaService.Rename(c.Request.Context(), userID, formulaID, req.Name)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"formula": formula})
}

func (h *FormulaHandler) Archive(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	formulaID, ok := parseFormulaID(c)
	if !ok {
		return
	}

	formula, err := h.formulaService.Archive(c.Request.Context(), userID, formulaID)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"formula": formula})
}

func (h *FormulaHandler) Restore(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	formulaID, ok := parseFormulaID(c)
	if !ok {
		return
	}

	formula, err := h.formulaService.Restore(c.Request.Context(), userID, formulaID)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"formula": formula})
}

func (h *FormulaHandler) GetCurrentFormula(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	formula, err := h.formulaService.GetCurrentFormula(c.Request.Context(), userID)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"formula": formula})
}

func (h *FormulaHandler) GetHistory(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	formulas, err := h.formulaService.GetHistory(c.Request.Context(), userID)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"formulas": formulas})
}

func (h *FormulaHandler) ListArchived(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	formulas, err := h.formulaService.ListArchived(c.Request.Context(), userID)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"formulas": formulas})
}

func (h *FormulaHandler) GetVersion(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	formulaID, ok := parseFormulaID(c)
	if !ok {
		return
	}

	formula, err := h.formulaService.GetVersion(c.Request.Context(), userID, formulaID)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"formula": formula})
}

func (h *FormulaHandler) GetChanges(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	formulaID, ok := parseFormulaID(c)
	if !ok {
		return
	}

	changes, err := h.formulaService.GetChanges(c.Request.Context(), userID, formulaID)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"changes": changes})
}
