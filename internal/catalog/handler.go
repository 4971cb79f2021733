package catalog

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tvcompare/internal/ai"
	"tvcompare/internal/cloud"
	"tvcompare/internal/compare"
	"tvcompare/pkg/models"
)

type Summarizer interface {
	Summarize(ctx context.Context, fields []models.Field, items []models.Item) (*ai.Comparison, error)
}

type Handler struct {
	Svc *Service
	AI  Summarizer
	log *zap.Logger
}

func NewHandler(svc *Service, summarizer Summarizer, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{Svc: svc, AI: summarizer, log: log.Named("catalog-http")}
}

// RegisterRoutes mounts the public read routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/catalog", h.catalog)
	rg.GET("/fields", h.fields)
	rg.GET("/items", h.items)
	rg.GET("/items/:id", h.item) // id or slug
	rg.POST("/compare", h.compare)
	rg.POST("/compare/summary", h.aiSummary)
}

// RegisterAdminRoutes mounts the write routes; rg must already be guarded.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.PUT("/fields", h.replaceFields)
	rg.POST("/fields", h.upsertField)
	rg.DELETE("/fields/:id", h.deleteField)

	rg.PUT("/items", h.replaceItems)
	rg.POST("/items", h.upsertItem)
	rg.DELETE("/items/:id", h.deleteItem)

	rg.GET("/cloud", h.cloudStatus)
	rg.POST("/cloud/connect", h.cloudConnect)
	rg.POST("/cloud/test", h.cloudTest)
	rg.POST("/cloud/push", h.cloudPush)
	rg.DELETE("/cloud", h.cloudDisconnect)
	rg.GET("/cloud/setup-sql", h.cloudSetupSQL)
}

func (h *Handler) catalog(c *gin.Context) {
	c.JSON(http.StatusOK, h.Svc.LoadAll(c.Request.Context()))
}

func (h *Handler) fields(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"fields": models.SortFields(h.Svc.Fields(c.Request.Context()))})
}

func (h *Handler) items(c *gin.Context) {
	items := h.Svc.Items(c.Request.Context(), c.Query("q"))
	c.JSON(http.StatusOK, gin.H{"total": len(items), "items": items})
}

func (h *Handler) item(c *gin.Context) {
	it, err := h.Svc.Item(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, it)
}

type compareReq struct {
	ItemIDs []string `json:"item_ids"`
}

func (h *Handler) compare(c *gin.Context) {
	var req compareReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	table, err := h.Svc.Compare(c.Request.Context(), req.ItemIDs)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, table)
}

func (h *Handler) aiSummary(c *gin.Context) {
	var req compareReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if h.AI == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": ai.ErrUnavailable.Error()})
		return
	}
	if len(req.ItemIDs) < 2 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "select at least 2 items"})
		return
	}

	fields, items, err := h.Svc.Selected(c.Request.Context(), req.ItemIDs)
	if err != nil {
		h.fail(c, err)
		return
	}

	out, err := h.AI.Summarize(c.Request.Context(), fields, items)
	if errors.Is(err, ai.ErrUnavailable) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "summary failed"})
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) replaceFields(c *gin.Context) {
	var fields []models.Field
	if err := c.ShouldBindJSON(&fields); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if err := h.Svc.SaveFields(c.Request.Context(), fields); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "saved", "count": len(fields)})
}

func (h *Handler) upsertField(c *gin.Context) {
	var f models.Field
	if err := c.ShouldBindJSON(&f); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	saved, err := h.Svc.UpsertField(c.Request.Context(), f)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

func (h *Handler) deleteField(c *gin.Context) {
	if err := h.Svc.DeleteField(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (h *Handler) replaceItems(c *gin.Context) {
	var items []models.Item
	if err := c.ShouldBindJSON(&items); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if err := h.Svc.SaveItems(c.Request.Context(), items); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "saved", "count": len(items)})
}

func (h *Handler) upsertItem(c *gin.Context) {
	var it models.Item
	if err := c.ShouldBindJSON(&it); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	saved, err := h.Svc.UpsertItem(c.Request.Context(), it)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

func (h *Handler) deleteItem(c *gin.Context) {
	if err := h.Svc.DeleteItem(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (h *Handler) cloudStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.Svc.CloudStatus(c.Request.Context()))
}

type connectReq struct {
	Endpoint   string `json:"endpoint"`
	Credential string `json:"credential"`
}

func (h *Handler) cloudConnect(c *gin.Context) {
	var req connectReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	d, err := h.Svc.Connect(c.Request.Context(), req.Endpoint, req.Credential)
	if errors.Is(err, cloud.ErrConfigurationInvalid) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"error":      d.Message,
			"diagnostic": d,
			"state":      h.Svc.CloudStatus(c.Request.Context()).State,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"diagnostic": d, "status": h.Svc.CloudStatus(c.Request.Context())})
}

func (h *Handler) cloudTest(c *gin.Context) {
	d := h.Svc.TestConnectivity(c.Request.Context())
	code := http.StatusOK
	if !d.OK() {
		code = http.StatusBadGateway
	}
	c.JSON(code, d)
}

func (h *Handler) cloudPush(c *gin.Context) {
	if err := h.Svc.SyncNow(c.Request.Context()); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.Svc.CloudStatus(c.Request.Context()))
}

func (h *Handler) cloudDisconnect(c *gin.Context) {
	if err := h.Svc.Disconnect(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "disconnect failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "disconnected"})
}

func (h *Handler) cloudSetupSQL(c *gin.Context) {
	c.String(http.StatusOK, cloud.SetupSQL())
}

// fail maps service errors to responses. A remote write failure after a
// successful local write is reported with saved_locally so clients can tell
// the two apart.
func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, cloud.ErrWriteFailure):
		status := http.StatusBadGateway
		if errors.Is(err, cloud.ErrDisconnected) {
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"error": err.Error(), "saved_locally": true})
	case errors.Is(err, cloud.ErrDisconnected):
		c.JSON(http.StatusConflict, gin.H{"error": "remote store not connected"})
	case errors.Is(err, models.ErrInvalid),
		errors.Is(err, compare.ErrSelectionFull),
		errors.Is(err, compare.ErrEmptyID):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		h.log.Error("request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
