package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/advox/portal-sync-worker/internal/models"
	"github.com/advox/portal-sync-worker/internal/service"
)

// Server exposes the sync submission and read endpoints. Authentication is
// handled upstream; the gateway forwards the actor identity in headers.
type Server struct {
	sync *service.SyncService
}

func NewServer(sync *service.SyncService) *Server {
	return &Server{sync: sync}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	router.GET("/health", s.handleHealth)

	api := router.Group("/api", identityRequired)
	{
		api.POST("/sync/oab", s.handleSubmitInitial)
		api.POST("/sync/oab/captcha", s.handleSubmitCaptcha)
		api.GET("/sync/oab/latest", s.handleLatest)
		api.GET("/sync/oab/history", s.handleHistory)
		api.GET("/sync/oab/audits", s.handleAudits)
		api.GET("/sync/oab/tribunais", s.handleTribunais)
		api.GET("/queue/stats", s.handleQueueStats)
	}

	return router
}

type identity struct {
	TenantID   string
	UsuarioID  string
	AdvogadoID string
}

const identityKey = "identity"

// identityRequired pulls the actor identity forwarded by the gateway.
func identityRequired(c *gin.Context) {
	id := identity{
		TenantID:   c.GetHeader("X-Tenant-ID"),
		UsuarioID:  c.GetHeader("X-Usuario-ID"),
		AdvogadoID: c.GetHeader("X-Advogado-ID"),
	}
	if id.TenantID == "" || id.UsuarioID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "Usuário não autenticado.",
		})
		return
	}
	c.Set(identityKey, id)
	c.Next()
}

func actor(c *gin.Context) identity {
	return c.MustGet(identityKey).(identity)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type submitInitialRequest struct {
	TribunalSigla string `json:"tribunalSigla"`
	OAB           string `json:"oab"`
	ClienteNome   string `json:"clienteNome"`
}

func (s *Server) handleSubmitInitial(c *gin.Context) {
	var req submitInitialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Requisição inválida."})
		return
	}

	id := actor(c)
	state, err := s.sync.SubmitInitial(c.Request.Context(), service.SubmitInitialParams{
		TenantID:      id.TenantID,
		UsuarioID:     id.UsuarioID,
		AdvogadoID:    id.AdvogadoID,
		TribunalSigla: req.TribunalSigla,
		OAB:           req.OAB,
		ClienteNome:   req.ClienteNome,
	})
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, syncStateResponse(*state))
}

type submitCaptchaRequest struct {
	SyncID        string `json:"syncId"`
	TribunalSigla string `json:"tribunalSigla"`
	CaptchaID     string `json:"captchaId"`
	CaptchaText   string `json:"captchaText"`
	OAB           string `json:"oab"`
	ClienteNome   string `json:"clienteNome"`
}

func (s *Server) handleSubmitCaptcha(c *gin.Context) {
	var req submitCaptchaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Requisição inválida."})
		return
	}

	id := actor(c)
	state, err := s.sync.SubmitCaptcha(c.Request.Context(), service.SubmitCaptchaParams{
		TenantID:      id.TenantID,
		UsuarioID:     id.UsuarioID,
		AdvogadoID:    id.AdvogadoID,
		SyncID:        req.SyncID,
		TribunalSigla: req.TribunalSigla,
		CaptchaID:     req.CaptchaID,
		CaptchaText:   req.CaptchaText,
		OAB:           req.OAB,
		ClienteNome:   req.ClienteNome,
	})
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, syncStateResponse(*state))
}

func (s *Server) handleLatest(c *gin.Context) {
	id := actor(c)
	state, err := s.sync.Latest(c.Request.Context(), id.TenantID, id.UsuarioID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Falha ao consultar sincronização."})
		return
	}
	if state == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Nenhuma sincronização encontrada."})
		return
	}
	c.JSON(http.StatusOK, syncStateResponse(*state))
}

func (s *Server) handleHistory(c *gin.Context) {
	id := actor(c)
	limit := queryInt(c, "limit", 10)
	states, err := s.sync.History(c.Request.Context(), id.TenantID, id.UsuarioID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Falha ao consultar histórico."})
		return
	}

	items := make([]gin.H, 0, len(states))
	for _, state := range states {
		items = append(items, syncStateResponse(state))
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (s *Server) handleAudits(c *gin.Context) {
	id := actor(c)
	limit := queryInt(c, "limit", 10)
	audits, err := s.sync.AuditHistory(c.Request.Context(), id.TenantID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Falha ao consultar auditoria."})
		return
	}

	items := make([]gin.H, 0, len(audits))
	for _, audit := range audits {
		items = append(items, gin.H{
			"id":        audit.ID,
			"usuarioId": audit.UsuarioID,
			"acao":      audit.Acao,
			"dados":     audit.Dados,
			"createdAt": audit.CreatedAt.Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (s *Server) handleTribunais(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tribunais": s.sync.Tribunais()})
}

func (s *Server) handleQueueStats(c *gin.Context) {
	stats, err := s.sync.QueueStats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Falha ao consultar fila."})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// syncStateResponse shapes a state record for API consumers.
func syncStateResponse(state models.SyncState) gin.H {
	resp := gin.H{
		"syncId":           state.SyncID,
		"status":           state.Status,
		"mode":             state.Mode,
		"tribunalSigla":    state.TribunalSigla,
		"oab":              state.OAB,
		"syncedCount":      state.SyncedCount,
		"createdCount":     state.CreatedCount,
		"updatedCount":     state.UpdatedCount,
		"processosNumeros": state.ProcessosNumeros,
		"createdAt":        state.CreatedAt.Format(time.RFC3339),
		"updatedAt":        state.UpdatedAt.Format(time.RFC3339),
		"error":            state.Error,
	}
	if state.CaptchaID != nil {
		resp["captcha"] = gin.H{
			"id":    deref(state.CaptchaID),
			"image": deref(state.CaptchaImage),
		}
	}
	return resp
}

func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return fallback
	}
	return value
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
