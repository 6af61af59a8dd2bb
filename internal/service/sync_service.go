package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/advox/portal-sync-worker/internal/capture"
	"github.com/advox/portal-sync-worker/internal/models"
	"github.com/advox/portal-sync-worker/internal/repository"
)

// SyncQueue is the job submission side of the durable queue.
type SyncQueue interface {
	Enqueue(ctx context.Context, job models.SyncJob, opts repository.EnqueueOptions) (string, error)
	Stats(ctx context.Context) (repository.QueueStats, error)
}

// AdvogadoDirectory resolves attorney registration data.
type AdvogadoDirectory interface {
	GetByID(ctx context.Context, tenantID, advogadoID string) (*models.Advogado, error)
}

// SyncAuditReader reads past outcomes from the audit sink.
type SyncAuditReader interface {
	ListSyncAudits(ctx context.Context, tenantID string, limit int) ([]models.AuditLog, error)
}

// SyncService is the job submission boundary: it validates and enriches
// requests, creates the QUEUED state and hands the job to the queue. It also
// exposes the read side used to render progress and history.
type SyncService struct {
	store     SyncStateStore
	queue     SyncQueue
	advogados AdvogadoDirectory
	audits    SyncAuditReader
}

func NewSyncService(
	store SyncStateStore,
	queue SyncQueue,
	advogados AdvogadoDirectory,
	audits SyncAuditReader,
) *SyncService {
	return &SyncService{
		store:     store,
		queue:     queue,
		advogados: advogados,
		audits:    audits,
	}
}

var oabSanitizer = regexp.MustCompile(`[^0-9A-Za-z]`)

// SanitizeOAB strips everything but letters and digits and uppercases, so
// "123.456/SP" and "123456sp" submit the same registration.
func SanitizeOAB(value string) string {
	return strings.ToUpper(strings.TrimSpace(oabSanitizer.ReplaceAllString(value, "")))
}

type SubmitInitialParams struct {
	TenantID      string
	UsuarioID     string
	AdvogadoID    string
	TribunalSigla string
	OAB           string
	ClienteNome   string
}

// SubmitInitial enqueues a fresh synchronization attempt and returns its
// QUEUED state. Enqueue failures propagate to the caller.
func (s *SyncService) SubmitInitial(ctx context.Context, params SubmitInitialParams) (*models.SyncState, error) {
	sigla := strings.ToUpper(strings.TrimSpace(params.TribunalSigla))
	if sigla == "" {
		return nil, errors.New("Selecione o tribunal para iniciar a sincronização.")
	}
	if !capture.TribunalSuportado(sigla) {
		return nil, fmt.Errorf("Tribunal %s não está habilitado para sincronização por OAB.", sigla)
	}

	oab, err := s.resolveOAB(ctx, params.TenantID, params.AdvogadoID, params.OAB)
	if err != nil {
		return nil, err
	}
	if oab == "" {
		return nil, errors.New("Informe a OAB ou complete o cadastro de OAB do advogado logado.")
	}

	state := models.BuildInitialSyncState(models.InitialSyncStateParams{
		SyncID:        uuid.New().String(),
		TenantID:      params.TenantID,
		UsuarioID:     params.UsuarioID,
		AdvogadoID:    optional(params.AdvogadoID),
		TribunalSigla: sigla,
		OAB:           oab,
		Mode:          models.SyncModeInitial,
	})
	if err := s.store.Save(ctx, &state); err != nil {
		return nil, fmt.Errorf("failed to save initial sync state: %w", err)
	}

	job := models.SyncJob{
		SyncID:        state.SyncID,
		TenantID:      params.TenantID,
		UsuarioID:     params.UsuarioID,
		AdvogadoID:    optional(params.AdvogadoID),
		TribunalSigla: sigla,
		OAB:           oab,
		ClienteNome:   optional(params.ClienteNome),
		Mode:          models.SyncModeInitial,
	}
	queueJobID, err := s.queue.Enqueue(ctx, job, repository.EnqueueOptions{Priority: models.PriorityInitial})
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue sync job: %w", err)
	}

	log.Printf("[SyncService] Enqueued initial sync %s (queue job %s, tribunal %s, oab %s)",
		state.SyncID, queueJobID, sigla, oab)
	return &state, nil
}

type SubmitCaptchaParams struct {
	TenantID      string
	UsuarioID     string
	AdvogadoID    string
	SyncID        string
	TribunalSigla string
	CaptchaID     string
	CaptchaText   string
	OAB           string
	ClienteNome   string
}

// SubmitCaptcha enqueues the human-supplied answer for a suspended attempt.
// When no syncId is given, the actor's latest attempt is used; it must be
// waiting on a captcha.
func (s *SyncService) SubmitCaptcha(ctx context.Context, params SubmitCaptchaParams) (*models.SyncState, error) {
	sigla := strings.ToUpper(strings.TrimSpace(params.TribunalSigla))
	if sigla == "" {
		return nil, errors.New("Tribunal não informado para validação do captcha.")
	}
	if strings.TrimSpace(params.CaptchaID) == "" || strings.TrimSpace(params.CaptchaText) == "" {
		return nil, errors.New("Informe o captcha para concluir a sincronização.")
	}

	var state *models.SyncState
	var err error
	if params.SyncID != "" {
		state, err = s.store.Get(ctx, params.SyncID)
	} else {
		state, err = s.store.GetLatest(ctx, params.TenantID, params.UsuarioID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load sync state: %w", err)
	}
	if state == nil {
		return nil, errors.New("Sincronização não encontrada ou expirada.")
	}
	if state.Status != models.SyncStatusWaitingCaptcha {
		return nil, errors.New(ErrMsgSemCaptchaPendente)
	}

	oab, err := s.resolveOAB(ctx, params.TenantID, params.AdvogadoID, params.OAB)
	if err != nil {
		return nil, err
	}
	if oab == "" {
		oab = state.OAB
	}
	if oab == "" {
		return nil, errors.New("Informe a OAB para concluir a sincronização com captcha.")
	}

	job := models.SyncJob{
		SyncID:        state.SyncID,
		TenantID:      params.TenantID,
		UsuarioID:     params.UsuarioID,
		AdvogadoID:    optional(params.AdvogadoID),
		TribunalSigla: sigla,
		OAB:           oab,
		ClienteNome:   optional(params.ClienteNome),
		Mode:          models.SyncModeCaptcha,
		CaptchaID:     optional(params.CaptchaID),
		CaptchaText:   optional(params.CaptchaText),
	}
	queueJobID, err := s.queue.Enqueue(ctx, job, repository.EnqueueOptions{Priority: models.PriorityCaptcha})
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue captcha job: %w", err)
	}

	log.Printf("[SyncService] Enqueued captcha resolution for sync %s (queue job %s)", state.SyncID, queueJobID)
	return state, nil
}

// Latest returns the actor's most recent attempt, nil when none survives.
func (s *SyncService) Latest(ctx context.Context, tenantID, usuarioID string) (*models.SyncState, error) {
	return s.store.GetLatest(ctx, tenantID, usuarioID)
}

// History lists the actor's past attempts, newest first.
func (s *SyncService) History(ctx context.Context, tenantID, usuarioID string, limit int) ([]models.SyncState, error) {
	return s.store.ListHistory(ctx, tenantID, usuarioID, limit)
}

// AuditHistory lists the tenant's recorded sync outcomes.
func (s *SyncService) AuditHistory(ctx context.Context, tenantID string, limit int) ([]models.AuditLog, error) {
	return s.audits.ListSyncAudits(ctx, tenantID, limit)
}

// QueueStats exposes the queue counters for operational dashboards.
func (s *SyncService) QueueStats(ctx context.Context) (repository.QueueStats, error) {
	return s.queue.Stats(ctx)
}

// Tribunais lists the portals available for OAB capture.
func (s *SyncService) Tribunais() []capture.TribunalConfig {
	return capture.TribunaisDisponiveis()
}

// resolveOAB prefers the explicitly given registration and falls back to the
// attorney's profile (número + UF).
func (s *SyncService) resolveOAB(ctx context.Context, tenantID, advogadoID, provided string) (string, error) {
	if oab := SanitizeOAB(provided); oab != "" {
		return oab, nil
	}
	if advogadoID == "" {
		return "", nil
	}

	advogado, err := s.advogados.GetByID(ctx, tenantID, advogadoID)
	if err != nil {
		return "", fmt.Errorf("failed to resolve advogado OAB: %w", err)
	}
	if advogado == nil || advogado.OabNumero == nil || advogado.OabUf == nil {
		return "", nil
	}
	if *advogado.OabNumero == "" || *advogado.OabUf == "" {
		return "", nil
	}

	return SanitizeOAB(*advogado.OabNumero + *advogado.OabUf), nil
}

func optional(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
