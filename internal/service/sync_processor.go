package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/advox/portal-sync-worker/internal/capture"
	"github.com/advox/portal-sync-worker/internal/models"
	"github.com/advox/portal-sync-worker/internal/repository"
)

// Fixed user-facing messages, kept verbatim with the rest of the product.
const (
	ErrMsgSemProcessosValidos = "Captura concluída sem processos válidos."
	ErrMsgSemCaptchaPendente  = "Nenhum desafio de captcha pendente para esta sincronização."
	ErrMsgCaptchaObrigatorio  = "Captcha obrigatório para continuar a sincronização."
	ErrMsgFalhaWorker         = "Falha ao sincronizar processos no worker."
)

// CaptureClient performs the actual portal capture.
type CaptureClient interface {
	CaptureByOAB(ctx context.Context, oab, tribunalSigla, tenantID string) (capture.CaptureResult, error)
	ResolveCaptcha(ctx context.Context, captchaID, captchaText string) (capture.CaptureResult, error)
}

// SyncStateStore is the durable state store for sync attempts.
type SyncStateStore interface {
	Save(ctx context.Context, state *models.SyncState) error
	Get(ctx context.Context, syncID string) (*models.SyncState, error)
	GetLatest(ctx context.Context, tenantID, usuarioID string) (*models.SyncState, error)
	ListHistory(ctx context.Context, tenantID, usuarioID string, limit int) ([]models.SyncState, error)
}

// ProcessoUpserter persists one captured case idempotently.
type ProcessoUpserter interface {
	UpsertFromCapture(ctx context.Context, params repository.UpsertParams) (*repository.UpsertResult, error)
}

// SyncAuditRecorder appends one audit row per outcome.
type SyncAuditRecorder interface {
	CreateSyncAudit(ctx context.Context, params repository.SyncAuditParams) error
}

// SyncProcessor executes one sync job end to end: drives the state machine,
// calls the capture service, deduplicates and persists the results, and
// leaves an audit trace for every outcome.
type SyncProcessor struct {
	store     SyncStateStore
	capture   CaptureClient
	processos ProcessoUpserter
	audits    SyncAuditRecorder
}

func NewSyncProcessor(
	store SyncStateStore,
	captureClient CaptureClient,
	processos ProcessoUpserter,
	audits SyncAuditRecorder,
) *SyncProcessor {
	return &SyncProcessor{
		store:     store,
		capture:   captureClient,
		processos: processos,
		audits:    audits,
	}
}

// ProcessSyncJob processes exactly one queue delivery. Failures during
// execution are absorbed into the state machine and the audit trail; an error
// return means the outcome itself could not be recorded.
func (p *SyncProcessor) ProcessSyncJob(ctx context.Context, queueJobID string, job models.SyncJob) error {
	origem := models.AuditOrigemBackgroundInitial
	if job.Mode == models.SyncModeCaptcha {
		origem = models.AuditOrigemBackgroundCaptcha
	}

	state, err := p.store.Get(ctx, job.SyncID)
	if err != nil {
		return fmt.Errorf("failed to load sync state: %w", err)
	}
	if state == nil {
		initial := models.BuildInitialSyncState(models.InitialSyncStateParams{
			SyncID:        job.SyncID,
			TenantID:      job.TenantID,
			UsuarioID:     job.UsuarioID,
			AdvogadoID:    job.AdvogadoID,
			TribunalSigla: job.TribunalSigla,
			OAB:           job.OAB,
			Mode:          job.Mode,
		})
		state = &initial
	}

	// A captcha answer only makes sense against a suspended attempt.
	if job.Mode == models.SyncModeCaptcha && state.Status != models.SyncStatusWaitingCaptcha {
		return p.fail(ctx, state, origem, ErrMsgSemCaptchaPendente)
	}

	running := models.WithSyncStatus(*state, models.SyncStatusRunning, models.SyncTransition{
		Mode:       job.Mode,
		QueueJobID: queueJobID,
	})
	state = &running
	if err := p.store.Save(ctx, state); err != nil {
		return fmt.Errorf("failed to persist running state: %w", err)
	}

	result, err := p.dispatchCapture(ctx, job)
	if err != nil {
		return p.fail(ctx, state, origem, err.Error())
	}

	switch res := result.(type) {
	case capture.CaptureCaptcha:
		return p.suspendForCaptcha(ctx, state, origem, res)

	case capture.CaptureFailure:
		message := res.Message
		if message == "" {
			message = ErrMsgFalhaWorker
		}
		return p.fail(ctx, state, origem, message)

	case capture.CaptureSuccess:
		return p.complete(ctx, state, origem, job, res.Processos)
	}

	return p.fail(ctx, state, origem, fmt.Sprintf("resultado de captura inesperado: %T", result))
}

func (p *SyncProcessor) dispatchCapture(ctx context.Context, job models.SyncJob) (capture.CaptureResult, error) {
	if job.Mode == models.SyncModeCaptcha {
		return p.capture.ResolveCaptcha(ctx, deref(job.CaptchaID), deref(job.CaptchaText))
	}
	return p.capture.CaptureByOAB(ctx, job.OAB, job.TribunalSigla, job.TenantID)
}

// suspendForCaptcha parks the attempt until a human answers the challenge.
// Not an error path: the attempt stays logically open.
func (p *SyncProcessor) suspendForCaptcha(ctx context.Context, state *models.SyncState, origem models.SyncAuditOrigem, res capture.CaptureCaptcha) error {
	reason := res.Reason
	if reason == "" {
		reason = ErrMsgCaptchaObrigatorio
	}

	waiting := models.WithSyncStatus(*state, models.SyncStatusWaitingCaptcha, models.SyncTransition{
		Error:        reason,
		CaptchaID:    res.Challenge.ID,
		CaptchaImage: res.Challenge.ImageDataURL,
	})
	state = &waiting
	if err := p.store.Save(ctx, state); err != nil {
		return fmt.Errorf("failed to persist waiting-captcha state: %w", err)
	}

	p.audit(ctx, state, origem, models.AuditStatusPendenteCaptcha, reason)
	log.Printf("[SyncProcessor] Sync %s waiting on captcha %s", state.SyncID, res.Challenge.ID)
	return nil
}

func (p *SyncProcessor) complete(ctx context.Context, state *models.SyncState, origem models.SyncAuditOrigem, job models.SyncJob, processos []capture.ProcessoJuridico) error {
	deduped := dedupeProcessos(processos)
	if len(deduped) == 0 {
		return p.fail(ctx, state, origem, ErrMsgSemProcessosValidos)
	}

	createdCount := 0
	updatedCount := 0
	for _, processo := range deduped {
		result, err := p.processos.UpsertFromCapture(ctx, repository.UpsertParams{
			TenantID:       job.TenantID,
			Processo:       processo,
			ClienteNome:    deref(job.ClienteNome),
			AdvogadoID:     deref(job.AdvogadoID),
			UpdateIfExists: true,
		})
		if err != nil {
			return p.fail(ctx, state, origem, err.Error())
		}
		if result.Created {
			createdCount++
		} else if result.Updated {
			updatedCount++
		}
	}

	numeros := processosNumeros(deduped)
	completed := models.WithSyncStatus(*state, models.SyncStatusCompleted, models.SyncTransition{
		SyncedCount:      len(deduped),
		CreatedCount:     createdCount,
		UpdatedCount:     updatedCount,
		ProcessosNumeros: numeros,
	})
	state = &completed
	if err := p.store.Save(ctx, state); err != nil {
		return fmt.Errorf("failed to persist completed state: %w", err)
	}

	p.audit(ctx, state, origem, models.AuditStatusSucesso, "")
	log.Printf("[SyncProcessor] Sync %s completed: %d synced, %d created, %d updated",
		state.SyncID, len(deduped), createdCount, updatedCount)
	return nil
}

// fail records a terminal failure. The error is absorbed: it reaches the
// caller only through the state record and the audit trail.
func (p *SyncProcessor) fail(ctx context.Context, state *models.SyncState, origem models.SyncAuditOrigem, message string) error {
	failed := models.WithSyncStatus(*state, models.SyncStatusFailed, models.SyncTransition{
		Error: message,
	})
	state = &failed
	if err := p.store.Save(ctx, state); err != nil {
		return fmt.Errorf("failed to persist failed state: %w", err)
	}

	p.audit(ctx, state, origem, models.AuditStatusErro, message)
	log.Printf("[SyncProcessor] Sync %s failed: %s", state.SyncID, message)
	return nil
}

func (p *SyncProcessor) audit(ctx context.Context, state *models.SyncState, origem models.SyncAuditOrigem, status models.SyncAuditStatus, errMessage string) {
	err := p.audits.CreateSyncAudit(ctx, repository.SyncAuditParams{
		TenantID:         state.TenantID,
		UsuarioID:        state.UsuarioID,
		SyncID:           state.SyncID,
		TribunalSigla:    state.TribunalSigla,
		OAB:              state.OAB,
		Status:           status,
		Origem:           origem,
		SyncedCount:      state.SyncedCount,
		CreatedCount:     state.CreatedCount,
		UpdatedCount:     state.UpdatedCount,
		ProcessosNumeros: state.ProcessosNumeros,
		Error:            errMessage,
	})
	if err != nil {
		log.Printf("[SyncProcessor] Warning: failed to write audit entry for sync %s: %v", state.SyncID, err)
	}
}

// normalizeNumeroProcesso reduces a case number to digits only, the dedup key.
func normalizeNumeroProcesso(value string) string {
	var builder strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			builder.WriteRune(r)
		}
	}
	return builder.String()
}

// dedupeProcessos drops records repeating an already-seen normalized case
// number; first occurrence wins, input order preserved. Records without any
// digits in their number are dropped entirely.
func dedupeProcessos(processos []capture.ProcessoJuridico) []capture.ProcessoJuridico {
	seen := make(map[string]struct{}, len(processos))
	deduped := make([]capture.ProcessoJuridico, 0, len(processos))

	for _, processo := range processos {
		key := normalizeNumeroProcesso(processo.NumeroProcesso)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		deduped = append(deduped, processo)
	}

	return deduped
}

func processosNumeros(processos []capture.ProcessoJuridico) []string {
	numeros := make([]string, 0, len(processos))
	for _, processo := range processos {
		if processo.NumeroProcesso == "" {
			continue
		}
		numeros = append(numeros, processo.NumeroProcesso)
		if len(numeros) == models.MaxProcessosNumeros {
			break
		}
	}
	return numeros
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
