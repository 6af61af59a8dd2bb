package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/advox/portal-sync-worker/internal/capture"
	"github.com/advox/portal-sync-worker/internal/models"
)

// ProcessoRepository persists captured case records into the tenant tables.
// UpsertFromCapture is idempotent on the case number: re-syncing updates the
// existing row instead of duplicating it.
type ProcessoRepository struct {
	db *gorm.DB
}

func NewProcessoRepository(db *gorm.DB) *ProcessoRepository {
	return &ProcessoRepository{db: db}
}

type UpsertParams struct {
	TenantID       string
	Processo       capture.ProcessoJuridico
	ClienteNome    string
	AdvogadoID     string
	UpdateIfExists bool
}

type UpsertResult struct {
	ProcessoID string
	Created    bool
	Updated    bool
}

// Company-ish terms that mark a client as a legal entity.
var termosPessoaJuridica = []string{
	"LTDA", "S/A", "SA ", "EIRELI", "MEI", "EPP", "ASSOCIACAO", "CONDOMINIO",
	"EMPRESA", "COMERCIO", "INDUSTRIA", "COOPERATIVA", "HOSPITAL", "CLINICA",
}

var nomeNormalizer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalizeNome strips accents, collapses whitespace and uppercases, so name
// comparisons survive the portals' inconsistent formatting.
func normalizeNome(value string) string {
	stripped, _, err := transform.String(nomeNormalizer, value)
	if err != nil {
		stripped = value
	}
	return strings.ToUpper(strings.Join(strings.Fields(stripped), " "))
}

func inferTipoPessoa(nome string) models.TipoPessoa {
	normalized := normalizeNome(nome)
	for _, termo := range termosPessoaJuridica {
		if strings.Contains(normalized, termo) {
			return models.TipoPessoaJuridica
		}
	}
	return models.TipoPessoaFisica
}

// resolveClienteNome picks the client name for a captured case: the caller's
// hint, else the first AUTOR party, else the first party, else a placeholder.
func resolveClienteNome(processo capture.ProcessoJuridico, clienteNome string) string {
	if nome := strings.TrimSpace(clienteNome); nome != "" {
		return nome
	}
	for _, parte := range processo.Partes {
		if parte.Tipo == "AUTOR" && strings.TrimSpace(parte.Nome) != "" {
			return strings.TrimSpace(parte.Nome)
		}
	}
	if len(processo.Partes) > 0 && strings.TrimSpace(processo.Partes[0].Nome) != "" {
		return strings.TrimSpace(processo.Partes[0].Nome)
	}
	return "Cliente importado"
}

// UpsertFromCapture writes one captured case into the tenant database.
// Returns whether the case row was created or updated; when the case exists
// and UpdateIfExists is false, both flags are false.
func (r *ProcessoRepository) UpsertFromCapture(ctx context.Context, params UpsertParams) (*UpsertResult, error) {
	numero := strings.TrimSpace(params.Processo.NumeroProcesso)
	if numero == "" {
		return nil, fmt.Errorf("número do processo não informado para persistir")
	}

	var result *UpsertResult
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existente models.Processo
		err := tx.Where("tenant_id = ? AND (numero = ? OR numero_cnj = ?)", params.TenantID, numero, numero).
			First(&existente).Error
		found := err == nil
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to look up processo: %w", err)
		}

		if found && !params.UpdateIfExists {
			result = &UpsertResult{ProcessoID: existente.ID}
			return nil
		}

		cliente, err := r.ensureCliente(tx, params.TenantID, params.Processo, params.ClienteNome)
		if err != nil {
			return err
		}

		if found {
			updates := map[string]interface{}{
				"numero_cnj":        numero,
				"classe_processual": nilIfEmpty(params.Processo.Classe),
				"comarca":           nilIfEmpty(params.Processo.Comarca),
				"vara":              nilIfEmpty(params.Processo.Vara),
				"data_distribuicao": params.Processo.DataDistribuicao,
				"valor_causa":       params.Processo.ValorCausa,
				"tribunal_sigla":    nilIfEmpty(params.Processo.TribunalSigla),
				"descricao":         nilIfEmpty(params.Processo.Assunto),
				"updated_at":        time.Now(),
			}
			if existente.Status == models.ProcessoStatusRascunho {
				updates["status"] = models.ProcessoStatusEmAndamento
			}
			if params.AdvogadoID != "" {
				updates["advogado_responsavel_id"] = params.AdvogadoID
			}
			// Only reassign the client when the caller named one explicitly.
			if strings.TrimSpace(params.ClienteNome) != "" {
				updates["cliente_id"] = cliente.ID
			}

			if err := tx.Model(&models.Processo{}).Where("id = ?", existente.ID).Updates(updates).Error; err != nil {
				return fmt.Errorf("failed to update processo: %w", err)
			}
			if err := r.syncPartes(tx, params.TenantID, existente.ID, params.Processo.Partes, cliente); err != nil {
				return err
			}
			if err := r.ensureAdvogadoClienteLink(tx, params.TenantID, params.AdvogadoID, cliente.ID); err != nil {
				return err
			}

			result = &UpsertResult{ProcessoID: existente.ID, Updated: true}
			return nil
		}

		novo := models.Processo{
			ID:               uuid.New().String(),
			TenantID:         params.TenantID,
			Numero:           numero,
			NumeroCnj:        &numero,
			Status:           models.ProcessoStatusEmAndamento,
			ClasseProcessual: strPtrOrNil(params.Processo.Classe),
			Comarca:          strPtrOrNil(params.Processo.Comarca),
			Vara:             strPtrOrNil(params.Processo.Vara),
			DataDistribuicao: params.Processo.DataDistribuicao,
			ValorCausa:       params.Processo.ValorCausa,
			TribunalSigla:    strPtrOrNil(params.Processo.TribunalSigla),
			Descricao:        strPtrOrNil(params.Processo.Assunto),
			ClienteID:        cliente.ID,
		}
		if params.AdvogadoID != "" {
			novo.AdvogadoResponsavelID = &params.AdvogadoID
		}

		if err := tx.Create(&novo).Error; err != nil {
			return fmt.Errorf("failed to create processo: %w", err)
		}
		if err := r.syncPartes(tx, params.TenantID, novo.ID, params.Processo.Partes, cliente); err != nil {
			return err
		}
		if err := r.ensureAdvogadoClienteLink(tx, params.TenantID, params.AdvogadoID, cliente.ID); err != nil {
			return err
		}

		result = &UpsertResult{ProcessoID: novo.ID, Created: true}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// ensureCliente resolves the client for a captured case, creating one when
// no case-insensitive name match exists in the tenant.
func (r *ProcessoRepository) ensureCliente(tx *gorm.DB, tenantID string, processo capture.ProcessoJuridico, clienteNome string) (*models.Cliente, error) {
	nome := resolveClienteNome(processo, clienteNome)

	var documento *string
	for _, parte := range processo.Partes {
		if parte.Documento != "" && strings.EqualFold(strings.TrimSpace(parte.Nome), nome) {
			doc := parte.Documento
			documento = &doc
			break
		}
	}

	var existente models.Cliente
	err := tx.Where("tenant_id = ? AND LOWER(nome) = LOWER(?)", tenantID, nome).First(&existente).Error
	if err == nil {
		return &existente, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to look up cliente: %w", err)
	}

	novo := models.Cliente{
		ID:         uuid.New().String(),
		TenantID:   tenantID,
		Nome:       nome,
		TipoPessoa: inferTipoPessoa(nome),
		Documento:  documento,
	}
	if err := tx.Create(&novo).Error; err != nil {
		return nil, fmt.Errorf("failed to create cliente: %w", err)
	}

	return &novo, nil
}

func poloDaParte(tipo string) (models.ProcessoPolo, bool) {
	switch tipo {
	case "AUTOR":
		return models.PoloAutor, true
	case "REU":
		return models.PoloReu, true
	case "TERCEIRO":
		return models.PoloTerceiro, true
	}
	return "", false
}

func parteKey(polo models.ProcessoPolo, nome string) string {
	return string(polo) + ":" + normalizeNome(nome)
}

// buildPartesPayload maps captured parties onto processo_parte rows. Only the
// AUTOR/REU/TERCEIRO poles are persisted; duplicates (same pole and normalized
// name) collapse to the first occurrence; the resolved cliente always ends up
// with a row in the AUTOR pole.
func buildPartesPayload(tenantID, processoID string, partes []capture.ParteProcesso, cliente *models.Cliente) []models.ProcessoParte {
	payload := make([]models.ProcessoParte, 0, len(partes)+1)
	seen := make(map[string]struct{}, len(partes)+1)

	for _, parte := range partes {
		polo, ok := poloDaParte(parte.Tipo)
		if !ok {
			continue
		}
		nome := strings.TrimSpace(parte.Nome)
		if nome == "" {
			continue
		}
		key := parteKey(polo, nome)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		row := models.ProcessoParte{
			ID:         uuid.New().String(),
			TenantID:   tenantID,
			ProcessoID: processoID,
			TipoPolo:   polo,
			Nome:       nome,
			Documento:  strPtrOrNil(parte.Documento),
		}
		if normalizeNome(nome) == normalizeNome(cliente.Nome) {
			row.ClienteID = &cliente.ID
		}
		payload = append(payload, row)
	}

	if _, ok := seen[parteKey(models.PoloAutor, cliente.Nome)]; !ok {
		payload = append(payload, models.ProcessoParte{
			ID:         uuid.New().String(),
			TenantID:   tenantID,
			ProcessoID: processoID,
			TipoPolo:   models.PoloAutor,
			Nome:       cliente.Nome,
			Documento:  cliente.Documento,
			ClienteID:  &cliente.ID,
		})
	}

	return payload
}

// syncPartes reconciles captured parties with the stored rows. Existing rows
// are never replaced; documento and the cliente link are backfilled only when
// absent, so manual edits survive re-syncs.
func (r *ProcessoRepository) syncPartes(tx *gorm.DB, tenantID, processoID string, partes []capture.ParteProcesso, cliente *models.Cliente) error {
	payload := buildPartesPayload(tenantID, processoID, partes, cliente)
	if len(payload) == 0 {
		return nil
	}

	var existentes []models.ProcessoParte
	if err := tx.Where("tenant_id = ? AND processo_id = ?", tenantID, processoID).Find(&existentes).Error; err != nil {
		return fmt.Errorf("failed to load processo partes: %w", err)
	}

	existing := make(map[string]models.ProcessoParte, len(existentes))
	for _, parte := range existentes {
		existing[parteKey(parte.TipoPolo, parte.Nome)] = parte
	}

	for _, parte := range payload {
		existente, found := existing[parteKey(parte.TipoPolo, parte.Nome)]
		if !found {
			novo := parte
			if err := tx.Create(&novo).Error; err != nil {
				return fmt.Errorf("failed to create processo parte: %w", err)
			}
			continue
		}

		updates := map[string]interface{}{}
		if existente.Documento == nil && parte.Documento != nil {
			updates["documento"] = parte.Documento
		}
		if existente.ClienteID == nil && parte.ClienteID != nil {
			updates["cliente_id"] = parte.ClienteID
		}
		if len(updates) == 0 {
			continue
		}
		if err := tx.Model(&models.ProcessoParte{}).Where("id = ?", existente.ID).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update processo parte: %w", err)
		}
	}

	return nil
}

func (r *ProcessoRepository) ensureAdvogadoClienteLink(tx *gorm.DB, tenantID, advogadoID, clienteID string) error {
	if advogadoID == "" {
		return nil
	}

	link := models.AdvogadoCliente{
		ID:             uuid.New().String(),
		TenantID:       tenantID,
		AdvogadoID:     advogadoID,
		ClienteID:      clienteID,
		Relacionamento: models.RelacionamentoImportadoCaptura,
	}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "advogado_id"}, {Name: "cliente_id"}},
		DoNothing: true,
	}).Create(&link).Error
	if err != nil {
		return fmt.Errorf("failed to link advogado and cliente: %w", err)
	}
	return nil
}

func nilIfEmpty(value string) interface{} {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func strPtrOrNil(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
