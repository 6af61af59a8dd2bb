package models

import "time"

type ProcessoStatus string

const (
	ProcessoStatusRascunho    ProcessoStatus = "RASCUNHO"
	ProcessoStatusEmAndamento ProcessoStatus = "EM_ANDAMENTO"
	ProcessoStatusSuspenso    ProcessoStatus = "SUSPENSO"
	ProcessoStatusArquivado   ProcessoStatus = "ARQUIVADO"
	ProcessoStatusEncerrado   ProcessoStatus = "ENCERRADO"
)

type TipoPessoa string

const (
	TipoPessoaFisica   TipoPessoa = "FISICA"
	TipoPessoaJuridica TipoPessoa = "JURIDICA"
)

// RelacionamentoImportadoCaptura marks advogado/cliente links created by the
// capture pipeline rather than by hand.
const RelacionamentoImportadoCaptura = "IMPORTADO_CAPTURA"

// Processo is a legal case in the tenant database.
type Processo struct {
	ID                    string         `gorm:"column:id;primaryKey"`
	TenantID              string         `gorm:"column:tenant_id;index"`
	Numero                string         `gorm:"column:numero;index"`
	NumeroCnj             *string        `gorm:"column:numero_cnj;index"`
	Status                ProcessoStatus `gorm:"column:status;index"`
	ClasseProcessual      *string        `gorm:"column:classe_processual"`
	Comarca               *string        `gorm:"column:comarca"`
	Vara                  *string        `gorm:"column:vara"`
	DataDistribuicao      *time.Time     `gorm:"column:data_distribuicao"`
	ValorCausa            *float64       `gorm:"column:valor_causa"`
	TribunalSigla         *string        `gorm:"column:tribunal_sigla"`
	Descricao             *string        `gorm:"column:descricao"`
	ClienteID             string         `gorm:"column:cliente_id;index"`
	AdvogadoResponsavelID *string        `gorm:"column:advogado_responsavel_id"`
	CreatedAt             time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (Processo) TableName() string {
	return "processo"
}

type ProcessoPolo string

const (
	PoloAutor    ProcessoPolo = "AUTOR"
	PoloReu      ProcessoPolo = "REU"
	PoloTerceiro ProcessoPolo = "TERCEIRO"
)

// ProcessoParte is one party of a case as captured from the portal. ClienteID
// links the party to the tenant's client record when the names match.
type ProcessoParte struct {
	ID         string       `gorm:"column:id;primaryKey"`
	TenantID   string       `gorm:"column:tenant_id;index"`
	ProcessoID string       `gorm:"column:processo_id;index"`
	TipoPolo   ProcessoPolo `gorm:"column:tipo_polo"`
	Nome       string       `gorm:"column:nome"`
	Documento  *string      `gorm:"column:documento"`
	ClienteID  *string      `gorm:"column:cliente_id"`
	CreatedAt  time.Time    `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time    `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (ProcessoParte) TableName() string {
	return "processo_parte"
}

type Cliente struct {
	ID         string     `gorm:"column:id;primaryKey"`
	TenantID   string     `gorm:"column:tenant_id;index"`
	Nome       string     `gorm:"column:nome;index"`
	TipoPessoa TipoPessoa `gorm:"column:tipo_pessoa"`
	Documento  *string    `gorm:"column:documento"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (Cliente) TableName() string {
	return "cliente"
}

type Advogado struct {
	ID        string    `gorm:"column:id;primaryKey"`
	TenantID  string    `gorm:"column:tenant_id;index"`
	Nome      string    `gorm:"column:nome"`
	OabNumero *string   `gorm:"column:oab_numero"`
	OabUf     *string   `gorm:"column:oab_uf"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (Advogado) TableName() string {
	return "advogado"
}

// AdvogadoCliente links an attorney to a client they work for.
type AdvogadoCliente struct {
	ID             string    `gorm:"column:id;primaryKey"`
	TenantID       string    `gorm:"column:tenant_id;index"`
	AdvogadoID     string    `gorm:"column:advogado_id;uniqueIndex:idx_advogado_cliente"`
	ClienteID      string    `gorm:"column:cliente_id;uniqueIndex:idx_advogado_cliente"`
	Relacionamento string    `gorm:"column:relacionamento"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName specifies the table name for GORM
func (AdvogadoCliente) TableName() string {
	return "advogado_cliente"
}
