package capture

import "time"

// ParteProcesso is one party of a captured case.
type ParteProcesso struct {
	Tipo          string `json:"tipo"` // AUTOR, REU, TERCEIRO, ADVOGADO, TESTEMUNHA
	Nome          string `json:"nome"`
	Documento     string `json:"documento,omitempty"`
	TipoDocumento string `json:"tipoDocumento,omitempty"` // CPF or CNPJ
}

// ProcessoJuridico is a normalized case record as returned by the capture
// service, independent of which portal it was scraped from.
type ProcessoJuridico struct {
	NumeroProcesso   string          `json:"numeroProcesso"`
	NumeroAntigo     string          `json:"numeroAntigo,omitempty"`
	TribunalSigla    string          `json:"tribunalSigla,omitempty"`
	TribunalNome     string          `json:"tribunalNome,omitempty"`
	UF               string          `json:"uf,omitempty"`
	Vara             string          `json:"vara,omitempty"`
	Comarca          string          `json:"comarca,omitempty"`
	Classe           string          `json:"classe,omitempty"`
	Assunto          string          `json:"assunto,omitempty"`
	ValorCausa       *float64        `json:"valorCausa,omitempty"`
	DataDistribuicao *time.Time      `json:"dataDistribuicao,omitempty"`
	Partes           []ParteProcesso `json:"partes,omitempty"`
	Fonte            string          `json:"fonte,omitempty"` // API, SCRAPING, MANUAL
}

// CaptchaChallenge is a human-verification puzzle issued by a portal
// mid-capture. ImageDataURL is a data: URL ready to render in an <img>.
type CaptchaChallenge struct {
	ID           string `json:"id"`
	ImageDataURL string `json:"imageDataUrl,omitempty"`
}

// CaptureResult is the outcome of one capture call. Exactly one of the three
// concrete types is returned, so callers can branch with a type switch.
type CaptureResult interface {
	captureResult()
}

// CaptureSuccess carries the captured case records.
type CaptureSuccess struct {
	Processos []ProcessoJuridico
}

// CaptureCaptcha means the portal requires a human answer to continue.
// Reason is a display hint, not a failure.
type CaptureCaptcha struct {
	Challenge CaptchaChallenge
	Reason    string
}

// CaptureFailure is a non-captcha failure reported by the capture service.
type CaptureFailure struct {
	Message string
}

func (CaptureSuccess) captureResult() {}
func (CaptureCaptcha) captureResult() {}
func (CaptureFailure) captureResult() {}
