package capture

import (
	"sort"
	"strings"
)

// TribunalConfig describes one court-registry portal supported by the
// capture service.
type TribunalConfig struct {
	Sigla              string
	Nome               string
	UF                 string
	Sistema            string // ESAJ, PJE, EPROC, PROJUDI
	ScrapingDisponivel bool
}

// Portals with scraping support today are the e-SAJ family; the PJe courts
// need a digital certificate and go through a different flow.
var tribunais = []TribunalConfig{
	{Sigla: "TJSP", Nome: "Tribunal de Justiça de São Paulo", UF: "SP", Sistema: "ESAJ", ScrapingDisponivel: true},
	{Sigla: "TJAL", Nome: "Tribunal de Justiça de Alagoas", UF: "AL", Sistema: "ESAJ", ScrapingDisponivel: true},
	{Sigla: "TJAM", Nome: "Tribunal de Justiça do Amazonas", UF: "AM", Sistema: "ESAJ", ScrapingDisponivel: true},
	{Sigla: "TJCE", Nome: "Tribunal de Justiça do Ceará", UF: "CE", Sistema: "ESAJ", ScrapingDisponivel: true},
	{Sigla: "TJMS", Nome: "Tribunal de Justiça de Mato Grosso do Sul", UF: "MS", Sistema: "ESAJ", ScrapingDisponivel: true},
	{Sigla: "TJSC", Nome: "Tribunal de Justiça de Santa Catarina", UF: "SC", Sistema: "ESAJ", ScrapingDisponivel: true},
	{Sigla: "TJRJ", Nome: "Tribunal de Justiça do Rio de Janeiro", UF: "RJ", Sistema: "PJE", ScrapingDisponivel: false},
	{Sigla: "TJMG", Nome: "Tribunal de Justiça de Minas Gerais", UF: "MG", Sistema: "PJE", ScrapingDisponivel: false},
}

// GetTribunalConfig looks a tribunal up by sigla, case-insensitively.
func GetTribunalConfig(sigla string) (TribunalConfig, bool) {
	normalized := strings.ToUpper(strings.TrimSpace(sigla))
	for _, tribunal := range tribunais {
		if tribunal.Sigla == normalized {
			return tribunal, true
		}
	}
	return TribunalConfig{}, false
}

// TribunalSuportado reports whether OAB capture is available for the tribunal.
func TribunalSuportado(sigla string) bool {
	tribunal, ok := GetTribunalConfig(sigla)
	return ok && tribunal.ScrapingDisponivel
}

// TribunaisDisponiveis lists the tribunals available for OAB capture, sorted
// by name for display.
func TribunaisDisponiveis() []TribunalConfig {
	disponiveis := make([]TribunalConfig, 0, len(tribunais))
	for _, tribunal := range tribunais {
		if tribunal.ScrapingDisponivel {
			disponiveis = append(disponiveis, tribunal)
		}
	}
	sort.Slice(disponiveis, func(i, j int) bool {
		return disponiveis[i].Nome < disponiveis[j].Nome
	})
	return disponiveis
}
