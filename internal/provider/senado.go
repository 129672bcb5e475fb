package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sort"
	"strings"
	"time"

	"billcast/internal/domain"
)

const defaultBaseURL = "https://legis.senado.leg.br/dadosabertos"

// Senado fetches bill records from the Senate open-data API. Unknown
// identifiers resolve to empty results, never errors, so the caller can
// treat "not found" and "upstream down" uniformly.
type Senado struct {
	BaseURL string
	Client  *http.Client
	Logger  *log.Logger
}

// NewSenado builds a provider with the default base URL and a 20s timeout.
func NewSenado(logger *log.Logger) *Senado {
	return &Senado{
		BaseURL: defaultBaseURL,
		Client:  &http.Client{Timeout: 20 * time.Second},
		Logger:  logger,
	}
}

func (p *Senado) baseURL() string {
	if p.BaseURL != "" {
		return strings.TrimRight(p.BaseURL, "/")
	}
	return defaultBaseURL
}

func (p *Senado) client() *http.Client {
	if p.Client != nil {
		return p.Client
	}
	return &http.Client{Timeout: 20 * time.Second}
}

func (p *Senado) logf(format string, args ...any) {
	if p.Logger != nil {
		p.Logger.Printf(format, args...)
	}
}

// getJSON fetches path and decodes into out. One retry on 5xx; 404 is
// reported as ok=false with no error.
func (p *Senado) getJSON(ctx context.Context, path string, out any) (bool, error) {
	url := p.baseURL() + path
	for attempt := 0; attempt < 2; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return false, err
		}
		req.Header.Set("Accept", "application/json")
		resp, err := p.client().Do(req)
		if err != nil {
			return false, fmt.Errorf("request %s: %w", path, err)
		}
		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		switch {
		case resp.StatusCode == http.StatusNotFound:
			return false, nil
		case resp.StatusCode >= 500 && attempt == 0:
			p.logf("upstream %d on %s, retrying", resp.StatusCode, path)
			continue
		case resp.StatusCode != http.StatusOK:
			return false, fmt.Errorf("upstream status %d on %s", resp.StatusCode, path)
		}
		if readErr != nil {
			return false, fmt.Errorf("read %s: %w", path, readErr)
		}
		if err := json.Unmarshal(body, out); err != nil {
			return false, fmt.Errorf("decode %s: %w", path, err)
		}
		return true, nil
	}
	return false, fmt.Errorf("upstream unavailable on %s", path)
}

// Upstream DTOs, reduced to the fields the engine consumes.

type materiaResponse struct {
	Detail struct {
		Materia struct {
			Ident struct {
				Sigla  string `json:"SiglaSubtipoMateria"`
				Numero string `json:"NumeroMateria"`
				Ano    string `json:"AnoMateria"`
			} `json:"IdentificacaoMateria"`
			Basic struct {
				Ementa       string `json:"EmentaMateria"`
				Indexacao    string `json:"IndexacaoMateria"`
				Apresentacao string `json:"DataApresentacao"`
			} `json:"DadosBasicosMateria"`
			Autoria struct {
				Autores []struct {
					Nome string `json:"NomeAutor"`
				} `json:"Autor"`
			} `json:"Autoria"`
			Situacao struct {
				Local     struct{ Nome string `json:"NomeLocal"` } `json:"LocalMateria"`
				Descricao string `json:"DescricaoSituacao"`
				Data      string `json:"DataSituacao"`
			} `json:"SituacaoAtual"`
		} `json:"Materia"`
	} `json:"DetalheMateria"`
}

type movimentacaoResponse struct {
	Mov struct {
		Materia struct {
			Eventos []struct {
				Data      string `json:"DataInforme"`
				Local     struct{ Nome string `json:"NomeLocal"` } `json:"Local"`
				Situacao  struct{ Descricao string `json:"DescricaoSituacao"` } `json:"Situacao"`
				Descricao string `json:"DescricaoInforme"`
			} `json:"Informes"`
		} `json:"Materia"`
	} `json:"MovimentacaoMateria"`
}

type relatoriaResponse struct {
	Rel struct {
		Materia struct {
			Relatorias []struct {
				Parlamentar struct {
					Nome    string `json:"NomeParlamentar"`
					Partido string `json:"SiglaPartido"`
					UF      string `json:"UfParlamentar"`
				} `json:"IdentificacaoParlamentar"`
				Comissao    struct{ Sigla string `json:"SiglaComissao"` } `json:"IdentificacaoComissao"`
				Designacao  string `json:"DataDesignacao"`
				Destituicao string `json:"DataDestituicao"`
			} `json:"Relatoria"`
		} `json:"Materia"`
	} `json:"RelatoriaMateria"`
}

// FetchBillRecord retrieves the bill's base metadata. Unknown ids yield
// an empty record.
func (p *Senado) FetchBillRecord(ctx context.Context, id domain.BillID) (domain.BillRecord, error) {
	var dto materiaResponse
	path := fmt.Sprintf("/materia/%s/%s/%s", id.Kind, id.Number, id.Year)
	ok, err := p.getJSON(ctx, path, &dto)
	if err != nil {
		p.logf("fetch bill %s: %v", id, err)
		return domain.BillRecord{ID: id}, nil
	}
	if !ok {
		return domain.BillRecord{ID: id}, nil
	}
	m := dto.Detail.Materia
	rec := domain.BillRecord{
		ID:          id,
		Title:       m.Basic.Ementa,
		Keywords:    m.Basic.Indexacao,
		PresentedAt: normalizeDate(m.Basic.Apresentacao),
		Status: domain.BillStatus{
			Location: m.Situacao.Local.Nome,
			Text:     m.Situacao.Descricao,
			Date:     normalizeDate(m.Situacao.Data),
		},
	}
	if len(m.Autoria.Autores) > 0 {
		rec.Author = m.Autoria.Autores[0].Nome
	}
	return rec, nil
}

// FetchProceduralHistory retrieves the tramitation events, newest first.
func (p *Senado) FetchProceduralHistory(ctx context.Context, id domain.BillID) ([]domain.ProceduralEvent, error) {
	var dto movimentacaoResponse
	path := fmt.Sprintf("/materia/movimentacoes/%s/%s/%s", id.Kind, id.Number, id.Year)
	ok, err := p.getJSON(ctx, path, &dto)
	if err != nil {
		p.logf("fetch history %s: %v", id, err)
		return nil, nil
	}
	if !ok {
		return nil, nil
	}
	events := make([]domain.ProceduralEvent, 0, len(dto.Mov.Materia.Eventos))
	for _, e := range dto.Mov.Materia.Eventos {
		events = append(events, domain.ProceduralEvent{
			Date:     normalizeDate(e.Data),
			Location: e.Local.Nome,
			Status:   e.Situacao.Descricao,
			Text:     e.Descricao,
		})
	}
	sortEventsDesc(events)
	return events, nil
}

// FetchRapporteurs retrieves current and closed rapporteur assignments.
func (p *Senado) FetchRapporteurs(ctx context.Context, id domain.BillID) ([]domain.Rapporteur, error) {
	var dto relatoriaResponse
	path := fmt.Sprintf("/materia/relatorias/%s/%s/%s", id.Kind, id.Number, id.Year)
	ok, err := p.getJSON(ctx, path, &dto)
	if err != nil {
		p.logf("fetch rapporteurs %s: %v", id, err)
		return nil, nil
	}
	if !ok {
		return nil, nil
	}
	out := make([]domain.Rapporteur, 0, len(dto.Rel.Materia.Relatorias))
	for _, r := range dto.Rel.Materia.Relatorias {
		rap := domain.Rapporteur{
			Name:       r.Parlamentar.Nome,
			Party:      r.Parlamentar.Partido,
			State:      r.Parlamentar.UF,
			Committee:  r.Comissao.Sigla,
			AssignedAt: normalizeDate(r.Designacao),
			Current:    r.Destituicao == "",
		}
		if r.Destituicao != "" {
			removed := normalizeDate(r.Destituicao)
			rap.RemovedAt = &removed
		}
		out = append(out, rap)
	}
	return out, nil
}

// normalizeDate keeps the date portion of upstream timestamps.
func normalizeDate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 10 {
		s = s[:10]
	}
	return s
}

func sortEventsDesc(events []domain.ProceduralEvent) {
	sort.SliceStable(events, func(i, j int) bool { return events[i].Date > events[j].Date })
}
