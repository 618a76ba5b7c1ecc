package http

import (
	"errors"
	"html/template"
	"time"

	"patdash/internal/core"
	"patdash/internal/report"
	"patdash/internal/services"
	"patdash/internal/source"
)

// User-facing messages.
const (
	msgFetchFailed = "Erro ao ligar à fonte de dados"
	msgNoData      = "A planilha foi lida, mas os dados numéricos não foram encontrados. Verifique se os nomes dos meses estão na Coluna A."
	msgInternal    = "Erro inesperado ao processar a planilha"
)

var templateFuncs = template.FuncMap{
	"number": report.FormatNumber,
	"rate":   report.FormatRate,
}

type (
	pageView struct {
		Title          string
		Caption        string
		Hint           string
		Profile        string
		RefreshSeconds int
	}

	metricView struct {
		Label string
		Value string
	}

	overviewView struct {
		Error     string
		Detail    string
		Warning   string
		Metrics   []metricView
		Chart     []report.Group
		Header    []string
		Rows      [][]string
		FetchedAt string
		Profile   string

		// RefreshSeconds is the poll period of the partial.
		RefreshSeconds int
	}
)

func (s *Server) page() pageView {
	return pageView{
		Title:          "📊 PAT Jacareí - Dashboard de Monitoramento",
		Caption:        "Dados extraídos em tempo real da planilha Google Drive.",
		Hint:           "Os dados são atualizados automaticamente. Use o botão Atualizar para ler a planilha agora.",
		Profile:        s.dash.Profile().Name,
		RefreshSeconds: int(s.interval / time.Second),
	}
}

// newOverview turns a pipeline outcome into what overview.html renders.
func newOverview(snap services.Snapshot, err error) overviewView {
	if err != nil {
		v := overviewView{Error: msgInternal}
		var fe *source.FetchError
		if errors.As(err, &fe) {
			v.Error = msgFetchFailed
			v.Detail = fe.Err.Error()
		}
		return v
	}

	v := overviewView{Profile: snap.Profile.Name}
	if !snap.FetchedAt.IsZero() {
		v.FetchedAt = snap.FetchedAt.Format("02/01/2006 15:04:05")
	}
	if snap.Empty() {
		v.Warning = msgNoData
		return v
	}

	sum := snap.Summary
	for _, t := range sum.Totals {
		switch t.Field {
		case report.FieldOpenings:
			v.Metrics = append(v.Metrics, metricView{Label: "Total de Vagas", Value: report.FormatNumber(t.Sum)})
		case report.FieldHired:
			v.Metrics = append(v.Metrics, metricView{Label: "Total de Contratados", Value: report.FormatNumber(t.Sum)})
		}
	}
	if sum.HasRate {
		v.Metrics = append(v.Metrics, metricView{Label: "Taxa de Colocação", Value: report.FormatRate(sum.Rate)})
	}
	v.Chart = sum.Chart
	v.Header = sum.Header
	v.Rows = sum.Rows
	return v
}

type (
	recordsResponse struct {
		Profile   string           `json:"profile"`
		Fields    []string         `json:"fields"`
		FetchedAt *time.Time       `json:"fetched_at,omitempty"`
		Records   []map[string]any `json:"records"`
	}

	totalResponse struct {
		Field string  `json:"field"`
		Label string  `json:"label"`
		Sum   float64 `json:"sum"`
		Count int     `json:"count"`
	}

	barResponse struct {
		Month     string   `json:"mes"`
		Fortnight string   `json:"quinzena"`
		Value     *float64 `json:"valor"`
	}

	summaryResponse struct {
		Profile    string          `json:"profile"`
		Records    int             `json:"records"`
		Empty      bool            `json:"empty"`
		Totals     []totalResponse `json:"totals"`
		Rate       *float64        `json:"taxa_colocacao"`
		ChartField string          `json:"chart_field"`
		Chart      []barResponse   `json:"chart"`
		FetchedAt  *time.Time      `json:"fetched_at,omitempty"`
	}

	errorResponse struct {
		Error  string `json:"error"`
		Detail string `json:"detail,omitempty"`
	}
)

// newRecordsResponse renders a table with nulls as JSON null.
func newRecordsResponse(snap services.Snapshot) recordsResponse {
	resp := recordsResponse{
		Profile: snap.Table.Profile,
		Fields:  snap.Table.Fields,
		Records: make([]map[string]any, 0, snap.Table.Len()),
	}
	if resp.Fields == nil {
		resp.Fields = []string{}
	}
	if !snap.FetchedAt.IsZero() {
		at := snap.FetchedAt
		resp.FetchedAt = &at
	}
	for _, r := range snap.Table.Records {
		row := map[string]any{"mes": r.Month, "quinzena": string(r.Fortnight)}
		for _, f := range snap.Table.Fields {
			row[f] = nullable(r.Get(f))
		}
		resp.Records = append(resp.Records, row)
	}
	return resp
}

func newSummaryResponse(snap services.Snapshot) summaryResponse {
	sum := snap.Summary
	resp := summaryResponse{
		Profile:    sum.Profile,
		Records:    sum.Records,
		Empty:      snap.Empty(),
		Totals:     make([]totalResponse, 0, len(sum.Totals)),
		ChartField: sum.ChartField,
		Chart:      []barResponse{},
	}
	for _, t := range sum.Totals {
		resp.Totals = append(resp.Totals, totalResponse{Field: t.Field, Label: t.Label, Sum: t.Sum, Count: t.Count})
	}
	if sum.HasRate {
		rate := sum.Rate
		resp.Rate = &rate
	}
	for _, g := range sum.Chart {
		for _, b := range g.Bars {
			resp.Chart = append(resp.Chart, barResponse{
				Month:     b.Month,
				Fortnight: string(b.Fortnight),
				Value:     nullable(core.Value{V: b.Value, Valid: b.Valid}),
			})
		}
	}
	if !snap.FetchedAt.IsZero() {
		at := snap.FetchedAt
		resp.FetchedAt = &at
	}
	return resp
}

func nullable(v core.Value) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.V
	return &f
}
