package dashboard

import (
	"bytes"
	"fmt"
	"net/http"
	"net/url"

	"FlightsDashboard/src/export"
	"FlightsDashboard/src/processor"
)

// 页面内表格最多显示的行数
const pageTableRows = 50

type option struct {
	Value    string
	Label    string
	Selected bool
}

type pageSection struct {
	Chart   string
	Heading string
	Text    string
	Err     string
	Image   string
	Export  string
	Table   *export.Table
	More    int  // 未显示的行数
	Details bool // 有图时表格折叠显示
}

type pageData struct {
	Title         string
	Intro         string
	Params        Params
	MaxTopN       int
	Dimensions    []option
	Granularities []option
	LoadError     string
	Sections      []pageSection
}

func (s *Server) dimensionOptions(env *Env, selected string) []option {
	var out []option
	for _, name := range s.dcfg.DimensionNames() {
		label := name
		if col, ok := s.dcfg.DimensionColumn(name); ok && env != nil {
			label = env.Label(col)
		}
		out = append(out, option{Value: name, Label: label, Selected: name == selected})
	}
	return out
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	p, err := ParseParams(r, s.dcfg)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	data := pageData{
		Title:   s.pages.Title,
		Intro:   s.pages.Intro,
		Params:  p,
		MaxTopN: s.dcfg.MaxTopN,
		Granularities: []option{
			{Value: string(processor.Daily), Label: "Day", Selected: p.Granularity == processor.Daily},
			{Value: string(processor.Monthly), Label: "Month", Selected: p.Granularity == processor.Monthly},
		},
	}

	env, err := s.Env()
	if err != nil {
		data.LoadError = err.Error()
	}
	data.Dimensions = s.dimensionOptions(env, p.Dimension)

	if env != nil {
		query := p.Query(s.dcfg)
		for _, sec := range s.pages.Sections {
			data.Sections = append(data.Sections, s.pageSection(sec.Chart, sec.Heading, sec.Text, p, query))
		}
	}

	var buf bytes.Buffer
	if err := s.tmpl.Execute(&buf, data); err != nil {
		s.logger.Error("render page: " + err.Error())
		http.Error(w, "render page failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

// pageSection builds one chart for the page; a failure is shown in its section only.
func (s *Server) pageSection(chart, heading, text string, p Params, query url.Values) pageSection {
	sec := pageSection{Chart: chart, Heading: heading, Text: text}

	res, err := s.Build(chart, p)
	if err != nil {
		sec.Err = err.Error()
		return sec
	}
	if sec.Heading == "" {
		sec.Heading = res.Title
	}

	suffix := ""
	if len(query) > 0 {
		suffix = "?" + query.Encode()
	}
	if res.Figure != nil {
		sec.Image = fmt.Sprintf("/api/charts/%s/image%s", chart, suffix)
		sec.Details = true
	}
	sec.Export = fmt.Sprintf("/api/charts/%s/export%s", chart, suffix)

	if len(res.Tables) > 0 {
		t := res.Tables[0]
		if len(t.Rows) > pageTableRows {
			sec.More = len(t.Rows) - pageTableRows
			t.Rows = t.Rows[:pageTableRows]
		}
		sec.Table = &t
	}
	return sec
}

func cellString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case float64:
		return processor.FormatNumber(x)
	}
	return fmt.Sprint(v)
}
