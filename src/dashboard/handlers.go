package dashboard

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"FlightsDashboard/src/export"
	"FlightsDashboard/src/processor"
)

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, err error) {
	respondJSON(w, status, map[string]string{"error": err.Error()})
}

// statusFor 将构建错误映射为 HTTP 状态码
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrBadParam):
		return http.StatusBadRequest
	case errors.Is(err, processor.ErrMissingColumn):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// chartRequest resolves the chart and widget state shared by the chart endpoints.
// It writes the error response itself and returns ok=false on failure.
func (s *Server) chartRequest(w http.ResponseWriter, r *http.Request) (*Result, bool) {
	name := r.PathValue("name")
	if _, ok := LookupChart(name); !ok {
		respondError(w, http.StatusNotFound, fmt.Errorf("chart %q not known", name))
		return nil, false
	}

	p, err := ParseParams(r, s.dcfg)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return nil, false
	}

	if _, err := s.Env(); err != nil {
		respondError(w, http.StatusServiceUnavailable, err)
		return nil, false
	}

	res, err := s.Build(name, p)
	if err != nil {
		respondError(w, statusFor(err), err)
		return nil, false
	}
	return res, true
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	if res, ok := s.chartRequest(w, r); ok {
		respondJSON(w, http.StatusOK, res)
	}
}

func (s *Server) handleChartImage(w http.ResponseWriter, r *http.Request) {
	res, ok := s.chartRequest(w, r)
	if !ok {
		return
	}
	if res.Figure == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	png, err := res.Figure.PNG()
	if err != nil {
		s.logger.Error(fmt.Sprintf("render %s: %v", res.Name, err))
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(png)
}

func (s *Server) handleChartExport(w http.ResponseWriter, r *http.Request) {
	res, ok := s.chartRequest(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := export.WriteWorkbook(&buf, res.Tables); err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.xlsx"`, res.Name))
	w.Write(buf.Bytes())
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	p, err := ParseParams(r, s.dcfg)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if _, err := s.Env(); err != nil {
		respondError(w, http.StatusServiceUnavailable, err)
		return
	}

	rep, _ := s.Report(p)
	var buf bytes.Buffer
	if err := export.WritePDF(&buf, rep); err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="report.pdf"`)
	w.Write(buf.Bytes())
}

type chartInfo struct {
	Name        string   `json:"name"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Widgets     []string `json:"widgets"`
}

func (s *Server) handleChartList(w http.ResponseWriter, r *http.Request) {
	var out []chartInfo
	for _, e := range ListCharts() {
		out = append(out, chartInfo{Name: e.Name, Title: e.Title, Description: e.Description, Widgets: e.Widgets})
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleColumns(w http.ResponseWriter, r *http.Request) {
	env, err := s.Env()
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"columns":    env.Dataset.Descriptors.All(),
		"dimensions": s.dimensionOptions(env, ""),
	})
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	s.Reload("requested by " + r.RemoteAddr)
	env, err := s.Env()
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"rows":        env.Flights.Nrow(),
		"fingerprint": env.Dataset.Fingerprint,
		"loaded_at":   env.Dataset.LoadedAt.UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.startTime).String(),
	}

	status := http.StatusOK
	if env, err := s.Env(); err != nil {
		health["status"] = "degraded"
		health["error"] = err.Error()
		status = http.StatusServiceUnavailable
	} else {
		if msg := s.env.reloadError(); msg != "" {
			health["status"] = "stale"
			health["reload_error"] = msg
		}
		health["rows"] = env.Flights.Nrow()
		health["fingerprint"] = env.Dataset.Fingerprint
		health["loaded_at"] = env.Dataset.LoadedAt.UTC().Format(time.RFC3339)
	}
	respondJSON(w, status, health)
}

// handleLogs 实时推送日志
func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Transfer-Encoding", "chunked")

	logChan := s.logger.Subscribe()
	defer s.logger.Unsubscribe(logChan)

	for {
		select {
		case msg, ok := <-logChan:
			if !ok {
				return
			}
			if _, err := fmt.Fprint(w, msg); err != nil {
				// 客户端断开连接
				return
			}
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
		case <-r.Context().Done():
			return
		}
	}
}
