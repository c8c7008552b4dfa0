package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/psaab/ldapsh/pkg/queryhistory"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeOK(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, Response{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, Response{Success: false, Error: msg})
}

func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeOK(w, map[string]string{"status": "ok"})
}

func (s *Server) statusHandler(w http.ResponseWriter, _ *http.Request) {
	st := s.ctx.State()
	writeOK(w, StatusResponse{
		Session:       s.ctx.ID(),
		Uptime:        time.Since(s.startTime).Truncate(time.Second).String(),
		Connected:     st.Connected,
		Authenticated: st.Authenticated,
		TLS:           st.TLS,
		Commands:      s.ctx.HistoryLen(),
		Errors:        len(s.ctx.Errors()),
	})
}

func (s *Server) sessionHandler(w http.ResponseWriter, _ *http.Request) {
	cur := s.ctx.Current()
	info := SessionInfo{
		Current: CurrentInfo{
			Command:    cur.Command,
			Host:       cur.Host,
			BaseDN:     cur.BaseDN,
			Filter:     cur.Filter,
			Attributes: cur.Attributes,
			LastError:  cur.LastError,
		},
		History:  nonNil(s.ctx.History()),
		Frequent: nonNil(s.ctx.FrequentCommands(5)),
		Counts:   s.ctx.Frequencies(),
		Errors:   []ErrorInfo{},
	}
	if cur.Results != nil {
		info.Current.Results = cur.Results.Len()
	}
	for _, e := range s.ctx.Errors() {
		info.Errors = append(info.Errors, ErrorInfo{
			Command: e.Command,
			Message: e.Message,
			Time:    e.Time.Format(time.RFC3339),
		})
	}
	writeOK(w, info)
}

func (s *Server) suggestionsHandler(w http.ResponseWriter, _ *http.Request) {
	set := s.ctx.Suggestions()
	writeOK(w, SuggestionsInfo{
		NextCommands: nonNil(set.NextCommands),
		Examples:     nonNil(set.Examples),
		Tips:         nonNil(set.Tips),
		Corrections:  nonNil(set.Corrections),
	})
}

func (s *Server) historyHandler(w http.ResponseWriter, r *http.Request) {
	c := queryhistory.Category(r.PathValue("category"))
	if !c.Valid() {
		writeError(w, http.StatusNotFound, "unknown history category "+string(c))
		return
	}
	if s.hist == nil {
		writeOK(w, []string{})
		return
	}
	writeOK(w, nonNil(s.hist.Recent(c, 0)))
}

func (s *Server) validateHandler(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	res := s.validator.Validate(req.Command)
	writeOK(w, ValidateInfo{
		Valid:             res.OK(),
		Error:             res.Error,
		SuggestedCommands: res.SuggestedCommands,
		Command:           res.Command,
		Arguments:         res.Arguments,
		Syntax:            res.Syntax,
		Preview:           res.Preview,
		Warning:           res.Warning,
		Suggestion:        res.Suggestion,
	})
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
