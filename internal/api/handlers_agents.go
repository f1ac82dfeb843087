package api

// handlers_agents.go implements the discovery endpoints:
//   GET /v1/agents        — unified search
//   GET /v1/agents/count  — exact match count

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/AgentMesh-Net/directory-go/internal/registry"
	"github.com/AgentMesh-Net/directory-go/internal/util"
)

// parseFilter builds a registry.Filter from query parameters.
// Repeatable term parameters: capability, skill, domain, trust.
// Tri-state flags: active, x402. Chain selection: chains=1,8453.
func parseFilter(r *http.Request) (registry.Filter, error) {
	q := r.URL.Query()
	f := registry.Filter{
		Name:         strings.TrimSpace(q.Get("name")),
		Capabilities: cleanTerms(q["capability"]),
		Skills:       cleanTerms(q["skill"]),
		Domains:      cleanTerms(q["domain"]),
		TrustModels:  cleanTerms(q["trust"]),
	}

	active, ok := util.ParseBoolPtr(r, "active")
	if !ok {
		return registry.Filter{}, errors.New("active must be true or false")
	}
	f.Active = active

	x402, ok := util.ParseBoolPtr(r, "x402")
	if !ok {
		return registry.Filter{}, errors.New("x402 must be true or false")
	}
	f.SupportsX402 = x402

	if chains := strings.TrimSpace(q.Get("chains")); chains != "" {
		for _, part := range strings.Split(chains, ",") {
			id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
			if err != nil || id <= 0 {
				return registry.Filter{}, errors.New("chains must be a comma-separated list of chain ids")
			}
			f.Chains = append(f.Chains, id)
		}
	}
	return f, nil
}

func cleanTerms(raw []string) []string {
	var out []string
	for _, t := range raw {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func (h *handlers) SearchAgents(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		util.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	pageSize := util.ParseLimit(r, h.cfg.DefaultPageSize, h.cfg.MaxPageSize)
	cursor := r.URL.Query().Get("cursor")

	res, err := h.svc.Search(r.Context(), f, pageSize, cursor)
	if err != nil {
		writeSearchError(w, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, res)
}

func (h *handlers) CountAgents(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		util.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	n, err := h.svc.Count(r.Context(), f)
	if err != nil {
		writeSearchError(w, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, map[string]int{"total": n})
}

func writeSearchError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, registry.ErrBadCursor):
		util.WriteError(w, http.StatusBadRequest, "invalid_cursor", err.Error())
	case errors.Is(err, registry.ErrCursorChainMismatch):
		util.WriteError(w, http.StatusBadRequest, "invalid_cursor", err.Error())
	case errors.Is(err, registry.ErrUnknownChain):
		util.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
	default:
		util.WriteError(w, http.StatusBadGateway, "upstream_error", err.Error())
	}
}
