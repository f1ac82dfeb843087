package api

import (
	"net/http"
	"time"

	"github.com/AgentMesh-Net/directory-go/internal/util"
)

func (h *handlers) GetHealth(w http.ResponseWriter, r *http.Request) {
	util.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) GetMeta(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"name":         "AgentMesh-Net Directory Gateway",
		"version":      "0.1",
		"service_time": time.Now().UTC().Format(time.RFC3339),
		"chains":       h.svc.Chains(),
		"capabilities": map[string]any{
			"partial_match":  []string{"name", "capability", "skill", "domain", "trust"},
			"native_filters": []string{"active", "x402"},
			"cache":          "lru+ttl",
		},
	}
	util.WriteJSON(w, http.StatusOK, resp)
}
