package api

// handlers_cache.go implements the cache escape hatches:
//   GET  /v1/cache/stats
//   POST /v1/cache/clear
//   POST /v1/cache/cleanup

import (
	"net/http"

	"github.com/AgentMesh-Net/directory-go/internal/util"
)

func (h *handlers) GetCacheStats(w http.ResponseWriter, r *http.Request) {
	util.WriteJSON(w, http.StatusOK, h.svc.CacheStats())
}

func (h *handlers) PostCacheClear(w http.ResponseWriter, r *http.Request) {
	h.svc.ClearCaches()
	util.WriteJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (h *handlers) PostCacheCleanup(w http.ResponseWriter, r *http.Request) {
	removed := h.svc.CleanupCaches()
	util.WriteJSON(w, http.StatusOK, map[string]int{"removed": removed})
}
