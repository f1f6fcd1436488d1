package main

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gridpilot-labs/gridpilot-go/internal/extraction"
	"github.com/gridpilot-labs/gridpilot-go/internal/runner"
	"github.com/gridpilot-labs/gridpilot-go/internal/ws"
)

// extractAPI serves the synchronous REST variants of the extraction
// endpoints. Each request runs a full job and blocks until it finishes.
type extractAPI struct {
	logger  *slog.Logger
	factory ws.Factory
}

func newExtractAPI(logger *slog.Logger, factory ws.Factory) *extractAPI {
	return &extractAPI{logger: logger, factory: factory}
}

func (api *extractAPI) register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/buses", api.handleRun("buses"))
	mux.HandleFunc("POST /api/contingency", api.handleRun("contingency"))
	mux.HandleFunc("POST /api/grid", api.handleRun("grid"))
}

type runResponse struct {
	Status string            `json:"status"`
	Data   extraction.Result `json:"data,omitempty"`
	Error  string            `json:"error,omitempty"`
	Logs   []runner.Entry    `json:"logs"`
}

// handleRun always answers 200 with an explicit status field; a failed
// job is a result, not an HTTP error.
func (api *extractAPI) handleRun(endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, err := api.factory(endpoint, runner.Hooks{})
		if err != nil {
			api.writeError(w, http.StatusNotFound, "unknown_endpoint")
			return
		}

		result := job.Run(r.Context())
		resp := runResponse{
			Status: result.Status,
			Error:  result.Error,
			Logs:   result.Logs,
		}
		if result.Status == runner.StatusSuccess {
			resp.Data = result.Data
		}
		if resp.Logs == nil {
			resp.Logs = []runner.Entry{}
		}
		api.writeJSON(w, http.StatusOK, resp)
	}
}

func (api *extractAPI) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		api.logger.Error("write response failed", "error", err)
	}
}

func (api *extractAPI) writeError(w http.ResponseWriter, status int, code string) {
	api.writeJSON(w, status, map[string]string{"error": code})
}

// corsMiddleware answers preflights and marks every response as
// cross-origin readable. The service fronts a local UI; origins are not
// restricted.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
