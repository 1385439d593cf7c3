package handlers

import (
	"context"
	"net/http"
	"sync"

	"github.com/gorilla/mux"

	"distill/internal/engine"
	"distill/internal/storage"
	"distill/internal/summarizer"
)

// SummarizeRequest is the body of POST /v1/summarize.
type SummarizeRequest struct {
	Text          string `json:"text"`
	Prompt        string `json:"prompt,omitempty"`
	Budget        int    `json:"budget,omitempty"`
	MaxIterations int    `json:"max_iterations,omitempty"`
}

// RoundResponse describes one summarization round.
type RoundResponse struct {
	Parts        int `json:"parts"`
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// SummarizeResponse is returned by POST /v1/summarize.
type SummarizeResponse struct {
	Text       string          `json:"text"`
	Iterations int             `json:"iterations"`
	Asks       int             `json:"asks"`
	Tokens     int             `json:"tokens"`
	Budget     int             `json:"budget"`
	Fits       bool            `json:"fits"`
	Rounds     []RoundResponse `json:"rounds"`
}

// AskRequest is the body of POST /v1/ask.
type AskRequest struct {
	Prompt string `json:"prompt"`
}

// AskResponse is returned by POST /v1/ask.
type AskResponse struct {
	Identity string `json:"identity"`
	Response string `json:"response"`
}

// SplitRequest is the body of POST /v1/split.
type SplitRequest struct {
	Text   string `json:"text"`
	Budget int    `json:"budget,omitempty"`
	Merge  bool   `json:"merge"`
}

// SplitResponse is returned by POST /v1/split.
type SplitResponse struct {
	Segments []string `json:"segments"`
	Tokens   []int    `json:"tokens"`
}

// CountersResponse is returned by GET /v1/counters.
type CountersResponse struct {
	Identity string           `json:"identity"`
	Counters map[string]int64 `json:"counters"`
}

// CacheResponse is returned by GET /v1/cache.
type CacheResponse struct {
	Persistent bool                    `json:"persistent"`
	Entries    int                     `json:"entries"`
	Identities []storage.IdentityStats `json:"identities,omitempty"`
}

// DistillHandler serves the engine over HTTP. Every route that touches the
// engine holds mu, so requests run one at a time.
type DistillHandler struct {
	mu     sync.Mutex
	engine *engine.Engine
}

// NewDistillHandler creates a handler over e.
func NewDistillHandler(e *engine.Engine) *DistillHandler {
	return &DistillHandler{engine: e}
}

// RegisterRoutes registers the engine routes on the router.
func (h *DistillHandler) RegisterRoutes(router *mux.Router) {
	sub := router.PathPrefix("/v1").Subrouter()

	sub.HandleFunc("/summarize", h.HandleSummarize).Methods("POST")
	sub.HandleFunc("/ask", h.HandleAsk).Methods("POST")
	sub.HandleFunc("/split", h.HandleSplit).Methods("POST")
	sub.HandleFunc("/counters", h.HandleCounters).Methods("GET")
	sub.HandleFunc("/cache", h.HandleCache).Methods("GET")
}

// HandleSummarize condenses the posted text.
func (h *DistillHandler) HandleSummarize(w http.ResponseWriter, r *http.Request) {
	var req SummarizeRequest
	if err := decode(r, &req); err != nil {
		SendError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Budget < 0 || req.MaxIterations < 0 {
		SendError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "budget and max_iterations must not be negative")
		return
	}

	h.mu.Lock()
	res, err := h.engine.Summarize(r.Context(), summarizer.Request{
		Text:          req.Text,
		Prompt:        req.Prompt,
		Budget:        req.Budget,
		MaxIterations: req.MaxIterations,
	})
	h.mu.Unlock()
	if err != nil {
		SendEngineError(w, err)
		return
	}

	rounds := make([]RoundResponse, len(res.Rounds))
	for i, rd := range res.Rounds {
		rounds[i] = RoundResponse{Parts: rd.Parts, InputTokens: rd.InputTokens, OutputTokens: rd.OutputTokens}
	}
	SendJSON(w, http.StatusOK, SummarizeResponse{
		Text:       res.Text,
		Iterations: res.Iterations,
		Asks:       res.Asks,
		Tokens:     res.Tokens,
		Budget:     res.Budget,
		Fits:       res.Fits,
		Rounds:     rounds,
	})
}

// HandleAsk sends one prompt through the cache.
func (h *DistillHandler) HandleAsk(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := decode(r, &req); err != nil {
		SendError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body: "+err.Error())
		return
	}

	h.mu.Lock()
	resp, err := h.engine.Ask(r.Context(), req.Prompt)
	h.mu.Unlock()
	if err != nil {
		SendEngineError(w, err)
		return
	}

	SendJSON(w, http.StatusOK, AskResponse{Identity: h.engine.Provider.Identity(), Response: resp})
}

// HandleSplit returns the segments the summarizer would send.
func (h *DistillHandler) HandleSplit(w http.ResponseWriter, r *http.Request) {
	var req SplitRequest
	if err := decode(r, &req); err != nil {
		SendError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body: "+err.Error())
		return
	}

	h.mu.Lock()
	segments, err := h.engine.Split(req.Text, req.Budget, req.Merge)
	tokens := make([]int, len(segments))
	for i, s := range segments {
		tokens[i] = h.engine.Provider.TokenCount(s)
	}
	h.mu.Unlock()
	if err != nil {
		SendEngineError(w, err)
		return
	}

	if segments == nil {
		segments = []string{}
	}
	SendJSON(w, http.StatusOK, SplitResponse{Segments: segments, Tokens: tokens})
}

// HandleCounters returns the ask counters of this process.
func (h *DistillHandler) HandleCounters(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	resp := CountersResponse{
		Identity: h.engine.Provider.Identity(),
		Counters: h.engine.Counters.Snapshot(),
	}
	h.mu.Unlock()
	SendJSON(w, http.StatusOK, resp)
}

// HandleCache reports the size of the ask cache.
func (h *DistillHandler) HandleCache(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	resp, err := h.cacheStats(r.Context())
	h.mu.Unlock()
	if err != nil {
		SendError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	SendJSON(w, http.StatusOK, resp)
}

func (h *DistillHandler) cacheStats(ctx context.Context) (CacheResponse, error) {
	n, err := h.engine.Cache.Store().Len(ctx)
	if err != nil {
		return CacheResponse{}, err
	}

	resp := CacheResponse{Entries: n}
	if store := h.engine.AskStore(); store != nil {
		resp.Persistent = true
		if resp.Identities, err = store.Stats(ctx); err != nil {
			return CacheResponse{}, err
		}
	}
	return resp, nil
}
