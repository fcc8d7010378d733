package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/promptping-ai/pull-request-ping/internal/store"
)

// apiServer serves the read-mostly JSON surface over the persisted state.
// Everything it returns comes from the store: handlers never call provider
// CLIs, so responses stay fast regardless of network state.
type apiServer struct {
	store *store.Store
}

func (a *apiServer) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /status", a.handleStatus)
	mux.HandleFunc("GET /repos", a.handleListRepos)
	mux.HandleFunc("GET /prs", a.handleListPRs)
	mux.HandleFunc("GET /prs/{id}", a.handleGetPR)
	mux.HandleFunc("GET /prs/{id}/comments", a.handleListComments)
	mux.HandleFunc("GET /prs/{id}/checks", a.handleListChecks)
	mux.HandleFunc("GET /prs/{id}/suggestions", a.handleListPRSuggestions)
	mux.HandleFunc("GET /suggestions", a.handleListSuggestions)
	mux.HandleFunc("POST /suggestions/{id}/approve", a.handleApproveSuggestion)
	mux.HandleFunc("GET /roadmaps", a.handleRoadmaps)
	mux.HandleFunc("GET /notifications", a.handleNotifications)
	mux.HandleFunc("GET /daily-context", a.handleDailyContext)
	mux.HandleFunc("POST /poll", a.handlePoll)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("encoding response failed", "error", err)
	}
}

// limitParam parses the ?limit query parameter, 0 when absent or invalid.
func limitParam(r *http.Request) int {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// StatusResponse is the JSON response for GET /status.
type StatusResponse struct {
	Status    string `json:"status"`
	Uptime    string `json:"uptime"`
	RepoCount int    `json:"repo_count"`
	PRCount   int    `json:"pr_count"`
}

func (a *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	repos, _ := a.store.ListRepos(r.Context(), 0)
	prs, _ := a.store.ListPullRequests(r.Context(), 0)

	writeJSON(w, http.StatusOK, StatusResponse{
		Status:    "running",
		Uptime:    time.Since(serverStartTime).Round(time.Second).String(),
		RepoCount: len(repos),
		PRCount:   len(prs),
	})
}

func (a *apiServer) handleListRepos(w http.ResponseWriter, r *http.Request) {
	repos, err := a.store.ListRepos(r.Context(), limitParam(r))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if repos == nil {
		repos = []store.Repo{}
	}
	writeJSON(w, http.StatusOK, repos)
}

func (a *apiServer) handleListPRs(w http.ResponseWriter, r *http.Request) {
	prs, err := a.store.ListPullRequests(r.Context(), limitParam(r))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if prs == nil {
		prs = []store.PullRequestRecord{}
	}
	writeJSON(w, http.StatusOK, prs)
}

func (a *apiServer) handleGetPR(w http.ResponseWriter, r *http.Request) {
	pr, err := a.store.GetPullRequest(r.Context(), r.PathValue("id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if pr == nil {
		http.Error(w, "pull request not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, pr)
}

func (a *apiServer) handleListComments(w http.ResponseWriter, r *http.Request) {
	comments, err := a.store.ListCommentsForPR(r.Context(), r.PathValue("id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if comments == nil {
		comments = []store.PRComment{}
	}
	writeJSON(w, http.StatusOK, comments)
}

func (a *apiServer) handleListChecks(w http.ResponseWriter, r *http.Request) {
	checks, err := a.store.ListCheckRunsForPR(r.Context(), r.PathValue("id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if checks == nil {
		checks = []store.CheckRun{}
	}
	writeJSON(w, http.StatusOK, checks)
}

func (a *apiServer) handleListPRSuggestions(w http.ResponseWriter, r *http.Request) {
	suggestions, err := a.store.ListFixSuggestionsForPR(r.Context(), r.PathValue("id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if suggestions == nil {
		suggestions = []store.FixSuggestion{}
	}
	writeJSON(w, http.StatusOK, suggestions)
}

func (a *apiServer) handleListSuggestions(w http.ResponseWriter, r *http.Request) {
	suggestions, err := a.store.ListPendingFixSuggestions(r.Context(), limitParam(r))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if suggestions == nil {
		suggestions = []store.FixSuggestion{}
	}
	writeJSON(w, http.StatusOK, suggestions)
}

func (a *apiServer) handleApproveSuggestion(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	approved, err := a.store.ApproveFixSuggestion(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !approved {
		http.Error(w, "fix suggestion not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status": store.SuggestionApproved,
		"id":     id,
	})
}

func (a *apiServer) handleRoadmaps(w http.ResponseWriter, r *http.Request) {
	aggs, err := a.store.RoadmapAggregates(r.Context(), limitParam(r))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if aggs == nil {
		aggs = []store.RoadmapAggregate{}
	}
	writeJSON(w, http.StatusOK, aggs)
}

func (a *apiServer) handleNotifications(w http.ResponseWriter, r *http.Request) {
	records, err := a.store.ListNotifications(r.Context(), limitParam(r))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []store.NotificationRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (a *apiServer) handleDailyContext(w http.ResponseWriter, r *http.Request) {
	dc, err := a.store.LatestDailyContext(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if dc == nil {
		http.Error(w, "no daily context fetched yet", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, dc)
}

func (a *apiServer) handlePoll(w http.ResponseWriter, r *http.Request) {
	TriggerPoll()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "poll triggered"})
}
