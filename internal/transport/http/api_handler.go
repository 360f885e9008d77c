package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"timed-quiz-service/internal/app"
)

// APIHandler serves the team-facing and admin REST endpoints.
type APIHandler struct {
	registry *app.TeamRegistry
	bank     *app.QuestionBank
	ledger   *app.SubmissionLedger
	sessions *app.SessionService
	admin    *app.AdminView
	logger   *zap.Logger
}

func NewAPIHandler(registry *app.TeamRegistry, bank *app.QuestionBank, ledger *app.SubmissionLedger, sessions *app.SessionService, admin *app.AdminView, logger *zap.Logger) *APIHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &APIHandler{registry: registry, bank: bank, ledger: ledger, sessions: sessions, admin: admin, logger: logger}
}

type registerRequest struct {
	TeamName string `json:"teamName"`
}

func (h *APIHandler) RegisterTeam(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	result, err := h.registry.Register(r.Context(), req.TeamName, clientIP(r))
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	message := "Team registered successfully"
	if result.AlreadyExisted {
		message = "Team already registered"
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: message})
}

type teamStatusResponse struct {
	Success bool `json:"success"`
	app.TeamStatus
}

func (h *APIHandler) TeamStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.registry.Status(r.Context(), r.URL.Query().Get("teamName"))
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, teamStatusResponse{Success: true, TeamStatus: status})
}

type questionsResponse struct {
	Success bool `json:"success"`
	app.RoundPayload
}

func (h *APIHandler) Questions(w http.ResponseWriter, r *http.Request) {
	round, err := strconv.Atoi(strings.TrimSpace(r.URL.Query().Get("round")))
	if err != nil || round == 0 {
		round = 1
	}
	payload, err := h.bank.RoundPayload(r.Context(), round)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, questionsResponse{Success: true, RoundPayload: payload})
}

type submitRequest struct {
	TeamName    string          `json:"teamName"`
	RoundNumber json.RawMessage `json:"roundNumber"`
	Answers     json.RawMessage `json:"answers"`
	TimeTaken   flexInt         `json:"timeTaken"`
}

type submitResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Score   int    `json:"score"`
}

func (h *APIHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	// an unparseable round falls through to the ledger as 0, which it rejects as invalid
	round, _ := parseFlexInt(req.RoundNumber)
	result, err := h.ledger.Submit(r.Context(), app.SubmitRequest{
		TeamName:  req.TeamName,
		Round:     round,
		Answers:   req.Answers,
		TimeTaken: int(req.TimeTaken),
		IPAddress: clientIP(r),
	})
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, submitResponse{Success: true, Message: "Submission successful!", Score: result.Score})
}

type adminSnapshotResponse struct {
	Success bool `json:"success"`
	app.AdminSnapshot
}

func (h *APIHandler) AdminSubmissions(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.admin.Snapshot(r.Context())
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, adminSnapshotResponse{Success: true, AdminSnapshot: snapshot})
}

type updateScoreRequest struct {
	TeamName    *string  `json:"teamName"`
	RoundNumber *flexInt `json:"roundNumber"`
	NewScore    *flexInt `json:"newScore"`
}

func (h *APIHandler) UpdateScore(w http.ResponseWriter, r *http.Request) {
	var req updateScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if req.TeamName == nil || strings.TrimSpace(*req.TeamName) == "" || req.RoundNumber == nil || req.NewScore == nil {
		badRequest(w, "Missing required fields")
		return
	}
	if err := h.ledger.UpdateScore(r.Context(), *req.TeamName, int(*req.RoundNumber), int(*req.NewScore)); err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true})
}

type deleteTeamRequest struct {
	TeamName string `json:"teamName"`
}

func (h *APIHandler) DeleteTeam(w http.ResponseWriter, r *http.Request) {
	var req deleteTeamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if err := h.sessions.DeleteTeam(r.Context(), req.TeamName); err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true})
}

type breakdownResponse struct {
	Success bool `json:"success"`
	app.Breakdown
}

func (h *APIHandler) Breakdown(w http.ResponseWriter, r *http.Request) {
	round, err := strconv.Atoi(r.URL.Query().Get("round"))
	if err != nil {
		badRequest(w, "invalid round")
		return
	}
	breakdown, err := h.admin.Breakdown(r.Context(), r.URL.Query().Get("teamName"), round)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, breakdownResponse{Success: true, Breakdown: breakdown})
}

type leaderboardResponse struct {
	Success bool `json:"success"`
	app.Leaderboard
}

func (h *APIHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	lb, err := h.admin.Leaderboard(r.Context())
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, leaderboardResponse{Success: true, Leaderboard: lb})
}

func (h *APIHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	// build in memory first so a store failure can still produce a JSON error
	var buf strings.Builder
	if err := h.admin.WriteCSV(r.Context(), &buf); err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="leaderboard.csv"`)
	_, _ = w.Write([]byte(buf.String()))
}
