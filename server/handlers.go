package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rickchristie/agentloops"
	"github.com/rickchristie/agentloops/agents/react"
	"github.com/rickchristie/agentloops/essay"
	"github.com/rickchristie/agentloops/graph"
	"github.com/rickchristie/agentloops/schema"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

var (
	reactRequestSchema = schema.MustCompile(schema.Object(map[string]*schema.Property{
		"task":       schema.String("Question for the agent").MinLength(1),
		"turn_limit": schema.Integer("Maximum model calls").Min(1),
	}, "task"))

	essayRequestSchema = schema.MustCompile(schema.Object(map[string]*schema.Property{
		"task":            schema.String("Essay topic").MinLength(1),
		"max_revisions":   schema.Integer("Drafts allowed beyond the first").Min(0),
		"revision_number": schema.Integer("Revision the run starts at").Min(0),
		"run_id":          schema.String("Run ID, generated when empty"),
	}, "task"))

	essayPatchSchema = schema.MustCompile(schema.Object(map[string]*schema.Property{
		"plan":     schema.String("Replacement plan"),
		"draft":    schema.String("Replacement draft"),
		"critique": schema.String("Replacement critique"),
	}))
)

type reactRequest struct {
	Task      string `json:"task"`
	TurnLimit int    `json:"turn_limit"`
}

type reactResponse struct {
	Status react.Status `json:"status"`
	Answer string       `json:"answer"`
	Turns  int          `json:"turns"`
}

type essayRequest struct {
	Task           string `json:"task"`
	MaxRevisions   *int   `json:"max_revisions"`
	RevisionNumber *int   `json:"revision_number"`
	RunID          string `json:"run_id"`
}

type essayPatch struct {
	Plan     *string `json:"plan"`
	Draft    *string `json:"draft"`
	Critique *string `json:"critique"`
}

// errBadRequest marks request decoding and validation failures.
var errBadRequest = errors.New("bad request")

func decode(r *http.Request, s *schema.Schema, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: read body: %w", errBadRequest, err)
	}
	if err := s.ValidateJSON(body); err != nil {
		return fmt.Errorf("%w: %w", errBadRequest, err)
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("%w: %w", errBadRequest, err)
	}
	return nil
}

func (s *Server) handleReact(w http.ResponseWriter, r *http.Request) {
	var req reactRequest
	if err := decode(r, reactRequestSchema, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	turnLimit := req.TurnLimit
	if turnLimit == 0 {
		turnLimit = s.react.TurnLimit
	}

	result, err := s.agent.Run(r.Context(), req.Task, turnLimit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reactResponse{Status: result.Status, Answer: result.Answer, Turns: result.Turns})
}

func (s *Server) handleCreateEssay(w http.ResponseWriter, r *http.Request) {
	var req essayRequest
	if err := decode(r, essayRequestSchema, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	maxRevisions := s.essay.MaxRevisions
	if req.MaxRevisions != nil {
		maxRevisions = *req.MaxRevisions
	}
	state := essay.NewState(req.Task, maxRevisions)
	state.RevisionNumber = s.essay.RevisionNumber
	if req.RevisionNumber != nil {
		state.RevisionNumber = *req.RevisionNumber
	}
	runID := req.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	execCtx := agentloops.NewExecutionContext(r.Context(), "essay", nil)
	result, err := s.essays.Invoke(execCtx, runID, state)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (s *Server) handleGetEssay(w http.ResponseWriter, r *http.Request) {
	cp, err := s.essays.State(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cp)
}

func (s *Server) handleEssayHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.essays.History(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (s *Server) handleUpdateEssay(w http.ResponseWriter, r *http.Request) {
	var patch essayPatch
	if err := decode(r, essayPatchSchema, &patch); err != nil {
		s.writeError(w, r, err)
		return
	}

	cp, err := s.essays.UpdateState(r.Context(), chi.URLParam(r, "runID"), essay.Update{
		Plan:     patch.Plan,
		Draft:    patch.Draft,
		Critique: patch.Critique,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cp)
}

func (s *Server) handleResumeEssay(w http.ResponseWriter, r *http.Request) {
	execCtx := agentloops.NewExecutionContext(r.Context(), "essay", nil)
	result, err := s.essays.Resume(execCtx, chi.URLParam(r, "runID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// statusFor maps an error to an HTTP status code.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, graph.ErrRunNotFound):
		return http.StatusNotFound
	case errors.Is(err, graph.ErrNotInterrupted), errors.Is(err, graph.ErrRunExists):
		return http.StatusConflict
	case errors.Is(err, agentloops.ErrUnknownAction), errors.Is(err, agentloops.ErrMalformedOutput):
		return http.StatusUnprocessableEntity
	case agentloops.IsTransportError(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	e := s.logger.Warn()
	if status >= http.StatusInternalServerError {
		e = s.logger.Error()
	}
	e.Str("path", r.URL.Path).Int("status", status).Err(err).Msg("request failed")
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
