// Package server exposes the interview engine over HTTP: starting a
// session, submitting a turn, and reading a session's current snapshot.
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/lattice-hire/interviewer/pkg/apperrors"
	"github.com/lattice-hire/interviewer/pkg/candidate"
	"github.com/lattice-hire/interviewer/pkg/flow"
	"github.com/lattice-hire/interviewer/pkg/interview"
	"github.com/lattice-hire/interviewer/pkg/persona"
	"github.com/lattice-hire/interviewer/pkg/session"
	"github.com/lattice-hire/interviewer/pkg/stores"
)

// Server wires the Flow Manager, Session Manager, and collaborator stores
// behind chi's router.
type Server struct {
	router     *chi.Mux
	flow       *flow.Manager
	sessions   *session.Manager
	rubrics    stores.RubricStore
	candidates stores.CandidateStore
}

// New builds a Server with its routes mounted.
func New(flowMgr *flow.Manager, sessionMgr *session.Manager, rubrics stores.RubricStore, candidates stores.CandidateStore) *Server {
	s := &Server{
		router:     chi.NewRouter(),
		flow:       flowMgr,
		sessions:   sessionMgr,
		rubrics:    rubrics,
		candidates: candidates,
	}

	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Post("/sessions/start", s.handleStart)
	s.router.Post("/sessions/turn", s.handleTurn)
	s.router.Get("/sessions/{id}", s.handleGet)

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

type startRequest struct {
	InterviewID string  `json:"interviewId"`
	CandidateID string  `json:"candidateId"`
	Persona     *string `json:"persona,omitempty"`
}

type eventDTO struct {
	EventID    int64          `json:"eventId"`
	Stage      string         `json:"stage"`
	Competency string         `json:"competency,omitempty"`
	EventType  string         `json:"eventType"`
	Payload    map[string]any `json:"payload,omitempty"`
}

type competencySnapshot struct {
	Competency string  `json:"competency"`
	Score      float64 `json:"score"`
	Covered    int     `json:"covered"`
	Total      int     `json:"total"`
}

type personaDTO struct {
	Name          string `json:"name"`
	ProbingStyle  string `json:"probingStyle"`
	HintStyle     string `json:"hintStyle"`
	Encouragement string `json:"encouragement"`
}

type profileDTO struct {
	CandidateName          string   `json:"candidateName"`
	ResumeSummary          string   `json:"resumeSummary,omitempty"`
	ExperienceYears        float64  `json:"experienceYears"`
	HighlightedExperiences []string `json:"highlightedExperiences,omitempty"`
}

// evaluationDTO summarizes the evaluator's verdict for the turn just
// processed: the rolling summary plus the active competency's refreshed
// score, when one was produced.
type evaluationDTO struct {
	Summary      string  `json:"summary"`
	Competency   string  `json:"competency,omitempty"`
	TotalScore   float64 `json:"totalScore,omitempty"`
	RubricFilled bool    `json:"rubricFilled,omitempty"`
}

type sessionResponse struct {
	SessionID      string               `json:"sessionId"`
	Stage          string               `json:"stage"`
	Persona        *personaDTO          `json:"persona,omitempty"`
	Profile        *profileDTO          `json:"profile,omitempty"`
	Question       string               `json:"question,omitempty"`
	Evaluation     *evaluationDTO       `json:"evaluation,omitempty"`
	Events         []eventDTO           `json:"events"`
	Competencies   []competencySnapshot `json:"competencies"`
	OverallScore   float64              `json:"overallScore"`
	QuestionsAsked int                  `json:"questionsAsked"`
	ElapsedMs      int64                `json:"elapsedMs"`
	Completed      bool                 `json:"completed"`
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req startRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ctx := r.Context()
	rub, jdSummary, resumeText, err := s.rubrics.GetByInterview(ctx, req.InterviewID)
	if err != nil {
		writeError(w, http.StatusNotFound, "interview_not_found", err)
		return
	}

	prof, err := s.candidates.Get(ctx, req.CandidateID)
	if err != nil {
		writeError(w, http.StatusNotFound, "candidate_not_found", err)
		return
	}

	p := persona.Default()
	if req.Persona != nil {
		p = persona.ByName(*req.Persona)
	}

	sessionID := uuid.NewString()
	ictx, err := s.flow.Start(ctx, sessionID, req.InterviewID, req.CandidateID, rub, prof, jdSummary, resumeText, p)
	if err != nil {
		slog.Error("session start failed", "session", sessionID, "err", err)
		writeError(w, http.StatusBadGateway, "llm_failure", err)
		return
	}
	s.sessions.Create(ictx)

	writeJSON(w, http.StatusOK, toSessionResponse(ictx, 0, start, &prof))
}

type turnRequest struct {
	SessionID      string `json:"sessionId"`
	Answer         string `json:"answer"`
	AutoSend       bool   `json:"autoSend,omitempty"`
	AutoGenerate   bool   `json:"autoGenerate,omitempty"`
	CandidateLevel int    `json:"candidateLevel,omitempty"`
}

func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req turnRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	autoAnswer := req.AutoGenerate || req.AutoSend
	if req.SessionID == "" || (req.Answer == "" && !autoAnswer) {
		writeError(w, http.StatusBadRequest, "invalid_payload", errors.New("sessionId and answer are required (or set autoGenerate/autoSend)"))
		return
	}

	before, err := s.sessions.Snapshot(req.SessionID)
	lastEventID := int64(0)
	if err == nil {
		lastEventID = before.LastEventID()
	}

	ctx := r.Context()
	var prof candidate.Profile
	working, err := s.sessions.WithLock(req.SessionID, func(working *interview.Context) error {
		rub, _, _, rerr := s.rubrics.GetByInterview(ctx, working.InterviewID)
		if rerr != nil {
			return rerr
		}
		var perr error
		prof, perr = s.candidates.Get(ctx, working.CandidateID)
		if perr != nil {
			return perr
		}

		answer := req.Answer
		if autoAnswer {
			generated, gerr := s.flow.AutoAnswer(ctx, working, req.CandidateLevel)
			if gerr != nil {
				return gerr
			}
			answer = generated
		}

		return s.flow.Turn(ctx, working, rub, prof, answer)
	})

	if err != nil {
		status, code := classifyErr(err)
		writeError(w, status, code, err)
		return
	}

	writeJSON(w, http.StatusOK, toSessionResponse(working, lastEventID, start, &prof))
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id := chi.URLParam(r, "id")

	snap, err := s.sessions.Snapshot(id)
	if err != nil {
		status, code := classifyErr(err)
		writeError(w, status, code, err)
		return
	}

	var prof *candidate.Profile
	if p, err := s.candidates.Get(r.Context(), snap.CandidateID); err == nil {
		prof = &p
	}

	writeJSON(w, http.StatusOK, toSessionResponse(snap, 0, start, prof))
}

func toSessionResponse(ictx *interview.Context, sinceEventID int64, start time.Time, prof *candidate.Profile) sessionResponse {
	newEvents := ictx.EventsSince(sinceEventID)
	events := make([]eventDTO, 0, len(newEvents))
	for _, ev := range newEvents {
		events = append(events, eventDTO{
			EventID:    ev.EventID,
			Stage:      string(ev.Stage),
			Competency: ev.Competency,
			EventType:  string(ev.EventType),
			Payload:    ev.Payload,
		})
	}

	competencies := make([]competencySnapshot, 0, len(ictx.CompetencyOrder))
	for _, c := range ictx.CompetencyOrder {
		competencies = append(competencies, competencySnapshot{
			Competency: c,
			Score:      ictx.EvaluatorState.Scores[c].Score,
			Covered:    ictx.CompetencyCovered[c].Len(),
			Total:      len(ictx.CompetencyCriteria[c]),
		})
	}

	var question string
	if len(ictx.Transcript) > 0 {
		last := ictx.Transcript[len(ictx.Transcript)-1]
		if last.Speaker == interview.SpeakerInterviewer {
			question = last.Content
		}
	}
	completed := ictx.Stage == interview.StageComplete
	if completed {
		question = ""
	}

	resp := sessionResponse{
		SessionID:      ictx.SessionID,
		Stage:          string(ictx.Stage),
		Question:       question,
		Events:         events,
		Competencies:   competencies,
		OverallScore:   ictx.OverallScore,
		QuestionsAsked: ictx.QuestionsAsked,
		ElapsedMs:      time.Since(start).Milliseconds(),
		Completed:      completed,
	}

	if ictx.Persona.Name != "" {
		resp.Persona = &personaDTO{
			Name:          ictx.Persona.Name,
			ProbingStyle:  ictx.Persona.ProbingStyle,
			HintStyle:     ictx.Persona.HintStyle,
			Encouragement: ictx.Persona.Encouragement,
		}
	}
	if prof != nil {
		resp.Profile = &profileDTO{
			CandidateName:          prof.CandidateName,
			ResumeSummary:          prof.ResumeSummary,
			ExperienceYears:        prof.ExperienceYears,
			HighlightedExperiences: prof.HighlightedExperiences,
		}
	}
	resp.Evaluation = evaluationFromEvents(ictx, newEvents)

	return resp
}

// evaluationFromEvents surfaces the evaluator's verdict for the turn the
// response covers, keyed off the evaluation event appended during it.
func evaluationFromEvents(ictx *interview.Context, newEvents []interview.Event) *evaluationDTO {
	for i := len(newEvents) - 1; i >= 0; i-- {
		ev := newEvents[i]
		if ev.EventType != interview.EventEvaluation {
			continue
		}
		dto := &evaluationDTO{Competency: ev.Competency}
		if summary, ok := ev.Payload["summary"].(string); ok {
			dto.Summary = summary
		}
		if score, ok := ictx.EvaluatorState.Scores[ev.Competency]; ok {
			dto.TotalScore = score.Score
			dto.RubricFilled = score.RubricFilled
		}
		return dto
	}
	return nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload", err)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	writeJSON(w, status, errorResponse{Error: code, Detail: err.Error()})
}

func classifyErr(err error) (int, string) {
	switch {
	case errors.Is(err, apperrors.ErrSessionUnknown):
		return http.StatusUnauthorized, "session_unknown"
	case errors.Is(err, apperrors.ErrSessionComplete):
		return http.StatusConflict, "session_complete"
	case errors.Is(err, apperrors.ErrSessionExpired):
		return http.StatusGone, "session_expired"
	case errors.Is(err, apperrors.ErrLLMFailure), errors.Is(err, apperrors.ErrLLMTimeout), errors.Is(err, apperrors.ErrLLMTransport), errors.Is(err, apperrors.ErrLLMInvalid):
		return http.StatusBadGateway, "llm_failure"
	case errors.Is(err, apperrors.ErrInvalidPayload):
		return http.StatusBadRequest, "invalid_payload"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
