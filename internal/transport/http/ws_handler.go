package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"gamification-engine/internal/app"
	"gamification-engine/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// SubmissionStore records submitted scores before they are gamified.
type SubmissionStore interface {
	AddRecord(ctx context.Context, rec domain.ScoreRecord) error
}

type WSHandler struct {
	service     *app.GamificationService
	submissions SubmissionStore
	log         zerolog.Logger
	validator   *payloadValidator
	now         func() time.Time
	upgrader    websocket.Upgrader
}

func NewWSHandler(service *app.GamificationService, submissions SubmissionStore, log zerolog.Logger) *WSHandler {
	return &WSHandler{
		service:     service,
		submissions: submissions,
		log:         log.With().Str("component", "ws").Logger(),
		validator:   newPayloadValidator(),
		now:         time.Now,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// completePayload carries either a display score ("85%", "17/20") or the raw pair.
type completePayload struct {
	QuizID     string          `json:"quizId" validate:"required"`
	Mode       domain.Mode     `json:"mode" validate:"omitempty,oneof=solo team classroom"`
	Score      string          `json:"score,omitempty"`
	ScoreRaw   int             `json:"scoreRaw" validate:"gte=0"`
	ScoreTotal int             `json:"scoreTotal" validate:"required_without=Score,gte=0"`
	Answers    []answerPayload `json:"answers,omitempty" validate:"dive"`
}

type answerPayload struct {
	QuestionID      string  `json:"questionId" validate:"required"`
	Correct         bool    `json:"correct"`
	ResponseSeconds float64 `json:"responseSeconds" validate:"gte=0"`
}

type submittedPayload struct {
	QuizID     string `json:"quizId"`
	ScoreRaw   int    `json:"scoreRaw"`
	ScoreTotal int    `json:"scoreTotal"`
}

type progressPayload struct {
	Progression domain.StudentProgression `json:"progression"`
	Level       domain.LevelInfo          `json:"level"`
	Badges      []domain.BadgeProgress    `json:"badges"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

func errorMessage(msg string) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: msg}}
}

// ServeWS upgrades HTTP requests to websockets and wires them into the gamification use cases.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	classID := r.URL.Query().Get("classId")
	studentID := r.URL.Query().Get("studentId")
	if classID == "" || studentID == "" {
		http.Error(w, "missing classId or studentId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()

	ctx := r.Context()
	updates, cancel, err := h.service.Subscribe(ctx, classID)
	if err != nil {
		_ = conn.WriteJSON(errorMessage(err.Error()))
		return
	}
	defer cancel()

	joined, err := h.progress(ctx, studentID)
	if err != nil {
		_ = conn.WriteJSON(errorMessage(err.Error()))
		return
	}

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// Single writer: gorilla connections do not support concurrent writes.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Debug().Err(err).Str("student", studentID).Msg("ws write error")
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "classUpdate", Payload: update}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "joined", Payload: joined}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "complete":
			var payload completePayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- errorMessage("invalid complete payload")
				continue
			}
			for _, msg := range h.complete(ctx, classID, studentID, payload) {
				send <- msg
			}
		case "rank":
			var scope domain.Scope
			if len(inbound.Payload) > 0 {
				if err := json.Unmarshal(inbound.Payload, &scope); err != nil {
					send <- errorMessage("invalid rank payload")
					continue
				}
			}
			if scope.ClassID == "" && scope.Basis != domain.BasisExperience {
				scope.ClassID = classID
			}
			ranking, err := h.service.Rank(ctx, scope)
			if err != nil {
				send <- errorMessage(err.Error())
				continue
			}
			send <- outboundMessage[any]{Type: "rankings", Payload: ranking}
		case "progress":
			progress, err := h.progress(ctx, studentID)
			if err != nil {
				send <- errorMessage(err.Error())
				continue
			}
			send <- outboundMessage[any]{Type: "badges", Payload: progress}
		default:
			send <- errorMessage("unsupported message type")
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

// complete stores the submission and then runs the completion flow. A stored
// submission whose gamification fails is acknowledged and reported separately.
func (h *WSHandler) complete(ctx context.Context, classID, studentID string, payload completePayload) []outboundMessage[any] {
	if err := h.validator.Check(payload); err != nil {
		return []outboundMessage[any]{errorMessage(err.Error())}
	}
	raw, total := payload.ScoreRaw, payload.ScoreTotal
	if payload.Score != "" {
		var err error
		if raw, total, err = domain.NormalizeScore(payload.Score); err != nil {
			return []outboundMessage[any]{errorMessage(err.Error())}
		}
	}
	answers := make([]domain.AnswerTiming, 0, len(payload.Answers))
	for _, a := range payload.Answers {
		answers = append(answers, domain.AnswerTiming{QuestionID: a.QuestionID, Correct: a.Correct, ResponseSeconds: a.ResponseSeconds})
	}
	rec := domain.ScoreRecord{
		StudentID:   studentID,
		QuizID:      payload.QuizID,
		ClassID:     classID,
		Mode:        payload.Mode,
		ScoreRaw:    raw,
		ScoreTotal:  total,
		CompletedAt: h.now(),
		Answers:     answers,
	}
	rec, err := h.service.ResolveSubmission(ctx, rec)
	if err != nil {
		return []outboundMessage[any]{errorMessage(err.Error())}
	}
	if err := h.submissions.AddRecord(ctx, rec); err != nil {
		return []outboundMessage[any]{errorMessage(err.Error())}
	}

	out := []outboundMessage[any]{{Type: "submitted", Payload: submittedPayload{QuizID: rec.QuizID, ScoreRaw: raw, ScoreTotal: total}}}
	result, err := h.service.OnQuizCompleted(ctx, studentID, rec)
	if err != nil {
		h.log.Error().Err(err).Str("student", studentID).Str("quiz", rec.QuizID).Msg("gamification update failed")
		return append(out, errorMessage(err.Error()))
	}
	return append(out, outboundMessage[any]{Type: "completion", Payload: result})
}

func (h *WSHandler) progress(ctx context.Context, studentID string) (progressPayload, error) {
	progression, level, err := h.service.Progression(ctx, studentID)
	if err != nil {
		return progressPayload{}, err
	}
	badges, err := h.service.BadgeProgress(ctx, studentID)
	if err != nil {
		return progressPayload{}, err
	}
	return progressPayload{Progression: progression, Level: level, Badges: badges}, nil
}
