package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"timed-quiz-service/internal/app"
	"timed-quiz-service/internal/domain"
	"timed-quiz-service/internal/metrics"
)

const (
	defaultTick = time.Second
	closeGrace  = 2 * time.Second
)

// RoundWSHandler runs one team's round over a websocket: the server owns the countdown,
// pushes ticks and submits on the team's behalf when the shared budget runs out.
type RoundWSHandler struct {
	sessions *app.SessionService
	upgrader websocket.Upgrader
	tick     time.Duration
	logger   *zap.Logger
}

func NewRoundWSHandler(sessions *app.SessionService, tick time.Duration, checkOrigin func(*http.Request) bool, logger *zap.Logger) *RoundWSHandler {
	if tick <= 0 {
		tick = defaultTick
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if checkOrigin == nil {
		checkOrigin = func(r *http.Request) bool { return true }
	}
	return &RoundWSHandler{
		sessions: sessions,
		tick:     tick,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
	// final closes the connection once the message is written.
	final bool
}

type draftPayload struct {
	QuestionID flexInt `json:"questionId"`
	Answer     string  `json:"answer"`
}

type submitPayload struct {
	// Answers replaces the saved drafts when present.
	Answers json.RawMessage `json:"answers"`
}

type tickPayload struct {
	RemainingSeconds int `json:"remainingSeconds"`
}

type completePayload struct {
	CompletedRounds []int `json:"completedRounds"`
}

// ServeWS upgrades the request and drives the team's round until it is submitted.
func (h *RoundWSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	teamName := strings.TrimSpace(r.URL.Query().Get("teamName"))
	round, err := strconv.Atoi(r.URL.Query().Get("round"))
	if teamName == "" || err != nil {
		http.Error(w, "missing teamName or round", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	defer metrics.SocketOpened("round")()

	ctx := r.Context()
	started, err := h.sessions.Start(ctx, teamName, round, clientIP(r))
	if err != nil {
		h.logFailure("start round", teamName, err)
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: domain.PublicMessage(err)}})
		return
	}

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	tickerDone := make(chan struct{})

	push := func(msg outboundMessage[any]) bool {
		select {
		case send <- msg:
			return true
		case <-writerDone:
			return false
		}
	}

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.logger.Debug("ws write error", zap.Error(err))
				return
			}
			if msg.final {
				deadline := time.Now().Add(closeGrace)
				_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "round over"), deadline)
				_ = conn.SetReadDeadline(deadline)
				return
			}
		}
	}()

	go func() {
		defer close(tickerDone)
		h.runTicker(ctx, teamName, push, closeSignals)
	}()

	push(outboundMessage[any]{Type: "round", Payload: started})

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "answer":
			var payload draftPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				push(errorMessage("invalid answer payload"))
				continue
			}
			if err := h.sessions.SaveDraft(ctx, teamName, int(payload.QuestionID), payload.Answer); err != nil {
				h.logFailure("save draft", teamName, err)
				push(errorMessage(domain.PublicMessage(err)))
			}
		case "submit":
			var payload submitPayload
			if len(inbound.Payload) > 0 {
				if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
					push(errorMessage("invalid submit payload"))
					continue
				}
			}
			var answers map[int]string
			if len(payload.Answers) > 0 && string(payload.Answers) != "null" {
				parsed, err := domain.ParseAnswers(payload.Answers)
				if err != nil {
					push(errorMessage("invalid answers format"))
					continue
				}
				answers = parsed
			}
			outcome, err := h.sessions.Submit(ctx, teamName, answers, app.SubmitManual)
			if err != nil {
				h.logFailure("submit round", teamName, err)
				push(errorMessage(domain.PublicMessage(err)))
				continue
			}
			h.pushOutcome(ctx, teamName, outcome, push)
		default:
			push(errorMessage("unsupported message type"))
		}
	}

	close(closeSignals)
	<-tickerDone
	close(send)
	<-writerDone
}

func (h *RoundWSHandler) runTicker(ctx context.Context, teamName string, push func(outboundMessage[any]) bool, closeSignals <-chan struct{}) {
	ticker := time.NewTicker(h.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			remaining, err := h.sessions.Remaining(ctx, teamName)
			if err != nil {
				h.logFailure("read countdown", teamName, err)
				continue
			}
			if !push(outboundMessage[any]{Type: "tick", Payload: tickPayload{RemainingSeconds: int(remaining / time.Second)}}) {
				return
			}
			if remaining > 0 {
				continue
			}
			outcome, err := h.sessions.ExpireIfDue(ctx, teamName)
			if err != nil {
				h.logFailure("auto submit", teamName, err)
				continue
			}
			if outcome != nil {
				h.pushOutcome(ctx, teamName, *outcome, push)
			}
			// the budget is gone; nothing left to count down
			return
		case <-closeSignals:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (h *RoundWSHandler) pushOutcome(ctx context.Context, teamName string, outcome app.SubmitOutcome, push func(outboundMessage[any]) bool) {
	if !outcome.AllComplete {
		push(outboundMessage[any]{Type: "submitted", Payload: outcome, final: true})
		return
	}
	push(outboundMessage[any]{Type: "submitted", Payload: outcome})
	completed := []int{}
	if view, err := h.sessions.Status(ctx, teamName); err == nil {
		completed = view.CompletedRounds
	}
	push(outboundMessage[any]{Type: "complete", Payload: completePayload{CompletedRounds: completed}, final: true})
}

func (h *RoundWSHandler) logFailure(op, teamName string, err error) {
	if domain.KindOf(err) == domain.KindStore || domain.KindOf(err) == domain.KindUnknown {
		h.logger.Error(op, zap.String("team", teamName), zap.Error(err))
		return
	}
	h.logger.Debug(op, zap.String("team", teamName), zap.Error(err))
}

func errorMessage(message string) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: message}}
}
