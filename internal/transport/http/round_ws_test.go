package http

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type wsMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readNext(conn *websocket.Conn, t *testing.T, expect string) wsMessage {
	t.Helper()
	var msg wsMessage
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s", expect, msg.Type)
	}
	return msg
}

// readUntil skips ticks and returns the first message of the wanted type.
func readUntil(conn *websocket.Conn, t *testing.T, want string) wsMessage {
	t.Helper()
	for i := 0; i < 1000; i++ {
		msg := readNext(conn, t, "")
		if msg.Type == want {
			return msg
		}
		if msg.Type == "error" {
			t.Fatalf("unexpected error message: %s", msg.Payload)
		}
	}
	t.Fatalf("never received %s", want)
	return wsMessage{}
}

func TestRoundSocketManualSubmitUsesDrafts(t *testing.T) {
	srv := newTestServer(t)
	conn := dial(t, srv.wsURL("/ws/round?teamName=Alpha&round=1"))

	round := readUntil(conn, t, "round")
	var started struct {
		Session struct {
			State string `json:"state"`
		} `json:"session"`
		Round struct {
			Questions []map[string]any `json:"questions"`
		} `json:"round"`
	}
	if err := json.Unmarshal(round.Payload, &started); err != nil {
		t.Fatalf("decode round: %v", err)
	}
	if started.Session.State != "active" || len(started.Round.Questions) != 2 {
		t.Fatalf("unexpected round payload %s", round.Payload)
	}

	srv.clock.Advance(95 * time.Second)
	if err := conn.WriteJSON(map[string]any{"type": "answer", "payload": map[string]any{"questionId": 1, "answer": "High"}}); err != nil {
		t.Fatalf("write answer: %v", err)
	}
	if err := conn.WriteJSON(map[string]any{"type": "submit"}); err != nil {
		t.Fatalf("write submit: %v", err)
	}

	submitted := readUntil(conn, t, "submitted")
	var outcome struct {
		Score     int    `json:"score"`
		TimeTaken int    `json:"timeTaken"`
		Mode      string `json:"mode"`
		NextRound int    `json:"nextRound"`
	}
	if err := json.Unmarshal(submitted.Payload, &outcome); err != nil {
		t.Fatalf("decode outcome: %v", err)
	}
	if outcome.Score != 10 || outcome.Mode != "manual" || outcome.NextRound != 2 || outcome.TimeTaken != 95 {
		t.Fatalf("unexpected outcome %+v", outcome)
	}

	subs, err := srv.store.ListTeamSubmissions(context.Background(), "alpha")
	if err != nil || len(subs) != 1 {
		t.Fatalf("expected one stored submission, got %d (%v)", len(subs), err)
	}
	if subs[0].Answers[1] != "High" || subs[0].Answers[2] != "" {
		t.Fatalf("expected drafts plus blank defaults, got %v", subs[0].Answers)
	}
}

func TestRoundSocketAutoSubmitsWhenBudgetRunsOut(t *testing.T) {
	srv := newTestServer(t)
	conn := dial(t, srv.wsURL("/ws/round?teamName=Beta&round=3"))
	readUntil(conn, t, "round")

	if err := conn.WriteJSON(map[string]any{"type": "answer", "payload": map[string]any{"questionId": 8, "answer": "starvation"}}); err != nil {
		t.Fatalf("write answer: %v", err)
	}
	// let the draft land before the countdown expires
	time.Sleep(50 * time.Millisecond)
	srv.clock.Advance(91 * time.Minute)

	submitted := readUntil(conn, t, "submitted")
	var outcome struct {
		Score int    `json:"score"`
		Mode  string `json:"mode"`
	}
	if err := json.Unmarshal(submitted.Payload, &outcome); err != nil {
		t.Fatalf("decode outcome: %v", err)
	}
	if outcome.Mode != "auto" || outcome.Score != 10 {
		t.Fatalf("unexpected auto outcome %+v", outcome)
	}

	// a second connection cannot restart once the budget is spent
	again := dial(t, srv.wsURL("/ws/round?teamName=Beta&round=4"))
	readNext(again, t, "error")
}

func TestRoundSocketRejectsCompletedRound(t *testing.T) {
	srv := newTestServer(t)
	conn := dial(t, srv.wsURL("/ws/round?teamName=Gamma&round=4"))
	readUntil(conn, t, "round")
	if err := conn.WriteJSON(map[string]any{"type": "submit", "payload": map[string]any{"answers": map[string]string{"9": "right angle triangle"}}}); err != nil {
		t.Fatalf("write submit: %v", err)
	}
	readUntil(conn, t, "submitted")

	// next round after 4 wraps to 1; reopening 4 is refused
	again := dial(t, srv.wsURL("/ws/round?teamName=Gamma&round=4"))
	msg := readNext(again, t, "error")
	var payload errorPayload
	_ = json.Unmarshal(msg.Payload, &payload)
	if payload.Message != "next round is 1" {
		t.Fatalf("unexpected error %q", payload.Message)
	}
}

func TestRoundSocketRequiresTeamAndRound(t *testing.T) {
	srv := newTestServer(t)
	_, resp, err := websocket.DefaultDialer.Dial(srv.wsURL("/ws/round?teamName=Alpha"), nil)
	if err == nil {
		t.Fatalf("expected handshake failure")
	}
	if resp == nil || resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %+v", resp)
	}
}

func TestAdminSocketStreamsLeaderboard(t *testing.T) {
	srv := newTestServer(t)
	conn := dial(t, srv.wsURL("/ws/admin"))
	readNext(conn, t, "leaderboard")

	postJSON(t, srv.URL+"/api/submit", map[string]any{
		"teamName":    "Delta",
		"roundNumber": 1,
		"answers":     map[string]string{"1": "High", "2": "platinum"},
		"timeTaken":   40,
	})

	msg := readNext(conn, t, "leaderboard")
	var lb struct {
		Entries []struct {
			TeamName   string `json:"teamName"`
			TotalScore int    `json:"totalScore"`
		} `json:"entries"`
	}
	if err := json.Unmarshal(msg.Payload, &lb); err != nil {
		t.Fatalf("decode leaderboard: %v", err)
	}
	if len(lb.Entries) != 1 || lb.Entries[0].TeamName != "Delta" || lb.Entries[0].TotalScore != 20 {
		t.Fatalf("unexpected leaderboard %+v", lb.Entries)
	}
}
