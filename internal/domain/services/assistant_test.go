package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"careguard/internal/infrastructure/storage"
)

type fakeGenerator struct {
	reply       string
	err         error
	calls       int
	lastHistory []string
	lastInput   string
}

func (f *fakeGenerator) Generate(ctx context.Context, history []string, input string) (string, error) {
	f.calls++
	f.lastHistory = history
	f.lastInput = input
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func newTestAssistant(t *testing.T, generator TextGenerator) (*Assistant, storage.LogStore) {
	t.Helper()
	store := newTestStore(t)
	log := testLogger()

	lexicons := NewLexiconStore(t.TempDir(), log)
	emotion := NewEmotionScorer(lexicons.Emotion(), log)
	phishing := NewPhishingScorer(lexicons.Phishing(), nil, 0.7, log)
	trends := NewTrendAggregator(store, log)
	alerts := NewAlertEngine(store, trends, nil, testAlertingConfig(), log)

	return NewAssistant(emotion, phishing, alerts, store, nil, generator, log), store
}

func TestProcessMessage_EmptyInput(t *testing.T) {
	assistant, _ := newTestAssistant(t, &fakeGenerator{reply: "네"})

	turn, err := assistant.ProcessMessage(context.Background(), "   ")
	if err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}
	if turn.Reply != replyEmptyMessage {
		t.Fatalf("Reply=%q, want the empty-message reply", turn.Reply)
	}
	if turn.Warning || turn.Emotion != nil || turn.Phishing != nil {
		t.Fatalf("empty input must not be analyzed: %+v", turn)
	}
	if assistant.HistoryLen() != 0 {
		t.Fatalf("HistoryLen=%d, want 0", assistant.HistoryLen())
	}
}

func TestProcessMessage_PhishingWarningShortCircuits(t *testing.T) {
	gen := &fakeGenerator{reply: "괜찮아요"}
	assistant, store := newTestAssistant(t, gen)
	ctx := context.Background()

	turn, err := assistant.ProcessMessage(ctx, "지금 당장 OTP 번호를 알려주세요. 계좌에 문제가 생겼습니다.")
	if err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}

	if !turn.Warning {
		t.Fatalf("Warning=false, want true")
	}
	if gen.calls != 0 {
		t.Fatalf("generator called %d times, want 0 on a warning turn", gen.calls)
	}
	if !strings.Contains(turn.Reply, "보이스피싱") {
		t.Fatalf("Reply=%q, want a phishing warning", turn.Reply)
	}
	if !strings.Contains(turn.Reply, phishingWarningAdvice) {
		t.Fatalf("Reply=%q, want the standard advice", turn.Reply)
	}
	if turn.Phishing == nil || !turn.Phishing.IsPhishing {
		t.Fatalf("Phishing=%+v, want a positive verdict", turn.Phishing)
	}

	// all three logs got a record
	now := turn.Phishing.Timestamp
	for _, category := range []storage.Category{
		storage.CategoryPhishing,
		storage.CategoryEmotions,
		storage.CategoryConversations,
	} {
		raw, err := store.ReadDay(ctx, category, now)
		if err != nil {
			t.Fatalf("ReadDay(%s): %v", category, err)
		}
		if len(raw) != 1 {
			t.Fatalf("got %d %s records, want 1", len(raw), category)
		}
	}
}

func TestProcessMessage_ComfortSuffixOnConfidentNegative(t *testing.T) {
	assistant, _ := newTestAssistant(t, &fakeGenerator{reply: "힘내세요"})

	turn, err := assistant.ProcessMessage(context.Background(), "너무 슬퍼요")
	if err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}

	if turn.Warning {
		t.Fatalf("Warning=true for a non-phishing message")
	}
	if !strings.HasPrefix(turn.Reply, "힘내세요") {
		t.Fatalf("Reply=%q, want the generated reply first", turn.Reply)
	}
	if !strings.HasSuffix(turn.Reply, comfortSuffix) {
		t.Fatalf("Reply=%q, want the comfort suffix appended", turn.Reply)
	}
}

func TestProcessMessage_NoSuffixOnNeutral(t *testing.T) {
	assistant, _ := newTestAssistant(t, &fakeGenerator{reply: "네, 알려드릴게요"})

	turn, err := assistant.ProcessMessage(context.Background(), "오늘 날씨 알려줘")
	if err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}
	if turn.Reply != "네, 알려드릴게요" {
		t.Fatalf("Reply=%q, want the generated reply unchanged", turn.Reply)
	}
}

func TestProcessMessage_GeneratorErrorKeepsTurnAlive(t *testing.T) {
	assistant, _ := newTestAssistant(t, &fakeGenerator{err: errors.New("model offline")})

	turn, err := assistant.ProcessMessage(context.Background(), "오늘 날씨 알려줘")
	if err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}
	if turn.Reply != replyProcessingError {
		t.Fatalf("Reply=%q, want the processing-error reply", turn.Reply)
	}
}

func TestProcessMessage_NilGeneratorCannedReply(t *testing.T) {
	assistant, _ := newTestAssistant(t, nil)

	turn, err := assistant.ProcessMessage(context.Background(), "오늘 날씨 알려줘")
	if err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}
	if turn.Reply != replyGenerationFailed {
		t.Fatalf("Reply=%q, want the generation-failed reply", turn.Reply)
	}
}

func TestProcessMessage_GeneratorSeesPriorTurns(t *testing.T) {
	gen := &fakeGenerator{reply: "반갑습니다"}
	assistant, _ := newTestAssistant(t, gen)
	ctx := context.Background()

	if _, err := assistant.ProcessMessage(ctx, "안녕하세요"); err != nil {
		t.Fatalf("first turn: %v", err)
	}
	if _, err := assistant.ProcessMessage(ctx, "오늘 날씨 알려줘"); err != nil {
		t.Fatalf("second turn: %v", err)
	}

	wantHistory := []string{"안녕하세요", "반갑습니다"}
	if len(gen.lastHistory) != 2 || gen.lastHistory[0] != wantHistory[0] || gen.lastHistory[1] != wantHistory[1] {
		t.Fatalf("history=%v, want %v", gen.lastHistory, wantHistory)
	}
	if gen.lastInput != "오늘 날씨 알려줘" {
		t.Fatalf("input=%q, want the second message", gen.lastInput)
	}
}

func TestProcessMessage_AlertSweepEveryFifthTurn(t *testing.T) {
	assistant, _ := newTestAssistant(t, &fakeGenerator{reply: "네"})
	ctx := context.Background()

	// history grows by two entries per turn; the sweep fires at ten
	for i := 0; i < 4; i++ {
		turn, err := assistant.ProcessMessage(ctx, "오늘 날씨 알려줘")
		if err != nil {
			t.Fatalf("turn %d: %v", i+1, err)
		}
		if turn.Alerts != nil {
			t.Fatalf("turn %d ran a sweep early: %v", i+1, turn.Alerts)
		}
	}

	turn, err := assistant.ProcessMessage(ctx, "오늘 날씨 알려줘")
	if err != nil {
		t.Fatalf("fifth turn: %v", err)
	}
	if turn.Alerts == nil {
		t.Fatalf("fifth turn did not run the alert sweep")
	}
	if len(turn.Alerts) != 0 {
		t.Fatalf("alerts=%v, want an empty sweep result", turn.Alerts)
	}
}

func TestReset_ClearsHistory(t *testing.T) {
	assistant, _ := newTestAssistant(t, &fakeGenerator{reply: "네"})

	if _, err := assistant.ProcessMessage(context.Background(), "안녕하세요"); err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}
	if assistant.HistoryLen() != 2 {
		t.Fatalf("HistoryLen=%d, want 2 after one turn", assistant.HistoryLen())
	}

	if got := assistant.Reset(); got != replyHistoryCleared {
		t.Fatalf("Reset()=%q, want the confirmation message", got)
	}
	if assistant.HistoryLen() != 0 {
		t.Fatalf("HistoryLen=%d after reset, want 0", assistant.HistoryLen())
	}
}
