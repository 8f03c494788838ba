package interview_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/velora-ai/velora/internal/evaluation"
	"github.com/velora-ai/velora/internal/interview"
	"github.com/velora-ai/velora/internal/session"
)

type gatewayCall struct {
	turns []interview.Turn
	tools []interview.ToolDefinition
}

type scriptedReply struct {
	turn interview.Turn
	err  error
}

// scriptedGateway pops one scripted reply per invocation and records what
// the interviewer sent, so tests can assert on the exact turn log.
type scriptedGateway struct {
	replies []scriptedReply
	calls   []gatewayCall
}

func (g *scriptedGateway) Invoke(_ context.Context, turns []interview.Turn, tools []interview.ToolDefinition) (interview.Turn, error) {
	copied := make([]interview.Turn, len(turns))
	copy(copied, turns)
	g.calls = append(g.calls, gatewayCall{turns: copied, tools: tools})

	if len(g.replies) == 0 {
		return interview.Turn{}, errors.New("unexpected gateway call")
	}
	next := g.replies[0]
	g.replies = g.replies[1:]
	return next.turn, next.err
}

func reply(text string) scriptedReply {
	return scriptedReply{turn: interview.Turn{Text: text}}
}

func toolReply(id, skill, conclusion string) scriptedReply {
	return scriptedReply{turn: interview.Turn{
		ToolCalls: []interview.ToolCall{{
			ID:   id,
			Name: interview.RecordValidationTool,
			Args: map[string]any{"skill": skill, "conclusion": conclusion},
		}},
	}}
}

type fakeScorer struct {
	result     *evaluation.Result
	err        error
	calls      int
	lastOffer  string
	lastResume string
}

func (s *fakeScorer) Evaluate(_ context.Context, offerText, resumeText string) (*evaluation.Result, error) {
	s.calls++
	s.lastOffer = offerText
	s.lastResume = resumeText
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func newInterviewer(t *testing.T, gateway interview.Gateway, scorer interview.Scorer, store interview.Store) *interview.Interviewer {
	t.Helper()

	iv, err := interview.New(&interview.Config{SerializeSessions: true}, &interview.Deps{
		Gateway: gateway,
		Scorer:  scorer,
		Store:   store,
		Logger:  zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("building interviewer: %v", err)
	}
	return iv
}

func TestStartReturnsGreeting(t *testing.T) {
	t.Parallel()

	gateway := &scriptedGateway{replies: []scriptedReply{reply("¡Hola! ¿Cuál es tu nombre?")}}
	iv := newInterviewer(t, gateway, nil, session.NewMemoryStore())

	greeting, err := iv.Start(context.Background(), "s1", []string{"Docker", "Kubernetes"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if greeting != "¡Hola! ¿Cuál es tu nombre?" {
		t.Fatalf("unexpected greeting: %q", greeting)
	}

	if len(gateway.calls) != 1 {
		t.Fatalf("expected 1 gateway call, got %d", len(gateway.calls))
	}

	sent := gateway.calls[0]
	if len(sent.turns) != 2 || sent.turns[0].Role != interview.RoleSystem {
		t.Fatalf("expected system prompt plus trigger, got %+v", sent.turns)
	}
	if !sent.turns[1].Hidden || sent.turns[1].Role != interview.RoleCandidate {
		t.Fatalf("expected hidden candidate trigger, got %+v", sent.turns[1])
	}
	if len(sent.tools) != 1 || sent.tools[0].Name != interview.RecordValidationTool {
		t.Fatalf("expected the validation tool to be bound, got %+v", sent.tools)
	}
}

func TestStartRejectsEmptyRequirements(t *testing.T) {
	t.Parallel()

	iv := newInterviewer(t, &scriptedGateway{}, nil, session.NewMemoryStore())

	if _, err := iv.Start(context.Background(), "s1", nil); err == nil {
		t.Fatal("expected error for empty requirement list")
	}
}

func TestStartDuplicateSession(t *testing.T) {
	t.Parallel()

	gateway := &scriptedGateway{replies: []scriptedReply{reply("hola")}}
	iv := newInterviewer(t, gateway, nil, session.NewMemoryStore())

	if _, err := iv.Start(context.Background(), "s1", []string{"Docker"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := iv.Start(context.Background(), "s1", []string{"Docker"})
	if !errors.Is(err, interview.ErrDuplicateSession) {
		t.Fatalf("expected ErrDuplicateSession, got %v", err)
	}
}

func TestSubmitUnknownSession(t *testing.T) {
	t.Parallel()

	iv := newInterviewer(t, &scriptedGateway{}, nil, session.NewMemoryStore())

	_, err := iv.Submit(context.Background(), "missing", "hola")
	if !errors.Is(err, interview.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSubmitExecutesToolCalls(t *testing.T) {
	t.Parallel()

	store := session.NewMemoryStore()
	gateway := &scriptedGateway{replies: []scriptedReply{
		reply("Hola, cuéntame sobre Kubernetes."),
		toolReply("call-1", "Kubernetes", "dos años administrando clusters"),
		reply("Perfecto. ¿Y qué experiencia tienes con Docker?"),
	}}
	iv := newInterviewer(t, gateway, nil, store)

	ctx := context.Background()
	if _, err := iv.Start(ctx, "s1", []string{"Kubernetes", "Docker"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	next, err := iv.Submit(ctx, "s1", "Llevo dos años con Kubernetes en producción.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next != "Perfecto. ¿Y qué experiencia tienes con Docker?" {
		t.Fatalf("unexpected reply: %q", next)
	}

	sess, err := store.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := sess.Tracker.Labels(); len(got) != 1 || got[0] != "Docker" {
		t.Fatalf("expected only Docker left, got %v", got)
	}

	// The follow-up invocation must have seen the tool observation.
	last := gateway.calls[len(gateway.calls)-1]
	var sawObservation bool
	for _, turn := range last.turns {
		if turn.Role == interview.RoleTool && turn.ToolCallID == "call-1" {
			sawObservation = true
		}
	}
	if !sawObservation {
		t.Fatalf("expected a tool observation in the follow-up call, got %+v", last.turns)
	}
}

func TestSubmitForcesTerminationWhenNothingRemains(t *testing.T) {
	t.Parallel()

	store := session.NewMemoryStore()
	gateway := &scriptedGateway{replies: []scriptedReply{
		reply("Hola, háblame de Docker."),
		toolReply("call-1", "Docker", "lo usa a diario"),
		reply("Anotado. ¿Algo más que añadir?"),
		reply("Gracias por tu tiempo, ¡mucha suerte! " + interview.EndToken),
	}}
	iv := newInterviewer(t, gateway, nil, store)

	ctx := context.Background()
	if _, err := iv.Start(ctx, "s1", []string{"Docker"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := iv.Submit(ctx, "s1", "Uso Docker a diario."); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	farewell, err := iv.Submit(ctx, "s1", "Nada más.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(farewell, interview.EndToken) {
		t.Fatalf("expected the end token in the farewell, got %q", farewell)
	}

	// The empty tracker must have injected a closing instruction before the
	// last model call.
	last := gateway.calls[len(gateway.calls)-1]
	var systemTurns int
	for _, turn := range last.turns {
		if turn.Role == interview.RoleSystem {
			systemTurns++
		}
	}
	if systemTurns < 2 {
		t.Fatalf("expected a termination guard turn, saw %d system turns", systemTurns)
	}

	sess, err := store.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess.State != interview.StateTerminating {
		t.Fatalf("expected terminating state, got %q", sess.State)
	}
}

func TestSubmitGatewayFailureLeavesSessionUntouched(t *testing.T) {
	t.Parallel()

	store := session.NewMemoryStore()
	gateway := &scriptedGateway{replies: []scriptedReply{
		reply("hola"),
		{err: errors.New("boom")},
	}}
	iv := newInterviewer(t, gateway, nil, store)

	ctx := context.Background()
	if _, err := iv.Start(ctx, "s1", []string{"Docker"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	before, err := store.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = iv.Submit(ctx, "s1", "respuesta")
	var gwErr *interview.GatewayError
	if !errors.As(err, &gwErr) {
		t.Fatalf("expected a GatewayError, got %v", err)
	}

	after, err := store.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(after.Turns) != len(before.Turns) {
		t.Fatalf("failed submit must not persist turns: %d vs %d", len(after.Turns), len(before.Turns))
	}
}

func TestFinalizeScoresAugmentedResume(t *testing.T) {
	t.Parallel()

	store := session.NewMemoryStore()
	gateway := &scriptedGateway{replies: []scriptedReply{
		reply("Hola, ¿usas Docker?"),
		reply("Entendido, gracias. " + interview.EndToken),
	}}
	scorer := &fakeScorer{result: &evaluation.Result{Score: 70, MatchingRequirements: []string{"Docker"}}}
	iv := newInterviewer(t, gateway, scorer, store)

	ctx := context.Background()
	if _, err := iv.Start(ctx, "s1", []string{"Docker"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := iv.Submit(ctx, "s1", "Sí, tres años."); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := iv.Finalize(ctx, "s1", "texto de la oferta", "cv original")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Score != 70 {
		t.Fatalf("unexpected score: %d", result.Score)
	}

	if scorer.lastOffer != "texto de la oferta" {
		t.Fatalf("unexpected offer passed to the scorer: %q", scorer.lastOffer)
	}
	if !strings.HasPrefix(scorer.lastResume, "cv original") {
		t.Fatalf("augmented resume must start with the original cv: %q", scorer.lastResume)
	}
	if !strings.Contains(scorer.lastResume, "=== TRANSCRIPCIÓN ENTREVISTA ===") {
		t.Fatalf("expected the transcript delimiter, got %q", scorer.lastResume)
	}
	if !strings.Contains(scorer.lastResume, "Candidato: Sí, tres años.") {
		t.Fatalf("expected the candidate line, got %q", scorer.lastResume)
	}
	if strings.Contains(scorer.lastResume, interview.EndToken) {
		t.Fatalf("end token must be stripped from the transcript: %q", scorer.lastResume)
	}

	sess, err := store.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess.State != interview.StateClosed {
		t.Fatalf("expected closed state, got %q", sess.State)
	}

	// Finalize is idempotent: re-scoring a closed session works.
	again, err := iv.Finalize(ctx, "s1", "texto de la oferta", "cv original")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again.Score != 70 || scorer.calls != 2 {
		t.Fatalf("expected a second scorer call with the same outcome, got score %d after %d calls", again.Score, scorer.calls)
	}
}

func TestFinalizeScorerFailureKeepsSessionOpen(t *testing.T) {
	t.Parallel()

	store := session.NewMemoryStore()
	gateway := &scriptedGateway{replies: []scriptedReply{
		reply("hola"),
		reply("siguiente pregunta"),
	}}
	scorer := &fakeScorer{err: errors.New("model unavailable")}
	iv := newInterviewer(t, gateway, scorer, store)

	ctx := context.Background()
	if _, err := iv.Start(ctx, "s1", []string{"Docker"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := iv.Finalize(ctx, "s1", "oferta", "cv")
	var scErr *interview.ScorerError
	if !errors.As(err, &scErr) {
		t.Fatalf("expected a ScorerError, got %v", err)
	}

	// The session stays open, so the interview can continue or Finalize can
	// be retried.
	if _, err := iv.Submit(ctx, "s1", "sigo aquí"); err != nil {
		t.Fatalf("expected submit to still work, got %v", err)
	}
}

func TestSubmitAfterFinalize(t *testing.T) {
	t.Parallel()

	store := session.NewMemoryStore()
	gateway := &scriptedGateway{replies: []scriptedReply{reply("hola")}}
	scorer := &fakeScorer{result: &evaluation.Result{Score: 50}}
	iv := newInterviewer(t, gateway, scorer, store)

	ctx := context.Background()
	if _, err := iv.Start(ctx, "s1", []string{"Docker"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := iv.Finalize(ctx, "s1", "oferta", "cv"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := iv.Submit(ctx, "s1", "otra respuesta")
	if !errors.Is(err, interview.ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed, got %v", err)
	}
}

func TestTranscript(t *testing.T) {
	t.Parallel()

	store := session.NewMemoryStore()
	gateway := &scriptedGateway{replies: []scriptedReply{reply("Hola, ¿usas Docker?")}}
	iv := newInterviewer(t, gateway, nil, store)

	ctx := context.Background()
	if _, err := iv.Start(ctx, "s1", []string{"Docker"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	transcript, err := iv.Transcript(ctx, "s1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if transcript != "Recruiter: Hola, ¿usas Docker?\n" {
		t.Fatalf("unexpected transcript: %q", transcript)
	}

	if _, err := iv.Transcript(ctx, "missing"); !errors.Is(err, interview.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}
