package interview

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/velora-ai/velora/internal/evaluation"
)

// maxToolRounds bounds the invoke → execute tools → invoke loop inside one
// Submit. The model normally needs a single round; the bound guarantees a
// Submit call terminates even against a model that keeps requesting tools.
const maxToolRounds = 3

// Gateway is the model round trip the interviewer depends on. It receives
// the full turn log plus the bound tool descriptors and returns the next
// assistant turn, which may carry tool-invocation requests. Stateless per
// call; any provider-specific message shaping belongs to the implementation.
type Gateway interface {
	Invoke(ctx context.Context, turns []Turn, tools []ToolDefinition) (Turn, error)
}

// Scorer is the stateless evaluation call used at finalization.
type Scorer interface {
	Evaluate(ctx context.Context, offerText, resumeText string) (*evaluation.Result, error)
}

// Store persists sessions between calls, keyed by the opaque session id.
// Implementations return ErrSessionNotFound for unknown ids and must give
// each session its own isolated copy: two sessions never share mutable
// state, and a Get followed by a failed operation must not leak partial
// mutations back into the store.
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Put(ctx context.Context, id string, s *Session) error
}

// Config tunes interviewer behavior.
type Config struct {
	// SerializeSessions queues concurrent operations on the same session id
	// behind a per-key mutex instead of letting them race. Concurrent calls
	// on one session are not a supported pattern either way; this only turns
	// state corruption into queueing when a caller slips.
	SerializeSessions bool
}

// Deps aggregates the interviewer's collaborators.
type Deps struct {
	Gateway Gateway
	Scorer  Scorer
	Store   Store
	Logger  *zap.Logger
}

// Interviewer drives interview sessions: it owns the decision logic of when
// the conversation must terminate and reconciles tool-call side effects into
// the requirement tracker. One instance serves many independent sessions.
type Interviewer struct {
	gateway   Gateway
	scorer    Scorer
	store     Store
	logger    *zap.Logger
	serialize bool

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

func New(cfg *Config, deps *Deps) (*Interviewer, error) {
	if deps == nil || deps.Gateway == nil {
		return nil, errors.New("gateway is required")
	}
	if deps.Store == nil {
		return nil, errors.New("session store is required")
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	serialize := true
	if cfg != nil {
		serialize = cfg.SerializeSessions
	}

	return &Interviewer{
		gateway:   deps.Gateway,
		scorer:    deps.Scorer,
		store:     deps.Store,
		logger:    logger,
		serialize: serialize,
		locks:     make(map[string]*sync.Mutex),
	}, nil
}

// Start creates a session for the given gap list and returns the greeting
// text. The session id must be unique; reuse fails with ErrDuplicateSession.
func (iv *Interviewer) Start(ctx context.Context, sessionID string, requirements []string) (string, error) {
	if len(requirements) == 0 {
		return "", errors.New("at least one requirement is required to start an interview")
	}
	if strings.TrimSpace(sessionID) == "" {
		return "", errors.New("session id is required")
	}

	unlock := iv.lock(sessionID)
	defer unlock()

	switch _, err := iv.store.Get(ctx, sessionID); {
	case err == nil:
		return "", ErrDuplicateSession
	case !errors.Is(err, ErrSessionNotFound):
		return "", fmt.Errorf("session store: %w", err)
	}

	sess := newSession(sessionID, requirements)

	iv.logger.Info("starting interview session",
		zap.String("session_id", sessionID),
		zap.Strings("requirements", sess.Tracker.Labels()),
	)

	reply, err := iv.advance(ctx, sess)
	if err != nil {
		return "", err
	}

	if err := iv.store.Put(ctx, sessionID, sess); err != nil {
		return "", fmt.Errorf("session store: %w", err)
	}

	return reply.Text, nil
}

// Submit appends the candidate's answer, lets the model react (executing any
// requested tool calls against the tracker) and returns the next assistant
// text. Once the returned text carries the end token the session moves to
// the terminating state and the caller should stop prompting and Finalize.
func (iv *Interviewer) Submit(ctx context.Context, sessionID, candidateText string) (string, error) {
	unlock := iv.lock(sessionID)
	defer unlock()

	sess, err := iv.store.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return "", ErrSessionNotFound
		}
		return "", fmt.Errorf("session store: %w", err)
	}
	if sess.State == StateClosed {
		return "", ErrSessionClosed
	}

	work := sess.Clone()
	work.append(Turn{Role: RoleCandidate, Text: candidateText})

	// The model may keep chatting even with nothing left to validate, so the
	// guard is re-issued on every turn while the tracker is empty.
	if work.Tracker.IsEmpty() {
		work.append(Turn{Role: RoleSystem, Text: terminationGuard})
	}

	reply, err := iv.advance(ctx, work)
	if err != nil {
		return "", err
	}

	if strings.Contains(reply.Text, EndToken) && work.State == StateActive {
		work.State = StateTerminating
		iv.logger.Info("interview terminating",
			zap.String("session_id", sessionID),
			zap.Int("turns", len(work.Turns)),
		)
	}

	if err := iv.store.Put(ctx, sessionID, work); err != nil {
		return "", fmt.Errorf("session store: %w", err)
	}

	return reply.Text, nil
}

// Finalize rebuilds the transcript, augments the original résumé with it and
// delegates to the scorer. On success the session is closed; on a scorer
// failure the session keeps its prior state so Finalize can be retried.
func (iv *Interviewer) Finalize(ctx context.Context, sessionID, offerText, resumeText string) (*evaluation.Result, error) {
	if iv.scorer == nil {
		return nil, errors.New("scorer is not configured")
	}

	unlock := iv.lock(sessionID)
	defer unlock()

	sess, err := iv.store.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("session store: %w", err)
	}

	result, err := iv.scorer.Evaluate(ctx, offerText, sess.AugmentedResume(resumeText))
	if err != nil {
		return nil, &ScorerError{Err: err}
	}

	if sess.State != StateClosed {
		work := sess.Clone()
		work.State = StateClosed
		if err := iv.store.Put(ctx, sessionID, work); err != nil {
			return nil, fmt.Errorf("session store: %w", err)
		}
	}

	iv.logger.Info("interview finalized",
		zap.String("session_id", sessionID),
		zap.Int("score", result.Score),
		zap.Bool("discarded", result.Discarded),
	)

	return result, nil
}

// Transcript returns the rendered dialogue of an existing session.
func (iv *Interviewer) Transcript(ctx context.Context, sessionID string) (string, error) {
	sess, err := iv.store.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return "", ErrSessionNotFound
		}
		return "", fmt.Errorf("session store: %w", err)
	}
	return sess.Transcript(), nil
}

// advance runs one model round trip over the session's log, reconciling any
// requested tool calls into the tracker and asking the model for a
// natural-language follow-up after each batch of observations. The returned
// turn is the one to render; raw tool acknowledgments stay internal.
func (iv *Interviewer) advance(ctx context.Context, sess *Session) (Turn, error) {
	reply, err := iv.invoke(ctx, sess)
	if err != nil {
		return Turn{}, err
	}
	sess.append(reply)

	for round := 0; len(reply.ToolCalls) > 0; round++ {
		if round >= maxToolRounds {
			return Turn{}, &GatewayError{Err: fmt.Errorf("model kept requesting tools after %d rounds", maxToolRounds)}
		}

		for _, call := range reply.ToolCalls {
			observation, err := executeToolCall(sess.Tracker, call)
			if err != nil {
				return Turn{}, err
			}

			iv.logger.Debug("tool call executed",
				zap.String("session_id", sess.ID),
				zap.String("tool", call.Name),
				zap.Strings("outstanding", sess.Tracker.Labels()),
			)

			sess.append(observation)
		}

		reply, err = iv.invoke(ctx, sess)
		if err != nil {
			return Turn{}, err
		}
		sess.append(reply)
	}

	return reply, nil
}

func (iv *Interviewer) invoke(ctx context.Context, sess *Session) (Turn, error) {
	reply, err := iv.gateway.Invoke(ctx, sess.Turns, Tools())
	if err != nil {
		return Turn{}, &GatewayError{Err: err}
	}
	reply.Role = RoleAssistant
	return reply, nil
}

// lock serializes operations per session id when configured; otherwise it
// is a no-op and callers carry the single-writer responsibility themselves.
func (iv *Interviewer) lock(sessionID string) func() {
	if !iv.serialize {
		return func() {}
	}

	iv.locksMu.Lock()
	mu, ok := iv.locks[sessionID]
	if !ok {
		mu = &sync.Mutex{}
		iv.locks[sessionID] = mu
	}
	iv.locksMu.Unlock()

	mu.Lock()
	return mu.Unlock
}
