// Package chat keeps a conversation's history and merges retrieved knowledge
// into outgoing user turns before calling the completion service.
package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"ragchat/internal/completion"
	"ragchat/internal/domain"
)

const (
	// SourceInstruction is appended to the system message so replies cite their sources.
	SourceInstruction = "Please include the source of any information retrieved from documents in your response."
	knowledgeHeader   = "Relevant Knowledge:"
	DefaultModel      = "llama3-70b-8192"
	DefaultMaxTokens  = 1000
	DefaultTopK       = 3
)

// KnowledgeSource retrieves reference passages for a query.
type KnowledgeSource interface {
	Retrieve(ctx context.Context, query string, topK int) ([]domain.RetrievalResult, error)
}

// TranscriptSink archives the committed history after every turn.
type TranscriptSink interface {
	Save(ctx context.Context, sessionID string, history []domain.Message) error
}

// GenerationConfig holds per-call sampling parameters. A zero MaxTokens or
// nil Stop falls back to the session defaults.
type GenerationConfig struct {
	Temperature float64
	MaxTokens   int
	Stop        []string
}

// Options configures a Session. Only Completer is required.
type Options struct {
	Completer     completion.Completer
	Model         string
	SystemMessage string
	// Retriever is optional; without it turns are sent unaugmented.
	Retriever  KnowledgeSource
	TopK       int
	Generation GenerationConfig
	Transcript TranscriptSink
	Logger     *zap.Logger
	// SessionID and History resume an archived conversation. A non-empty
	// History replaces the SystemMessage seed.
	SessionID string
	History   []domain.Message
}

// Session is one conversation. Send and Stream are serialized by a mutex, so a
// session may be shared, but turns never interleave.
type Session struct {
	mu sync.Mutex

	id         string
	completer  completion.Completer
	model      string
	retriever  KnowledgeSource
	topK       int
	generation GenerationConfig
	transcript TranscriptSink
	logger     *zap.Logger

	history   []domain.Message
	retrieved []domain.RetrievalResult
}

// NewSession starts a conversation, seeded with the system message if one is set.
func NewSession(opts Options) (*Session, error) {
	if opts.Completer == nil {
		return nil, fmt.Errorf("completer is required: %w", domain.ErrInvalidArgument)
	}
	if opts.TopK < 0 {
		return nil, fmt.Errorf("top_k %d: %w", opts.TopK, domain.ErrInvalidArgument)
	}
	if opts.TopK == 0 {
		opts.TopK = DefaultTopK
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.Generation.MaxTokens == 0 {
		opts.Generation.MaxTokens = DefaultMaxTokens
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.SessionID == "" {
		opts.SessionID = ulid.Make().String()
	}
	s := &Session{
		id:         opts.SessionID,
		completer:  opts.Completer,
		model:      opts.Model,
		retriever:  opts.Retriever,
		topK:       opts.TopK,
		generation: opts.Generation,
		transcript: opts.Transcript,
		logger:     opts.Logger,
	}
	if len(opts.History) > 0 {
		s.history = append([]domain.Message(nil), opts.History...)
	} else if opts.SystemMessage != "" {
		s.history = append(s.history, domain.Message{Role: domain.RoleSystem, Content: opts.SystemMessage})
	}
	return s, nil
}

// ID identifies the session in transcripts.
func (s *Session) ID() string { return s.id }

// Model returns the model id sent with every request.
func (s *Session) Model() string { return s.model }

// Generation returns the session's default sampling parameters.
func (s *Session) Generation() GenerationConfig { return s.generation }

// Draft builds a message without touching the history.
func (s *Session) Draft(text string, role domain.Role) domain.Message {
	if role == "" {
		role = domain.RoleUser
	}
	return domain.Message{Role: role, Content: text}
}

// History returns a copy of the committed conversation.
func (s *Session) History() []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Message(nil), s.history...)
}

// Retrieved returns the knowledge used by the last committed turn.
func (s *Session) Retrieved() []domain.RetrievalResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.RetrievalResult(nil), s.retrieved...)
}

// Send augments msg with retrieved knowledge, calls the completion service with
// the full history and appends both the augmented turn and the reply.
// If the call fails the history is left exactly as it was.
func (s *Session) Send(ctx context.Context, msg domain.Message, gen GenerationConfig) (*completion.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	outgoing, results, err := s.prepare(ctx, msg)
	if err != nil {
		return nil, err
	}
	resp, err := s.completer.Complete(ctx, s.request(outgoing, gen))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrExternalService, err)
	}
	role := resp.Role
	if role == "" {
		role = domain.RoleAssistant
	}
	s.retrieved = results
	s.commit(ctx, append(outgoing, domain.Message{Role: role, Content: resp.Content}))
	s.logger.Debug("turn completed",
		zap.String("session", s.id),
		zap.String("finish_reason", resp.FinishReason),
		zap.Int("total_tokens", resp.TotalTokens),
	)
	return resp, nil
}

// Stream prepares the turn like Send but returns the raw stream. The augmented
// user turn is committed once the stream opens; the reply is not. Callers
// assemble it (see completion.Collect) and add it with Record.
func (s *Session) Stream(ctx context.Context, msg domain.Message, gen GenerationConfig) (completion.Stream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	outgoing, results, err := s.prepare(ctx, msg)
	if err != nil {
		return nil, err
	}
	stream, err := s.completer.Stream(ctx, s.request(outgoing, gen))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrExternalService, err)
	}
	s.retrieved = results
	s.commit(ctx, outgoing)
	return stream, nil
}

// Record appends msg to the history as is, typically the assembled reply of a stream.
func (s *Session) Record(ctx context.Context, msg domain.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commit(ctx, append(append([]domain.Message(nil), s.history...), msg))
}

// prepare builds the history that would result from sending msg, without
// modifying the committed one.
func (s *Session) prepare(ctx context.Context, msg domain.Message) ([]domain.Message, []domain.RetrievalResult, error) {
	if msg.Role == "" {
		msg.Role = domain.RoleUser
	}
	outgoing := make([]domain.Message, len(s.history), len(s.history)+2)
	copy(outgoing, s.history)

	var results []domain.RetrievalResult
	if s.retriever != nil {
		var err error
		results, err = s.retriever.Retrieve(ctx, msg.Content, s.topK)
		if err != nil {
			return nil, nil, fmt.Errorf("retrieve knowledge: %w", err)
		}
		msg.Content = Augment(msg.Content, results)
	}
	outgoing = append(outgoing, msg)

	if len(outgoing) > 0 && outgoing[0].Role == domain.RoleSystem {
		outgoing[0].Content = withInstruction(outgoing[0].Content)
	}
	return outgoing, results, nil
}

func (s *Session) request(messages []domain.Message, gen GenerationConfig) completion.Request {
	if gen.MaxTokens == 0 {
		gen.MaxTokens = s.generation.MaxTokens
	}
	if gen.Stop == nil {
		gen.Stop = s.generation.Stop
	}
	return completion.Request{
		Model:       s.model,
		Messages:    messages,
		Temperature: gen.Temperature,
		MaxTokens:   gen.MaxTokens,
		Stop:        gen.Stop,
	}
}

func (s *Session) commit(ctx context.Context, history []domain.Message) {
	s.history = history
	if s.transcript == nil {
		return
	}
	if err := s.transcript.Save(ctx, s.id, s.history); err != nil {
		s.logger.Warn("saving transcript failed", zap.String("session", s.id), zap.Error(err))
	}
}

// Augment appends the retrieved passages to text under a knowledge header,
// each rendered as "[Source: <path>]\n<content>" and separated by blank lines.
// With no results text is returned unchanged.
func Augment(text string, results []domain.RetrievalResult) string {
	if len(results) == 0 {
		return text
	}
	blocks := make([]string, len(results))
	for i, r := range results {
		blocks[i] = fmt.Sprintf("[Source: %s]\n%s", r.Source, r.Content)
	}
	return text + "\n\n" + knowledgeHeader + "\n" + strings.Join(blocks, "\n\n")
}

// withInstruction appends SourceInstruction once; repeated turns leave it alone.
func withInstruction(system string) string {
	if strings.HasSuffix(system, SourceInstruction) {
		return system
	}
	return system + "\n\n" + SourceInstruction
}
