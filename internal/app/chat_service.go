package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"portfolio-api/internal/ai"
	"portfolio-api/internal/metrics"
	"portfolio-api/internal/model"
	"portfolio-api/internal/repository"
)

const defaultListLimit = 50

var (
	ErrMessageEmpty            = errors.New("message is required")
	ErrCompletionNotConfigured = errors.New("completion service credential is not configured")
	ErrStorageNotConfigured    = errors.New("storage connection is not configured")
	ErrUpstreamUnauthorized    = errors.New("completion service rejected the credential")
	ErrUpstream                = errors.New("completion service failed")
	ErrMessagePersist          = errors.New("message could not be saved")
	ErrMessageEnqueue          = errors.New("message enqueue failed")
)

type Completer interface {
	Complete(ctx context.Context, cfg ai.ChatConfig, messages []ai.ChatMessage) (*ai.Completion, error)
}

// Persister stores one finished exchange, directly or through the queue.
type Persister interface {
	Persist(ctx context.Context, msg *model.ChatMessage) error
}

// ListCache caches the recent listing. GetRecent reports the generation it
// looked at, and SetRecent must drop the write if Invalidate ran since.
type ListCache interface {
	GetRecent(ctx context.Context) (messages []model.ChatMessage, generation int64, hit bool, err error)
	SetRecent(ctx context.Context, generation int64, messages []model.ChatMessage) error
	Invalidate(ctx context.Context) error
}

type ChatServiceConfig struct {
	LLM       ai.ChatConfig
	Prompt    Prompt
	Timeout   time.Duration
	ListLimit int
}

type ChatService struct {
	messageRepo repository.MessageRepository
	persister   Persister
	listCache   ListCache
	llmClient   Completer
	cfg         ChatServiceConfig
	now         func() time.Time
	logger      *zap.Logger
}

type SendMessageInput struct {
	Username string
	Message  string
}

type SendMessageResult struct {
	BotReply           string   `json:"bot_reply"`
	RecommendQuestions []string `json:"recommend_questions"`
	Fallback           bool     `json:"-"`
}

// NewChatService wires the chat flow. messageRepo and persister may be nil
// when no store is configured; listCache may be nil to disable caching.
func NewChatService(
	messageRepo repository.MessageRepository,
	persister Persister,
	listCache ListCache,
	llmClient Completer,
	cfg ChatServiceConfig,
	logger *zap.Logger,
) *ChatService {
	if cfg.ListLimit <= 0 || cfg.ListLimit > defaultListLimit {
		cfg.ListLimit = defaultListLimit
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatService{
		messageRepo: messageRepo,
		persister:   persister,
		listCache:   listCache,
		llmClient:   llmClient,
		cfg:         cfg,
		now:         time.Now,
		logger:      logger.Named("chat"),
	}
}

func (s *ChatService) SendMessage(ctx context.Context, input SendMessageInput) (*SendMessageResult, error) {
	if strings.TrimSpace(input.Message) == "" {
		return nil, ErrMessageEmpty
	}
	if strings.TrimSpace(s.cfg.LLM.APIKey) == "" {
		return nil, ErrCompletionNotConfigured
	}
	if s.persister == nil {
		return nil, ErrStorageNotConfigured
	}

	username := input.Username
	if username == "" {
		username = model.AnonymousSender
	}

	raw, err := s.complete(ctx, input.Message)
	if err != nil {
		return nil, err
	}

	result := &SendMessageResult{}
	switch reply := ParseReply(raw).(type) {
	case StructuredReply:
		result.BotReply = reply.Message
		result.RecommendQuestions = reply.RecommendQuestions
		metrics.ChatReplies.WithLabelValues("structured").Inc()
	case FallbackReply:
		result.BotReply = reply.Raw
		result.RecommendQuestions = []string{}
		result.Fallback = true
		metrics.ChatReplies.WithLabelValues("fallback").Inc()
		s.logger.Warn("model reply was not valid json, using raw text")
	}

	record := &model.ChatMessage{
		Username:           username,
		UserMessage:        input.Message,
		BotReply:           result.BotReply,
		RecommendQuestions: result.RecommendQuestions,
		Timestamp:          model.UnixSeconds(s.now()),
	}
	if err := s.persister.Persist(ctx, record); err != nil {
		s.logger.Error("persist exchange failed", zap.Error(err))
		if errors.Is(err, repository.ErrStorageUnavailable) ||
			errors.Is(err, ErrMessageEnqueue) ||
			errors.Is(err, ErrMessagePersist) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrMessagePersist, err)
	}
	s.invalidateList(ctx)

	return result, nil
}

func (s *ChatService) complete(ctx context.Context, question string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	start := time.Now()
	completion, err := s.llmClient.Complete(callCtx, s.cfg.LLM, s.cfg.Prompt.Messages(question))
	metrics.CompletionDuration.Observe(time.Since(start).Seconds())
	if err == nil {
		metrics.CompletionCalls.WithLabelValues("ok").Inc()
		s.logger.Debug("completion finished",
			zap.String("finish_reason", completion.FinishReason),
			zap.Int("total_tokens", completion.Usage.TotalTokens),
		)
		return completion.Content, nil
	}

	s.logger.Error("completion call failed",
		zap.String("model", s.cfg.LLM.Model),
		zap.String("api_key", maskSecret(s.cfg.LLM.APIKey)),
		zap.Error(err),
	)
	var statusErr *ai.StatusError
	if errors.As(err, &statusErr) && statusErr.IsAuthFailure() {
		metrics.CompletionCalls.WithLabelValues("unauthorized").Inc()
		return "", fmt.Errorf("%w: %v", ErrUpstreamUnauthorized, err)
	}
	metrics.CompletionCalls.WithLabelValues("error").Inc()
	return "", fmt.Errorf("%w: %v", ErrUpstream, err)
}

// ListMessages returns the most recent exchanges, newest first.
func (s *ChatService) ListMessages(ctx context.Context) ([]model.ChatMessage, error) {
	if s.messageRepo == nil {
		return nil, ErrStorageNotConfigured
	}

	cacheable := false
	var generation int64
	if s.listCache != nil {
		cached, gen, hit, err := s.listCache.GetRecent(ctx)
		switch {
		case err != nil:
			s.logger.Warn("read message cache failed", zap.Error(err))
		case hit:
			return cached, nil
		default:
			cacheable, generation = true, gen
		}
	}

	messages, err := s.messageRepo.ListRecent(ctx, s.cfg.ListLimit)
	if err != nil {
		return nil, err
	}
	if cacheable {
		if err := s.listCache.SetRecent(ctx, generation, messages); err != nil {
			s.logger.Warn("write message cache failed", zap.Error(err))
		}
	}
	return messages, nil
}

func (s *ChatService) invalidateList(ctx context.Context) {
	if s.listCache == nil {
		return
	}
	if err := s.listCache.Invalidate(ctx); err != nil {
		s.logger.Warn("invalidate message cache failed", zap.Error(err))
	}
}

type repositoryPersister struct {
	repo repository.MessageRepository
}

// RepositoryPersister stores exchanges synchronously through repo.
func RepositoryPersister(repo repository.MessageRepository) Persister {
	if repo == nil {
		return nil
	}
	return repositoryPersister{repo: repo}
}

func (p repositoryPersister) Persist(ctx context.Context, msg *model.ChatMessage) error {
	if err := p.repo.Create(ctx, msg); err != nil {
		if errors.Is(err, repository.ErrStorageUnavailable) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrMessagePersist, err)
	}
	return nil
}

type queuePersister struct {
	next Persister
}

// QueuePersister hands exchanges to a broker-backed persister; its failures
// are reported as ErrMessageEnqueue.
func QueuePersister(next Persister) Persister {
	if next == nil {
		return nil
	}
	return queuePersister{next: next}
}

func (p queuePersister) Persist(ctx context.Context, msg *model.ChatMessage) error {
	if err := p.next.Persist(ctx, msg); err != nil {
		return fmt.Errorf("%w: %v", ErrMessageEnqueue, err)
	}
	return nil
}

func maskSecret(secret string) string {
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:4] + strings.Repeat("*", len(secret)-8) + secret[len(secret)-4:]
}
