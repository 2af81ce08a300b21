package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"portfolio-api/internal/model"
	"portfolio-api/internal/repository"
)

var ErrInvalidPayload = errors.New("invalid chat message payload")

type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// MessagePersistWorker drains the persist queue into the message store.
type MessagePersistWorker struct {
	conn      *amqp.Connection
	repo      repository.MessageRepository
	cache     Invalidator
	queueName string
	logger    *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewMessagePersistWorker(
	conn *amqp.Connection,
	repo repository.MessageRepository,
	cache Invalidator,
	queueName string,
	logger *zap.Logger,
) *MessagePersistWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MessagePersistWorker{
		conn:      conn,
		repo:      repo,
		cache:     cache,
		queueName: queueName,
		logger:    logger.Named("persist_worker"),
	}
}

func (w *MessagePersistWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}
	if err := ch.Qos(8, 0, false); err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("set worker qos failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				w.handle(workerCtx, d)
			}
		}
	}()

	w.logger.Info("worker started", zap.String("queue", w.queueName))
	return nil
}

// handle acks stored exchanges. A store outage is retried once through the
// broker; anything else is dropped so one bad payload cannot wedge the queue.
func (w *MessagePersistWorker) handle(ctx context.Context, d amqp.Delivery) {
	err := w.Process(ctx, d.Body)
	if err == nil {
		_ = d.Ack(false)
		return
	}

	requeue := errors.Is(err, repository.ErrStorageUnavailable) && !d.Redelivered
	w.logger.Error("persist message failed",
		zap.String("message_id", d.MessageId),
		zap.Bool("requeue", requeue),
		zap.Error(err),
	)
	_ = d.Nack(false, requeue)
}

// Process decodes one queued exchange and stores it.
func (w *MessagePersistWorker) Process(ctx context.Context, body []byte) error {
	var msg model.ChatMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if msg.UserMessage == "" || msg.Timestamp <= 0 {
		return fmt.Errorf("%w: missing user_message or timestamp", ErrInvalidPayload)
	}
	if msg.Username == "" {
		msg.Username = model.AnonymousSender
	}
	if msg.RecommendQuestions == nil {
		msg.RecommendQuestions = []string{}
	}
	if err := w.repo.Create(ctx, &msg); err != nil {
		return err
	}
	if w.cache != nil {
		if err := w.cache.Invalidate(ctx); err != nil {
			w.logger.Warn("invalidate message cache failed", zap.Error(err))
		}
	}
	return nil
}

func (w *MessagePersistWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
