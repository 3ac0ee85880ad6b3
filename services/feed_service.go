package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"go.uber.org/zap"

	"browser-monitor-worker/domain"
	"browser-monitor-worker/logging"
)

type SQSClient interface {
	ReceiveMessages(ctx context.Context, queueURL string, maxMessages int32, waitTime int32) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, queueURL string, receiptHandle *string) error
}

type EventHandler interface {
	OnEvent(ev domain.CapturedEvent)
}

// FeedService delivers captured events published on an SQS queue.
type FeedService struct {
	sqsClient  SQSClient
	queueURL   string
	handler    EventHandler
	retryDelay time.Duration
	logger     *zap.Logger
}

func NewFeedService(sqsClient SQSClient, queueURL string, handler EventHandler, logger *zap.Logger) *FeedService {
	return &FeedService{
		sqsClient:  sqsClient,
		queueURL:   queueURL,
		handler:    handler,
		retryDelay: 5 * time.Second,
		logger:     logging.OrNop(logger),
	}
}

func (s *FeedService) Start(ctx context.Context) {
	s.logger.Info("event feed started", zap.String("queue", s.queueURL))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("event feed stopping")
			return
		default:
		}

		out, err := s.sqsClient.ReceiveMessages(ctx, s.queueURL, 10, 20)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			s.logger.Error("error receiving events", zap.Error(err))
			select {
			case <-ctx.Done():
			case <-time.After(s.retryDelay):
			}
			continue
		}

		for _, msg := range out.Messages {
			s.handle(ctx, msg.Body)
			if err := s.sqsClient.DeleteMessage(ctx, s.queueURL, msg.ReceiptHandle); err != nil {
				s.logger.Error("error deleting event message", zap.Error(err))
			}
		}
	}
}

// handle drops undecodable bodies; they are deleted like any other message.
func (s *FeedService) handle(ctx context.Context, body *string) {
	var msg domain.EventMessage
	if err := json.Unmarshal([]byte(aws.ToString(body)), &msg); err != nil {
		s.logger.Warn("discarding malformed event message", zap.Error(err))
		return
	}
	s.handler.OnEvent(msg.ToCapturedEvent())
}
