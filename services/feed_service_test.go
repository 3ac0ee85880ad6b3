package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/goleak"

	"browser-monitor-worker/domain"
)

const feedQueue = "http://localhost:4566/000000000000/events"

func runFeed(t *testing.T, s *FeedService, until <-chan struct{}) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(stopped)
	}()

	select {
	case <-until:
	case <-time.After(2 * time.Second):
		t.Error("feed did not make progress")
	}
	cancel()
	<-stopped
}

func TestFeedService_DeliversAndDeletes(t *testing.T) {
	defer goleak.VerifyNone(t)

	sqsClient := new(MockSQSClient)
	handler := new(MockEventHandler)
	deleted := make(chan struct{})

	sqsClient.On("ReceiveMessages", mock.Anything, feedQueue, int32(10), int32(20)).Return(&sqs.ReceiveMessageOutput{
		Messages: []types.Message{
			{Body: aws.String(`{"source_application":"com.android.chrome","kind":"TEXT_CHANGED","text":"http://example.com"}`), ReceiptHandle: aws.String("h1")},
			{Body: aws.String(`not json`), ReceiptHandle: aws.String("h2")},
		},
	}, nil).Once()
	sqsClient.On("ReceiveMessages", mock.Anything, feedQueue, int32(10), int32(20)).Return(&sqs.ReceiveMessageOutput{}, nil)
	sqsClient.On("DeleteMessage", mock.Anything, feedQueue, aws.String("h1")).Return(nil).Once()
	sqsClient.On("DeleteMessage", mock.Anything, feedQueue, aws.String("h2")).Return(errors.New("gone")).Once().
		Run(func(mock.Arguments) { close(deleted) })
	handler.On("OnEvent", domain.CapturedEvent{
		SourceApplication: "com.android.chrome",
		Kind:              domain.EventTextChanged,
		Text:              "http://example.com",
	}).Once()

	runFeed(t, NewFeedService(sqsClient, feedQueue, handler, nil), deleted)

	handler.AssertExpectations(t)
	sqsClient.AssertNumberOfCalls(t, "DeleteMessage", 2)
}

func TestFeedService_ReceiveErrorBacksOff(t *testing.T) {
	defer goleak.VerifyNone(t)

	sqsClient := new(MockSQSClient)
	handler := new(MockEventHandler)
	retried := make(chan struct{})

	sqsClient.On("ReceiveMessages", mock.Anything, feedQueue, int32(10), int32(20)).Return(nil, errors.New("throttled")).Once()
	sqsClient.On("ReceiveMessages", mock.Anything, feedQueue, int32(10), int32(20)).Return(&sqs.ReceiveMessageOutput{}, nil).Once().
		Run(func(mock.Arguments) { close(retried) })
	sqsClient.On("ReceiveMessages", mock.Anything, feedQueue, int32(10), int32(20)).Return(&sqs.ReceiveMessageOutput{}, nil)

	s := NewFeedService(sqsClient, feedQueue, handler, nil)
	s.retryDelay = time.Millisecond
	runFeed(t, s, retried)

	handler.AssertNotCalled(t, "OnEvent", mock.Anything)
}
