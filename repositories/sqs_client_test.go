package repositories

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/stretchr/testify/assert"
)

func newMockSQS(output interface{}, err error) *sqs.Client {
	return sqs.NewFromConfig(aws.Config{Region: "us-east-1"}, func(o *sqs.Options) {
		o.APIOptions = append(o.APIOptions, mockAWSMiddleware(output, err))
	})
}

func TestSQSClient_ReceiveMessages(t *testing.T) {
	output := &sqs.ReceiveMessageOutput{
		Messages: []types.Message{
			{Body: aws.String(`{"kind":"FOCUSED"}`), ReceiptHandle: aws.String("handle")},
		},
	}
	repo := NewSQSClient(newMockSQS(output, nil))
	res, err := repo.ReceiveMessages(context.TODO(), "queue-url", 10, 20)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(res.Messages))

	repoErr := NewSQSClient(newMockSQS(nil, errors.New("aws error")))
	_, err = repoErr.ReceiveMessages(context.TODO(), "queue-url", 10, 20)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to receive messages")
}

func TestSQSClient_DeleteMessage(t *testing.T) {
	handle := "receipt-handle"

	repo := NewSQSClient(newMockSQS(&sqs.DeleteMessageOutput{}, nil))
	assert.NoError(t, repo.DeleteMessage(context.TODO(), "queue-url", &handle))

	repoErr := NewSQSClient(newMockSQS(nil, errors.New("aws error")))
	err := repoErr.DeleteMessage(context.TODO(), "queue-url", &handle)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to delete message")
}
