package sqsgath

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

type queue struct {
	ctx    context.Context
	client SendMessageAPI
}

// Publish sends data as one message to the queue at url.
func (q *queue) Publish(url string, data []byte) error {
	_, err := q.client.SendMessage(q.ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(url),
		MessageBody: aws.String(string(data)),
	})
	return err
}
