// Package notify publishes invocation outcomes to an SQS queue.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aura-studio/lambda-runtime/dispatch"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

type Notifier struct {
	*Options
	now func() time.Time
}

// New builds a Notifier. Without an explicit client the default AWS
// configuration chain is used.
func New(ctx context.Context, opts ...Option) (*Notifier, error) {
	n := &Notifier{
		Options: NewOptions(opts...),
		now:     time.Now,
	}
	if n.QueueURL == "" {
		return nil, errors.New("notify: queue url is required")
	}
	if n.SQSClient == nil {
		cfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("notify: load aws config: %w", err)
		}
		n.SQSClient = sqs.NewFromConfig(cfg)
	}
	return n, nil
}

// Handle implements dispatch.Listener. Only response and error events are
// published.
func (n *Notifier) Handle(ctx context.Context, ev dispatch.Event) error {
	var r *Record
	switch e := ev.(type) {
	case dispatch.ResponseEvent:
		r = &Record{Outcome: OutcomeSuccess}
		if e.Event != nil && e.Event.Context != nil {
			r.RequestID = e.Event.Context.AwsRequestID()
			r.FunctionName = e.Event.Context.FunctionName()
		}
		if n.IncludeResponse {
			r.Response = string(e.Response)
		}
	case dispatch.ErrorEvent:
		r = &Record{Outcome: OutcomeError, RequestID: e.RequestID}
		if e.Context != nil {
			r.FunctionName = e.Context.FunctionName()
		}
		if e.Body != nil {
			r.ErrorType = e.Body.ErrorType
			r.ErrorMessage = e.Body.ErrorMessage
		}
	default:
		return nil
	}
	r.Timestamp = n.now().UnixMilli()

	return n.Publish(ctx, r)
}

func (n *Notifier) Publish(ctx context.Context, r *Record) error {
	body, err := Encode(r, n.Encoding)
	if err != nil {
		return fmt.Errorf("notify: encode %s: %w", r.RequestID, err)
	}

	_, err = n.SQSClient.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(n.QueueURL),
		MessageBody: aws.String(body),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"outcome": {
				DataType:    aws.String("String"),
				StringValue: aws.String(r.Outcome),
			},
			"encoding": {
				DataType:    aws.String("String"),
				StringValue: aws.String(string(n.Encoding)),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("notify: send %s: %w", r.RequestID, err)
	}
	n.Logger.Debug("outcome published", "id", r.RequestID, "outcome", r.Outcome)
	return nil
}
