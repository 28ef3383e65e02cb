package notify

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/aura-studio/lambda-runtime/dispatch"
	"github.com/aura-studio/lambda-runtime/event"
	"github.com/aura-studio/lambda-runtime/execution"
	"github.com/aura-studio/lambda-runtime/runtimeapi"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

type mockSQSClient struct {
	mu     sync.Mutex
	inputs []*sqs.SendMessageInput
	err    error
}

func (m *mockSQSClient) SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inputs = append(m.inputs, params)
	if m.err != nil {
		return nil, m.err
	}
	return &sqs.SendMessageOutput{MessageId: aws.String("msg-1")}, nil
}

func testContext(t *testing.T) *execution.Context {
	t.Helper()
	h := http.Header{}
	h.Set(runtimeapi.HeaderRequestID, "req-1")
	h.Set(runtimeapi.HeaderDeadlineMs, "1000")
	c, err := execution.NewFactory(execution.Environment{FunctionName: "fn"}).Create(&runtimeapi.Invocation{Header: h}, nil)
	if err != nil {
		t.Fatalf("Create error = %v", err)
	}
	return c
}

func TestNew_RequiresQueue(t *testing.T) {
	if _, err := New(context.Background(), WithSQSClient(&mockSQSClient{})); err == nil {
		t.Error("New without queue url: err = nil")
	}
}

func TestNotifier_PublishesResponse(t *testing.T) {
	client := &mockSQSClient{}
	n, err := New(context.Background(), WithSQSClient(client), WithQueueURL("https://sqs/queue"), WithResponse())
	if err != nil {
		t.Fatalf("New error = %v", err)
	}
	n.now = func() time.Time { return time.UnixMilli(42) }

	err = n.Handle(context.Background(), dispatch.ResponseEvent{
		Event:    &event.Event{Context: testContext(t)},
		Response: []byte(`{"ok":true}`),
	})
	if err != nil {
		t.Fatalf("Handle error = %v", err)
	}
	if len(client.inputs) != 1 {
		t.Fatalf("sent = %d, want 1", len(client.inputs))
	}
	in := client.inputs[0]
	if *in.QueueUrl != "https://sqs/queue" {
		t.Errorf("QueueUrl = %q", *in.QueueUrl)
	}
	if *in.MessageAttributes["outcome"].StringValue != OutcomeSuccess {
		t.Errorf("outcome attribute = %q", *in.MessageAttributes["outcome"].StringValue)
	}
	r, err := Decode(*in.MessageBody, EncodingJSON)
	if err != nil {
		t.Fatalf("Decode error = %v", err)
	}
	if r.RequestID != "req-1" || r.FunctionName != "fn" || r.Response != `{"ok":true}` || r.Timestamp != 42 {
		t.Errorf("record = %+v", r)
	}
}

func TestNotifier_PublishesErrorAsProto(t *testing.T) {
	client := &mockSQSClient{}
	n, _ := New(context.Background(), WithSQSClient(client), WithQueueURL("q"), WithEncoding(EncodingProto))

	err := n.Handle(context.Background(), dispatch.ErrorEvent{
		RequestID: "req-2",
		Err:       errors.New("bad"),
		Body:      &runtimeapi.ErrorBody{ErrorType: "DecodeError", ErrorMessage: "bad"},
	})
	if err != nil {
		t.Fatalf("Handle error = %v", err)
	}
	r, err := Decode(*client.inputs[0].MessageBody, EncodingProto)
	if err != nil {
		t.Fatalf("Decode error = %v", err)
	}
	if r.Outcome != OutcomeError || r.RequestID != "req-2" || r.ErrorType != "DecodeError" {
		t.Errorf("record = %+v", r)
	}
}

func TestNotifier_IgnoresOtherEvents(t *testing.T) {
	client := &mockSQSClient{}
	n, _ := New(context.Background(), WithSQSClient(client), WithQueueURL("q"))

	n.Handle(context.Background(), dispatch.StartEvent{})
	n.Handle(context.Background(), dispatch.RequestEvent{})
	if len(client.inputs) != 0 {
		t.Errorf("sent = %d, want 0", len(client.inputs))
	}
}

func TestNotifier_SendError(t *testing.T) {
	client := &mockSQSClient{err: errors.New("throttled")}
	n, _ := New(context.Background(), WithSQSClient(client), WithQueueURL("q"))

	err := n.Publish(context.Background(), &Record{RequestID: "r", Outcome: OutcomeSuccess})
	if err == nil || !errors.Is(err, client.err) {
		t.Errorf("err = %v, want wrapped send error", err)
	}
}

func TestCodec_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(42)

	properties := gopter.NewProperties(parameters)

	for _, enc := range []Encoding{EncodingJSON, EncodingProto} {
		enc := enc
		properties.Property("records survive "+string(enc)+" encoding", prop.ForAll(
			func(id, msg string, ts int64) bool {
				in := &Record{RequestID: id, Outcome: OutcomeError, ErrorMessage: msg, Timestamp: ts}
				body, err := Encode(in, enc)
				if err != nil {
					return false
				}
				out, err := Decode(body, enc)
				if err != nil {
					return false
				}
				return *out == *in
			},
			gen.AlphaString(),
			gen.AlphaString(),
			gen.Int64Range(0, 1<<50),
		))
	}

	properties.TestingRun(t)
}
