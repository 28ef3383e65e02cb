package notify

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Record describes the outcome of one invocation.
type Record struct {
	RequestID    string `json:"requestId"`
	FunctionName string `json:"functionName"`
	Outcome      string `json:"outcome"`
	ErrorType    string `json:"errorType,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
	Response     string `json:"response,omitempty"`
	Timestamp    int64  `json:"timestamp"`
}

func (r *Record) fields() map[string]any {
	m := map[string]any{
		"requestId":    r.RequestID,
		"functionName": r.FunctionName,
		"outcome":      r.Outcome,
		"timestamp":    float64(r.Timestamp),
	}
	if r.ErrorType != "" {
		m["errorType"] = r.ErrorType
	}
	if r.ErrorMessage != "" {
		m["errorMessage"] = r.ErrorMessage
	}
	if r.Response != "" {
		m["response"] = r.Response
	}
	return m
}

// Encode renders r as an SQS message body: plain JSON, or a
// google.protobuf.Struct in base64.
func Encode(r *Record, enc Encoding) (string, error) {
	switch enc {
	case EncodingJSON, "":
		b, err := json.Marshal(r)
		if err != nil {
			return "", err
		}
		return string(b), nil
	case EncodingProto:
		s, err := structpb.NewStruct(r.fields())
		if err != nil {
			return "", err
		}
		b, err := proto.Marshal(s)
		if err != nil {
			return "", err
		}
		return base64.StdEncoding.EncodeToString(b), nil
	default:
		return "", fmt.Errorf("notify: unknown encoding %q", enc)
	}
}

func Decode(body string, enc Encoding) (*Record, error) {
	switch enc {
	case EncodingJSON, "":
		var r Record
		if err := json.Unmarshal([]byte(body), &r); err != nil {
			return nil, err
		}
		return &r, nil
	case EncodingProto:
		b, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			return nil, err
		}
		var s structpb.Struct
		if err := proto.Unmarshal(b, &s); err != nil {
			return nil, err
		}
		// Round-trip through JSON to reuse the struct tags.
		j, err := json.Marshal(s.AsMap())
		if err != nil {
			return nil, err
		}
		var r Record
		if err := json.Unmarshal(j, &r); err != nil {
			return nil, err
		}
		return &r, nil
	default:
		return nil, fmt.Errorf("notify: unknown encoding %q", enc)
	}
}
