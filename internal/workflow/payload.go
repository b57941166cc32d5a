package workflow

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/JaimeStill/osenchi/internal/jobs"
)

// TriggerInput is the object-created event that starts an execution.
// Fields beyond these are carried through untouched.
type TriggerInput struct {
	ID     string        `json:"id"`
	Detail TriggerDetail `json:"detail"`
}

// TriggerDetail holds the parameters of the write that created the object.
type TriggerDetail struct {
	RequestParameters RequestParameters `json:"requestParameters"`
}

// RequestParameters names the written object.
type RequestParameters struct {
	BucketName string `json:"bucketName"`
	Key        string `json:"key"`
}

// NewTrigger builds a trigger for bucket/key.
func NewTrigger(id, bucket, key string) TriggerInput {
	return TriggerInput{
		ID: id,
		Detail: TriggerDetail{
			RequestParameters: RequestParameters{BucketName: bucket, Key: key},
		},
	}
}

// Request derives the sentiment job request.
func (t TriggerInput) Request() jobs.SentimentRequest {
	return jobs.SentimentRequest{
		ID:           t.ID,
		SourceBucket: t.Detail.RequestParameters.BucketName,
		ObjectKey:    t.Detail.RequestParameters.Key,
	}
}

// Validate reports whether the trigger names an object.
func (t TriggerInput) Validate() error {
	if t.Detail.RequestParameters.BucketName == "" {
		return fmt.Errorf("%w: detail.requestParameters.bucketName required", ErrInvalidInput)
	}
	if t.Detail.RequestParameters.Key == "" {
		return fmt.Errorf("%w: detail.requestParameters.key required", ErrInvalidInput)
	}
	return nil
}

// DeletionInput is the sentiment result without its destination bucket.
type DeletionInput struct {
	ID        string `json:"id"`
	SrcBucket string `json:"srcBucket"`
	ObjectKey string `json:"objectKey"`
}

// DeletionOutput is the deletion input plus the store's status code.
type DeletionOutput struct {
	ID         string `json:"id"`
	SrcBucket  string `json:"srcBucket"`
	ObjectKey  string `json:"objectKey"`
	StatusCode int    `json:"statusCode"`
}

// WorkflowError records the state that failed and why.
type WorkflowError struct {
	OriginStep string `json:"originStep"`
	Cause      string `json:"cause"`
}

func (e *WorkflowError) Error() string {
	return fmt.Sprintf("%s: %s", e.OriginStep, e.Cause)
}

// ParseTrigger decodes a trigger payload. The payload must be a JSON object.
func ParseTrigger(input json.RawMessage) (TriggerInput, error) {
	var t TriggerInput
	if !isObject(input) {
		return t, fmt.Errorf("%w: payload must be a JSON object", ErrInvalidInput)
	}
	if err := json.Unmarshal(input, &t); err != nil {
		return t, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return t, nil
}

// withError returns input with werr stored under key. When input lacks key the
// member is appended before the closing brace and every other byte is kept. An
// existing key is replaced in place, with the other members in their order.
func withError(input json.RawMessage, key string, werr *WorkflowError) (json.RawMessage, error) {
	encoded, err := marshalRaw(werr)
	if err != nil {
		return nil, fmt.Errorf("encode error: %w", err)
	}

	if !isObject(input) {
		return buildObject([]member{{key: key, value: encoded}})
	}

	fields, err := members(input)
	if err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}

	if i := slices.IndexFunc(fields, func(m member) bool { return m.key == key }); i >= 0 {
		fields[i].value = encoded
		return buildObject(fields)
	}

	name, err := marshalRaw(key)
	if err != nil {
		return nil, fmt.Errorf("encode key: %w", err)
	}

	trimmed := bytes.TrimSpace(input)
	body := bytes.TrimSpace(trimmed[:len(trimmed)-1])

	var out bytes.Buffer
	out.Write(body)
	if len(fields) > 0 {
		out.WriteByte(',')
	}
	out.Write(name)
	out.WriteByte(':')
	out.Write(encoded)
	out.WriteByte('}')
	return out.Bytes(), nil
}

type member struct {
	key   string
	value json.RawMessage
}

// members lists the top-level members of a JSON object in document order.
// Values keep their original encoding.
func members(data json.RawMessage) ([]member, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return nil, err
	}

	var out []member
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", tok)
		}

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, err
		}
		out = append(out, member{key: key, value: value})
	}
	return out, nil
}

func buildObject(fields []member) (json.RawMessage, error) {
	var out bytes.Buffer
	out.WriteByte('{')
	for i, m := range fields {
		if i > 0 {
			out.WriteByte(',')
		}
		name, err := marshalRaw(m.key)
		if err != nil {
			return nil, fmt.Errorf("encode key: %w", err)
		}
		out.Write(name)
		out.WriteByte(':')
		out.Write(m.value)
	}
	out.WriteByte('}')
	return out.Bytes(), nil
}

// marshalRaw encodes v without HTML escaping.
func marshalRaw(v any) (json.RawMessage, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func isObject(data json.RawMessage) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) > 0 && trimmed[0] == '{' && json.Valid(trimmed)
}
