package workflow_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/JaimeStill/osenchi/internal/classifier"
	"github.com/JaimeStill/osenchi/internal/jobs"
	"github.com/JaimeStill/osenchi/internal/notify"
	"github.com/JaimeStill/osenchi/internal/records"
	"github.com/JaimeStill/osenchi/internal/workflow"
	"github.com/JaimeStill/osenchi/pkg/storage"
)

const (
	srcBucket  = "osenchi-input"
	destBucket = "osenchi-output"
	objectKey  = "reviews.jsonl"
)

const threeLines = `{"id":"1","topic":"t","language":"en","content":"good"}
{"id":"2","topic":"t","language":"ja","content":"よい"}
{"id":"3","topic":"t","language":"en","content":"bad"}`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// outbox captures published notifications.
type outbox struct {
	mu   sync.Mutex
	msgs []notify.Message
	err  error
}

func (o *outbox) Publish(ctx context.Context, msg notify.Message) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return "", o.err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	o.msgs = append(o.msgs, msg)
	return "msg-1", nil
}

func (o *outbox) subjects() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []string
	for _, m := range o.msgs {
		out = append(out, m.Subject)
	}
	return out
}

// recorder keeps the last recorded copy of every execution.
type recorder struct {
	mu      sync.Mutex
	creates int
	updates int
	last    map[string]*workflow.Execution
}

func (r *recorder) Create(ctx context.Context, exec *workflow.Execution) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.last == nil {
		r.last = make(map[string]*workflow.Execution)
	}
	r.creates++
	r.last[exec.ID.String()] = exec
	return nil
}

func (r *recorder) Update(ctx context.Context, exec *workflow.Execution) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates++
	r.last[exec.ID.String()] = exec
	return nil
}

type fixture struct {
	store *storage.Memory
	box   *outbox
	rec   *recorder
	orch  *workflow.Orchestrator
}

func newConfig(t *testing.T, timeout string) *workflow.Config {
	t.Helper()
	cfg := &workflow.Config{Timeout: timeout, NotifyTimeout: "1s"}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}
	return cfg
}

func newFixture(t *testing.T, det classifier.Detector, timeout string) *fixture {
	t.Helper()

	store := storage.NewMemory(discardLogger())
	jobsCfg := &jobs.Config{
		DestBucket: destBucket,
		Retry:      jobs.RetryConfig{MaxAttempts: 1},
	}
	if err := jobsCfg.Finalize(nil); err != nil {
		t.Fatalf("jobs Finalize() error = %v", err)
	}

	box := &outbox{}
	rt := &workflow.Runtime{
		Sentiment:      jobs.NewSentiment(store, classifier.New(det, classifier.Options{}), jobsCfg, discardLogger()),
		Deletion:       jobs.NewDeletion(store, discardLogger()),
		Publisher:      box,
		SuccessSubject: "Osenchi Success",
		ErrorSubject:   "Osenchi Error",
		Logger:         discardLogger(),
	}

	cfg := newConfig(t, timeout)
	def, err := workflow.Pipeline(cfg)
	if err != nil {
		t.Fatalf("Pipeline() error = %v", err)
	}

	rec := &recorder{}
	orch, err := workflow.New(def, workflow.Steps(rt), rec, cfg, discardLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	return &fixture{store: store, box: box, rec: rec, orch: orch}
}

func triggerJSON(t *testing.T, id, bucket, key string) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(workflow.NewTrigger(id, bucket, key))
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestExecuteSucceeds(t *testing.T) {
	f := newFixture(t, classifier.Static{Sentiment: records.SentimentPositive}, "1m")
	if err := f.store.Put(context.Background(), srcBucket, objectKey, []byte(threeLines), records.ContentType); err != nil {
		t.Fatal(err)
	}

	exec, err := f.orch.Execute(context.Background(), "", triggerJSON(t, "evt-1", srcBucket, objectKey))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if exec.Status != workflow.StatusSucceeded {
		t.Fatalf("Status = %s, want SUCCEEDED (error %v)", exec.Status, exec.Error)
	}
	if exec.RequestID != "evt-1" {
		t.Errorf("RequestID = %q, want trigger id", exec.RequestID)
	}
	if exec.StoppedAt == nil {
		t.Error("StoppedAt not set")
	}

	var out workflow.DeletionOutput
	if err := json.Unmarshal(exec.Payload, &out); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	want := workflow.DeletionOutput{ID: "evt-1", SrcBucket: srcBucket, ObjectKey: objectKey, StatusCode: 204}
	if out != want {
		t.Errorf("payload = %+v, want %+v", out, want)
	}
	if strings.Contains(string(exec.Payload), "destBucket") {
		t.Errorf("payload still carries destBucket: %s", exec.Payload)
	}

	if ok, _ := f.store.Exists(context.Background(), srcBucket, objectKey); ok {
		t.Error("source object not deleted")
	}
	if ok, _ := f.store.Exists(context.Background(), destBucket, objectKey); !ok {
		t.Error("destination object not written")
	}

	if got := f.box.subjects(); len(got) != 1 || got[0] != "Osenchi Success" {
		t.Errorf("notifications = %v, want one success", got)
	}
	if body := f.box.msgs[0].Body; !strings.Contains(body, `"statusCode": 204`) {
		t.Errorf("success body does not carry the payload: %s", body)
	}
}

func TestExecuteMissingSourceFails(t *testing.T) {
	f := newFixture(t, classifier.Static{Sentiment: records.SentimentPositive}, "1m")
	input := triggerJSON(t, "evt-2", srcBucket, "absent.jsonl")

	exec, err := f.orch.Execute(context.Background(), "req-2", input)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if exec.Status != workflow.StatusFailed {
		t.Fatalf("Status = %s, want FAILED", exec.Status)
	}
	if exec.State != workflow.StateFail {
		t.Errorf("State = %s, want Fail", exec.State)
	}
	if exec.Error == nil || exec.Error.OriginStep != workflow.StateSentiment {
		t.Fatalf("Error = %+v, want origin Sentiment", exec.Error)
	}

	subjects := f.box.subjects()
	if len(subjects) != 1 || subjects[0] != "Osenchi Error" {
		t.Fatalf("notifications = %v, want exactly one error", subjects)
	}

	// The error payload is the original input plus the error.
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(exec.Payload, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if _, ok := payload["detail"]; !ok {
		t.Errorf("payload lost the trigger detail: %s", exec.Payload)
	}
	var werr workflow.WorkflowError
	if err := json.Unmarshal(payload["error"], &werr); err != nil {
		t.Fatalf("decode error member: %v", err)
	}
	if werr.OriginStep != workflow.StateSentiment || !strings.Contains(werr.Cause, "not found") {
		t.Errorf("error member = %+v", werr)
	}

	if !strings.Contains(f.box.msgs[0].Body, `"originStep": "Sentiment"`) {
		t.Errorf("error body = %s", f.box.msgs[0].Body)
	}
}

func TestExecuteFailurePayloadKeepsInput(t *testing.T) {
	detail := `"detail":{"requestParameters":{"bucketName":"osenchi-input","key":"absent.jsonl"}}`

	tests := []struct {
		name       string
		input      string
		wantPrefix string
		wantSuffix string
	}{
		{
			name:       "appends error",
			input:      `{"id":"a<b>&c", ` + detail + `, "source":"aws.s3"}`,
			wantPrefix: `{"id":"a<b>&c", ` + detail + `, "source":"aws.s3","error":{"originStep":"Sentiment",`,
			wantSuffix: `}}`,
		},
		{
			name:       "replaces existing error",
			input:      `{"error":"stale","id":"x<y",` + detail + `}`,
			wantPrefix: `{"error":{"originStep":"Sentiment",`,
			wantSuffix: `},"id":"x<y",` + detail + `}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, classifier.Static{Sentiment: records.SentimentPositive}, "1m")

			exec, err := f.orch.Execute(context.Background(), "req-verbatim", json.RawMessage(tt.input))
			if err != nil {
				t.Fatalf("Execute() error = %v", err)
			}
			if exec.Status != workflow.StatusFailed {
				t.Fatalf("Status = %s, want FAILED", exec.Status)
			}

			got := string(exec.Payload)
			if !strings.HasPrefix(got, tt.wantPrefix) || !strings.HasSuffix(got, tt.wantSuffix) {
				t.Errorf("payload = %s\nwant prefix %s\nwant suffix %s", got, tt.wantPrefix, tt.wantSuffix)
			}
			if !json.Valid(exec.Payload) {
				t.Errorf("payload is not valid JSON: %s", got)
			}
			if len(f.box.msgs) != 1 || strings.Contains(f.box.msgs[0].Body, `\u003c`) {
				t.Errorf("error body escaped the payload: %v", f.box.msgs)
			}
		})
	}
}

func TestExecuteTimeoutStillNotifies(t *testing.T) {
	blocking := classifier.DetectorFunc(func(ctx context.Context, language string, texts []string) ([]classifier.Detection, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	f := newFixture(t, blocking, "50ms")
	if err := f.store.Put(context.Background(), srcBucket, objectKey, []byte(threeLines), records.ContentType); err != nil {
		t.Fatal(err)
	}

	exec, err := f.orch.Execute(context.Background(), "", triggerJSON(t, "evt-3", srcBucket, objectKey))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if exec.Status != workflow.StatusFailed {
		t.Fatalf("Status = %s, want FAILED", exec.Status)
	}
	if exec.Error == nil || !strings.Contains(exec.Error.Cause, workflow.ErrTimeout.Error()) {
		t.Errorf("Error = %+v, want timeout cause", exec.Error)
	}
	if got := f.box.subjects(); len(got) != 1 || got[0] != "Osenchi Error" {
		t.Errorf("notifications = %v, want one error", got)
	}
	if ok, _ := f.store.Exists(context.Background(), srcBucket, objectKey); !ok {
		t.Error("source deleted despite failure")
	}
}

func TestExecuteErrorNotifyFailure(t *testing.T) {
	f := newFixture(t, classifier.Static{Sentiment: records.SentimentPositive}, "1m")
	f.box.err = errors.New("topic gone")

	exec, err := f.orch.Execute(context.Background(), "", triggerJSON(t, "evt-4", srcBucket, "absent.jsonl"))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if exec.Status != workflow.StatusFailed {
		t.Fatalf("Status = %s, want FAILED", exec.Status)
	}
	if exec.Error.OriginStep != workflow.StateSentiment {
		t.Errorf("OriginStep = %s, want the original failure", exec.Error.OriginStep)
	}

	last := exec.History[len(exec.History)-1]
	if last.State != workflow.StateErrorNotify || last.Event != workflow.EventFailed {
		t.Errorf("last transition = %+v, want ErrorNotify failure", last)
	}
}

func TestExecuteSuccessNotifyFailureIsCaught(t *testing.T) {
	f := newFixture(t, classifier.Static{Sentiment: records.SentimentPositive}, "1m")
	if err := f.store.Put(context.Background(), srcBucket, objectKey, []byte(threeLines), records.ContentType); err != nil {
		t.Fatal(err)
	}

	// Fail only the first publish so the error notification goes out.
	first := true
	pub := publishFunc(func(ctx context.Context, msg notify.Message) (string, error) {
		if first {
			first = false
			return "", errors.New("throttled")
		}
		return f.box.Publish(ctx, msg)
	})

	rt := &workflow.Runtime{
		Sentiment:      stubSentiment{},
		Deletion:       stubDeletion{},
		Publisher:      pub,
		SuccessSubject: "Osenchi Success",
		ErrorSubject:   "Osenchi Error",
		Logger:         discardLogger(),
	}
	cfg := newConfig(t, "1m")
	def, _ := workflow.Pipeline(cfg)
	orch, err := workflow.New(def, workflow.Steps(rt), nil, cfg, discardLogger())
	if err != nil {
		t.Fatal(err)
	}

	exec, err := orch.Execute(context.Background(), "", triggerJSON(t, "evt-5", srcBucket, objectKey))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if exec.Status != workflow.StatusFailed || exec.Error.OriginStep != workflow.StateSuccessNotify {
		t.Errorf("execution = %s %+v, want FAILED from SuccessNotify", exec.Status, exec.Error)
	}
	if got := f.box.subjects(); len(got) != 1 || got[0] != "Osenchi Error" {
		t.Errorf("notifications = %v, want one error", got)
	}
}

type publishFunc func(ctx context.Context, msg notify.Message) (string, error)

func (f publishFunc) Publish(ctx context.Context, msg notify.Message) (string, error) {
	return f(ctx, msg)
}

type stubSentiment struct{}

func (stubSentiment) Run(ctx context.Context, req jobs.SentimentRequest) (*jobs.SentimentResult, error) {
	return &jobs.SentimentResult{ID: req.ID, SrcBucket: req.SourceBucket, ObjectKey: req.ObjectKey, DestBucket: destBucket}, nil
}

type stubDeletion struct{}

func (stubDeletion) Run(ctx context.Context, bucket, key string) (int, error) {
	return 204, nil
}

func TestExecuteRecoversStepPanic(t *testing.T) {
	cfg := newConfig(t, "1m")
	def, _ := workflow.Pipeline(cfg)
	box := &outbox{}
	steps := workflow.Steps(&workflow.Runtime{
		Sentiment: stubSentiment{}, Deletion: stubDeletion{}, Publisher: box,
		SuccessSubject: "ok", ErrorSubject: "err", Logger: discardLogger(),
	})
	steps[workflow.StateDeletion] = func(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
		panic("boom")
	}

	orch, err := workflow.New(def, steps, nil, cfg, discardLogger())
	if err != nil {
		t.Fatal(err)
	}

	exec, err := orch.Execute(context.Background(), "", triggerJSON(t, "p", srcBucket, objectKey))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if exec.Status != workflow.StatusFailed || exec.Error.OriginStep != workflow.StateDeletion {
		t.Errorf("execution = %s %+v", exec.Status, exec.Error)
	}
	if !strings.Contains(exec.Error.Cause, workflow.ErrStepPanic.Error()) {
		t.Errorf("Cause = %q", exec.Error.Cause)
	}
}

func TestExecuteRejectsNonObjectInput(t *testing.T) {
	f := newFixture(t, classifier.Static{Sentiment: records.SentimentPositive}, "1m")

	for _, input := range []string{`[]`, `"x"`, `null`, `{bad`} {
		if _, err := f.orch.Execute(context.Background(), "", json.RawMessage(input)); !errors.Is(err, workflow.ErrInvalidInput) {
			t.Errorf("Execute(%s) error = %v, want ErrInvalidInput", input, err)
		}
	}
	if f.rec.creates != 0 {
		t.Errorf("recorder created %d executions for invalid input", f.rec.creates)
	}
}

func TestHistoryAndRecording(t *testing.T) {
	f := newFixture(t, classifier.Static{Sentiment: records.SentimentNeutral}, "1m")
	if err := f.store.Put(context.Background(), srcBucket, objectKey, []byte(threeLines), records.ContentType); err != nil {
		t.Fatal(err)
	}

	exec, err := f.orch.Execute(context.Background(), "req", triggerJSON(t, "evt", srcBucket, objectKey))
	if err != nil {
		t.Fatal(err)
	}

	var entered []string
	for _, tr := range exec.History {
		if tr.Event == workflow.EventEntered {
			entered = append(entered, tr.State)
		}
	}
	want := []string{"Parallel", "Sentiment", "Deletion", "SuccessNotify", "Succeed"}
	if strings.Join(entered, ",") != strings.Join(want, ",") {
		t.Errorf("entered = %v, want %v", entered, want)
	}

	stored := f.rec.last[exec.ID.String()]
	if f.rec.creates != 1 || stored == nil || stored.Status != workflow.StatusSucceeded {
		t.Errorf("recorded creates=%d last=%+v", f.rec.creates, stored)
	}
	if len(stored.History) != len(exec.History) {
		t.Errorf("recorded history has %d entries, want %d", len(stored.History), len(exec.History))
	}
}

func TestDispatchRunsInBackground(t *testing.T) {
	f := newFixture(t, classifier.Static{Sentiment: records.SentimentMixed}, "1m")
	for _, key := range []string{"a.jsonl", "b.jsonl"} {
		if err := f.store.Put(context.Background(), srcBucket, key, []byte(threeLines), records.ContentType); err != nil {
			t.Fatal(err)
		}
	}

	var ids []string
	for _, key := range []string{"a.jsonl", "b.jsonl"} {
		snap, err := f.orch.Dispatch(context.Background(), "", triggerJSON(t, key, srcBucket, key))
		if err != nil {
			t.Fatalf("Dispatch() error = %v", err)
		}
		if snap.Status != workflow.StatusRunning {
			t.Errorf("snapshot status = %s, want RUNNING", snap.Status)
		}
		ids = append(ids, snap.ID.String())
	}

	done := make(chan struct{})
	go func() {
		f.orch.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("dispatched executions did not finish")
	}

	f.rec.mu.Lock()
	defer f.rec.mu.Unlock()
	for _, id := range ids {
		if got := f.rec.last[id].Status; got != workflow.StatusSucceeded {
			t.Errorf("execution %s status = %s, want SUCCEEDED", id, got)
		}
	}
	if keys := f.store.Keys(destBucket); len(keys) != 2 {
		t.Errorf("destination keys = %v, want 2", keys)
	}
}

func TestNewRequiresEveryTaskStep(t *testing.T) {
	cfg := newConfig(t, "1m")
	def, _ := workflow.Pipeline(cfg)

	_, err := workflow.New(def, map[string]workflow.Step{}, nil, cfg, discardLogger())
	if !errors.Is(err, workflow.ErrMissingStep) {
		t.Errorf("New() error = %v, want ErrMissingStep", err)
	}
}
