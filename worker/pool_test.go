package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	cf "github.com/gofhir/conformance"
)

// echoValidate fails instances whose payload contains "bad" and faults on
// payloads containing "fault".
func echoValidate(_ context.Context, _ string, data []byte) (cf.Report, error) {
	payload := string(data)
	if strings.Contains(payload, "fault") {
		return cf.Success, errors.New("collaborator missing")
	}
	if strings.Contains(payload, "bad") {
		return cf.ReportOf(cf.Issue{Severity: cf.SeverityError, Code: cf.IssueTypeInvalid}), nil
	}
	return cf.Success, nil
}

func TestPool_PreservesJobOrder(t *testing.T) {
	jobs := make([]Job, 20)
	for i := range jobs {
		jobs[i] = Job{ID: fmt.Sprintf("job-%d", i), URI: "u", Data: []byte("{}")}
	}

	pool := NewPool(echoValidate, 4)
	results := pool.Run(context.Background(), jobs)

	if len(results) != len(jobs) {
		t.Fatalf("results = %d; want %d", len(results), len(jobs))
	}
	for i, r := range results {
		if r.ID != jobs[i].ID {
			t.Errorf("results[%d].ID = %q; want %q", i, r.ID, jobs[i].ID)
		}
	}
}

func TestPool_MixedOutcomes(t *testing.T) {
	jobs := []Job{
		{ID: "ok", Data: []byte("{}")},
		{ID: "failing", Data: []byte(`{"bad": true}`)},
		{ID: "faulting", Data: []byte(`{"fault": true}`)},
	}

	results := NewPool(echoValidate, 2).Run(context.Background(), jobs)

	if results[0].Err != nil || results[0].Report.Failed() {
		t.Errorf("ok job = %+v; want clean", results[0])
	}
	if results[1].Err != nil || !results[1].Report.Failed() {
		t.Errorf("failing job = %+v; want failed report", results[1])
	}
	if results[2].Err == nil {
		t.Errorf("faulting job = %+v; want error", results[2])
	}

	summary := Summarize(results)
	if summary.Total != 3 || summary.Failed != 1 || summary.Faulted != 1 {
		t.Errorf("summary = %+v; want total 3, failed 1, faulted 1", summary)
	}
}

func TestPool_EmptyBatch(t *testing.T) {
	results := NewPool(echoValidate, 4).Run(context.Background(), nil)
	if len(results) != 0 {
		t.Errorf("results = %v; want empty", results)
	}
}

func TestPool_DefaultWorkerCount(t *testing.T) {
	pool := NewPool(echoValidate, 0)
	if pool.workers <= 0 {
		t.Errorf("workers = %d; want a positive default", pool.workers)
	}
}

func TestPool_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var started atomic.Int32
	slow := func(ctx context.Context, _ string, _ []byte) (cf.Report, error) {
		if started.Add(1) == 1 {
			cancel()
		}
		select {
		case <-ctx.Done():
			return cf.Success, ctx.Err()
		case <-time.After(50 * time.Millisecond):
			return cf.Success, nil
		}
	}

	jobs := make([]Job, 50)
	for i := range jobs {
		jobs[i] = Job{ID: fmt.Sprintf("job-%d", i), Data: []byte("{}")}
	}

	results := NewPool(slow, 1).Run(ctx, jobs)

	if len(results) != len(jobs) {
		t.Fatalf("results = %d; want one per job", len(results))
	}
	cancelled := 0
	for i, r := range results {
		if r.ID != jobs[i].ID {
			t.Errorf("results[%d].ID = %q; want %q", i, r.ID, jobs[i].ID)
		}
		if errors.Is(r.Err, context.Canceled) {
			cancelled++
		}
	}
	if cancelled == 0 {
		t.Error("cancellation should surface in undispatched results")
	}
}

func TestSummarize_Duration(t *testing.T) {
	results := []Result{
		{Duration: 10 * time.Millisecond},
		{Duration: 30 * time.Millisecond},
	}
	if got := Summarize(results).Duration; got != 40*time.Millisecond {
		t.Errorf("Duration = %s; want 40ms", got)
	}
}
