package queue

import (
	"context"
	"testing"
	"time"
)

func TestEnqueueCreatesPendingTask(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	id, err := s.Enqueue(ctx, "客户A", "客户A", "多少钱")
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	task, err := s.Get(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if task == nil || task.Status != StatusPending {
		t.Fatalf("expected PENDING task, got %+v", task)
	}
}

func TestEnqueueNeverDeduplicates(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	id1, _ := s.Enqueue(ctx, "客户A", "客户A", "在吗")
	id2, _ := s.Enqueue(ctx, "客户A", "客户A", "在吗")
	if id1 == id2 {
		t.Fatal("expected distinct task ids for identical payloads")
	}
}

func TestClaimPendingOldestFirstAndAtomic(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	base := time.Now()
	seq := 0
	s.now = func() time.Time {
		seq++
		return base.Add(time.Duration(seq) * time.Second)
	}

	first, _ := s.Enqueue(ctx, "a", "a", "第一条")
	s.Enqueue(ctx, "b", "b", "第二条")
	s.Enqueue(ctx, "c", "c", "第三条")

	claimed, err := s.ClaimPending(ctx, 2)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if len(claimed) != 2 {
		t.Fatalf("expected 2 claimed, got %d", len(claimed))
	}
	if claimed[0].ID != first {
		t.Fatalf("expected oldest task first, got %s", claimed[0].RawMessage)
	}
	for _, c := range claimed {
		if c.Status != StatusProcessing {
			t.Fatalf("expected claimed task PROCESSING, got %s", c.Status)
		}
	}

	// A second claim must not return the already-claimed tasks.
	again, _ := s.ClaimPending(ctx, 10)
	if len(again) != 1 || again[0].RawMessage != "第三条" {
		t.Fatalf("expected only the unclaimed task, got %+v", again)
	}
}

func TestStatusMachineIsForwardOnly(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	id, _ := s.Enqueue(ctx, "a", "a", "你好")

	// COMPLETED before PROCESSING must be rejected.
	if err := s.Complete(ctx, id, ReplyOptions{}); err != ErrInvalidTransition {
		t.Fatalf("expected invalid transition, got %v", err)
	}

	if _, err := s.ClaimPending(ctx, 1); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := s.Complete(ctx, id, ReplyOptions{Aggressive: "现在下单立减"}); err != nil {
		t.Fatalf("complete: %v", err)
	}
	// No going back to FAILED from COMPLETED.
	if err := s.Fail(ctx, id, "boom"); err != ErrInvalidTransition {
		t.Fatalf("expected invalid transition, got %v", err)
	}
	if err := s.MarkSent(ctx, id); err != nil {
		t.Fatalf("mark sent: %v", err)
	}
	// SENT is terminal.
	if err := s.MarkSent(ctx, id); err != ErrInvalidTransition {
		t.Fatalf("expected invalid transition, got %v", err)
	}

	task, _ := s.Get(ctx, id)
	if task.Status != StatusSent {
		t.Fatalf("expected SENT, got %s", task.Status)
	}
	if task.ReplyOptions == nil || task.ReplyOptions.Aggressive != "现在下单立减" {
		t.Fatalf("expected reply options preserved, got %+v", task.ReplyOptions)
	}
}

func TestTransitionOnMissingTaskIsNoOp(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	if err := s.Complete(ctx, "missing", ReplyOptions{}); err != nil {
		t.Fatalf("expected no-op for missing task, got %v", err)
	}
	if err := s.Fail(ctx, "missing", "boom"); err != nil {
		t.Fatalf("expected no-op for missing task, got %v", err)
	}
}

func TestFailedTaskIsRetriableByReEnqueue(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	id, _ := s.Enqueue(ctx, "a", "a", "你好")
	s.ClaimPending(ctx, 1)
	s.Fail(ctx, id, "model timeout")

	task, _ := s.Get(ctx, id)
	if task.Status != StatusFailed || task.ErrorMessage != "model timeout" {
		t.Fatalf("expected FAILED with message, got %+v", task)
	}

	// Retry means a fresh PENDING row, not resurrecting the old one.
	retryID, _ := s.Enqueue(ctx, task.SessionID, task.CustomerName, task.RawMessage)
	claimed, _ := s.ClaimPending(ctx, 10)
	if len(claimed) != 1 || claimed[0].ID != retryID {
		t.Fatalf("expected only the retry task claimable, got %+v", claimed)
	}
}

func TestFailStaleReclaimsOrphanedProcessing(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	base := time.Now()
	seq := 0
	s.now = func() time.Time {
		seq++
		return base.Add(time.Duration(seq) * time.Second)
	}

	orphaned, _ := s.Enqueue(ctx, "a", "a", "卡住的任务")
	s.ClaimPending(ctx, 1)
	fresh, _ := s.Enqueue(ctx, "b", "b", "刚领取的任务")
	s.now = func() time.Time { return base.Add(time.Hour) }
	s.ClaimPending(ctx, 1)

	failed, err := s.FailStale(ctx, base.Add(30*time.Minute))
	if err != nil {
		t.Fatalf("fail stale: %v", err)
	}
	if failed != 1 {
		t.Fatalf("expected 1 stale task failed, got %d", failed)
	}

	task, _ := s.Get(ctx, orphaned)
	if task.Status != StatusFailed || task.ErrorMessage != staleTaskMessage {
		t.Fatalf("expected orphaned task FAILED, got %+v", task)
	}
	if task, _ := s.Get(ctx, fresh); task.Status != StatusProcessing {
		t.Fatalf("recently claimed task must be untouched, got %+v", task)
	}
}

func TestPurgeFinishedKeepsActiveTasks(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	old := time.Now().Add(-8 * 24 * time.Hour)
	seq := 0
	s.now = func() time.Time {
		seq++
		return old.Add(time.Duration(seq) * time.Second)
	}

	done, _ := s.Enqueue(ctx, "a", "a", "旧消息")
	pending, _ := s.Enqueue(ctx, "b", "b", "还没处理")
	s.ClaimPending(ctx, 1)
	s.Complete(ctx, done, ReplyOptions{})

	s.now = time.Now
	purged, err := s.PurgeFinished(ctx, time.Now().Add(-7*24*time.Hour))
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if purged != 1 {
		t.Fatalf("expected 1 purged, got %d", purged)
	}
	if task, _ := s.Get(ctx, pending); task == nil {
		t.Fatal("pending task must survive the purge")
	}
	if task, _ := s.Get(ctx, done); task != nil {
		t.Fatalf("expected completed task purged, got %+v", task)
	}
}
