package queue

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
)

func newMockStore(t *testing.T) (pgxmock.PgxPoolIface, *PostgresStore) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock, NewPostgresStore(mock)
}

func TestPostgresEnqueue(t *testing.T) {
	mock, store := newMockStore(t)

	mock.ExpectExec("INSERT INTO message_tasks").
		WithArgs(pgxmock.AnyArg(), "客户A", "客户A", "多少钱").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	id, err := store.Enqueue(context.Background(), "客户A", "客户A", "多少钱")
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if id == "" {
		t.Fatal("expected non-empty task id")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestPostgresClaimPending(t *testing.T) {
	mock, store := newMockStore(t)
	now := time.Now()

	rows := pgxmock.NewRows([]string{
		"id", "session_id", "customer_name", "raw_message", "status",
		"reply_options", "error_message", "created_at", "updated_at",
	}).AddRow("t1", "客户A", "客户A", "多少钱", string(StatusProcessing),
		[]byte(nil), (*string)(nil), now, now)

	mock.ExpectQuery("UPDATE message_tasks SET status = 'PROCESSING'").
		WithArgs(5).
		WillReturnRows(rows)

	claimed, err := store.ClaimPending(context.Background(), 5)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if len(claimed) != 1 || claimed[0].ID != "t1" || claimed[0].Status != StatusProcessing {
		t.Fatalf("unexpected claim result %+v", claimed)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestPostgresCompleteGuardsOnProcessing(t *testing.T) {
	mock, store := newMockStore(t)

	mock.ExpectExec("UPDATE message_tasks").
		WithArgs("t1", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := store.Complete(context.Background(), "t1", ReplyOptions{
		Aggressive:   "现在下单最划算",
		Conservative: "您可以先了解一下",
		Professional: "这款的参数是",
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestPostgresWrongStateTransitionRejected(t *testing.T) {
	mock, store := newMockStore(t)

	// Task exists but is not PROCESSING: the guarded UPDATE touches no
	// rows and the existence probe finds it.
	mock.ExpectExec("UPDATE message_tasks").
		WithArgs("t1", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("t1").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	err := store.Complete(context.Background(), "t1", ReplyOptions{})
	if err != ErrInvalidTransition {
		t.Fatalf("expected invalid transition, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestPostgresMissingTaskTransitionIsNoOp(t *testing.T) {
	mock, store := newMockStore(t)

	mock.ExpectExec("UPDATE message_tasks").
		WithArgs("gone", "boom").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("gone").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

	if err := store.Fail(context.Background(), "gone", "boom"); err != nil {
		t.Fatalf("expected no-op for purged task, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestPostgresFailStale(t *testing.T) {
	mock, store := newMockStore(t)

	cutoff := time.Now().Add(-10 * time.Minute)
	mock.ExpectExec("UPDATE message_tasks").
		WithArgs(cutoff, staleTaskMessage).
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))

	failed, err := store.FailStale(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("fail stale: %v", err)
	}
	if failed != 2 {
		t.Fatalf("expected 2 stale tasks failed, got %d", failed)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestPostgresGetMissingReturnsNil(t *testing.T) {
	mock, store := newMockStore(t)

	mock.ExpectQuery("SELECT .+ FROM message_tasks WHERE id").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	task, err := store.Get(context.Background(), "missing")
	if err != nil {
		t.Fatalf("expected no error for missing task, got %v", err)
	}
	if task != nil {
		t.Fatalf("expected nil task, got %+v", task)
	}
}

func TestPostgresPurgeFinished(t *testing.T) {
	mock, store := newMockStore(t)

	cutoff := time.Now().Add(-7 * 24 * time.Hour)
	mock.ExpectExec("DELETE FROM message_tasks").
		WithArgs(cutoff).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	purged, err := store.PurgeFinished(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if purged != 3 {
		t.Fatalf("expected 3 purged, got %d", purged)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
