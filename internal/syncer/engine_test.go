package syncer

import (
	"context"
	"errors"
	"testing"
	"time"

	"agrovet-pos/internal/connectivity"
	"agrovet-pos/internal/model"
	"agrovet-pos/internal/remote"
	"agrovet-pos/internal/store"
)

func testConfig() Config {
	return Config{
		Interval:   time.Hour,
		MaxRetries: 3,
		RetryDelay: time.Millisecond,
	}
}

func pendingSale(id, productID string, quantity int) model.Sale {
	return model.Sale{
		ID:         id,
		ShopID:     "shop-1",
		ProductID:  productID,
		Quantity:   quantity,
		TotalPrice: 100,
	}
}

func TestRunPassSyncsPendingSales(t *testing.T) {
	st := newFakeStore()
	rs := newFakeRemote()
	rs.quantities["prod-1"] = 10
	monitor := connectivity.NewMonitor(true, false)
	engine := NewEngine(st, rs, monitor, testConfig())
	ctx := context.Background()

	if err := st.PutSale(ctx, pendingSale("sale-1", "prod-1", 2)); err != nil {
		t.Fatalf("seed: %v", err)
	}

	result, err := engine.RunPass(ctx)
	if err != nil {
		t.Fatalf("pass: %v", err)
	}
	if result.Synced != 1 || result.Aborted {
		t.Fatalf("unexpected result: %+v", result)
	}

	got, err := st.GetSale(ctx, "sale-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.Synced {
		t.Fatal("sale not marked synced")
	}
	if rs.quantities["prod-1"] != 8 {
		t.Fatalf("expected remote stock 8, got %d", rs.quantities["prod-1"])
	}
	if rs.sales["sale-1"].PaymentMethod != model.DefaultPaymentMethod {
		t.Fatalf("payment method not defaulted: %q", rs.sales["sale-1"].PaymentMethod)
	}

	// Second pass has nothing to do.
	result, err = engine.RunPass(ctx)
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if result.Synced != 0 {
		t.Fatalf("expected idle pass, got %+v", result)
	}
	inserts, _ := rs.counts()
	if inserts != 1 {
		t.Fatalf("expected 1 insert total, got %d", inserts)
	}
}

func TestRunPassAlreadyRemoteMarkedWithoutReinsert(t *testing.T) {
	st := newFakeStore()
	rs := newFakeRemote()
	monitor := connectivity.NewMonitor(true, false)
	engine := NewEngine(st, rs, monitor, testConfig())
	ctx := context.Background()

	// The remote already holds the sale: a previous run crashed between
	// the insert and the local mark.
	rs.sales["sale-1"] = pendingSale("sale-1", "prod-1", 2)
	if err := st.PutSale(ctx, pendingSale("sale-1", "prod-1", 2)); err != nil {
		t.Fatalf("seed: %v", err)
	}

	result, err := engine.RunPass(ctx)
	if err != nil {
		t.Fatalf("pass: %v", err)
	}
	if result.Synced != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}

	inserts, decrements := rs.counts()
	if inserts != 0 || decrements != 0 {
		t.Fatalf("duplicate submission: inserts=%d decrements=%d", inserts, decrements)
	}
	got, _ := st.GetSale(ctx, "sale-1")
	if !got.Synced {
		t.Fatal("sale not marked synced")
	}
}

func TestRunPassConflictCountsAsSynced(t *testing.T) {
	st := newFakeStore()
	rs := newFakeRemote()
	monitor := connectivity.NewMonitor(true, false)
	engine := NewEngine(st, rs, monitor, testConfig())
	ctx := context.Background()

	// Exists-check misses but the insert races a concurrent writer.
	rs.setInsertErr(remote.ErrConflict)

	if err := st.PutSale(ctx, pendingSale("sale-1", "prod-1", 1)); err != nil {
		t.Fatalf("seed: %v", err)
	}

	result, err := engine.RunPass(ctx)
	if err != nil {
		t.Fatalf("pass: %v", err)
	}
	if result.Synced != 1 || result.Aborted {
		t.Fatalf("conflict must count as synced: %+v", result)
	}

	_, decrements := rs.counts()
	if decrements != 0 {
		t.Fatalf("stock must not be decremented on conflict, got %d calls", decrements)
	}
	got, _ := st.GetSale(ctx, "sale-1")
	if !got.Synced {
		t.Fatal("sale not marked synced after conflict")
	}
}

func TestRunPassAbortsAfterRetriesExhausted(t *testing.T) {
	st := newFakeStore()
	rs := newFakeRemote()
	monitor := connectivity.NewMonitor(true, false)
	engine := NewEngine(st, rs, monitor, testConfig())
	ctx := context.Background()

	rs.setInsertErr(errors.New("connection reset"))

	if err := st.PutSale(ctx, pendingSale("sale-1", "prod-1", 1)); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := st.PutSale(ctx, pendingSale("sale-2", "prod-1", 1)); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := st.PutCustomer(ctx, model.Customer{ID: "cust-1", ShopID: "shop-1", Name: "Njeri"}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	result, err := engine.RunPass(ctx)
	if err != nil {
		t.Fatalf("pass: %v", err)
	}
	if !result.Aborted || result.Synced != 0 {
		t.Fatalf("expected aborted pass, got %+v", result)
	}

	// The first record burned the whole retry budget; the second was
	// never attempted and the customer pass never started.
	inserts, _ := rs.counts()
	if inserts != 3 {
		t.Fatalf("expected 3 insert attempts, got %d", inserts)
	}
	if rs.upsertCusts != 0 {
		t.Fatalf("customer pass ran after abort: %d calls", rs.upsertCusts)
	}

	// Everything stays pending for the next pass.
	count, _ := st.CountUnsynced(ctx)
	if count != 3 {
		t.Fatalf("expected 3 records still pending, got %d", count)
	}

	// A later pass with a healthy remote converges.
	rs.setInsertErr(nil)
	result, err = engine.RunPass(ctx)
	if err != nil {
		t.Fatalf("recovery pass: %v", err)
	}
	if result.Aborted || result.Synced != 3 {
		t.Fatalf("expected full recovery, got %+v", result)
	}
	count, _ = st.CountUnsynced(ctx)
	if count != 0 {
		t.Fatalf("expected nothing pending, got %d", count)
	}
}

func TestRunPassSkipsInvalidSales(t *testing.T) {
	st := newFakeStore()
	rs := newFakeRemote()
	monitor := connectivity.NewMonitor(true, false)
	engine := NewEngine(st, rs, monitor, testConfig())
	ctx := context.Background()

	// A malformed row, e.g. written by an older build.
	st.putRaw(model.Sale{ID: "sale-bad", ShopID: "shop-1", ProductID: "", Quantity: 1})
	if err := st.PutSale(ctx, pendingSale("sale-ok", "prod-1", 1)); err != nil {
		t.Fatalf("seed: %v", err)
	}

	result, err := engine.RunPass(ctx)
	if err != nil {
		t.Fatalf("pass: %v", err)
	}
	if result.Invalid != 1 || result.Synced != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}

	// The invalid record is neither submitted nor deleted.
	if _, ok := rs.sales["sale-bad"]; ok {
		t.Fatal("invalid sale reached the remote store")
	}
	got, err := st.GetSale(ctx, "sale-bad")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Synced {
		t.Fatal("invalid sale marked synced")
	}
}

func TestRunPassOffline(t *testing.T) {
	st := newFakeStore()
	rs := newFakeRemote()
	monitor := connectivity.NewMonitor(false, false)
	engine := NewEngine(st, rs, monitor, testConfig())

	_, err := engine.RunPass(context.Background())
	if !errors.Is(err, ErrOffline) {
		t.Fatalf("expected ErrOffline, got %v", err)
	}
}

func TestRunPassRejectsConcurrentPass(t *testing.T) {
	st := newFakeStore()
	rs := newFakeRemote()
	monitor := connectivity.NewMonitor(true, false)
	engine := NewEngine(st, rs, monitor, testConfig())

	// Hold the busy slot as a running pass would.
	if !engine.acquire() {
		t.Fatal("could not acquire busy slot")
	}
	defer engine.release()

	_, err := engine.RunPass(context.Background())
	if !errors.Is(err, ErrSyncInProgress) {
		t.Fatalf("expected ErrSyncInProgress, got %v", err)
	}
}

func TestRunPassProductsAndCustomers(t *testing.T) {
	st := newFakeStore()
	rs := newFakeRemote()
	monitor := connectivity.NewMonitor(true, false)
	engine := NewEngine(st, rs, monitor, testConfig())
	ctx := context.Background()

	if err := st.PutProduct(ctx, model.Product{ID: "prod-1", ShopID: "shop-1", Name: "Acaricide 1L"}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := st.PutCustomer(ctx, model.Customer{ID: "cust-1", ShopID: "shop-1", Name: "Njeri"}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	result, err := engine.RunPass(ctx)
	if err != nil {
		t.Fatalf("pass: %v", err)
	}
	if result.Synced != 2 || result.Aborted {
		t.Fatalf("unexpected result: %+v", result)
	}
	if _, ok := rs.products["prod-1"]; !ok {
		t.Fatal("product not upserted remotely")
	}
	if _, ok := rs.customers["cust-1"]; !ok {
		t.Fatal("customer not upserted remotely")
	}
	count, _ := st.CountUnsynced(ctx)
	if count != 0 {
		t.Fatalf("expected nothing pending, got %d", count)
	}
}

func TestReconcileSingleSale(t *testing.T) {
	st := newFakeStore()
	rs := newFakeRemote()
	rs.quantities["prod-1"] = 5
	monitor := connectivity.NewMonitor(true, false)
	engine := NewEngine(st, rs, monitor, testConfig())
	ctx := context.Background()

	if err := st.PutSale(ctx, pendingSale("sale-1", "prod-1", 1)); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if err := engine.Reconcile(ctx, model.KindSale, "sale-1"); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	got, _ := st.GetSale(ctx, "sale-1")
	if !got.Synced {
		t.Fatal("sale not synced")
	}

	// Reconciling an already-synced record is a no-op.
	if err := engine.Reconcile(ctx, model.KindSale, "sale-1"); err != nil {
		t.Fatalf("second reconcile: %v", err)
	}
	inserts, _ := rs.counts()
	if inserts != 1 {
		t.Fatalf("expected 1 insert, got %d", inserts)
	}
}

func TestReconcileUnknownRecord(t *testing.T) {
	st := newFakeStore()
	rs := newFakeRemote()
	monitor := connectivity.NewMonitor(true, false)
	engine := NewEngine(st, rs, monitor, testConfig())

	err := engine.Reconcile(context.Background(), model.KindSale, "missing")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestReconcileInvalidSale(t *testing.T) {
	st := newFakeStore()
	rs := newFakeRemote()
	monitor := connectivity.NewMonitor(true, false)
	engine := NewEngine(st, rs, monitor, testConfig())

	st.putRaw(model.Sale{ID: "sale-bad", ShopID: "shop-1", Quantity: 0})

	err := engine.Reconcile(context.Background(), model.KindSale, "sale-bad")
	if !store.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSchedulerTriggersOnOnlineEdge(t *testing.T) {
	st := newFakeStore()
	rs := newFakeRemote()
	monitor := connectivity.NewMonitor(false, false)
	engine := NewEngine(st, rs, monitor, testConfig())
	ctx := context.Background()

	if err := st.PutSale(ctx, pendingSale("sale-1", "prod-1", 1)); err != nil {
		t.Fatalf("seed: %v", err)
	}

	scheduler := NewScheduler(engine, monitor)
	scheduler.Start()
	defer scheduler.Stop()

	// Offline: nothing happens.
	time.Sleep(50 * time.Millisecond)
	if count, _ := st.CountUnsynced(ctx); count != 1 {
		t.Fatalf("sync ran while offline, %d pending", count)
	}

	monitor.SetOnline(true)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if count, _ := st.CountUnsynced(ctx); count == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("coming online did not trigger a sync pass")
}
