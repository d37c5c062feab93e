package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/galeria-market/galeria-client/internal/client"
	"github.com/galeria-market/galeria-client/internal/common"
	"github.com/galeria-market/galeria-client/internal/interfaces"
	"github.com/galeria-market/galeria-client/internal/models"
	"github.com/galeria-market/galeria-client/internal/storage/memory"
)

// fakeStore is a stateful fake of the storefront cart API. Prices come from
// a fixed catalog keyed by nft id.
type fakeStore struct {
	mu          sync.Mutex
	nextCartID  int
	carts       map[string][]models.CartItem
	createCalls int
	updateDelay time.Duration
	updateBegan chan struct{}
}

var fakeCatalog = map[int64]models.CartItem{
	42: {NFTID: 42, Title: "Dusk", Price: 10, PhysicalPieces: 1},
	7:  {NFTID: 7, Title: "Tide", Price: 2.5, PhysicalPieces: 1},
}

func newFakeStore() *fakeStore {
	return &fakeStore{carts: make(map[string][]models.CartItem)}
}

func (f *fakeStore) items(cartID string) ([]models.CartItem, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	items, ok := f.carts[cartID]
	return append([]models.CartItem(nil), items...), ok
}

func (f *fakeStore) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/api/cart")
		switch {
		case r.Method == http.MethodPost && path == "/items":
			f.handleCreate(w, r)
		case r.Method == http.MethodPost && strings.HasPrefix(path, "/checkout/"):
			f.handleCheckout(w, strings.TrimPrefix(path, "/checkout/"))
		case r.Method == http.MethodGet:
			f.handleGet(w, strings.TrimPrefix(path, "/"))
		case r.Method == http.MethodPut:
			f.handleUpdate(w, r, strings.TrimPrefix(path, "/"))
		case r.Method == http.MethodDelete && strings.Contains(path, "/items/"):
			parts := strings.SplitN(strings.TrimPrefix(path, "/"), "/items/", 2)
			f.handleRemoveItem(w, parts[0], parts[1])
		case r.Method == http.MethodDelete:
			f.handleDeleteCart(w, strings.TrimPrefix(path, "/"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

func (f *fakeStore) handleCreate(w http.ResponseWriter, r *http.Request) {
	var ref client.CartItemRef
	json.NewDecoder(r.Body).Decode(&ref)

	f.mu.Lock()
	f.createCalls++
	f.nextCartID++
	cartID := fmt.Sprintf("c-%d", f.nextCartID)
	f.carts[cartID] = []models.CartItem{f.resolve(ref)}
	f.mu.Unlock()

	json.NewEncoder(w).Encode(map[string]string{"cartId": cartID})
}

// resolve builds a full cart item from the catalog.
func (f *fakeStore) resolve(ref client.CartItemRef) models.CartItem {
	item, ok := fakeCatalog[ref.NFTID]
	if !ok {
		item = models.CartItem{NFTID: ref.NFTID, Title: "unknown"}
	}
	if ref.PhysicalPieces > 0 {
		item.PhysicalPieces = ref.PhysicalPieces
	}
	return item
}

func (f *fakeStore) handleUpdate(w http.ResponseWriter, r *http.Request, cartID string) {
	if f.updateDelay > 0 {
		if f.updateBegan != nil {
			f.updateBegan <- struct{}{}
		}
		time.Sleep(f.updateDelay)
	}

	var refs []client.CartItemRef
	json.NewDecoder(r.Body).Decode(&refs)

	f.mu.Lock()
	defer f.mu.Unlock()
	items, ok := f.carts[cartID]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"cart not found"}`))
		return
	}
	for _, ref := range refs {
		updated := false
		for i := range items {
			if items[i].NFTID == ref.NFTID {
				items[i].PhysicalPieces = ref.PhysicalPieces
				updated = true
			}
		}
		if !updated {
			items = append(items, f.resolve(ref))
		}
	}
	f.carts[cartID] = items
	w.WriteHeader(http.StatusOK)
}

func (f *fakeStore) handleGet(w http.ResponseWriter, cartID string) {
	f.mu.Lock()
	items, ok := f.carts[cartID]
	f.mu.Unlock()
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"cart not found"}`))
		return
	}
	json.NewEncoder(w).Encode(map[string]any{"cartId": cartID, "nfts": items})
}

func (f *fakeStore) handleRemoveItem(w http.ResponseWriter, cartID, nftID string) {
	id, _ := strconv.ParseInt(nftID, 10, 64)
	f.mu.Lock()
	defer f.mu.Unlock()
	items, ok := f.carts[cartID]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	kept := items[:0]
	for _, item := range items {
		if item.NFTID != id {
			kept = append(kept, item)
		}
	}
	f.carts[cartID] = kept
	w.WriteHeader(http.StatusOK)
}

func (f *fakeStore) handleDeleteCart(w http.ResponseWriter, cartID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.carts[cartID]; !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	delete(f.carts, cartID)
	w.WriteHeader(http.StatusOK)
}

func (f *fakeStore) handleCheckout(w http.ResponseWriter, cartID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	items, ok := f.carts[cartID]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"cart not found"}`))
		return
	}
	if len(items) == 0 {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"cart is empty"}`))
		return
	}
	var total float64
	for _, item := range items {
		total += item.Price
	}
	delete(f.carts, cartID)
	json.NewEncoder(w).Encode(map[string]any{
		"cartId":      cartID,
		"confirmedAt": time.Now().UTC().Format(time.RFC3339),
		"salePrice":   total,
	})
}

func newTestSynchronizer(t *testing.T, f *fakeStore) (*Synchronizer, interfaces.KeyValueStorage) {
	t.Helper()
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)
	kv := memory.NewKVStorage()
	api := client.New(srv.URL, 5*time.Second, common.NewSilentLogger())
	return NewSynchronizer(api, kv, common.NewSilentLogger()), kv
}

func TestAddItem_CreatesCartOnFirstAdd(t *testing.T) {
	f := newFakeStore()
	s, kv := newTestSynchronizer(t, f)
	ctx := context.Background()

	if err := s.AddItem(ctx, 42, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.CartID() != "c-1" {
		t.Errorf("expected cart id c-1, got %q", s.CartID())
	}
	if f.createCalls != 1 {
		t.Errorf("expected 1 create call, got %d", f.createCalls)
	}

	// Cart id is persisted
	if id, err := kv.Get(ctx, keyCartID); err != nil || id != "c-1" {
		t.Errorf("expected persisted cart id c-1, got %q (err=%v)", id, err)
	}

	snapshot := s.Snapshot()
	if len(snapshot.Items) != 1 || snapshot.Items[0].NFTID != 42 {
		t.Errorf("unexpected items after add: %+v", snapshot.Items)
	}
	if snapshot.SyncState != models.SyncIdle {
		t.Errorf("expected idle state, got %v", snapshot.SyncState)
	}
}

func TestAddItem_SecondAddDoesNotCreateSecondCart(t *testing.T) {
	f := newFakeStore()
	s, _ := newTestSynchronizer(t, f)
	ctx := context.Background()

	s.AddItem(ctx, 42, 1)
	if err := s.AddItem(ctx, 7, 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if f.createCalls != 1 {
		t.Errorf("expected exactly 1 cart creation, got %d", f.createCalls)
	}
	if s.CartID() != "c-1" {
		t.Errorf("expected cart id unchanged, got %q", s.CartID())
	}
	if len(s.Snapshot().Items) != 2 {
		t.Errorf("expected 2 items, got %+v", s.Snapshot().Items)
	}
}

func TestMutations_LocalMatchesServerExactly(t *testing.T) {
	f := newFakeStore()
	s, _ := newTestSynchronizer(t, f)
	ctx := context.Background()

	s.AddItem(ctx, 42, 1)
	s.AddItem(ctx, 7, 2)
	s.UpdateQuantity(ctx, 42, 3)

	serverItems, ok := f.items(s.CartID())
	if !ok {
		t.Fatal("expected server cart to exist")
	}
	local := s.Snapshot().Items
	if len(local) != len(serverItems) {
		t.Fatalf("local has %d items, server has %d", len(local), len(serverItems))
	}
	for i := range local {
		if !reflect.DeepEqual(local[i], serverItems[i]) {
			t.Errorf("item %d: local %+v != server %+v", i, local[i], serverItems[i])
		}
	}
}

func TestFetchCart_NoActiveCart(t *testing.T) {
	s, _ := newTestSynchronizer(t, newFakeStore())

	_, err := s.FetchCart(context.Background())
	if !errors.Is(err, ErrNoActiveCart) {
		t.Fatalf("expected ErrNoActiveCart, got %v", err)
	}
}

func TestFetchCart_ReplacesItemsWholesale(t *testing.T) {
	f := newFakeStore()
	s, _ := newTestSynchronizer(t, f)
	ctx := context.Background()

	s.AddItem(ctx, 42, 1)

	// Server-side change the client has not seen
	f.mu.Lock()
	f.carts["c-1"] = []models.CartItem{fakeCatalog[7]}
	f.mu.Unlock()

	snapshot, err := s.FetchCart(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(snapshot.Items) != 1 || snapshot.Items[0].NFTID != 7 {
		t.Errorf("expected fetch to adopt server state, got %+v", snapshot.Items)
	}
}

func TestRemoveItem_LastItemLeavesEmptyCart(t *testing.T) {
	f := newFakeStore()
	s, _ := newTestSynchronizer(t, f)
	ctx := context.Background()

	s.AddItem(ctx, 42, 1)
	if err := s.RemoveItem(ctx, 42); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snapshot := s.Snapshot()
	if len(snapshot.Items) != 0 {
		t.Errorf("expected empty items, got %+v", snapshot.Items)
	}
	if snapshot.CartID != "c-1" {
		t.Errorf("expected cart id to survive item removal, got %q", snapshot.CartID)
	}
}

func TestRemoveItem_NoActiveCart(t *testing.T) {
	s, _ := newTestSynchronizer(t, newFakeStore())
	if err := s.RemoveItem(context.Background(), 42); !errors.Is(err, ErrNoActiveCart) {
		t.Fatalf("expected ErrNoActiveCart, got %v", err)
	}
}

func TestUpdateQuantity_ChangesPieceCount(t *testing.T) {
	f := newFakeStore()
	s, _ := newTestSynchronizer(t, f)
	ctx := context.Background()

	s.AddItem(ctx, 42, 1)
	if err := s.UpdateQuantity(ctx, 42, 4); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	items := s.Snapshot().Items
	if len(items) != 1 || items[0].PhysicalPieces != 4 {
		t.Errorf("expected 4 pieces after update, got %+v", items)
	}
}

func TestDeleteCart_ClearsStateAndRequiresNewCart(t *testing.T) {
	f := newFakeStore()
	s, kv := newTestSynchronizer(t, f)
	ctx := context.Background()

	s.AddItem(ctx, 42, 1)
	if err := s.DeleteCart(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.CartID() != "" {
		t.Errorf("expected cart id cleared, got %q", s.CartID())
	}
	if _, err := kv.Get(ctx, keyCartID); !errors.Is(err, interfaces.ErrNotFound) {
		t.Errorf("expected persisted cart id cleared, got err=%v", err)
	}

	// Mutations now fail until a new cart is created
	if err := s.RemoveItem(ctx, 42); !errors.Is(err, ErrNoActiveCart) {
		t.Errorf("expected ErrNoActiveCart after delete, got %v", err)
	}
	if err := s.UpdateQuantity(ctx, 42, 1); !errors.Is(err, ErrNoActiveCart) {
		t.Errorf("expected ErrNoActiveCart after delete, got %v", err)
	}

	// A fresh add creates a new cart
	if err := s.AddItem(ctx, 7, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.CartID() != "c-2" {
		t.Errorf("expected new cart c-2, got %q", s.CartID())
	}
}

func TestDeleteCart_ServerFailureStillClearsLocally(t *testing.T) {
	f := newFakeStore()
	s, _ := newTestSynchronizer(t, f)
	ctx := context.Background()

	s.AddItem(ctx, 42, 1)

	// Remove the cart behind the client's back so the delete call fails
	f.mu.Lock()
	delete(f.carts, "c-1")
	f.mu.Unlock()

	err := s.DeleteCart(ctx)
	if !errors.Is(err, ErrCartDelete) {
		t.Fatalf("expected ErrCartDelete, got %v", err)
	}
	if s.CartID() != "" {
		t.Errorf("expected local cart cleared despite server failure, got %q", s.CartID())
	}
}

func TestCheckout_EmptyCartRejected(t *testing.T) {
	f := newFakeStore()
	s, _ := newTestSynchronizer(t, f)
	ctx := context.Background()

	s.AddItem(ctx, 42, 1)
	s.RemoveItem(ctx, 42) // empty-but-existing cart

	_, err := s.Checkout(ctx)
	if !errors.Is(err, ErrCheckout) {
		t.Fatalf("expected ErrCheckout, got %v", err)
	}
	if !strings.Contains(err.Error(), "cart is empty") {
		t.Errorf("expected server message in error, got %v", err)
	}
	if s.CartID() != "c-1" {
		t.Errorf("expected cart id unchanged on failed checkout, got %q", s.CartID())
	}
}

func TestCheckout_Success(t *testing.T) {
	f := newFakeStore()
	s, kv := newTestSynchronizer(t, f)
	ctx := context.Background()

	s.AddItem(ctx, 42, 1) // one $10 item

	record, err := s.Checkout(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.CartID != "c-1" {
		t.Errorf("expected receipt for c-1, got %q", record.CartID)
	}
	if record.SalePrice != 10 {
		t.Errorf("expected sale price 10, got %v", record.SalePrice)
	}
	if record.ConfirmedAt.IsZero() {
		t.Error("expected confirmedAt to be set")
	}

	if s.CartID() != "" {
		t.Errorf("expected cart cleared after checkout, got %q", s.CartID())
	}
	if _, err := kv.Get(ctx, keyCartID); !errors.Is(err, interfaces.ErrNotFound) {
		t.Errorf("expected persisted cart id cleared, got err=%v", err)
	}
}

func TestCheckout_NoActiveCart(t *testing.T) {
	s, _ := newTestSynchronizer(t, newFakeStore())
	if _, err := s.Checkout(context.Background()); !errors.Is(err, ErrNoActiveCart) {
		t.Fatalf("expected ErrNoActiveCart, got %v", err)
	}
}

func TestConcurrentMutationRejected(t *testing.T) {
	f := newFakeStore()
	s, _ := newTestSynchronizer(t, f)
	ctx := context.Background()

	s.AddItem(ctx, 42, 1)

	f.updateDelay = 300 * time.Millisecond
	f.updateBegan = make(chan struct{}, 1)

	done := make(chan error, 1)
	go func() {
		done <- s.AddItem(ctx, 7, 1)
	}()

	// Wait until the first mutation is in flight on the server
	<-f.updateBegan

	if err := s.AddItem(ctx, 7, 2); !errors.Is(err, ErrSyncInFlight) {
		t.Errorf("expected ErrSyncInFlight for overlapping mutation, got %v", err)
	}
	if _, err := s.FetchCart(ctx); !errors.Is(err, ErrSyncInFlight) {
		t.Errorf("expected ErrSyncInFlight for overlapping fetch, got %v", err)
	}

	if err := <-done; err != nil {
		t.Fatalf("first mutation failed: %v", err)
	}
}

func TestSyncStateMachine(t *testing.T) {
	f := newFakeStore()
	s, _ := newTestSynchronizer(t, f)
	ctx := context.Background()

	var mu sync.Mutex
	var states []models.SyncState
	s.Subscribe(func(c models.Cart) {
		mu.Lock()
		states = append(states, c.SyncState)
		mu.Unlock()
	})

	if err := s.AddItem(ctx, 42, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mu.Lock()
	got := append([]models.SyncState(nil), states...)
	mu.Unlock()
	if len(got) < 2 || got[0] != models.SyncLoading || got[len(got)-1] != models.SyncIdle {
		t.Errorf("expected Loading -> ... -> Idle, got %v", got)
	}
}

func TestSyncState_ErrorThenRetryClearsError(t *testing.T) {
	f := newFakeStore()
	s, _ := newTestSynchronizer(t, f)
	ctx := context.Background()

	s.AddItem(ctx, 42, 1)

	// Make the next update fail
	f.mu.Lock()
	delete(f.carts, "c-1")
	f.mu.Unlock()

	if err := s.UpdateQuantity(ctx, 42, 2); !errors.Is(err, ErrCartUpdate) {
		t.Fatalf("expected ErrCartUpdate, got %v", err)
	}
	snapshot := s.Snapshot()
	if snapshot.SyncState != models.SyncError {
		t.Errorf("expected error state, got %v", snapshot.SyncState)
	}
	if snapshot.SyncError == "" {
		t.Error("expected error message to be recorded")
	}

	// Restore the cart server-side; a new operation clears the error
	f.mu.Lock()
	f.carts["c-1"] = []models.CartItem{fakeCatalog[42]}
	f.mu.Unlock()

	if _, err := s.FetchCart(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	snapshot = s.Snapshot()
	if snapshot.SyncState != models.SyncIdle || snapshot.SyncError != "" {
		t.Errorf("expected error cleared after retry, got %+v", snapshot)
	}
}

func TestRestore_PersistedCartID(t *testing.T) {
	f := newFakeStore()
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)

	kv := memory.NewKVStorage()
	kv.Set(context.Background(), keyCartID, "c-9")
	f.carts["c-9"] = []models.CartItem{fakeCatalog[42]}

	api := client.New(srv.URL, 5*time.Second, common.NewSilentLogger())
	s := NewSynchronizer(api, kv, common.NewSilentLogger())

	if s.CartID() != "c-9" {
		t.Fatalf("expected restored cart id c-9, got %q", s.CartID())
	}
	snapshot, err := s.FetchCart(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(snapshot.Items) != 1 || snapshot.Items[0].NFTID != 42 {
		t.Errorf("unexpected items: %+v", snapshot.Items)
	}
}

func TestSubscriber_ReceivesSnapshotCopies(t *testing.T) {
	f := newFakeStore()
	s, _ := newTestSynchronizer(t, f)
	ctx := context.Background()

	var last models.Cart
	s.Subscribe(func(c models.Cart) { last = c })

	s.AddItem(ctx, 42, 1)

	// Mutating the delivered snapshot must not corrupt synchronizer state
	if len(last.Items) == 1 {
		last.Items[0].NFTID = 999
	}
	if items := s.Snapshot().Items; len(items) != 1 || items[0].NFTID != 42 {
		t.Errorf("synchronizer state was aliased by subscriber snapshot: %+v", items)
	}
}
