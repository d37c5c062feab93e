// Package cart mediates between the locally cached cart and the
// authoritative server-side cart. Every mutation re-fetches the full cart
// afterward so local state mirrors the server exactly — the cart is
// financially meaningful and must not drift. Mutation+refetch sequences are
// serialized per cart; a concurrent call is rejected with ErrSyncInFlight
// instead of risking a lost update.
package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/galeria-market/galeria-client/internal/client"
	"github.com/galeria-market/galeria-client/internal/common"
	"github.com/galeria-market/galeria-client/internal/interfaces"
	"github.com/galeria-market/galeria-client/internal/models"
)

var (
	// ErrNoActiveCart is returned by operations that need an existing cart
	// when none has been created yet (or it was deleted/checked out).
	ErrNoActiveCart = errors.New("no active cart")

	// ErrSyncInFlight is returned when a cart operation is attempted while a
	// previous mutation+refetch sequence is still outstanding.
	ErrSyncInFlight = errors.New("cart operation already in flight")

	ErrCartFetch      = errors.New("cart fetch failed")
	ErrCartCreate     = errors.New("cart creation failed")
	ErrCartUpdate     = errors.New("cart update failed")
	ErrCartItemRemove = errors.New("cart item removal failed")
	ErrCartDelete     = errors.New("cart deletion failed")
	ErrCheckout       = errors.New("checkout failed")
)

// keyCartID is the storage key for the persisted cart id.
const keyCartID = "cart.id"

// Subscriber receives a cart snapshot after every state change.
type Subscriber func(models.Cart)

// Synchronizer owns the local cart state. The server is the sole source of
// truth for cart contents; Items here is a cache replaced wholesale after
// every successful mutation.
type Synchronizer struct {
	api    *client.Client
	kv     interfaces.KeyValueStorage
	logger *common.Logger

	// opMu serializes whole mutation+refetch sequences. TryLock gives the
	// reject-while-in-flight behavior instead of queueing.
	opMu sync.Mutex

	mu    sync.Mutex
	state models.Cart
	gen   uint64
	subs  []Subscriber
}

// NewSynchronizer creates a cart synchronizer and restores any persisted
// cart id from storage.
func NewSynchronizer(api *client.Client, kv interfaces.KeyValueStorage, logger *common.Logger) *Synchronizer {
	s := &Synchronizer{
		api:    api,
		kv:     kv,
		logger: logger,
	}
	if id, err := kv.Get(context.Background(), keyCartID); err == nil && id != "" {
		s.state.CartID = id
	}
	return s
}

// Subscribe registers a subscriber for cart state changes.
func (s *Synchronizer) Subscribe(fn Subscriber) {
	s.mu.Lock()
	s.subs = append(s.subs, fn)
	s.mu.Unlock()
}

// Snapshot returns a copy of the current cart state.
func (s *Synchronizer) Snapshot() models.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyStateLocked()
}

// CartID returns the current cart id, or "" when no cart exists.
func (s *Synchronizer) CartID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.CartID
}

func (s *Synchronizer) copyStateLocked() models.Cart {
	snapshot := s.state
	snapshot.Items = make([]models.CartItem, len(s.state.Items))
	copy(snapshot.Items, s.state.Items)
	return snapshot
}

// publish sends the current snapshot to all subscribers. Called outside mu so
// a subscriber may read back through Snapshot without deadlocking.
func (s *Synchronizer) publish() {
	s.mu.Lock()
	snapshot := s.copyStateLocked()
	subs := make([]Subscriber, len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(snapshot)
	}
}

// beginOp moves the state machine to Loading (clearing any previous error)
// and returns the generation for this operation. Results from an older
// generation are discarded on arrival.
func (s *Synchronizer) beginOp() uint64 {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.state.SyncState = models.SyncLoading
	s.state.SyncError = ""
	s.mu.Unlock()
	s.publish()
	return gen
}

func (s *Synchronizer) endOpError(gen uint64, message string) {
	s.mu.Lock()
	if s.gen == gen {
		s.state.SyncState = models.SyncError
		s.state.SyncError = message
	}
	s.mu.Unlock()
	s.publish()
}

// FetchCart refreshes the local cache from the server. The server's item list
// replaces the local one wholesale — last fetch wins, no merge.
func (s *Synchronizer) FetchCart(ctx context.Context) (models.Cart, error) {
	if s.CartID() == "" {
		return models.Cart{}, ErrNoActiveCart
	}
	if !s.opMu.TryLock() {
		return models.Cart{}, ErrSyncInFlight
	}
	defer s.opMu.Unlock()

	gen := s.beginOp()
	if err := s.refresh(ctx, gen); err != nil {
		return models.Cart{}, err
	}
	return s.Snapshot(), nil
}

// refresh fetches the authoritative cart and applies it unless a newer
// operation has started since gen was taken.
func (s *Synchronizer) refresh(ctx context.Context, gen uint64) error {
	cartID := s.CartID()
	fetched, err := s.api.GetCart(ctx, cartID)
	if err != nil {
		message := client.Message(err)
		s.endOpError(gen, message)
		return fmt.Errorf("%w: %s", ErrCartFetch, message)
	}

	s.mu.Lock()
	if s.gen != gen {
		// A newer operation owns the state now; this result is stale.
		s.mu.Unlock()
		return nil
	}
	s.state.Items = fetched.Items
	s.state.SyncState = models.SyncIdle
	s.state.SyncError = ""
	s.mu.Unlock()
	s.publish()
	return nil
}

// mutateThenSync runs one mutation under the serialization lock and then
// re-fetches the full cart so local state matches the server exactly. The
// synchronizer never trusts its own optimistic append.
func (s *Synchronizer) mutateThenSync(ctx context.Context, sentinel error, op func(context.Context) error) error {
	if !s.opMu.TryLock() {
		return ErrSyncInFlight
	}
	defer s.opMu.Unlock()

	gen := s.beginOp()
	if err := op(ctx); err != nil {
		message := client.Message(err)
		s.endOpError(gen, message)
		return fmt.Errorf("%w: %s", sentinel, message)
	}
	return s.refresh(ctx, gen)
}

// AddItem puts one NFT into the cart. The first add creates the server-side
// cart and adopts its id; later adds append to the existing cart.
func (s *Synchronizer) AddItem(ctx context.Context, nftID int64, physicalPieces int) error {
	item := client.CartItemRef{NFTID: nftID, PhysicalPieces: physicalPieces}

	if s.CartID() == "" {
		return s.mutateThenSync(ctx, ErrCartCreate, func(ctx context.Context) error {
			cartID, err := s.api.CreateCartItem(ctx, item)
			if err != nil {
				return err
			}
			s.setCartID(ctx, cartID)
			return nil
		})
	}

	return s.mutateThenSync(ctx, ErrCartUpdate, func(ctx context.Context) error {
		return s.api.UpdateCart(ctx, s.CartID(), []client.CartItemRef{item})
	})
}

// RemoveItem deletes one NFT from the cart.
func (s *Synchronizer) RemoveItem(ctx context.Context, nftID int64) error {
	if s.CartID() == "" {
		return ErrNoActiveCart
	}
	return s.mutateThenSync(ctx, ErrCartItemRemove, func(ctx context.Context) error {
		return s.api.RemoveCartItem(ctx, s.CartID(), nftID)
	})
}

// UpdateQuantity changes the physical-piece count for one NFT in the cart.
func (s *Synchronizer) UpdateQuantity(ctx context.Context, nftID int64, physicalPieces int) error {
	if s.CartID() == "" {
		return ErrNoActiveCart
	}
	return s.mutateThenSync(ctx, ErrCartUpdate, func(ctx context.Context) error {
		ref := client.CartItemRef{NFTID: nftID, PhysicalPieces: physicalPieces}
		return s.api.UpdateCart(ctx, s.CartID(), []client.CartItemRef{ref})
	})
}

// DeleteCart deletes the server-side cart. Local cart id and items are
// cleared even when the server call fails, but the failure is still surfaced.
func (s *Synchronizer) DeleteCart(ctx context.Context) error {
	if s.CartID() == "" {
		return ErrNoActiveCart
	}
	if !s.opMu.TryLock() {
		return ErrSyncInFlight
	}
	defer s.opMu.Unlock()

	gen := s.beginOp()
	err := s.api.DeleteCart(ctx, s.CartID())
	s.clearCart(ctx, gen)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrCartDelete, client.Message(err))
	}
	return nil
}

// Checkout confirms the purchase. On success the local cart is cleared and
// the sale receipt returned; on failure the cart id is left untouched so the
// user can retry.
func (s *Synchronizer) Checkout(ctx context.Context) (*models.SaleRecord, error) {
	if s.CartID() == "" {
		return nil, ErrNoActiveCart
	}
	if !s.opMu.TryLock() {
		return nil, ErrSyncInFlight
	}
	defer s.opMu.Unlock()

	gen := s.beginOp()
	record, err := s.api.Checkout(ctx, s.CartID())
	if err != nil {
		message := client.Message(err)
		s.endOpError(gen, message)
		return nil, fmt.Errorf("%w: %s", ErrCheckout, message)
	}

	s.clearCart(ctx, gen)
	s.logger.Info().Str("cart_id", record.CartID).Msg("checkout confirmed")
	return record, nil
}

// setCartID adopts a server-assigned cart id and persists it.
func (s *Synchronizer) setCartID(ctx context.Context, cartID string) {
	s.mu.Lock()
	s.state.CartID = cartID
	s.mu.Unlock()

	if err := s.kv.Set(ctx, keyCartID, cartID); err != nil {
		s.logger.Warn().Err(err).Msg("failed to persist cart id")
	}
}

// clearCart drops local cart state and the persisted cart id.
func (s *Synchronizer) clearCart(ctx context.Context, gen uint64) {
	s.mu.Lock()
	if s.gen == gen {
		s.state = models.Cart{}
	}
	s.mu.Unlock()
	s.publish()

	if err := s.kv.Delete(ctx, keyCartID); err != nil {
		s.logger.Warn().Err(err).Msg("failed to clear persisted cart id")
	}
}
