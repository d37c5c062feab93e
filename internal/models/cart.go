package models

// SyncState tracks where the local cart cache stands relative to the server.
type SyncState int

const (
	SyncIdle SyncState = iota
	SyncLoading
	SyncError
)

// String returns a short name for the sync state.
func (s SyncState) String() string {
	switch s {
	case SyncIdle:
		return "idle"
	case SyncLoading:
		return "loading"
	case SyncError:
		return "error"
	default:
		return "unknown"
	}
}

// CartItem is one NFT held in the cart.
type CartItem struct {
	NFTID          int64    `json:"id"`
	Title          string   `json:"title"`
	Price          float64  `json:"price"`
	ImageURLs      []string `json:"imageUrls"`
	PhysicalPieces int      `json:"physicalPieces"`
}

// Cart mirrors the server-side cart. The server owns the contents; Items is a
// cache that is replaced wholesale after every mutation. An empty Items with a
// non-empty CartID is a valid, empty-but-existing cart.
type Cart struct {
	CartID    string     `json:"cartId"`
	Items     []CartItem `json:"nfts"`
	SyncState SyncState  `json:"-"`
	SyncError string     `json:"-"`
}

// Active returns true if a server-side cart exists for this session.
func (c *Cart) Active() bool {
	return c.CartID != ""
}

// Subtotal sums the price of every item in the cart.
func (c *Cart) Subtotal() float64 {
	var total float64
	for _, item := range c.Items {
		total += item.Price
	}
	return total
}
