package models

import "time"

// SaleRecord is the immutable receipt produced by a successful checkout.
// The client displays it once and never mutates it.
type SaleRecord struct {
	SaleID      int64     `json:"saleId,omitempty"`
	CartID      string    `json:"cartId"`
	ConfirmedAt time.Time `json:"confirmedAt,omitzero"`
	SaleDate    time.Time `json:"saleDate,omitzero"`
	SalePrice   float64   `json:"salePrice"`
	NFTs        []NFT     `json:"nfts,omitempty"`
}
