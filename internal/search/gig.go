// Package search reads gig listings out of elasticsearch
package search

import "encoding/json"

// emptyGig is what a lookup answers when there is no gig to show
var emptyGig = json.RawMessage(`{}`)

// sortKey is the only part of a listing the paginator looks at. Listings
// are owned by the gig service and pass through untouched.
type sortKey struct {
	SortID float64 `json:"sortId"`
}

type Direction string

const (
	Forward  Direction = "forward"
	Backward Direction = "backward"
)

// Cursor points at the last gig the caller has seen. From is "0" on the
// first page.
type Cursor struct {
	From      string
	Size      int
	Direction Direction
}

type Request struct {
	Query        string
	DeliveryTime string
	MinPrice     string
	MaxPrice     string
	Cursor       Cursor
}

// Result holds the matching listings exactly as they are indexed
type Result struct {
	Total int               `json:"total"`
	Hits  []json.RawMessage `json:"gigs"`
}
