package models

// SearchResponse is the 200 body of GET /search.
type SearchResponse struct {
	Success bool `json:"success"`

	// Data is nil when the site reported no matching deals.
	Data *Deal `json:"data"`

	// Message is set only when Data is nil.
	Message string `json:"message,omitempty"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// Deal is the summary of the first search result.
type Deal struct {
	Name     string `json:"name"`
	Prices   Prices `json:"prices"`
	Supplier string `json:"supplier"`
}

// Prices is the price breakdown of a deal, in minor currency units.
type Prices struct {
	ListPrice        int    `json:"list_price"`
	SellPrice        int    `json:"sell_price"`
	Discount         int    `json:"discount"`
	IsoCodeCurrency  string `json:"isocode_currency"`
	CurrencyExponent int    `json:"currency_exponent"`
}

// HealthResponse is the response for GET /health.
type HealthResponse struct {
	Status    string    `json:"status"` // "ok" or "unavailable"
	Uptime    string    `json:"uptime"`
	PoolStats PoolStats `json:"pool_stats"`
	Version   string    `json:"version"`
}

// PoolStats reports the state of the concurrency gate.
type PoolStats struct {
	MaxPages    int `json:"max_pages"`
	ActivePages int `json:"active_pages"`
}
