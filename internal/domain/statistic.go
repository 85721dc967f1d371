package domain

// SalesStatistic aggregates revenue over all order items.
type SalesStatistic struct {
	TotalSales       float64         `json:"totalSales"`
	BestProductID    int64           `json:"bestProductId,omitempty"`
	BestProduct      string          `json:"bestProduct"`
	BestProductSales float64         `json:"bestProductSales"`
	Customers        []CustomerSales `json:"customers"`
}

// CustomerSales is one row of the per-customer breakdown.
type CustomerSales struct {
	CustomerID     int64   `json:"customerId"`
	CustomerName   string  `json:"customerName"`
	NumberOfOrders int     `json:"numberOfOrders"`
	TotalSales     float64 `json:"totalSales"`
}

// OrderSummary is the projected list row served by the paged order endpoint.
type OrderSummary struct {
	ID           int64   `json:"id"`
	OrderNr      string  `json:"orderNr"`
	CustomerName string  `json:"customerName"`
	Total        float64 `json:"total"`
}
