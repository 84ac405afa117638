package domain

// Product 是参加活动的商品聚合视图，Stock 来自持久层的库存台账。
type Product struct {
	ProductID    int64   `json:"productId"`
	ProductName  string  `json:"productName"`
	ProductPrice float64 `json:"productPrice"`
	ProductSales int     `json:"productSales"`
	Stock        int     `json:"stock"`
	Status       int     `json:"status"`
}

// Buyer 是下单买家的最小视图。
type Buyer struct {
	BuyerID   int64  `json:"buyerId"`
	BuyerName string `json:"buyerName"`
	Status    int    `json:"status"`
}

// OrderDraft 是下单请求携带的订单数据，由外部订单服务真正落库。
type OrderDraft struct {
	BuyerID   int64 `json:"buyerId"`
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}
