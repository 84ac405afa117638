package interfaces

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"seckill/internal/service/order/application"
)

const serviceName = "order-service"

// OrderHandler 封装了订单服务的 HTTP 处理器
type OrderHandler struct {
	service *application.OrderApplicationService
}

func NewOrderHandler(service *application.OrderApplicationService) *OrderHandler {
	return &OrderHandler{service: service}
}

// RegisterRoutes 在 ServeMux 上注册所有路由
func (h *OrderHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/create_seckill_order", h.createSeckillOrderHandler)
}

func (h *OrderHandler) createSeckillOrderHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	propagator := otel.GetTextMapPropagator()
	ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))

	tracer := otel.Tracer(serviceName)
	ctx, span := tracer.Start(ctx, "api.CreateSeckillOrder")
	defer span.End()

	buyerID, err1 := strconv.ParseInt(r.FormValue("buyerId"), 10, 64)
	productID, err2 := strconv.ParseInt(r.FormValue("productId"), 10, 64)
	quantity, err3 := strconv.Atoi(r.FormValue("quantity"))
	if err1 != nil || err2 != nil || err3 != nil {
		http.Error(w, "buyerId, productId and quantity are required", http.StatusBadRequest)
		return
	}
	promoID, _ := strconv.ParseInt(r.FormValue("promoId"), 10, 64)

	order, err := h.service.CreateSeckillOrder(ctx, &application.CreateOrderRequest{
		BuyerID:    buyerID,
		ProductID:  productID,
		Quantity:   quantity,
		PromoID:    promoID,
		StockLogID: r.FormValue("stockLogId"),
	})
	if err != nil {
		span.RecordError(err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"orderId": order.OrderID})
}
