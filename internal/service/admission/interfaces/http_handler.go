package interfaces

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"

	"seckill/internal/pkg/logger"
	"seckill/internal/service/admission/application"
	"seckill/internal/service/admission/domain"
)

const serviceName = "admission-service"

// AdmissionHandler 封装了准入服务的 HTTP 处理器
type AdmissionHandler struct {
	admission   *application.AdmissionService
	reservation *application.ReservationService
}

// NewAdmissionHandler 创建一个新的 HTTP 处理器实例
func NewAdmissionHandler(admission *application.AdmissionService, reservation *application.ReservationService) *AdmissionHandler {
	return &AdmissionHandler{admission: admission, reservation: reservation}
}

// RegisterRoutes 在 ServeMux 上注册所有路由
func (h *AdmissionHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/promo/publish", h.publishPromoHandler)
	mux.HandleFunc("/promo/token", h.issueTokenHandler)
	mux.HandleFunc("/order/place", h.placeOrderHandler)
	mux.HandleFunc("/stock/reserve", h.reserveStockHandler)
}

func (h *AdmissionHandler) publishPromoHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	propagator := otel.GetTextMapPropagator()
	ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))

	tracer := otel.Tracer(serviceName)
	ctx, span := tracer.Start(ctx, "api.PublishPromo")
	defer span.End()

	promoID, err := strconv.ParseInt(r.FormValue("promoId"), 10, 64)
	if err != nil {
		http.Error(w, "invalid promoId", http.StatusBadRequest)
		return
	}
	span.SetAttributes(attribute.Int64("promo.id", promoID))

	if err := h.admission.PublishPromo(ctx, promoID); err != nil {
		writeDomainError(ctx, w, err)
		return
	}
	writeJSON(w, map[string]string{"result": "published"})
}

func (h *AdmissionHandler) issueTokenHandler(w http.ResponseWriter, r *http.Request) {
	propagator := otel.GetTextMapPropagator()
	ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))

	tracer := otel.Tracer(serviceName)
	ctx, span := tracer.Start(ctx, "api.IssueToken")
	defer span.End()

	promoID, err1 := strconv.ParseInt(r.FormValue("promoId"), 10, 64)
	productID, err2 := strconv.ParseInt(r.FormValue("productId"), 10, 64)
	buyerID, err3 := strconv.ParseInt(r.FormValue("buyerId"), 10, 64)
	if err1 != nil || err2 != nil || err3 != nil {
		http.Error(w, "promoId, productId and buyerId are required", http.StatusBadRequest)
		return
	}
	span.SetAttributes(
		attribute.Int64("promo.id", promoID),
		attribute.Int64("product.id", productID),
		attribute.Int64("buyer.id", buyerID),
	)

	token, err := h.admission.IssueToken(ctx, promoID, productID, buyerID)
	if err != nil {
		writeDomainError(ctx, w, err)
		return
	}
	if token == "" {
		// 活动未开始、不满足资格或令牌发完，统一拒绝
		http.Error(w, "token refused", http.StatusForbidden)
		return
	}
	writeJSON(w, map[string]string{"token": token})
}

func (h *AdmissionHandler) placeOrderHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	propagator := otel.GetTextMapPropagator()
	ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))

	tracer := otel.Tracer(serviceName)
	ctx, span := tracer.Start(ctx, "api.PlaceOrder")
	defer span.End()

	productID, err1 := strconv.ParseInt(r.FormValue("productId"), 10, 64)
	buyerID, err2 := strconv.ParseInt(r.FormValue("buyerId"), 10, 64)
	if err1 != nil || err2 != nil {
		http.Error(w, "productId and buyerId are required", http.StatusBadRequest)
		return
	}
	quantity, _ := strconv.Atoi(r.FormValue("quantity"))
	if quantity <= 0 {
		quantity = 1
	}
	span.SetAttributes(
		attribute.Int64("product.id", productID),
		attribute.Int64("buyer.id", buyerID),
		attribute.Int("quantity", quantity),
	)

	// 秒杀活动下单必须先过令牌校验
	var promoID int64
	if raw := r.FormValue("promoId"); raw != "" {
		pid, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			http.Error(w, "invalid promoId", http.StatusBadRequest)
			return
		}
		promoID = pid
		if err := h.admission.ValidateToken(ctx, promoID, productID, buyerID, r.FormValue("token")); err != nil {
			writeDomainError(ctx, w, err)
			return
		}
	}

	draft := domain.OrderDraft{BuyerID: buyerID, ProductID: productID, Quantity: quantity}
	if err := h.reservation.Reserve(ctx, draft, promoID); err != nil {
		writeDomainError(ctx, w, err)
		return
	}
	writeJSON(w, map[string]string{"result": "success"})
}

// reserveStockHandler 是纯异步扣减入口：预占被接受后只把台账扣减消息
// 发出去，没有事务语义，订单由调用方自行创建。
func (h *AdmissionHandler) reserveStockHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	propagator := otel.GetTextMapPropagator()
	ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))

	tracer := otel.Tracer(serviceName)
	ctx, span := tracer.Start(ctx, "api.ReserveStock")
	defer span.End()

	productID, err := strconv.ParseInt(r.FormValue("productId"), 10, 64)
	if err != nil {
		http.Error(w, "invalid productId", http.StatusBadRequest)
		return
	}
	quantity, _ := strconv.Atoi(r.FormValue("quantity"))
	if quantity <= 0 {
		quantity = 1
	}
	span.SetAttributes(
		attribute.Int64("product.id", productID),
		attribute.Int("quantity", quantity),
	)

	if err := h.reservation.ReserveAsync(ctx, productID, quantity); err != nil {
		writeDomainError(ctx, w, err)
		return
	}
	writeJSON(w, map[string]string{"result": "accepted"})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// writeDomainError 把领域错误翻译成 HTTP 状态码。
func writeDomainError(ctx context.Context, w http.ResponseWriter, err error) {
	var status int
	switch {
	case errors.Is(err, domain.ErrPromoNotFound),
		errors.Is(err, domain.ErrProductNotFound),
		errors.Is(err, domain.ErrBuyerNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrStockExhausted),
		errors.Is(err, domain.ErrStockNotEnough):
		status = http.StatusGone
	case errors.Is(err, domain.ErrTokenInvalid):
		status = http.StatusUnauthorized
	case errors.Is(err, domain.ErrStockInfoMissing):
		status = http.StatusConflict
	default:
		status = http.StatusInternalServerError
		logger.Ctx(ctx).Error().Err(err).Msg("request failed")
	}
	http.Error(w, err.Error(), status)
}
