package adapter

import (
	"context"
	"net/url"
	"strconv"

	"github.com/pkg/errors"

	"seckill/internal/pkg/httpclient"
	"seckill/internal/service/admission/domain"
)

const orderCreatePath = "/create_seckill_order"

// OrderHTTPAdapter 实现 port.OrderCreator：在事务消息的本地事务步骤里
// 同步调用订单服务创建订单。
type OrderHTTPAdapter struct {
	client      *httpclient.Client
	serviceName string
}

func NewOrderHTTPAdapter(client *httpclient.Client, serviceName string) *OrderHTTPAdapter {
	return &OrderHTTPAdapter{client: client, serviceName: serviceName}
}

func (a *OrderHTTPAdapter) CreateOrder(ctx context.Context, draft domain.OrderDraft, promoID int64, stockLogID string) error {
	params := url.Values{}
	params.Set("buyerId", strconv.FormatInt(draft.BuyerID, 10))
	params.Set("productId", strconv.FormatInt(draft.ProductID, 10))
	params.Set("quantity", strconv.Itoa(draft.Quantity))
	params.Set("promoId", strconv.FormatInt(promoID, 10))
	params.Set("stockLogId", stockLogID)

	if err := a.client.CallService(ctx, a.serviceName, orderCreatePath, params); err != nil {
		return errors.Wrap(err, "order service call failed")
	}
	return nil
}
