// cmd/stock-reconciler/main.go
package main

import (
	"context"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"seckill/internal/pkg/bootstrap"
	"seckill/internal/pkg/logger"
	"seckill/internal/pkg/mq"
	"seckill/internal/service/admission/application"
	"seckill/internal/service/admission/infrastructure"
)

const (
	serviceName     = "stock-reconciler"
	consumerWorkers = 4
)

// main 是对账消费者的组装根：订阅扣减消息，把预占结算进台账。
func main() {
	bootstrap.Init()
	cfg := bootstrap.GetCurrentConfig()

	var consumer *infrastructure.StockConsumerAdapter

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        cfg.App.Port,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			appCtx.Mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
			appCtx.Mux.Handle("/metrics", promhttp.Handler())

			db, err := infrastructure.NewDB(cfg.Infra.MysqlDSN)
			if err != nil {
				logger.Logger().Fatal().Err(err).Msg("failed to connect to mysql")
			}
			ledger := infrastructure.NewGormStockLedgerRepository(db)
			svc := application.NewReconciliationService(ledger)

			reader := mq.NewKafkaReader(
				strings.Split(cfg.Infra.KafkaBrokers, ","),
				cfg.Infra.StockTopic,
				cfg.Infra.StockConsumerGroup,
			)
			consumer = infrastructure.NewStockConsumerAdapter(reader, svc, consumerWorkers)
			consumer.Start(context.Background())
		},
		OnShutdown: func(ctx context.Context) {
			if consumer != nil {
				consumer.Stop()
			}
		},
	})
}
