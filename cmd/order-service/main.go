// cmd/order-service/main.go
package main

import (
	"seckill/internal/pkg/bootstrap"
	"seckill/internal/pkg/logger"
	"seckill/internal/service/order/application"
	"seckill/internal/service/order/infrastructure"
	"seckill/internal/service/order/interfaces"
)

const serviceName = "order-service"

// main 是订单服务的组装根。准入服务通过 nacos 发现它，
// 在事务消息的本地事务步骤里调用 /create_seckill_order。
func main() {
	bootstrap.Init()
	cfg := bootstrap.GetCurrentConfig()

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        cfg.App.Port,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			db, err := infrastructure.NewDB(cfg.Infra.MysqlDSN)
			if err != nil {
				logger.Logger().Fatal().Err(err).Msg("failed to connect to mysql")
			}

			service := application.NewOrderApplicationService(infrastructure.NewGormOrderRepository(db))
			handler := interfaces.NewOrderHandler(service)
			handler.RegisterRoutes(appCtx.Mux)
		},
	})
}
