package adapter

import (
	"seckill/internal/pkg/logger"
	"seckill/internal/pkg/zookeeper"
)

// ZkLockerAdapter 用 ZooKeeper 分布式锁实现 port.Locker。
type ZkLockerAdapter struct {
	conn *zookeeper.Conn
}

func NewZkLockerAdapter(conn *zookeeper.Conn) *ZkLockerAdapter {
	return &ZkLockerAdapter{conn: conn}
}

func (a *ZkLockerAdapter) WithLock(resourceID string, fn func() error) error {
	lock, err := zookeeper.NewDistributedLock(a.conn, resourceID)
	if err != nil {
		return err
	}
	if err := lock.Lock(); err != nil {
		return err
	}
	defer func() {
		if uerr := lock.Unlock(); uerr != nil {
			logger.Logger().Error().Err(uerr).Str("resource", resourceID).Msg("failed to release lock")
		}
	}()
	return fn()
}
