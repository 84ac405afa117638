package application

import (
	"context"
	"strconv"
	"sync"
	"time"

	"seckill/internal/service/admission/domain"
	"seckill/internal/service/admission/domain/port"
)

// fakeFastStore 在内存里模拟快速存储。计数器、标识、令牌共用一把锁，
// GetAndAdd 的原子性由锁保证，语义与 redis 的 INCRBY/DECRBY 对齐。
type fakeFastStore struct {
	mu       sync.Mutex
	counters map[string]int64
	markers  map[string]bool
	tokens   map[string]string

	failGetAndAdd error
}

func newFakeFastStore() *fakeFastStore {
	return &fakeFastStore{
		counters: make(map[string]int64),
		markers:  make(map[string]bool),
		tokens:   make(map[string]string),
	}
}

func (f *fakeFastStore) Seed(_ context.Context, key string, value int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counters[key] = value
	return nil
}

func (f *fakeFastStore) GetAndAdd(_ context.Context, key string, delta int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failGetAndAdd != nil {
		return 0, f.failGetAndAdd
	}
	f.counters[key] += delta
	return f.counters[key], nil
}

func (f *fakeFastStore) Exists(_ context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.counters[key]
	return ok, nil
}

func (f *fakeFastStore) SetMarker(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markers[key] = true
	return nil
}

func (f *fakeFastStore) ClearMarker(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.markers, key)
	return nil
}

func (f *fakeFastStore) HasMarker(_ context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.markers[key], nil
}

func (f *fakeFastStore) SaveToken(_ context.Context, key, token string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[key] = token
	return nil
}

func (f *fakeFastStore) ConsumeToken(_ context.Context, key, token string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tokens[key] != token {
		return false, nil
	}
	delete(f.tokens, key)
	return true, nil
}

func (f *fakeFastStore) counter(key string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counters[key]
}

type fakePromoRepo struct {
	promos map[int64]*domain.Promotion
}

func (r *fakePromoRepo) FindByID(_ context.Context, promoID int64) (*domain.Promotion, error) {
	p, ok := r.promos[promoID]
	if !ok {
		return nil, domain.ErrPromoNotFound
	}
	return p, nil
}

type fakeProductReader struct {
	products map[int64]*domain.Product
}

func (r *fakeProductReader) GetDetail(_ context.Context, productID int64) (*domain.Product, error) {
	p, ok := r.products[productID]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	return p, nil
}

type fakeBuyerReader struct {
	buyers map[int64]*domain.Buyer
}

func (r *fakeBuyerReader) GetByID(_ context.Context, buyerID int64) (*domain.Buyer, error) {
	b, ok := r.buyers[buyerID]
	if !ok {
		return nil, domain.ErrBuyerNotFound
	}
	return b, nil
}

// fakeStockLogRepo 按真实仓储的语义实现状态机：
// 带状态谓词的迁移、终态拒绝再迁移。
type fakeStockLogRepo struct {
	mu   sync.Mutex
	logs map[string]*domain.StockLog

	failCreate error
}

func newFakeStockLogRepo() *fakeStockLogRepo {
	return &fakeStockLogRepo{logs: make(map[string]*domain.StockLog)}
}

func (r *fakeStockLogRepo) Create(_ context.Context, log *domain.StockLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreate != nil {
		return r.failCreate
	}
	cp := *log
	r.logs[log.StockLogID] = &cp
	return nil
}

func (r *fakeStockLogRepo) FindByID(_ context.Context, stockLogID string) (*domain.StockLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	log, ok := r.logs[stockLogID]
	if !ok {
		return nil, domain.ErrStockLogNotFound
	}
	cp := *log
	return &cp, nil
}

func (r *fakeStockLogRepo) TransitionStatus(_ context.Context, stockLogID string, from, to domain.StockLogStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	log, ok := r.logs[stockLogID]
	if !ok {
		return domain.ErrStockLogNotFound
	}
	if log.Status == from {
		log.Status = to
		return nil
	}
	if log.Status.Terminal() {
		return domain.ErrStockLogFinalized
	}
	return domain.ErrStockLogNotFound
}

func (r *fakeStockLogRepo) status(stockLogID string) domain.StockLogStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.logs[stockLogID].Status
}

// fakeLedger 按真实台账的幂等语义实现：同一条流水只作用一次，
// 余额不足时整体失败且不标记已作用。认领只看是否已作用，
// 不看流水状态——消息可见即代表已提交。
type fakeLedger struct {
	mu      sync.Mutex
	stock   map[int64]int
	logs    map[string]domain.StockLogStatus
	applied map[string]bool
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		stock:   make(map[int64]int),
		logs:    make(map[string]domain.StockLogStatus),
		applied: make(map[string]bool),
	}
}

func (l *fakeLedger) addLog(stockLogID string, status domain.StockLogStatus) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logs[stockLogID] = status
}

func (l *fakeLedger) GetStock(_ context.Context, productID int64) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stock[productID], nil
}

func (l *fakeLedger) ApplyDecrement(_ context.Context, stockLogID string, productID int64, quantity int) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.logs[stockLogID]; !ok {
		return false, domain.ErrStockLogNotFound
	}
	if l.applied[stockLogID] {
		return false, nil
	}
	if l.stock[productID] < quantity {
		return false, domain.ErrLedgerInsufficient
	}
	l.stock[productID] -= quantity
	l.applied[stockLogID] = true
	return true, nil
}

type orderCall struct {
	draft      domain.OrderDraft
	promoID    int64
	stockLogID string
}

type fakeOrderCreator struct {
	mu    sync.Mutex
	calls []orderCall
	err   error
}

func (c *fakeOrderCreator) CreateOrder(_ context.Context, draft domain.OrderDraft, promoID int64, stockLogID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.calls = append(c.calls, orderCall{draft: draft, promoID: promoID, stockLogID: stockLogID})
	return nil
}

// fakeBroker 记录半消息及其确认结果。
type fakeBroker struct {
	mu        sync.Mutex
	seq       int
	sent      map[string]domain.StockDecrementMessage
	confirmed map[string]port.TxOutcome

	sendErr    error
	confirmErr error
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{
		sent:      make(map[string]domain.StockDecrementMessage),
		confirmed: make(map[string]port.TxOutcome),
	}
}

func (b *fakeBroker) SendHalfMessage(_ context.Context, msg domain.StockDecrementMessage) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sendErr != nil {
		return "", b.sendErr
	}
	b.seq++
	handle := "handle-" + strconv.Itoa(b.seq)
	b.sent[handle] = msg
	return handle, nil
}

func (b *fakeBroker) Confirm(_ context.Context, handle string, outcome port.TxOutcome) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.confirmErr != nil {
		return b.confirmErr
	}
	b.confirmed[handle] = outcome
	return nil
}

func (b *fakeBroker) outcomes() []port.TxOutcome {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]port.TxOutcome, 0, len(b.confirmed))
	for _, o := range b.confirmed {
		out = append(out, o)
	}
	return out
}

type fakeProducer struct {
	mu   sync.Mutex
	msgs []domain.StockDecrementMessage
	err  error
}

func (p *fakeProducer) Produce(_ context.Context, msg domain.StockDecrementMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, msg)
	return nil
}

type stubRules struct {
	fn func(rule string, fact map[string]interface{}) (bool, error)
}

func (s stubRules) Evaluate(_ context.Context, rule string, fact map[string]interface{}) (bool, error) {
	return s.fn(rule, fact)
}

type noopLocker struct{}

func (noopLocker) WithLock(_ string, fn func() error) error { return fn() }
