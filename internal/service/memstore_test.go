package service

import (
	"context"
	"time"

	"kargopay/internal/model"
	"kargopay/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// 内存实现的服务依赖，事务退化为直接执行闭包

type memWallets struct {
	wallets map[int64]*model.Wallet
	credits int
}

func newMemWallets() *memWallets {
	return &memWallets{wallets: make(map[int64]*model.Wallet)}
}

func (m *memWallets) EnsureWallet(ctx context.Context, tx *gorm.DB, userID int64) error {
	if _, ok := m.wallets[userID]; !ok {
		m.wallets[userID] = &model.Wallet{
			UserID:          userID,
			Balance:         decimal.Zero,
			ReservedBalance: decimal.Zero,
		}
	}
	return nil
}

func (m *memWallets) GetByUserID(ctx context.Context, userID int64) (*model.Wallet, error) {
	w, ok := m.wallets[userID]
	if !ok {
		return nil, repository.ErrWalletNotFound
	}
	clone := *w
	return &clone, nil
}

func (m *memWallets) GetByUserIDForUpdate(ctx context.Context, tx *gorm.DB, userID int64) (*model.Wallet, error) {
	return m.GetByUserID(ctx, userID)
}

func (m *memWallets) Credit(ctx context.Context, tx *gorm.DB, userID int64, amount decimal.Decimal) error {
	w, ok := m.wallets[userID]
	if !ok {
		return repository.ErrWalletNotFound
	}
	w.Balance = w.Balance.Add(amount)
	m.credits++
	return nil
}

func (m *memWallets) Reserve(ctx context.Context, tx *gorm.DB, userID int64, amount decimal.Decimal) error {
	w, ok := m.wallets[userID]
	if !ok {
		return repository.ErrWalletNotFound
	}
	if w.Balance.Sub(w.ReservedBalance).LessThan(amount) {
		return repository.ErrBalanceNotEnough
	}
	w.ReservedBalance = w.ReservedBalance.Add(amount)
	return nil
}

func (m *memWallets) Release(ctx context.Context, tx *gorm.DB, userID int64, amount decimal.Decimal, capture bool) error {
	w, ok := m.wallets[userID]
	if !ok {
		return repository.ErrWalletNotFound
	}
	if w.ReservedBalance.LessThan(amount) {
		return repository.ErrReservedNotEnough
	}
	w.ReservedBalance = w.ReservedBalance.Sub(amount)
	if capture {
		w.Balance = w.Balance.Sub(amount)
	}
	return nil
}

type memIntents struct {
	byID   map[int64]*model.TopupIntent
	nextID int64
}

func newMemIntents() *memIntents {
	return &memIntents{byID: make(map[int64]*model.TopupIntent)}
}

func (m *memIntents) Create(ctx context.Context, tx *gorm.DB, intent *model.TopupIntent) error {
	m.nextID++
	intent.ID = m.nextID
	clone := *intent
	m.byID[intent.ID] = &clone
	return nil
}

func (m *memIntents) GetByProviderIntentIDForUpdate(ctx context.Context, tx *gorm.DB, provider, providerIntentID string) (*model.TopupIntent, error) {
	for _, it := range m.byID {
		if it.Provider == provider && it.ProviderIntentID == providerIntentID {
			clone := *it
			return &clone, nil
		}
	}
	return nil, repository.ErrIntentNotFound
}

func (m *memIntents) MarkSucceeded(ctx context.Context, tx *gorm.DB, id int64, confirmedAt time.Time) error {
	it, ok := m.byID[id]
	if !ok || it.Status != model.IntentStatusPending {
		return repository.ErrIntentNotFound
	}
	it.Status = model.IntentStatusSucceeded
	it.ConfirmedAt = &confirmedAt
	return nil
}

func (m *memIntents) MarkFailed(ctx context.Context, tx *gorm.DB, id int64) error {
	it, ok := m.byID[id]
	if !ok || it.Status != model.IntentStatusPending {
		return repository.ErrIntentNotFound
	}
	it.Status = model.IntentStatusFailed
	return nil
}

type memLedger struct {
	rows []*model.WalletTransaction
}

// Create 与真实仓储一致：(reference_type, reference_id) 冲突时忽略
func (m *memLedger) Create(ctx context.Context, tx *gorm.DB, trans *model.WalletTransaction) error {
	for _, r := range m.rows {
		if r.ReferenceType == trans.ReferenceType && r.ReferenceID == trans.ReferenceID {
			return nil
		}
	}
	clone := *trans
	m.rows = append(m.rows, &clone)
	return nil
}

func (m *memLedger) GetByReference(ctx context.Context, referenceType, referenceID string) (*model.WalletTransaction, error) {
	for _, r := range m.rows {
		if r.ReferenceType == referenceType && r.ReferenceID == referenceID {
			clone := *r
			return &clone, nil
		}
	}
	return nil, nil
}

func (m *memLedger) ListRecentByReferenceType(ctx context.Context, userID int64, referenceType string, limit int) ([]*model.WalletTransaction, error) {
	var out []*model.WalletTransaction
	for _, r := range m.rows {
		if r.UserID == userID && r.ReferenceType == referenceType {
			clone := *r
			out = append(out, &clone)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memLedger) SumByType(ctx context.Context, userID int64, transactionType, status string) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, r := range m.rows {
		if r.UserID == userID && r.Type == transactionType && (status == "" || r.Status == status) {
			total = total.Add(r.Amount)
		}
	}
	return total, nil
}

type stubRisk struct {
	result RiskResult
	err    error
}

func (s stubRisk) Evaluate(ctx context.Context, userID int64, amount decimal.Decimal) (RiskResult, error) {
	return s.result, s.err
}

type nopSink struct{}

func (nopSink) WriteAuditLog(ctx context.Context, tx *gorm.DB, userID int64, action, entity, entityID string, metadata map[string]interface{}) {
}

func (nopSink) CreateNotification(ctx context.Context, tx *gorm.DB, userID int64, notifyType, title, message string, metadata map[string]interface{}) {
}

type nopLock struct{}

func (nopLock) Lock(ctx context.Context, retryInterval time.Duration, maxRetries int) error {
	return nil
}

func (nopLock) Unlock(ctx context.Context) error {
	return nil
}
