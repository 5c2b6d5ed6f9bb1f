package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// 支付网关抽象。渠道协议细节不在本服务范围内，
// 生产环境接真实渠道，本地与测试用 MockGateway。

var (
	ErrIntentNotFound = errors.New("支付渠道侧意向不存在")
)

// IntentHandle 渠道侧意向句柄，client_secret 交给前端完成支付
type IntentHandle struct {
	Provider     string
	IntentID     string
	ClientSecret string
}

// ConfirmResult 渠道确认结果
type ConfirmResult struct {
	Succeeded bool
	Detail    string
}

type PaymentGateway interface {
	// CreatePaymentIntent 在渠道侧开一笔支付意向
	CreatePaymentIntent(ctx context.Context, userID int64, amount decimal.Decimal, currency string) (*IntentHandle, error)
	// ConfirmPayment 向渠道查询/确认支付结果
	ConfirmPayment(ctx context.Context, intentID string) (*ConfirmResult, error)
}

// MockGateway 内存实现：创建的意向默认确认成功，
// MarkFailing 标记的意向确认为失败
type MockGateway struct {
	mu      sync.Mutex
	intents map[string]bool // intentID -> 是否确认失败
}

func NewMockGateway() *MockGateway {
	return &MockGateway{
		intents: make(map[string]bool),
	}
}

func (g *MockGateway) Name() string {
	return "mockpay"
}

func (g *MockGateway) CreatePaymentIntent(ctx context.Context, userID int64, amount decimal.Decimal, currency string) (*IntentHandle, error) {
	intentID := fmt.Sprintf("pi_mock_%s", uuid.NewString())

	g.mu.Lock()
	g.intents[intentID] = false
	g.mu.Unlock()

	return &IntentHandle{
		Provider:     g.Name(),
		IntentID:     intentID,
		ClientSecret: fmt.Sprintf("%s_secret_%s", intentID, uuid.NewString()[:8]),
	}, nil
}

func (g *MockGateway) ConfirmPayment(ctx context.Context, intentID string) (*ConfirmResult, error) {
	g.mu.Lock()
	shouldFail, known := g.intents[intentID]
	g.mu.Unlock()

	if !known {
		return nil, ErrIntentNotFound
	}

	if shouldFail {
		return &ConfirmResult{Succeeded: false, Detail: "payment_declined"}, nil
	}

	return &ConfirmResult{Succeeded: true, Detail: "paid"}, nil
}

// MarkFailing 将意向标记为确认失败
func (g *MockGateway) MarkFailing(intentID string) {
	g.mu.Lock()
	g.intents[intentID] = true
	g.mu.Unlock()
}
