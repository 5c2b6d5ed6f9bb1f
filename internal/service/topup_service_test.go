package service

import (
	"context"
	"errors"
	"testing"

	"kargopay/internal/config"
	"kargopay/internal/gateway"
	"kargopay/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTopupHarness(gw gateway.PaymentGateway, risk riskGate) (*TopupService, *memWallets, *memIntents, *memLedger) {
	cfg := &config.Config{Business: config.DefaultBusiness()}
	wallets := newMemWallets()
	intents := newMemIntents()
	ledger := &memLedger{}

	svc := &TopupService{
		cfg:         cfg,
		gateway:     gw,
		risk:        risk,
		sideChannel: nopSink{},
		walletRepo:  wallets,
		topupRepo:   intents,
		ledger:      ledger,
		inTx: func(fn func(tx *gorm.DB) error) error {
			return fn(nil)
		},
		lockFor: func(provider, providerIntentID string) locker {
			return nopLock{}
		},
	}
	return svc, wallets, intents, ledger
}

func allowRisk() stubRisk {
	return stubRisk{result: RiskResult{Decision: model.RiskDecisionAllow}}
}

func TestCreateIntent(t *testing.T) {
	ctx := context.Background()

	t.Run("Blocked Has No Side Effects", func(t *testing.T) {
		gw := gateway.NewMockGateway()
		blocked := stubRisk{result: RiskResult{
			Decision: model.RiskDecisionBlock,
			Reason:   model.RiskReasonRateLimited,
		}}
		svc, wallets, intents, _ := newTopupHarness(gw, blocked)

		_, err := svc.CreateIntent(ctx, 1001, decimal.NewFromInt(100), RequestMeta{})

		var blockedErr *RiskBlockedError
		require.True(t, errors.As(err, &blockedErr))
		assert.Equal(t, model.RiskReasonRateLimited, blockedErr.Reason)
		assert.Empty(t, intents.byID)
		assert.Empty(t, wallets.wallets)
	})

	t.Run("Invalid Amount", func(t *testing.T) {
		gw := gateway.NewMockGateway()
		svc, _, _, _ := newTopupHarness(gw, allowRisk())

		_, err := svc.CreateIntent(ctx, 1001, decimal.Zero, RequestMeta{})
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})

	t.Run("Review Proceeds And Is Recorded", func(t *testing.T) {
		gw := gateway.NewMockGateway()
		review := stubRisk{result: RiskResult{
			Decision: model.RiskDecisionReview,
			Reason:   model.RiskReasonDailyLimit,
		}}
		svc, wallets, intents, _ := newTopupHarness(gw, review)

		result, err := svc.CreateIntent(ctx, 1001, decimal.NewFromInt(50000), RequestMeta{ClientIP: "10.0.0.1"})
		require.NoError(t, err)
		assert.Equal(t, model.RiskDecisionReview, result.RiskDecision)

		require.Len(t, intents.byID, 1)
		for _, it := range intents.byID {
			assert.Equal(t, "pending", it.Status)
			assert.Equal(t, model.RiskDecisionReview, it.RiskDecision)
			assert.Equal(t, "10.0.0.1", it.ClientIP)
		}
		assert.Contains(t, wallets.wallets, int64(1001))
	})
}

func TestConfirmIntent(t *testing.T) {
	ctx := context.Background()

	t.Run("Idempotent Double Confirm Credits Once", func(t *testing.T) {
		gw := gateway.NewMockGateway()
		svc, wallets, _, ledger := newTopupHarness(gw, allowRisk())

		created, err := svc.CreateIntent(ctx, 1001, decimal.NewFromInt(25000), RequestMeta{})
		require.NoError(t, err)

		first, err := svc.ConfirmIntent(ctx, 1001, created.ProviderIntentID)
		require.NoError(t, err)
		assert.Equal(t, "succeeded", first.Status)
		assert.Equal(t, "25000.00", first.Amount.StringFixed(2))

		second, err := svc.ConfirmIntent(ctx, 1001, created.ProviderIntentID)
		require.NoError(t, err)
		assert.Equal(t, "succeeded", second.Status)
		assert.Equal(t, "25000.00", second.Amount.StringFixed(2))

		// 重放只入账一次，流水只有一条
		assert.Equal(t, 1, wallets.credits)
		assert.True(t, wallets.wallets[1001].Balance.Equal(decimal.NewFromInt(25000)))
		require.Len(t, ledger.rows, 1)
		assert.Equal(t, model.TransactionTypeDeposit, ledger.rows[0].Type)
		assert.Equal(t, created.ProviderIntentID, ledger.rows[0].ReferenceID)
	})

	t.Run("Unknown Intent", func(t *testing.T) {
		gw := gateway.NewMockGateway()
		svc, _, _, _ := newTopupHarness(gw, allowRisk())

		_, err := svc.ConfirmIntent(ctx, 1001, "pi_mock_unknown")
		assert.ErrorIs(t, err, ErrIntentNotFound)
	})

	t.Run("Ownership Mismatch", func(t *testing.T) {
		gw := gateway.NewMockGateway()
		svc, _, _, _ := newTopupHarness(gw, allowRisk())

		created, err := svc.CreateIntent(ctx, 1001, decimal.NewFromInt(100), RequestMeta{})
		require.NoError(t, err)

		_, err = svc.ConfirmIntent(ctx, 2002, created.ProviderIntentID)
		assert.ErrorIs(t, err, ErrIntentForbidden)
	})

	t.Run("Declined Payment Is Terminal", func(t *testing.T) {
		gw := gateway.NewMockGateway()
		svc, wallets, intents, ledger := newTopupHarness(gw, allowRisk())

		created, err := svc.CreateIntent(ctx, 1001, decimal.NewFromInt(100), RequestMeta{})
		require.NoError(t, err)
		gw.MarkFailing(created.ProviderIntentID)

		_, err = svc.ConfirmIntent(ctx, 1001, created.ProviderIntentID)
		assert.ErrorIs(t, err, ErrPaymentNotCompleted)
		assert.Equal(t, "failed", intents.byID[1].Status)

		// failed 为终态，重放同样被拒，钱包与流水不动
		_, err = svc.ConfirmIntent(ctx, 1001, created.ProviderIntentID)
		assert.ErrorIs(t, err, ErrPaymentNotCompleted)
		assert.Equal(t, 0, wallets.credits)
		assert.Empty(t, ledger.rows)
	})

	t.Run("Blocked Intent Rejected Defensively", func(t *testing.T) {
		gw := gateway.NewMockGateway()
		svc, _, intents, _ := newTopupHarness(gw, allowRisk())

		require.NoError(t, intents.Create(ctx, nil, &model.TopupIntent{
			UserID:           1001,
			Provider:         "mockpay",
			ProviderIntentID: "pi_mock_blocked",
			Amount:           decimal.NewFromInt(100),
			Currency:         "TRY",
			Status:           model.IntentStatusPending,
			RiskDecision:     model.RiskDecisionBlock,
		}))

		_, err := svc.ConfirmIntent(ctx, 1001, "pi_mock_blocked")
		assert.ErrorIs(t, err, ErrIntentForbidden)
	})
}
