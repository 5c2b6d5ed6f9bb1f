package job

import (
	"context"
	"log"
	"time"

	"kargopay/internal/config"
	"kargopay/internal/repository"

	"gorm.io/gorm"
)

// IntentTimeoutJob 把超时未支付的充值意向扫为 failed
// failed 是终态，用户重新充值会开新的意向
type IntentTimeoutJob struct {
	db        *gorm.DB
	topupRepo *repository.TopupRepository
	cfg       *config.Config
	stopCh    chan struct{}
	interval  time.Duration
	batchSize int
}

func NewIntentTimeoutJob(db *gorm.DB, cfg *config.Config) *IntentTimeoutJob {
	return &IntentTimeoutJob{
		db:        db,
		topupRepo: repository.NewTopupRepository(db),
		cfg:       cfg,
		stopCh:    make(chan struct{}),
		interval:  time.Minute,
		batchSize: 100,
	}
}

func (j *IntentTimeoutJob) Start(ctx context.Context) {
	log.Println("[IntentTimeoutJob] 意向超时任务启动")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[IntentTimeoutJob] 收到停止信号，任务退出")
			return
		case <-j.stopCh:
			log.Println("[IntentTimeoutJob] 任务停止")
			return
		case <-ticker.C:
			j.expireStaleIntents(ctx)
		}
	}
}

func (j *IntentTimeoutJob) Stop() {
	close(j.stopCh)
}

func (j *IntentTimeoutJob) expireStaleIntents(ctx context.Context) {
	before := time.Now().Add(-time.Duration(j.cfg.Business.IntentTimeoutMinutes) * time.Minute)

	intents, err := j.topupRepo.GetStalePending(ctx, before, j.batchSize)
	if err != nil {
		log.Printf("[IntentTimeoutJob] 查询超时意向失败: %v", err)
		return
	}

	if len(intents) == 0 {
		return
	}

	expiredCount := 0
	for _, intent := range intents {
		if err := j.topupRepo.MarkFailed(ctx, nil, intent.ID); err != nil {
			log.Printf("[IntentTimeoutJob] 关闭意向失败: intent=%s, err=%v", intent.ProviderIntentID, err)
			continue
		}
		expiredCount++
	}

	log.Printf("[IntentTimeoutJob] 本次关闭 %d 个超时意向", expiredCount)
}
