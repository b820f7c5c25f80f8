package knowledge

import (
	applog "sabio/internal/platform/log"
	"context"
	"time"

	"github.com/robfig/cron/v3"
)

// Refresher 后台预热任务：按 cron 表达式周期性爬取全部 collection
// 并填充向量存储，让首个用户请求大概率命中缓存
type Refresher struct {
	crawler   *Crawler
	retriever *Retriever
	config    *Config
	cron      *cron.Cron
	lock      Locker // 可为 nil
}

// NewRefresher 创建预热任务
func NewRefresher(crawler *Crawler, retriever *Retriever, cfg *Config) *Refresher {
	return &Refresher{
		crawler:   crawler,
		retriever: retriever,
		config:    cfg,
		cron:      cron.New(),
	}
}

// WithLock 设置分布式锁，多副本部署时同一时刻只有一个副本预热
func (r *Refresher) WithLock(lock Locker) *Refresher {
	r.lock = lock
	return r
}

// Start 注册并启动 cron 任务。RefreshCron 为空时不做任何事
func (r *Refresher) Start() error {
	if r.config.RefreshCron == "" {
		return nil
	}
	if _, err := r.cron.AddFunc(r.config.RefreshCron, r.runOnce); err != nil {
		return err
	}
	r.cron.Start()
	applog.Info("[Knowledge/Refresher] Scheduled", "cron", r.config.RefreshCron)
	return nil
}

// Stop 停止调度，等待进行中的任务结束
func (r *Refresher) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
}

// RefreshNow 立即执行一次预热，供管理接口手动触发
func (r *Refresher) RefreshNow() {
	r.runOnce()
}

func (r *Refresher) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(),
		time.Duration(r.config.IngestTimeoutSeconds)*time.Second)
	defer cancel()

	if r.lock != nil {
		acquired, err := r.lock.Acquire(ctx, "warmup")
		if err != nil || !acquired {
			applog.Info("[Knowledge/Refresher] Warmup already running elsewhere, skipping")
			return
		}
		defer r.lock.Release(ctx, "warmup")
	}

	start := time.Now()
	collections, err := r.crawler.ResolveCollections(ctx)
	if err != nil {
		applog.Warn("[Knowledge/Refresher] Failed to resolve collections", "error", err)
		return
	}

	total := 0
	for _, collectionURL := range collections {
		if ctx.Err() != nil {
			break
		}
		docs := r.crawler.CrawlCollection(ctx, collectionURL)
		total += r.retriever.ingest(ctx, docs)
	}

	applog.Info("[Knowledge/Refresher] Warmup finished",
		"collections", len(collections),
		"stored", total,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
}
