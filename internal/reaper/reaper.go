// Package reaper hard-deletes complaints that stayed soft-deleted past the retention window.
package reaper

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"complaint-desk/internal/core/logger"
	"complaint-desk/internal/repo"
)

const batchSize = 200

type Config struct {
	Days     int
	Schedule string // 标准 5 段 cron，默认每天 02:15
	DryRun   bool
}

type Result struct {
	Cutoff     time.Time `json:"cutoff"`
	Complaints int64     `json:"complaints"`
	Logs       int64     `json:"logs"`
	DryRun     bool      `json:"dryRun"`
}

type Reaper struct {
	store *repo.Store
	cfg   Config
	log   *zap.Logger
	now   func() time.Time
}

func New(store *repo.Store, cfg Config, l *zap.Logger) *Reaper {
	if cfg.Days <= 0 {
		cfg.Days = 30
	}
	if cfg.Schedule == "" {
		cfg.Schedule = "15 2 * * *"
	}
	return &Reaper{store: store, cfg: cfg, log: l.Named("reaper"), now: time.Now}
}

// RunOnce 分批清理；DryRun 只统计不删除
// 日志先于投诉删除，两者同一事务
func (r *Reaper) RunOnce(ctx context.Context) (Result, error) {
	res := Result{
		Cutoff: r.now().UTC().AddDate(0, 0, -r.cfg.Days),
		DryRun: r.cfg.DryRun,
	}
	if r.cfg.DryRun {
		// limit -1：不分批，一次数完
		ids, err := r.store.Complaints.ExpiredDeleted(ctx, res.Cutoff, -1)
		if err != nil {
			return res, fmt.Errorf("list expired complaints: %w", err)
		}
		res.Complaints = int64(len(ids))
		r.log.Info("retention dry run", zap.Time("cutoff", res.Cutoff), zap.Int64("complaints", res.Complaints))
		return res, nil
	}
	for {
		ids, err := r.store.Complaints.ExpiredDeleted(ctx, res.Cutoff, batchSize)
		if err != nil {
			return res, fmt.Errorf("list expired complaints: %w", err)
		}
		if len(ids) == 0 {
			break
		}
		err = r.store.Tx(ctx, func(tx *repo.Store) error {
			nl, err := tx.Logs.DeleteFor(ctx, ids)
			if err != nil {
				return err
			}
			nc, err := tx.Complaints.Purge(ctx, ids)
			if err != nil {
				return err
			}
			res.Logs += nl
			res.Complaints += nc
			return nil
		})
		if err != nil {
			return res, fmt.Errorf("purge complaints: %w", err)
		}
		if len(ids) < batchSize {
			break
		}
	}
	r.log.Info("retention pass done",
		zap.Time("cutoff", res.Cutoff),
		zap.Int64("complaints", res.Complaints),
		zap.Int64("logs", res.Logs))
	return res, nil
}

// Start 注册定时任务；返回的 stop 等待正在执行的任务结束
func (r *Reaper) Start() (stop func(), err error) {
	cl := cron.PrintfLogger(logger.ToStdLogger(r.log, zapcore.InfoLevel))
	c := cron.New(cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)))
	if _, err := c.AddFunc(r.cfg.Schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 4*time.Minute)
		defer cancel()
		if _, err := r.RunOnce(ctx); err != nil {
			r.log.Error("retention pass failed", zap.Error(err))
		}
	}); err != nil {
		return nil, fmt.Errorf("schedule %q: %w", r.cfg.Schedule, err)
	}
	c.Start()
	r.log.Info("reaper started",
		zap.String("schedule", r.cfg.Schedule),
		zap.Int("retentionDays", r.cfg.Days),
		zap.Bool("dryRun", r.cfg.DryRun))
	return func() { <-c.Stop().Done() }, nil
}
