package services

import (
	"ahmp/pkg/config"
	"ahmp/pkg/logger"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// MatchSyncScheduler 匹配结果同步调度器
// 按配置的cron表达式周期性拉取各租户的匹配结果；未配置表达式时不启动
type MatchSyncScheduler struct {
	db           *gorm.DB
	cron         *cron.Cron
	matchService *MatchService
	companies    *CompanyService
	mu           sync.RWMutex
	running      bool
}

// NewMatchSyncScheduler 创建匹配同步调度器
func NewMatchSyncScheduler(db *gorm.DB, matchService *MatchService) *MatchSyncScheduler {
	return &MatchSyncScheduler{
		db:           db,
		cron:         cron.New(),
		matchService: matchService,
		companies:    NewCompanyService(db),
	}
}

// Start 启动调度器
func (s *MatchSyncScheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	cfg := config.GetConfig()
	log := logger.GetLogger()

	if cfg.Match.SyncCron == "" {
		log.Info("未配置匹配同步表达式，调度器不启动")
		return nil
	}
	if cfg.Match.ServiceToken == "" {
		return fmt.Errorf("配置了匹配同步但缺少服务令牌")
	}

	if _, err := s.cron.AddFunc(cfg.Match.SyncCron, s.syncAll); err != nil {
		return fmt.Errorf("创建定时任务失败: %v", err)
	}

	s.cron.Start()
	s.running = true

	log.Infof("匹配同步调度器启动成功，表达式: %s", cfg.Match.SyncCron)
	return nil
}

// Stop 停止调度器
func (s *MatchSyncScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	logger.GetLogger().Info("停止匹配同步调度器")

	ctx := s.cron.Stop()
	<-ctx.Done()

	s.running = false
}

// IsRunning 检查调度器是否运行中
func (s *MatchSyncScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// syncAll 逐租户同步，单个租户失败只记录日志
func (s *MatchSyncScheduler) syncAll() {
	log := logger.GetLogger()
	token := config.GetConfig().Match.ServiceToken

	companies, err := s.companies.ListAll()
	if err != nil {
		log.WithError(err).Error("查询租户列表失败，跳过本轮匹配同步")
		return
	}

	for _, company := range companies {
		synced, err := s.matchService.SyncCompany(token, company.ID)
		if err != nil {
			log.WithError(err).Errorf("同步租户 %s 的匹配结果失败", company.Name)
			continue
		}
		log.Infof("租户 %s 匹配结果同步完成，共 %d 条", company.Name, synced)
	}
}
