package factory

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/redis/go-redis/v9"

	"pixgate/internal/acquirer"
	"pixgate/internal/config"
	"pixgate/internal/dispatch"
	"pixgate/internal/domain"
	"pixgate/internal/repository"
	"pixgate/internal/service"
	"pixgate/pkg/cache"
	"pixgate/pkg/database"
	"pixgate/pkg/logger"
)

type Factory interface {
	GetLogger() logger.Logger
	GetConfig() *config.Config
	GetDB() *sql.DB
	GetRedisClient() *redis.Client
	GetCache() cache.Cache
	GetDispatcher() *dispatch.Dispatcher
	GetAcquirerRegistry() *acquirer.Registry

	GetUserRepository() domain.UserRepository
	GetDepositRepository() domain.DepositRepository
	GetWithdrawalRepository() domain.WithdrawalRepository
	GetWebhookLogRepository() domain.WebhookLogRepository
	GetPaymentEventRepository() domain.PaymentEventRepository
	GetCommissionRepository() domain.CommissionRepository

	GetSettlementService() domain.SettlementService
	GetPaymentEventService() domain.PaymentEventService
}

type AppFactory struct {
	config      *config.Config
	logger      logger.Logger
	db          *sql.DB
	redisClient *redis.Client
	cache       cache.Cache
	dispatcher  *dispatch.Dispatcher
	registry    *acquirer.Registry

	userRepository         domain.UserRepository
	depositRepository      domain.DepositRepository
	withdrawalRepository   domain.WithdrawalRepository
	webhookLogRepository   domain.WebhookLogRepository
	paymentEventRepository domain.PaymentEventRepository
	commissionRepository   domain.CommissionRepository

	unitOfWork          domain.UnitOfWork
	webhookGuard        domain.WebhookGuard
	ledgerService       domain.LedgerService
	distributor         domain.CommissionDistributor
	settlementService   domain.SettlementService
	paymentEventService domain.PaymentEventService
}

func NewFactory() (Factory, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log := logger.New(logger.LogLevel(cfg.LogLevel), nil)

	db, err := database.Open(cfg.Database, log)
	if err != nil {
		return nil, err
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx := context.Background()
	if _, err := redisClient.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("Redis bağlantısı kurulamadı: %w", err)
	}

	cacheInstance := cache.NewRedisCache(redisClient, log, "pixgate")

	factory := &AppFactory{
		config:      cfg,
		logger:      log,
		db:          db,
		redisClient: redisClient,
		cache:       cacheInstance,
		dispatcher:  dispatch.NewDispatcher(cfg.Dispatch, log),
		registry:    acquirer.NewRegistry(log),
	}

	factory.initRepositories()
	factory.initServices()

	return factory, nil
}

func (f *AppFactory) initRepositories() {
	rowLocks := database.SupportsRowLocks(f.config.Database.Driver)

	f.userRepository = repository.NewUserRepository(f.db, f.logger, rowLocks)
	f.depositRepository = repository.NewDepositRepository(f.db, f.logger, rowLocks)
	f.withdrawalRepository = repository.NewWithdrawalRepository(f.db, f.logger, rowLocks)
	f.webhookLogRepository = repository.NewWebhookLogRepository(f.db, f.logger)
	f.paymentEventRepository = repository.NewPaymentEventRepository(f.db, f.logger)
	f.commissionRepository = repository.NewCommissionRepository(f.db, f.logger)
}

func (f *AppFactory) initServices() {
	f.unitOfWork = repository.NewSQLUnitOfWork(f.db, f.logger)

	f.webhookGuard = service.NewWebhookGuardService(
		f.webhookLogRepository,
		f.unitOfWork,
		f.config.Guard.ProcessingWait,
		f.logger,
	)

	f.ledgerService = service.NewLedgerService(f.userRepository, f.paymentEventRepository, f.logger)

	splitPayer := service.NewHTTPSplitPayer(f.config.Split, f.logger)
	f.distributor = service.NewCommissionService(
		f.commissionRepository,
		f.ledgerService,
		f.unitOfWork,
		splitPayer,
		f.logger,
	)

	f.paymentEventService = service.NewPaymentEventService(f.paymentEventRepository, f.cache, f.logger)

	f.settlementService = service.NewSettlementService(
		f.webhookGuard,
		f.depositRepository,
		f.withdrawalRepository,
		f.userRepository,
		f.ledgerService,
		f.distributor,
		f.paymentEventService,
		f.dispatcher,
		f.logger,
	)
}

func (f *AppFactory) GetLogger() logger.Logger {
	return f.logger
}

func (f *AppFactory) GetConfig() *config.Config {
	return f.config
}

func (f *AppFactory) GetDB() *sql.DB {
	return f.db
}

func (f *AppFactory) GetRedisClient() *redis.Client {
	return f.redisClient
}

func (f *AppFactory) GetCache() cache.Cache {
	return f.cache
}

func (f *AppFactory) GetDispatcher() *dispatch.Dispatcher {
	return f.dispatcher
}

func (f *AppFactory) GetAcquirerRegistry() *acquirer.Registry {
	return f.registry
}

func (f *AppFactory) GetUserRepository() domain.UserRepository {
	return f.userRepository
}

func (f *AppFactory) GetDepositRepository() domain.DepositRepository {
	return f.depositRepository
}

func (f *AppFactory) GetWithdrawalRepository() domain.WithdrawalRepository {
	return f.withdrawalRepository
}

func (f *AppFactory) GetWebhookLogRepository() domain.WebhookLogRepository {
	return f.webhookLogRepository
}

func (f *AppFactory) GetPaymentEventRepository() domain.PaymentEventRepository {
	return f.paymentEventRepository
}

func (f *AppFactory) GetCommissionRepository() domain.CommissionRepository {
	return f.commissionRepository
}

func (f *AppFactory) GetSettlementService() domain.SettlementService {
	return f.settlementService
}

func (f *AppFactory) GetPaymentEventService() domain.PaymentEventService {
	return f.paymentEventService
}
