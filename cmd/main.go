package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"marketplace_admin/internal/config"
	"marketplace_admin/internal/controller"
	"marketplace_admin/internal/middleware"
	"marketplace_admin/internal/model"
	"marketplace_admin/internal/repository"
	"marketplace_admin/internal/router"
	"marketplace_admin/internal/service"
	"marketplace_admin/internal/task"
	"marketplace_admin/pkg/database"
	"marketplace_admin/pkg/logger"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load(getEnv("CONFIG_FILE", ""))
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	log, err := logger.New(cfg.App.Env, cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// 3. 初始化数据库
	db := initDatabase(cfg)

	// 4. 初始化依赖
	deps := initDependencies(cfg, db)
	defer deps.Close()

	// 5. 启动定时任务
	tm := initTasks(cfg, deps)
	defer tm.Stop()

	// 6. 初始化路由
	r := router.NewEngine(deps.RouterDeps(cfg, tm))

	// 7. 启动服务
	startServer(cfg, r)
}

// ==================== 依赖容器 ====================

// Dependencies 依赖容器
type Dependencies struct {
	DB          *gorm.DB
	Redis       *redis.Client
	Repos       *Repositories
	Services    *Services
	Controllers *Controllers
}

// Repositories 仓库集合
type Repositories struct {
	Vendor   repository.VendorRepository
	Product  repository.ProductRepository
	Category repository.CategoryRepository
	Order    repository.OrderRepository
}

// Services 服务集合
type Services struct {
	Storage  *service.StorageService
	Vendor   *service.VendorService
	Product  *service.ProductService
	Category *service.CategoryService
	Order    *service.OrderService
}

// Controllers 控制器集合
type Controllers struct {
	Vendor   *controller.VendorController
	Product  *controller.ProductController
	Category *controller.CategoryController
	Order    *controller.OrderController
}

// RouterDeps 组装路由依赖
func (d *Dependencies) RouterDeps(cfg *config.Config, tm *task.TaskManager) router.Deps {
	rd := router.Deps{
		VendorCtl:      d.Controllers.Vendor,
		ProductCtl:     d.Controllers.Product,
		CategoryCtl:    d.Controllers.Category,
		OrderCtl:       d.Controllers.Order,
		TaskCtl:        controller.NewTaskController(tm),
		VendorResolver: d.Services.Vendor,
		ImportLimiter:  middleware.NewCooldownLimiter(),
		ImportCooldown: cfg.Import.Cooldown,
	}
	if cfg.Server.RateLimitRPS > 0 {
		rd.RateLimiter = middleware.NewClientRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst)
	}
	// 本地存储需要挂载静态目录
	if d.Services.Storage != nil {
		if local, ok := d.Services.Storage.GetProvider().(*service.LocalStorage); ok {
			rd.UploadDir = local.BasePath()
		}
	}
	return rd
}

// Close 释放外部连接
func (d *Dependencies) Close() {
	if d.Redis != nil {
		_ = d.Redis.Close()
	}
	if sqlDB, err := d.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// ==================== 初始化函数 ====================

// initDatabase 初始化数据库
func initDatabase(cfg *config.Config) *gorm.DB {
	opts := database.DefaultOptions()
	opts.MaxIdleConns = cfg.Database.MaxIdleConns
	opts.MaxOpenConns = cfg.Database.MaxOpenConns
	opts.ConnMaxLifetime = cfg.Database.ConnMaxLifetime
	if !cfg.IsProduction() {
		opts.LogLevel = gormlogger.Info
	}

	db, err := database.InitDB(cfg.Database.DSN, opts,
		// Vendor
		&model.Vendor{},
		// Catalog
		&model.Category{}, &model.Product{},
		// Order
		&model.Order{}, &model.OrderLineItem{},
	)
	if err != nil {
		zap.L().Fatal("数据库初始化失败", zap.Error(err))
	}

	if err := middleware.RegisterAuditCallbacks(db); err != nil {
		zap.L().Fatal("注册审计回调失败", zap.Error(err))
	}
	return db
}

// initDependencies 初始化所有依赖
func initDependencies(cfg *config.Config, db *gorm.DB) *Dependencies {
	middleware.SetJWTConfig(&middleware.JWTConfig{
		SecretKey: cfg.JWT.Secret,
		Issuer:    cfg.JWT.Issuer,
		Leeway:    middleware.DefaultJWTConfig().Leeway,
	})

	// -------- Repo 层 --------
	repos := &Repositories{
		Vendor:   repository.NewVendorRepository(db),
		Product:  repository.NewProductRepository(db),
		Category: repository.NewCategoryRepository(db),
		Order:    repository.NewOrderRepository(db),
	}

	// -------- 基础服务 --------
	storageSvc := initStorageService(cfg)
	redisClient, categoryCache := initCategoryCache(cfg)

	// -------- 业务服务 --------
	services := &Services{Storage: storageSvc}
	services.Vendor = service.NewVendorService(repos.Vendor, storageSvc, cfg.Storage.SignedTTL)
	services.Category = service.NewCategoryService(repos.Category, categoryCache)
	services.Product = service.NewProductService(repos.Product, repos.Category, services.Vendor, storageSvc)
	services.Order = service.NewOrderService(repos.Order)

	// -------- Controller 层 --------
	controllers := &Controllers{
		Vendor:   controller.NewVendorController(services.Vendor),
		Product:  controller.NewProductController(services.Product),
		Category: controller.NewCategoryController(services.Category),
		Order:    controller.NewOrderController(services.Order),
	}

	return &Dependencies{
		DB:          db,
		Redis:       redisClient,
		Repos:       repos,
		Services:    services,
		Controllers: controllers,
	}
}

// initStorageService 初始化存储服务，失败时上传相关接口返回 503
func initStorageService(cfg *config.Config) *service.StorageService {
	storageSvc, err := service.NewStorageService(service.StorageConfig{
		Provider:  cfg.Storage.Provider,
		Bucket:    cfg.Storage.Bucket,
		Region:    cfg.Storage.Region,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		Endpoint:  cfg.Storage.Endpoint,
		PublicURL: cfg.Storage.PublicURL,
		BasePath:  cfg.Storage.BasePath,
	})
	if err != nil {
		zap.L().Warn("存储服务初始化失败", zap.String("provider", cfg.Storage.Provider), zap.Error(err))
		return nil
	}
	zap.L().Info("存储服务已就绪", zap.String("provider", cfg.Storage.Provider))
	return storageSvc
}

// initCategoryCache Redis 可选，未配置或连不上时不缓存
func initCategoryCache(cfg *config.Config) (*redis.Client, service.CategoryCache) {
	if cfg.Redis.Addr == "" {
		return nil, service.NewNopCategoryCache()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		zap.L().Warn("Redis 不可用，分类缓存已关闭", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		_ = client.Close()
		return nil, service.NewNopCategoryCache()
	}

	zap.L().Info("Redis 已连接", zap.String("addr", cfg.Redis.Addr))
	return client, service.NewRedisCategoryCache(client, cfg.Redis.CacheTTL)
}

// ==================== 定时任务 ====================

// initTasks 初始化定时任务
func initTasks(cfg *config.Config, deps *Dependencies) *task.TaskManager {
	tm := task.NewTaskManager(
		&task.TaskManagerDeps{OrderExpirer: deps.Services.Order},
		&task.TaskManagerConfig{
			OrderExpiryEnabled: true,
			OrderExpirySpec:    cfg.Task.OrderExpirySpec,
		},
	)
	if err := tm.Start(); err != nil {
		zap.L().Fatal("定时任务启动失败", zap.Error(err))
	}

	zap.L().Info("定时任务已启动", zap.Any("tasks", tm.Status()))
	return tm
}

// ==================== 服务启动 ====================

// startServer 启动服务
func startServer(cfg *config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 异步启动服务
	go func() {
		zap.L().Info("服务启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Fatal("服务启动失败", zap.Error(err))
		}
	}()

	// 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zap.L().Info("正在关闭服务...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zap.L().Error("服务强制关闭", zap.Error(err))
		return
	}

	zap.L().Info("服务已退出")
}

// ==================== 工具函数 ====================

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
