// cmd/container.go
//
// Root composition root. Owns infrastructure (DB, Redis, object storage,
// email) and composes bounded-context containers. This is the only place
// that knows about ALL modules.
package main

import (
	"context"
	"fmt"

	"github.com/Abraxas-365/jobgrid/pkg/company"
	"github.com/Abraxas-365/jobgrid/pkg/company/companyapi"
	"github.com/Abraxas-365/jobgrid/pkg/company/companyinfra"
	"github.com/Abraxas-365/jobgrid/pkg/company/companysrv"
	"github.com/Abraxas-365/jobgrid/pkg/config"
	"github.com/Abraxas-365/jobgrid/pkg/database"
	"github.com/Abraxas-365/jobgrid/pkg/errx"
	"github.com/Abraxas-365/jobgrid/pkg/fsx"
	"github.com/Abraxas-365/jobgrid/pkg/fsx/fsxapi"
	"github.com/Abraxas-365/jobgrid/pkg/fsx/fsxlocal"
	"github.com/Abraxas-365/jobgrid/pkg/fsx/fsxs3"
	"github.com/Abraxas-365/jobgrid/pkg/iam/iamcontainer"
	"github.com/Abraxas-365/jobgrid/pkg/iam/user"
	"github.com/Abraxas-365/jobgrid/pkg/iam/user/userinfra"
	"github.com/Abraxas-365/jobgrid/pkg/kernel"
	"github.com/Abraxas-365/jobgrid/pkg/logx"
	"github.com/Abraxas-365/jobgrid/pkg/metrics"
	"github.com/Abraxas-365/jobgrid/pkg/notifx"
	"github.com/Abraxas-365/jobgrid/pkg/notifx/notifxconsole"
	"github.com/Abraxas-365/jobgrid/pkg/notifx/notifxses"
	"github.com/Abraxas-365/jobgrid/pkg/ratelimit"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

// Container holds shared infrastructure and composed module containers.
type Container struct {
	Config *config.Config

	// Infrastructure (shared across all modules)
	DB       *sqlx.DB      // nil in memory mode
	Redis    *redis.Client // nil unless REDIS_ENABLED
	Store    fsx.ObjectStore
	Mailer   *notifx.Client
	Metrics  *metrics.Collector
	Registry *prometheus.Registry

	// localStore is set when objects are served from disk under /files
	localStore *fsxlocal.LocalStore

	Users     user.Repository
	Companies company.Repository

	// Bounded-context containers
	IAM *iamcontainer.Container

	CompanyService  *companysrv.CompanyService
	CompanyHandlers *companyapi.CompanyHandlers
	UploadHandler   *fsxapi.UploadHandler
	UploadLimiter   *ratelimit.TokenBucketLimiter
}

func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	logx.Info("🔧 Initializing application container...")

	c := &Container{Config: cfg}

	if err := c.initInfrastructure(ctx); err != nil {
		c.Cleanup()
		return nil, err
	}
	if err := c.initModules(); err != nil {
		c.Cleanup()
		return nil, err
	}

	logx.Info("✅ Application container initialized")
	return c, nil
}

// ---------------------------------------------------------------------------
// Infrastructure: DB, Redis, object storage, email, metrics
// ---------------------------------------------------------------------------

func (c *Container) initInfrastructure(ctx context.Context) error {
	logx.Info("🏗️ Initializing infrastructure...")
	cfg := c.Config

	// 1. Repositories
	switch cfg.Database.Mode {
	case "memory":
		users := userinfra.NewMemoryUserRepository()
		c.Users = users
		c.Companies = companyinfra.NewMemoryCompanyRepository(memoryResolver(users))
		logx.Warn("  ⚠️  Using in-memory repositories (data is lost on restart)")
	default:
		if cfg.Database.AutoMigrate {
			if err := database.RunMigrations(cfg.Database.URL()); err != nil {
				return fmt.Errorf("run migrations: %w", err)
			}
		}
		db, err := database.Open(ctx, cfg.Database)
		if err != nil {
			return err
		}
		c.DB = db
		c.Users = userinfra.NewPostgresUserRepository(db)
		c.Companies = companyinfra.NewPostgresCompanyRepository(db)
		logx.Info("  ✅ Database connected")
	}

	// 2. Redis
	if cfg.Redis.Enabled {
		c.Redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := c.Redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		logx.Info("  ✅ Redis connected")
	}

	// 3. Object storage
	switch cfg.Storage.Mode {
	case "s3":
		awsCfg, err := awsConfig.LoadDefaultConfig(ctx, awsConfig.WithRegion(cfg.Storage.AWSRegion))
		if err != nil {
			return fmt.Errorf("load AWS config: %w", err)
		}
		c.Store = fsxs3.NewS3Store(s3.NewFromConfig(awsCfg), cfg.Storage.AWSRegion, "")
		logx.Infof("  ✅ S3 storage ready (region: %s)", cfg.Storage.AWSRegion)
	default:
		local, err := fsxlocal.NewLocalStore(cfg.Storage.UploadDir, cfg.Storage.PublicBaseURL)
		if err != nil {
			return fmt.Errorf("create local store: %w", err)
		}
		c.Store = local
		c.localStore = local
		logx.Infof("  ✅ Local storage ready (%s)", local.BasePath())
	}

	// 4. Email
	var sender notifx.EmailSender
	switch cfg.Notifx.Provider {
	case "ses":
		awsCfg, err := awsConfig.LoadDefaultConfig(ctx, awsConfig.WithRegion(cfg.Notifx.AWSRegion))
		if err != nil {
			return fmt.Errorf("load AWS config: %w", err)
		}
		sender = notifxses.NewSESProvider(ses.NewFromConfig(awsCfg))
		logx.Info("  ✅ SES email provider ready")
	default:
		sender = notifxconsole.NewConsoleProvider()
		logx.Info("  ✅ Console email provider ready")
	}
	c.Mailer = notifx.NewClient(sender, cfg.Notifx.FromAddress, cfg.Notifx.FromName)

	// 5. Metrics
	c.Registry = prometheus.NewRegistry()
	c.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	c.Metrics = metrics.NewCollector(c.Registry)

	return nil
}

// memoryResolver lets the memory company repository join memberships to
// users the same way the SQL query does.
func memoryResolver(users *userinfra.MemoryUserRepository) companyinfra.UserIDResolver {
	return func(ctx context.Context, ext kernel.ExternalID) (kernel.UserID, error) {
		u, err := users.FindByExternalID(ctx, ext)
		if err != nil {
			if errx.IsCode(err, user.CodeUserNotFound) {
				return "", nil
			}
			return "", err
		}
		return u.ID, nil
	}
}

// ---------------------------------------------------------------------------
// Modules
// ---------------------------------------------------------------------------

func (c *Container) initModules() error {
	logx.Info("📦 Initializing modules...")

	iam, err := iamcontainer.New(iamcontainer.Deps{
		Cfg:       c.Config,
		Redis:     c.Redis,
		Users:     c.Users,
		Companies: c.Companies,
		Mailer:    c.Mailer,
		Metrics:   c.Metrics,
	})
	if err != nil {
		return fmt.Errorf("init iam: %w", err)
	}
	c.IAM = iam

	c.CompanyService = companysrv.NewCompanyService(c.Companies, iam.UserService, c.Store, c.Config.Storage.CompanyBucket)
	c.CompanyHandlers = companyapi.NewCompanyHandlers(c.CompanyService)
	c.UploadHandler = fsxapi.NewUploadHandler(c.Store)
	c.UploadLimiter = ratelimit.NewTokenBucketLimiter(c.Config.RateLimit.UploadPerMinute, c.Config.RateLimit.UploadBurst)

	logx.Info("  ✅ Modules initialized")
	return nil
}

// Cleanup releases every resource the container opened.
func (c *Container) Cleanup() {
	logx.Info("🧹 Cleaning up resources...")

	if c.IAM != nil {
		c.IAM.Close()
	}
	if c.UploadLimiter != nil {
		c.UploadLimiter.Stop()
	}
	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			logx.Errorf("Error closing database: %v", err)
		}
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			logx.Errorf("Error closing Redis: %v", err)
		}
	}

	logx.Info("✅ Cleanup complete")
}
