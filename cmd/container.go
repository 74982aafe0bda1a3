// cmd/container.go
//
// Root composition root. Owns infrastructure (DB, Redis, mail) and composes
// bounded-context containers. This is the only place that knows about ALL modules.
package main

import (
	"context"

	"github.com/clientela/clientela/pkg/config"
	"github.com/clientela/clientela/pkg/iam/iamcontainer"
	"github.com/clientela/clientela/pkg/logx"
	"github.com/clientela/clientela/pkg/mailx"
	"github.com/clientela/clientela/pkg/mailx/mailxconsole"
	"github.com/clientela/clientela/pkg/mailx/mailxqueue"
	"github.com/clientela/clientela/pkg/mailx/mailxses"
	"github.com/clientela/clientela/pkg/notification"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
)

// Container holds shared infrastructure and composed module containers.
type Container struct {
	Config *config.Config

	// Infrastructure (shared across all modules)
	DB    *sqlx.DB
	Redis *redis.Client

	// Mail outbox and its worker
	MailOutbox *mailxqueue.RedisOutbox
	MailWorker *mailxqueue.Worker

	// Bounded-context containers
	IAM *iamcontainer.Container
}

func NewContainer(cfg *config.Config) *Container {
	logx.Info("🔧 Initializing application container...")

	c := &Container{Config: cfg}

	c.initInfrastructure()
	c.initModules()

	logx.Info("✅ Application container initialized")
	return c
}

// ---------------------------------------------------------------------------
// Infrastructure — DB, Redis, mail
// ---------------------------------------------------------------------------

func (c *Container) initInfrastructure() {
	logx.Info("🏗️ Initializing infrastructure...")

	// 1. Database
	db, err := sqlx.Connect("postgres", c.Config.Database.DSN())
	if err != nil {
		logx.Fatalf("Failed to connect to database: %v", err)
	}
	db.SetMaxOpenConns(c.Config.Database.MaxOpenConns)
	db.SetMaxIdleConns(c.Config.Database.MaxIdleConns)
	db.SetConnMaxLifetime(c.Config.Database.ConnMaxLifetime)
	c.DB = db
	logx.Info("  ✅ Database connected")

	// 2. Redis
	c.Redis = redis.NewClient(&redis.Options{
		Addr:     c.Config.Redis.Address(),
		Password: c.Config.Redis.Password,
		DB:       c.Config.Redis.DB,
	})
	if _, err := c.Redis.Ping(context.Background()).Result(); err != nil {
		logx.Fatalf("Failed to connect to Redis: %v (Redis is required)", err)
	}
	logx.Info("  ✅ Redis connected")

	// 3. Mail
	c.initMail()

	logx.Info("✅ Infrastructure initialized")
}

func (c *Container) initMail() {
	var provider mailx.Sender

	switch c.Config.Mail.Provider {
	case "ses":
		awsCfg, err := awsConfig.LoadDefaultConfig(context.TODO(),
			awsConfig.WithRegion(c.Config.Mail.AWSRegion),
		)
		if err != nil {
			logx.Fatalf("Unable to load AWS SDK config: %v", err)
		}
		provider = mailxses.NewSESProvider(ses.NewFromConfig(awsCfg), c.Config.Mail.FromAddress)
		logx.Infof("  ✅ SES mail provider configured (region: %s)", c.Config.Mail.AWSRegion)

	case "console":
		provider = mailxconsole.NewConsoleProvider()
		logx.Warn("  ⚠️  Using console mail provider (dev mode, nothing is actually sent)")

	default:
		logx.Fatalf("Unknown MAIL_PROVIDER: %s (use 'ses' or 'console')", c.Config.Mail.Provider)
	}

	c.MailOutbox = mailxqueue.NewRedisOutbox(c.Redis, mailxqueue.Options{
		QueueKey:     c.Config.Mail.QueueKey,
		MaxRetries:   c.Config.Mail.MaxRetries,
		PollInterval: c.Config.Mail.PollInterval,
		RetryDelay:   c.Config.Mail.RetryDelay,
	})
	c.MailWorker = mailxqueue.NewWorker(c.MailOutbox, provider)
	logx.Info("  ✅ Mail outbox configured")
}

// ---------------------------------------------------------------------------
// Module composition — each bounded context wires itself
// ---------------------------------------------------------------------------

func (c *Container) initModules() {
	logx.Info("📦 Initializing modules...")

	notifier, err := notification.NewMailNotifier(
		c.MailOutbox,
		c.Config.Mail.FromAddress,
		c.Config.Mail.FromName,
	)
	if err != nil {
		logx.Fatalf("Failed to initialize mail notifier: %v", err)
	}

	c.IAM = iamcontainer.New(iamcontainer.Deps{
		DB:                   c.DB,
		Redis:                c.Redis,
		Cfg:                  c.Config,
		InvitationNotifier:   notifier,
		VerificationNotifier: notifier,
	})
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

func (c *Container) StartBackgroundServices(ctx context.Context) {
	logx.Info("🔄 Starting background services...")

	go func() {
		if err := c.MailWorker.Start(ctx); err != nil {
			logx.Errorf("Mail worker stopped with error: %v", err)
		}
	}()
	logx.Info("  ✅ Mail outbox worker started")
}

func (c *Container) Cleanup() {
	logx.Info("🧹 Cleaning up resources...")

	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			logx.Errorf("Error closing database: %v", err)
		} else {
			logx.Info("  ✅ Database connection closed")
		}
	}

	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			logx.Errorf("Error closing Redis: %v", err)
		} else {
			logx.Info("  ✅ Redis connection closed")
		}
	}

	logx.Info("✅ Cleanup complete")
}
