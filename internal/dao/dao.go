// Package dao 实现数据访问层
package dao

import (
	"context"
	"fmt"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/haierkeys/contract-version-service/internal/model"
	"github.com/haierkeys/contract-version-service/pkg/fileurl"
	"github.com/haierkeys/contract-version-service/pkg/util"
	"github.com/haierkeys/contract-version-service/pkg/writequeue"
	"github.com/haierkeys/gormTracing"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/dbresolver"
)

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Type            string
	Path            string
	UserName        string
	Password        string
	Host            string
	Name            string
	SSLMode         string
	AutoMigrate     bool
	Charset         string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime string
	ConnMaxIdleTime string
	// Replicas 只读副本地址，格式与 Host 相同（mysql/postgres）
	Replicas []string
	// Debug 打印 SQL
	Debug bool
}

// Dao 数据访问对象
type Dao struct {
	Db         *gorm.DB
	ctx        context.Context
	config     *DatabaseConfig
	logger     *zap.Logger
	writeQueue *writequeue.Manager

	migrateOnce sync.Once
	migrateErr  error
}

// Option Dao 配置选项
type Option func(*Dao)

// WithConfig 设置数据库配置
func WithConfig(c *DatabaseConfig) Option {
	return func(d *Dao) { d.config = c }
}

// WithLogger 设置日志器
func WithLogger(l *zap.Logger) Option {
	return func(d *Dao) { d.logger = l }
}

// WithWriteQueueManager 设置写队列管理器
// 未设置时写操作直接在事务中执行，不做按合同串行化
func WithWriteQueueManager(m *writequeue.Manager) Option {
	return func(d *Dao) { d.writeQueue = m }
}

// New 创建 Dao
func New(db *gorm.DB, ctx context.Context, opts ...Option) *Dao {
	d := &Dao{Db: db, ctx: ctx}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = zap.NewNop()
	}
	if d.config == nil {
		d.config = &DatabaseConfig{AutoMigrate: true}
	}
	return d
}

// DB 返回底层 gorm 连接
func (d *Dao) DB() *gorm.DB {
	return d.Db
}

// Logger 返回日志器
func (d *Dao) Logger() *zap.Logger {
	return d.logger
}

// WriteQueue 返回写队列管理器，可能为 nil
func (d *Dao) WriteQueue() *writequeue.Manager {
	return d.writeQueue
}

// Migrate 建表，进程内只执行一次
func (d *Dao) Migrate() error {
	d.migrateOnce.Do(func() {
		if !d.config.AutoMigrate {
			return
		}
		d.migrateErr = model.AutoMigrate(d.Db)
		if d.migrateErr == nil {
			d.logger.Debug("database schema migrated")
		}
	})
	return d.migrateErr
}

// ExecuteWrite runs fn in a transaction on key's write queue.
// Everything fn writes must go through tx.
// ExecuteWrite 在 key 的写队列上以事务方式执行 fn，fn 内的写操作必须使用 tx
func (d *Dao) ExecuteWrite(ctx context.Context, key int64, fn func(tx *gorm.DB) error) error {
	run := func(ctx context.Context) error {
		return d.Db.WithContext(ctx).Transaction(fn)
	}
	if d.writeQueue == nil {
		return run(ctx)
	}
	return d.writeQueue.Execute(ctx, key, run)
}

// NewDBEngineWithConfig 根据配置创建数据库连接
func NewDBEngineWithConfig(c DatabaseConfig, lg *zap.Logger) (*gorm.DB, error) {
	if lg == nil {
		lg = zap.NewNop()
	}

	dialector, err := useDialector(c, c.Host)
	if err != nil {
		return nil, err
	}

	gormLogger := logger.Default.LogMode(logger.Silent)
	if c.Debug {
		gormLogger = logger.Default.LogMode(logger.Info)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "database handle")
	}

	maxIdle, maxOpen := c.MaxIdleConns, c.MaxOpenConns
	if maxIdle <= 0 {
		maxIdle = 10
	}
	if maxOpen <= 0 {
		maxOpen = 100
	}
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetConnMaxLifetime(util.ParseDurationOr(c.ConnMaxLifetime, 30*time.Minute))
	sqlDB.SetConnMaxIdleTime(util.ParseDurationOr(c.ConnMaxIdleTime, 10*time.Minute))

	if len(c.Replicas) > 0 {
		if c.Type == "sqlite" {
			lg.Warn("read replicas are ignored for sqlite", zap.Strings("replicas", c.Replicas))
		} else {
			replicas := make([]gorm.Dialector, 0, len(c.Replicas))
			for _, host := range c.Replicas {
				r, err := useDialector(c, host)
				if err != nil {
					return nil, err
				}
				replicas = append(replicas, r)
			}
			if err := db.Use(dbresolver.Register(dbresolver.Config{
				Replicas: replicas,
				Policy:   dbresolver.RandomPolicy{},
			})); err != nil {
				return nil, errors.Wrap(err, "register read replicas")
			}
			lg.Info("read replicas registered", zap.Int("count", len(replicas)))
		}
	}

	_ = db.Use(&gormTracing.OpentracingPlugin{})

	return db, nil
}

// useDialector 根据数据库类型创建 dialector
func useDialector(c DatabaseConfig, host string) (gorm.Dialector, error) {
	switch c.Type {
	case "mysql":
		charset := c.Charset
		if charset == "" {
			charset = "utf8mb4"
		}
		return mysql.Open(fmt.Sprintf("%s:%s@tcp(%s)/%s?charset=%s&parseTime=true&loc=UTC",
			c.UserName,
			c.Password,
			host,
			c.Name,
			charset,
		)), nil
	case "postgres":
		h, port, err := net.SplitHostPort(host)
		if err != nil {
			h, port = host, "5432"
		}
		sslMode := c.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		return postgres.Open(fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
			h, c.UserName, c.Password, c.Name, port, sslMode,
		)), nil
	case "sqlite", "":
		if c.Path == "" {
			return nil, errors.New("sqlite path is empty")
		}
		if !strings.HasPrefix(c.Path, "file::memory:") && !fileurl.IsExist(c.Path) {
			if err := fileurl.CreatePath(c.Path, os.ModePerm); err != nil {
				return nil, errors.Wrap(err, "create sqlite directory")
			}
		}
		return sqlite.Open(sqliteDSN(c.Path)), nil
	}
	return nil, fmt.Errorf("unsupported database type %q", c.Type)
}

// sqliteDSN WAL 允许读写并发，immediate 事务避免锁升级死锁
func sqliteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_txlock=immediate"
}
