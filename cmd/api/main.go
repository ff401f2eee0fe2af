package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmlabs-hris/settlement-backend-go/internal/config"
	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/ledger"
	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/payroll"
	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/settlement"
	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/settlement-backend-go/internal/fixtures"
	appHTTP "github.com/cmlabs-hris/settlement-backend-go/internal/handler/http"
	"github.com/cmlabs-hris/settlement-backend-go/internal/pkg/cron"
	"github.com/cmlabs-hris/settlement-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/settlement-backend-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/settlement-backend-go/internal/pkg/lock"
	"github.com/cmlabs-hris/settlement-backend-go/internal/repository/memory"
	"github.com/cmlabs-hris/settlement-backend-go/internal/repository/postgresql"
	ledgerService "github.com/cmlabs-hris/settlement-backend-go/internal/service/ledger"
	payrollService "github.com/cmlabs-hris/settlement-backend-go/internal/service/payroll"
	settlementService "github.com/cmlabs-hris/settlement-backend-go/internal/service/settlement"
	"github.com/go-chi/httplog/v3"
	"github.com/redis/go-redis/v9"
)

const version = "v1.0.0"

// repositories is the storage backend chosen by STORE_DRIVER.
type repositories struct {
	transactor  database.Transactor
	ledger      ledger.LedgerRepository
	instruments settlement.InstrumentRepository
	commissions settlement.CommissionLedger
	payroll     payroll.PayrollRepository
	employees   employee.EmployeeRepository
	attendance  payroll.AttendanceProvider
	absences    payroll.AbsenceProvider
	benefits    payroll.BenefitProvider
	memory      *memory.Store
	close       func()
}

func main() {
	if err := run(); err != nil {
		slog.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logFormat := httplog.SchemaECS.Concise(cfg.App.Env != "development")
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:       cfg.SlogLevel(),
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "settlement-backend"),
		slog.String("version", version),
		slog.String("env", cfg.App.Env),
	)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repos, err := openRepositories(ctx, cfg)
	if err != nil {
		return err
	}
	defer repos.close()

	locker, closeLocker, err := newLocker(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeLocker()

	location := cfg.Location()
	authorizer := user.NewRoleAuthorizer()

	ledgerSvc := ledgerService.NewLedgerService(repos.transactor, locker, repos.ledger, authorizer, time.Now, location)
	settlementSvc := settlementService.NewSettlementService(
		repos.transactor,
		locker,
		repos.instruments,
		repos.commissions,
		repos.employees,
		ledgerSvc,
		authorizer,
		time.Now,
	)
	payrollSvc := payrollService.NewPayrollService(
		repos.transactor,
		locker,
		repos.payroll,
		payrollService.Sources{
			Employees:  repos.employees,
			Attendance: repos.attendance,
			Absences:   repos.absences,
			Benefits:   repos.benefits,
		},
		repos.instruments,
		ledgerSvc,
		authorizer,
		time.Now,
		cfg.Payroll.Workers,
	)

	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)

	if repos.memory != nil {
		if err := seedDemo(ctx, repos.memory, payrollSvc, JWTService, location); err != nil {
			return fmt.Errorf("seed demo data: %w", err)
		}
	}

	router := appHTTP.NewRouter(appHTTP.RouterOptions{
		Logger:         logger,
		LogLevel:       cfg.SlogLevel(),
		AllowedOrigins: cfg.App.AllowedOrigins,
	}, JWTService, appHTTP.Handlers{
		Ledger:   appHTTP.NewLedgerHandler(ledgerSvc),
		Advances: appHTTP.NewSettlementHandler(settlementSvc, settlement.KindAdvance),
		Expenses: appHTTP.NewSettlementHandler(settlementSvc, settlement.KindExpense),
		Payroll:  appHTTP.NewPayrollHandler(payrollSvc),
	})

	if cfg.Payroll.CronEnabled {
		scheduler := cron.NewScheduler()
		cron.NewPayrollJobs(payrollSvc, time.Now, location, cfg.Payroll.CronInterval).RegisterJobs(scheduler)
		scheduler.Start(ctx)
		defer scheduler.Stop()
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server running", "addr", server.Addr, "driver", cfg.App.Driver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func openRepositories(ctx context.Context, cfg *config.Config) (repositories, error) {
	if cfg.App.Driver == config.DriverMemory {
		store := memory.NewStore()
		dir := memory.NewDirectory(store)
		return repositories{
			transactor:  store,
			ledger:      memory.NewLedgerRepository(store),
			instruments: memory.NewInstrumentRepository(store),
			commissions: memory.NewCommissionLedger(store),
			payroll:     memory.NewPayrollRepository(store),
			employees:   dir,
			attendance:  dir,
			absences:    dir,
			benefits:    dir,
			memory:      store,
			close:       func() {},
		}, nil
	}

	db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL(), database.PoolOptions{
		MaxConns: cfg.Database.MaxConns,
		MinConns: cfg.Database.MinConns,
	})
	if err != nil {
		return repositories{}, fmt.Errorf("connect to database: %w", err)
	}
	tenants := database.NewTenantResolver(db)
	return repositories{
		transactor:  postgresql.NewTransactor(db),
		ledger:      postgresql.NewLedgerRepository(db, tenants),
		instruments: postgresql.NewInstrumentRepository(db, tenants),
		commissions: postgresql.NewCommissionLedger(db, tenants),
		payroll:     postgresql.NewPayrollRepository(db, tenants),
		employees:   postgresql.NewEmployeeRepository(db, tenants),
		attendance:  postgresql.NewAttendanceRepository(db, tenants),
		absences:    postgresql.NewAbsenceRepository(db, tenants),
		benefits:    postgresql.NewBenefitRepository(db, tenants),
		close:       db.Close,
	}, nil
}

func newLocker(ctx context.Context, cfg *config.Config) (lock.Locker, func(), error) {
	if !cfg.Redis.Enabled {
		slog.Warn("Redis disabled, locks are process-local")
		return lock.NewLocalLocker(), func() {}, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("connect to redis: %w", err)
	}
	return lock.NewRedisLocker(rdb, lock.RedisOptions{TTL: cfg.Redis.LockTTL}), func() { _ = rdb.Close() }, nil
}

// seedDemo loads the demo business into the memory store, sets up its
// payroll and logs an owner token for trying the API.
func seedDemo(ctx context.Context, store *memory.Store, payrollSvc payroll.PayrollService, JWTService jwt.Service, location *time.Location) error {
	fixtures.SeedDemo(store, fixtures.DemoBusinessID, time.Now().In(location))

	system := user.System(fixtures.DemoBusinessID)
	tmpl, err := payrollSvc.CreateTemplate(ctx, system, fixtures.DefaultTemplateRequest())
	if err != nil {
		return err
	}
	if _, err := payrollSvc.UpsertConfiguration(ctx, system, fixtures.DefaultConfigurationRequest(tmpl.ID)); err != nil {
		return err
	}

	token, expiresAt, err := JWTService.GenerateAccessToken(user.Actor{
		UserID:     "demo-owner",
		BusinessID: fixtures.DemoBusinessID,
		Role:       user.RoleOwner,
	})
	if err != nil {
		return err
	}
	slog.Info("Demo business seeded", "business_id", fixtures.DemoBusinessID, "owner_token", token, "expires_at", time.Unix(expiresAt, 0))
	return nil
}
