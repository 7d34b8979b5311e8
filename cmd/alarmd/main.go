// alarmd monitors parking operations data and raises alarms when things go
// quiet or pile up.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/parkops/alarmd/internal/alarming"
	"github.com/parkops/alarmd/internal/api"
	"github.com/parkops/alarmd/internal/conf"
	"github.com/parkops/alarmd/internal/datastore/entities"
	"github.com/parkops/alarmd/internal/datastore/repository"
	"github.com/parkops/alarmd/internal/notification"
)

func main() {
	var configPath string

	root := &cobra.Command{
		Use:   "alarmd",
		Short: "Parking operations alarm service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), configPath)
		},
		SilenceUsage: true,
	}
	root.Flags().StringVarP(&configPath, "config", "c", "", "path to config file")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	settings, err := conf.Load(configPath)
	if err != nil {
		return err
	}

	log, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	db, err := openDatabase(settings.Database)
	if err != nil {
		return err
	}
	if err := db.AutoMigrate(
		&entities.AlarmDefinition{},
		&entities.DefinitionChannel{},
		&entities.DefinitionAction{},
		&entities.Alarm{},
		&entities.AlarmNotification{},
		&entities.Payment{},
		&entities.Movement{},
		&entities.Decision{},
	); err != nil {
		return fmt.Errorf("failed to migrate database schema: %w", err)
	}

	definitions := repository.NewDefinitionRepository(db)
	alarms := repository.NewAlarmRepository(db)
	notifications := repository.NewNotificationRepository(db)
	sources := repository.NewConditionSources(db)

	senders := map[string]notification.Sender{}
	if s := notification.NewShoutrrrSender(settings.Notifications.EmailURL); s != nil {
		senders[notification.ChannelEmail] = s
	}
	if s := notification.NewShoutrrrSender(settings.Notifications.SMSURL); s != nil {
		senders[notification.ChannelSMS] = s
	}
	recipients := map[string]string{
		notification.ChannelEmail: settings.Notifications.EmailRecipient,
		notification.ChannelSMS:   settings.Notifications.SMSRecipient,
	}
	dispatcher := notification.NewDispatcher(notifications, senders, recipients, log)

	var chat alarming.ChatSender
	if s := alarming.NewTelegramSender(settings.Actions.ChatBotToken); s != nil {
		chat = s
	}
	var announcer alarming.Announcer
	if a := alarming.NewCommandAnnouncer(settings.Actions.AnnounceCommand, settings.Actions.AnnounceTimeout.Std()); a != nil {
		announcer = a
	}
	executor := alarming.NewExecutor(chat, announcer, settings.Actions.DefaultChatDestination, log)

	lifecycle := alarming.NewLifecycle(definitions, alarms, dispatcher, executor, log)
	checker := alarming.NewChecker(sources, lifecycle, log)
	scheduler := alarming.NewScheduler(definitions, checker, settings.Scheduler.TickInterval.Std(), log)

	if settings.Scheduler.SeedDefaults {
		if err := alarming.EnsureDefaults(ctx, definitions, log); err != nil {
			return fmt.Errorf("failed to seed default definitions: %w", err)
		}
	}
	if err := scheduler.Refresh(ctx); err != nil {
		return err
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	controller := api.New(definitions, lifecycle, scheduler, executor, dispatcher, log)
	controller.RegisterRoutes(e.Group("/api/v1"))

	go func() {
		if err := e.Start(settings.HTTP.Listen); err != nil && err != http.ErrServerClosed {
			log.Error("http server stopped", zap.Error(err))
		}
	}()
	log.Info("alarmd started",
		zap.String("listen", settings.HTTP.Listen),
		zap.String("database", settings.Database.Driver))

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown failed: %w", err)
	}
	return nil
}

// openDatabase opens the configured database with quiet gorm logging; the
// service logs through zap instead.
func openDatabase(settings conf.DatabaseSettings) (*gorm.DB, error) {
	config := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)}

	var dialector gorm.Dialector
	switch settings.Driver {
	case "mysql":
		dialector = mysql.Open(settings.DSN)
	default:
		dialector = sqlite.Open(settings.DSN)
	}

	db, err := gorm.Open(dialector, config)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", settings.Driver, err)
	}
	return db, nil
}
