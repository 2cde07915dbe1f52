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
	_ "time/tzdata"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"medcenter/config"
	_ "medcenter/docs"
	"medcenter/internal/repository"
	"medcenter/internal/service"
	"medcenter/internal/storage"
	"medcenter/internal/transport/rest"
	"medcenter/internal/transport/websocket"
	"medcenter/pkg/database"
	"medcenter/pkg/logger"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

const shutdownTimeout = 10 * time.Second

// @title Medcenter API
// @version 1.0
// @description API записи пациентов на визиты к врачам клиники

// @BasePath /api/v1

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization
func main() {
	rootCmd := &cobra.Command{
		Use:           "medcenter",
		Short:         "Сервер записи на визиты",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedAdminCmd())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Запустить HTTP сервер",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Применить миграции базы данных",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, db, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer log.Sync()
			defer db.Close()

			applied, err := database.RunMigrations(cmd.Context(), db, cfg.MigrationsDir, log)
			if err != nil {
				return fmt.Errorf("ошибка при выполнении миграций: %w", err)
			}

			log.Info("Миграции успешно выполнены", zap.Int("applied", applied))
			return nil
		},
	}
}

func seedAdminCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "seed-admin",
		Short: "Создать учетную запись администратора",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, db, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer log.Sync()
			defer db.Close()

			if email == "" {
				email = cfg.Admin.Email
			}
			if password == "" {
				password = cfg.Admin.Password
			}
			if password == "" {
				return errors.New("пароль администратора не задан (--password или ADMIN_PASSWORD)")
			}

			users := service.NewUserService(repository.NewUserRepository(db), log)
			created, err := users.EnsureAdmin(cmd.Context(), email, password)
			if err != nil {
				return fmt.Errorf("ошибка создания администратора: %w", err)
			}

			if created {
				log.Info("Администратор создан", zap.String("email", email))
			} else {
				log.Info("Администратор уже существует", zap.String("email", email))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "email администратора")
	cmd.Flags().StringVar(&password, "password", "", "пароль администратора")

	return cmd
}

// bootstrap loads configuration, builds the logger and opens the pool.
func bootstrap(ctx context.Context) (*config.Config, *zap.Logger, *pgxpool.Pool, error) {
	cfg, err := config.NewConfig()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("не удалось загрузить конфигурацию: %w", err)
	}

	log, err := logger.NewLogger(cfg.Environment, cfg.LogLevel)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("не удалось создать логгер: %w", err)
	}

	db, err := database.NewPostgresDB(ctx, cfg.Postgres, log)
	if err != nil {
		_ = log.Sync()
		return nil, nil, nil, fmt.Errorf("не удалось подключиться к БД: %w", err)
	}

	return cfg, log, db, nil
}

func runServer(ctx context.Context) error {
	cfg, log, db, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer log.Sync()
	defer db.Close()

	log.Info("Запуск миграций базы данных")
	applied, err := database.RunMigrations(ctx, db, cfg.MigrationsDir, log)
	if err != nil {
		return fmt.Errorf("ошибка при выполнении миграций: %w", err)
	}
	log.Info("Миграции успешно выполнены", zap.Int("applied", applied))

	var fileStorage storage.FileStorage
	if cfg.S3.Endpoint != "" {
		s3Storage, err := storage.NewS3Storage(ctx, cfg.S3, log)
		if err != nil {
			return fmt.Errorf("не удалось инициализировать S3 хранилище: %w", err)
		}
		fileStorage = s3Storage
		log.Info("S3 хранилище успешно инициализировано", zap.String("endpoint", cfg.S3.Endpoint))
	} else {
		log.Warn("S3 хранилище не настроено, загрузка файлов будет недоступна")
	}

	visitHub := websocket.NewVisitHub(log, cfg.HTTP.AllowedOrigins)
	go visitHub.Run(ctx)

	repos := repository.NewRepositories(db)

	services := service.NewServices(service.Deps{
		Repos:       repos,
		Logger:      log,
		Config:      cfg,
		FileStorage: fileStorage,
		Notifier:    visitHub,
	})

	if cfg.Admin.Password != "" {
		created, err := services.User.EnsureAdmin(ctx, cfg.Admin.Email, cfg.Admin.Password)
		if err != nil {
			return fmt.Errorf("ошибка создания администратора: %w", err)
		}
		if created {
			log.Info("Администратор создан", zap.String("email", cfg.Admin.Email))
		}
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	handler := rest.NewHandler(services, log, cfg, visitHub)
	handler.InitRoutes(router)

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/swagger", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
	})

	srv := &http.Server{
		Addr:           ":" + cfg.HTTP.Port,
		Handler:        router,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderMB << 20,
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	log.Info("Сервер запущен", zap.String("addr", srv.Addr), zap.String("version", cfg.Version))

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("ошибка запуска сервера: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Выключение сервера...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("ошибка при остановке сервера: %w", err)
	}

	log.Info("Сервер успешно остановлен")
	return nil
}
