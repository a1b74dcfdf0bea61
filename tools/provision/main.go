package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/opencampus-io/campus-saas/domains/schools/be/repo"
	"github.com/opencampus-io/campus-saas/domains/schools/be/service"
	"github.com/opencampus-io/campus-saas/platform/go/logging"
	"github.com/opencampus-io/campus-saas/platform/go/persistence"
	"github.com/opencampus-io/campus-saas/platform/go/tenant"
)

type config struct {
	MongoURL      string        `env:"MONGO_URL,required"`
	AdminDatabase string        `env:"ADMIN_DATABASE" envDefault:"campus_admin"`
	LogLevel      string        `env:"LOG_LEVEL" envDefault:"info"`
	Timeout       time.Duration `env:"PROVISION_TIMEOUT" envDefault:"2m"`
}

func main() {
	code := flag.String("code", "", "school code to register or reprovision")
	name := flag.String("name", "", "school display name (registration only)")
	reprovision := flag.Bool("reprovision", false, "re-run provisioning for an already registered school")
	mintRole := flag.String("mint", "", "mint one ID for the given role afterwards (student|teacher|admin|parent)")
	flag.Parse()

	if strings.TrimSpace(*code) == "" {
		fmt.Fprintln(os.Stderr, "usage: provision -code <school code> [-name <name>] [-reprovision] [-mint <role>]")
		os.Exit(2)
	}

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.NewLogger(logging.Config{Component: "provision-cli", Level: cfg.LogLevel})
	if err != nil {
		log.Fatalf("init zap logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	registry, err := persistence.NewRegistry(persistence.RegistryConfig{BaseURI: cfg.MongoURL, Logger: logger})
	if err != nil {
		logger.Fatal("init connection registry", zap.Error(err))
	}
	defer func() {
		_ = registry.CloseAll(context.Background())
	}()

	adminURI, err := persistence.URIForDatabase(cfg.MongoURL, cfg.AdminDatabase)
	if err != nil {
		logger.Fatal("derive admin database uri", zap.Error(err))
	}
	adminClient, err := mongo.Connect(ctx, options.Client().ApplyURI(adminURI))
	if err != nil {
		logger.Fatal("connect admin database", zap.Error(err))
	}
	defer func() {
		_ = adminClient.Disconnect(context.Background())
	}()

	directory := repo.NewMongoRepository(adminClient.Database(cfg.AdminDatabase))
	if err := directory.EnsureIndexes(ctx); err != nil {
		logger.Fatal("ensure directory indexes", zap.Error(err))
	}

	svc := service.New(
		directory,
		persistence.NewProvisioner(registry, logger),
		persistence.NewSequencer(registry),
		logger,
	)

	if *reprovision {
		result, err := svc.Reprovision(ctx, *code)
		if err != nil {
			logger.Fatal("reprovision school", zap.String("school", *code), zap.Error(err))
		}
		logger.Info("school reprovisioned",
			zap.String("school", *code),
			zap.Int("collections_created", result.CollectionsCreated),
		)
	} else {
		school, err := svc.Register(ctx, service.RegisterInput{Code: *code, Name: *name})
		if err != nil {
			logger.Fatal("register school", zap.String("school", *code), zap.Error(err))
		}
		logger.Info("school registered",
			zap.String("school", school.Code),
			zap.String("database", school.DatabaseName),
		)
	}

	if *mintRole != "" {
		id, err := svc.MintUserID(ctx, *code, tenant.ParseRole(*mintRole))
		if err != nil {
			logger.Fatal("mint user id", zap.String("school", *code), zap.Error(err))
		}
		fmt.Println(id)
	}
}
