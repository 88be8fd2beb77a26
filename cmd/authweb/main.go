package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/django/v3"
	authclient "github.com/goliatone/go-auth-client"
	"github.com/goliatone/go-router"
	mflash "github.com/goliatone/go-router/middleware/flash"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// Config drives the auth web front end.
type Config struct {
	Address string `koanf:"address"`
	Debug   bool   `koanf:"debug"`

	API struct {
		BaseURL string        `koanf:"base_url"`
		Timeout time.Duration `koanf:"timeout"`
	} `koanf:"api"`

	Database struct {
		DSN string `koanf:"dsn"`
	} `koanf:"database"`

	Views struct {
		Dir string `koanf:"dir"`
	} `koanf:"views"`
}

func loadConfig(args []string) (*Config, error) {
	f := pflag.NewFlagSet("authweb", pflag.ContinueOnError)
	f.String("config", "", "config file path")
	f.String("address", ":8572", "listen address")
	f.Bool("debug", false, "enable payload dumps")
	f.String("api.base_url", "http://localhost:8000", "auth API base URL")
	f.Duration("api.timeout", 10*time.Second, "auth API request timeout")
	f.String("database.dsn", "file:authclient.db", "sqlite DSN for the token store")
	f.String("views.dir", "./views", "template directory")

	if err := f.Parse(args); err != nil {
		return nil, err
	}

	k := koanf.New(".")

	if path, _ := f.GetString("config"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("unable to load config file %q: %w", path, err)
		}
	}

	if err := k.Load(posflag.Provider(f, ".", k), nil); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func main() {
	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()

	db, err := openDB(cfg.Database.DSN)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	store, err := authclient.NewBunTokenStore(ctx, db)
	if err != nil {
		log.Fatal(err)
	}

	svc := authclient.NewHTTPService(authclient.ClientConfig{
		BaseURL:    cfg.API.BaseURL,
		HTTPClient: &http.Client{Timeout: cfg.API.Timeout},
	})

	manager := authclient.NewManager(svc, store,
		authclient.WithActivitySink(logSink()),
	)

	if err := manager.Start(ctx); err != nil {
		log.Fatal(err)
	}

	srv := newServer(cfg)

	authclient.RegisterRoutes(srv.Router(),
		authclient.WithControllerManager(manager),
		authclient.WithControllerDebug(cfg.Debug),
	)

	srv.Router().Get("/", func(ctx router.Context) error {
		return ctx.Redirect("/dashboard", router.StatusTemporaryRedirect)
	})

	srv.Serve(cfg.Address)

	WaitExitSignal()

	if err := srv.Shutdown(ctx); err != nil {
		log.Println("shutdown error:", err)
	}
}

func openDB(dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, err
	}
	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}

func newServer(cfg *Config) router.Server[*fiber.App] {
	engine := django.New(cfg.Views.Dir, ".html")

	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			UnescapePath:      true,
			EnablePrintRoutes: cfg.Debug,
			StrictRouting:     false,
			PassLocalsToViews: true,
			Views:             engine,
		}))
	})

	srv.Router().Use(mflash.New(mflash.ConfigDefault))

	return srv
}

func logSink() authclient.ActivitySinkFunc {
	return func(_ context.Context, event authclient.ActivityEvent) error {
		log.Printf("activity: %s user=%s", event.EventType, event.UserID)
		return nil
	}
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}
