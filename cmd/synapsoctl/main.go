// Command synapsoctl runs maintenance tasks against the Synapso database.
//
// Usage:
//
//	synapsoctl create-user -name alice -password secret123 [-admin]
//	synapsoctl set-password -name alice -password newsecret
//	synapsoctl seed-bodyparts
//	synapsoctl clear-completions
//
// The database is located with the same configuration as the server
// (config.yaml, CONFIG_PATH, DB_PATH...). A .env file in the working
// directory is loaded first when present.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/mmynk/synapso/internal/auth"
	"github.com/mmynk/synapso/internal/config"
	"github.com/mmynk/synapso/internal/models"
	"github.com/mmynk/synapso/internal/service"
	"github.com/mmynk/synapso/internal/storage/sqlite"
	"github.com/mmynk/synapso/pkg/logging"
)

func usage() {
	fmt.Fprintln(os.Stderr, `usage: synapsoctl <command> [flags]

commands:
  create-user        create a user (-name, -password, -admin)
  set-password       reset the password of a user (-name, -password)
  seed-bodyparts     insert the default body parts that are missing
  clear-completions  clear completions outside each user's current period`)
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
		os.Exit(1)
	}
	logging.Setup()

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	if err := run(context.Background(), os.Args[1], os.Args[2:]); err != nil {
		slog.Error("Command failed", "command", os.Args[1], "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, command string, args []string) error {
	switch command {
	case "create-user":
		return createUser(ctx, args)
	case "set-password":
		return setPassword(ctx, args)
	case "seed-bodyparts":
		return seedBodyparts(ctx, args)
	case "clear-completions":
		return clearCompletions(ctx, args)
	case "help", "-h", "--help":
		usage()
		return nil
	default:
		usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func openStore() (*sqlite.SQLiteStore, *config.Config, error) {
	cfg, err := config.Read()
	if err != nil {
		return nil, nil, err
	}
	if cfg.Database.Path == "" {
		return nil, nil, errors.New("database.path is required (set DB_PATH)")
	}
	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	return store, cfg, nil
}

func createUser(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("create-user", flag.ExitOnError)
	name := fset.String("name", "", "login name")
	password := fset.String("password", "", "password (at least 8 characters)")
	admin := fset.Bool("admin", false, "grant the ADMIN role")
	if err := fset.Parse(args); err != nil {
		return err
	}
	if *name == "" || *password == "" {
		fset.Usage()
		return errors.New("-name and -password are required")
	}

	store, _, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	role := models.RoleUser
	if *admin {
		role = models.RoleAdmin
	}
	user, err := auth.NewPasswordAuthenticator(store).Register(ctx, *name, *password, role)
	if err != nil {
		return err
	}
	fmt.Printf("created %s %s (%s)\n", user.Role, user.Name, user.ID)
	return nil
}

func setPassword(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("set-password", flag.ExitOnError)
	name := fset.String("name", "", "login name")
	password := fset.String("password", "", "new password (at least 8 characters)")
	if err := fset.Parse(args); err != nil {
		return err
	}
	if *name == "" || *password == "" {
		fset.Usage()
		return errors.New("-name and -password are required")
	}

	store, _, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	user, err := store.GetUserByName(ctx, *name)
	if err != nil {
		return fmt.Errorf("failed to find user %q: %w", *name, err)
	}
	if err := auth.NewPasswordAuthenticator(store).SetPassword(ctx, user.ID, *password); err != nil {
		return err
	}
	fmt.Printf("password updated for %s\n", user.Name)
	return nil
}

func seedBodyparts(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("seed-bodyparts", flag.ExitOnError)
	if err := fset.Parse(args); err != nil {
		return err
	}

	store, _, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	n, err := store.SeedBodyparts(ctx, sqlite.DefaultBodyparts)
	if err != nil {
		return err
	}
	fmt.Printf("%d bodyparts inserted\n", n)
	return nil
}

func clearCompletions(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("clear-completions", flag.ExitOnError)
	if err := fset.Parse(args); err != nil {
		return err
	}

	store, cfg, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	n, err := service.ClearStaleCompletions(ctx, store, time.Now(), loc)
	if err != nil {
		return err
	}
	fmt.Printf("%d completions cleared\n", n)
	return nil
}
