// Command festctl runs maintenance operations directly against the configured storage.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"golang.org/x/crypto/bcrypt"

	"github.com/forgo/festreg/internal/app"
	"github.com/forgo/festreg/internal/config"
)

const usage = `Usage: festctl <command> [flags]

Commands:
  resync               Recompute participant counters from live registrations
  clear                Delete every registration and zero all counters
  seed <file.hcl>      Load houses, events and participants from a catalog file
  open  [-pre-events]  Enable registration for main events or pre-events
  close [-pre-events]  Disable registration for main events or pre-events
  token [-secret s]    Generate an admin token and its ADMIN_TOKEN_HASH
`

var errUsage = errors.New("invalid usage")

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})))

	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, rest := args[0], args[1:]

	switch cmd {
	case "token":
		return runToken(rest, out)
	case "resync", "clear", "seed", "open", "close":
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}

	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	preEvents := fs.Bool("pre-events", false, "target pre-events instead of main events")
	if err := fs.Parse(rest); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	cfg, err := config.Load(".env")
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	var result any
	switch cmd {
	case "resync":
		result, err = a.Maintenance.Resync(ctx)
	case "clear":
		result, err = a.Maintenance.ClearRegistrations(ctx)
	case "seed":
		if fs.NArg() != 1 {
			return fmt.Errorf("%w: seed takes exactly one catalog file", errUsage)
		}
		result, err = a.SeedFile(ctx, fs.Arg(0))
	case "open", "close":
		var n int
		if cmd == "open" {
			n, err = a.Maintenance.OpenRegistrations(ctx, *preEvents)
		} else {
			n, err = a.Maintenance.CloseRegistrations(ctx, *preEvents)
		}
		result = map[string]any{
			"pre_events":           *preEvents,
			"registration_enabled": cmd == "open",
			"updated":              n,
		}
	}
	if err != nil {
		return err
	}
	return writeJSON(out, result)
}

func runToken(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	secret := fs.String("secret", "", "hash this token instead of generating one")
	cost := fs.Int("cost", bcrypt.DefaultCost, "bcrypt cost")
	outputJSON := fs.Bool("json", false, "output as JSON")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	token := *secret
	if token == "" {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return fmt.Errorf("generate token: %w", err)
		}
		token = hex.EncodeToString(buf)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(token), *cost)
	if err != nil {
		return fmt.Errorf("hash token: %w", err)
	}

	if *outputJSON {
		return writeJSON(out, map[string]string{
			"token":      token,
			"token_hash": string(hash),
		})
	}

	fmt.Fprintln(out, "Admin Token Generated")
	fmt.Fprintln(out, "=====================")
	fmt.Fprintf(out, "Token:            %s\n", token)
	fmt.Fprintf(out, "ADMIN_TOKEN_HASH: %s\n", hash)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Usage:")
	fmt.Fprintf(out, "  curl -X POST -H 'Authorization: Bearer %s' http://localhost:8080/v1/admin/resync\n", token)
	return nil
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
