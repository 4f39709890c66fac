package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/sundayezeilo/shortlinks/internal/auth"
	"github.com/sundayezeilo/shortlinks/internal/config"
)

const usage = `Usage: urlshortener-cli [flags] <command> [value]

A CLI to interact with the URL shortener service.

Commands:
  shorten <url>      Shortens a long URL. https:// is assumed when no scheme is given.
  stats <code>       Shows the destination and click count of a short code.
  history            Lists the links created by the token's owner.
  token <owner>      Signs a bearer token for owner with AUTH_JWT_SECRET (local use).

Flags:
`

var errUsage = errors.New("invalid usage")

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("urlshortener-cli", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}

	authCfg, err := authFromEnv()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	server := fs.String("server", envOr("SHORTLINKS_SERVER", "http://localhost:8080"), "base URL of the shortener service")
	token := fs.String("token", os.Getenv("SHORTLINKS_TOKEN"), "bearer token sent with requests")
	custom := fs.String("custom", "", "custom code for shorten")
	fs.StringVar(&authCfg.JWTSecret, "secret", authCfg.JWTSecret, "signing secret for token")
	fs.StringVar(&authCfg.JWTIssuer, "issuer", authCfg.JWTIssuer, "issuer claim for token")
	fs.DurationVar(&authCfg.TokenTTL, "ttl", authCfg.TokenTTL, "lifetime of tokens signed by token (AUTH_TOKEN_TTL)")
	timeout := fs.Duration("timeout", 10*time.Second, "request timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	rest := fs.Args()
	if len(rest) == 0 {
		fmt.Fprintln(stderr, "Error: missing command.")
		fs.Usage()
		return 2
	}

	c := &client{
		baseURL: strings.TrimRight(*server, "/"),
		token:   *token,
		http:    &http.Client{Timeout: *timeout},
	}

	switch command := rest[0]; command {
	case "shorten":
		var dest string
		if dest, err = oneArg(rest); err == nil {
			err = shortenCmd(ctx, c, stdout, dest, *custom)
		}
	case "stats":
		var code string
		if code, err = oneArg(rest); err == nil {
			err = statsCmd(ctx, c, stdout, code)
		}
	case "history":
		err = historyCmd(ctx, c, stdout)
	case "token":
		var owner string
		if owner, err = oneArg(rest); err == nil {
			err = tokenCmd(stdout, authCfg, owner)
		}
	default:
		fmt.Fprintf(stderr, "Error: unknown command %q\n", command)
		fs.Usage()
		return 2
	}

	if errors.Is(err, errUsage) {
		fmt.Fprintf(stderr, "Error: %s expects exactly one value.\n", rest[0])
		fs.Usage()
		return 2
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func oneArg(args []string) (string, error) {
	if len(args) != 2 || args[1] == "" {
		return "", errUsage
	}
	return args[1], nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// withScheme assumes https for input typed without a scheme.
func withScheme(raw string) string {
	raw = strings.TrimSpace(raw)
	if hasPrefixFold(raw, "http://") || hasPrefixFold(raw, "https://") {
		return raw
	}
	return "https://" + raw
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

func shortenCmd(ctx context.Context, c *client, out io.Writer, destination, custom string) error {
	res, created, err := c.shorten(ctx, withScheme(destination), custom)
	if err != nil {
		return err
	}
	if created {
		fmt.Fprintf(out, "short url: %s\n", res.ShortURL)
	} else {
		fmt.Fprintf(out, "short url: %s (existing)\n", res.ShortURL)
	}
	return nil
}

func statsCmd(ctx context.Context, c *client, out io.Writer, code string) error {
	res, err := c.stats(ctx, code)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "short url:   %s\ndestination: %s\nclicks:      %d\ncreated at:  %s\n",
		res.ShortURL, res.Destination, res.Clicks, res.CreatedAt.Format(time.RFC3339))
	return nil
}

func historyCmd(ctx context.Context, c *client, out io.Writer) error {
	items, err := c.history(ctx)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Fprintln(out, "no links yet")
		return nil
	}
	for _, it := range items {
		fmt.Fprintf(out, "%s\t%d\t%s\n", it.ShortURL, it.Clicks, it.Destination)
	}
	return nil
}

func tokenCmd(out io.Writer, cfg config.AuthConfig, owner string) error {
	if cfg.JWTSecret == "" {
		return errors.New("no signing secret: set AUTH_JWT_SECRET or pass -secret")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	tok, err := auth.NewIssuer([]byte(cfg.JWTSecret), cfg.JWTIssuer, cfg.TokenTTL).Issue(owner)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, tok)
	return nil
}

// authFromEnv reads the server's token settings so tokens signed here match what it accepts.
func authFromEnv() (config.AuthConfig, error) {
	cfg := config.AuthConfig{
		JWTSecret: os.Getenv("AUTH_JWT_SECRET"),
		JWTIssuer: os.Getenv("AUTH_JWT_ISSUER"),
		TokenTTL:  24 * time.Hour,
	}
	if v := os.Getenv("AUTH_TOKEN_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid AUTH_TOKEN_TTL: %w", err)
		}
		cfg.TokenTTL = d
	}
	return cfg, nil
}
