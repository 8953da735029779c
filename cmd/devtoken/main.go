// Command devtoken prints a bearer token for local testing, signed with
// JWT_SECRET the same way the identity provider signs real tokens.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/paydemo/wallet_ledger/internal/config"
	"github.com/paydemo/wallet_ledger/internal/identity"
)

func main() {
	user := flag.String("user", "", "user id to put in the sub claim")
	email := flag.String("email", "", "optional email claim")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	if *user == "" {
		fmt.Fprintln(os.Stderr, "usage: devtoken -user <id> [-email addr] [-ttl 1h]")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if !cfg.IsDev() {
		fmt.Fprintf(os.Stderr, "refusing to mint tokens when APP_ENV=%s\n", cfg.AppEnv)
		os.Exit(1)
	}

	token, err := identity.Sign(cfg.JWTSecret, identity.Identity{UserID: *user, Email: *email}, cfg.JWTIssuer, cfg.JWTAudience, *ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sign: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
