// Command issue-token mints a bearer token for the catalog admin endpoints.
//
//	AUTH_JWT_SECRET=... go run ./cmd/issue-token -sub alice -staff
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"shop-catalog-service/internal/auth"
	"shop-catalog-service/internal/config"
)

func main() {
	subject := flag.String("sub", "", "subject (user name) carried by the token")
	superuser := flag.Bool("superuser", false, "grant the superuser role")
	staff := flag.Bool("staff", false, "grant the staff role")
	ttl := flag.Duration("ttl", 0, "token lifetime, defaults to AUTH_TOKEN_TTL")
	flag.Parse()

	_ = godotenv.Load()

	// Only the auth settings are needed here, so the database variables
	// required by config.Load are not.
	var authCfg config.AuthConfig
	if err := envconfig.Process("", &authCfg); err != nil {
		fmt.Fprintln(os.Stderr, "error loading configuration:", err)
		os.Exit(1)
	}
	if *subject == "" {
		fmt.Fprintln(os.Stderr, "-sub is required")
		flag.Usage()
		os.Exit(2)
	}

	lifetime := authCfg.TokenTTL
	if *ttl > 0 {
		lifetime = *ttl
	}

	token, err := auth.NewTokenManager(authCfg.JWTSecret, lifetime).Issue(*subject, *superuser, *staff)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(token)
	if !*superuser && !*staff {
		fmt.Fprintf(os.Stderr, "warning: token for %q carries no role and will get 403 on admin endpoints (expires in %s)\n", *subject, lifetime.Round(time.Second))
	}
}
