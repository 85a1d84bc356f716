// Command admintoken prints a signed admin token for operators and scripts.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"memedesk/internal/auth"
	"memedesk/internal/config"
)

func main() {
	defaultPath := os.Getenv("MEMEDESK_CONFIG")
	if defaultPath == "" {
		defaultPath = "config/config.yaml"
	}
	cfgPath := flag.String("config", defaultPath, "Path to YAML config")
	envOnly := flag.Bool("env-only", false, "Read configuration from the environment only")
	ttl := flag.Duration("ttl", 0, "Token lifetime (default: auth.token_ttl)")
	flag.Parse()

	cfg, err := config.Load(*cfgPath, *envOnly)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	j := auth.JWT{Secret: []byte(cfg.Auth.AdminSecret), TokenTTL: cfg.Auth.TokenTTL}
	if *ttl > 0 {
		j.TokenTTL = *ttl
	}
	tok, exp, err := j.SignAdmin()
	if err != nil {
		fmt.Fprintf(os.Stderr, "sign: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(tok)
	fmt.Fprintf(os.Stderr, "expires %s\n", exp.Format(time.RFC3339))
}
