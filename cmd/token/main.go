package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jengzang/location-tracker/internal/config"
	"github.com/jengzang/location-tracker/internal/middleware"
)

func main() {
	subject := flag.String("sub", "dashboard", "token subject")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is not configured, control routes are open")
	}

	token, err := middleware.IssueToken(cfg.JWTSecret, *subject, *ttl)
	if err != nil {
		log.Fatal("Failed to issue token:", err)
	}
	fmt.Fprintln(os.Stdout, token)
}
