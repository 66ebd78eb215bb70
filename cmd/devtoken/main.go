// Command devtoken prints a bearer token accepted by the API when it runs
// with AUTH_PROVIDER=jwt.
package main

import (
	"flag"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"

	"github.com/siocraft/finance-tracker-api/internal/auth"
	"github.com/siocraft/finance-tracker-api/internal/config"
)

func main() {
	userID := flag.String("user", "dev-user", "user id placed in the sub claim")
	email := flag.String("email", "", "optional email claim")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	envFile := flag.String("env", ".env", "env file to read JWT_SECRET_KEY from")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.Auth.Provider != config.AuthProviderJWT {
		logrus.Warnf("AUTH_PROVIDER is %q; the server will not accept this token", cfg.Auth.Provider)
	}

	claims := jwt.MapClaims{
		"sub": *userID,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(*ttl).Unix(),
	}
	if *email != "" {
		claims["email"] = *email
	}

	token, err := auth.NewJWTVerifier(cfg.Auth.JWTSecret).SignDevToken(claims)
	if err != nil {
		logrus.Fatalf("Failed to sign token: %v", err)
	}
	fmt.Println(token)
}
