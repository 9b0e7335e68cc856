// Command token mints a test JWT for exercising a gateway jwt middleware
// stage. Defaults to ES256 against an EC private key (the static-key mode
// internal/mw.JWTValidator validates against, generated by cmd/eckeygen);
// -secret switches to HS256, matching the gateway's hmac_secret auth mode.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func main() {
	var keyPath, secret, sub string
	var ttl time.Duration
	flag.StringVar(&keyPath, "key", "", "path to an EC private key PEM (ES256 mode)")
	flag.StringVar(&secret, "secret", "", "HMAC secret (HS256 mode, alternative to -key)")
	flag.StringVar(&sub, "sub", "user_123", "subject claim")
	flag.DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	claims := jwt.MapClaims{
		"sub": sub,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(ttl).Unix(),
	}

	var signed string
	var err error
	switch {
	case keyPath != "":
		signed, err = signES256(keyPath, claims)
	case secret != "":
		tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
		signed, err = tok.SignedString([]byte(secret))
	default:
		fmt.Fprintln(os.Stderr, "one of -key or -secret is required")
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(signed)
}

func signES256(path string, claims jwt.MapClaims) (string, error) {
	pemBytes, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	key, err := jwt.ParseECPrivateKeyFromPEM(pemBytes)
	if err != nil {
		return "", err
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	return tok.SignedString(key)
}
