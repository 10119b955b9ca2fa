package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Prints a fresh STATE_SECRET, or with STATE_SECRET set, a signed state cookie and its
// nonce for calling /api/auth/callback by hand.
func main() {
	secret := os.Getenv("STATE_SECRET")
	if secret == "" {
		fmt.Println(strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", ""))
		return
	}

	nonce := uuid.NewString()
	now := time.Now()
	claims := jwt.RegisteredClaims{
		ID:        nonce,
		Issuer:    "vibecheck",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(10 * time.Minute)),
	}

	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error signing state: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("state=%s\n", nonce)
	fmt.Printf("Cookie: spotify_auth_state=%s\n", tokenString)
}
