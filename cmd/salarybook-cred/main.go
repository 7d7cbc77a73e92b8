// Command salarybook-cred generates the admin credential env values:
// a bcrypt hash for ADMIN_PASSWORD_HASH and a random SESSION_SECRET.
//
// Usage:
//
//	salarybook-cred -password 's3cret'
//	salarybook-cred -secret-only
package main

import (
	"crypto/rand"
	"encoding/base64"
	"flag"
	"fmt"
	"log"

	"golang.org/x/crypto/bcrypt"
)

func main() {
	password := flag.String("password", "", "admin password to hash")
	cost := flag.Int("cost", bcrypt.DefaultCost, "bcrypt cost (4..31)")
	secretOnly := flag.Bool("secret-only", false, "only print a new SESSION_SECRET")
	flag.Parse()

	if !*secretOnly {
		if *password == "" {
			log.Fatal("provide -password (or use -secret-only)")
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*password), *cost)
		if err != nil {
			log.Fatalf("hash password: %v", err)
		}
		fmt.Printf("ADMIN_PASSWORD_HASH=%s\n", hash)
	}

	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		log.Fatalf("generate secret: %v", err)
	}
	fmt.Printf("SESSION_SECRET=%s\n", base64.RawURLEncoding.EncodeToString(secret))
}
