// Command admintoken mints admin bearer credentials.
//
//	admintoken token -sub ops@shop      prints a signed admin JWT
//	admintoken hash -key <api key>      prints the argon2id hash for ADMIN_API_KEY_HASH
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/isastore/backend/internal/auth"
)

func main() {
	_ = godotenv.Load()
	if len(os.Args) < 2 {
		usage()
	}
	switch os.Args[1] {
	case "token":
		fs := flag.NewFlagSet("token", flag.ExitOnError)
		sub := fs.String("sub", "admin", "admin id placed in the sub claim")
		ttl := fs.Duration("ttl", 24*time.Hour, "token lifetime")
		_ = fs.Parse(os.Args[2:])

		v, err := auth.NewVerifier(auth.Config{JWTSecret: os.Getenv("ADMIN_JWT_SECRET"), TokenTTL: *ttl})
		if err != nil {
			fail(err)
		}
		token, exp, err := v.Issue(*sub)
		if err != nil {
			fail(err)
		}
		fmt.Println(token)
		fmt.Fprintf(os.Stderr, "expires %s\n", exp.Format(time.RFC3339))
	case "hash":
		fs := flag.NewFlagSet("hash", flag.ExitOnError)
		key := fs.String("key", "", "API key to hash")
		_ = fs.Parse(os.Args[2:])
		if *key == "" {
			fail(fmt.Errorf("-key is required"))
		}
		hash, err := auth.HashAPIKey(*key)
		if err != nil {
			fail(err)
		}
		fmt.Println(hash)
	default:
		usage()
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: admintoken token [-sub id] [-ttl 24h] | admintoken hash -key KEY")
	os.Exit(2)
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "admintoken:", err)
	os.Exit(1)
}
