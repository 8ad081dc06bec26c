// Command hash-admin-key mints an admin API key and prints its argon2id
// hash. Put the hash in ADMIN_KEY_HASH and hand the plaintext key to the
// operator; the server never stores the plaintext.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/oklog/ulid/v2"

	"github.com/couponbox/couponbox/internal/auth"
)

type output struct {
	Key  string `json:"key"`
	Hash string `json:"hash"`
}

func main() {
	var (
		key    = flag.String("key", "", "Admin key to hash; generated when empty")
		format = flag.String("format", "plain", "Output format: plain or json")
	)
	flag.Parse()

	plaintext := *key
	if plaintext == "" {
		plaintext = "ck_admin_" + strings.ToLower(ulid.Make().String())
	}

	hash, err := auth.HashKey(plaintext)
	if err != nil {
		fmt.Fprintln(os.Stderr, "hash key:", err)
		os.Exit(1)
	}

	out := output{Key: plaintext, Hash: hash}

	switch strings.ToLower(*format) {
	case "plain":
		fmt.Println("key: ", out.Key)
		fmt.Println("hash:", out.Hash)
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(out)
	default:
		fmt.Fprintln(os.Stderr, "invalid format; use plain or json")
		os.Exit(1)
	}
}
