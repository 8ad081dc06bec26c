// couponbox Flash Sale Client Example
//
// This is a minimal example of how to drive concurrent issuance attempts
// against a coupon and tally the outcomes. Useful for demonstrating that
// the pool is never oversold under contention.
//
// Usage:
//   export COUPONBOX_COUPON_ID="01J..."
//   go run main.go -users 50
//
// Each simulated user sends one POST /api/v1/coupons/{id}/issue request.

package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"sort"
	"sync"
	"time"
)

type issueResult struct {
	Issuance struct {
		ID     string `json:"id"`
		UserID string `json:"user_id"`
	} `json:"issuance"`
	UserIssuedCount int `json:"user_issued_count"`
	MaxPerUser      int `json:"max_per_user"`
	Remaining       int `json:"remaining"`
}

type issueError struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func main() {
	var (
		baseURL = flag.String("base-url", "http://localhost:8080", "couponbox base URL")
		users   = flag.Int("users", 50, "number of simulated users")
	)
	flag.Parse()

	couponID := os.Getenv("COUPONBOX_COUPON_ID")
	if couponID == "" {
		log.Fatal("COUPONBOX_COUPON_ID environment variable is required")
	}

	client := &http.Client{Timeout: 10 * time.Second}
	endpoint := fmt.Sprintf("%s/api/v1/coupons/%s/issue", *baseURL, couponID)

	log.Printf("Firing %d users at %s", *users, endpoint)

	var (
		mu     sync.Mutex
		tally  = make(map[string]int)
		wg     sync.WaitGroup
		prefix = time.Now().UnixNano()
	)

	start := time.Now()
	for i := 0; i < *users; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			userID := fmt.Sprintf("load-user-%d-%d", prefix, i)
			outcome := attempt(client, endpoint, userID)

			mu.Lock()
			tally[outcome]++
			mu.Unlock()
		}(i)
	}
	wg.Wait()
	elapsed := time.Since(start)

	outcomes := make([]string, 0, len(tally))
	for outcome := range tally {
		outcomes = append(outcomes, outcome)
	}
	sort.Strings(outcomes)

	log.Printf("Done in %s", elapsed.Round(time.Millisecond))
	for _, outcome := range outcomes {
		log.Printf("  %-16s %d", outcome, tally[outcome])
	}
}

// attempt sends one issuance request and returns a short outcome label.
func attempt(client *http.Client, endpoint, userID string) string {
	payload, _ := json.Marshal(map[string]string{"user_id": userID})

	resp, err := client.Post(endpoint, "application/json", bytes.NewReader(payload))
	if err != nil {
		log.Printf("request for %s failed: %v", userID, err)
		return "transport_error"
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		var result issueResult
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return "decode_error"
		}
		log.Printf("✓ %s got %s (%d/%d, %d left)",
			userID, result.Issuance.ID, result.UserIssuedCount, result.MaxPerUser, result.Remaining)
		return "accepted"
	}

	var fail issueError
	if err := json.NewDecoder(resp.Body).Decode(&fail); err != nil || fail.Code == "" {
		return fmt.Sprintf("http_%d", resp.StatusCode)
	}
	return fail.Code
}
