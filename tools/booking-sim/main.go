package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmarkovic/hostwise/libs/auth"
)

// booking-sim exercises the calendar and booking endpoints end to end:
// check availability, create a booking, then re-check to watch the
// conflict appear.
func main() {
	var (
		baseURL   = flag.String("base-url", getenv("BASE_URL", "http://localhost:8084"), "property-service base url")
		tenantID  = flag.String("tenant-id", getenv("TENANT_ID", ""), "tenant id")
		property  = flag.String("property-id", getenv("PROPERTY_ID", ""), "property id")
		checkIn   = flag.String("check-in", "", "check-in date (YYYY-MM-DD)")
		checkOut  = flag.String("check-out", "", "check-out date (YYYY-MM-DD)")
		basePrice = flag.Float64("base-price", 100, "nightly base price")
		guest     = flag.String("guest", "Sim Guest", "guest name")
		secret    = flag.String("jwt-secret", getenv("JWT_SECRET", ""), "HS256 secret; when set, requests carry a signed token")
	)
	flag.Parse()

	if strings.TrimSpace(*tenantID) == "" {
		fatal("TENANT_ID is required")
	}
	if strings.TrimSpace(*property) == "" {
		fatal("PROPERTY_ID is required")
	}
	if *checkIn == "" || *checkOut == "" {
		now := time.Now().UTC()
		*checkIn = now.AddDate(0, 0, 7).Format("2006-01-02")
		*checkOut = now.AddDate(0, 0, 10).Format("2006-01-02")
	}

	client := &sim{
		baseURL:  strings.TrimRight(*baseURL, "/"),
		tenantID: *tenantID,
	}
	if strings.TrimSpace(*secret) != "" {
		now := time.Now().UTC()
		token, err := auth.SignHS256(auth.Claims{
			Sub:      "booking-sim",
			TenantID: *tenantID,
			Role:     "staff",
			Iat:      now.Unix(),
			Exp:      now.Add(10 * time.Minute).Unix(),
		}, *secret)
		if err != nil {
			fatal(err.Error())
		}
		client.token = token
	}

	checkBody := map[string]any{
		"propertyId": *property,
		"checkIn":    *checkIn,
		"checkOut":   *checkOut,
	}

	fmt.Printf("checking %s to %s\n", *checkIn, *checkOut)
	status, body := client.post("/api/calendar/check", checkBody)
	fmt.Printf("check: status=%d body=%s\n", status, body)
	if status != http.StatusOK {
		os.Exit(1)
	}

	status, body = client.post("/api/bookings", map[string]any{
		"propertyId": *property,
		"checkIn":    *checkIn,
		"checkOut":   *checkOut,
		"guestName":  *guest,
		"basePrice":  *basePrice,
	})
	fmt.Printf("create: status=%d body=%s\n", status, body)
	if status != http.StatusCreated {
		os.Exit(1)
	}

	status, body = client.post("/api/calendar/check", checkBody)
	fmt.Printf("re-check: status=%d body=%s\n", status, body)
}

type sim struct {
	baseURL  string
	tenantID string
	token    string
}

func (s *sim) post(path string, payload map[string]any) (int, string) {
	body, err := json.Marshal(payload)
	if err != nil {
		fatal(err.Error())
	}
	req, err := http.NewRequest(http.MethodPost, s.baseURL+path, bytes.NewReader(body))
	if err != nil {
		fatal(err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", uuid.NewString())
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	} else {
		req.Header.Set("X-Tenant-Id", s.tenantID)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fatal(err.Error())
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	return resp.StatusCode, strings.TrimSpace(string(respBody))
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, "error:", msg)
	os.Exit(1)
}
