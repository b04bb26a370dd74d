package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"os"
	"time"
)

// End-to-end check that hours logged against a student directly and through
// a group both land on that student's dashboard exactly once.

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type client struct {
	base  string
	token string
	http  *http.Client
}

func main() {
	var (
		base     string
		email    string
		password string
		timeout  time.Duration
	)

	flag.StringVar(&base, "base", "http://localhost:8080/api/v1", "API base URL")
	flag.StringVar(&email, "email", "admin@tutorhub.local", "Admin email")
	flag.StringVar(&password, "password", "admin123", "Admin password")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.Parse()

	c := &client{base: base, http: &http.Client{Timeout: timeout}}

	if err := c.login(email, password); err != nil {
		log.Fatalf("login failed: %v", err)
	}

	suffix := time.Now().UnixNano()

	staffID, err := c.create("/staff", map[string]interface{}{
		"email":     fmt.Sprintf("verify-tutor-%d@tutorhub.local", suffix),
		"full_name": "Verify Tutor",
	})
	if err != nil {
		log.Fatalf("create staff failed: %v", err)
	}

	studentID, err := c.create("/students", map[string]interface{}{
		"full_name": "Verify Student",
		"email":     fmt.Sprintf("verify-student-%d@tutorhub.local", suffix),
	})
	if err != nil {
		log.Fatalf("create student failed: %v", err)
	}

	groupID, err := c.create("/groups", map[string]interface{}{
		"name":        fmt.Sprintf("Verify Group %d", suffix),
		"subject":     "Physics",
		"staff_id":    staffID,
		"student_ids": []string{studentID},
	})
	if err != nil {
		log.Fatalf("create group failed: %v", err)
	}

	day := time.Now().UTC().Truncate(24 * time.Hour)

	// 2h of Math attributed to the student directly.
	if _, err := c.create("/time-logs", map[string]interface{}{
		"staff_id":    staffID,
		"date":        day.Format("2006-01-02"),
		"hours":       2.0,
		"subject":     "Math",
		"student_ids": []string{studentID},
	}); err != nil {
		log.Fatalf("create direct time log failed: %v", err)
	}

	// 1.5h of Physics through the group membership.
	if _, err := c.create("/time-logs", map[string]interface{}{
		"staff_id": staffID,
		"date":     day.AddDate(0, 0, 1).Format("2006-01-02"),
		"hours":    1.5,
		"subject":  "Physics",
		"group_id": groupID,
	}); err != nil {
		log.Fatalf("create group time log failed: %v", err)
	}

	var dashboard struct {
		TotalHours float64 `json:"total_hours"`
		EntryCount int     `json:"entry_count"`
	}
	if err := c.get("/dashboards/students/"+studentID, &dashboard); err != nil {
		log.Fatalf("fetch student dashboard failed: %v", err)
	}

	fmt.Printf("student dashboard: total_hours=%.2f entry_count=%d\n", dashboard.TotalHours, dashboard.EntryCount)

	ok := true
	if math.Abs(dashboard.TotalHours-3.5) > 1e-9 {
		fmt.Printf("FAIL: expected 3.5 total hours, got %.2f\n", dashboard.TotalHours)
		ok = false
	}
	if dashboard.EntryCount != 2 {
		fmt.Printf("FAIL: expected 2 entries, got %d\n", dashboard.EntryCount)
		ok = false
	}

	if !ok {
		os.Exit(1)
	}
	fmt.Println("OK: direct and group attribution both counted, no double count")
}

func (c *client) login(email, password string) error {
	var result struct {
		AccessToken string `json:"access_token"`
	}
	if err := c.post("/auth/login", map[string]interface{}{
		"email":    email,
		"password": password,
	}, &result); err != nil {
		return err
	}
	if result.AccessToken == "" {
		return fmt.Errorf("login response had no access token")
	}
	c.token = result.AccessToken
	return nil
}

// create POSTs a payload and returns the new resource id.
func (c *client) create(path string, payload map[string]interface{}) (string, error) {
	var result struct {
		ID string `json:"id"`
	}
	if err := c.post(path, payload, &result); err != nil {
		return "", err
	}
	if result.ID == "" {
		return "", fmt.Errorf("%s: response had no id", path)
	}
	return result.ID, nil
}

func (c *client) post(path string, payload, dest interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, c.base+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, dest)
}

func (c *client) get(path string, dest interface{}) error {
	req, err := http.NewRequest(http.MethodGet, c.base+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, dest)
}

func (c *client) do(req *http.Request, dest interface{}) error {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("%s %s: status %d, unparseable body", req.Method, req.URL.Path, resp.StatusCode)
	}
	if env.Error != nil {
		return fmt.Errorf("%s %s: %s (%s)", req.Method, req.URL.Path, env.Error.Message, env.Error.Code)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%s %s: status %d", req.Method, req.URL.Path, resp.StatusCode)
	}

	if dest != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, dest); err != nil {
			return fmt.Errorf("%s %s: decode data: %w", req.Method, req.URL.Path, err)
		}
	}
	return nil
}
