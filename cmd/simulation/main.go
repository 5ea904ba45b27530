package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tradevault/tradevault-api/internal/auth"
)

const (
	numCredentials = 3
	numSyncRounds  = 5
	numWorkers     = 3
	serverAddress  = "http://localhost:8080"
	bridgeAddress  = ":9090"
)

var symbols = []string{"EURUSD", "GBPUSD", "USDJPY", "XAUUSD", "BTCUSD"}

// init configures the logger for the simulation with pretty printing and timestamp
func init() {
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
}

// routeStats tracks performance statistics for an API endpoint
type routeStats struct {
	name       string
	durations  []time.Duration
	totalCalls int
	failures   int
}

// addDuration records a new duration measurement for the route
func (rs *routeStats) addDuration(d time.Duration) {
	rs.durations = append(rs.durations, d)
	rs.totalCalls++
}

// calculate computes performance statistics from recorded durations
// Returns min, max, mean, median, 95th percentile, and 99th percentile durations
func (rs *routeStats) calculate() (min, max, mean, median, p95, p99 time.Duration) {
	if len(rs.durations) == 0 {
		return 0, 0, 0, 0, 0, 0
	}

	sort.Slice(rs.durations, func(i, j int) bool {
		return rs.durations[i] < rs.durations[j]
	})

	min = rs.durations[0]
	max = rs.durations[len(rs.durations)-1]

	var sum time.Duration
	for _, d := range rs.durations {
		sum += d
	}
	mean = sum / time.Duration(len(rs.durations))
	median = rs.durations[len(rs.durations)/2]

	p95idx := int(math.Ceil(float64(len(rs.durations))*0.95)) - 1
	p99idx := int(math.Ceil(float64(len(rs.durations))*0.99)) - 1
	p95 = rs.durations[p95idx]
	p99 = rs.durations[p99idx]

	return
}

// startFakeBridge runs an in-process broker bridge so the simulation can
// exercise health checks and syncs without a real trading terminal. A slice
// of logins is flaky on purpose to drive the health state machine.
func startFakeBridge() {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	flaky := map[string]bool{"1002": true}

	router.GET("/api/ping/:login", func(c *gin.Context) {
		login := c.Param("login")
		if flaky[login] && rand.Float64() < 0.7 {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "terminal busy"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/api/history/:login", func(c *gin.Context) {
		deals := make([]gin.H, 0)
		count := 5 + rand.Intn(20)
		for i := 0; i < count; i++ {
			closed := time.Now().Add(-time.Duration(rand.Intn(72)) * time.Hour)
			deals = append(deals, gin.H{
				"ticket":     100000 + i, // stable per response, exercises dedupe
				"symbol":     symbols[rand.Intn(len(symbols))],
				"type":       []string{"buy", "sell"}[rand.Intn(2)],
				"volume":     float64(rand.Intn(100)) / 100,
				"price":      1 + rand.Float64(),
				"profit":     rand.Float64()*200 - 100,
				"commission": -rand.Float64() * 5,
				"swap":       -rand.Float64(),
				"close_time": closed.Format(time.RFC3339),
			})
		}
		c.JSON(http.StatusOK, deals)
	})

	go func() {
		if err := http.ListenAndServe(bridgeAddress, router); err != nil {
			log.Fatal().Err(err).Msg("fake bridge failed")
		}
	}()
}

// simulationClient handles HTTP communication with the vault API
type simulationClient struct {
	baseURL   string
	authToken string
	client    *http.Client
	stats     map[string]*routeStats
	mu        sync.Mutex
}

// newSimulationClient creates and initializes a new simulation client
// It authenticates with the API and prepares performance tracking
func newSimulationClient() (*simulationClient, error) {
	client := &http.Client{
		Timeout: 10 * time.Second,
	}

	sc := &simulationClient{
		baseURL: serverAddress,
		client:  client,
		stats: map[string]*routeStats{
			"auth":        {name: "Authentication"},
			"store":       {name: "Store Credential"},
			"list":        {name: "List Credentials"},
			"monitor":     {name: "Monitoring Control"},
			"force_check": {name: "Force Health Check"},
			"account":     {name: "Create/Link Account"},
			"sync":        {name: "Trade Sync"},
		},
	}

	token, err := sc.authenticate()
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate: %w", err)
	}
	sc.authToken = token

	return sc, nil
}

func (sc *simulationClient) record(route string, start time.Time, failed bool) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	rs := sc.stats[route]
	rs.addDuration(time.Since(start))
	if failed {
		rs.failures++
	}
}

// authenticate performs API authentication and returns a JWT token
func (sc *simulationClient) authenticate() (string, error) {
	start := time.Now()

	credentials := map[string]string{
		"api_key":    auth.TestAPIKey,
		"api_secret": auth.TestAPISecret,
	}
	body, _ := json.Marshal(credentials)

	resp, err := sc.client.Post(
		fmt.Sprintf("%s/api/v1/auth/token", sc.baseURL),
		"application/json",
		bytes.NewBuffer(body),
	)
	if err != nil {
		sc.record("auth", start, true)
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		sc.record("auth", start, true)
		return "", fmt.Errorf("authentication failed with status: %d", resp.StatusCode)
	}

	var result struct {
		Data struct {
			Token string `json:"jwt_token"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		sc.record("auth", start, true)
		return "", err
	}

	sc.record("auth", start, false)
	return result.Data.Token, nil
}

// do issues an authenticated request and decodes the standard envelope into
// out (which may be nil)
func (sc *simulationClient) do(method, path, route string, payload interface{}, out interface{}) error {
	start := time.Now()

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewBuffer(b)
	}

	req, err := http.NewRequest(method, sc.baseURL+path, body)
	if err != nil {
		sc.record(route, start, true)
		return err
	}
	req.Header.Set("Authorization", "Bearer "+sc.authToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := sc.client.Do(req)
	if err != nil {
		sc.record(route, start, true)
		return err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		sc.record(route, start, true)
		return fmt.Errorf("%s %s failed with status %d: %s", method, path, resp.StatusCode, string(respBody))
	}

	sc.record(route, start, false)
	if out == nil {
		return nil
	}
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return err
	}
	return json.Unmarshal(envelope.Data, out)
}

// storeCredential registers one broker credential and returns its ID
func (sc *simulationClient) storeCredential(login string) (string, error) {
	var cred struct {
		CredentialID string `json:"credential_id"`
	}
	err := sc.do("POST", "/api/v1/credentials", "store", map[string]string{
		"server": "demo.broker.com",
		"login":  login,
		"secret": "Sim!" + uuid.New().String(),
		"name":   "Sim " + login,
	}, &cred)
	return cred.CredentialID, err
}

// setupAccount creates a trading account and links it to the credential
func (sc *simulationClient) setupAccount(login, credentialID string) (string, error) {
	var account struct {
		AccountID string `json:"account_id"`
	}
	err := sc.do("POST", "/api/v1/accounts", "account", map[string]string{
		"login":  login,
		"server": "demo.broker.com",
	}, &account)
	if err != nil {
		return "", err
	}

	err = sc.do("POST", "/api/v1/accounts/"+account.AccountID+"/link", "account", map[string]string{
		"credentialId": credentialID,
	}, nil)
	return account.AccountID, err
}

func (sc *simulationClient) runSync(accountID string) (int, error) {
	var result struct {
		Imported int `json:"imported"`
	}
	err := sc.do("POST", "/api/v1/sync", "sync", map[string]string{
		"accountId": accountID,
	}, &result)
	return result.Imported, err
}

// printStats outputs the performance summary for every exercised route
func (sc *simulationClient) printStats() {
	fmt.Println("\n=== Simulation Results ===")
	for _, rs := range sc.stats {
		if rs.totalCalls == 0 {
			continue
		}
		min, max, mean, median, p95, p99 := rs.calculate()
		fmt.Printf("\n%s (%d calls, %d failures)\n", rs.name, rs.totalCalls, rs.failures)
		fmt.Printf("  min=%v max=%v mean=%v median=%v p95=%v p99=%v\n", min, max, mean, median, p95, p99)
	}
}

// main drives the full credential -> monitoring -> sync flow against a
// running server, using the in-process fake bridge as the broker side
func main() {
	startFakeBridge()
	time.Sleep(200 * time.Millisecond)

	sc, err := newSimulationClient()
	if err != nil {
		log.Fatal().Err(err).Msg("simulation setup failed")
	}

	// Store credentials and set up linked accounts
	type target struct {
		credentialID string
		accountID    string
	}
	targets := make([]target, 0, numCredentials)

	for i := 0; i < numCredentials; i++ {
		login := fmt.Sprintf("%d", 1001+i)

		credID, err := sc.storeCredential(login)
		if err != nil {
			log.Fatal().Err(err).Str("login", login).Msg("failed to store credential")
		}

		accountID, err := sc.setupAccount(login, credID)
		if err != nil {
			log.Fatal().Err(err).Str("login", login).Msg("failed to set up account")
		}

		targets = append(targets, target{credentialID: credID, accountID: accountID})
		log.Info().Str("login", login).Str("credential_id", credID).Msg("credential and account ready")
	}

	if err := sc.do("GET", "/api/v1/credentials", "list", nil, nil); err != nil {
		log.Error().Err(err).Msg("failed to list credentials")
	}

	// Start monitoring with a tight interval, then force a few checks
	err = sc.do("POST", "/api/v1/monitoring", "monitor", map[string]interface{}{
		"action": "start",
		"config": map[string]int{"checkInterval": 2000, "timeout": 2000},
	}, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to start monitoring")
	}

	for _, t := range targets {
		for i := 0; i < 3; i++ {
			err := sc.do("POST", "/api/v1/monitoring", "force_check", map[string]string{
				"action":       "force_check",
				"credentialId": t.credentialID,
			}, nil)
			if err != nil {
				log.Warn().Err(err).Msg("force check failed")
			}
		}
	}

	// Run repeated syncs across workers; repeats over the same window prove
	// the merge never duplicates rows
	var wg sync.WaitGroup
	work := make(chan string, len(targets)*numSyncRounds)
	for round := 0; round < numSyncRounds; round++ {
		for _, t := range targets {
			work <- t.accountID
		}
	}
	close(work)

	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for accountID := range work {
				imported, err := sc.runSync(accountID)
				if err != nil {
					log.Warn().Err(err).Str("account_id", accountID).Msg("sync failed")
					continue
				}
				log.Info().Str("account_id", accountID).Int("imported", imported).Msg("sync round complete")
			}
		}()
	}
	wg.Wait()

	if err := sc.do("POST", "/api/v1/monitoring", "monitor", map[string]string{"action": "stop"}, nil); err != nil {
		log.Warn().Err(err).Msg("failed to stop monitoring")
	}

	sc.printStats()
}
