package test

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/lawnchairsociety/battalionsim/internal/testclient"
)

const replyTimeout = 5 * time.Second

// =============================================================================
// Group 1: Connection & Protocol
// =============================================================================

type health struct {
	Status   string          `json:"status"`
	Tables   map[string]bool `json:"tables"`
	Profiles bool            `json:"profiles_enabled"`
}

func fetchHealth(baseURL string) (health, error) {
	client := testclient.NewHTTPClient(baseURL)
	resp, err := client.Do(http.MethodGet, "/api/healthz", nil, "", "")
	if err != nil {
		return health{}, err
	}
	var h health
	if err := resp.Decode(&h); err != nil {
		return health{}, fmt.Errorf("status %d: %w", resp.Status, err)
	}
	return h, nil
}

func profilesEnabled(baseURL string) bool {
	h, err := fetchHealth(baseURL)
	return err == nil && h.Profiles
}

// TestHealth checks that the server reports all game data loaded
func TestHealth(baseURL string) TestResult {
	const testName = "Health"

	logAction(testName, "GET /api/healthz")
	h, err := fetchHealth(baseURL)
	if err != nil {
		return fail(testName, "Health check failed: %v", err)
	}
	logResult(testName, h.Status == "ok", fmt.Sprintf("status %s, tables %v", h.Status, h.Tables))
	if h.Status != "ok" {
		return fail(testName, "Server is %s, tables %v", h.Status, h.Tables)
	}
	return pass(testName, "All %d tables loaded", len(h.Tables))
}

// TestBasicConnection tests that a client can connect and get an answer
func TestBasicConnection(baseURL string) TestResult {
	const testName = "Basic Connection"

	name := uniqueName("conn")
	logAction(testName, fmt.Sprintf("Connecting as '%s'...", name))
	client, err := testclient.NewTestClient(name, baseURL)
	if err != nil {
		return fail(testName, "Failed to connect: %v", err)
	}
	defer client.Close()

	reply, err := client.Request("quick_counter", map[string]int{}, replyTimeout)
	if err != nil {
		return fail(testName, "%v", err)
	}
	logResult(testName, reply.Error == "", fmt.Sprintf("reply %s", reply.ID))
	if reply.Error != "" {
		return fail(testName, "Unexpected error: %s", reply.Error)
	}
	return pass(testName, "Connected and received reply %s", reply.ID)
}

// TestMalformedMessage checks that bad JSON gets an error reply and the
// session stays open
func TestMalformedMessage(baseURL string) TestResult {
	const testName = "Malformed Message"

	client, err := testclient.NewTestClient(uniqueName("bad"), baseURL)
	if err != nil {
		return fail(testName, "Failed to connect: %v", err)
	}
	defer client.Close()

	logAction(testName, "Sending a message without a type")
	if err := client.SendRaw(map[string]any{"id": "no-type"}); err != nil {
		return fail(testName, "Send failed: %v", err)
	}
	reply, ok := client.WaitForType("error", replyTimeout)
	if !ok {
		return fail(testName, "No error reply for malformed message")
	}
	logResult(testName, true, reply.Error)

	if _, err := client.Request("quick_counter", nil, replyTimeout); err != nil {
		return fail(testName, "Session unusable after malformed message: %v", err)
	}
	return pass(testName, "Rejected with %q and kept the session", reply.Error)
}

// TestUnknownRequestType checks the reply to an unsupported type
func TestUnknownRequestType(baseURL string) TestResult {
	const testName = "Unknown Request Type"

	client, err := testclient.NewTestClient(uniqueName("unknown"), baseURL)
	if err != nil {
		return fail(testName, "Failed to connect: %v", err)
	}
	defer client.Close()

	reply, err := client.Request("fortify", nil, replyTimeout)
	if err != nil {
		return fail(testName, "%v", err)
	}
	if reply.Error == "" {
		return fail(testName, "Expected an error for an unknown type")
	}
	return pass(testName, "Got %q", reply.Error)
}

// TestMultipleClients runs several sessions at once and checks every reply
// reaches the right client
func TestMultipleClients(baseURL string) TestResult {
	const testName = "Multiple Clients"
	const clients = 4
	const requests = 5

	var wg sync.WaitGroup
	errs := make(chan error, clients)
	for i := range clients {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client, err := testclient.NewTestClient(uniqueName("multi"), baseURL)
			if err != nil {
				errs <- err
				return
			}
			defer client.Close()

			for n := range requests {
				qty := (i+1)*100 + n
				reply, err := client.Request("quick_counter", map[string]int{"Hitman": qty}, replyTimeout)
				if err != nil {
					errs <- err
					return
				}
				var counter map[string]int
				if err := reply.Decode(&counter); err != nil {
					errs <- err
					return
				}
				if counter["Bruiser"] != qty {
					errs <- fmt.Errorf("client %d got Bruiser %d, want %d", i, counter["Bruiser"], qty)
					return
				}
			}
			logAction(testName, fmt.Sprintf("client %d done", i))
		}()
	}
	wg.Wait()
	close(errs)

	if err, ok := <-errs; ok {
		return fail(testName, "%v", err)
	}
	return pass(testName, "%d clients x %d requests answered correctly", clients, requests)
}
