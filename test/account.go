package test

import (
	"fmt"
	"net/http"

	"github.com/lawnchairsociety/battalionsim/internal/testclient"
)

// =============================================================================
// Group 3: Accounts & Profiles
// =============================================================================

const testPassword = "Battal1onPass"

func createAccount(client *testclient.TestClient, username, password string) (int, error) {
	resp, err := client.Do(http.MethodPost, "/api/accounts", map[string]string{"username": username, "password": password}, "", "")
	if err != nil {
		return 0, err
	}
	return resp.Status, nil
}

// TestAccountSystem tests registration and duplicate rejection
func TestAccountSystem(baseURL string) TestResult {
	const testName = "Account System"

	client := testclient.NewHTTPClient(baseURL)
	username := uniqueName("acct")

	logAction(testName, fmt.Sprintf("Registering '%s'", username))
	status, err := createAccount(client, username, testPassword)
	if err != nil {
		return fail(testName, "Request failed: %v", err)
	}
	logResult(testName, status == http.StatusCreated, fmt.Sprintf("status %d", status))
	if status != http.StatusCreated {
		return fail(testName, "Registration returned %d", status)
	}

	logAction(testName, "Registering the same name again")
	status, err = createAccount(client, username, testPassword)
	if err != nil {
		return fail(testName, "Request failed: %v", err)
	}
	if status != http.StatusConflict {
		return fail(testName, "Duplicate registration returned %d, want 409", status)
	}
	return pass(testName, "Registered %s and rejected the duplicate", username)
}

// TestWeakPassword checks the password policy is enforced
func TestWeakPassword(baseURL string) TestResult {
	const testName = "Weak Password"

	client := testclient.NewHTTPClient(baseURL)
	status, err := createAccount(client, uniqueName("weak"), "abc")
	if err != nil {
		return fail(testName, "Request failed: %v", err)
	}
	if status != http.StatusBadRequest {
		return fail(testName, "Weak password returned %d, want 400", status)
	}
	return pass(testName, "Weak password rejected")
}

// TestProfileLifecycle saves, reads and deletes a profile
func TestProfileLifecycle(baseURL string) TestResult {
	const testName = "Profile Lifecycle"

	client := testclient.NewHTTPClient(baseURL)
	username := uniqueName("prof")
	if status, err := createAccount(client, username, testPassword); err != nil || status != http.StatusCreated {
		return fail(testName, "Registration failed: %d %v", status, err)
	}
	path := "/api/profiles/" + username

	saved := side{Troops: []troop{{"Bruiser", "T4", 1200}}, Enforcers: []enforcer{{"Bubba", "Grand", true}}}
	resp, err := client.Do(http.MethodPut, path, saved, username, testPassword)
	if err != nil || resp.Status != http.StatusOK {
		return fail(testName, "Save failed: %v %d %s", err, resp.Status, resp.Body)
	}

	resp, err = client.Do(http.MethodGet, path, nil, username, testPassword)
	if err != nil || resp.Status != http.StatusOK {
		return fail(testName, "Load failed: %v %d", err, resp.Status)
	}
	var loaded side
	if err := resp.Decode(&loaded); err != nil {
		return fail(testName, "Bad profile body: %v", err)
	}
	if len(loaded.Troops) != 1 || loaded.Troops[0].Quantity != 1200 || len(loaded.Enforcers) != 1 {
		return fail(testName, "Loaded profile %+v does not match saved", loaded)
	}

	resp, err = client.Do(http.MethodDelete, path, nil, username, testPassword)
	if err != nil || resp.Status != http.StatusNoContent {
		return fail(testName, "Delete failed: %v %d", err, resp.Status)
	}
	resp, err = client.Do(http.MethodGet, path, nil, username, testPassword)
	if err != nil || resp.Status != http.StatusNotFound {
		return fail(testName, "Profile still present after delete: %v %d", err, resp.Status)
	}
	return pass(testName, "Saved, loaded and deleted profile for %s", username)
}

// TestProfileWrongAccount checks one account cannot read another's profile
func TestProfileWrongAccount(baseURL string) TestResult {
	const testName = "Profile Wrong Account"

	client := testclient.NewHTTPClient(baseURL)
	owner := uniqueName("owner")
	other := uniqueName("other")
	for _, u := range []string{owner, other} {
		if status, err := createAccount(client, u, testPassword); err != nil || status != http.StatusCreated {
			return fail(testName, "Registration of %s failed: %d %v", u, status, err)
		}
	}

	resp, err := client.Do(http.MethodGet, "/api/profiles/"+owner, nil, other, testPassword)
	if err != nil {
		return fail(testName, "Request failed: %v", err)
	}
	if resp.Status != http.StatusForbidden {
		return fail(testName, "Got %d, want 403", resp.Status)
	}
	return pass(testName, "Cross-account access refused")
}

// TestProfileEnforcers runs the enforcer search on saved troops
func TestProfileEnforcers(baseURL string) TestResult {
	const testName = "Profile Enforcers"

	client := testclient.NewHTTPClient(baseURL)
	username := uniqueName("squad")
	if status, err := createAccount(client, username, testPassword); err != nil || status != http.StatusCreated {
		return fail(testName, "Registration failed: %d %v", status, err)
	}
	path := "/api/profiles/" + username

	if resp, err := client.Do(http.MethodPut, path, side{Troops: []troop{{"Hitman", "T4", 1500}}}, username, testPassword); err != nil || resp.Status != http.StatusOK {
		return fail(testName, "Save failed: %v %d", err, resp.Status)
	}

	resp, err := client.Do(http.MethodPost, path+"/recommend/enforcers",
		map[string]any{"opponent_troops": []troop{{"Biker", "T2", 2000}}}, username, testPassword)
	if err != nil || resp.Status != http.StatusOK {
		return fail(testName, "Recommendation failed: %v %d %s", err, resp.Status, resp.Body)
	}
	var rec struct {
		Dominant string `json:"dominant_user_type"`
	}
	if err := resp.Decode(&rec); err != nil {
		return fail(testName, "Bad body: %v", err)
	}
	if rec.Dominant != "Hitman" {
		return fail(testName, "Dominant type %q, want Hitman", rec.Dominant)
	}
	return pass(testName, "Enforcers ranked for saved Hitman battalion")
}
