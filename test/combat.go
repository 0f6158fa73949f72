package test

import (
	"fmt"
	"math"
	"net/http"

	"github.com/lawnchairsociety/battalionsim/internal/testclient"
)

// =============================================================================
// Group 2: Calculations
// =============================================================================

type troop struct {
	Type     string `json:"type"`
	Tier     string `json:"tier"`
	Quantity int    `json:"quantity"`
}

type enforcer struct {
	Name               string `json:"name"`
	Tier               string `json:"tier"`
	HasSignatureWeapon bool   `json:"has_signature_weapon"`
}

type side struct {
	Troops    []troop    `json:"troops"`
	Enforcers []enforcer `json:"enforcers,omitempty"`
}

type totals struct {
	TotalATK float64 `json:"total_atk"`
	TotalDEF float64 `json:"total_def"`
	TotalHP  float64 `json:"total_hp"`
}

type outcome struct {
	Winner string   `json:"winner"`
	Rounds int      `json:"rounds_fought"`
	Log    []string `json:"log"`
}

// TestBattalionStats checks that enforcer buffs raise a battalion above its base
func TestBattalionStats(baseURL string) TestResult {
	const testName = "Battalion Stats"

	client, err := testclient.NewTestClient(uniqueName("stats"), baseURL)
	if err != nil {
		return fail(testName, "Failed to connect: %v", err)
	}
	defer client.Close()

	bare := side{Troops: []troop{{"Biker", "T4", 1000}}}
	buffed := side{Troops: bare.Troops, Enforcers: []enforcer{{"Red Thorn", "Grand", true}}}

	var plain, boosted totals
	for _, c := range []struct {
		in  side
		out *totals
	}{{bare, &plain}, {buffed, &boosted}} {
		reply, err := client.Request("battalion", c.in, replyTimeout)
		if err != nil {
			return fail(testName, "%v", err)
		}
		if err := reply.Decode(c.out); err != nil {
			return fail(testName, "Bad reply %q: %v", reply.Error, err)
		}
	}
	logResult(testName, boosted.TotalATK > plain.TotalATK, fmt.Sprintf("ATK %.0f -> %.0f", plain.TotalATK, boosted.TotalATK))

	if plain.TotalHP <= 0 {
		return fail(testName, "Unbuffed battalion has no HP")
	}
	if boosted.TotalATK <= plain.TotalATK {
		return fail(testName, "Red Thorn did not raise Biker ATK (%.0f vs %.0f)", boosted.TotalATK, plain.TotalATK)
	}
	return pass(testName, "ATK %.0f -> %.0f with Red Thorn", plain.TotalATK, boosted.TotalATK)
}

// TestSimulateBattle checks an overwhelming attacker wins and the log is sent
func TestSimulateBattle(baseURL string) TestResult {
	const testName = "Simulate Battle"

	client, err := testclient.NewTestClient(uniqueName("fight"), baseURL)
	if err != nil {
		return fail(testName, "Failed to connect: %v", err)
	}
	defer client.Close()

	reply, err := client.Request("simulate", map[string]side{
		"attacker": {Troops: []troop{{"Biker", "T4", 2000}}},
		"defender": {Troops: []troop{{"Bruiser", "T1", 500}}},
	}, replyTimeout)
	if err != nil {
		return fail(testName, "%v", err)
	}
	var result struct {
		Outcome outcome `json:"outcome"`
	}
	if err := reply.Decode(&result); err != nil {
		return fail(testName, "Bad reply %q: %v", reply.Error, err)
	}
	logResult(testName, result.Outcome.Winner == "attacker", fmt.Sprintf("winner %s in %d rounds", result.Outcome.Winner, result.Outcome.Rounds))

	if result.Outcome.Winner != "attacker" {
		return fail(testName, "Winner = %s, want attacker", result.Outcome.Winner)
	}
	if len(result.Outcome.Log) == 0 {
		return fail(testName, "Battle log is empty")
	}
	return pass(testName, "Attacker won in %d rounds", result.Outcome.Rounds)
}

// TestQuickCounter checks the one-for-one counter mapping
func TestQuickCounter(baseURL string) TestResult {
	const testName = "Quick Counter"

	client, err := testclient.NewTestClient(uniqueName("quick"), baseURL)
	if err != nil {
		return fail(testName, "Failed to connect: %v", err)
	}
	defer client.Close()

	reply, err := client.Request("quick_counter", map[string]int{"Bruisers": 30, "hitman": 20, "Bikers": 10}, replyTimeout)
	if err != nil {
		return fail(testName, "%v", err)
	}
	var counter map[string]int
	if err := reply.Decode(&counter); err != nil {
		return fail(testName, "Bad reply: %v", err)
	}
	if counter["Biker"] != 30 || counter["Bruiser"] != 20 || counter["Hitman"] != 10 {
		return fail(testName, "Got %v", counter)
	}
	return pass(testName, "Got %v", counter)
}

type troopMix struct {
	Mix        []troop  `json:"recommended_mix"`
	Dominant   string   `json:"opponent_dominant_type"`
	Simulation *outcome `json:"simulation_result"`
}

// TestRecommendTroops checks that a Bruiser army is countered with Bikers
func TestRecommendTroops(baseURL string) TestResult {
	const testName = "Recommend Troops"

	client, err := testclient.NewTestClient(uniqueName("mix"), baseURL)
	if err != nil {
		return fail(testName, "Failed to connect: %v", err)
	}
	defer client.Close()

	reply, err := client.Request("recommend_troops", map[string]any{
		"opponent_troops": []troop{{"Bruiser", "T1", 5000}},
	}, replyTimeout)
	if err != nil {
		return fail(testName, "%v", err)
	}
	var rec troopMix
	if err := reply.Decode(&rec); err != nil {
		return fail(testName, "Bad reply %q: %v", reply.Error, err)
	}
	if rec.Dominant != "Bruiser" || len(rec.Mix) == 0 || rec.Mix[0].Type != "Biker" {
		return fail(testName, "Unexpected recommendation %+v", rec)
	}
	if rec.Simulation == nil {
		return fail(testName, "Recommendation was not simulated")
	}
	return pass(testName, "%d %s %s lead the counter, simulated winner %s",
		rec.Mix[0].Quantity, rec.Mix[0].Tier, rec.Mix[0].Type, rec.Simulation.Winner)
}

// TestRecommendTroopsNoOpponent checks the failing stage is reported
func TestRecommendTroopsNoOpponent(baseURL string) TestResult {
	const testName = "Recommend Troops Without Opponent"

	client, err := testclient.NewTestClient(uniqueName("empty"), baseURL)
	if err != nil {
		return fail(testName, "Failed to connect: %v", err)
	}
	defer client.Close()

	reply, err := client.Request("recommend_troops", map[string]any{"opponent_troops": []troop{}}, replyTimeout)
	if err != nil {
		return fail(testName, "%v", err)
	}
	if reply.Error == "" || reply.Stage != "opponent_stats" {
		return fail(testName, "Expected opponent_stats failure, got stage %q error %q", reply.Stage, reply.Error)
	}
	return pass(testName, "Stopped at %s: %s", reply.Stage, reply.Error)
}

// TestRecommendEnforcers checks that the default pool yields ranked teams
func TestRecommendEnforcers(baseURL string) TestResult {
	const testName = "Recommend Enforcers"

	client, err := testclient.NewTestClient(uniqueName("team"), baseURL)
	if err != nil {
		return fail(testName, "Failed to connect: %v", err)
	}
	defer client.Close()

	reply, err := client.Request("recommend_enforcers", map[string]any{
		"user_troops":     []troop{{"Biker", "T4", 1500}},
		"opponent_troops": []troop{{"Bruiser", "T2", 2000}},
	}, 3*replyTimeout)
	if err != nil {
		return fail(testName, "%v", err)
	}
	var rec struct {
		Best *struct {
			Team []enforcer `json:"enforcer_team"`
		} `json:"best_enforcer_recommendation"`
		Generated int `json:"candidates_generated"`
	}
	if err := reply.Decode(&rec); err != nil {
		return fail(testName, "Bad reply %q: %v", reply.Error, err)
	}
	if rec.Best == nil || len(rec.Best.Team) == 0 {
		return fail(testName, "No best team returned")
	}
	return pass(testName, "%d candidates, best team led by %s", rec.Generated, rec.Best.Team[0].Name)
}

// TestHTTPMatchesWebSocket checks both transports return the same numbers
func TestHTTPMatchesWebSocket(baseURL string) TestResult {
	const testName = "HTTP Matches WebSocket"

	client, err := testclient.NewTestClient(uniqueName("same"), baseURL)
	if err != nil {
		return fail(testName, "Failed to connect: %v", err)
	}
	defer client.Close()

	req := side{Troops: []troop{{"Hitman", "T4", 750}}, Enforcers: []enforcer{{"Captain", "Elite", false}}}

	reply, err := client.Request("battalion", req, replyTimeout)
	if err != nil {
		return fail(testName, "%v", err)
	}
	var ws totals
	if err := reply.Decode(&ws); err != nil {
		return fail(testName, "Bad reply: %v", err)
	}

	resp, err := client.Do(http.MethodPost, "/api/battalion", req, "", "")
	if err != nil {
		return fail(testName, "HTTP request failed: %v", err)
	}
	var api totals
	if resp.Status != http.StatusOK {
		return fail(testName, "HTTP status %d: %s", resp.Status, resp.Body)
	}
	if err := resp.Decode(&api); err != nil {
		return fail(testName, "Bad HTTP body: %v", err)
	}

	if math.Abs(ws.TotalATK-api.TotalATK) > 1e-9 || math.Abs(ws.TotalHP-api.TotalHP) > 1e-9 {
		return fail(testName, "WebSocket %+v != HTTP %+v", ws, api)
	}
	return pass(testName, "Both report ATK %.0f HP %.0f", ws.TotalATK, ws.TotalHP)
}
