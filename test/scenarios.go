// Package test holds integration scenarios that run against a live advisor.
package test

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"
)

// uniqueCounter provides unique IDs for test accounts within a single run
var uniqueCounter uint64

// runID keeps account names from colliding across runs against one database.
var runID = fmt.Sprintf("%x", os.Getpid())

// uniqueName generates a unique name by appending a letter-based suffix
func uniqueName(base string) string {
	counter := atomic.AddUint64(&uniqueCounter, 1)
	return base + runID + counterToLetters(counter)
}

// counterToLetters converts a number to a letter sequence (1=a, 2=b, ..., 26=z, 27=aa, 28=ab, ...)
func counterToLetters(n uint64) string {
	if n == 0 {
		return "a"
	}
	result := ""
	for n > 0 {
		n-- // Make it 0-indexed
		result = string(rune('a'+(n%26))) + result
		n /= 26
	}
	return result
}

// Verbose controls whether detailed logging is shown during tests
var Verbose = false

// TestResult represents the result of a test
type TestResult struct {
	Name    string
	Passed  bool
	Message string
}

func pass(name, format string, args ...any) TestResult {
	return TestResult{Name: name, Passed: true, Message: fmt.Sprintf(format, args...)}
}

func fail(name, format string, args ...any) TestResult {
	return TestResult{Name: name, Passed: false, Message: fmt.Sprintf(format, args...)}
}

// logAction logs a test action when verbose mode is enabled
func logAction(testName, action string) {
	if Verbose {
		fmt.Printf("  [%s] %s\n", testName, action)
	}
}

// logResult logs an expected vs actual result when verbose mode is enabled
func logResult(testName string, success bool, detail string) {
	if Verbose {
		status := "OK"
		if !success {
			status = "FAIL"
		}
		fmt.Printf("  [%s] %s: %s\n", testName, status, detail)
	}
}

// RunAllTests runs every scenario against the advisor at baseURL.
// Profile scenarios are skipped when the server runs without storage.
func RunAllTests(baseURL string) []TestResult {
	results := make([]TestResult, 0)

	// Group 1: Connection & Protocol
	results = append(results, TestHealth(baseURL))
	results = append(results, TestBasicConnection(baseURL))
	results = append(results, TestMalformedMessage(baseURL))
	results = append(results, TestUnknownRequestType(baseURL))
	results = append(results, TestMultipleClients(baseURL))

	// Group 2: Calculations
	results = append(results, TestBattalionStats(baseURL))
	results = append(results, TestSimulateBattle(baseURL))
	results = append(results, TestQuickCounter(baseURL))
	results = append(results, TestRecommendTroops(baseURL))
	results = append(results, TestRecommendTroopsNoOpponent(baseURL))
	results = append(results, TestRecommendEnforcers(baseURL))
	results = append(results, TestHTTPMatchesWebSocket(baseURL))

	// Group 3: Accounts & Profiles
	if profilesEnabled(baseURL) {
		results = append(results, TestAccountSystem(baseURL))
		results = append(results, TestWeakPassword(baseURL))
		results = append(results, TestProfileLifecycle(baseURL))
		results = append(results, TestProfileWrongAccount(baseURL))
		results = append(results, TestProfileEnforcers(baseURL))
	}

	return results
}

// PrintResults writes a summary of results to stdout.
func PrintResults(results []TestResult) {
	WriteResults(os.Stdout, results)
}

// WriteResults writes a summary of results to w.
func WriteResults(w io.Writer, results []TestResult) {
	passed := 0
	failed := 0
	rule := strings.Repeat("=", 60)

	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "Integration Test Results")
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w)

	for _, r := range results {
		status := "PASS"
		if !r.Passed {
			status = "FAIL"
			failed++
		} else {
			passed++
		}
		fmt.Fprintf(w, "[%s] %s: %s\n", status, r.Name, r.Message)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("-", 60))
	fmt.Fprintf(w, "Total: %d | Passed: %d | Failed: %d\n", len(results), passed, failed)
	fmt.Fprintln(w, strings.Repeat("-", 60))
}
