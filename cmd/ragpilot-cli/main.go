// Command ragpilot-cli is a minimal terminal REPL that drives a running
// ragpilot HTTP server over POST /v1/orchestrate, for local smoke-testing.
// It is not part of the orchestration engine itself.
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/term"
)

type orchestrateRequest struct {
	SessionID string `json:"sessionId"`
	Query     string `json:"query"`
}

type citationDTO struct {
	ID             int     `json:"id"`
	Content        string  `json:"content"`
	MessageID      string  `json:"messageId"`
	RelevanceScore float64 `json:"relevanceScore"`
}

type orchestrateResponse struct {
	SessionID  string        `json:"sessionId"`
	MessageID  string        `json:"messageId"`
	Answer     string        `json:"answer"`
	PathTaken  string        `json:"pathTaken"`
	Confidence float64       `json:"confidence"`
	Citations  []citationDTO `json:"citations"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func main() {
	addr := flag.String("addr", "http://localhost:8080", "Base URL of a running ragpilot HTTP server")
	token := flag.String("token", "", "Bearer token, when the server has ENABLE_JWT=true")
	flag.Parse()

	if !isInteractiveTerminal() {
		fmt.Fprintln(os.Stderr, "ragpilot-cli is an interactive REPL and requires a terminal")
		os.Exit(1)
	}

	client := &http.Client{Timeout: 60 * time.Second}
	sessionID := ""

	fmt.Printf("ragpilot-cli connected to %s. Type a query, or \"exit\" to quit.\n", *addr)

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			fmt.Println()
			return
		}
		query := strings.TrimSpace(line)
		if query == "" {
			continue
		}
		if query == "exit" || query == "quit" {
			return
		}

		result, err := orchestrate(client, *addr, *token, sessionID, query)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}

		sessionID = result.SessionID
		printResult(result)
	}
}

func orchestrate(client *http.Client, addr, token, sessionID, query string) (*orchestrateResponse, error) {
	body, err := json.Marshal(orchestrateRequest{SessionID: sessionID, Query: query})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, strings.TrimRight(addr, "/")+"/v1/orchestrate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp errorResponse
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		if errResp.Error != "" {
			return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, errResp.Error)
		}
		return nil, fmt.Errorf("server returned %d", resp.StatusCode)
	}

	var result orchestrateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &result, nil
}

func printResult(result *orchestrateResponse) {
	fmt.Printf("\n%s\n", result.Answer)
	fmt.Printf("[path=%s confidence=%.2f]\n", result.PathTaken, result.Confidence)
	for _, c := range result.Citations {
		fmt.Printf("  [%d] %s\n", c.ID, truncate(c.Content, 100))
	}
	fmt.Println()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

// isInteractiveTerminal checks if the program is running in an interactive
// terminal, the way the teacher's http_server.go gates its own prompts.
func isInteractiveTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}
