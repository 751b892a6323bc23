// Benchmark harness: boots the real server against a mock vendor upstream
// and drives the streaming turn endpoint with vegeta. Chaos mode adds a
// sidecar of clients that disconnect mid-stream, exercising the failure
// persistence path under load.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	vegeta "github.com/tsenart/vegeta/v12/lib"
)

const (
	mockPort = 9091
	appPort  = 8081
)

var benchConfig = fmt.Sprintf(`server:
  port: "%d"
database:
  path: "bench.db"
chat:
  default_model: "gpt-4o-mini"
providers:
  - id: "openai-bench"
    type: "openai"
    api_key: "sk-bench"
    base_url: "http://localhost:%d/v1"
    enabled: true
`, appPort, mockPort)

var streamBody = []string{
	`data: {"model":"gpt-4o-mini","choices":[{"delta":{"content":"오늘도"}}]}`,
	`data: {"model":"gpt-4o-mini","choices":[{"delta":{"content":" 수고"}}]}`,
	`data: {"model":"gpt-4o-mini","choices":[{"delta":{"content":"했어요."}}]}`,
	`data: {"model":"gpt-4o-mini","choices":[],"usage":{"prompt_tokens":42,"completion_tokens":6}}`,
	`data: [DONE]`,
}

func main() {
	duration := flag.Duration("duration", 10*time.Second, "Duration of the test")
	rate := flag.Int("rate", 50, "Requests per second")
	chaos := flag.Bool("chaos", false, "Simulate random client disconnections")
	flag.Parse()

	go startMockVendor()

	fmt.Println("Building application...")
	buildCmd := exec.Command("go", "build", "-o", "bin/server", "./cmd/server")
	buildCmd.Stdout = os.Stdout
	buildCmd.Stderr = os.Stderr
	if err := buildCmd.Run(); err != nil {
		log.Fatalf("Failed to build app: %v", err)
	}

	configFile := "bench_config.yaml"
	if err := os.WriteFile(configFile, []byte(benchConfig), 0644); err != nil {
		log.Fatalf("Failed to write config: %v", err)
	}
	defer os.Remove(configFile)

	fmt.Println("Starting application...")
	app := exec.Command("./bin/server")
	app.Env = append(os.Environ(), fmt.Sprintf("CONFIG_FILE=%s", configFile), "LOG_LEVEL=error")

	logFile, _ := os.Create("bench_server.log")
	defer logFile.Close()
	app.Stdout = logFile
	app.Stderr = logFile

	if err := app.Start(); err != nil {
		log.Fatalf("Failed to start app: %v", err)
	}
	defer func() {
		if app.Process != nil {
			_ = app.Process.Kill()
		}
	}()

	waitForApp(fmt.Sprintf("http://localhost:%d/health", appPort))

	conversationID := createConversation()
	streamURL := fmt.Sprintf("http://localhost:%d/v1/conversations/%s/stream", appPort, conversationID)

	done := make(chan struct{})
	if *chaos {
		fmt.Println("CHAOS MODE ENABLED: Starting disconnecting clients...")
		go startChaosClients(streamURL, 10, done)
	}

	fmt.Printf("Running streaming benchmark: %s duration, %d req/s\n", *duration, *rate)

	targeter := func(t *vegeta.Target) error {
		t.Method = "POST"
		t.URL = streamURL
		t.Body = []byte(`{"content": "오늘 하루 힘들었어"}`)
		t.Header = http.Header{
			"Content-Type": []string{"application/json"},
		}
		return nil
	}

	attacker := vegeta.NewAttacker(vegeta.KeepAlive(true))
	var metrics vegeta.Metrics

	for res := range attacker.Attack(targeter, vegeta.Rate{Freq: *rate, Per: time.Second}, *duration, "stream-turn") {
		metrics.Add(res)
	}
	metrics.Close()
	close(done)

	fmt.Println("--------------------------------------------------")
	fmt.Println("99th percentile: ", metrics.Latencies.P99)
	fmt.Println("Mean:            ", metrics.Latencies.Mean)
	fmt.Println("Max:             ", metrics.Latencies.Max)
	fmt.Printf("Success:         %.2f%%\n", metrics.Success*100)
	fmt.Printf("Throughput:      %.2f req/s\n", metrics.Throughput)
	fmt.Println("--------------------------------------------------")

	if len(metrics.Errors) > 0 {
		fmt.Println("Error Set (first 5 unique):")
		uniqueErrors := make(map[string]bool)
		count := 0
		for _, msg := range metrics.Errors {
			if !uniqueErrors[msg] && count < 5 {
				fmt.Println(msg)
				uniqueErrors[msg] = true
				count++
			}
		}
	}

	os.Remove("bench.db")
}

func createConversation() string {
	body := strings.NewReader(`{"modelId": "gpt-4o-mini"}`)
	resp, err := http.Post(fmt.Sprintf("http://localhost:%d/v1/conversations", appPort), "application/json", body)
	if err != nil {
		log.Fatalf("Failed to create conversation: %v", err)
	}
	defer resp.Body.Close()

	var conv struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&conv); err != nil || conv.ID == "" {
		log.Fatalf("Failed to decode conversation: %v", err)
	}
	return conv.ID
}

func startChaosClients(url string, concurrency int, done chan struct{}) {
	var wg sync.WaitGroup
	wg.Add(concurrency)

	for i := 0; i < concurrency; i++ {
		go func() {
			defer wg.Done()
			client := &http.Client{}
			payload := `{"content": "잠깐만"}`

			for {
				select {
				case <-done:
					return
				default:
					// disconnect somewhere between 1ms and 200ms in
					timeout := time.Duration(rand.Intn(200)+1) * time.Millisecond

					ctx, cancel := context.WithTimeout(context.Background(), timeout)
					req, _ := http.NewRequestWithContext(ctx, "POST", url, strings.NewReader(payload))
					req.Header.Set("Content-Type", "application/json")

					resp, err := client.Do(req)
					if err == nil {
						resp.Body.Close()
					}
					cancel()

					time.Sleep(time.Duration(rand.Intn(50)) * time.Millisecond)
				}
			}
		}()
	}
	wg.Wait()
}

func startMockVendor() {
	mux := http.NewServeMux()

	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[{"id":"gpt-4o-mini","object":"model"}]}`))
	})

	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)

		w.Header().Set("Content-Type", "text/event-stream")
		flusher, _ := w.(http.Flusher)

		for _, line := range streamBody {
			time.Sleep(20 * time.Millisecond)
			fmt.Fprintf(w, "%s\n\n", line)
			flusher.Flush()
		}
	})

	if err := http.ListenAndServe(fmt.Sprintf(":%d", mockPort), mux); err != nil {
		log.Fatalf("Mock vendor failed: %v", err)
	}
}

func waitForApp(url string) {
	for i := 0; i < 50; i++ {
		resp, err := http.Get(url)
		if err == nil && resp.StatusCode == http.StatusOK {
			resp.Body.Close()
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
	log.Fatal("App did not become ready in time")
}
