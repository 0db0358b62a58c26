package dummy

import (
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"
)

type ServerConfig struct {
	Port int
}

// Start runs a practice target in the background: one route per latency
// profile so percentile tables, histograms and error distributions all have
// something to show.
func Start(cfg ServerConfig) {
	mux := http.NewServeMux()

	// 1. Echo Endpoint (mirrors the request body back)
	mux.HandleFunc("/echo", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusOK)
		w.Write(body)
	})

	// 2. Fast Endpoint (10-50ms)
	mux.HandleFunc("/fast", func(w http.ResponseWriter, r *http.Request) {
		jitter := time.Duration(rand.Intn(40)+10) * time.Millisecond
		time.Sleep(jitter)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Fast response"))
	})

	// 3. Medium Endpoint (100-300ms)
	mux.HandleFunc("/medium", func(w http.ResponseWriter, r *http.Request) {
		jitter := time.Duration(rand.Intn(200)+100) * time.Millisecond
		time.Sleep(jitter)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Medium response"))
	})

	// 4. Slow Endpoint (1s-2s) - Good for testing deadlines and queuing
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		jitter := time.Duration(rand.Intn(1000)+1000) * time.Millisecond
		time.Sleep(jitter)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Slow response"))
	})

	// 5. Spike Endpoint (Usually fast, randomly very slow)
	// P99 will be terrible, P50 will be fine.
	mux.HandleFunc("/spike", func(w http.ResponseWriter, r *http.Request) {
		if rand.Float32() < 0.05 { // 5% chance of spike
			time.Sleep(2 * time.Second)
		} else {
			time.Sleep(20 * time.Millisecond)
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Spikey response"))
	})

	// 6. Flaky Endpoint (Random failures)
	mux.HandleFunc("/flaky", func(w http.ResponseWriter, r *http.Request) {
		rnd := rand.Float32()
		if rnd < 0.2 {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("500 Internal Server Error"))
		} else if rnd < 0.4 {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte("429 Too Many Requests"))
		} else {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("OK"))
		}
	})

	// 7. Unavailable Endpoint (always 503, exercises UNAVAILABLE mapping)
	mux.HandleFunc("/unavailable", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("503 Service Unavailable"))
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	fmt.Printf("👻 Dummy Server running on http://localhost%s\n", addr)
	fmt.Println("   Endpoints: /echo, /fast, /medium, /slow, /spike, /flaky, /unavailable")

	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("Server failed: %v\n", err)
		}
	}()
}
