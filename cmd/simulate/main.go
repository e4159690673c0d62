package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sonrisadental/booking-api/internal/appointment"
	"github.com/sonrisadental/booking-api/internal/config"
	"github.com/sonrisadental/booking-api/internal/db"
)

// simulate hammers POST /appointments with concurrent workers that all
// target a small set of (date, slot) pairs, then checks the database for
// slot invariant violations. With N workers racing for one slot the
// expected outcome is exactly one 201 and N-1 409s.

type SimConfig struct {
	APIBaseURL string
	Workers    int
	Requests   int
	Days       int
	Contention int // how many distinct (date, slot) targets to spread requests over
}

type OperationMetrics struct {
	Total     int64
	Created   int64
	Conflict  int64
	Rejected  int64
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

func (om *OperationMetrics) Record(latency time.Duration, status int) {
	atomic.AddInt64(&om.Total, 1)
	switch {
	case status == http.StatusCreated:
		atomic.AddInt64(&om.Created, 1)
	case status == http.StatusConflict:
		atomic.AddInt64(&om.Conflict, 1)
	case status == http.StatusBadRequest:
		atomic.AddInt64(&om.Rejected, 1)
	default:
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, min, max, p50, p95 time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.Latencies) == 0 {
		return 0, 0, 0, 0, 0
	}

	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)

	sort.Slice(latencies, func(i, j int) bool {
		return latencies[i] < latencies[j]
	})

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}

	avg = sum / time.Duration(len(latencies))
	min = latencies[0]
	max = latencies[len(latencies)-1]
	p50 = latencies[len(latencies)*50/100]

	p95Idx := len(latencies) * 95 / 100
	if p95Idx >= len(latencies) {
		p95Idx = len(latencies) - 1
	}
	p95 = latencies[p95Idx]

	return avg, min, max, p50, p95
}

type target struct {
	Date string
	Slot string
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	sim := SimConfig{}
	flag.StringVar(&sim.APIBaseURL, "api", "http://127.0.0.1:8080", "booking API base URL")
	flag.IntVar(&sim.Workers, "workers", 20, "concurrent workers")
	flag.IntVar(&sim.Requests, "requests", 200, "total booking requests")
	flag.IntVar(&sim.Days, "days", 30, "days ahead to spread targets over")
	flag.IntVar(&sim.Contention, "contention", 5, "distinct (date, slot) targets")
	flag.Parse()

	targets := makeTargets(sim)
	log.Printf("simulating %d requests over %d workers against %d contended slots",
		sim.Requests, sim.Workers, len(targets))

	metrics := &OperationMetrics{}
	client := &http.Client{Timeout: 15 * time.Second}

	jobs := make(chan target)
	var wg sync.WaitGroup

	for w := 0; w < sim.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for tgt := range jobs {
				status, latency := bookOnce(client, sim.APIBaseURL, tgt)
				metrics.Record(latency, status)
			}
		}()
	}

	for i := 0; i < sim.Requests; i++ {
		jobs <- targets[rand.Intn(len(targets))]
	}
	close(jobs)
	wg.Wait()

	report(metrics, len(targets))
	checkInvariant()
}

func makeTargets(sim SimConfig) []target {
	targets := make([]target, 0, sim.Contention)
	for len(targets) < sim.Contention {
		date := time.Now().AddDate(0, 0, 1+rand.Intn(sim.Days))
		slot := appointment.Slots[rand.Intn(len(appointment.Slots))]
		targets = append(targets, target{
			Date: date.Format("2006-01-02"),
			Slot: slot,
		})
	}
	return targets
}

func bookOnce(client *http.Client, baseURL string, tgt target) (int, time.Duration) {
	payload := map[string]string{
		"name":        fmt.Sprintf("Sim Paciente %d", rand.Intn(100000)),
		"email":       fmt.Sprintf("sim%d@example.com", rand.Intn(100000)),
		"phone":       fmt.Sprintf("+503%08d", 60000000+rand.Intn(19999999)),
		"serviceType": string(appointment.ServiceLimpieza),
		"date":        tgt.Date,
		"slot":        tgt.Slot,
	}

	raw, _ := json.Marshal(payload)

	start := time.Now()
	resp, err := client.Post(baseURL+"/appointments", "application/json", bytes.NewReader(raw))
	latency := time.Since(start)
	if err != nil {
		return 0, latency
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode, latency
}

func report(metrics *OperationMetrics, targets int) {
	avg, min, max, p50, p95 := metrics.Stats()

	fmt.Println("--- booking race results ---")
	fmt.Printf("targets:   %d\n", targets)
	fmt.Printf("total:     %d\n", metrics.Total)
	fmt.Printf("created:   %d\n", metrics.Created)
	fmt.Printf("conflict:  %d\n", metrics.Conflict)
	fmt.Printf("rejected:  %d\n", metrics.Rejected)
	fmt.Printf("errors:    %d\n", metrics.Error)
	fmt.Printf("latency:   avg=%s min=%s max=%s p50=%s p95=%s\n", avg, min, max, p50, p95)

	if int64(targets) < metrics.Created {
		fmt.Println("WARNING: more creations than contended targets, check the invariant below")
	}
}

// checkInvariant asks Postgres directly whether any (date, slot) pair
// holds more than one confirmed appointment.
func checkInvariant() {
	cfg, err := config.Load()
	if err != nil {
		log.Printf("skipping invariant check, no config: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Printf("skipping invariant check, no database: %v", err)
		return
	}
	defer pool.Close()

	var violations int
	err = pool.QueryRow(ctx, `
		SELECT count(*)
		FROM (
			SELECT date, slot
			FROM appointments
			WHERE status = 'confirmed'
			GROUP BY date, slot
			HAVING count(*) > 1
		) dup
	`).Scan(&violations)
	if err != nil {
		log.Printf("invariant check query failed: %v", err)
		return
	}

	if violations > 0 {
		log.Printf("INVARIANT VIOLATED: %d slots hold multiple confirmed appointments", violations)
	} else {
		fmt.Println("invariant holds: no slot has more than one confirmed appointment")
	}
}
