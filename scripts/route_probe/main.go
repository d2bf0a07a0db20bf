// Command route_probe checks a running instance's access gate against a table
// of expected outcomes. Redirects are not followed.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type target struct {
	Method   string `json:"method"`
	Path     string `json:"path"`
	As       string `json:"as"`
	Status   int    `json:"status"`
	Location string `json:"location"`
	Critical bool   `json:"critical"`
}

type config struct {
	Targets []target `json:"targets"`
}

type probe struct {
	Target   target
	Status   int
	Location string
	Duration time.Duration
	Error    error
}

func (p probe) ok() bool {
	return p.Error == nil && p.Status == p.Target.Status && p.Location == p.Target.Location
}

func main() {
	var (
		base        string
		targetsPath string
		cookieName  string
		timeout     time.Duration
	)

	flag.StringVar(&base, "base", "http://localhost:8080", "API base URL")
	flag.StringVar(&targetsPath, "targets", filepath.Join("scripts", "route_probe", "targets.json"), "Path to JSON targets file")
	flag.StringVar(&cookieName, "cookie", "cd_session", "Session cookie name")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.Parse()

	targets, err := loadTargets(targetsPath)
	if err != nil {
		log.Fatalf("failed to load targets: %v", err)
	}

	// Tokens per persona come from the environment, e.g. PROBE_TOKEN_STUDENT.
	tokens := map[string]string{}
	for _, t := range targets {
		if t.As != "" {
			tokens[t.As] = os.Getenv("PROBE_TOKEN_" + strings.ToUpper(t.As))
		}
	}

	client := &http.Client{
		Timeout: timeout,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	var (
		results  []probe
		breaking int
		optional int
	)
	for _, t := range targets {
		res := run(client, base, cookieName, tokens[t.As], t)
		if !res.ok() {
			if t.Critical {
				breaking++
			} else {
				optional++
			}
		}
		results = append(results, res)
	}

	printReport(results)

	fmt.Printf("Breaking mismatches: %d, Optional mismatches: %d\n", breaking, optional)
	if breaking > 0 {
		os.Exit(1)
	}
}

func loadTargets(path string) ([]target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if len(cfg.Targets) == 0 {
		return nil, fmt.Errorf("no targets defined in %s", path)
	}
	return cfg.Targets, nil
}

func run(client *http.Client, base, cookieName, token string, tgt target) probe {
	res := probe{Target: tgt}
	if client == nil {
		res.Error = errors.New("nil client")
		return res
	}

	method := strings.ToUpper(strings.TrimSpace(tgt.Method))
	if method == "" {
		method = http.MethodGet
	}
	path := tgt.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	req, err := http.NewRequest(method, strings.TrimRight(base, "/")+path, nil)
	if err != nil {
		res.Error = err
		return res
	}
	if tgt.As != "" {
		if token == "" {
			res.Error = fmt.Errorf("no token for persona %q", tgt.As)
			return res
		}
		req.AddCookie(&http.Cookie{Name: cookieName, Value: token})
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		res.Error = err
		return res
	}
	defer resp.Body.Close()

	res.Duration = time.Since(start)
	res.Status = resp.StatusCode
	res.Location = resp.Header.Get("Location")
	return res
}

func printReport(results []probe) {
	fmt.Println("Route Probe Report")
	fmt.Println("==================")
	for _, res := range results {
		status := "OK"
		if res.Error != nil {
			status = "ERROR"
		} else if !res.ok() {
			status = "MISMATCH"
		}
		as := res.Target.As
		if as == "" {
			as = "anonymous"
		}
		fmt.Printf("[%s] %s %s as %s (%s)\n", status, res.Target.Method, res.Target.Path, as, res.Duration)
		if res.Error != nil {
			fmt.Printf("  Error: %v\n", res.Error)
			continue
		}
		fmt.Printf("  Status: %d (want %d) | Location: %q (want %q) | Critical: %t\n",
			res.Status, res.Target.Status, res.Location, res.Target.Location, res.Target.Critical)
	}
}
