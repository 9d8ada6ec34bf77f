// Command mock-checks publishes a synthetic health-check log for local runs of
// "outage-analyzer analyze --url http://localhost:8090/checks.log".
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"
)

// scenario shapes the generated log.
type scenario struct {
	start  time.Time
	hosts  int
	checks int
	// outageFrom and outageTo bound the check indexes where every host is unreachable.
	outageFrom int
	outageTo   int
}

func main() {
	addr := flag.String("addr", ":8090", "Listen address")
	flag.Parse()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/checks.log", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		sc, err := scenarioFromQuery(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if err := writeChecks(w, sc); err != nil {
			log.Printf("write error: %v", err)
		}
	})

	logger := log.New(log.Writer(), "checks-mock ", log.LstdFlags|log.Lmicroseconds)
	srv := &http.Server{
		Addr:              *addr,
		Handler:           logRequests(logger, mux),
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("server error: %v", err)
	}
}

func defaultScenario() scenario {
	return scenario{
		start:      time.Date(2020, 10, 19, 13, 0, 0, 0, time.UTC),
		hosts:      4,
		checks:     30,
		outageFrom: 12,
		outageTo:   15,
	}
}

// scenarioFromQuery reads ?hosts=N&checks=N overrides.
func scenarioFromQuery(r *http.Request) (scenario, error) {
	sc := defaultScenario()
	q := r.URL.Query()
	for key, target := range map[string]*int{"hosts": &sc.hosts, "checks": &sc.checks} {
		v := q.Get(key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 10000 {
			return sc, fmt.Errorf("%s must be between 1 and 10000", key)
		}
		*target = n
	}
	if sc.hosts > 254 {
		return sc, fmt.Errorf("hosts must fit in one /24")
	}
	return sc, nil
}

// writeChecks emits one line per host per minute. Every host drops out during
// the outage window; host .1 runs slow in the second half and host .2 reports
// a timeout fault now and then.
func writeChecks(w io.Writer, sc scenario) error {
	bw := bufio.NewWriter(w)
	for i := 0; i < sc.checks; i++ {
		ts := sc.start.Add(time.Duration(i) * time.Minute).Format("20060102150405")
		for h := 1; h <= sc.hosts; h++ {
			fmt.Fprintf(bw, "%s,10.20.30.%d/24,%s\n", ts, h, status(sc, i, h))
		}
	}
	return bw.Flush()
}

func status(sc scenario, check, host int) string {
	switch {
	case check >= sc.outageFrom && check < sc.outageTo:
		return "-"
	case host == 2 && check%7 == 3:
		return "timeout"
	case host == 1 && check >= sc.checks/2:
		return strconv.Itoa(200000 + check*100)
	default:
		return strconv.Itoa(40 + (check*13+host*7)%60)
	}
}

func logRequests(logger *log.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		logger.Printf("%s %s %d %s", r.Method, r.URL.Path, rw.status, time.Since(start))
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
