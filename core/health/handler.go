// Package health reports whether the service and the backends it depends on
// are reachable.
package health

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/dunetube/dunetube/api/web"
	"github.com/sirupsen/logrus"
)

const Service = "dunetube"

// Check returns nil when the named dependency answers.
type Check func(ctx context.Context) error

type Status struct {
	OK      bool              `json:"ok"`
	Service string            `json:"service"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// Run executes every check with the given timeout each. Names are visited in
// sorted order so logs are stable.
func Run(ctx context.Context, timeout time.Duration, checks map[string]Check) Status {
	st := Status{OK: true, Service: Service, Checks: make(map[string]string, len(checks))}

	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		cctx, cancel := context.WithTimeout(ctx, timeout)
		err := checks[name](cctx)
		cancel()

		if err != nil {
			st.OK = false
			st.Checks[name] = err.Error()
			continue
		}
		st.Checks[name] = "ok"
	}
	return st
}

func HandleHealth(log logrus.FieldLogger, checks map[string]Check) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		st := Run(ctx, 2*time.Second, checks)

		status := http.StatusOK
		if !st.OK {
			log.WithField("checks", st.Checks).Warn("health check failed")
			status = http.StatusServiceUnavailable
		}
		return web.Respond(ctx, w, st, status)
	}
}
