// Package elefantconfig holds the connection and run configuration
// structs the (out-of-scope, spec.md §1) CLI front-end populates from
// flags and environment variables before handing them to orchestrator.
// Parsing flags/env itself is not this package's job; it mirrors the
// teacher's pgconn.Config shape (host/port/user/password/database plus
// RuntimeParams) and its .pgpass/pg_service.conf fallback behavior.
package elefantconfig

import (
	"os"
	"time"

	"github.com/jackc/pgpassfile"
	"github.com/jackc/pgservicefile"
)

// Endpoint names one side (source or target) of a migration, per
// spec.md §6.1's --source-db-*/--target-db-* flag family.
type Endpoint struct {
	Host     string
	Port     uint16
	User     string
	Password string
	Database string
}

// ResolvePassword fills in Password from a .pgpass file when the caller
// left it empty, mirroring the teacher's pgconn lookup order (explicit
// password, then PGPASSFILE, then the default ~/.pgpass path).
func (e *Endpoint) ResolvePassword() {
	if e.Password != "" {
		return
	}
	path := os.Getenv("PGPASSFILE")
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return
		}
		path = home + "/.pgpass"
	}
	pf, err := pgpassfile.ReadPassfile(path)
	if err != nil {
		return
	}
	port := "5432"
	if e.Port != 0 {
		port = portString(e.Port)
	}
	if pw := pf.FindPassword(e.Host, port, e.Database, e.User); pw != "" {
		e.Password = pw
	}
}

// ResolveFromService overlays fields from a named pg_service.conf entry
// (PGSERVICEFILE or the default ~/.pg_service.conf), leaving any field
// the caller already set untouched.
func (e *Endpoint) ResolveFromService(serviceName string) {
	if serviceName == "" {
		return
	}
	path := os.Getenv("PGSERVICEFILE")
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return
		}
		path = home + "/.pg_service.conf"
	}
	sf, err := pgservicefile.ReadServicefile(path)
	if err != nil {
		return
	}
	svc, err := sf.GetService(serviceName)
	if err != nil {
		return
	}
	for k, v := range svc.Settings {
		switch k {
		case "host":
			if e.Host == "" {
				e.Host = v
			}
		case "port":
			if e.Port == 0 {
				e.Port = parsePort(v)
			}
		case "user":
			if e.User == "" {
				e.User = v
			}
		case "password":
			if e.Password == "" {
				e.Password = v
			}
		case "dbname":
			if e.Database == "" {
				e.Database = v
			}
		}
	}
}

func portString(p uint16) string {
	if p == 0 {
		return "5432"
	}
	digits := [5]byte{}
	i := len(digits)
	n := p
	for {
		i--
		digits[i] = byte('0' + n%10)
		n /= 10
		if n == 0 {
			break
		}
	}
	return string(digits[i:])
}

func parsePort(s string) uint16 {
	var n uint16
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + uint16(c-'0')
	}
	return n
}

// RunOptions controls how an Orchestrator executes a migration, per
// spec.md §6.1's common CLI flags.
type RunOptions struct {
	MaxParallelism int
	Differential   bool
	// Timeout bounds every individual wire I/O call (spec.md §5 default
	// 30s).
	Timeout time.Duration
	// RetryBackoff is the base delay for the exponential backoff applied
	// to transient per-chunk errors (spec.md §4.5 default 3 attempts).
	RetryBackoff time.Duration
	RetryAttempts int
}

// DefaultRunOptions matches spec.md's stated defaults.
func DefaultRunOptions() RunOptions {
	return RunOptions{
		MaxParallelism: 1,
		Timeout:        30 * time.Second,
		RetryBackoff:   500 * time.Millisecond,
		RetryAttempts:  3,
	}
}
