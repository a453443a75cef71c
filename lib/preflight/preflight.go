// Package preflight verifies plain network reachability before any database
// handshake is attempted. The usual failure mode for a fresh stack is a
// security-group or subnet misconfiguration, which otherwise surfaces as an
// opaque timeout deep inside the database driver.
package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/sirupsen/logrus"
)

const defaultTimeout = 5 * time.Second

// Target is one endpoint to verify.
type Target struct {
	Name string
	Host string
	Port string
}

// Checker resolves DNS and opens a raw TCP connection to each target. All
// targets are checked even after a failure so one invocation reports every
// problem at once.
type Checker struct {
	Timeout time.Duration
	Logger  *logrus.Logger

	// Overridable in tests.
	LookupHost func(ctx context.Context, host string) ([]string, error)
	Dial       func(ctx context.Context, network, address string) (net.Conn, error)
}

// Check returns nil when every target is reachable, otherwise one error
// aggregating every failed check.
func (c *Checker) Check(ctx context.Context, targets ...Target) error {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	lookup := c.LookupHost
	if lookup == nil {
		lookup = net.DefaultResolver.LookupHost
	}
	dial := c.Dial
	if dial == nil {
		dial = (&net.Dialer{Timeout: timeout}).DialContext
	}

	var failures []error
	for _, target := range targets {
		addrs, err := lookup(ctx, target.Host)
		if err != nil {
			failures = append(failures, fmt.Errorf("DNS resolution failed for %s host %q: %w", target.Name, target.Host, err))
			continue
		}
		c.Logger.WithFields(logrus.Fields{
			"target":    target.Name,
			"host":      target.Host,
			"addresses": addrs,
			"operation": "Check",
		}).Debug("Resolved target host")

		dialCtx, cancel := context.WithTimeout(ctx, timeout)
		conn, err := dial(dialCtx, "tcp", net.JoinHostPort(target.Host, target.Port))
		cancel()
		if err != nil {
			failures = append(failures, fmt.Errorf("%s is not reachable at %s:%s, check security groups and subnet routing: %w",
				target.Name, target.Host, target.Port, err))
			continue
		}
		conn.Close()
	}

	return errors.Join(failures...)
}
