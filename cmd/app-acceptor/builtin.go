package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/device-infra/app-acceptor/registry"
	"github.com/device-infra/app-acceptor/types"
)

// registerBuiltinCases registers the environment preflight cases that ship
// with the binary. Plans reference them by ID; a plan with no case list runs
// all of them.
func registerBuiltinCases(reg *registry.Registry) {
	reg.MustRegister(types.TestCase{
		ID:          "preflight-tempdir",
		Name:        "Preflight: temp dir writable",
		Description: "Verifies the host temp directory accepts writes",
		Category:    types.CategorySmoke,
		Priority:    types.PriorityCritical,
		Timeout:     10 * time.Second,
		Body: func(ctx context.Context) error {
			path := filepath.Join(os.TempDir(), fmt.Sprintf("app-acceptor-preflight-%d", time.Now().UnixNano()))
			if err := os.WriteFile(path, []byte("ok"), 0o600); err != nil {
				return fmt.Errorf("temp dir not writable: %w", err)
			}
			return os.Remove(path)
		},
	})

	reg.MustRegister(types.TestCase{
		ID:          "preflight-loopback",
		Name:        "Preflight: loopback reachable",
		Description: "Verifies the host can bind and dial a loopback socket",
		Category:    types.CategorySmoke,
		Priority:    types.PriorityHigh,
		Timeout:     10 * time.Second,
		Body: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", "127.0.0.1:0")
			if err != nil {
				return fmt.Errorf("failed to bind loopback: %w", err)
			}
			defer ln.Close()

			var d net.Dialer
			conn, err := d.DialContext(ctx, "tcp", ln.Addr().String())
			if err != nil {
				return fmt.Errorf("failed to dial loopback: %w", err)
			}
			return conn.Close()
		},
	})

	reg.MustRegister(types.TestCase{
		ID:          "preflight-clock",
		Name:        "Preflight: monotonic clock",
		Description: "Verifies the monotonic clock advances",
		Category:    types.CategorySmoke,
		Priority:    types.PriorityMedium,
		Timeout:     5 * time.Second,
		DependsOn:   []string{"preflight-tempdir"},
		Body: func(ctx context.Context) error {
			start := time.Now()
			select {
			case <-time.After(10 * time.Millisecond):
			case <-ctx.Done():
				return ctx.Err()
			}
			if time.Since(start) <= 0 {
				return fmt.Errorf("monotonic clock did not advance")
			}
			return nil
		},
	})
}
