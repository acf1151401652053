package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/procflow/pkg/server"
)

// serveCommand creates the serve command running the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr       string
		sessionTTL time.Duration
		noCache    bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the HTTP API.

Serves layout, render and validate endpoints for posted flows, and hosts
interactive canvases that a web editor drives with pointer events:

  GET    /healthz
  GET    /v1/catalog
  POST   /v1/layout, /v1/render, /v1/validate
  POST   /v1/canvases
  GET    /v1/canvases/{id}, /v1/canvases/{id}/svg
  POST   /v1/canvases/{id}/events, /v1/canvases/{id}/relayout
  PATCH  /v1/canvases/{id}/nodes/{nodeID}
  DELETE /v1/canvases/{id}

Idle canvases expire after the session TTL. The server shuts down gracefully
on interrupt.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("addr") {
				addr = c.cfg.Server.Addr
			}
			if !cmd.Flags().Changed("session-ttl") {
				sessionTTL = c.cfg.SessionTTL()
			}
			return c.runServe(cmd.Context(), addr, sessionTTL, noCache)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address (default from config)")
	cmd.Flags().DurationVar(&sessionTTL, "session-ttl", time.Hour, "idle canvas lifetime, 0 disables expiry (default from config)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, addr string, sessionTTL time.Duration, noCache bool) error {
	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	srv := server.New(runner,
		server.WithLogger(c.Logger),
		server.WithSessionTTL(sessionTTL),
		server.WithLayoutDefaults(c.cfg.Direction(), c.cfg.Layout.Smart),
	)

	printInfo("Serving %s API", appName)
	printKeyValue("URL", StyleLink.Render(serverURL(addr)))
	printKeyValue("Cache", c.cacheDescription(noCache))
	printKeyValue("Sessions", sessionDescription(sessionTTL))
	printNewline()

	prog := newProgress(c.Logger)
	if err := srv.ListenAndServe(ctx, addr); err != nil {
		return fmt.Errorf("serve %s: %w", addr, err)
	}
	prog.done("server stopped")
	return nil
}

// serverURL turns a listen address into a clickable URL.
func serverURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr
}

func sessionDescription(ttl time.Duration) string {
	if ttl <= 0 {
		return "in memory, no expiry"
	}
	return "in memory, idle expiry " + ttl.String()
}
