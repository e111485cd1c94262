package cmd

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/devtreehq/devtree/internal/config"
	"github.com/devtreehq/devtree/internal/hierarchy"
	"github.com/devtreehq/devtree/internal/ui"
	"github.com/devtreehq/devtree/internal/xserver"
)

// tuiCmd is an explicit alias for the default behavior, so scripts and docs
// can name the interactive session.
var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Run the interactive hierarchy session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSession(cmd.Context())
	},
}

// newSession connects to the configured backend and returns a session ready
// for its first reconciliation pass. The returned closer shuts the backend
// down.
func newSession() (*hierarchy.Session, func() error, error) {
	cfg := config.Get()

	svc, err := xserver.New(cfg.Display.Backend)
	if err != nil {
		return nil, nil, err
	}

	policy := hierarchy.ParseRemovalPolicy(cfg.Display.RemovalPolicy)
	return hierarchy.NewSession(svc, policy), svc.Close, nil
}

// runSession starts the interactive hierarchy view.
func runSession(ctx context.Context) error {
	session, closeSvc, err := newSession()
	if err != nil {
		return err
	}
	defer func() { _ = closeSvc() }()

	cfg := config.Get()

	model := ui.NewModel(ctx, session, cfg.UI.ConfirmQuit)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	// The hooks run inside session operations, which only ever execute on
	// tea command goroutines or the refresh ticker, so Send never blocks
	// the event loop on itself.
	session.OnTree(func(t *hierarchy.Tree) {
		p.Send(ui.TreeMsg{Rows: ui.Rows(t)})
	})
	session.OnState(func(st hierarchy.State) {
		p.Send(ui.StateMsg(st))
	})

	tickCtx, stopTicker := context.WithCancel(ctx)
	defer stopTicker()
	session.AutoRefresh(tickCtx, time.Duration(cfg.UI.RefreshInterval)*time.Second)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("session ui: %w", err)
	}
	return nil
}
