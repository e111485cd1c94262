package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/devtreehq/devtree/internal/hierarchy"
	"github.com/devtreehq/devtree/internal/ui"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the current device hierarchy",
	Long:  `Query the display server once and print the master/slave device tree.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		session, closeSvc, err := newSession()
		if err != nil {
			return err
		}
		defer func() { _ = closeSvc() }()

		if err := session.Start(cmd.Context()); err != nil {
			return err
		}

		printTree(session.Tree())
		return nil
	},
}

func printTree(tree *hierarchy.Tree) {
	rows := [][]string{}
	for _, row := range ui.Rows(tree) {
		name := row.Name
		if row.Depth > 0 {
			name = "  ↳ " + name
		}
		id := strconv.Itoa(row.ID)
		if row.Bucket {
			id = "-"
		}
		note := ""
		if row.Reserved {
			note = "core"
		}
		rows = append(rows, []string{id, name, row.Role.String(), note})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(ui.ColorSubtle)).
		Headers("ID", "DEVICE", "ROLE", "").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == 0: // Header row
				return lipgloss.NewStyle().Foreground(ui.ColorPrimary).Bold(true).Padding(0, 1)
			default:
				return lipgloss.NewStyle().Foreground(ui.ColorText).Padding(0, 1)
			}
		})

	fmt.Println(t)
}

// parseDeviceID parses a numeric device id argument.
func parseDeviceID(arg string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil {
		return 0, fmt.Errorf("invalid device id %q", arg)
	}
	return id, nil
}
