package monitor

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"adsbridge/pkg/bus"
)

// Run shows the delivery stream until the user quits or ctx is done.
func Run(ctx context.Context, info Info, deliveries <-chan bus.Delivery, submit SubmitFunc) error {
	model := newModel(ctx, info, deliveries, submit)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	_, err := program.Run()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}

	fmt.Println(renderGoodbyeBanner(model))
	return nil
}

func renderGoodbyeBanner(m *model) string {
	style := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("230")).
		Background(lipgloss.Color("88")).
		Padding(1, 2)

	return style.Render(fmt.Sprintf("📡 %d deliveries observed", len(m.entries)))
}
