package banner

import (
	"github.com/charmbracelet/lipgloss"
)

var colorBanner = lipgloss.Color("#7D56F4")

func GetString() string {
	renderer := lipgloss.DefaultRenderer()

	style := renderer.NewStyle().
		Foreground(colorBanner).
		Bold(true)

	ascii := `
 _    __           __    __
| |  / /  ____    / /   / /  ___    __  __
| | / /  / __ \  / /   / /  / _ \  / / / /
| |/ /  / /_/ / / /   / /  /  __/ / /_/ /
|___/   \____/ /_/   /_/   \___/  \__, /
                                 /____/   `

	return "\n" + style.Render(ascii) + "\n"
}
