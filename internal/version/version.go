package version

import (
	"fmt"
	"log"
	"strings"

	"github.com/mereck/gantry/theme"
)

var (
	Name        = "gantry"
	Authors     = "Gantry Contributors"
	Description = "Agent Inference Routing Core"
	Version     = "v0.1.0"
	Commit      = "none"
	Date        = "nowish"
	User        = "local"
)

const (
	GithubHomeText  = "github.com/mereck/gantry"
	GithubHomeUri   = "https://github.com/mereck/gantry"
	GithubLatestUri = "https://github.com/mereck/gantry/releases/latest"
)

func PrintVersionInfo(extendedInfo bool, vlog *log.Logger) {
	githubUri := theme.Hyperlink(GithubHomeUri, GithubHomeText)
	latestUri := theme.Hyperlink(GithubLatestUri, Version)

	var b strings.Builder

	b.WriteString(theme.ColourSplash(`
╔──────────────────────────────────────────────────────────╗
│   ██████╗  █████╗ ███╗   ██╗████████╗██████╗ ██╗   ██╗   │
│  ██╔════╝ ██╔══██╗████╗  ██║╚══██╔══╝██╔══██╗╚██╗ ██╔╝   │
│  ██║  ███╗███████║██╔██╗ ██║   ██║   ██████╔╝ ╚████╔╝    │
│  ██║   ██║██╔══██║██║╚██╗██║   ██║   ██╔══██╗  ╚██╔╝     │
│  ╚██████╔╝██║  ██║██║ ╚████║   ██║   ██║  ██║   ██║      │
│   ╚═════╝ ╚═╝  ╚═╝╚═╝  ╚═══╝   ╚═╝   ╚═╝  ╚═╝   ╚═╝      │` + "\n"))

	b.WriteString(theme.ColourSplash("│  "))
	b.WriteString(theme.StyleUrl(githubUri))
	b.WriteString("  ")
	b.WriteString(theme.ColourVersion(latestUri))
	b.WriteString(theme.ColourSplash("              │\n"))
	b.WriteString(theme.ColourSplash("╚──────────────────────────────────────────────────────────╝"))

	if extendedInfo {
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf(" Commit: %s\n", Commit))
		b.WriteString(fmt.Sprintf("  Built: %s\n", Date))
		b.WriteString(fmt.Sprintf("  Using: %s\n", User))
	}

	vlog.Println(b.String())
}
