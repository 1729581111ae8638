// Package deploy renders per-agent deployment configuration from a routing
// mapping and the detected hardware tier. Pure templating: it consumes
// routing data but never influences it.
package deploy

import (
	"strings"
	"text/template"

	"github.com/mereck/gantry/internal/core/domain"
)

// AgentConfig is the input to one rendered artifact.
type AgentConfig struct {
	Mapping     *domain.AgentModelMapping
	Tier        domain.HardwareTier
	Temperature float64
	MaxTokens   int
}

const agentTemplate = `# gantry agent configuration: {{ .Mapping.AgentID }}
# hardware tier: {{ .Tier.ID }} ({{ .Tier.CPUCores }} cores, {{ printf "%.0f" .Tier.RAMGB }}GB RAM)
model: {{ .Mapping.Primary.Name }}
quantization: {{ .Tier.RecommendedQuant }}
context_window: {{ .Mapping.Primary.ContextWindow }}
temperature: {{ .Temperature }}
max_tokens: {{ .MaxTokens }}
confidence_threshold: {{ .Mapping.ConfidenceThreshold }}
max_concurrent: {{ .Mapping.MaxConcurrent }}
fallbacks:
{{- range .Mapping.FallbackChain }}
  - {{ .Name }}
{{- end }}
`

var agentTmpl = template.Must(template.New("agent").Parse(agentTemplate))

// RenderAgentConfig produces the templated text artifact for one agent.
func RenderAgentConfig(cfg AgentConfig) (string, error) {
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.7
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 2048
	}

	var b strings.Builder
	if err := agentTmpl.Execute(&b, cfg); err != nil {
		return "", err
	}
	return b.String(), nil
}
