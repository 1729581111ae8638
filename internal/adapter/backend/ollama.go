// Package backend probes a local ollama daemon and runs completions
// against it. Routing never blocks on the probe.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/tidwall/gjson"

	"github.com/mereck/gantry/internal/core/domain"
	"github.com/mereck/gantry/internal/core/ports"
	"github.com/mereck/gantry/internal/logger"
	"github.com/mereck/gantry/pkg/pool"
)

// Common ports ollama listens on, probed in order.
var commonPorts = []int{11434, 11435, 11436}

const (
	DefaultPort  = 11434
	probeTimeout = 2 * time.Second
	fetchTimeout = 5 * time.Second
)

// Status describes a probed ollama daemon.
type Status struct {
	Running bool     `json:"running"`
	Port    int      `json:"port"`
	Version string   `json:"version,omitempty"`
	Models  []string `json:"models"`
}

type Manager struct {
	client  *http.Client
	logger  logger.StyledLogger
	bufPool *pool.Pool[*bytes.Buffer]
	port    int
}

func NewManager(log logger.StyledLogger) *Manager {
	bufPool, _ := pool.NewLitePool(func() *bytes.Buffer {
		return &bytes.Buffer{}
	})
	return &Manager{
		client:  &http.Client{},
		logger:  log,
		bufPool: bufPool,
		port:    DefaultPort,
	}
}

// CheckStatus probes the daemon and, when it responds, fetches its model
// list and version.
func (m *Manager) CheckStatus(ctx context.Context) Status {
	port, ok := m.DetectPort(ctx)
	if !ok {
		port = m.port
	}

	if !m.checkPort(ctx, port) {
		return Status{Running: false, Port: port, Models: []string{}}
	}

	m.port = port
	status := Status{
		Running: true,
		Port:    port,
		Models:  m.fetchModels(ctx, port),
	}
	status.Version = m.fetchVersion(ctx, port)
	return status
}

// DetectPort probes the common ollama ports and returns the first that
// responds.
func (m *Manager) DetectPort(ctx context.Context) (int, bool) {
	for _, port := range commonPorts {
		if m.checkPort(ctx, port) {
			return port, true
		}
	}
	return 0, false
}

// WaitForReady polls the daemon with exponential backoff until it responds
// or the timeout elapses. A daemon that never shows up is not an error.
func (m *Manager) WaitForReady(ctx context.Context, timeout time.Duration) bool {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 500 * time.Millisecond
	policy.MaxInterval = 5 * time.Second
	policy.MaxElapsedTime = timeout

	err := backoff.Retry(func() error {
		if _, ok := m.DetectPort(ctx); ok {
			return nil
		}
		return fmt.Errorf("ollama not responding")
	}, backoff.WithContext(policy, ctx))

	return err == nil
}

// Generate runs a single non-streaming completion against the daemon.
// It satisfies ports.GenerateFunc when bound as a method value.
func (m *Manager) Generate(ctx context.Context, model, prompt string, maxTokens int) (ports.GenerateResult, error) {
	payload := map[string]any{
		"model":  model,
		"prompt": prompt,
		"stream": false,
	}
	if maxTokens > 0 {
		payload["options"] = map[string]any{"num_predict": maxTokens}
	}

	buf := m.bufPool.Get()
	defer m.bufPool.Put(buf)
	if err := json.NewEncoder(buf).Encode(payload); err != nil {
		return ports.GenerateResult{}, domain.NewBackendError("generate", "", err)
	}

	endpoint := fmt.Sprintf("http://localhost:%d/api/generate", m.port)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(buf.Bytes()))
	if err != nil {
		return ports.GenerateResult{}, domain.NewBackendError("generate", endpoint, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return ports.GenerateResult{}, domain.NewBackendError("generate", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ports.GenerateResult{}, domain.NewBackendError("generate", endpoint, fmt.Errorf("HTTP %d", resp.StatusCode))
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return ports.GenerateResult{}, domain.NewBackendError("generate", endpoint, err)
	}

	text := gjson.GetBytes(respBody, "response").String()
	result := ports.GenerateResult{
		Text:       text,
		Tokens:     strings.Fields(text),
		TokensOut:  int(gjson.GetBytes(respBody, "eval_count").Int()),
		Confidence: 1,
	}
	if result.TokensOut == 0 {
		result.TokensOut = len(result.Tokens)
	}
	// The daemon reports no confidence signal. A generation cut short is
	// the one case we can flag.
	if !gjson.GetBytes(respBody, "done").Bool() {
		result.Confidence = 0.5
	}
	return result, nil
}

func (m *Manager) checkPort(ctx context.Context, port int) bool {
	body, err := m.get(ctx, port, "/api/tags", probeTimeout)
	if err != nil {
		return false
	}
	return gjson.GetBytes(body, "models").Exists()
}

func (m *Manager) fetchModels(ctx context.Context, port int) []string {
	body, err := m.get(ctx, port, "/api/tags", fetchTimeout)
	if err != nil {
		if m.logger != nil {
			m.logger.Debug("Model list fetch failed", "port", port, "error", err)
		}
		return []string{}
	}

	names := []string{}
	for _, model := range gjson.GetBytes(body, "models.#.name").Array() {
		names = append(names, model.String())
	}
	return names
}

func (m *Manager) fetchVersion(ctx context.Context, port int) string {
	body, err := m.get(ctx, port, "/api/version", probeTimeout)
	if err != nil {
		return ""
	}
	return gjson.GetBytes(body, "version").String()
}

func (m *Manager) get(ctx context.Context, port int, path string, timeout time.Duration) ([]byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	endpoint := fmt.Sprintf("http://localhost:%d%s", port, path)
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, domain.NewBackendError("request", endpoint, err)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, domain.NewBackendError("probe", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, domain.NewBackendError("probe", endpoint, fmt.Errorf("HTTP %d", resp.StatusCode))
	}

	return io.ReadAll(resp.Body)
}
