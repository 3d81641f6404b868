package wazuh

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/fleetwatch/fleetwatch/internal/core/domain"
	"github.com/fleetwatch/fleetwatch/internal/core/ports"
)

const (
	authPath    = "/security/user/authenticate"
	agentsPath  = "/agents"
	indexerPath = "/wazuh-states-vulnerabilities-*/_search"

	// The indexer caps deep paging; we stop after this many pages.
	pageSize  = 10
	offsetCap = 100
)

// Config holds connection settings for the vulnerability platform.
type Config struct {
	// APIURL is the manager REST API, e.g. https://wazuh.local:55000
	APIURL string
	// IndexerURL is the indexer search endpoint, e.g. https://wazuh.local:9200
	IndexerURL      string
	Username        string
	Password        string
	IndexerUsername string
	IndexerPassword string
	// InsecureSkipVerify disables TLS verification for self-signed
	// platform certificates.
	InsecureSkipVerify bool
}

// Client talks to the Wazuh manager API and indexer. The manager uses
// short-lived JWT tokens; the client re-authenticates once on a 401
// before giving up.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger

	mu    sync.Mutex
	token string
}

var _ ports.VulnerabilityProvider = (*Client)(nil)

// NewClient creates a platform client. Pass nil for logger to use the
// default slog logger.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	transport := &http.Transport{}
	if cfg.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &Client{
		cfg:    cfg,
		logger: logger,
		http: &http.Client{
			Timeout:   15 * time.Second,
			Transport: transport,
		},
	}
}

// authenticate fetches a fresh JWT from the manager.
func (c *Client) authenticate(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIURL+authPath, nil)
	if err != nil {
		return fmt.Errorf("failed to build auth request: %w", err)
	}
	req.SetBasicAuth(c.cfg.Username, c.cfg.Password)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("auth request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("auth failed with status %d: %s", resp.StatusCode, string(body))
	}

	var out struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("failed to decode auth response: %w", err)
	}
	if out.Data.Token == "" {
		return fmt.Errorf("auth response contained no token")
	}

	c.mu.Lock()
	c.token = out.Data.Token
	c.mu.Unlock()
	c.logger.Debug("authenticated with vulnerability platform")
	return nil
}

func (c *Client) currentToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// doAPI performs an authenticated manager API request, re-authenticating
// once if the token has expired.
func (c *Client) doAPI(ctx context.Context, path string) ([]byte, error) {
	if c.currentToken() == "" {
		if err := c.authenticate(ctx); err != nil {
			return nil, err
		}
	}

	for attempt := 0; attempt < 2; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.APIURL+path, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to build request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.currentToken())

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("request to %s failed: %w", path, err)
		}
		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, fmt.Errorf("failed to read response: %w", readErr)
		}

		if resp.StatusCode == http.StatusUnauthorized && attempt == 0 {
			c.logger.Debug("token expired, re-authenticating")
			if err := c.authenticate(ctx); err != nil {
				return nil, err
			}
			continue
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("request to %s failed with status %d: %s", path, resp.StatusCode, string(body))
		}
		return body, nil
	}
	return nil, fmt.Errorf("request to %s failed after re-authentication", path)
}

// GetAgents lists registered agents, excluding the manager itself
// (agent 000).
func (c *Client) GetAgents(ctx context.Context) ([]domain.Agent, error) {
	body, err := c.doAPI(ctx, agentsPath)
	if err != nil {
		return nil, err
	}

	var out struct {
		Data struct {
			AffectedItems []struct {
				ID     string `json:"id"`
				Name   string `json:"name"`
				IP     string `json:"ip"`
				Status string `json:"status"`
			} `json:"affected_items"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode agents response: %w", err)
	}

	agents := make([]domain.Agent, 0, len(out.Data.AffectedItems))
	for _, item := range out.Data.AffectedItems {
		if item.ID == "000" {
			continue
		}
		agents = append(agents, domain.Agent{
			ID:     item.ID,
			Name:   item.Name,
			IP:     item.IP,
			Status: item.Status,
		})
	}
	return agents, nil
}

// indexerHit is one document returned by the indexer search.
type indexerHit struct {
	Source struct {
		Agent struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"agent"`
		Host struct {
			Name string `json:"name"`
		} `json:"host"`
		Package struct {
			Name        string `json:"name"`
			Description string `json:"description"`
			Version     string `json:"version"`
		} `json:"package"`
		Vulnerability struct {
			ID          string `json:"id"`
			Severity    string `json:"severity"`
			Description string `json:"description"`
			Reference   string `json:"reference"`
			Published   string `json:"published_at"`
			Detected    string `json:"detected_at"`
			Score       struct {
				Base json.Number `json:"base"`
			} `json:"score"`
		} `json:"vulnerability"`
	} `json:"_source"`
}

// searchVulnerabilities runs one paged query against the indexer.
func (c *Client) searchVulnerabilities(ctx context.Context, agentID string, severityFilter []string, offset int) ([]indexerHit, error) {
	must := []map[string]any{
		{"term": map[string]any{"agent.id": agentID}},
	}
	if len(severityFilter) > 0 {
		must = append(must, map[string]any{
			"terms": map[string]any{"vulnerability.severity": severityFilter},
		})
	}
	query := map[string]any{
		"from": offset,
		"size": pageSize,
		"query": map[string]any{
			"bool": map[string]any{"must": must},
		},
	}
	payload, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("failed to encode search query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.IndexerURL+indexerPath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.cfg.IndexerUsername, c.cfg.IndexerPassword)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("indexer search failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("indexer search failed with status %d: %s", resp.StatusCode, string(body))
	}

	var out struct {
		Hits struct {
			Hits []indexerHit `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}
	return out.Hits.Hits, nil
}

// GetAllVulnerabilities fetches findings for every agent, paging through
// the indexer results.
func (c *Client) GetAllVulnerabilities(ctx context.Context, severityFilter []string) ([]domain.Vulnerability, error) {
	agents, err := c.GetAgents(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var all []domain.Vulnerability
	for _, agent := range agents {
		for offset := 0; offset < offsetCap; offset += pageSize {
			hits, err := c.searchVulnerabilities(ctx, agent.ID, severityFilter, offset)
			if err != nil {
				return nil, fmt.Errorf("search for agent %s: %w", agent.ID, err)
			}
			for _, hit := range hits {
				src := hit.Source
				all = append(all, domain.Vulnerability{
					CVEID:              src.Vulnerability.ID,
					CVEScore:           src.Vulnerability.Score.Base.String(),
					PackageName:        src.Package.Name,
					PackageDescription: src.Package.Description,
					PackageVersion:     src.Package.Version,
					Severity:           src.Vulnerability.Severity,
					Description:        src.Vulnerability.Description,
					Reference:          src.Vulnerability.Reference,
					PublishedAt:        src.Vulnerability.Published,
					DetectedAt:         src.Vulnerability.Detected,
					Host:               src.Host.Name,
					AgentID:            src.Agent.ID,
					AgentName:          src.Agent.Name,
					FetchedAt:          now,
				})
			}
			if len(hits) < pageSize {
				break
			}
		}
	}
	return all, nil
}

// GetSummary aggregates findings by severity and agent.
func (c *Client) GetSummary(ctx context.Context, severityFilter []string) (domain.VulnerabilitySummary, error) {
	vulns, err := c.GetAllVulnerabilities(ctx, severityFilter)
	if err != nil {
		return domain.VulnerabilitySummary{}, err
	}

	summary := domain.VulnerabilitySummary{
		Total:       len(vulns),
		BySeverity:  make(map[string]int),
		ByAgent:     make(map[string]int),
		GeneratedAt: time.Now().UTC(),
	}
	for _, v := range vulns {
		summary.BySeverity[v.Severity]++
		summary.ByAgent[fmt.Sprintf("%s (%s)", v.AgentID, v.AgentName)]++
	}
	return summary, nil
}
