package wazuh

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManagerServer(t *testing.T, authCalls *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case authPath:
			user, pass, ok := r.BasicAuth()
			if !ok || user != "admin" || pass != "secret" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			atomic.AddInt32(authCalls, 1)
			json.NewEncoder(w).Encode(map[string]any{
				"data": map[string]any{"token": "test-token"},
			})
		case agentsPath:
			if r.Header.Get("Authorization") != "Bearer test-token" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			json.NewEncoder(w).Encode(map[string]any{
				"data": map[string]any{
					"affected_items": []map[string]any{
						{"id": "000", "name": "manager", "ip": "127.0.0.1", "status": "active"},
						{"id": "001", "name": "web-01", "ip": "10.0.0.5", "status": "active"},
						{"id": "002", "name": "db-01", "ip": "10.0.0.6", "status": "disconnected"},
					},
				},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestGetAgentsSkipsManager(t *testing.T) {
	var authCalls int32
	srv := newManagerServer(t, &authCalls)
	defer srv.Close()

	client := NewClient(Config{
		APIURL:   srv.URL,
		Username: "admin",
		Password: "secret",
	}, nil)

	agents, err := client.GetAgents(context.Background())
	require.NoError(t, err)
	require.Len(t, agents, 2)
	assert.Equal(t, "001", agents[0].ID)
	assert.Equal(t, "web-01", agents[0].Name)
	assert.Equal(t, "002", agents[1].ID)
	assert.Equal(t, int32(1), atomic.LoadInt32(&authCalls))
}

func TestReauthenticatesOnExpiredToken(t *testing.T) {
	var authCalls int32
	var agentCalls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case authPath:
			atomic.AddInt32(&authCalls, 1)
			json.NewEncoder(w).Encode(map[string]any{
				"data": map[string]any{"token": "fresh-token"},
			})
		case agentsPath:
			// First request carries a stale token and gets rejected
			if atomic.AddInt32(&agentCalls, 1) == 1 {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			json.NewEncoder(w).Encode(map[string]any{
				"data": map[string]any{"affected_items": []map[string]any{}},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client := NewClient(Config{APIURL: srv.URL, Username: "a", Password: "b"}, nil)
	client.token = "stale-token"

	agents, err := client.GetAgents(context.Background())
	require.NoError(t, err)
	assert.Empty(t, agents)
	assert.Equal(t, int32(1), atomic.LoadInt32(&authCalls))
	assert.Equal(t, int32(2), atomic.LoadInt32(&agentCalls))
}

func TestAuthFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewClient(Config{APIURL: srv.URL, Username: "a", Password: "wrong"}, nil)
	_, err := client.GetAgents(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth failed")
}

func TestGetAllVulnerabilitiesPagination(t *testing.T) {
	var authCalls int32
	manager := newManagerServer(t, &authCalls)
	defer manager.Close()

	var searchCalls int32
	indexer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, indexerPath, r.URL.Path)
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		require.Equal(t, "idx-admin", user)
		require.Equal(t, "idx-secret", pass)

		var query struct {
			From  int `json:"from"`
			Size  int `json:"size"`
			Query struct {
				Bool struct {
					Must []map[string]any `json:"must"`
				} `json:"bool"`
			} `json:"query"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&query))
		atomic.AddInt32(&searchCalls, 1)

		agentID := query.Query.Bool.Must[0]["term"].(map[string]any)["agent.id"].(string)

		hits := []map[string]any{}
		// Agent 001 has one full page then a short page; agent 002 is empty
		if agentID == "001" && query.From == 0 {
			for i := 0; i < pageSize; i++ {
				hits = append(hits, map[string]any{
					"_source": map[string]any{
						"agent":   map[string]any{"id": "001", "name": "web-01"},
						"host":    map[string]any{"name": "web-01.local"},
						"package": map[string]any{"name": "openssl", "version": "3.0.1"},
						"vulnerability": map[string]any{
							"id":       "CVE-2024-0001",
							"severity": "High",
							"score":    map[string]any{"base": 8.1},
						},
					},
				})
			}
		}
		json.NewEncoder(w).Encode(map[string]any{
			"hits": map[string]any{"hits": hits},
		})
	}))
	defer indexer.Close()

	client := NewClient(Config{
		APIURL:          manager.URL,
		IndexerURL:      indexer.URL,
		Username:        "admin",
		Password:        "secret",
		IndexerUsername: "idx-admin",
		IndexerPassword: "idx-secret",
	}, nil)

	vulns, err := client.GetAllVulnerabilities(context.Background(), []string{"High", "Critical"})
	require.NoError(t, err)
	assert.Len(t, vulns, pageSize)
	assert.Equal(t, "CVE-2024-0001", vulns[0].CVEID)
	assert.Equal(t, "8.1", vulns[0].CVEScore)
	assert.Equal(t, "web-01.local", vulns[0].Host)

	// 001: full page at offset 0, empty page at offset 10. 002: empty page.
	assert.Equal(t, int32(3), atomic.LoadInt32(&searchCalls))
}

func TestGetSummary(t *testing.T) {
	var authCalls int32
	manager := newManagerServer(t, &authCalls)
	defer manager.Close()

	indexer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var query struct {
			From  int `json:"from"`
			Query struct {
				Bool struct {
					Must []map[string]any `json:"must"`
				} `json:"bool"`
			} `json:"query"`
		}
		json.NewDecoder(r.Body).Decode(&query)
		agentID := query.Query.Bool.Must[0]["term"].(map[string]any)["agent.id"].(string)

		hits := []map[string]any{}
		if agentID == "001" && query.From == 0 {
			hits = append(hits, map[string]any{
				"_source": map[string]any{
					"agent":         map[string]any{"id": "001", "name": "web-01"},
					"vulnerability": map[string]any{"id": "CVE-2024-0002", "severity": "Critical"},
				},
			})
		}
		json.NewEncoder(w).Encode(map[string]any{"hits": map[string]any{"hits": hits}})
	}))
	defer indexer.Close()

	client := NewClient(Config{
		APIURL:     manager.URL,
		IndexerURL: indexer.URL,
		Username:   "admin",
		Password:   "secret",
	}, nil)

	summary, err := client.GetSummary(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Total)
	assert.Equal(t, 1, summary.BySeverity["Critical"])
	assert.Equal(t, 1, summary.ByAgent["001 (web-01)"])
	assert.False(t, summary.GeneratedAt.IsZero())
}
