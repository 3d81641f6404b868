package openvas

import (
	"context"
	"crypto/tls"
	"encoding/xml"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/fleetwatch/fleetwatch/internal/core/domain"
	"github.com/fleetwatch/fleetwatch/internal/core/ports"
)

// fullAndFastConfig is the scanner's default scan configuration name.
const fullAndFastConfig = "Full and fast"

// Config holds scanner connection settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	// Timeout bounds each GMP exchange.
	Timeout time.Duration
}

// Client speaks GMP (Greenbone Management Protocol) to an OpenVAS
// manager over TLS. Each operation opens a fresh connection since GMP
// sessions are cheap and the manager drops idle ones.
type Client struct {
	cfg    Config
	logger *slog.Logger

	// dial is swappable for tests.
	dial func(ctx context.Context, addr string) (net.Conn, error)
}

var _ ports.Scanner = (*Client)(nil)

// NewClient creates a GMP scanner client.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	c := &Client{cfg: cfg, logger: logger}
	c.dial = func(ctx context.Context, addr string) (net.Conn, error) {
		d := &tls.Dialer{
			// The manager ships a self-signed certificate.
			Config: &tls.Config{InsecureSkipVerify: true},
		}
		return d.DialContext(ctx, "tcp", addr)
	}
	return c
}

// session is one authenticated GMP connection.
type session struct {
	conn    net.Conn
	timeout time.Duration
}

func (s *session) close() { s.conn.Close() }

// exchange sends one GMP command and decodes its response into out.
func (s *session) exchange(cmd string, out any) error {
	if err := s.conn.SetDeadline(time.Now().Add(s.timeout)); err != nil {
		return fmt.Errorf("failed to set deadline: %w", err)
	}
	if _, err := s.conn.Write([]byte(cmd)); err != nil {
		return fmt.Errorf("failed to send command: %w", err)
	}
	// GMP responses are single XML documents; the decoder stops at the
	// closing tag of the root element.
	if err := xml.NewDecoder(s.conn).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

type gmpStatus struct {
	Status     string `xml:"status,attr"`
	StatusText string `xml:"status_text,attr"`
}

// ok reports whether the status code is in the 2xx success range.
func (g gmpStatus) ok() bool {
	return strings.HasPrefix(g.Status, "2")
}

func (c *Client) connect(ctx context.Context) (*session, error) {
	addr := fmt.Sprintf("%s:%d", c.cfg.Host, c.cfg.Port)
	conn, err := c.dial(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to scanner at %s: %w", addr, err)
	}
	s := &session{conn: conn, timeout: c.cfg.Timeout}

	var resp struct {
		gmpStatus
		XMLName xml.Name `xml:"authenticate_response"`
	}
	cmd := fmt.Sprintf(
		"<authenticate><credentials><username>%s</username><password>%s</password></credentials></authenticate>",
		xmlEscape(c.cfg.Username), xmlEscape(c.cfg.Password),
	)
	if err := s.exchange(cmd, &resp); err != nil {
		s.close()
		return nil, err
	}
	if !resp.ok() {
		s.close()
		return nil, fmt.Errorf("scanner authentication failed: %s %s", resp.Status, resp.StatusText)
	}
	return s, nil
}

// createTarget registers the scan target and returns its id.
func (c *Client) createTarget(s *session, req domain.ScanRequest) (string, error) {
	var resp struct {
		gmpStatus
		XMLName xml.Name `xml:"create_target_response"`
		ID      string   `xml:"id,attr"`
	}
	cmd := fmt.Sprintf(
		"<create_target><name>%s</name><hosts>%s</hosts><port_range>1-65535</port_range></create_target>",
		xmlEscape(req.Name), xmlEscape(req.Target),
	)
	if err := s.exchange(cmd, &resp); err != nil {
		return "", err
	}
	if !resp.ok() || resp.ID == "" {
		return "", fmt.Errorf("failed to create target: %s %s", resp.Status, resp.StatusText)
	}
	return resp.ID, nil
}

// findScanConfig looks up the "Full and fast" scan configuration.
func (c *Client) findScanConfig(s *session) (string, error) {
	var resp struct {
		gmpStatus
		XMLName xml.Name `xml:"get_configs_response"`
		Configs []struct {
			ID   string `xml:"id,attr"`
			Name string `xml:"name"`
		} `xml:"config"`
	}
	if err := s.exchange("<get_configs/>", &resp); err != nil {
		return "", err
	}
	if !resp.ok() {
		return "", fmt.Errorf("failed to list scan configs: %s %s", resp.Status, resp.StatusText)
	}
	for _, cfg := range resp.Configs {
		if cfg.Name == fullAndFastConfig {
			return cfg.ID, nil
		}
	}
	return "", fmt.Errorf("scan config %q not found", fullAndFastConfig)
}

func (c *Client) createTask(s *session, name, configID, targetID string) (string, error) {
	var resp struct {
		gmpStatus
		XMLName xml.Name `xml:"create_task_response"`
		ID      string   `xml:"id,attr"`
	}
	cmd := fmt.Sprintf(
		`<create_task><name>%s</name><config id="%s"/><target id="%s"/></create_task>`,
		xmlEscape(name), configID, targetID,
	)
	if err := s.exchange(cmd, &resp); err != nil {
		return "", err
	}
	if !resp.ok() || resp.ID == "" {
		return "", fmt.Errorf("failed to create task: %s %s", resp.Status, resp.StatusText)
	}
	return resp.ID, nil
}

func (c *Client) startTask(s *session, taskID string) error {
	var resp struct {
		gmpStatus
		XMLName xml.Name `xml:"start_task_response"`
	}
	cmd := fmt.Sprintf(`<start_task task_id="%s"/>`, taskID)
	if err := s.exchange(cmd, &resp); err != nil {
		return err
	}
	if !resp.ok() {
		return fmt.Errorf("failed to start task: %s %s", resp.Status, resp.StatusText)
	}
	return nil
}

// StartScan creates a target and a "Full and fast" task for it and
// starts the task.
func (c *Client) StartScan(ctx context.Context, req domain.ScanRequest) (domain.ScanJob, error) {
	s, err := c.connect(ctx)
	if err != nil {
		return domain.ScanJob{}, err
	}
	defer s.close()

	targetID, err := c.createTarget(s, req)
	if err != nil {
		return domain.ScanJob{}, err
	}
	configID, err := c.findScanConfig(s)
	if err != nil {
		return domain.ScanJob{}, err
	}
	taskID, err := c.createTask(s, req.Name, configID, targetID)
	if err != nil {
		return domain.ScanJob{}, err
	}
	if err := c.startTask(s, taskID); err != nil {
		return domain.ScanJob{}, err
	}

	c.logger.Info("scan started", "task_id", taskID, "target", req.Target)
	return domain.ScanJob{
		TaskID:    taskID,
		TargetID:  targetID,
		Name:      req.Name,
		Target:    req.Target,
		Status:    domain.ScanStatusStarted,
		StartedAt: time.Now().UTC(),
	}, nil
}

func xmlEscape(s string) string {
	var b strings.Builder
	xml.EscapeText(&b, []byte(s))
	return b.String()
}
