package link

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

const (
	defaultConnectTimeout = 15 * time.Second
	defaultStatePoll      = 500 * time.Millisecond
	stateCompleted        = "COMPLETED"
)

// WPAController drives wpa_supplicant through wpa_cli. It is used only from
// the supervisor goroutine and is not safe for concurrent use.
type WPAController struct {
	iface          string
	run            func(ctx context.Context, args ...string) (string, error)
	connectTimeout time.Duration
	poll           time.Duration

	networkID int
	started   bool
}

// NewWPAController creates a controller for the named wireless interface.
func NewWPAController(iface string) *WPAController {
	c := &WPAController{
		iface:          iface,
		connectTimeout: defaultConnectTimeout,
		poll:           defaultStatePoll,
		networkID:      -1,
	}
	c.run = c.wpaCLI
	return c
}

func (c *WPAController) wpaCLI(ctx context.Context, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, "wpa_cli", append([]string{"-i", c.iface}, args...)...).Output()
	if err != nil {
		return "", fmt.Errorf("wpa_cli %s: %w", strings.Join(args, " "), err)
	}
	return strings.TrimSpace(string(out)), nil
}

// command runs a wpa_cli command that is expected to answer OK.
func (c *WPAController) command(ctx context.Context, args ...string) error {
	out, err := c.run(ctx, args...)
	if err != nil {
		return err
	}
	if out != "OK" {
		return fmt.Errorf("wpa_cli %s: unexpected reply %q", args[0], out)
	}
	return nil
}

// Started reports whether Start has succeeded.
func (c *WPAController) Started() bool {
	return c.started
}

// Configure replaces every configured network with one for creds.
func (c *WPAController) Configure(creds Credentials) error {
	if creds.SSID == "" {
		return errors.New("empty ssid")
	}
	ctx := context.Background()

	if err := c.command(ctx, "remove_network", "all"); err != nil {
		return err
	}
	out, err := c.run(ctx, "add_network")
	if err != nil {
		return err
	}
	id, err := strconv.Atoi(out)
	if err != nil {
		return fmt.Errorf("add_network: unexpected reply %q", out)
	}
	if err := c.command(ctx, "set_network", strconv.Itoa(id), "ssid", strconv.Quote(creds.SSID)); err != nil {
		return err
	}
	if creds.Password == "" {
		err = c.command(ctx, "set_network", strconv.Itoa(id), "key_mgmt", "NONE")
	} else {
		err = c.command(ctx, "set_network", strconv.Itoa(id), "psk", strconv.Quote(creds.Password))
	}
	if err != nil {
		return err
	}
	c.networkID = id
	return nil
}

// Start enables the configured network.
func (c *WPAController) Start(ctx context.Context) error {
	if c.networkID < 0 {
		return errors.New("no network configured")
	}
	if err := c.command(ctx, "enable_network", strconv.Itoa(c.networkID)); err != nil {
		return err
	}
	c.started = true
	return nil
}

// Connect asks wpa_supplicant to reassociate and waits for the handshake to
// complete.
func (c *WPAController) Connect(ctx context.Context) error {
	if err := c.command(ctx, "reconnect"); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, c.connectTimeout)
	defer cancel()

	ticker := time.NewTicker(c.poll)
	defer ticker.Stop()

	state := ""
	for {
		st, err := c.status(ctx)
		if err == nil {
			state = st["wpa_state"]
			if state == stateCompleted {
				return nil
			}
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return fmt.Errorf("connect timeout (wpa_state=%s)", state)
		}
	}
}

// Connected reports whether the station is associated.
func (c *WPAController) Connected() bool {
	st, err := c.status(context.Background())
	return err == nil && st["wpa_state"] == stateCompleted
}

// WaitForDisconnect polls until the association is lost.
func (c *WPAController) WaitForDisconnect(ctx context.Context) error {
	ticker := time.NewTicker(c.poll)
	defer ticker.Stop()
	for {
		st, err := c.status(ctx)
		if err == nil && st["wpa_state"] != stateCompleted {
			return nil
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *WPAController) status(ctx context.Context) (map[string]string, error) {
	out, err := c.run(ctx, "status")
	if err != nil {
		return nil, err
	}
	return parseStatus(out), nil
}

// parseStatus parses the key=value lines of `wpa_cli status`.
func parseStatus(out string) map[string]string {
	st := make(map[string]string)
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		k, v, ok := strings.Cut(sc.Text(), "=")
		if ok {
			st[strings.TrimSpace(k)] = strings.TrimSpace(v)
		}
	}
	return st
}
