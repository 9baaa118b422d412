package daemon

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/pilebones/go-udev/netlink"

	"drq/internal/config"
	"drq/internal/logging"
)

// networkCooldown is the minimum gap between network-triggered sweeps.
// Interfaces usually emit several uevents while coming up.
const networkCooldown = 10 * time.Second

// netlinkMonitor listens for udev netlink events on the net subsystem and
// triggers a sweep when an interface appears or changes state.
type netlinkMonitor struct {
	cfg      *config.Config
	logger   *slog.Logger
	handler  func(ctx context.Context, iface string)
	now      func() time.Time
	cooldown time.Duration

	mu        sync.Mutex
	conn      *netlink.UEventConn
	quit      chan struct{}
	running   bool
	lastFired time.Time
}

// newNetlinkMonitor returns nil when network watching is disabled.
func newNetlinkMonitor(
	cfg *config.Config,
	logger *slog.Logger,
	handler func(ctx context.Context, iface string),
) *netlinkMonitor {
	if cfg == nil || !cfg.Sync.WatchNetwork {
		return nil
	}

	return &netlinkMonitor{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "netlink-monitor"),
		handler:  handler,
		now:      time.Now,
		cooldown: networkCooldown,
	}
}

// Start begins listening for udev netlink events. Connection failures are
// logged and leave the monitor stopped.
func (m *netlinkMonitor) Start(ctx context.Context) error {
	if m == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil
	}

	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		m.logger.Warn("failed to connect to netlink socket; sweeps will rely on the schedule",
			logging.Error(err),
			logging.String(logging.FieldEventType, "netlink_connect_failed"),
			logging.String(logging.FieldErrorHint, "ensure the daemon has permission to access netlink sockets"),
			logging.String(logging.FieldImpact, "venues sync on the next scheduled sweep after reconnecting"),
		)
		return nil
	}

	m.conn = conn
	m.quit = make(chan struct{})
	m.running = true

	quit := m.quit
	go m.monitorLoop(ctx, conn, quit)

	m.logger.Info("netlink monitor started",
		logging.String(logging.FieldEventType, "netlink_monitor_started"),
	)

	return nil
}

// Stop shuts down the netlink monitor.
func (m *netlinkMonitor) Stop() {
	if m == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	if m.quit != nil {
		close(m.quit)
		m.quit = nil
	}

	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}

	m.running = false

	m.logger.Info("netlink monitor stopped",
		logging.String(logging.FieldEventType, "netlink_monitor_stopped"),
	)
}

// Running reports whether the netlink monitor is active.
func (m *netlinkMonitor) Running() bool {
	if m == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *netlinkMonitor) monitorLoop(ctx context.Context, conn *netlink.UEventConn, quit <-chan struct{}) {
	events := make(chan netlink.UEvent)
	errs := make(chan error)

	monitorQuit := conn.Monitor(events, errs, m.buildMatcher())

	for {
		select {
		case <-ctx.Done():
			close(monitorQuit)
			return
		case <-quit:
			close(monitorQuit)
			return
		case uevent := <-events:
			m.handleEvent(ctx, uevent)
		case err := <-errs:
			m.logger.Warn("netlink monitor error",
				logging.Error(err),
				logging.String(logging.FieldEventType, "netlink_monitor_error"),
				logging.String(logging.FieldErrorHint, "check kernel netlink subsystem"),
				logging.String(logging.FieldImpact, "network-triggered sweeps may be missed"),
			)
		}
	}
}

// buildMatcher matches SUBSYSTEM=net with ACTION add|change|online|move.
func (m *netlinkMonitor) buildMatcher() netlink.Matcher {
	action := "^(add|change|online|move)$"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM": "^net$",
		},
	})
	return rules
}

func (m *netlinkMonitor) handleEvent(ctx context.Context, uevent netlink.UEvent) {
	iface := interfaceName(uevent)
	if iface == "" {
		m.logger.Debug("ignoring event without interface name",
			logging.String("action", string(uevent.Action)),
			logging.String("kobj", uevent.KObj),
		)
		return
	}
	if iface == "lo" {
		return
	}

	m.mu.Lock()
	now := m.now()
	if !m.lastFired.IsZero() && now.Sub(m.lastFired) < m.cooldown {
		m.mu.Unlock()
		m.logger.Debug("network event within cooldown",
			logging.String("interface", iface),
			logging.String("action", string(uevent.Action)),
		)
		return
	}
	m.lastFired = now
	m.mu.Unlock()

	m.logger.Info("network change detected via netlink",
		logging.String(logging.FieldEventType, "netlink_network_change"),
		logging.String("interface", iface),
		logging.String("action", string(uevent.Action)),
	)

	if m.handler != nil {
		m.handler(ctx, iface)
	}
}

// interfaceName gets the interface from a uevent, falling back to the last
// DEVPATH component.
func interfaceName(uevent netlink.UEvent) string {
	if name := strings.TrimSpace(uevent.Env["INTERFACE"]); name != "" {
		return name
	}
	devpath := strings.TrimRight(uevent.Env["DEVPATH"], "/")
	if devpath == "" {
		return ""
	}
	parts := strings.Split(devpath, "/")
	return parts[len(parts)-1]
}
