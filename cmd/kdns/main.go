// Command kdns is the DNS server binary: it loads configuration, seeds the
// host table from an optional hosts file, and runs the resolver event loop
// until a termination signal arrives.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nsserver/kdns/internal/adminapi"
	"github.com/nsserver/kdns/internal/auditlog"
	"github.com/nsserver/kdns/internal/config"
	"github.com/nsserver/kdns/internal/hostsfile"
	"github.com/nsserver/kdns/internal/hosttable"
	"github.com/nsserver/kdns/internal/logging"
	"github.com/nsserver/kdns/internal/resolver"
	"github.com/nsserver/kdns/internal/stats"
)

const banner = `
  _        _
 | | _____| | _____
 | |/ / _' | |/ / _ \
 |   < (_| |   <  __/
 |_|\_\__,_|_|\_\___|
`

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to YAML config file (or KDNS_CONFIG)")
	flag.Parse()

	cfg, err := config.Load(config.ResolveConfigPath(configPath))
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := logging.Configure(logging.Config{
		Level:            cfg.Logging.Level,
		Structured:       cfg.Logging.Structured,
		StructuredFormat: cfg.Logging.StructuredFormat,
		IncludePID:       cfg.Logging.IncludePID,
		ExtraFields:      cfg.Logging.ExtraFields,
	})

	fmt.Fprintln(os.Stderr, banner)
	logger.Info("kdns starting",
		"listen_addr", cfg.Server.ListenAddr,
		"parent_dns", cfg.Server.ParentDNS,
		"ttl", cfg.Server.TTL,
		"api_enabled", cfg.API.Enabled,
		"audit_enabled", cfg.Audit.Enabled,
	)

	hosts := hosttable.New()
	if err := loadHostsFile(hosts, cfg.Hosts.Path, logger); err != nil {
		return fmt.Errorf("loading hosts file: %w", err)
	}

	parentDNS := net.ParseIP(cfg.Server.ParentDNS)
	if parentDNS == nil {
		return fmt.Errorf("invalid parent_dns address %q", cfg.Server.ParentDNS)
	}

	loop := resolver.New(resolver.Config{
		ListenAddr:    cfg.Server.ListenAddr,
		ParentDNS:     parentDNS,
		TTL:           cfg.Server.TTL,
		DyndnsSecret:  cfg.Dyndns.Secret,
		SweepInterval: time.Duration(cfg.Server.SweepIntervalMS) * time.Millisecond,
	}, hosts, logger, stats.New())

	if err := loop.Bind(); err != nil {
		return fmt.Errorf("binding resolver sockets: %w", err)
	}
	defer loop.Close()
	logger.Info("resolver bound", "addr", loop.Addr())

	var auditReader adminapi.AuditReader
	if cfg.Audit.Enabled {
		auditLog, err := auditlog.Open(cfg.Audit.DBPath)
		if err != nil {
			return fmt.Errorf("opening audit log: %w", err)
		}
		defer auditLog.Close()
		loop.SetAuditLog(auditLog)
		auditReader = auditLog
		logger.Info("audit log enabled", "path", cfg.Audit.DBPath)
	}

	var adminSrv *adminapi.Server
	if cfg.API.Enabled {
		addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
		adminSrv = adminapi.New(addr, loop, auditReader)
		go func() {
			if serveErr := adminSrv.ListenAndServe(); serveErr != nil && serveErr != http.ErrServerClosed {
				logger.Error("admin API server error", "err", serveErr)
			}
		}()
		logger.Info("admin API starting", "addr", adminSrv.Addr())
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	stop := make(chan struct{})
	go func() {
		<-ctx.Done()
		close(stop)
	}()

	runErr := loop.Run(stop)

	if adminSrv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = adminSrv.Shutdown(shutdownCtx)
		shutdownCancel()
		logger.Info("admin API stopped")
	}

	logger.Info("kdns stopped")
	if runErr != nil {
		return fmt.Errorf("resolver exited with error: %w", runErr)
	}
	return nil
}

// loadHostsFile reads path (if set) and registers every (host, ip) pair it
// contains into hosts. A missing path is not an error: the server simply
// starts with an empty table, relying entirely on dynamic updates.
func loadHostsFile(hosts *hosttable.Table, path string, logger *slog.Logger) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	lex := hostsfile.New(data)
	count := 0
	for {
		host, ip, ok, err := lex.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		addr := net.ParseIP(ip)
		if addr == nil {
			logger.Warn("skipping hosts file entry with unparseable address", "host", host, "ip", ip)
			continue
		}
		hosts.Register(host, addr)
		count++
	}
	logger.Info("loaded hosts file", "path", path, "entries", count)
	return nil
}
