package config

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"

	"achievekit/adapters/digest"
)

var (
	storageAdapters = []string{"memory", "file", "redis", "sql"}
	logLevels       = []string{"debug", "info", "warn", "error"}
	logFormats      = []string{"json", "text"}
	logOutputs      = []string{"stdout", "stderr"}
)

func oneOf(field, value string, allowed []string) []string {
	if slices.Contains(allowed, value) {
		return nil
	}
	return []string{fmt.Sprintf("%s must be one of: %s", field, strings.Join(allowed, ", "))}
}

func joinErrs(errs []string) error {
	if len(errs) == 0 {
		return nil
	}
	return errors.New(strings.Join(errs, "; "))
}

// Validate validates server configuration
func (s *ServerConfig) Validate() error {
	var errs []string
	if s.Address == "" {
		errs = append(errs, "address cannot be empty")
	}
	timeouts := []struct {
		name string
		d    int64
	}{
		{"read_timeout", int64(s.ReadTimeout)},
		{"write_timeout", int64(s.WriteTimeout)},
		{"idle_timeout", int64(s.IdleTimeout)},
		{"read_header_timeout", int64(s.ReadHeaderTimeout)},
		{"shutdown_timeout", int64(s.ShutdownTimeout)},
	}
	for _, t := range timeouts {
		if t.d <= 0 {
			errs = append(errs, t.name+" must be positive")
		}
	}
	if s.StatsInterval < 0 {
		errs = append(errs, "stats_interval cannot be negative")
	}
	return joinErrs(errs)
}

// Validate checks the adapter name and the settings that adapter needs.
func (s *StorageConfig) Validate() error {
	errs := oneOf("adapter", s.Adapter, storageAdapters)
	if strings.ContainsAny(s.Namespace, " \t\n") {
		errs = append(errs, "namespace cannot contain whitespace")
	}

	switch s.Adapter {
	case "file":
		if err := s.File.Validate(); err != nil {
			errs = append(errs, fmt.Sprintf("file config: %v", err))
		}
	case "redis":
		if s.Redis.Addr == "" {
			errs = append(errs, "redis config: addr cannot be empty")
		}
	case "sql":
		if err := s.SQL.Validate(); err != nil {
			errs = append(errs, fmt.Sprintf("sql config: %v", err))
		}
	}
	return joinErrs(errs)
}

func (f *FileConfig) Validate() error {
	if f.Path == "" {
		return errors.New("path cannot be empty")
	}
	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	var errs []string
	errs = append(errs, oneOf("level", l.Level, logLevels)...)
	errs = append(errs, oneOf("format", l.Format, logFormats)...)
	errs = append(errs, oneOf("output", l.Output, logOutputs)...)
	return joinErrs(errs)
}

// Validate checks the digest name.
func (c *IntegrityConfig) Validate() error {
	_, err := digest.ByName(c.Algorithm)
	return err
}

// Validate requires absolute http(s) endpoints and a usable timeout.
func (w *WebhookConfig) Validate() error {
	var errs []string
	for i, ep := range w.Endpoints {
		u, err := url.Parse(strings.TrimSpace(ep))
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Sprintf("endpoints[%d] must be an absolute http(s) URL", i))
		}
	}
	if len(w.Endpoints) > 0 && w.Timeout <= 0 {
		errs = append(errs, "timeout must be positive")
	}
	return joinErrs(errs)
}
