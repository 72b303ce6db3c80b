package transport

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// TLSConfig describes the client side of a wss:// connection.
type TLSConfig struct {
	CertFile           string `yaml:"cert_file"`
	KeyFile            string `yaml:"key_file"`
	CAFile             string `yaml:"ca_file"`
	ServerName         string `yaml:"server_name"`
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
}

// BuildTLSConfig turns cfg into a crypto/tls configuration.
// InsecureSkipVerify is refused when ENVIRONMENT is production.
func BuildTLSConfig(cfg TLSConfig, logger logrus.FieldLogger) (*tls.Config, error) {
	if cfg.InsecureSkipVerify {
		env := strings.ToLower(os.Getenv("ENVIRONMENT"))
		if env == "production" || env == "prod" {
			return nil, fmt.Errorf("insecure_skip_verify cannot be enabled in production (ENVIRONMENT=%s)", env)
		}
		logger.Warn("TLS certificate verification is disabled")
	}

	config := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec // opt-in, refused in production
		ServerName:         cfg.ServerName,
	}

	if cfg.CertFile != "" && cfg.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("load client certificate: %w", err)
		}
		config.Certificates = []tls.Certificate{cert}
	}

	if cfg.CAFile != "" {
		caCert, err := os.ReadFile(cfg.CAFile)
		if err != nil {
			return nil, fmt.Errorf("read CA file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caCert) {
			return nil, errors.New("append CA certificate: no valid PEM block")
		}
		config.RootCAs = pool
	}

	return config, nil
}

// WithTLS sets the TLS configuration used for wss:// endpoints.
func WithTLS(c *tls.Config) Option {
	return func(t *Transport) { t.dialer.TLSClientConfig = c }
}
