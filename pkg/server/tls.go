package server

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"querydict-hq/querydict/pkg/config"
)

// expiryWarning is how close to expiry a certificate is logged as a warning.
const expiryWarning = 30 * 24 * time.Hour

// certReloader serves the certificate pair from disk and reloads it when
// either file changes.
type certReloader struct {
	certFile string
	keyFile  string
	logger   *slog.Logger

	mu      sync.RWMutex
	cert    *tls.Certificate
	modTime time.Time
}

func newCertReloader(certFile, keyFile string, logger *slog.Logger) (*certReloader, error) {
	r := &certReloader{certFile: certFile, keyFile: keyFile, logger: logger}
	if err := r.reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// latestModTime returns the newer modification time of the pair.
func (r *certReloader) latestModTime() (time.Time, error) {
	var latest time.Time
	for _, path := range []string{r.certFile, r.keyFile} {
		info, err := os.Stat(path)
		if err != nil {
			return time.Time{}, err
		}
		if info.ModTime().After(latest) {
			latest = info.ModTime()
		}
	}
	return latest, nil
}

func (r *certReloader) reload() error {
	modTime, err := r.latestModTime()
	if err != nil {
		return err
	}

	cert, err := tls.LoadX509KeyPair(r.certFile, r.keyFile)
	if err != nil {
		return fmt.Errorf("failed to load certificate: %w", err)
	}
	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		return fmt.Errorf("failed to parse certificate: %w", err)
	}
	now := time.Now()
	if now.Before(leaf.NotBefore) {
		return fmt.Errorf("certificate is not yet valid (valid from %s)", leaf.NotBefore.Format(time.RFC3339))
	}
	if now.After(leaf.NotAfter) {
		return fmt.Errorf("certificate expired on %s", leaf.NotAfter.Format(time.RFC3339))
	}
	cert.Leaf = leaf

	r.mu.Lock()
	r.cert = &cert
	r.modTime = modTime
	r.mu.Unlock()

	attrs := []interface{}{
		"subject", leaf.Subject.CommonName,
		"expires_at", leaf.NotAfter.Format(time.RFC3339),
	}
	if leaf.NotAfter.Sub(now) < expiryWarning {
		r.logger.Warn("certificate expiring soon", attrs...)
	} else {
		r.logger.Info("certificate loaded", attrs...)
	}
	return nil
}

// changed reports whether either file is newer than the loaded pair.
func (r *certReloader) changed() bool {
	modTime, err := r.latestModTime()
	if err != nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return modTime.After(r.modTime)
}

// run polls the files every interval until ctx is done. A failed reload
// keeps serving the previous certificate.
func (r *certReloader) run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !r.changed() {
				continue
			}
			if err := r.reload(); err != nil {
				r.logger.Error("failed to reload certificate", "error", err, "cert_file", r.certFile)
			}
		}
	}
}

func (r *certReloader) getCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cert, nil
}

// newTLSConfig returns the listener TLS config and the reloader backing it.
func newTLSConfig(cfg *config.TLSConfig, logger *slog.Logger) (*tls.Config, *certReloader, error) {
	reloader, err := newCertReloader(cfg.CertFile, cfg.KeyFile, logger.With("component", "tls"))
	if err != nil {
		return nil, nil, err
	}

	minVersion := uint16(tls.VersionTLS13)
	switch cfg.MinVersion {
	case "1.2":
		minVersion = tls.VersionTLS12
	case "1.3", "":
	default:
		return nil, nil, fmt.Errorf("unsupported TLS version %q", cfg.MinVersion)
	}

	return &tls.Config{
		MinVersion:     minVersion,
		GetCertificate: reloader.getCertificate,
	}, reloader, nil
}
