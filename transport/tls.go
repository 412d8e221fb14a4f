package transport

import (
	"context"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/pkcs12"

	"github.com/opd-ai/cotwire/config"
)

// Enroller obtains a client certificate from a TAK server's enrollment
// endpoint. The enrollment workflow itself (CSR generation, the HTTP
// exchange) lives outside this package; the factory only needs the
// resulting PKCS#12 bundle, protected by passphrase, on disk at the
// returned path.
type Enroller interface {
	Enroll(ctx context.Context, domain, username, password, passphrase string) (p12Path string, err error)
}

// TLSConfig is the validated TLS projection of an endpoint Config.
type TLSConfig struct {
	Cert             string
	Key              string
	CAFile           string
	Ciphers          string
	Password         string
	ExpectedHostname string

	DontCheckHostname bool
	DontVerify        bool

	EnrollmentUsername   string
	EnrollmentPassword   string
	EnrollmentURL        string
	EnrollmentPassphrase string
}

// TLSConfigFromConfig projects the TLS parameter set out of cfg.
func TLSConfigFromConfig(cfg *config.Config) *TLSConfig {
	return &TLSConfig{
		Cert:             cfg.Get(config.KeyTLSClientCert),
		Key:              cfg.Get(config.KeyTLSClientKey),
		CAFile:           cfg.Get(config.KeyTLSClientCAFile),
		Ciphers:          cfg.Get(config.KeyTLSClientCiphers),
		Password:         cfg.Get(config.KeyTLSClientPassword),
		ExpectedHostname: cfg.Get(config.KeyTLSServerExpectedHostname),

		DontCheckHostname: cfg.GetBool(config.KeyTLSDontCheckHostname),
		DontVerify:        cfg.GetBool(config.KeyTLSDontVerify),

		EnrollmentUsername:   cfg.Get(config.KeyTLSEnrollmentUsername),
		EnrollmentPassword:   cfg.Get(config.KeyTLSEnrollmentPassword),
		EnrollmentURL:        cfg.Get(config.KeyTLSEnrollmentURL),
		EnrollmentPassphrase: cfg.Get(config.KeyTLSEnrollmentPassphrase),
	}
}

// wantsEnrollment reports whether enrollment credentials are configured in
// place of a static certificate.
func (t *TLSConfig) wantsEnrollment() bool {
	return t.EnrollmentUsername != "" && t.EnrollmentPassword != ""
}

// Validate checks the required parameter set: a client certificate, either
// on disk already or about to be produced by enrollment.
func (t *TLSConfig) Validate() error {
	if t.Cert == "" && !t.wantsEnrollment() {
		return fmt.Errorf("transport: missing value: %s (or enrollment credentials)", config.KeyTLSClientCert)
	}
	return nil
}

func (f *Factory) newTLSEndpoint(ctx context.Context, cfg *config.Config, u *url.URL) (*Endpoint, error) {
	host, port := HostPort(u)
	log := f.logger()

	tc := TLSConfigFromConfig(cfg)
	if err := tc.Validate(); err != nil {
		return nil, err
	}

	if tc.wantsEnrollment() {
		if err := f.enroll(ctx, tc, host); err != nil {
			return nil, err
		}
	}

	tlsCfg, err := clientTLSConfig(tc, log)
	if err != nil {
		return nil, err
	}
	if tlsCfg.ServerName == "" {
		tlsCfg.ServerName = host
	}

	dialer := &tls.Dialer{Config: tlsCfg}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		var hostErr x509.HostnameError
		var certErr x509.CertificateInvalidError
		var caErr x509.UnknownAuthorityError
		if errors.As(err, &hostErr) || errors.As(err, &certErr) || errors.As(err, &caErr) {
			return nil, fmt.Errorf(
				"transport: could not verify the TAK server's TLS certificate; bypass with %s=1 or %s=1: %w",
				config.KeyTLSDontCheckHostname, config.KeyTLSDontVerify, err)
		}
		return nil, err
	}

	return &Endpoint{
		Reader: NewStreamReader(conn),
		Writer: NewStreamSink(conn),
	}, nil
}

// enroll obtains a client certificate through the enrollment collaborator
// and points tc at the resulting PKCS#12 bundle.
func (f *Factory) enroll(ctx context.Context, tc *TLSConfig, host string) error {
	if f.Enroller == nil {
		return errors.New("transport: certificate enrollment configured but no enroller is wired")
	}

	passphrase := tc.EnrollmentPassphrase
	if passphrase == "" {
		generated, err := randomPassphrase()
		if err != nil {
			return err
		}
		passphrase = generated
		f.logger().Warn("Using a generated passphrase for the enrollment certificate")
	}

	domain := tc.EnrollmentURL
	if domain == "" {
		domain = host
	}

	p12Path, err := f.Enroller.Enroll(ctx, domain, tc.EnrollmentUsername, tc.EnrollmentPassword, passphrase)
	if err != nil {
		return fmt.Errorf("transport: certificate enrollment failed: %w", err)
	}

	tc.Cert = p12Path
	tc.Password = passphrase
	return nil
}

func randomPassphrase() (string, error) {
	raw := make([]byte, 16)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// clientTLSConfig builds the hardened tls.Config: TLS 1.0/1.1 disabled,
// full chain verification and hostname matching by default, with the two
// explicit overrides each logged as a warning.
func clientTLSConfig(tc *TLSConfig, log *logrus.Logger) (*tls.Config, error) {
	tlsCfg := &tls.Config{
		MinVersion: tls.VersionTLS12,
	}

	if tc.Ciphers != "" {
		ids, err := cipherSuiteIDs(tc.Ciphers)
		if err != nil {
			return nil, err
		}
		tlsCfg.CipherSuites = ids
	}

	cert, err := loadClientCertificate(tc)
	if err != nil {
		return nil, err
	}
	tlsCfg.Certificates = []tls.Certificate{cert}

	if tc.CAFile != "" {
		pool := x509.NewCertPool()
		data, err := os.ReadFile(tc.CAFile)
		if err != nil {
			return nil, fmt.Errorf("transport: resource not found: %s=%s: %w", config.KeyTLSClientCAFile, tc.CAFile, err)
		}
		if !pool.AppendCertsFromPEM(data) {
			return nil, fmt.Errorf("transport: no certificates found in %s=%s", config.KeyTLSClientCAFile, tc.CAFile)
		}
		tlsCfg.RootCAs = pool
	}

	if tc.ExpectedHostname != "" {
		tlsCfg.ServerName = tc.ExpectedHostname
	}

	switch {
	case tc.DontVerify:
		log.Warn("Disabled TLS server certificate verification")
		tlsCfg.InsecureSkipVerify = true
	case tc.DontCheckHostname:
		log.Warn("Disabled TLS server common name verification")
		// Skip the built-in verification but keep verifying the chain
		// against our roots; only the hostname check is dropped.
		tlsCfg.InsecureSkipVerify = true
		roots := tlsCfg.RootCAs
		tlsCfg.VerifyPeerCertificate = chainOnlyVerifier(roots)
	}

	return tlsCfg, nil
}

// chainOnlyVerifier validates the peer chain against roots without a
// hostname check. A nil roots falls back to the system pool.
func chainOnlyVerifier(roots *x509.CertPool) func([][]byte, [][]*x509.Certificate) error {
	return func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
		if len(rawCerts) == 0 {
			return errors.New("transport: server presented no certificate")
		}
		certs := make([]*x509.Certificate, 0, len(rawCerts))
		for _, raw := range rawCerts {
			cert, err := x509.ParseCertificate(raw)
			if err != nil {
				return err
			}
			certs = append(certs, cert)
		}
		opts := x509.VerifyOptions{
			Roots:         roots,
			Intermediates: x509.NewCertPool(),
		}
		for _, cert := range certs[1:] {
			opts.Intermediates.AddCert(cert)
		}
		_, err := certs[0].Verify(opts)
		return err
	}
}

// loadClientCertificate loads the client identity from PEM files or a
// PKCS#12 bundle (converted to PEM in memory first).
func loadClientCertificate(tc *TLSConfig) (tls.Certificate, error) {
	if _, err := os.Stat(tc.Cert); err != nil {
		return tls.Certificate{}, fmt.Errorf("transport: resource not found: %s=%s: %w", config.KeyTLSClientCert, tc.Cert, err)
	}

	if strings.HasSuffix(tc.Cert, ".p12") {
		certPEM, keyPEM, err := pkcs12ToPEM(tc.Cert, tc.Password)
		if err != nil {
			return tls.Certificate{}, err
		}
		return tls.X509KeyPair(certPEM, keyPEM)
	}

	keyPath := tc.Key
	if keyPath == "" {
		// The key may live alongside the certificate in one PEM file.
		keyPath = tc.Cert
	} else if _, err := os.Stat(keyPath); err != nil {
		return tls.Certificate{}, fmt.Errorf("transport: resource not found: %s=%s: %w", config.KeyTLSClientKey, keyPath, err)
	}

	cert, err := tls.LoadX509KeyPair(tc.Cert, keyPath)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf(
			"transport: error loading client identity from %s=%s %s=%s (password set: %t): %w",
			config.KeyTLSClientCert, tc.Cert, config.KeyTLSClientKey, keyPath, tc.Password != "", err)
	}
	return cert, nil
}

// pkcs12ToPEM converts a PKCS#12 bundle into certificate and key PEM blocks
// in memory; nothing is written back to disk.
func pkcs12ToPEM(path, password string) (certPEM, keyPEM []byte, err error) {
	der, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	blocks, err := pkcs12.ToPEM(der, password)
	if err != nil {
		return nil, nil, fmt.Errorf("transport: decoding PKCS#12 bundle %s (password set: %t): %w", path, password != "", err)
	}
	for _, block := range blocks {
		encoded := pem.EncodeToMemory(block)
		if block.Type == "CERTIFICATE" {
			certPEM = append(certPEM, encoded...)
		} else {
			keyPEM = append(keyPEM, encoded...)
		}
	}
	if len(certPEM) == 0 || len(keyPEM) == 0 {
		return nil, nil, fmt.Errorf("transport: PKCS#12 bundle %s is missing a certificate or key", path)
	}
	return certPEM, keyPEM, nil
}

// cipherSuiteIDs resolves a colon- or comma-separated list of Go cipher
// suite names to their IDs. Unknown names are configuration errors.
func cipherSuiteIDs(list string) ([]uint16, error) {
	byName := make(map[string]uint16)
	for _, cs := range tls.CipherSuites() {
		byName[cs.Name] = cs.ID
	}
	for _, cs := range tls.InsecureCipherSuites() {
		byName[cs.Name] = cs.ID
	}

	var ids []uint16
	for _, name := range strings.FieldsFunc(list, func(r rune) bool { return r == ':' || r == ',' }) {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		id, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("transport: unknown cipher suite %q in %s", name, config.KeyTLSClientCiphers)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("transport: no usable cipher suites in %s=%q", config.KeyTLSClientCiphers, list)
	}
	return ids, nil
}
