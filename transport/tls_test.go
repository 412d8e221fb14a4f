package transport

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/cotwire/config"
)

// writeSelfSigned generates a self-signed client identity and returns the
// PEM cert and key paths.
func writeSelfSigned(t *testing.T) (certPath, keyPath string) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "cotwire-test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}
	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	require.NoError(t, err)

	keyDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	dir := t.TempDir()
	certPath = filepath.Join(dir, "client.pem")
	keyPath = filepath.Join(dir, "client.key")

	require.NoError(t, os.WriteFile(certPath, pem.EncodeToMemory(
		&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0o600))
	require.NoError(t, os.WriteFile(keyPath, pem.EncodeToMemory(
		&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}), 0o600))
	return certPath, keyPath
}

func TestTLSConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     map[string]string
		wantErr bool
	}{
		{
			name:    "missing certificate",
			cfg:     map[string]string{},
			wantErr: true,
		},
		{
			name:    "certificate present",
			cfg:     map[string]string{config.KeyTLSClientCert: "/etc/tak/client.pem"},
			wantErr: false,
		},
		{
			name: "enrollment substitutes for certificate",
			cfg: map[string]string{
				config.KeyTLSEnrollmentUsername: "operator",
				config.KeyTLSEnrollmentPassword: "hunter2",
			},
			wantErr: false,
		},
		{
			name: "enrollment username alone is not enough",
			cfg: map[string]string{
				config.KeyTLSEnrollmentUsername: "operator",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc := TLSConfigFromConfig(config.New("test", tt.cfg))
			err := tc.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestClientTLSConfigHardening(t *testing.T) {
	certPath, keyPath := writeSelfSigned(t)
	log := logrus.New()

	tc := &TLSConfig{Cert: certPath, Key: keyPath}
	tlsCfg, err := clientTLSConfig(tc, log)
	require.NoError(t, err)

	assert.EqualValues(t, tls.VersionTLS12, tlsCfg.MinVersion, "TLS 1.0/1.1 must stay disabled")
	assert.False(t, tlsCfg.InsecureSkipVerify, "verification is on by default")
	assert.Len(t, tlsCfg.Certificates, 1)
}

func TestClientTLSConfigDontVerify(t *testing.T) {
	certPath, keyPath := writeSelfSigned(t)

	tc := &TLSConfig{Cert: certPath, Key: keyPath, DontVerify: true}
	tlsCfg, err := clientTLSConfig(tc, logrus.New())
	require.NoError(t, err)

	assert.True(t, tlsCfg.InsecureSkipVerify)
	assert.Nil(t, tlsCfg.VerifyPeerCertificate)
}

func TestClientTLSConfigDontCheckHostname(t *testing.T) {
	certPath, keyPath := writeSelfSigned(t)

	tc := &TLSConfig{Cert: certPath, Key: keyPath, DontCheckHostname: true}
	tlsCfg, err := clientTLSConfig(tc, logrus.New())
	require.NoError(t, err)

	assert.True(t, tlsCfg.InsecureSkipVerify)
	assert.NotNil(t, tlsCfg.VerifyPeerCertificate, "chain verification must survive the hostname override")
}

func TestClientTLSConfigExpectedHostname(t *testing.T) {
	certPath, keyPath := writeSelfSigned(t)

	tc := &TLSConfig{Cert: certPath, Key: keyPath, ExpectedHostname: "takserver.internal"}
	tlsCfg, err := clientTLSConfig(tc, logrus.New())
	require.NoError(t, err)

	assert.Equal(t, "takserver.internal", tlsCfg.ServerName)
}

func TestClientTLSConfigMissingCert(t *testing.T) {
	tc := &TLSConfig{Cert: "/does/not/exist.pem"}
	_, err := clientTLSConfig(tc, logrus.New())
	assert.ErrorContains(t, err, config.KeyTLSClientCert)
}

func TestCipherSuiteIDs(t *testing.T) {
	ids, err := cipherSuiteIDs("TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384:TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256")
	require.NoError(t, err)
	assert.Len(t, ids, 2)

	_, err = cipherSuiteIDs("NOT_A_CIPHER")
	assert.Error(t, err)

	_, err = cipherSuiteIDs(" : ")
	assert.Error(t, err)
}

func TestPKCS12GarbageFails(t *testing.T) {
	dir := t.TempDir()
	p12 := filepath.Join(dir, "client.p12")
	require.NoError(t, os.WriteFile(p12, []byte("not a pkcs12 bundle"), 0o600))

	tc := &TLSConfig{Cert: p12, Password: "atakatak"}
	_, err := clientTLSConfig(tc, logrus.New())
	assert.ErrorContains(t, err, "PKCS#12")
}

type fakeEnroller struct {
	path   string
	called bool
	domain string
}

func (f *fakeEnroller) Enroll(_ context.Context, domain, _, _, _ string) (string, error) {
	f.called = true
	f.domain = domain
	return f.path, nil
}

func TestEnrollFillsCertificate(t *testing.T) {
	enroller := &fakeEnroller{path: "/tmp/enrolled.p12"}
	f := &Factory{Enroller: enroller}

	tc := &TLSConfig{
		EnrollmentUsername: "operator",
		EnrollmentPassword: "hunter2",
	}
	require.NoError(t, f.enroll(context.Background(), tc, "takserver.example.com"))

	assert.True(t, enroller.called)
	assert.Equal(t, "takserver.example.com", enroller.domain)
	assert.Equal(t, "/tmp/enrolled.p12", tc.Cert)
	assert.NotEmpty(t, tc.Password, "a passphrase is generated when none is configured")
}

func TestEnrollWithoutEnroller(t *testing.T) {
	f := &Factory{}
	tc := &TLSConfig{
		EnrollmentUsername: "operator",
		EnrollmentPassword: "hunter2",
	}
	assert.ErrorContains(t, f.enroll(context.Background(), tc, "tak"), "no enroller")
}
