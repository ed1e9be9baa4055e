package config

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemporalTLS_PlaintextByDefault(t *testing.T) {
	cfg := &Config{}
	tlsCfg, err := cfg.TemporalTLS()
	require.NoError(t, err)
	assert.Nil(t, tlsCfg)
}

func TestTemporalTLS_ClientCertOnly(t *testing.T) {
	pki := newTestPKI(t)

	cfg := &Config{
		TemporalTLSCert: pki.certPath,
		TemporalTLSKey:  pki.keyPath,
	}
	tlsCfg, err := cfg.TemporalTLS()
	require.NoError(t, err)
	require.NotNil(t, tlsCfg)
	assert.Len(t, tlsCfg.Certificates, 1)
	assert.Nil(t, tlsCfg.RootCAs)
	assert.Empty(t, tlsCfg.ServerName)
}

func TestTemporalTLS_MissingCertFile(t *testing.T) {
	cfg := &Config{
		TemporalTLSCert: "/nonexistent/cert.pem",
		TemporalTLSKey:  "/nonexistent/key.pem",
	}
	_, err := cfg.TemporalTLS()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load temporal client cert")
}

func TestTemporalTLS_WithCACert(t *testing.T) {
	pki := newTestPKI(t)

	cfg := &Config{
		TemporalTLSCert:   pki.certPath,
		TemporalTLSKey:    pki.keyPath,
		TemporalTLSCACert: pki.caPath,
	}
	tlsCfg, err := cfg.TemporalTLS()
	require.NoError(t, err)
	require.NotNil(t, tlsCfg)
	assert.NotNil(t, tlsCfg.RootCAs)
}

func TestTemporalTLS_ServerName(t *testing.T) {
	pki := newTestPKI(t)

	cfg := &Config{
		TemporalTLSCert:       pki.certPath,
		TemporalTLSKey:        pki.keyPath,
		TemporalTLSServerName: "temporal.voyara.internal",
	}
	tlsCfg, err := cfg.TemporalTLS()
	require.NoError(t, err)
	require.NotNil(t, tlsCfg)
	assert.Equal(t, "temporal.voyara.internal", tlsCfg.ServerName)
}

func TestTemporalTLS_GarbageCACert(t *testing.T) {
	pki := newTestPKI(t)

	badCA := filepath.Join(t.TempDir(), "bad-ca.pem")
	require.NoError(t, os.WriteFile(badCA, []byte("not a cert"), 0o600))

	cfg := &Config{
		TemporalTLSCert:   pki.certPath,
		TemporalTLSKey:    pki.keyPath,
		TemporalTLSCACert: badCA,
	}
	_, err := cfg.TemporalTLS()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse temporal CA cert")
}

// testPKI is a throwaway CA plus a client cert signed by it, written as
// PEM files under a test temp dir.
type testPKI struct {
	certPath string
	keyPath  string
	caPath   string
}

func newTestPKI(t *testing.T) testPKI {
	t.Helper()
	dir := t.TempDir()

	caKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	ca := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "Voyara Test CA"},
		NotBefore:             time.Now(),
		NotAfter:              time.Now().Add(time.Hour),
		IsCA:                  true,
		KeyUsage:              x509.KeyUsageCertSign,
		BasicConstraintsValid: true,
	}
	caDER, err := x509.CreateCertificate(rand.Reader, ca, ca, &caKey.PublicKey, caKey)
	require.NoError(t, err)

	clientKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	client := &x509.Certificate{
		SerialNumber: big.NewInt(2),
		Subject:      pkix.Name{CommonName: "voyara-worker"},
		NotBefore:    time.Now(),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
	}
	clientDER, err := x509.CreateCertificate(rand.Reader, client, ca, &clientKey.PublicKey, caKey)
	require.NoError(t, err)
	keyDER, err := x509.MarshalECPrivateKey(clientKey)
	require.NoError(t, err)

	pki := testPKI{
		certPath: filepath.Join(dir, "client.pem"),
		keyPath:  filepath.Join(dir, "client.key"),
		caPath:   filepath.Join(dir, "ca.pem"),
	}
	writePEMFile(t, pki.caPath, "CERTIFICATE", caDER)
	writePEMFile(t, pki.certPath, "CERTIFICATE", clientDER)
	writePEMFile(t, pki.keyPath, "EC PRIVATE KEY", keyDER)
	return pki
}

func writePEMFile(t *testing.T, path, blockType string, der []byte) {
	t.Helper()
	data := pem.EncodeToMemory(&pem.Block{Type: blockType, Bytes: der})
	require.NoError(t, os.WriteFile(path, data, 0o600))
}
