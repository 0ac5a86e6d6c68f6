package tlsutil

import (
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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestCA(t *testing.T) string {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	template := x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "test-ca"},
		NotBefore:             time.Now(),
		NotAfter:              time.Now().Add(time.Hour),
		IsCA:                  true,
		KeyUsage:              x509.KeyUsageCertSign,
		BasicConstraintsValid: true,
	}
	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "ca.pem")
	pemData := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	require.NoError(t, os.WriteFile(path, pemData, 0o600))
	return path
}

func TestClientConfig_Enabled(t *testing.T) {
	assert.False(t, ClientConfig{}.Enabled())
	assert.True(t, ClientConfig{InsecureSkipVerify: true}.Enabled())
	assert.True(t, ClientConfig{CAFiles: []string{"ca.pem"}}.Enabled())
	assert.True(t, ClientConfig{MinVersion: "1.3"}.Enabled())
}

func TestLoadClientConfig_Defaults(t *testing.T) {
	cfg, err := LoadClientConfig(ClientConfig{})
	require.NoError(t, err)
	assert.Equal(t, uint16(tls.VersionTLS12), cfg.MinVersion)
	assert.False(t, cfg.InsecureSkipVerify)
	assert.NotNil(t, cfg.RootCAs)
}

func TestLoadClientConfig_AdditionalCA(t *testing.T) {
	caPath := writeTestCA(t)

	cfg, err := LoadClientConfig(ClientConfig{
		CAFiles:    []string{caPath},
		MinVersion: "1.3",
	})
	require.NoError(t, err)
	assert.Equal(t, uint16(tls.VersionTLS13), cfg.MinVersion)
}

func TestLoadClientConfig_MissingCAFile(t *testing.T) {
	_, err := LoadClientConfig(ClientConfig{
		CAFiles: []string{filepath.Join(t.TempDir(), "absent.pem")},
	})
	assert.Error(t, err)
}

func TestLoadClientConfig_BadPEM(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.pem")
	require.NoError(t, os.WriteFile(path, []byte("not a certificate"), 0o600))

	_, err := LoadClientConfig(ClientConfig{CAFiles: []string{path}})
	assert.Error(t, err)
}

func TestLoadClientConfig_Insecure(t *testing.T) {
	cfg, err := LoadClientConfig(ClientConfig{InsecureSkipVerify: true})
	require.NoError(t, err)
	assert.True(t, cfg.InsecureSkipVerify)
}
