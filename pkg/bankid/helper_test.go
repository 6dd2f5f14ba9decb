package bankid

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

// testPKI is a throwaway CA with a client certificate written to disk and
// two server certificates: one valid for 127.0.0.1 and one for another host.
type testPKI struct {
	CertFile string
	KeyFile  string
	CAFile   string

	caPool         *x509.CertPool
	matchingCert   tls.Certificate
	mismatchedCert tls.Certificate
}

func newTestPKI(t *testing.T) *testPKI {
	t.Helper()
	dir := t.TempDir()

	caKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	caTmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "Test BankID CA"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		IsCA:                  true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
	}
	caDER, err := x509.CreateCertificate(rand.Reader, caTmpl, caTmpl, &caKey.PublicKey, caKey)
	require.NoError(t, err)
	caCert, err := x509.ParseCertificate(caDER)
	require.NoError(t, err)

	issue := func(serial int64, tmpl *x509.Certificate) ([]byte, *ecdsa.PrivateKey) {
		key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		require.NoError(t, err)
		tmpl.SerialNumber = big.NewInt(serial)
		tmpl.NotBefore = time.Now().Add(-time.Hour)
		tmpl.NotAfter = time.Now().Add(time.Hour)
		tmpl.KeyUsage = x509.KeyUsageDigitalSignature
		der, err := x509.CreateCertificate(rand.Reader, tmpl, caCert, &key.PublicKey, caKey)
		require.NoError(t, err)
		return der, key
	}
	keyPair := func(der []byte, key *ecdsa.PrivateKey) tls.Certificate {
		return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key}
	}

	clientDER, clientKey := issue(2, &x509.Certificate{
		Subject:     pkix.Name{CommonName: "Test RP"},
		ExtKeyUsage: []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
	})
	matchingDER, matchingKey := issue(3, &x509.Certificate{
		Subject:     pkix.Name{CommonName: "127.0.0.1"},
		IPAddresses: []net.IP{net.ParseIP("127.0.0.1")},
		ExtKeyUsage: []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	})
	mismatchedDER, mismatchedKey := issue(4, &x509.Certificate{
		Subject:     pkix.Name{CommonName: "appapi2.test.bankid.com"},
		DNSNames:    []string{"appapi2.test.bankid.com"},
		ExtKeyUsage: []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	})

	clientKeyDER, err := x509.MarshalPKCS8PrivateKey(clientKey)
	require.NoError(t, err)

	p := &testPKI{
		CertFile:       filepath.Join(dir, "bankid_cert.pem"),
		KeyFile:        filepath.Join(dir, "bankid_key.pem"),
		CAFile:         filepath.Join(dir, "test.ca"),
		caPool:         x509.NewCertPool(),
		matchingCert:   keyPair(matchingDER, matchingKey),
		mismatchedCert: keyPair(mismatchedDER, mismatchedKey),
	}
	p.caPool.AddCert(caCert)

	writePEM(t, p.CertFile, "CERTIFICATE", clientDER)
	writePEM(t, p.KeyFile, "PRIVATE KEY", clientKeyDER)
	writePEM(t, p.CAFile, "CERTIFICATE", caDER)

	return p
}

func (p *testPKI) sessionConfig(env Environment) SessionConfig {
	return SessionConfig{
		Environment: env,
		CertFile:    p.CertFile,
		KeyFile:     p.KeyFile,
		CAFile:      p.CAFile,
	}
}

// startServer starts a TLS server requiring a client certificate from the test CA.
func (p *testPKI) startServer(t *testing.T, hostnameMatches bool, handler http.Handler) *httptest.Server {
	t.Helper()

	cert := p.mismatchedCert
	if hostnameMatches {
		cert = p.matchingCert
	}

	srv := httptest.NewUnstartedServer(handler)
	srv.TLS = &tls.Config{
		Certificates: []tls.Certificate{cert},
		ClientAuth:   tls.RequireAndVerifyClientCert,
		ClientCAs:    p.caPool,
		MinVersion:   tls.VersionTLS12,
	}
	srv.StartTLS()
	t.Cleanup(srv.Close)

	return srv
}

func writePEM(t *testing.T, path, blockType string, der []byte) {
	t.Helper()
	data := pem.EncodeToMemory(&pem.Block{Type: blockType, Bytes: der})
	require.NoError(t, os.WriteFile(path, data, 0o600))
}
