package bankid

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"

	"github.com/openkcm/common-sdk/pkg/commoncfg"
)

var ErrNoCACertificates = errors.New("no certificates found in CA file")

// LoadTLSConfig loads the client certificate and the CA pool referenced by
// mtls and applies the verification profile of env. The server chain is
// always verified against the CA pool. The host name is only verified in
// production: test environment certificates do not always match the host
// they are served from.
func LoadTLSConfig(env Environment, mtls *commoncfg.MTLS) (*tls.Config, error) {
	tlsConfig, err := commoncfg.LoadMTLSConfig(mtls)
	if err != nil {
		return nil, fmt.Errorf("loading mTLS config: %w", err)
	}

	// An unparsable CA bundle yields an empty pool instead of an error.
	if tlsConfig.RootCAs == nil || tlsConfig.RootCAs.Equal(x509.NewCertPool()) {
		return nil, ErrNoCACertificates
	}

	if tlsConfig.MinVersion < tls.VersionTLS12 {
		tlsConfig.MinVersion = tls.VersionTLS12
	}

	if env != EnvironmentProduction {
		tlsConfig.InsecureSkipVerify = true //nolint:gosec // chain is verified in VerifyConnection
		tlsConfig.VerifyConnection = verifyChainOnly(tlsConfig.RootCAs)
	}

	return tlsConfig, nil
}

func verifyChainOnly(roots *x509.CertPool) func(tls.ConnectionState) error {
	return func(cs tls.ConnectionState) error {
		if len(cs.PeerCertificates) == 0 {
			return errors.New("server presented no certificate")
		}

		opts := x509.VerifyOptions{
			Roots:         roots,
			Intermediates: x509.NewCertPool(),
		}
		for _, ic := range cs.PeerCertificates[1:] {
			opts.Intermediates.AddCert(ic)
		}

		_, err := cs.PeerCertificates[0].Verify(opts)
		return err
	}
}
