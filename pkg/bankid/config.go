package bankid

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/openkcm/common-sdk/pkg/commoncfg"
)

type Environment int

const (
	EnvironmentTest Environment = iota
	EnvironmentProduction
)

const (
	testHost       = "appapi2.test.bankid.com"
	productionHost = "appapi2.bankid.com"

	testCAFile       = "certs/test.ca"
	productionCAFile = "certs/production.ca"
)

// ParseEnvironment accepts "test" and "production", case insensitive.
func ParseEnvironment(s string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "test", "":
		return EnvironmentTest, nil
	case "production", "prod":
		return EnvironmentProduction, nil
	default:
		return EnvironmentTest, fmt.Errorf("unknown bankid environment %q", s)
	}
}

func (e Environment) String() string {
	if e == EnvironmentProduction {
		return "production"
	}
	return "test"
}

// Host is the fixed API hostname of the environment.
func (e Environment) Host() string {
	if e == EnvironmentProduction {
		return productionHost
	}
	return testHost
}

// DefaultCAFile is the CA bundle path used when SessionConfig.CAFile is empty.
func (e Environment) DefaultCAFile() string {
	if e == EnvironmentProduction {
		return productionCAFile
	}
	return testCAFile
}

// SessionConfig selects the environment and the files used for mutual TLS.
// The client certificate and key are PEM files, typically converted from the
// issued PKCS#12 bundle with openssl.
type SessionConfig struct {
	Environment Environment
	CertFile    string
	KeyFile     string
	CAFile      string
}

// CAFilePath returns the configured CA file or the environment default.
func (c SessionConfig) CAFilePath() string {
	if c.CAFile != "" {
		return c.CAFile
	}
	return c.Environment.DefaultCAFile()
}

// MTLS references the certificate, key and CA files of the session.
func (c SessionConfig) MTLS() *commoncfg.MTLS {
	serverCA := FileRef(c.CAFilePath())
	return &commoncfg.MTLS{
		Cert:     FileRef(c.CertFile),
		CertKey:  FileRef(c.KeyFile),
		ServerCA: &serverCA,
	}
}

// FileRef is a commoncfg source reference to a PEM file.
func FileRef(path string) commoncfg.SourceRef {
	return commoncfg.SourceRef{Source: "file", File: commoncfg.CredentialFile{Path: path}}
}

// Validate checks that the certificate, key and CA files exist and are readable.
func (c SessionConfig) Validate() error {
	var errs []error
	for _, f := range []struct{ name, path string }{
		{"certificate", c.CertFile},
		{"key", c.KeyFile},
		{"CA", c.CAFilePath()},
	} {
		if err := checkReadable(f.path); err != nil {
			errs = append(errs, fmt.Errorf("%s file: %w", f.name, err))
		}
	}
	return errors.Join(errs...)
}

func checkReadable(path string) error {
	if path == "" {
		return errors.New("path is empty")
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	return nil
}
