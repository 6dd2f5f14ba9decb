package config

import (
	"crypto/tls"
	"fmt"
	"reflect"

	"github.com/go-viper/mapstructure/v2"
	"github.com/openkcm/common-sdk/pkg/commoncfg"

	"github.com/openkcm/bankid-rp/pkg/bankid"
)

const (
	defaultCertFile = "certs/bankid_cert.pem"
	defaultKeyFile  = "certs/bankid_key.pem"

	sourceFile = "file"
)

// MakeSessionConfig converts the bankid section into the client's session
// configuration. An unknown environment name is an error. References that
// are not files leave the matching path empty.
func MakeSessionConfig(conf BankID) (bankid.SessionConfig, error) {
	var out bankid.SessionConfig

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:  environmentHook,
		ErrorUnused: true,
		Result:      &out,
	})
	if err != nil {
		return bankid.SessionConfig{}, fmt.Errorf("creating decoder: %w", err)
	}

	in := map[string]any{
		"environment": conf.Environment,
		"certFile":    filePath(conf.MTLS.Cert, defaultCertFile),
		"keyFile":     filePath(conf.MTLS.CertKey, defaultKeyFile),
		"caFile":      filePath(derefRef(conf.MTLS.ServerCA), ""),
	}
	if err := decoder.Decode(in); err != nil {
		return bankid.SessionConfig{}, fmt.Errorf("decoding bankid config: %w", err)
	}

	return out, nil
}

// LoadTLSConfig loads the mutual TLS material of the bankid section with the
// verification profile of the session's environment.
func LoadTLSConfig(conf BankID, session bankid.SessionConfig) (*tls.Config, error) {
	mtls := conf.MTLS
	if isUnset(mtls.Cert) {
		mtls.Cert = bankid.FileRef(session.CertFile)
	}
	if isUnset(mtls.CertKey) {
		mtls.CertKey = bankid.FileRef(session.KeyFile)
	}
	if isUnset(derefRef(mtls.ServerCA)) {
		serverCA := bankid.FileRef(session.CAFilePath())
		mtls.ServerCA = &serverCA
	}

	return bankid.LoadTLSConfig(session.Environment, &mtls)
}

func isUnset(ref commoncfg.SourceRef) bool {
	return ref.Source == "" && ref.Value == "" && ref.File.Path == ""
}

// derefRef returns the referenced value, or the unset zero value for nil.
func derefRef(ref *commoncfg.SourceRef) commoncfg.SourceRef {
	if ref == nil {
		return commoncfg.SourceRef{}
	}
	return *ref
}

func filePath(ref commoncfg.SourceRef, def string) string {
	switch {
	case isUnset(ref):
		return def
	case ref.Source == "" || ref.Source == sourceFile:
		return ref.File.Path
	default:
		return ""
	}
}

func environmentHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to != reflect.TypeFor[bankid.Environment]() {
		return data, nil
	}

	//nolint:forcetypeassert
	return bankid.ParseEnvironment(data.(string))
}
