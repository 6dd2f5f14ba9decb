// Package config defines the necessary types to configure the application.
// An example config file config.yaml is provided in the repository.
package config

import (
	"time"

	"github.com/openkcm/common-sdk/pkg/commoncfg"
)

type Config struct {
	commoncfg.BaseConfig `mapstructure:",squash" yaml:",inline"`

	HTTP    HTTPServer `yaml:"http"`
	BankID  BankID     `yaml:"bankid"`
	QRCache QRCache    `yaml:"qrCache"`
	Auth    Auth       `yaml:"auth"`
}

type HTTPServer struct {
	Address         string        `yaml:"address" default:":8080"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" default:"5s"`
	// AllowedOrigins receive CORS headers. An entry "*" allows any origin.
	AllowedOrigins []string `yaml:"allowedOrigins"`
	// ResultRetention is how long completed orders are answered from memory.
	ResultRetention time.Duration `yaml:"resultRetention" default:"3m"`
}

// BankID selects the RP API environment and the mutual TLS material.
type BankID struct {
	Environment string `yaml:"environment" default:"test"`
	// MTLS references the client certificate, its key and the CA bundle.
	// Unset references fall back to certs/bankid_cert.pem,
	// certs/bankid_key.pem and the bundle of the selected environment.
	MTLS commoncfg.MTLS `yaml:"mtls"`
}

type QRCache struct {
	SweepInterval time.Duration `yaml:"sweepInterval" default:"5s"`
}

// Auth holds the fixed parameters of orders started by the REST facade.
type Auth struct {
	EndUserIP             string `yaml:"endUserIp" default:"127.0.0.1"`
	UserVisibleData       string `yaml:"userVisibleData"`
	UserVisibleDataFormat string `yaml:"userVisibleDataFormat"`
}
