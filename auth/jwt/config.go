package jwt

import (
	"fmt"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"

	"github.com/kbukum/modelkit/util"
)

// SigningMethod names an HMAC algorithm. Gateway tokens are shared-secret only.
type SigningMethod string

const (
	HS256 SigningMethod = "HS256"
	HS384 SigningMethod = "HS384"
	HS512 SigningMethod = "HS512"
)

// minSecretLen is the shortest accepted HMAC secret, in bytes.
const minSecretLen = 16

// Config configures token signing and verification.
type Config struct {
	Secret   string        `yaml:"secret" mapstructure:"secret"`
	Method   SigningMethod `yaml:"method" mapstructure:"method"`
	Issuer   string        `yaml:"issuer" mapstructure:"issuer"`
	Audience string        `yaml:"audience" mapstructure:"audience"`
	// TTL is the lifetime of minted tokens (default 24h).
	TTL time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

var signingMethods = map[SigningMethod]gojwt.SigningMethod{
	HS256: gojwt.SigningMethodHS256,
	HS384: gojwt.SigningMethodHS384,
	HS512: gojwt.SigningMethodHS512,
}

// ApplyDefaults picks HS256, issuer "modelkit" and a 24h TTL.
func (c *Config) ApplyDefaults() {
	c.Method = util.Coalesce(c.Method, HS256)
	c.Issuer = util.Coalesce(c.Issuer, "modelkit")
	c.TTL = util.Coalesce(c.TTL, 24*time.Hour)
}

func (c *Config) Validate() error {
	switch {
	case len(c.Secret) < minSecretLen:
		return fmt.Errorf("jwt: secret must be at least %d bytes", minSecretLen)
	case c.signingMethod() == nil:
		return fmt.Errorf("jwt: unsupported signing method %q", c.Method)
	case c.TTL < 0:
		return fmt.Errorf("jwt: ttl must not be negative (got: %s)", c.TTL)
	}
	return nil
}

// signingMethod is nil for anything but the HMAC family.
func (c *Config) signingMethod() gojwt.SigningMethod {
	return signingMethods[c.Method]
}
