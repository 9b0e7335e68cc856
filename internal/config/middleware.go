package config

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// MiddlewareSpec is a tagged union over the five middleware variants,
// discriminated by the YAML "type" field. Only one of the pointer fields
// is non-nil after decoding, matching the Type it was decoded for.
type MiddlewareSpec struct {
	Type string

	HeaderRewrite *HeaderRewriteConfig
	ACL           *ACLConfig
	AppKey        *AppKeyConfig
	JWT           *JWTConfig
	RateLimit     *RateLimitConfig
}

type HeaderRewriteConfig struct {
	RequestAdd     map[string]string `yaml:"request_add"`
	RequestRemove  []string          `yaml:"request_remove"`
	ResponseAdd    map[string]string `yaml:"response_add"`
	ResponseRemove []string          `yaml:"response_remove"`
}

type ACLConfig struct {
	AllowPrefixes []string `yaml:"allow_prefixes"`
	DenyPrefixes  []string `yaml:"deny_prefixes"`
}

type AppKeyConfig struct {
	Header    string   `yaml:"header"`
	ValidKeys []string `yaml:"keys"`
}

type JWTConfig struct {
	Header         string   `yaml:"header"`
	Scheme         string   `yaml:"scheme"`
	Algorithms     []string `yaml:"algorithms"`
	Keys           []string `yaml:"keys"` // PEM-encoded public keys, ES256/RS256 static-key mode (default)
	RequiredClaims []string `yaml:"required_claims"`
	ClockSkewSec   int      `yaml:"clock_skew_sec"`

	// JWKSURL switches the stage to JWKSValidator: RS256 tokens verified
	// against keys fetched (and cached) from a remote JWKS endpoint instead
	// of a static PEM list. Mutually exclusive with Keys/HMACSecret.
	JWKSURL   string `yaml:"jwks_url"`
	Issuers   []string `yaml:"issuers"`
	Audiences []string `yaml:"audiences"`

	// HMACSecret switches the stage to the shared-secret HS256 Authenticator
	// instead of public-key verification. Mutually exclusive with
	// Keys/JWKSURL.
	HMACSecret string `yaml:"hmac_secret"`
}

type RateLimitConfig struct {
	Capacity     float64 `yaml:"capacity"`
	RefillPerSec float64 `yaml:"refill_per_sec"`
	Key          string  `yaml:"key"` // per_service | per_client_key | per_ip
}

// UnmarshalYAML implements the open-enum/registry-by-tag pattern: peek the
// "type" discriminator, then decode the rest of the node into the matching
// concrete config.
func (m *MiddlewareSpec) UnmarshalYAML(value *yaml.Node) error {
	var tag struct {
		Type string `yaml:"type"`
	}
	if err := value.Decode(&tag); err != nil {
		return err
	}
	m.Type = strings.ToLower(strings.TrimSpace(tag.Type))

	switch m.Type {
	case "header_rewrite":
		var c HeaderRewriteConfig
		if err := value.Decode(&c); err != nil {
			return err
		}
		m.HeaderRewrite = &c
	case "acl":
		var c ACLConfig
		if err := value.Decode(&c); err != nil {
			return err
		}
		m.ACL = &c
	case "appkey":
		var c AppKeyConfig
		if err := value.Decode(&c); err != nil {
			return err
		}
		if c.Header == "" {
			c.Header = "X-APP-KEY"
		}
		m.AppKey = &c
	case "jwt":
		var c JWTConfig
		if err := value.Decode(&c); err != nil {
			return err
		}
		if c.Header == "" {
			c.Header = "Authorization"
		}
		if c.Scheme == "" {
			c.Scheme = "Bearer"
		}
		if len(c.Algorithms) == 0 {
			c.Algorithms = []string{"ES256"}
		}
		if c.ClockSkewSec == 0 {
			c.ClockSkewSec = 30
		}
		m.JWT = &c
	case "ratelimit":
		var c RateLimitConfig
		if err := value.Decode(&c); err != nil {
			return err
		}
		if c.Key == "" {
			c.Key = "per_service"
		}
		m.RateLimit = &c
	default:
		return fmt.Errorf("unknown middleware type %q", tag.Type)
	}
	return nil
}

func (m MiddlewareSpec) validate() error {
	switch m.Type {
	case "header_rewrite":
		if m.HeaderRewrite == nil {
			return fmt.Errorf("missing header_rewrite body")
		}
	case "acl":
		if m.ACL == nil || (len(m.ACL.AllowPrefixes) == 0 && len(m.ACL.DenyPrefixes) == 0) {
			return fmt.Errorf("acl requires allow_prefixes or deny_prefixes")
		}
	case "appkey":
		if m.AppKey == nil || len(m.AppKey.ValidKeys) == 0 {
			return fmt.Errorf("appkey requires at least one key")
		}
	case "jwt":
		if m.JWT == nil {
			return fmt.Errorf("missing jwt body")
		}
		n := 0
		if len(m.JWT.Keys) > 0 {
			n++
		}
		if m.JWT.JWKSURL != "" {
			n++
		}
		if m.JWT.HMACSecret != "" {
			n++
		}
		if n == 0 {
			return fmt.Errorf("jwt requires one of keys, jwks_url or hmac_secret")
		}
		if n > 1 {
			return fmt.Errorf("jwt keys, jwks_url and hmac_secret are mutually exclusive")
		}
	case "ratelimit":
		if m.RateLimit == nil {
			return fmt.Errorf("missing ratelimit body")
		}
		if m.RateLimit.Capacity <= 0 {
			return fmt.Errorf("ratelimit.capacity must be > 0")
		}
		if m.RateLimit.RefillPerSec <= 0 {
			return fmt.Errorf("ratelimit.refill_per_sec must be > 0")
		}
		k := m.RateLimit.Key
		if k != "per_service" && k != "per_client_key" && k != "per_ip" {
			return fmt.Errorf("ratelimit.key must be per_service, per_client_key or per_ip")
		}
	default:
		return fmt.Errorf("unknown middleware type %q", m.Type)
	}
	return nil
}
