// Package security holds the TLS settings used when dialing model backends.
//
// Hosted presets such as Groq and SambaNova are reached over HTTPS and some
// deployments terminate TLS with self-signed certificates, so a backend can
// opt out of verification with skip_verify or pin its own CA bundle:
//
//	cfg := security.TLSConfig{SkipVerify: true}
//	tlsCfg, err := cfg.Build()
package security
