// Package config provides the immutable string-keyed configuration used by
// every cotwire component.
//
// A Config is built once per transport endpoint and passed by reference into
// the transport factory, the workers and the orchestrator; it is never
// mutated after construction. Values are strings (matching the environment
// and INI-style sources TAK tooling reads them from) with typed getters for
// the handful of numeric and boolean knobs.
//
// Example:
//
//	cfg := config.New("takclient", map[string]string{
//	    config.KeyCoTURL: "tls://takserver.example.com:8089",
//	    config.KeyTLSClientCert: "/etc/takclient/client.p12",
//	})
package config
