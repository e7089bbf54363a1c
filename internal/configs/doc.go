// Package configs manages sfcpay configuration.
//
// Configuration is read from a TOML file, then overridden by environment
// variables, then by command-line flags:
//
//	[credentials]
//	certificate_file = "~/.sfcpay/client.pem"
//	private_key_file = "~/.sfcpay/client.key"
//	encryption_key_kms_blob = "AQICAHh..."
//	kms_region = "ap-southeast-1"
//	use_test_environment = true
//
//	[transport]
//	timeout = "30s"
//
//	[batch]
//	concurrency = 4
//
// # Config File Location
//
// The first match wins:
//   - the --config flag
//   - sfcpay.toml in the working directory or any parent
//   - $XDG_CONFIG_HOME/sfcpay/config.toml
//
// # Environment
//
// A .env file in the working directory is loaded first if present. The
// SFCPAY_* variables listed in ApplyEnv override file values. The PKCS#12
// password is only ever read from the environment or a prompt, never from
// the config file.
//
// # Settings
//
// Settings holds the resolved directories and is initialized at startup.
package configs
