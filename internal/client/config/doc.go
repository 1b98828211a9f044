// Package config loads the famtree CLI configuration: defaults, then an
// optional JSON file, then FAMTREE_* environment variables (a .env file is
// honoured). Command-line flags are bound by the CLI and win over all of
// these.
//
// JSON keys:
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "cache_file": "/home/me/.famtree/session.db",
//	  "request_timeout": "10s"
//	}
package config
