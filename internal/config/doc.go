// Package config loads and merges notesync configuration from three
// sources: environment variables (caarlos0/env), command-line flags, and an
// optional JSON file. Sources are merged with mergo in the order they are
// added to the builder; earlier non-zero values win.
//
// Client and server runtimes consume narrowed views of the merged config
// via GetClientConfig and GetServerConfig, which also apply engine defaults
// and validate the result.
package config
