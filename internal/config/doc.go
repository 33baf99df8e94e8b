// Package config defines the configuration of the qa-agent.
//
// Defaults come from `default` struct tags applied with creasty/defaults. The cli
// package declares one cobraflags flag per field and binds it into viper under the
// field key. Environment variables named after the flag with the QA_AGENT prefix
// are copied onto unset flags, so "server.server-mode" can be set with
// --server-mode or QA_AGENT_SERVER_MODE.
//
// Precedence: flag, then environment, then the config file (JSON or YAML) given
// with --config, then the default.
//
// # Configuration Structure
//
//	Configuration
//	├── Server    - HTTP server settings
//	├── Agent     - worker pool and run history location
//	├── Product   - backup product REST API
//	├── VSphere   - vCenter used by snapshot testcases
//	├── Waiter    - default wait timeout and poll interval
//	├── LogFormat - console or json
//	└── LogLevel  - zap level
//
// # Defaults
//
//	┌──────────────────────┬─────────┬─────────────────────────────────────┐
//	│ Field                │ Default │ Description                         │
//	├──────────────────────┼─────────┼─────────────────────────────────────┤
//	│ Server.ServerMode    │ "dev"   │ "dev" or "prod" (gin release mode)  │
//	│ Server.HTTPPort      │ 8000    │ HTTP listen port                    │
//	│ Agent.NumWorkers     │ 3       │ Scheduler workers                   │
//	│ Agent.DataFolder     │ ""      │ DuckDB folder, in memory when empty │
//	│ Product.MaxRetries   │ 5       │ Attempts for transient API errors   │
//	│ Product.RetryWindow  │ 1m      │ Upper bound of one retried request  │
//	│ Waiter.Timeout       │ 75m     │ Wait deadline                       │
//	│ Waiter.Interval      │ 10s     │ Poll interval                       │
//	│ LogFormat            │ console │                                     │
//	│ LogLevel             │ info    │                                     │
//	└──────────────────────┴─────────┴─────────────────────────────────────┘
//
// DebugMap returns the values for logging with passwords and tokens masked.
package config
