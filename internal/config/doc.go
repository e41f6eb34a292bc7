// Package config handles configuration loading for the chat client.
//
// # Configuration File
//
// Location (first match wins):
//
//  1. Path from CHAT_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/ultimate-super-space/config.yaml
//  3. ~/.config/ultimate-super-space/config.yaml
//
// Files ending in .toml are parsed as TOML; anything else as YAML. When no
// file exists, Default() is used.
//
// # Example
//
//	agent:
//	  endpoint: "https://inference.example.com/v3/inference/chat/"
//	  api_key: "${CHAT_API_KEY}"
//	  agent_id: "my-agent"
//	  user_id: "me@example.com"
//	  timeout: "90s"
//
//	storage:
//	  backend: "sqlite"          # or "file"
//	  path: "./chat.db"
//
//	logging:
//	  level: "info"
//	  format: "text"             # or "json"
//
// # Environment Variables
//
// A .env file next to the config file, and one in the working directory,
// are loaded before parsing. Variables already set in the environment win.
// ${VAR_NAME} references are then expanded; unset variables become "".
package config
