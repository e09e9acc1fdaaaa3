// Package file provides file-based adapters for configuration and prompts.
//
// Adapters:
//   - ConfigFile: read-only TOML or YAML configuration file
//   - PromptStore: user-editable prompt templates with embedded defaults
package file
