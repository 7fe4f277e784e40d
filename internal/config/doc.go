// Package config provides environment-based configuration.
//
// Loads from the process environment (main loads .env via godotenv first),
// applies defaults for every tunable and validates ranges.
package config
