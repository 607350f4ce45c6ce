// Package config defines the application's configuration structure and
// loading logic, backed by viper for environment and file sources and
// go-playground/validator for startup validation.
package config
