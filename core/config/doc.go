// Package config provides configuration management for the Archive Auditor.
//
// It utilizes Viper for loading configuration from environment variables
// and an optional .env file.
//
// # Configuration Structure
//
// The Config struct is the central repository for all application settings,
// divided into subsections:
//   - Server: HTTP server settings (port, API key)
//   - Database: MySQL connection details for the catalog store
//   - Storage: S3/MinIO credentials and the inventory bucket
//   - Log: Logging level and format
//   - Retry: transient-failure retry policy
//   - Recon: reconciliation settings (report retention window)
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Server.Port)
package config
