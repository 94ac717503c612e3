package recon

// Config holds reconciliation settings.
type Config struct {
	// RetentionDays is the age in days after which jobs and their
	// reports are deleted by the retention sweeper.
	RetentionDays int `mapstructure:"retention_days" default:"30"`
}
