package config

// ReportConfig controls where run reports are written
type ReportConfig struct {
	// Dir receives one YAML report per run; empty disables file reports
	Dir string `mapstructure:"dir"`

	// S3Bucket, when set, also uploads each report to S3
	S3Bucket string `mapstructure:"s3_bucket"`
	S3Prefix string `mapstructure:"s3_prefix"`
	Region   string `mapstructure:"region"`
}
