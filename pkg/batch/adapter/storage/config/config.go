package config

// StorageConfig holds configuration for a single storage connection.
type StorageConfig struct {
	Type            string `yaml:"type" mapstructure:"type"`                       // local, minio or gcs.
	BucketName      string `yaml:"bucketName" mapstructure:"bucketName"`           // Default bucket name for operations.
	BaseDir         string `yaml:"baseDir" mapstructure:"baseDir"`                 // Base directory for local file system operations.
	CredentialsFile string `yaml:"credentialsFile" mapstructure:"credentialsFile"` // Service account key for GCS.
	Endpoint        string `yaml:"endpoint" mapstructure:"endpoint"`               // MinIO/S3 endpoint (host:port).
	AccessKey       string `yaml:"accessKey" mapstructure:"accessKey"`             // MinIO/S3 access key.
	SecretKey       string `yaml:"secretKey" mapstructure:"secretKey"`             // MinIO/S3 secret key.
	UseSSL          bool   `yaml:"useSSL" mapstructure:"useSSL"`                   // Use HTTPS for MinIO/S3.
	Region          string `yaml:"region" mapstructure:"region"`                   // Bucket region used when creating buckets.
}

// DatasourcesConfig holds a map of named storage configurations.
type DatasourcesConfig map[string]StorageConfig
