package config

type ServiceConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
	// ClientURL is the storefront origin; provider return URLs are built from it.
	ClientURL string `yaml:"client_url"`
}
