// Package config loads modelkit configuration with Viper.
//
// A config.yml is searched next to the binary's cmd directory, in ./config
// and in the working directory; a .env file is loaded from the same places.
// Every environment variable is bound into nested keys, so
// MODELS_GROQ_API_KEY overrides models.groq.api_key.
//
//	var cfg config.AppConfig
//	err := config.Load("modelkit", &cfg, config.WithConfigFile("config.yml"))
package config
