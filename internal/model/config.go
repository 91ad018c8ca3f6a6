package model

// Config holds per-installation settings (singleton).
type Config struct {
	Key      string `json:"key"`
	OwnerKey string `json:"owner_key"`
}

func (c *Config) SetKey(key string) {
	c.Key = key
}

func (c *Config) GetKey() string {
	return c.Key
}

// NewConfig creates the singleton config for ownerKey.
func NewConfig(ownerKey string) *Config {
	return &Config{
		Key:      KeyConfig,
		OwnerKey: ownerKey,
	}
}
