package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConfig_Check(t *testing.T) {
	prodConf := func() *Config {
		return &Config{
			Env:            "PROD",
			SecretKey:      "prod-secret-key",
			SendgridApiKey: "SG.key",
			Server:         ServerConfig{JWTExpirationDelta: time.Hour},
			Database:       DatabaseConfig{Name: "mahudhurio"},
			Redis:          RedisConfig{Address: "redis:6379"},
		}
	}

	tests := []struct {
		name    string
		update  func(conf *Config)
		wantErr string
	}{
		{name: "ok"},
		{name: "debug skips checks", update: func(conf *Config) { *conf = Config{Debug: true} }},
		{name: "default secret key", update: func(conf *Config) { conf.SecretKey = defaultSecretKey }, wantErr: "secretKey"},
		{name: "no database", update: func(conf *Config) { conf.Database.Name = "" }, wantErr: "database.name"},
		{name: "no redis", update: func(conf *Config) { conf.Redis.Address = "" }, wantErr: "redis.address"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conf := prodConf()
			if tt.update != nil {
				tt.update(conf)
			}
			err := conf.Check()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			if assert.Error(t, err) {
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
