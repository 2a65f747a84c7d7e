package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()

	os.Args = []string{"cmd",
		"-a", "127.0.0.1:9090", "-d", "db", "-n", "production",
		"-s", "acc", "-x", "ref",
		"-u", "user", "-p", "password", "-b", "bucket", "-g", "us-west-1", "-e", "http://endpoint",
	}

	config := &Config{}
	require.NotPanics(t, func() { parseFlags(config) })

	assert.Equal(t, "127.0.0.1:9090", config.EndpointAddr)
	assert.Equal(t, "db", config.DatabaseDSN)
	assert.Equal(t, "production", config.Env)
	assert.Equal(t, "acc", config.AccessTokenSecret)
	assert.Equal(t, "ref", config.RefreshTokenSecret)
	assert.Equal(t, "user", config.S3AccessKey)
	assert.Equal(t, "password", config.S3SecretKey)
	assert.Equal(t, "bucket", config.S3Bucket)
	assert.Equal(t, "us-west-1", config.S3Region)
	assert.Equal(t, "http://endpoint", config.S3BaseEndpoint)
}

func TestParseFlags_IgnoresUnknown(t *testing.T) {
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()

	os.Args = []string{"cmd", "-a", ":7070", "-zz", "ignored"}

	config := &Config{}
	require.NotPanics(t, func() { parseFlags(config) })
	assert.Equal(t, ":7070", config.EndpointAddr)
}
