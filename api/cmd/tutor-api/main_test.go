package main

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tutorpy/api/internal/config"
)

func TestRun_InvalidConfig(t *testing.T) {
	err := run(&config.Config{Storage: config.StorageMemory}, zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestRun_StorageUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	err := run(&config.Config{
		JWTSecret: "secret",
		Storage:   config.StorageRedis,
		RedisURL:  "redis://" + addr,
	}, zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage redis")
}

func TestRun_ClosesStorageWhenServerFails(t *testing.T) {
	mr := miniredis.RunT(t)

	err := run(&config.Config{
		Port:      "-1",
		JWTSecret: "secret",
		Storage:   config.StorageRedis,
		RedisURL:  "redis://" + mr.Addr(),
	}, zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http server")

	assert.Eventually(t, func() bool { return mr.CurrentConnectionCount() == 0 },
		2*time.Second, 10*time.Millisecond, "redis client must be closed")
}
