package database

import (
	"testing"

	"github.com/synaptica-ai/labcollate/pkg/common/config"
)

func TestGetRedisReportsUnreachableServer(t *testing.T) {
	cfg := config.Load()
	cfg.RedisHost = "127.0.0.1"
	cfg.RedisPort = "1"

	client, err := GetRedis(cfg)
	defer CloseRedis()
	if err == nil {
		t.Fatal("expected connection error")
	}
	if client == nil {
		t.Fatal("client should still be returned for closing")
	}
}
