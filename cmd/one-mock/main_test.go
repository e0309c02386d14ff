package main

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"one-rpc/client"
	"one-rpc/config"
	"one-rpc/one"
	"one-rpc/onetest"
)

func TestLoadSeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
users:
  - {name: alice, password: s3cret, tokens: [tok1]}
templates:
  - {name: ubuntu, cpu: "1", memory: "1024"}
`), 0o600))

	s, err := loadSeed(path)
	require.NoError(t, err)
	require.Len(t, s.Users, 1)
	assert.Equal(t, []string{"tok1"}, s.Users[0].Tokens)

	cp := onetest.New()
	s.apply(cp)
	c, err := client.New(client.Config{Endpoint: onetest.Start(t, cp)})
	require.NoError(t, err)
	u, err := one.New(c).UserInfo(context.Background(), "alice:tok1", one.Self)
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Name)
}

func TestLoadSeedRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte("userz: []\n"), 0o600))
	_, err := loadSeed(path)
	assert.Error(t, err)
}

func TestDefaultSeed(t *testing.T) {
	s := defaultSeed(config.Default())
	assert.Equal(t, "oneadmin", s.Users[0].Name)
	assert.Len(t, s.Templates, 2)
}

func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

func TestRunServesUntilCancelled(t *testing.T) {
	t.Setenv("ONE_RPC_CONFIG", "")
	t.Setenv("ONE_RPC_LOG_LEVEL", "error")
	addr := freeAddr(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx, []string{"--listen", addr, "--metrics-addr", ""}) }()

	c, err := client.New(client.Config{Endpoint: "http://" + addr + "/RPC2", Timeout: time.Second})
	require.NoError(t, err)
	api := one.New(c)

	require.Eventually(t, func() bool {
		_, err := api.Login(context.Background(), "oneadmin", "opennebula")
		return err == nil
	}, 3*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancel")
	}
}
