package bootstrap

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appconfig "github.com/brightharbor/homecare-platform/internal/config"
	"github.com/brightharbor/homecare-platform/internal/notify"
)

func TestBuildRedisClient(t *testing.T) {
	assert.Nil(t, BuildRedisClient(context.Background(), &appconfig.Config{}, nil, false),
		"no addr means no client")

	mr := miniredis.RunT(t)
	client := BuildRedisClient(context.Background(), &appconfig.Config{RedisAddr: mr.Addr()}, nil, true)
	require.NotNil(t, client)
	assert.NoError(t, client.Ping(context.Background()).Err())

	assert.Nil(t, BuildRedisClient(context.Background(), &appconfig.Config{RedisAddr: "127.0.0.1:1"}, nil, true),
		"unreachable redis with verify returns nil")
}

func TestBuildEmailSenderFallsBackToStub(t *testing.T) {
	sender := BuildEmailSender(&appconfig.Config{EmailProvider: "sendgrid"}, aws.Config{}, nil)
	_, ok := sender.(*notify.StubEmailSender)
	assert.True(t, ok, "missing sendgrid key falls back to stub")

	sender = BuildEmailSender(&appconfig.Config{EmailProvider: "ses", FromEmail: "care@brightharbor.example"}, aws.Config{}, nil)
	_, ok = sender.(*notify.SESSender)
	assert.True(t, ok)
}
