package auth_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/foliohq/folio-auth"
)

type recordingLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *recordingLogger) record(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, fmt.Sprintf(format, args...))
}

func (l *recordingLogger) Debug(format string, args ...any) { l.record(format, args...) }
func (l *recordingLogger) Info(format string, args ...any)  { l.record(format, args...) }
func (l *recordingLogger) Warn(format string, args ...any)  { l.record(format, args...) }
func (l *recordingLogger) Error(format string, args ...any) { l.record(format, args...) }

func TestLogMailerSend(t *testing.T) {
	logger := &recordingLogger{}
	mailer := auth.NewLogMailer(logger)

	err := mailer.Send(context.Background(), "dev@example.com", "Verify your email address", "Your verification code is 48213.")
	require.NoError(t, err)

	require.Len(t, logger.lines, 1)
	assert.Contains(t, logger.lines[0], "dev@example.com")
	assert.Contains(t, logger.lines[0], "48213")
}

func TestSMTPMailerRequiresConfiguration(t *testing.T) {
	mailer := auth.NewSMTPMailer(&auth.Config{})

	err := mailer.Send(context.Background(), "dev@example.com", "subject", "body")
	require.Error(t, err)
}
