package notification

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewShoutrrrSender(t *testing.T) {
	assert.Nil(t, NewShoutrrrSender(""), "unconfigured channel has no sender")
	assert.NotNil(t, NewShoutrrrSender("generic://example.com/hook"))
}

func TestShoutrrrSender_BadURL(t *testing.T) {
	sender := NewShoutrrrSender("not-a-service-url")
	err := sender.Send(t.Context(), "ops@example.com", "subject", "body")
	assert.ErrorContains(t, err, "failed to create notification sender")
}
