package email

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildMessage(t *testing.T) {
	msg := string(buildMessage("billing@example.com", []string{"a@example.com"}, "Bill", "line1\nline2"))
	assert.Contains(t, msg, "To: a@example.com\r\n")
	assert.Contains(t, msg, "Subject: Bill\r\n")
	assert.Contains(t, msg, "\r\n\r\nline1\r\nline2")
}
