package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	legal := map[[2]Status]bool{
		{StatusSubmitted, StatusUnderReview}: true,
		{StatusSubmitted, StatusRejected}:    true,
		{StatusUnderReview, StatusApproved}:  true,
		{StatusUnderReview, StatusRejected}:  true,
		{StatusApproved, StatusCompleted}:    true,
	}
	for _, from := range Statuses {
		for _, to := range Statuses {
			assert.Equal(t, legal[[2]Status{from, to}], CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestTerminal(t *testing.T) {
	assert.True(t, StatusRejected.Terminal())
	assert.True(t, StatusCompleted.Terminal())
	assert.False(t, StatusSubmitted.Terminal())
	assert.False(t, StatusApproved.Terminal())
}

func TestStatusAndSeverityValid(t *testing.T) {
	assert.True(t, StatusUnderReview.Valid())
	assert.False(t, Status("paid").Valid())
	assert.True(t, SeverityComplete.Valid())
	assert.False(t, Severity("catastrophic").Valid())
}

func TestProcessingTime(t *testing.T) {
	assert.Equal(t, "5-7 business days", SeveritySevere.ProcessingTime())
	assert.Equal(t, "7-10 business days", SeverityModerate.ProcessingTime())
	assert.Equal(t, "10-15 business days", SeverityMild.ProcessingTime())
}
