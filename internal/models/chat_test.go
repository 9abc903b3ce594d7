package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestConversationParticipants(t *testing.T) {
	owner := uuid.New()
	requester := uuid.New()
	stranger := uuid.New()

	conv := Conversation{OwnerID: owner, RequesterID: requester}

	assert.True(t, conv.HasParticipant(owner))
	assert.True(t, conv.HasParticipant(requester))
	assert.False(t, conv.HasParticipant(stranger))

	assert.Equal(t, requester, conv.OtherParticipant(owner))
	assert.Equal(t, owner, conv.OtherParticipant(requester))
}

func TestConversationIsOpen(t *testing.T) {
	conv := Conversation{Status: ConversationStatusOpen}
	assert.True(t, conv.IsOpen())

	conv.Status = ConversationStatusArchived
	assert.False(t, conv.IsOpen())
}

func TestListingIsActive(t *testing.T) {
	listing := Listing{Status: ListingStatusActive}
	assert.True(t, listing.IsActive())

	listing.Status = ListingStatusClosed
	assert.False(t, listing.IsActive())
}
