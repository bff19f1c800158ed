package chat

import (
	"github.com/google/uuid"

	"wishwell/internal/model"
)

// NewTextMessage builds an unsaved text message.
func NewTextMessage(conversationID, senderID, content string) *model.Message {
	return &model.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		Type:           model.MessageText,
	}
}

// NewProofMessage builds the system message a proof submission posts into the
// dream's conversation. It carries the cross-references the owner's approval
// action needs.
func NewProofMessage(conversationID, dreamID, wishID, dreamerID, proofText, fileURL string) *model.Message {
	return &model.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		SenderID:       model.SystemSender,
		Content:        "A dream proof has been submitted. Please review it.",
		Type:           model.MessageProof,
		RelatedID:      dreamID,
		WishID:         wishID,
		DreamerID:      dreamerID,
		ProofText:      proofText,
		FileURL:        fileURL,
		Approval:       model.ApprovalPending,
	}
}

// NewSystemMessage builds an unsaved system notification.
func NewSystemMessage(conversationID, content string, t model.MessageType) *model.Message {
	return &model.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		SenderID:       model.SystemSender,
		Content:        content,
		Type:           t,
	}
}
