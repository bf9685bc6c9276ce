// Package guard decides who may mutate or read chat state.
package guard

import (
	"gochat/internal/chat/models"
	"gochat/internal/common"
)

// Policy holds the rules that are tighter than the historical behaviour and
// therefore opt-in.
type Policy struct {
	// RequireMembershipToReact limits reactions to conversation participants.
	RequireMembershipToReact bool
	// ProtectGroupAdmin rejects membership updates that remove the admin.
	ProtectGroupAdmin bool
}

type Guard struct {
	policy Policy
}

func New(policy Policy) *Guard {
	return &Guard{policy: policy}
}

func (g *Guard) Policy() Policy { return g.policy }

// RequireParticipant allows participants of conv only.
func (g *Guard) RequireParticipant(conv *models.Conversation, userID string) error {
	if !conv.HasParticipant(userID) {
		return common.ForbiddenError("user %s is not a participant of conversation %s", userID, conv.ID)
	}
	return nil
}

// RequireSender allows the original sender only (edit, delete).
func (g *Guard) RequireSender(msg *models.Message, actorID string) error {
	if msg.SenderID != actorID {
		return common.ForbiddenError("only the sender can modify message %s", msg.ID)
	}
	return nil
}

// RequireGroupAdmin allows the admin of a group conversation only.
func (g *Guard) RequireGroupAdmin(conv *models.Conversation, actorID string) error {
	if !conv.IsGroup {
		return common.ValidationError("conversation %s is not a group", conv.ID)
	}
	if conv.GroupAdmin != actorID {
		return common.ForbiddenError("only the group admin can change conversation %s", conv.ID)
	}
	return nil
}

// ReactNeedsConversation reports whether CheckReact needs the conversation loaded.
func (g *Guard) ReactNeedsConversation() bool {
	return g.policy.RequireMembershipToReact
}

// CheckReact applies the reaction policy. conv may be nil when the policy
// does not need it.
func (g *Guard) CheckReact(conv *models.Conversation, actorID string) error {
	if !g.policy.RequireMembershipToReact {
		return nil
	}
	if conv == nil {
		return common.NotFoundError("conversation")
	}
	return g.RequireParticipant(conv, actorID)
}

// CheckRemoval applies the admin-protection policy to a membership removal.
func (g *Guard) CheckRemoval(conv *models.Conversation, remove []string) error {
	if !g.policy.ProtectGroupAdmin {
		return nil
	}
	for _, id := range remove {
		if id == conv.GroupAdmin {
			return common.ValidationError("the group admin cannot be removed")
		}
	}
	return nil
}

// RequireRecipient allows participants other than the sender (status receipts).
func (g *Guard) RequireRecipient(conv *models.Conversation, msg *models.Message, actorID string) error {
	if err := g.RequireParticipant(conv, actorID); err != nil {
		return err
	}
	if msg.SenderID == actorID {
		return common.ForbiddenError("the sender cannot acknowledge their own message")
	}
	return nil
}
