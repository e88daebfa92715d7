package bot

import (
	"context"
	"fmt"
	"html"
	"strings"

	apperrors "github.com/mikepea/stickerdoko/pkg/stickerdoko/errors"
	"github.com/mikepea/stickerdoko/pkg/stickerdoko/tags"
	"github.com/mikepea/stickerdoko/pkg/stickerdoko/telegram"
)

func (h *Handler) handleMessage(ctx context.Context, m *telegram.Message) *telegram.SendMessage {
	cmd, ok := telegram.ParseCommand(m.Text, h.cfg.BotUsername)
	if !ok {
		return nil
	}

	switch cmd.Name {
	case "tag":
		return h.handleTag(ctx, m, cmd.Args)
	case "untag":
		return h.handleUntag(ctx, m, cmd.Args)
	case "listtags":
		return h.handleListTags(ctx, m)
	case "register":
		return h.handleRegister(ctx, m)
	case "allow":
		return h.handleAllow(ctx, m, cmd.Args)
	case "help", "start":
		return telegram.NewReply(m, helpText())
	default:
		return nil
	}
}

// replySticker returns the sticker m replies to, if any
func replySticker(m *telegram.Message) *telegram.Sticker {
	if m.ReplyToMessage == nil {
		return nil
	}
	return m.ReplyToMessage.Sticker
}

// missingSticker answers a tag or untag command that does not reply to a
// sticker. Authorization is still reported first.
func (h *Handler) missingSticker(ctx context.Context, m *telegram.Message, command string) *telegram.SendMessage {
	username := m.Username(unknownUser)
	if m.ReplyToMessage != nil && !h.registry.IsAllowed(ctx, m.From.ID) {
		h.log.InfoContext(ctx, "non-allowed tagger attempted a command", "command", command, "user", username)
		return telegram.NewReply(m, msgTagNotAuthorized)
	}
	h.log.InfoContext(ctx, "command does not reply to a sticker", "command", command, "user", username)
	return telegram.NewReply(m, msgNoReplySticker)
}

func (h *Handler) handleTag(ctx context.Context, m *telegram.Message, text string) *telegram.SendMessage {
	if m.ReplyToMessage == nil {
		return h.missingSticker(ctx, m, "tag")
	}
	if m.From == nil {
		h.log.InfoContext(ctx, "unknown user attempted to tag")
		return telegram.NewReply(m, msgSenderUnknown)
	}
	sticker := replySticker(m)
	if sticker == nil {
		return h.missingSticker(ctx, m, "tag")
	}

	result, err := h.tags.Tag(ctx, tags.TagRequest{
		CallerID:     m.From.ID,
		FileUniqueID: sticker.FileUniqueID,
		FileID:       sticker.FileID,
		SetName:      sticker.SetName,
		Text:         text,
	})
	switch {
	case err == nil:
		return telegram.NewReply(m, bulletList(msgTaggedSticker, result.Applied))
	case apperrors.Is(err, apperrors.ErrUntaggable):
		return telegram.NewReply(m, msgNoStickerSet)
	case apperrors.Is(err, apperrors.ErrNoTags):
		return telegram.NewReply(m, msgNoTags)
	case result != nil && len(result.Failed) > 0:
		text := bulletList(msgTagsNotSaved, result.Failed)
		if len(result.Applied) > 0 {
			text = bulletList(msgTaggedSticker, result.Applied) + "\n\n" + text
		}
		return telegram.NewReply(m, text)
	default:
		return h.replyError(ctx, m, "tag", err)
	}
}

func (h *Handler) handleUntag(ctx context.Context, m *telegram.Message, text string) *telegram.SendMessage {
	if m.ReplyToMessage == nil {
		return h.missingSticker(ctx, m, "untag")
	}
	if m.From == nil {
		h.log.InfoContext(ctx, "unknown user attempted to untag")
		return telegram.NewReply(m, msgSenderUnknown)
	}
	sticker := replySticker(m)
	if sticker == nil {
		return h.missingSticker(ctx, m, "untag")
	}

	removed, err := h.tags.Untag(ctx, tags.UntagRequest{
		CallerID:     m.From.ID,
		FileUniqueID: sticker.FileUniqueID,
		Text:         text,
	})
	if err != nil {
		return h.replyError(ctx, m, "untag", err)
	}

	if removed == 0 {
		indexed, err := h.resolver.FindByUniqueID(ctx, sticker.FileUniqueID)
		if err != nil {
			return h.replyError(ctx, m, "untag", err)
		}
		if indexed == nil {
			return telegram.NewReply(m, msgStickerUntagged)
		}
	}
	return telegram.NewReply(m, msgUntagSuccess)
}

func (h *Handler) handleListTags(ctx context.Context, m *telegram.Message) *telegram.SendMessage {
	sticker := replySticker(m)
	if sticker == nil {
		h.log.InfoContext(ctx, "listtags without replying to a sticker", "user", m.Username(unknownUser))
		return telegram.NewReply(m, msgNoReplySticker)
	}

	list, err := h.tags.List(ctx, sticker.FileUniqueID)
	if err != nil {
		return h.replyError(ctx, m, "listtags", err)
	}
	if len(list) == 0 {
		return telegram.NewReply(m, msgStickerUntagged)
	}
	return telegram.NewReply(m, msgTagsOnSticker+" "+strings.Join(list, " "))
}

func (h *Handler) handleRegister(ctx context.Context, m *telegram.Message) *telegram.SendMessage {
	if m.From == nil {
		return telegram.NewReply(m, msgSenderUnknown)
	}

	tagger, err := h.registry.Register(ctx, m.From.ID, m.From.Username)
	switch {
	case err == nil:
		return telegram.NewReply(m, msgNeedApproval)
	case apperrors.Is(err, apperrors.ErrUsernameMissing):
		return telegram.NewReply(m, msgUsernameMissing)
	case apperrors.Is(err, apperrors.ErrAlreadyRegistered):
		if tagger != nil && tagger.Allowed {
			return telegram.NewReply(m, msgAlreadyAllowed)
		}
		return telegram.NewReply(m, msgAlreadyRegistered)
	default:
		return h.replyError(ctx, m, "register", err)
	}
}

// handleAllow approves a tagger. The message text holds the admin secret
// and must never be logged.
func (h *Handler) handleAllow(ctx context.Context, m *telegram.Message, args string) *telegram.SendMessage {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		return telegram.NewReply(m, msgWrongArgnum)
	}
	secret, username := fields[0], fields[1]

	tagger, err := h.registry.Approve(ctx, secret, username)
	switch {
	case err == nil:
		desc := fmt.Sprintf("%s (id %d, user_id %d, allowed %t)", tagger.Username, tagger.ID, tagger.UserID, tagger.Allowed)
		return telegram.NewHTMLReply(m, "Updated user: <code>"+html.EscapeString(desc)+"</code>")
	case apperrors.Is(err, apperrors.ErrInvalidSecret):
		h.log.WarnContext(ctx, "allow command with an invalid secret", "user", m.Username(unknownUser))
		return telegram.NewReply(m, msgNoPerm)
	case apperrors.Is(err, apperrors.ErrNotRegistered):
		return telegram.NewReply(m, msgNotRegistered)
	case apperrors.Is(err, apperrors.ErrAmbiguousUsername):
		return telegram.NewReply(m, msgAmbiguousUsername)
	default:
		return h.replyError(ctx, m, "allow", err)
	}
}

// replyError maps a core error to a fixed reply. Causes are logged, never
// sent to the chat.
func (h *Handler) replyError(ctx context.Context, m *telegram.Message, command string, err error) *telegram.SendMessage {
	username := m.Username(unknownUser)
	if apperrors.Is(err, apperrors.ErrNotAuthorized) {
		h.log.InfoContext(ctx, "non-allowed tagger attempted a command", "command", command, "user", username)
		return telegram.NewReply(m, msgTagNotAuthorized)
	}
	h.log.ErrorContext(ctx, "command failed", "command", command, "user", username, "code", apperrors.CodeOf(err), "error", err)
	return telegram.NewReply(m, msgInternalError)
}

func bulletList(header string, items []string) string {
	return header + "\n- " + strings.Join(items, "\n- ")
}

func helpText() string {
	var b strings.Builder
	b.WriteString(msgHelpIntro)
	b.WriteString("\n\nCommands:")
	for _, c := range commandList {
		fmt.Fprintf(&b, "\n/%s - %s", c.name, c.description)
	}
	return b.String()
}
