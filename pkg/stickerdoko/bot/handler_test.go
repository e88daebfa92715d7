package bot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/stickerdoko/pkg/stickerdoko/auth"
	"github.com/mikepea/stickerdoko/pkg/stickerdoko/database"
	"github.com/mikepea/stickerdoko/pkg/stickerdoko/feedback"
	"github.com/mikepea/stickerdoko/pkg/stickerdoko/models"
	"github.com/mikepea/stickerdoko/pkg/stickerdoko/search"
	"github.com/mikepea/stickerdoko/pkg/stickerdoko/stickers"
	"github.com/mikepea/stickerdoko/pkg/stickerdoko/taggers"
	"github.com/mikepea/stickerdoko/pkg/stickerdoko/tags"
	"github.com/mikepea/stickerdoko/pkg/stickerdoko/telegram"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testSecret = "hunter2"

type fixture struct {
	db       *gorm.DB
	registry *taggers.Registry
	router   *gin.Engine
}

func setupFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	db, err := database.Connect(":memory:")
	require.NoError(t, err)
	require.NoError(t, models.AutoMigrate(db))
	t.Cleanup(func() { database.Close(db) })

	registry := taggers.NewRegistry(db, auth.NewSecret(testSecret), nil)
	resolver := stickers.NewResolver(db, nil)
	h := NewHandler(Deps{
		Registry: registry,
		Tags:     tags.NewService(db, registry, resolver, nil),
		Resolver: resolver,
		Engine:   search.NewEngine(db, 0, nil),
		Recorder: feedback.NewRecorder(db, nil),
	}, cfg, nil)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	h.RegisterRoutes(r.Group("/telegram"))
	return &fixture{db: db, registry: registry, router: r}
}

func (f *fixture) approvedTagger(t *testing.T, userID int64, username string) {
	t.Helper()
	ctx := context.Background()
	_, err := f.registry.Register(ctx, userID, username)
	require.NoError(t, err)
	_, err = f.registry.Approve(ctx, testSecret, username)
	require.NoError(t, err)
}

func (f *fixture) post(t *testing.T, update telegram.Update, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(update)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/telegram/webhook", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

// send posts a message update and decodes the sendMessage reply
func (f *fixture) send(t *testing.T, m *telegram.Message) *telegram.SendMessage {
	t.Helper()
	w := f.post(t, telegram.Update{UpdateID: 1, Message: m}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	if w.Body.Len() == 0 {
		return nil
	}
	var reply telegram.SendMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reply))
	return &reply
}

func command(from *telegram.User, text string) *telegram.Message {
	return &telegram.Message{
		MessageID: 100,
		From:      from,
		Chat:      telegram.Chat{ID: 555, Type: "private"},
		Text:      text,
	}
}

func replyingTo(m *telegram.Message, sticker *telegram.Sticker) *telegram.Message {
	m.ReplyToMessage = &telegram.Message{MessageID: 99, Chat: m.Chat, Sticker: sticker}
	return m
}

func catSticker() *telegram.Sticker {
	return &telegram.Sticker{FileID: "CAACcat", FileUniqueID: "AgADcat", SetName: "cats"}
}

var alice = &telegram.User{ID: 1, FirstName: "Alice", Username: "alice"}

func TestTagCommand(t *testing.T) {
	f := setupFixture(t, Config{})
	f.approvedTagger(t, alice.ID, alice.Username)

	reply := f.send(t, replyingTo(command(alice, "/tag cute  blue"), catSticker()))
	require.NotNil(t, reply)
	assert.Equal(t, telegram.MethodSendMessage, reply.Method)
	assert.Equal(t, int64(555), reply.ChatID)
	assert.Equal(t, int64(100), reply.ReplyToMessageID)
	assert.Equal(t, msgTaggedSticker+"\n- cute\n- blue", reply.Text)

	var count int64
	f.db.Model(&models.TaggedSticker{}).Count(&count)
	assert.Equal(t, int64(2), count)
}

func TestTagCommandAddressedToBot(t *testing.T) {
	f := setupFixture(t, Config{})
	f.approvedTagger(t, alice.ID, alice.Username)

	reply := f.send(t, replyingTo(command(alice, "/tag@sticker_doko_bot cute"), catSticker()))
	require.NotNil(t, reply)
	assert.Equal(t, msgTaggedSticker+"\n- cute", reply.Text)

	reply = f.send(t, replyingTo(command(alice, "/tag@some_other_bot cute"), catSticker()))
	assert.Nil(t, reply)
}

func TestTagCommandFailures(t *testing.T) {
	f := setupFixture(t, Config{})
	bob := &telegram.User{ID: 2, Username: "bob"}
	f.approvedTagger(t, alice.ID, alice.Username)

	noSet := catSticker()
	noSet.SetName = ""

	tests := []struct {
		name string
		msg  *telegram.Message
		want string
	}{
		{"no reply", command(alice, "/tag cute"), msgNoReplySticker},
		{"unknown sender", replyingTo(command(nil, "/tag cute"), catSticker()), msgSenderUnknown},
		{"not registered", replyingTo(command(bob, "/tag cute"), catSticker()), msgTagNotAuthorized},
		{"reply without sticker", replyingTo(command(alice, "/tag cute"), nil), msgNoReplySticker},
		{"not authorized reply without sticker", replyingTo(command(bob, "/tag cute"), nil), msgTagNotAuthorized},
		{"no sticker set", replyingTo(command(alice, "/tag cute"), noSet), msgNoStickerSet},
		{"no tags", replyingTo(command(alice, "/tag   "), catSticker()), msgNoTags},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reply := f.send(t, tt.msg)
			require.NotNil(t, reply)
			assert.Equal(t, tt.want, reply.Text)
		})
	}

	var count int64
	f.db.Model(&models.TaggedSticker{}).Count(&count)
	assert.Zero(t, count)
}

func TestTagCommandUnsavedTags(t *testing.T) {
	f := setupFixture(t, Config{})
	f.approvedTagger(t, alice.ID, alice.Username)

	err := f.db.Callback().Create().Before("gorm:create").Register("test:fail_tags", func(tx *gorm.DB) {
		if row, ok := tx.Statement.Dest.(*models.TaggedSticker); ok && strings.HasPrefix(row.Tag, "boom") {
			tx.AddError(errors.New("disk full"))
		}
	})
	require.NoError(t, err)

	reply := f.send(t, replyingTo(command(alice, "/tag cute boom"), catSticker()))
	require.NotNil(t, reply)
	assert.Equal(t, msgTaggedSticker+"\n- cute\n\n"+msgTagsNotSaved+"\n- boom", reply.Text)

	// Nothing saved: only the unsaved list is shown
	reply = f.send(t, replyingTo(command(alice, "/tag boom boomer"), catSticker()))
	require.NotNil(t, reply)
	assert.Equal(t, msgTagsNotSaved+"\n- boom\n- boomer", reply.Text)
	assert.NotContains(t, reply.Text, msgTaggedSticker)
}

func TestUntagAndListTags(t *testing.T) {
	f := setupFixture(t, Config{})
	f.approvedTagger(t, alice.ID, alice.Username)

	reply := f.send(t, replyingTo(command(alice, "/listtags"), catSticker()))
	assert.Equal(t, msgStickerUntagged, reply.Text)

	reply = f.send(t, replyingTo(command(alice, "/untag cute"), catSticker()))
	assert.Equal(t, msgStickerUntagged, reply.Text)

	f.send(t, replyingTo(command(alice, "/tag cute blue"), catSticker()))

	reply = f.send(t, replyingTo(command(alice, "/listtags"), catSticker()))
	assert.Equal(t, msgTagsOnSticker+" cute blue", reply.Text)

	reply = f.send(t, replyingTo(command(alice, "/untag cute"), catSticker()))
	assert.Equal(t, msgUntagSuccess, reply.Text)

	reply = f.send(t, replyingTo(command(alice, "/listtags"), catSticker()))
	assert.Equal(t, msgTagsOnSticker+" blue", reply.Text)

	reply = f.send(t, command(alice, "/listtags"))
	assert.Equal(t, msgNoReplySticker, reply.Text)
}

func TestRegisterAndAllow(t *testing.T) {
	f := setupFixture(t, Config{})
	bob := &telegram.User{ID: 2, Username: "bob"}

	reply := f.send(t, command(bob, "/register"))
	assert.Equal(t, msgNeedApproval, reply.Text)

	reply = f.send(t, command(bob, "/register"))
	assert.Equal(t, msgAlreadyRegistered, reply.Text)

	reply = f.send(t, command(&telegram.User{ID: 3}, "/register"))
	assert.Equal(t, msgUsernameMissing, reply.Text)

	reply = f.send(t, command(nil, "/register"))
	assert.Equal(t, msgSenderUnknown, reply.Text)

	reply = f.send(t, command(alice, "/allow onlyone"))
	assert.Equal(t, msgWrongArgnum, reply.Text)

	reply = f.send(t, command(alice, "/allow wrong bob"))
	assert.Equal(t, msgNoPerm, reply.Text)
	assert.False(t, f.registry.IsAllowed(context.Background(), bob.ID))

	reply = f.send(t, command(alice, "/allow "+testSecret+" nobody"))
	assert.Equal(t, msgNotRegistered, reply.Text)

	reply = f.send(t, command(alice, "/allow "+testSecret+" bob"))
	assert.Equal(t, telegram.ParseModeHTML, reply.ParseMode)
	assert.True(t, strings.HasPrefix(reply.Text, "Updated user: <code>bob "), reply.Text)
	assert.True(t, f.registry.IsAllowed(context.Background(), bob.ID))

	reply = f.send(t, command(bob, "/register"))
	assert.Equal(t, msgAlreadyAllowed, reply.Text)
}

func TestAllowAmbiguousUsername(t *testing.T) {
	f := setupFixture(t, Config{})

	// Two accounts have held the handle "carol"
	reply := f.send(t, command(&telegram.User{ID: 7, Username: "carol"}, "/register"))
	assert.Equal(t, msgNeedApproval, reply.Text)
	reply = f.send(t, command(&telegram.User{ID: 8, Username: "carol"}, "/register"))
	assert.Equal(t, msgNeedApproval, reply.Text)

	reply = f.send(t, command(alice, "/allow "+testSecret+" carol"))
	assert.Equal(t, msgAmbiguousUsername, reply.Text)
	assert.False(t, f.registry.IsAllowed(context.Background(), 7))
	assert.False(t, f.registry.IsAllowed(context.Background(), 8))
}

func TestHelpAndUnknownCommands(t *testing.T) {
	f := setupFixture(t, Config{})

	for _, text := range []string{"/help", "/start"} {
		reply := f.send(t, command(alice, text))
		require.NotNil(t, reply, text)
		assert.True(t, strings.HasPrefix(reply.Text, msgHelpIntro))
		assert.Contains(t, reply.Text, "/listtags - list all tags associated with a sticker")
		assert.NotContains(t, reply.Text, "/start")
	}

	assert.Nil(t, f.send(t, command(alice, "/bogus")))
	assert.Nil(t, f.send(t, command(alice, "/HELP")))
	assert.Nil(t, f.send(t, command(alice, "just chatting")))
}

func TestInlineQueryRanking(t *testing.T) {
	f := setupFixture(t, Config{})
	f.approvedTagger(t, alice.ID, alice.Username)

	sticker := func(name string) *telegram.Sticker {
		return &telegram.Sticker{FileID: "file-" + name, FileUniqueID: "uniq-" + name, SetName: "set"}
	}
	f.send(t, replyingTo(command(alice, "/tag cute blue"), sticker("A")))
	f.send(t, replyingTo(command(alice, "/tag cute"), sticker("B")))
	f.db.Model(&models.Sticker{}).Where("file_unique_id = ?", "uniq-B").Update("popularity", 10)

	w := f.post(t, telegram.Update{InlineQuery: &telegram.InlineQuery{ID: "q1", From: *alice, Query: "cute blue"}}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var answer telegram.AnswerInlineQuery
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &answer))
	assert.Equal(t, telegram.MethodAnswerInlineQuery, answer.Method)
	assert.Equal(t, "q1", answer.InlineQueryID)
	require.Len(t, answer.Results, 2)
	assert.Equal(t, "file-A", answer.Results[0].StickerFileID)
	assert.Equal(t, "sticker", answer.Results[0].Type)
	assert.Equal(t, "file-B", answer.Results[1].StickerFileID)
}

func TestInlineQueryBlank(t *testing.T) {
	f := setupFixture(t, Config{})

	w := f.post(t, telegram.Update{InlineQuery: &telegram.InlineQuery{ID: "q1", From: *alice, Query: "   "}}, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, w.Body.Len())
}

func TestChosenResultIncrementsPopularity(t *testing.T) {
	f := setupFixture(t, Config{})
	f.approvedTagger(t, alice.ID, alice.Username)
	f.send(t, replyingTo(command(alice, "/tag cute"), catSticker()))

	var sticker models.Sticker
	require.NoError(t, f.db.Where("file_unique_id = ?", "AgADcat").First(&sticker).Error)

	chosen := &telegram.ChosenInlineResult{ResultID: strconv.FormatUint(uint64(sticker.ID), 10), From: *alice, Query: "cute"}
	for i := 0; i < 3; i++ {
		w := f.post(t, telegram.Update{ChosenInlineResult: chosen}, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Zero(t, w.Body.Len())
	}

	require.NoError(t, f.db.First(&sticker, sticker.ID).Error)
	assert.Equal(t, int64(3), sticker.Popularity)

	w := f.post(t, telegram.Update{ChosenInlineResult: &telegram.ChosenInlineResult{ResultID: "not-a-number"}}, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestWebhookSecretToken(t *testing.T) {
	f := setupFixture(t, Config{SecretToken: "s3cret"})
	update := telegram.Update{Message: command(alice, "/help")}

	w := f.post(t, update, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.post(t, update, http.Header{telegram.SecretTokenHeader: {"wrong"}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.post(t, update, http.Header{telegram.SecretTokenHeader: {"s3cret"}})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), msgHelpIntro)
}

func TestWebhookRejectsBadJSON(t *testing.T) {
	f := setupFixture(t, Config{})

	req := httptest.NewRequest(http.MethodPost, "/telegram/webhook", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
