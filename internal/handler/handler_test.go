package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"duochat/internal/app/relay"
	"duochat/internal/configs"
	"duochat/internal/handler"
	"duochat/internal/pkg/auth/jwt"
	"duochat/internal/pkg/errs"
)

const testSecret = "test-secret"

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}

// stubMessageStore keeps messages in a slice, newest last.
type stubMessageStore struct {
	mu       sync.Mutex
	messages []relay.Message
}

func (s *stubMessageStore) Append(_ context.Context, msg relay.Message) (relay.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg.ID = uuid.New().String()
	msg.Timestamp = time.Now().UTC()
	s.messages = append(s.messages, msg)
	return msg, nil
}

func (s *stubMessageStore) FindByChat(_ context.Context, chatID string) ([]relay.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []relay.Message
	for _, msg := range s.messages {
		if msg.ChatID == chatID {
			out = append(out, msg)
		}
	}
	return out, nil
}

// stubConversationStore keeps the latest summary per chat id.
type stubConversationStore struct {
	mu    sync.Mutex
	convs map[string]relay.Conversation
}

func newStubConversationStore() *stubConversationStore {
	return &stubConversationStore{convs: make(map[string]relay.Conversation)}
}

func (s *stubConversationStore) Upsert(_ context.Context, conv relay.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.convs[conv.ChatID] = conv
	return nil
}

func (s *stubConversationStore) FindByIdentity(_ context.Context, identity string) ([]relay.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []relay.Conversation
	for _, conv := range s.convs {
		if conv.User == identity || conv.Participant == identity {
			out = append(out, conv)
		}
	}
	return out, nil
}

// stubBlockStore is a minimal in-memory block set.
type stubBlockStore struct {
	mu        sync.Mutex
	relations map[string]struct{}
}

func newStubBlockStore() *stubBlockStore {
	return &stubBlockStore{relations: make(map[string]struct{})}
}

func (s *stubBlockStore) key(blocker, blocked string) string { return blocker + "\x00" + blocked }

func (s *stubBlockStore) Add(_ context.Context, blocker, blocked string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.relations[s.key(blocker, blocked)] = struct{}{}
	return nil
}

func (s *stubBlockStore) Remove(_ context.Context, blocker, blocked string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.relations, s.key(blocker, blocked))
	return nil
}

func (s *stubBlockStore) Exists(_ context.Context, blocker, blocked string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.relations[s.key(blocker, blocked)]
	return ok, nil
}

func (s *stubBlockStore) ListBlockedBy(_ context.Context, blocker string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	blocked := make([]string, 0)
	for key := range s.relations {
		parts := strings.SplitN(key, "\x00", 2)
		if parts[0] == blocker {
			blocked = append(blocked, parts[1])
		}
	}
	return blocked, nil
}

// stubStorage records uploads and returns a canned presigned URL.
type stubStorage struct {
	mu       sync.Mutex
	uploads  map[string]string // key -> mime type
	presigns []string
}

func newStubStorage() *stubStorage {
	return &stubStorage{uploads: make(map[string]string)}
}

func (s *stubStorage) Upload(_ context.Context, key string, mimeType string, body io.Reader) error {
	if _, err := io.Copy(io.Discard, body); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploads[key] = mimeType
	return nil
}

func (s *stubStorage) PresignDownload(_ context.Context, key string, _ time.Duration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.presigns = append(s.presigns, key)
	return "https://bucket.test/" + key + "?sig=stub", nil
}

type testServer struct {
	*httptest.Server
	deps     *handler.AppDeps
	messages *stubMessageStore
	convs    *stubConversationStore
	blocks   *stubBlockStore
	storage  *stubStorage
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	messages := &stubMessageStore{}
	convs := newStubConversationStore()
	blocks := newStubBlockStore()
	store := newStubStorage()

	deps := &handler.AppDeps{
		Gateway: relay.NewGateway(messages, convs, blocks),
		Config: &configs.AppConfig{
			Environment:    "development",
			JWTSecret:      testSecret,
			AllowedOrigins: []string{},
		},
		Messages:      messages,
		Conversations: convs,
		Storage:       store,
	}

	ts := httptest.NewServer(handler.Router(deps))
	t.Cleanup(ts.Close)

	return &testServer{
		Server:   ts,
		deps:     deps,
		messages: messages,
		convs:    convs,
		blocks:   blocks,
		storage:  store,
	}
}

func tokenFor(t *testing.T, identity string) string {
	t.Helper()
	token, err := jwt.GenerateToken(&jwt.Payload{Identity: identity}, testSecret, time.Hour)
	require.NoError(t, err)
	return token
}

func doRequest(t *testing.T, method, url, token string, body io.Reader) (*http.Response, map[string]json.RawMessage) {
	t.Helper()

	req, err := http.NewRequest(method, url, body)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { res.Body.Close() })

	var envelope struct {
		Code    int             `json:"code"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&envelope))

	fields := map[string]json.RawMessage{}
	if len(envelope.Data) > 0 {
		require.NoError(t, json.Unmarshal(envelope.Data, &fields))
	}
	fields["_code"], _ = json.Marshal(envelope.Code)

	return res, fields
}

func envelopeCode(t *testing.T, fields map[string]json.RawMessage) int {
	t.Helper()
	var code int
	require.NoError(t, json.Unmarshal(fields["_code"], &code))
	return code
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	res, fields := doRequest(t, http.MethodGet, ts.URL+"/health", "", nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, 0, envelopeCode(t, fields))
}

func TestConversationsRequireAuth(t *testing.T) {
	ts := newTestServer(t)

	res, fields := doRequest(t, http.MethodGet, ts.URL+"/api/conversations", "", nil)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	assert.Equal(t, errs.ErrUnauthorized, envelopeCode(t, fields))
}

func TestConversationsForIdentity(t *testing.T) {
	ts := newTestServer(t)

	require.NoError(t, ts.convs.Upsert(testContext(t), relay.Conversation{
		ChatID:      relay.ChatID("alice", "bob"),
		User:        "alice",
		Participant: "bob",
		LastMessage: "hi",
		Timestamp:   time.Now().UTC(),
	}))

	res, fields := doRequest(t, http.MethodGet, ts.URL+"/api/conversations", tokenFor(t, "alice"), nil)
	require.Equal(t, http.StatusOK, res.StatusCode)

	var conversations []relay.Conversation
	require.NoError(t, json.Unmarshal(fields["conversations"], &conversations))
	require.Len(t, conversations, 1)
	assert.Equal(t, "hi", conversations[0].LastMessage)
}

func TestChatHistoryParticipantsOnly(t *testing.T) {
	ts := newTestServer(t)
	chatID := relay.ChatID("alice", "bob")

	res, fields := doRequest(t, http.MethodGet, ts.URL+"/api/chat/"+chatID+"/messages", tokenFor(t, "charlie"), nil)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
	assert.Equal(t, errs.ErrIdentityMismatch, envelopeCode(t, fields))
}

func TestChatHistory(t *testing.T) {
	ts := newTestServer(t)
	chatID := relay.ChatID("alice", "bob")

	_, err := ts.messages.Append(testContext(t), relay.Message{
		ChatID: chatID, Sender: "alice", Recipient: "bob", Body: "hi",
	})
	require.NoError(t, err)

	res, fields := doRequest(t, http.MethodGet, ts.URL+"/api/chat/"+chatID+"/messages", tokenFor(t, "bob"), nil)
	require.Equal(t, http.StatusOK, res.StatusCode)

	var messages []relay.Message
	require.NoError(t, json.Unmarshal(fields["messages"], &messages))
	require.Len(t, messages, 1)
	assert.Equal(t, "hi", messages[0].Body)
}

func TestBlockActsAsSelfOnly(t *testing.T) {
	ts := newTestServer(t)

	body := strings.NewReader(`{"blocker":"bob","blocked":"charlie"}`)
	res, fields := doRequest(t, http.MethodPost, ts.URL+"/api/block", tokenFor(t, "alice"), body)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
	assert.Equal(t, errs.ErrIdentityMismatch, envelopeCode(t, fields))

	exists, err := ts.blocks.Exists(testContext(t), "bob", "charlie")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestBlockAndList(t *testing.T) {
	ts := newTestServer(t)
	token := tokenFor(t, "alice")

	body := strings.NewReader(`{"blocker":"alice","blocked":"bob"}`)
	res, _ := doRequest(t, http.MethodPost, ts.URL+"/api/block", token, body)
	require.Equal(t, http.StatusOK, res.StatusCode)

	res, fields := doRequest(t, http.MethodGet, ts.URL+"/api/block/list", token, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)

	var blocked []string
	require.NoError(t, json.Unmarshal(fields["blocked"], &blocked))
	assert.Equal(t, []string{"bob"}, blocked)

	body = strings.NewReader(`{"blocker":"alice","blocked":"bob"}`)
	res, _ = doRequest(t, http.MethodPost, ts.URL+"/api/block/unblock", token, body)
	require.Equal(t, http.StatusOK, res.StatusCode)

	exists, err := ts.blocks.Exists(testContext(t), "alice", "bob")
	require.NoError(t, err)
	assert.False(t, exists)
}

// pngHeader is the fixed 8-byte PNG signature content sniffing keys on.
var pngHeader = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

func uploadFile(t *testing.T, ts *testServer, token, filename string, content []byte) (*http.Response, map[string]json.RawMessage) {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/file/upload", &buf)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { res.Body.Close() })

	var envelope struct {
		Code int             `json:"code"`
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&envelope))

	fields := map[string]json.RawMessage{}
	if len(envelope.Data) > 0 {
		require.NoError(t, json.Unmarshal(envelope.Data, &fields))
	}
	fields["_code"], _ = json.Marshal(envelope.Code)

	return res, fields
}

func TestFileUploadImage(t *testing.T) {
	ts := newTestServer(t)

	res, fields := uploadFile(t, ts, tokenFor(t, "alice"), "photo.png", pngHeader)
	require.Equal(t, http.StatusOK, res.StatusCode)

	var attachment relay.Attachment
	require.NoError(t, json.Unmarshal(fields["attachment"], &attachment))
	assert.Equal(t, "photo.png", attachment.Name)
	assert.Equal(t, relay.MediaKindImage, attachment.MediaKind)
	assert.Contains(t, attachment.URL, "/api/file/download?key=attachments%2F")

	ts.storage.mu.Lock()
	defer ts.storage.mu.Unlock()
	require.Len(t, ts.storage.uploads, 1)
	for key, mimeType := range ts.storage.uploads {
		assert.True(t, strings.HasPrefix(key, "attachments/"))
		assert.True(t, strings.HasSuffix(key, ".png"))
		assert.Equal(t, "image/png", mimeType)
	}
}

func TestFileUploadRejectsUnsupportedType(t *testing.T) {
	ts := newTestServer(t)

	res, fields := uploadFile(t, ts, tokenFor(t, "alice"), "notes.txt", []byte("just some text"))
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Equal(t, errs.ErrFileTypeInvalid, envelopeCode(t, fields))

	ts.storage.mu.Lock()
	defer ts.storage.mu.Unlock()
	assert.Empty(t, ts.storage.uploads)
}

func TestFileDownloadRedirects(t *testing.T) {
	ts := newTestServer(t)

	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/file/download?key=attachments%2Fabc.png", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, "alice"))

	res, err := client.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusFound, res.StatusCode)
	assert.Equal(t, "https://bucket.test/attachments/abc.png?sig=stub", res.Header.Get("Location"))
}

func TestFileDownloadRejectsForeignKeys(t *testing.T) {
	ts := newTestServer(t)

	res, fields := doRequest(t, http.MethodGet, ts.URL+"/api/file/download?key=secrets%2Fdb.dump", tokenFor(t, "alice"), nil)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Equal(t, errs.ErrInvalidParams, envelopeCode(t, fields))
}

func TestWebSocketRejectsInvalidToken(t *testing.T) {
	ts := newTestServer(t)

	res, fields := doRequest(t, http.MethodGet, ts.URL+"/ws?token=garbage", "", nil)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	assert.Equal(t, errs.ErrUnauthorized, envelopeCode(t, fields))
}

func dialWS(t *testing.T, ts *testServer, identity string) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?token=" + tokenFor(t, identity)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	join := fmt.Sprintf(`{"type":"join","payload":{"identity":%q}}`, identity)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(join)))

	return conn
}

func TestWebSocketRelayEndToEnd(t *testing.T) {
	ts := newTestServer(t)

	alice := dialWS(t, ts, "alice@test.dev")
	bob := dialWS(t, ts, "bob@test.dev")

	registry := ts.deps.Gateway.Registry()
	require.Eventually(t, func() bool {
		return registry.OnlineCount() == 2
	}, 2*time.Second, 10*time.Millisecond, "both identities should come online")

	chatID := relay.ChatID("alice@test.dev", "bob@test.dev")
	send := fmt.Sprintf(
		`{"type":"send","payload":{"chatId":%q,"sender":"alice@test.dev","recipient":"bob@test.dev","body":"hello bob"}}`,
		chatID,
	)
	require.NoError(t, alice.WriteMessage(websocket.TextMessage, []byte(send)))

	require.NoError(t, bob.SetReadDeadline(time.Now().Add(2*time.Second)))

	var msg relay.Message
	for {
		var ev relay.Event
		require.NoError(t, bob.ReadJSON(&ev))
		if ev.Type != relay.TypeMessageDelivered {
			continue
		}
		require.NoError(t, json.Unmarshal(ev.Payload, &msg))
		break
	}

	assert.Equal(t, "hello bob", msg.Body)
	assert.Equal(t, chatID, msg.ChatID)
	assert.NotEmpty(t, msg.ID)

	// The message was persisted before it was delivered.
	history, err := ts.messages.FindByChat(testContext(t), chatID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, msg.ID, history[0].ID)
}
