package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v3"

	"correctionloop/internal/domain"
	"correctionloop/internal/service"
	"correctionloop/internal/store"
	"correctionloop/internal/testutil"
	"correctionloop/internal/translate"
)

type fakeContext struct {
	tele.Context
	sender    *tele.User
	callback  *tele.Callback
	text      string
	sent      []interface{}
	edited    []interface{}
	responses []*tele.CallbackResponse
}

func (f *fakeContext) Sender() *tele.User       { return f.sender }
func (f *fakeContext) Callback() *tele.Callback { return f.callback }
func (f *fakeContext) Text() string             { return f.text }

func (f *fakeContext) Send(what interface{}, _ ...interface{}) error {
	f.sent = append(f.sent, what)
	return nil
}

func (f *fakeContext) Edit(what interface{}, _ ...interface{}) error {
	f.edited = append(f.edited, what)
	return nil
}

func (f *fakeContext) Respond(resp ...*tele.CallbackResponse) error {
	f.responses = append(f.responses, resp...)
	return nil
}

func (f *fakeContext) lastEdit() string {
	if len(f.edited) == 0 {
		return ""
	}
	s, _ := f.edited[len(f.edited)-1].(string)
	return s
}

func (f *fakeContext) lastSent() string {
	if len(f.sent) == 0 {
		return ""
	}
	s, _ := f.sent[len(f.sent)-1].(string)
	return s
}

const testUserID = int64(7)

func newTestHandler(t *testing.T) (*Handler, *testutil.MockUserRepository) {
	t.Helper()
	logger := testutil.NewTestLogger()

	users := new(testutil.MockUserRepository)
	auth := service.NewAuthService(users, "letmein")

	selector := translate.NewSelector(translate.NewGateway(translate.GatewayConfig{}, logger), "")
	session := service.NewSession(store.New(logger), new(testutil.MockSnapshotRepository), selector, nil,
		service.SessionConfig{}, logger)
	t.Cleanup(session.Close)

	return NewHandler(nil, auth, session, logger), users
}

func callbackContext(unique, data string) *fakeContext {
	return &fakeContext{
		sender:   &tele.User{ID: testUserID},
		callback: &tele.Callback{ID: "cb", Unique: unique, Data: data},
	}
}

func textContext(text string) *fakeContext {
	return &fakeContext{sender: &tele.User{ID: testUserID}, text: text}
}

func TestHandleText_Password(t *testing.T) {
	h, users := newTestHandler(t)
	users.On("EnsureUserExists", testUserID).Return(nil)
	users.On("IsAuthorized", testUserID).Return(false, nil)
	users.On("AuthorizeUser", testUserID).Return(nil).Once()

	c := textContext("wrong")
	require.NoError(t, h.handleText(c))
	assert.Equal(t, "Wrong password", c.lastSent())

	c = textContext("letmein")
	require.NoError(t, h.handleText(c))
	assert.Contains(t, c.lastSent(), "Access granted")
	users.AssertExpectations(t)
}

func authorizedHandler(t *testing.T) *Handler {
	t.Helper()
	h, users := newTestHandler(t)
	users.On("EnsureUserExists", testUserID).Return(nil)
	users.On("IsAuthorized", testUserID).Return(true, nil)
	return h
}

func TestHandleText_ImportIntoActiveCategory(t *testing.T) {
	h := authorizedHandler(t)

	c := textContext("129章\n-------------\nsociology\nflee")
	require.NoError(t, h.handleText(c))
	assert.Contains(t, c.lastSent(), "Added 2 item(s)")

	items, err := h.session.Items(domain.CategoryVocabulary)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "129章", items[0].Chapter)
}

func TestHandleCallback_ImportFlow(t *testing.T) {
	h := authorizedHandler(t)

	c := callbackContext(cbImport, domain.CategoryDaily)
	require.NoError(t, h.handleCallback(c))
	assert.Equal(t, domain.StateWaitingImport, h.GetState(testUserID).State)

	c = textContext("---\n\n")
	require.NoError(t, h.handleText(c))
	assert.Contains(t, c.lastSent(), "Nothing to import")
	assert.Equal(t, domain.StateWaitingImport, h.GetState(testUserID).State, "stays waiting after a rejected import")

	c = textContext("stretch\nwalk")
	require.NoError(t, h.handleText(c))
	assert.Equal(t, domain.StateIdle, h.GetState(testUserID).State)

	items, err := h.session.Items(domain.CategoryDaily)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestHandleCallback_CheckAndArchive(t *testing.T) {
	h := authorizedHandler(t)
	items, err := h.session.Import(domain.CategoryDaily, "stretch")
	require.NoError(t, err)
	id := items[0].ID

	c := callbackContext(cbCheck, id)
	require.NoError(t, h.handleCallback(c))
	assert.Contains(t, c.lastEdit(), "Due now: 0 of 1")

	c = callbackContext(cbCheck, id)
	require.NoError(t, h.handleCallback(c))
	require.Len(t, c.responses, 1)
	assert.Equal(t, "Not due for review yet", c.responses[0].Text)
}

func TestHandleCallback_RawData(t *testing.T) {
	h := authorizedHandler(t)

	c := callbackContext("", "\fcat|"+domain.CategoryReading)
	require.NoError(t, h.handleCallback(c))

	assert.Equal(t, domain.CategoryReading, h.session.ActiveCategory())
	assert.Contains(t, c.lastEdit(), "Due now: 0 of 0")
}

func TestHandleCallback_FlipWithoutTranslator(t *testing.T) {
	h := authorizedHandler(t)
	items, err := h.session.Import(domain.CategoryVocabulary, "flee")
	require.NoError(t, err)

	c := callbackContext(cbFlip, items[0].ID)
	require.NoError(t, h.handleCallback(c))

	assert.Contains(t, c.lastEdit(), "translation failed")
}

func TestHandleCallback_CreateAndDeleteCategory(t *testing.T) {
	h := authorizedHandler(t)

	require.NoError(t, h.handleCallback(callbackContext(cbNewCategory, "")))
	assert.Equal(t, domain.StateWaitingCategory, h.GetState(testUserID).State)

	c := textContext(" | Blue")
	require.NoError(t, h.handleText(c))
	assert.Contains(t, c.lastSent(), "label is required")

	c = textContext("Grammar | green | tenses")
	require.NoError(t, h.handleText(c))
	assert.Contains(t, c.lastSent(), "Category Grammar created")

	active := h.session.ActiveCategory()
	category, err := h.session.Category(active)
	require.NoError(t, err)
	assert.Equal(t, "Green", category.Theme.Label)

	c = callbackContext(cbDeleteCategory, active)
	require.NoError(t, h.handleCallback(c))
	assert.Equal(t, domain.DefaultCategory, h.session.ActiveCategory())

	c = callbackContext(cbDeleteCategory, domain.CategoryVocabulary)
	require.NoError(t, h.handleCallback(c))
	require.Len(t, c.responses, 1)
	assert.True(t, c.responses[0].ShowAlert)
}

func TestHandleCallback_Note(t *testing.T) {
	h := authorizedHandler(t)
	items, err := h.session.Import(domain.CategoryAlgorithm, "two sum")
	require.NoError(t, err)

	require.NoError(t, h.handleCallback(callbackContext(cbNote, items[0].ID)))
	state := h.GetState(testUserID)
	assert.Equal(t, domain.StateWaitingNote, state.State)
	assert.Equal(t, items[0].ID, state.ItemID)

	c := textContext("use a hash map")
	require.NoError(t, h.handleText(c))
	assert.Equal(t, "📝 Note saved", c.lastSent())

	item, _, err := h.session.Item(items[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "use a hash map", item.Note)
}

func TestHandleCallback_SelectModel(t *testing.T) {
	h := authorizedHandler(t)

	require.NoError(t, h.handleCallback(callbackContext(cbModel, "deepseek-v3")))
	assert.Equal(t, "deepseek-v3", h.session.TranslationModel().ID)

	c := callbackContext(cbModel, "nope")
	require.NoError(t, h.handleCallback(c))
	require.Len(t, c.responses, 1)
	assert.Equal(t, "Unknown translation model", c.responses[0].Text)
}
