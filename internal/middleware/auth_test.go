package middleware

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	tele "gopkg.in/telebot.v3"

	"correctionloop/internal/testutil"
)

type fakeContext struct {
	tele.Context
	sender    *tele.User
	callback  *tele.Callback
	sent      []interface{}
	responses []*tele.CallbackResponse
}

func (f *fakeContext) Sender() *tele.User       { return f.sender }
func (f *fakeContext) Callback() *tele.Callback { return f.callback }

func (f *fakeContext) Send(what interface{}, _ ...interface{}) error {
	f.sent = append(f.sent, what)
	return nil
}

func (f *fakeContext) Respond(resp ...*tele.CallbackResponse) error {
	f.responses = append(f.responses, resp...)
	return nil
}

func TestAuthMiddleware(t *testing.T) {
	tests := []struct {
		name         string
		authorized   bool
		authErr      error
		callback     bool
		expectNext   bool
		expectedText string
	}{
		{name: "authorized message", authorized: true, expectNext: true},
		{name: "authorized callback", authorized: true, callback: true, expectNext: true},
		{name: "unauthorized message", expectedText: msgUnauthorized},
		{name: "unauthorized callback", callback: true, expectedText: msgUnauthorized},
		{name: "repository error", authErr: errors.New("db down"), expectedText: msgInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(testutil.MockUserRepository)
			repo.On("EnsureUserExists", int64(42)).Return(nil)
			repo.On("IsAuthorized", int64(42)).Return(tt.authorized, tt.authErr)

			c := &fakeContext{sender: &tele.User{ID: 42}}
			if tt.callback {
				c.callback = &tele.Callback{ID: "cb"}
			}

			called := false
			next := func(tele.Context) error {
				called = true
				return nil
			}

			err := AuthMiddleware(repo, testutil.NewTestLogger())(next)(c)

			assert.NoError(t, err)
			assert.Equal(t, tt.expectNext, called)
			if tt.expectedText == "" {
				assert.Empty(t, c.sent)
				assert.Empty(t, c.responses)
				return
			}
			if tt.callback {
				if assert.Len(t, c.responses, 1) {
					assert.Equal(t, tt.expectedText, c.responses[0].Text)
					assert.True(t, c.responses[0].ShowAlert)
				}
			} else {
				assert.Equal(t, []interface{}{tt.expectedText}, c.sent)
			}
			repo.AssertExpectations(t)
		})
	}
}
