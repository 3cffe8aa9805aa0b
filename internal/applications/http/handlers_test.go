package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoSim-25-26J-441/job-tracker/internal/applications/domain"
	"github.com/GoSim-25-26J-441/job-tracker/internal/applications/repository/repositorytest"
	"github.com/GoSim-25-26J-441/job-tracker/internal/applications/view"
)

type testEnv struct {
	store *repositorytest.FakeStore
	reg   *Registry
	r     *gin.Engine
}

func seedRecords() []domain.JobApplication {
	synced := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	return []domain.JobApplication{
		{ID: "a1", CompanyName: "Acme", JobRole: "Backend Engineer", ApplicationDate: "2024-01-10", Status: domain.StatusApplied, CreatedAt: &synced},
		{ID: "a2", CompanyName: "Globex", JobRole: "Data Analyst", ApplicationDate: "2024-02-01", Status: domain.StatusInterview},
	}
}

func newTestEnv(t *testing.T, seed ...domain.JobApplication) *testEnv {
	t.Helper()
	return newLimitedTestEnv(t, 100, seed...)
}

func newLimitedTestEnv(t *testing.T, maxSessions int, seed ...domain.JobApplication) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ctx, cancel := context.WithCancel(context.Background())
	store := repositorytest.NewFakeStore(seed...)
	reg := NewRegistry(ctx, store, view.Options{
		MessageDuration: time.Minute,
		Logger:          zerolog.Nop(),
		Today:           func() string { return "2024-05-01" },
	}, time.Minute, maxSessions)
	t.Cleanup(func() {
		cancel()
		_ = reg.Close(context.Background())
	})

	h := New(store, reg, nil, zerolog.Nop())
	r := gin.New()
	h.RegisterUI(r)
	h.RegisterAPI(r.Group("/api/v1"))

	return &testEnv{store: store, reg: reg, r: r}
}

func (e *testEnv) do(method, path string, form url.Values, session string, fetch bool) *httptest.ResponseRecorder {
	var body *strings.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	} else {
		body = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if session != "" {
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: session})
	}
	if fetch {
		req.Header.Set("X-Requested-With", "fetch")
	}
	w := httptest.NewRecorder()
	e.r.ServeHTTP(w, req)
	return w
}

// newSession opens the page once and waits until the first snapshot has loaded
func (e *testEnv) newSession(t *testing.T) string {
	t.Helper()
	w := e.do(http.MethodGet, "/", nil, "", false)
	require.Equal(t, http.StatusOK, w.Code)

	var id string
	for _, c := range w.Result().Cookies() {
		if c.Name == SessionCookie {
			id = c.Value
		}
	}
	require.NotEmpty(t, id, "session cookie not set")
	e.waitView(t, id, func(v view.View) bool { return !v.Loading })
	return id
}

func (e *testEnv) waitView(t *testing.T, session string, match func(view.View) bool) view.View {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		sess, ok := e.reg.Lookup(session)
		require.True(t, ok, "session %s not found", session)
		v, err := sess.Controller().View(context.Background())
		require.NoError(t, err)
		if match(v) {
			return v
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for view, last: %+v", v)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func validForm() url.Values {
	return url.Values{
		"companyName":     {"  Initech "},
		"jobRole":         {"SRE"},
		"applicationDate": {"2024-03-05"},
		"status":          {"Applied"},
		"notes":           {"via recruiter"},
	}
}

func TestIndex_IssuesSessionCookie(t *testing.T) {
	env := newTestEnv(t, seedRecords()...)

	w := env.do(http.MethodGet, "/", nil, "", false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Add Job Application")

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, SessionCookie, cookies[0].Name)
	_, err := uuid.Parse(cookies[0].Value)
	assert.NoError(t, err)
	assert.True(t, cookies[0].HttpOnly)
}

func TestIndex_SessionLimit(t *testing.T) {
	env := newLimitedTestEnv(t, 1)
	session := env.newSession(t)

	w := env.do(http.MethodGet, "/", nil, "", false)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Empty(t, w.Result().Cookies())

	w = env.do(http.MethodGet, "/", nil, session, false)
	assert.Equal(t, http.StatusOK, w.Code, "the open session keeps working")
	assert.Equal(t, 1, env.reg.Len())
}

func TestUnknownSessionIsRejected(t *testing.T) {
	env := newTestEnv(t, seedRecords()...)
	stale := uuid.NewString()

	for i := 0; i < 50; i++ {
		w := env.do(http.MethodPost, "/criteria", url.Values{"search": {"acme"}}, "", true)
		require.Equal(t, http.StatusGone, w.Code)
	}

	w := env.do(http.MethodPost, "/form", validForm(), stale, true)
	assert.Equal(t, http.StatusGone, w.Code)
	assert.Contains(t, w.Body.String(), "unknown session")

	w = env.do(http.MethodPost, "/applications/a1/delete", url.Values{"confirm": {"yes"}}, "", false)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
	assert.Empty(t, w.Result().Cookies())

	w = env.do(http.MethodGet, "/events", nil, stale, false)
	assert.Equal(t, http.StatusGone, w.Code)

	assert.Equal(t, 0, env.reg.Len())
	assert.Equal(t, 0, env.store.Subscribers())
	assert.Empty(t, env.store.Calls())
}

func TestIndex_RendersList(t *testing.T) {
	env := newTestEnv(t, seedRecords()...)
	session := env.newSession(t)

	w := env.do(http.MethodGet, "/", nil, session, false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Result().Cookies(), "existing session must not be reissued")

	body := w.Body.String()
	assert.Contains(t, body, "Acme")
	assert.Contains(t, body, "Globex")
	assert.Contains(t, body, "job-status-interview")
	assert.Contains(t, body, "Pending timestamp")
	assert.Contains(t, body, "Synced")
	assert.Contains(t, body, view.DeletePrompt)
	assert.Less(t, strings.Index(body, "Globex"), strings.Index(body, "Acme"), "newest first")
	assert.Equal(t, 1, env.reg.Len())
}

func TestIndex_EmptyCollection(t *testing.T) {
	env := newTestEnv(t)
	session := env.newSession(t)

	w := env.do(http.MethodGet, "/", nil, session, false)
	assert.Contains(t, w.Body.String(), "No job applications yet.")
}

func TestSubmitForm(t *testing.T) {
	t.Run("fetch create", func(t *testing.T) {
		env := newTestEnv(t, seedRecords()...)
		session := env.newSession(t)

		w := env.do(http.MethodPost, "/form", validForm(), session, true)
		assert.Equal(t, http.StatusNoContent, w.Code)

		v := env.waitView(t, session, func(v view.View) bool { return v.Total == 3 })
		require.NotNil(t, v.Message)
		assert.Equal(t, "Application added.", v.Message.Text)

		calls := env.store.Calls()
		require.Len(t, calls, 1)
		assert.Equal(t, "create", calls[0].Op)
		assert.Equal(t, "Initech", calls[0].Input.CompanyName)
	})

	t.Run("plain post redirects", func(t *testing.T) {
		env := newTestEnv(t)
		session := env.newSession(t)

		w := env.do(http.MethodPost, "/form", validForm(), session, false)
		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/", w.Header().Get("Location"))
	})

	t.Run("missing fields", func(t *testing.T) {
		env := newTestEnv(t)
		session := env.newSession(t)

		form := validForm()
		form.Set("companyName", "   ")
		w := env.do(http.MethodPost, "/form", form, session, true)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Empty(t, env.store.Calls())

		w = env.do(http.MethodPost, "/form", form, session, false)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, w.Body.String(), "Please fill in all required fields.")
		assert.Contains(t, w.Body.String(), "via recruiter", "form keeps the entered values")
	})

	t.Run("in flight", func(t *testing.T) {
		env := newTestEnv(t)
		session := env.newSession(t)
		env.store.HoldWrites()
		t.Cleanup(env.store.ReleaseWrites)

		assert.Equal(t, http.StatusNoContent, env.do(http.MethodPost, "/form", validForm(), session, true).Code)
		assert.Equal(t, http.StatusConflict, env.do(http.MethodPost, "/form", validForm(), session, true).Code)

		env.store.ReleaseWrites()
		env.waitView(t, session, func(v view.View) bool { return v.Total == 1 && !v.Form.SubmitDisabled })
		assert.Len(t, env.store.Calls(), 1)
	})
}

func TestEditFlow(t *testing.T) {
	env := newTestEnv(t, seedRecords()...)
	session := env.newSession(t)

	w := env.do(http.MethodPost, "/applications/missing/edit", url.Values{}, session, true)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(http.MethodPost, "/applications/a1/edit", url.Values{}, session, true)
	require.Equal(t, http.StatusNoContent, w.Code)

	v := env.waitView(t, session, func(v view.View) bool { return v.Form.Editing })
	assert.Equal(t, "Edit Job Application", v.Form.Title)
	assert.Equal(t, "Acme", v.Form.Values.CompanyName)

	form := validForm()
	form.Set("companyName", "Acme Corp")
	require.Equal(t, http.StatusNoContent, env.do(http.MethodPost, "/form", form, session, true).Code)

	v = env.waitView(t, session, func(v view.View) bool { return !v.Form.Editing && v.Message != nil })
	assert.Equal(t, "Application updated.", v.Message.Text)

	calls := env.store.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "update", calls[0].Op)
	assert.Equal(t, "a1", calls[0].ID)

	// cancel from edit mode
	require.Equal(t, http.StatusNoContent, env.do(http.MethodPost, "/applications/a2/edit", url.Values{}, session, true).Code)
	require.Equal(t, http.StatusNoContent, env.do(http.MethodPost, "/form/cancel", url.Values{}, session, true).Code)
	v = env.waitView(t, session, func(v view.View) bool { return !v.Form.Editing })
	assert.Equal(t, "2024-05-01", v.Form.Values.ApplicationDate)
}

func TestDeleteApplication(t *testing.T) {
	env := newTestEnv(t, seedRecords()...)
	session := env.newSession(t)

	w := env.do(http.MethodPost, "/applications/a1/delete", url.Values{}, session, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, env.store.Calls())

	w = env.do(http.MethodPost, "/applications/a1/delete", url.Values{"confirm": {"yes"}}, session, true)
	assert.Equal(t, http.StatusNoContent, w.Code)

	v := env.waitView(t, session, func(v view.View) bool { return v.Total == 1 })
	require.NotNil(t, v.Message)
	assert.Equal(t, "Application deleted.", v.Message.Text)
	assert.Equal(t, "a2", v.Items[0].ID)
}

func TestDeleteApplication_PlainPostAsksFirst(t *testing.T) {
	env := newTestEnv(t, seedRecords()...)
	session := env.newSession(t)

	w := env.do(http.MethodGet, "/", nil, session, false)
	assert.NotContains(t, w.Body.String(), `name="confirm"`, "list forms never carry the confirmation")

	w = env.do(http.MethodPost, "/applications/a1/delete", url.Values{}, session, false)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, view.DeletePrompt)
	assert.Contains(t, body, "Acme")
	assert.Contains(t, body, `action="/applications/a1/delete"`)
	assert.Contains(t, body, `name="confirm" value="yes"`)
	assert.Empty(t, env.store.Calls())

	w = env.do(http.MethodPost, "/applications/missing/delete", url.Values{}, session, false)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(http.MethodPost, "/applications/a1/delete", url.Values{"confirm": {"yes"}}, session, false)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	require.Eventually(t, func() bool { return len(env.store.Calls()) == 1 }, 2*time.Second, 10*time.Millisecond)
	calls := env.store.Calls()
	assert.Equal(t, "delete", calls[0].Op)
	assert.Equal(t, "a1", calls[0].ID)
}

func TestUpdateCriteria(t *testing.T) {
	env := newTestEnv(t, seedRecords()...)
	session := env.newSession(t)

	w := env.do(http.MethodPost, "/criteria", url.Values{"status": {"Ghosted"}, "search": {"acme"}}, session, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	v := env.waitView(t, session, func(view.View) bool { return true })
	assert.Equal(t, view.DefaultCriteria(), v.Criteria, "invalid request changes nothing")

	w = env.do(http.MethodPost, "/criteria", url.Values{"sort": {"sideways"}}, session, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodPost, "/criteria", url.Values{"search": {" GLOB "}, "status": {"Interview"}, "sort": {"asc"}}, session, true)
	require.Equal(t, http.StatusNoContent, w.Code)

	v = env.waitView(t, session, func(v view.View) bool { return len(v.Items) == 1 })
	assert.Equal(t, "Globex", v.Items[0].Company)
	assert.Equal(t, view.SortAsc, v.Criteria.SortDirection)

	w = env.do(http.MethodPost, "/criteria", url.Values{"status": {"Rejected"}}, session, false)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	v = env.waitView(t, session, func(v view.View) bool { return v.Criteria.StatusFilter == "Rejected" })
	assert.Empty(t, v.Items)
	assert.True(t, v.Empty)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&domain.ValidationError{Fields: []string{"jobRole"}, Reason: "required"}, http.StatusUnprocessableEntity},
		{domain.ErrSubmitInFlight, http.StatusConflict},
		{domain.ErrNotFound, http.StatusNotFound},
		{domain.ErrDeleteNotConfirmed, http.StatusBadRequest},
		{view.ErrStopped, http.StatusServiceUnavailable},
		{context.DeadlineExceeded, http.StatusServiceUnavailable},
		{assert.AnError, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
