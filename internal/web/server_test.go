package web

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/recall/internal/domain"
	"github.com/conorfennell/recall/internal/importer"
	"github.com/conorfennell/recall/internal/knol"
	"github.com/conorfennell/recall/internal/parser"
	"github.com/conorfennell/recall/internal/storage"
)

var numbers = []domain.Card{
	{Front: "uno", Back: "one"},
	{Front: "dos", Back: "two"},
	{Front: "tres", Back: "three"},
}

type client struct {
	t    *testing.T
	base string
	http *http.Client
}

func newTestServer(t *testing.T, opts Options) *httptest.Server {
	t.Helper()
	opts.Logger = zerolog.Nop()
	s, err := NewServer(opts)
	require.NoError(t, err)
	ts := httptest.NewServer(s)
	t.Cleanup(ts.Close)
	return ts
}

func newClient(t *testing.T, ts *httptest.Server) *client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &client{
		t:    t,
		base: ts.URL,
		http: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (c *client) do(req *http.Request) (int, string) {
	c.t.Helper()
	res, err := c.http.Do(req)
	require.NoError(c.t, err)
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(c.t, err)
	return res.StatusCode, string(body)
}

func (c *client) get(path string) (int, string) {
	c.t.Helper()
	req, err := http.NewRequest(http.MethodGet, c.base+path, nil)
	require.NoError(c.t, err)
	return c.do(req)
}

// post sends a form the way the page script does.
func (c *client) post(path string, form url.Values) (int, string) {
	c.t.Helper()
	req, err := http.NewRequest(http.MethodPost, c.base+path, strings.NewReader(form.Encode()))
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set(partialHeader, "1")
	return c.do(req)
}

func (c *client) upload(name string, data []byte) (int, string) {
	c.t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", name)
	require.NoError(c.t, err)
	_, err = fw.Write(data)
	require.NoError(c.t, err)
	require.NoError(c.t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, c.base+"/upload", &body)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set(partialHeader, "1")
	return c.do(req)
}

func workbook(t *testing.T, cards []domain.Card) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, parser.WriteWorkbook(&buf, cards))
	return buf.Bytes()
}

func TestIndex(t *testing.T) {
	ts := newTestServer(t, Options{})
	c := newClient(t, ts)

	status, body := c.get("/")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Welcome to Recall")
	assert.Contains(t, body, "Maximum size: <strong>10 MiB</strong>")
	assert.NotContains(t, body, "Start Review")

	u, _ := url.Parse(ts.URL)
	cookies := c.http.Jar.Cookies(u)
	require.Len(t, cookies, 1)
	assert.Equal(t, sessionCookie, cookies[0].Name)
}

func TestReviewFlow(t *testing.T) {
	ts := newTestServer(t, Options{})
	c := newClient(t, ts)

	status, body := c.upload("numbers.xlsx", workbook(t, numbers))
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Selected File: numbers.xlsx")
	assert.Contains(t, body, "Start Review")

	_, body = c.post("/start", url.Values{"start": {""}, "end": {""}, "limit": {""}})
	assert.Contains(t, body, "Word 1 of 3")
	assert.Contains(t, body, "uno")
	assert.Contains(t, body, `id="review"`)

	_, body = c.post("/review/key", url.Values{"key": {" "}})
	assert.Contains(t, body, "one")

	_, body = c.post("/review/key", url.Values{"key": {"ArrowRight"}})
	assert.Contains(t, body, "Word 2 of 3")
	assert.Contains(t, body, "dos")

	_, body = c.post("/review/finish", nil)
	assert.Contains(t, body, "Word 2 of 3", "finish before the last card does nothing")

	_, body = c.post("/review/next", nil)
	assert.Contains(t, body, "Word 3 of 3")
	assert.Contains(t, body, "Finish")

	_, body = c.post("/review/key", url.Values{"key": {"ArrowRight"}})
	assert.Contains(t, body, "Congratulations!")

	_, body = c.post("/review/key", url.Values{"key": {"ArrowLeft"}})
	assert.Contains(t, body, "Congratulations!", "keys are ignored once completed")

	_, body = c.post("/reset", nil)
	assert.Contains(t, body, "Welcome to Recall")
	assert.NotContains(t, body, "Selected File")
}

func TestUploadErrors(t *testing.T) {
	ts := newTestServer(t, Options{})

	tests := []struct {
		name string
		file string
		data []byte
		want string
	}{
		{name: "unsupported type", file: "numbers.csv", data: []byte("front,back\n"), want: "Unsupported file type. Please upload an XLS or XLSX file."},
		{name: "corrupt", file: "numbers.xlsx", data: []byte("garbage"), want: "An error occurred while reading the file. Please try again."},
		{name: "missing columns", file: "numbers.xlsx", data: workbook(t, nil), want: "Invalid file format."},
		{name: "too large", file: "numbers.xlsx", data: make([]byte, importer.MaxFileSize+1), want: "File size exceeds the maximum limit of 10 MiB."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newClient(t, ts)
			status, body := c.upload(tt.file, tt.data)
			assert.Equal(t, http.StatusOK, status)
			assert.Contains(t, body, tt.want)
			assert.NotContains(t, body, "Start Review")
		})
	}
}

func TestStart_InvalidRange(t *testing.T) {
	ts := newTestServer(t, Options{})
	c := newClient(t, ts)
	c.upload("numbers.xlsx", workbook(t, numbers))

	_, body := c.post("/start", url.Values{"start": {"3"}, "end": {"2"}})
	assert.Contains(t, body, "Invalid range. Please enter a range between 1 and 3.")
	assert.Contains(t, body, "Start Review")

	_, body = c.post("/start", url.Values{"start": {"2"}, "end": {"0"}, "limit": {"1"}})
	assert.NotContains(t, body, "Invalid range")
	assert.Contains(t, body, "Word 1 of 1")
	assert.Contains(t, body, "dos")
}

func TestPlainFormPostRedirects(t *testing.T) {
	ts := newTestServer(t, Options{})
	c := newClient(t, ts)

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/reset", nil)
	require.NoError(t, err)
	res, err := c.http.Do(req)
	require.NoError(t, err)
	res.Body.Close()

	assert.Equal(t, http.StatusSeeOther, res.StatusCode)
	assert.Equal(t, "/", res.Header.Get("Location"))
}

func TestUnknownReviewAction(t *testing.T) {
	ts := newTestServer(t, Options{})
	c := newClient(t, ts)

	status, _ := c.post("/review/skip", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestSample(t *testing.T) {
	ts := newTestServer(t, Options{})
	c := newClient(t, ts)

	status, body := c.get("/sample.xlsx")
	require.Equal(t, http.StatusOK, status)

	cards, err := parser.Parse([]byte(body))
	require.NoError(t, err)
	assert.Equal(t, parser.SampleCards, cards)
}

func TestStaticAssets(t *testing.T) {
	ts := newTestServer(t, Options{})
	c := newClient(t, ts)

	status, body := c.get("/static/app.js")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "keydown")
}

func TestBrowsersAreIsolated(t *testing.T) {
	ts := newTestServer(t, Options{})
	alice := newClient(t, ts)
	bob := newClient(t, ts)

	alice.upload("numbers.xlsx", workbook(t, numbers))
	alice.post("/start", nil)

	_, body := bob.get("/")
	assert.Contains(t, body, "Welcome to Recall")

	_, body = alice.get("/")
	assert.Contains(t, body, "Word 1 of 3")
}

func TestLibrary(t *testing.T) {
	db, err := storage.Open(filepath.Join(t.TempDir(), "recall.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ts := newTestServer(t, Options{DB: db})
	uploader := newClient(t, ts)
	uploader.upload("numbers.xlsx", workbook(t, numbers))

	decks, err := db.ListDecks(context.Background())
	require.NoError(t, err)
	require.Len(t, decks, 1)
	assert.Equal(t, knol.DeckHash(numbers), decks[0].Hash)
	assert.True(t, decks[0].Uploaded)

	other := newClient(t, ts)
	_, body := other.get("/")
	assert.Contains(t, body, "numbers.xlsx")
	assert.Contains(t, body, "3 cards")

	_, body = other.post("/library/"+decks[0].Hash+"/load", nil)
	assert.Contains(t, body, "Selected File: numbers.xlsx")
	assert.Contains(t, body, "Start Review")

	status, _ := other.post("/library/unknown/load", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = other.post("/library/scan", nil)
	assert.Equal(t, http.StatusNotFound, status, "scan needs a library dir")
}

func TestLibraryDisabled(t *testing.T) {
	ts := newTestServer(t, Options{})
	c := newClient(t, ts)

	_, body := c.get("/")
	assert.NotContains(t, body, `id="library"`)

	status, _ := c.post("/library/abc/load", nil)
	assert.Equal(t, http.StatusNotFound, status)
}
