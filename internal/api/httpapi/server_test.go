package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hmuro/playalong/internal/app/notification"
	"github.com/hmuro/playalong/internal/app/session"
	"github.com/hmuro/playalong/internal/domain/song"
	"github.com/hmuro/playalong/internal/infra/history"
)

func newTestServer(t *testing.T) (*httptest.Server, *session.Manager, *notification.Manager) {
	t.Helper()

	store, err := history.Open(history.Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	sess := session.NewManager(store)
	notify := notification.NewManager()
	go notify.Pump(sess.Events())

	srv := httptest.NewServer(New(sess, store, notify, nil).Handler())
	t.Cleanup(srv.Close)
	return srv, sess, notify
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", strings.NewReader(string(data)))
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestHandleParseScore(t *testing.T) {
	srv, _, _ := newTestServer(t)

	doc := `<score-partwise><part id="P1"><measure number="1">
		<attributes><key><fifths>-2</fifths></key></attributes>
		<harmony><root><root-step>B</root-step><root-alter>-1</root-alter></root><kind>major</kind></harmony>
		<note><lyric><text>la</text></lyric></note>
	</measure></part></score-partwise>`

	resp, err := http.Post(srv.URL+"/v1/score", "application/xml", strings.NewReader(doc))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	rec := decodeBody[song.Record](t, resp)
	assert.Equal(t, "Bb Major", rec.Key)
	assert.Equal(t, []string{"Bb"}, rec.ChordVocabulary)
}

func TestHandleParseScore_Malformed(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/v1/score", "application/xml", strings.NewReader("<score"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestHandleNormalizeSong(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/v1/songs", map[string]string{
		"payload": `{"title": "Via API", "sections": [{"type": "Verse", "content": "[C] hi"}]}`,
		"query":   "https://youtu.be/abc123",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	rec := decodeBody[song.Record](t, resp)
	assert.Equal(t, "Via API", rec.Title)
	assert.Equal(t, "abc123", rec.VideoID)
}

func TestHandleNormalizeSong_Invalid(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/v1/songs", map[string]string{
		"payload": "sorry, no song here",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestSessionLifecycleOverHTTP(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := song.Record{
		Title: "Lifecycle",
		Sections: []song.Section{
			{Type: song.SectionVerse, Content: "[C] one [G] two"},
		},
	}

	resp := postJSON(t, srv.URL+"/v1/session/song", rec)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	view := decodeBody[sessionView](t, resp)
	assert.Equal(t, 0, view.Snapshot.Position)
	assert.Len(t, view.Segments, 2)

	resp = postJSON(t, srv.URL+"/v1/session/detections", map[string]string{"text": "[C]"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	snap := decodeBody[session.Snapshot](t, resp)
	assert.Equal(t, 1, snap.Position)

	// Mismatched detection does not move the cursor.
	resp = postJSON(t, srv.URL+"/v1/session/detections", map[string]string{"text": "[Q]"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	snap = decodeBody[session.Snapshot](t, resp)
	assert.Equal(t, 1, snap.Position)

	getResp, err := http.Get(srv.URL + "/v1/session")
	require.NoError(t, err)
	view = decodeBody[sessionView](t, getResp)
	assert.Equal(t, 1, view.Snapshot.Position)

	// The loaded song landed in history.
	histResp, err := http.Get(srv.URL + "/v1/history")
	require.NoError(t, err)
	entries := decodeBody[[]history.Entry](t, histResp)
	require.Len(t, entries, 1)
	assert.Equal(t, "Lifecycle", entries[0].Data.Title)
}

func TestHandleDetections_NoSong(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/v1/session/detections", map[string]string{"text": "[C]"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestHandleDetections_StaleGeneration(t *testing.T) {
	srv, sess, _ := newTestServer(t)

	snap, err := sess.Load(context.Background(), &song.Record{
		Title:    "One",
		Sections: []song.Section{{Type: song.SectionVerse, Content: "[C] x"}},
	})
	require.NoError(t, err)
	stale := snap.Generation

	_, err = sess.Load(context.Background(), &song.Record{
		Title:    "Two",
		Sections: []song.Section{{Type: song.SectionVerse, Content: "[C] y"}},
	})
	require.NoError(t, err)

	resp := postJSON(t, srv.URL+"/v1/session/detections", map[string]any{
		"text":       "[C]",
		"generation": stale,
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, 0, sess.Snapshot().Position)
}

func TestHandleSeek(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/v1/seek?t=1:05")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[map[string]int](t, resp)
	assert.Equal(t, 65, body["seconds"])

	resp, err = http.Get(srv.URL + "/v1/seek?t=nonsense")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/v1/seek")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestStream_FragmentsAdvanceCursor(t *testing.T) {
	srv, sess, _ := newTestServer(t)

	_, err := sess.Load(context.Background(), &song.Record{
		Title:    "Streamed",
		Sections: []song.Section{{Type: song.SectionVerse, Content: "[C] one [G] two"}},
	})
	require.NoError(t, err)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/session/stream"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Initial snapshot on connect.
	var ev wsEvent
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, "song_loaded", ev.Type)
	assert.Equal(t, 0, ev.Snapshot.Position)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("[C] hello")))

	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, "advanced", ev.Type)
	assert.Equal(t, 1, ev.Snapshot.Position)
}
