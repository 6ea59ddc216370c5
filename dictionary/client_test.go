package dictionary

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const helloResponse = `[{
  "word": "hello",
  "phonetic": "həˈləʊ",
  "meanings": [
    {"partOfSpeech": "exclamation", "definitions": [
      {"definition": "used as a greeting.", "example": "hello there, Katie!"},
      {"definition": "used to attract attention."}
    ]},
    {"partOfSpeech": "NOUN", "definitions": [{"definition": "an utterance of 'hello'."}]}
  ]
}]`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(Config{BaseURL: server.URL + "/entries/en/", Timeout: time.Second, MaxRetries: 2}, nil)
}

func TestLookupFormatsEntries(t *testing.T) {
	var path string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(helloResponse))
	})

	meaning := client.Lookup(context.Background(), " hello ")

	assert.Equal(t, "/entries/en/hello", path)
	expected := "Word: hello\n" +
		"Phonetic: həˈləʊ\n" +
		"\nAs Exclamation:\n" +
		"  1. used as a greeting.\n" +
		"     Example: \"hello there, Katie!\"\n" +
		"  2. used to attract attention.\n" +
		"\nAs Noun:\n" +
		"  1. an utterance of 'hello'."
	assert.Equal(t, expected, meaning)
}

func TestLookupNotFound(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"title":"No Definitions Found","message":"Sorry pal"}`))
	})

	meaning := client.Lookup(context.Background(), "nonexistingwordxyz123")
	assert.Equal(t, "Sorry, couldn't find a definition for 'nonexistingwordxyz123'.", meaning)
	assert.Equal(t, int32(1), calls.Load(), "4xx must not be retried")
}

func TestLookupRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(helloResponse))
	})

	meaning := client.Lookup(context.Background(), "hello")
	assert.Contains(t, meaning, "Word: hello")
	assert.Equal(t, int32(3), calls.Load())
}

func TestLookupGivesUpAfterRetries(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("oops"))
	})

	meaning := client.Lookup(context.Background(), "hello")
	assert.Contains(t, meaning, "HTTP error occurred: 500")
	assert.Contains(t, meaning, "oops")
}

func TestLookupBadJSON(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>"))
	})
	assert.Equal(t, "Error: Could not decode the server's response.", client.Lookup(context.Background(), "x"))
}

func TestLookupAPIErrorObject(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"title":"No Definitions Found","message":"Sorry pal"}`))
	})
	assert.Equal(t, "No Definitions Found: Sorry pal", client.Lookup(context.Background(), "x"))
}

func TestLookupEmptyWord(t *testing.T) {
	client := NewClient(Config{}, nil)
	assert.Equal(t, "Error: No word provided.", client.Lookup(context.Background(), "  "))
}

func TestLookupUnreachable(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://127.0.0.1:1/", Timeout: 200 * time.Millisecond}, nil)
	assert.Contains(t, client.Lookup(context.Background(), "x"), "Error fetching definition")
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "No definitions found for 'x' or unexpected API response format.", Format(nil, "x"))
	assert.Equal(t, "Word: x\nPhonetic: /x/\n  No specific meanings found in this entry.", Format([]Entry{{Word: "x", Phonetic: "/x/"}}, "x"))
	assert.Equal(t, "Word: y\n  No specific meanings found in this entry.", Format([]Entry{{}}, "y"))

	out := Format([]Entry{
		{Word: "bank", Meanings: []Meaning{{PartOfSpeech: "noun", Definitions: []Definition{{}}}}},
		{Phonetic: "/b/"},
	}, "bank")
	assert.Equal(t, "Word: bank\n\nAs Noun:\n  1. No definition text.\n\n--- Alternative Entry for bank ---\nPhonetic: /b/\n  No specific meanings found in this entry.", out)
}

func TestResponder(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(helloResponse))
	})
	responder := NewResponder(client, nil)

	reply, publish := responder.Dispatch(context.Background(), "dictionary/word/query", []byte("hello"))
	require.True(t, publish)
	assert.Contains(t, string(reply), "Word: hello")

	reply, publish = responder.Dispatch(context.Background(), "dictionary/word/query", []byte("   "))
	require.True(t, publish)
	assert.Equal(t, "Error: Received an empty word to search.", string(reply))
}

type blockingLookup struct{}

func (blockingLookup) Lookup(ctx context.Context, _ string) string {
	<-ctx.Done()
	return "Error fetching definition: " + ctx.Err().Error()
}

func TestResponderIsBounded(t *testing.T) {
	responder := &Responder{client: blockingLookup{}, timeout: 50 * time.Millisecond, logger: zap.NewNop()}

	start := time.Now()
	reply, publish := responder.Dispatch(context.Background(), "dictionary/word/query", []byte("slow"))

	assert.Less(t, time.Since(start), 2*time.Second)
	require.True(t, publish)
	assert.Equal(t, "Error fetching definition: context deadline exceeded", string(reply))
}

func TestBudget(t *testing.T) {
	client := NewClient(Config{Timeout: time.Second, MaxRetries: 2}, nil)
	assert.Equal(t, 3*time.Second+3*maxRetryInterval, client.Budget())

	responder := NewResponder(client, nil)
	assert.Equal(t, client.Budget(), responder.timeout)
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	assert.NotEmpty(t, config.BaseURL)
	assert.Equal(t, 10*time.Second, config.Timeout)
}
