package api

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/JordanSekky/cereal-convert/app/books"
	"github.com/JordanSekky/cereal-convert/app/database"
)

type fakeBookRepo struct{}

func (fakeBookRepo) GetBook(slug string) (*database.Book, error)       { return nil, nil }
func (fakeBookRepo) GetBookByID(bookID string) (*database.Book, error) { return nil, nil }
func (fakeBookRepo) GetEnabledBooks() ([]database.Book, error)         { return nil, nil }
func (fakeBookRepo) GetBookCount() (int, error)                        { return 2, nil }
func (fakeBookRepo) UpsertBook(config *books.Config) (string, bool, error) {
	return "", false, nil
}
func (fakeBookRepo) ClaimForPoll(bookID string, staleAfter time.Duration) (bool, error) {
	return false, nil
}
func (fakeBookRepo) ReleasePoll(bookID string) error                         { return nil }
func (fakeBookRepo) UpdatePollTimes(bookID string, nextPoll time.Time) error { return nil }

type fakeChapterRepo struct{}

func (fakeChapterRepo) GetSourceURLs(bookID string) (map[string]struct{}, error) { return nil, nil }
func (fakeChapterRepo) CreateWithBody(chapter database.NewChapter, bucket, key string, subscriberIDs []string) (*database.Chapter, error) {
	return nil, nil
}
func (fakeChapterRepo) GetChapter(chapterID string) (*database.Chapter, error) { return nil, nil }
func (fakeChapterRepo) GetChapterCount(bookID string) (int, error)             { return 0, nil }

type fakeQueueRepo struct{}

func (fakeQueueRepo) GetPending(userID, bookID string) ([]database.PendingChapter, error) {
	return nil, nil
}
func (fakeQueueRepo) ConsumeGroup(userID, bookID string, unsentIDs []string, lastChapterID string) error {
	return nil
}
func (fakeQueueRepo) GetQueueDepth() (int, error)                  { return 3, nil }
func (fakeQueueRepo) GetOldestPendingAge() (*time.Duration, error) { return nil, nil }

type fakeMethodRepo struct {
	dm *database.DeliveryMethod
}

func (f *fakeMethodRepo) GetDeliveryMethod(userID string) (*database.DeliveryMethod, error) {
	return f.dm, nil
}
func (f *fakeMethodRepo) SetKindleEmail(userID, email, code string, codeTime time.Time) error {
	return nil
}
func (f *fakeMethodRepo) MarkKindleEmailVerified(userID string) error             { return nil }
func (f *fakeMethodRepo) SetKindleEmailEnabled(userID string, enabled bool) error { return nil }
func (f *fakeMethodRepo) SetPushoverKey(userID, key, code string, codeTime time.Time) error {
	return nil
}
func (f *fakeMethodRepo) MarkPushoverVerified(userID string) error             { return nil }
func (f *fakeMethodRepo) SetPushoverEnabled(userID string, enabled bool) error { return nil }

type fakeVerifier struct {
	began     []string
	confirmed []string
	err       error
}

func (f *fakeVerifier) BeginKindleVerification(ctx context.Context, userID, email string) error {
	if f.err != nil {
		return f.err
	}
	f.began = append(f.began, "kindle:"+userID)
	return nil
}

func (f *fakeVerifier) ConfirmKindle(ctx context.Context, userID, code string) error {
	if f.err != nil {
		return f.err
	}
	f.confirmed = append(f.confirmed, "kindle:"+userID)
	return nil
}

func (f *fakeVerifier) BeginPushoverVerification(ctx context.Context, userID, key string) error {
	if f.err != nil {
		return f.err
	}
	f.began = append(f.began, "pushover:"+userID)
	return nil
}

func (f *fakeVerifier) ConfirmPushover(ctx context.Context, userID, code string) error {
	if f.err != nil {
		return f.err
	}
	f.confirmed = append(f.confirmed, "pushover:"+userID)
	return nil
}

func newTestServer(t *testing.T, verifier *fakeVerifier) http.Handler {
	t.Helper()
	handler := NewHandler(books.NewConfigCache(t.TempDir()), fakeBookRepo{}, fakeChapterRepo{},
		fakeQueueRepo{}, &fakeMethodRepo{}, verifier)
	return NewServer(handler, "test-key")
}

func doRequest(server http.Handler, method, path, apiKey, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	server := newTestServer(t, &fakeVerifier{})

	w := doRequest(server, "GET", "/health", "", "")
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got: %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "books") {
		t.Errorf("Expected book count in health response, got: %s", w.Body.String())
	}
}

func TestStatsEndpoint(t *testing.T) {
	server := newTestServer(t, &fakeVerifier{})

	w := doRequest(server, "GET", "/stats", "", "")
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got: %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "queue_depth") {
		t.Errorf("Expected queue depth in stats response, got: %s", w.Body.String())
	}
}

func TestAPIRequiresKey(t *testing.T) {
	server := newTestServer(t, &fakeVerifier{})

	w := doRequest(server, "GET", "/api/books", "", "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without key, got: %d", w.Code)
	}

	w = doRequest(server, "GET", "/api/books", "wrong-key", "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 with wrong key, got: %d", w.Code)
	}

	w = doRequest(server, "GET", "/api/books", "test-key", "")
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 with valid key, got: %d", w.Code)
	}
}

func TestRegisterKindleEmail(t *testing.T) {
	verifier := &fakeVerifier{}
	server := newTestServer(t, verifier)

	body := `{"user_id": "alice", "email": "alice@kindle.com"}`
	w := doRequest(server, "POST", "/api/delivery/kindle", "test-key", body)
	if w.Code != http.StatusAccepted {
		t.Fatalf("Expected 202, got: %d (%s)", w.Code, w.Body.String())
	}
	if len(verifier.began) != 1 || verifier.began[0] != "kindle:alice" {
		t.Errorf("Expected kindle verification begun for alice, got: %v", verifier.began)
	}
}

func TestRegisterKindleEmailRejectsBadPayload(t *testing.T) {
	server := newTestServer(t, &fakeVerifier{})

	w := doRequest(server, "POST", "/api/delivery/kindle", "test-key", `{"user_id": "alice"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing email, got: %d", w.Code)
	}

	w = doRequest(server, "POST", "/api/delivery/kindle", "test-key",
		`{"user_id": "alice", "email": "not-an-email"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for invalid email, got: %d", w.Code)
	}
}

func TestVerifyKindleEmail(t *testing.T) {
	verifier := &fakeVerifier{}
	server := newTestServer(t, verifier)

	body := `{"user_id": "alice", "code": "ABCD2345"}`
	w := doRequest(server, "POST", "/api/delivery/kindle/verify", "test-key", body)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got: %d (%s)", w.Code, w.Body.String())
	}
	if len(verifier.confirmed) != 1 || verifier.confirmed[0] != "kindle:alice" {
		t.Errorf("Expected kindle confirmation for alice, got: %v", verifier.confirmed)
	}
}

func TestVerifyKindleEmailBadCode(t *testing.T) {
	verifier := &fakeVerifier{err: fmt.Errorf("verification code does not match")}
	server := newTestServer(t, verifier)

	body := `{"user_id": "alice", "code": "WRONG234"}`
	w := doRequest(server, "POST", "/api/delivery/kindle/verify", "test-key", body)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for rejected code, got: %d", w.Code)
	}
}

func TestRegisterPushover(t *testing.T) {
	verifier := &fakeVerifier{}
	server := newTestServer(t, verifier)

	body := `{"user_id": "bob", "key": "po-key"}`
	w := doRequest(server, "POST", "/api/delivery/pushover", "test-key", body)
	if w.Code != http.StatusAccepted {
		t.Fatalf("Expected 202, got: %d (%s)", w.Code, w.Body.String())
	}
	if len(verifier.began) != 1 || verifier.began[0] != "pushover:bob" {
		t.Errorf("Expected pushover verification begun for bob, got: %v", verifier.began)
	}
}

func TestGetDeliveryMethodNotFound(t *testing.T) {
	server := newTestServer(t, &fakeVerifier{})

	w := doRequest(server, "GET", "/api/delivery/nobody", "test-key", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown user, got: %d", w.Code)
	}
}
