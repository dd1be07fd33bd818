package ingest

import "testing"

func TestNewFeedSetsAuthorizationHeader(t *testing.T) {
	f := NewFeed("wss://example.invalid", "token-123", nil)
	if got := f.header.Get("Authorization"); got != "Bearer token-123" {
		t.Errorf("expected bearer header, got %q", got)
	}
}

func TestNewFeedOmitsAuthorizationHeaderWhenTokenEmpty(t *testing.T) {
	f := NewFeed("wss://example.invalid", "", nil)
	if got := f.header.Get("Authorization"); got != "" {
		t.Errorf("expected no authorization header, got %q", got)
	}
}

func TestWriteMessageErrorsWithoutConnection(t *testing.T) {
	f := NewFeed("wss://example.invalid", "", nil)
	if err := f.writeMessage(1, nil); err == nil {
		t.Errorf("expected error writing without a connection")
	}
}

func TestCloseIsSafeWithoutConnection(t *testing.T) {
	f := NewFeed("wss://example.invalid", "", nil)
	if err := f.Close(); err != nil {
		t.Errorf("expected no error closing an unconnected feed, got %v", err)
	}
}

func TestRunLoopErrorsWithoutConnection(t *testing.T) {
	f := NewFeed("wss://example.invalid", "", nil)
	if err := f.RunLoop(nil); err == nil {
		t.Errorf("expected error running loop without a connection")
	}
}
