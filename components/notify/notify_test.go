package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/goliatone/go-redash/pkg/redash"
	"github.com/rs/zerolog"
)

func TestMessageFor(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"not found", &redash.APIError{Status: http.StatusNotFound, Message: "nope"}, MessageNotFound},
		{"unauthorized", &redash.APIError{Status: http.StatusUnauthorized}, MessageForbidden},
		{"forbidden wrapped", fmt.Errorf("load: %w", &redash.APIError{Status: http.StatusForbidden}), MessageForbidden},
		{"api message", &redash.APIError{Status: http.StatusBadRequest, Message: "Invalid schedule"}, "Invalid schedule"},
		{"api without message", &redash.APIError{Status: http.StatusInternalServerError}, MessageGeneric},
		{"network", errors.New("dial tcp: refused"), MessageGeneric},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := MessageFor(tc.err); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestFetchErrorHandlerNotifies(t *testing.T) {
	recorder := &Recorder{}
	handler := FetchErrorHandler(recorder)
	handler(nil)
	handler(context.Canceled)
	handler(&redash.APIError{Status: http.StatusNotFound})

	items := recorder.Notifications()
	if len(items) != 1 {
		t.Fatalf("expected one notification, got %#v", items)
	}
	if items[0].Level != LevelError || items[0].Message != MessageNotFound || items[0].Sticky {
		t.Fatalf("unexpected notification %#v", items[0])
	}
}

func TestLogNotifierWritesLevels(t *testing.T) {
	var buf bytes.Buffer
	n := LogNotifier{Logger: zerolog.New(&buf)}
	n.Success(context.Background(), "Query saved", Options{})
	n.Error(context.Background(), "Query could not be saved", Options{Sticky: true})

	out := buf.String()
	if !strings.Contains(out, `"level":"info"`) || !strings.Contains(out, `"message":"Query saved"`) {
		t.Fatalf("missing success line: %s", out)
	}
	if !strings.Contains(out, `"level":"error"`) || !strings.Contains(out, `"sticky":true`) {
		t.Fatalf("missing sticky error line: %s", out)
	}
}

func TestNormalizeNil(t *testing.T) {
	if _, ok := Normalize(nil).(Nop); !ok {
		t.Fatalf("expected Nop notifier")
	}
}
