package server

import (
	"bufio"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Z3rkRapt0r/gofood-men/backend/internal/realtime"
)

func TestReservationStreamEmitsChangeEvents(t *testing.T) {
	server := newTestServer(t, testServerOptions{heartbeat: time.Hour})
	httpServer := httptest.NewServer(server.handler)
	t.Cleanup(httpServer.Close)

	token := server.staffToken(t, "chef", testTenant)
	streamRequest, err := http.NewRequest(http.MethodGet, httpServer.URL+"/api/reservations/stream?access_token="+token, http.NoBody)
	if err != nil {
		t.Fatalf("failed to construct stream request: %v", err)
	}
	streamResp, err := http.DefaultClient.Do(streamRequest)
	if err != nil {
		t.Fatalf("failed to open stream: %v", err)
	}
	t.Cleanup(func() {
		_ = streamResp.Body.Close()
	})
	if streamResp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected stream status: %d", streamResp.StatusCode)
	}
	if !strings.HasPrefix(streamResp.Header.Get("Content-Type"), "text/event-stream") {
		t.Fatalf("unexpected content type %q", streamResp.Header.Get("Content-Type"))
	}
	streamReader := bufio.NewReader(streamResp.Body)

	deadline := time.Now().Add(5 * time.Second)
	for server.dispatcher.SubscriberCount(testTenant) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("stream never subscribed")
		}
		time.Sleep(10 * time.Millisecond)
	}

	encoded, err := json.Marshal(bookingBody(2, "20:00"))
	if err != nil {
		t.Fatalf("failed to encode booking: %v", err)
	}
	submitResp, err := http.Post(httpServer.URL+"/public/"+testTenant+"/reservations", "application/json", bytes.NewReader(encoded))
	if err != nil {
		t.Fatalf("submit request failed: %v", err)
	}
	_ = submitResp.Body.Close()
	if submitResp.StatusCode != http.StatusCreated {
		t.Fatalf("unexpected submit status: %d", submitResp.StatusCode)
	}

	currentEventType := ""
	timeout := time.After(5 * time.Second)
	type readResult struct {
		line string
		err  error
	}
	for {
		resultCh := make(chan readResult, 1)
		go func() {
			line, err := streamReader.ReadString('\n')
			resultCh <- readResult{line: line, err: err}
		}()
		select {
		case <-timeout:
			t.Fatal("timed out waiting for realtime event")
		case res := <-resultCh:
			if res.err != nil {
				t.Fatalf("failed to read stream: %v", res.err)
			}
			line := strings.TrimSpace(res.line)
			if line == "" {
				continue
			}
			if strings.HasPrefix(line, "event:") {
				currentEventType = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
				continue
			}
			if !strings.HasPrefix(line, "data:") || currentEventType != realtime.EventReservationsChanged {
				continue
			}
			var payload realtime.Message
			if err := json.Unmarshal([]byte(strings.TrimSpace(strings.TrimPrefix(line, "data:"))), &payload); err != nil {
				t.Fatalf("failed to decode event payload: %v", err)
			}
			if payload.TenantID != testTenant || len(payload.ReservationIDs) != 1 || payload.ReservationIDs[0] != "res-001" {
				t.Fatalf("unexpected event payload: %#v", payload)
			}
			return
		}
	}
}

func TestReservationStreamSendsHeartbeats(t *testing.T) {
	server := newTestServer(t, testServerOptions{heartbeat: 20 * time.Millisecond})
	httpServer := httptest.NewServer(server.handler)
	t.Cleanup(httpServer.Close)

	request, err := http.NewRequest(http.MethodGet, httpServer.URL+"/api/reservations/stream", http.NoBody)
	if err != nil {
		t.Fatalf("failed to construct stream request: %v", err)
	}
	request.Header.Set("Authorization", "Bearer "+server.staffToken(t, "chef", testTenant))
	response, err := http.DefaultClient.Do(request)
	if err != nil {
		t.Fatalf("failed to open stream: %v", err)
	}
	t.Cleanup(func() {
		_ = response.Body.Close()
	})

	lines := make(chan string, 1)
	go func() {
		reader := bufio.NewReader(response.Body)
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				return
			}
			if strings.HasPrefix(line, "event:") {
				lines <- strings.TrimSpace(strings.TrimPrefix(line, "event:"))
				return
			}
		}
	}()

	select {
	case event := <-lines:
		if event != realtime.EventHeartbeat {
			t.Fatalf("expected heartbeat event, got %q", event)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for heartbeat")
	}
}
